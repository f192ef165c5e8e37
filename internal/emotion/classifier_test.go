package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rapport/internal/lexicon"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	lex, err := lexicon.Default()
	require.NoError(t, err)
	return NewClassifier(lex)
}

func TestClassifyEmptyInput(t *testing.T) {
	c := newTestClassifier(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		got := c.Classify(text)
		assert.Equal(t, Neutral, got.Label)
		assert.Equal(t, EmptyConfidence, got.Confidence)
		assert.False(t, got.HasNegation)
		for _, k := range Categories() {
			assert.Zero(t, got.Scores[k], "category %s", k)
		}
	}
}

func TestClassifyScenarioAngry(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify("I am so angry with you, you never listen!")
	assert.Equal(t, Angry, got.Label)
	assert.Greater(t, got.Confidence, 0.6)
	assert.True(t, got.HasNegation)
	assert.InDelta(t, 3.9, got.Scores[Angry], 1e-9)
}

func TestClassifyScenarioExcited(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify("I love you so much! 💕")
	assert.Equal(t, Excited, got.Label)
	assert.InDelta(t, 5.85, got.Scores[Excited], 1e-9)
	assert.False(t, got.HasNegation)
}

func TestClassifyNegationRedirectsToStressed(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify("I'm not happy with how things are going")
	assert.True(t, got.HasNegation)
	assert.Equal(t, Stressed, got.Label)
	assert.Greater(t, got.Scores[Stressed], got.Scores[Excited])
	assert.InDelta(t, 2.8, got.Scores[Stressed], 1e-9)
	assert.InDelta(t, 0.12, got.Scores[Excited], 1e-9)
}

func TestClassifyTypographicApostrophe(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify("I’m not happy")
	assert.True(t, got.HasNegation)
	assert.Equal(t, Stressed, got.Label)
}

func TestClassifyEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantLabel Category
		wantConf  float64
	}{
		{name: "emoticon only", text: ":)", wantLabel: Excited, wantConf: 0.78},
		{name: "uppercase emoticon", text: ":D", wantLabel: Excited, wantConf: 0.78},
		{name: "intensifiers only", text: "so very really", wantLabel: Neutral, wantConf: EmptyConfidence},
		{name: "punctuation only", text: "?!...", wantLabel: Neutral, wantConf: EmptyConfidence},
		{name: "tie prefers stressed over neutral", text: "how tired", wantLabel: Stressed, wantConf: 0.6},
		{name: "tie prefers angry over stressed", text: "mad tired", wantLabel: Angry, wantConf: 0.6},
		{name: "question", text: "what time is dinner?", wantLabel: Neutral, wantConf: 0.75},
	}

	c := newTestClassifier(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.text)
			assert.Equal(t, tt.wantLabel, got.Label)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-4)
		})
	}
}

func TestClassifySadnessFeedsStressed(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify("i feel so lonely")
	assert.Equal(t, Stressed, got.Label)
	assert.InDelta(t, 1.56, got.Scores[Stressed], 1e-9)
}

func TestClassifyMixedMessageDampensExcited(t *testing.T) {
	c := newTestClassifier(t)
	got := c.Classify("great, another deadline")
	// excited 1 * 0.4, stressed 0.5
	assert.Equal(t, Stressed, got.Label)
	assert.InDelta(t, 0.4, got.Scores[Excited], 1e-9)
	assert.InDelta(t, 0.5, got.Scores[Stressed], 1e-9)
}

func TestClassifyProperties(t *testing.T) {
	c := newTestClassifier(t)
	inputs := []string{
		"",
		"ok",
		"!!!!",
		"so so so so so angry angry angry furious livid you never you always shut up",
		"happy happy happy amazing awesome love you :) :D <3 💕 🎉 so very really super",
		"I hate this, I'm so stressed and tired and sad and lonely",
		"can you pick up groceries on your way home?",
		"nobody cares",
		"ｆｕｌｌｗｉｄｔｈ ｔｅｘｔ",
	}
	for _, text := range inputs {
		first := c.Classify(text)
		second := c.Classify(text)
		assert.Equal(t, first, second, "classify must be deterministic for %q", text)
		assert.True(t, first.Label.Valid(), "label %q", first.Label)
		assert.GreaterOrEqual(t, first.Confidence, 0.0)
		assert.LessOrEqual(t, first.Confidence, MaxConfidence)
		for _, k := range Categories() {
			assert.GreaterOrEqual(t, first.Scores[k], 0.0)
		}
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{in: "Anger", want: Angry, ok: true},
		{in: " joy ", want: Excited, ok: true},
		{in: "anxiety", want: Stressed, ok: true},
		{in: "calm", want: Neutral, ok: true},
		{in: "stressed", want: Stressed, ok: true},
		{in: "bewildered", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseCategory(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-1))
	assert.Equal(t, MaxConfidence, ClampConfidence(1))
	assert.Equal(t, 0.7, ClampConfidence(0.7))
}
