package lexicon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLexiconLoads(t *testing.T) {
	lex, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "lexicon-en-v3", lex.Version)
	assert.Contains(t, lex.NegationMarkers, "no")
	assert.Contains(t, lex.NegationMarkers, "can't")
	assert.Contains(t, lex.Categories.Angry.Phrases, "you never")
	assert.Contains(t, lex.Categories.Excited.Emoticons, ":D")
	assert.True(t, lex.Categories.Excited.NegationHandling)
	assert.NotEmpty(t, lex.SadnessIndicators)
	assert.NotEmpty(t, lex.Neutral.QuestionLeads)
}

func TestLoadNormalizesPatterns(t *testing.T) {
	doc := `
version: test
negation_markers: ["Don’t", "NOT", "not"]
categories:
  angry: {keywords: ["  Mad "]}
  stressed: {keywords: [tired]}
  excited: {keywords: [Happy], emoticons: [":D"]}
neutral:
  indicators: [OK]
`
	lex, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, []string{"don't", "not"}, lex.NegationMarkers)
	assert.Equal(t, []string{"mad"}, lex.Categories.Angry.Keywords)
	assert.Equal(t, []string{"happy"}, lex.Categories.Excited.Keywords)
	assert.Equal(t, []string{":D"}, lex.Categories.Excited.Emoticons)
	assert.Equal(t, []string{"ok"}, lex.Neutral.Indicators)
}

func TestLoadRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing version",
			doc:  "negation_markers: [not]\n",
			want: "version",
		},
		{
			name: "empty category",
			doc: `
version: v
negation_markers: [not]
categories:
  angry: {keywords: [mad]}
  stressed: {keywords: []}
  excited: {keywords: [happy]}
neutral: {indicators: [ok]}
`,
			want: "stressed",
		},
		{
			name: "unknown field",
			doc:  "version: v\nunknown: 1\n",
			want: "decode lexicon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("testdata/does-not-exist.yaml")
	require.Error(t, err)
}
