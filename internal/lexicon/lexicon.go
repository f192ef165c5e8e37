package lexicon

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

// PatternSet is the matching vocabulary of one non-neutral category.
type PatternSet struct {
	Keywords         []string `yaml:"keywords" json:"keywords"`
	Phrases          []string `yaml:"phrases" json:"phrases"`
	ContextClues     []string `yaml:"context_clues" json:"context_clues"`
	Intensifiers     []string `yaml:"intensifiers" json:"intensifiers"`
	Emoticons        []string `yaml:"emoticons,omitempty" json:"emoticons,omitempty"`
	NegationHandling bool     `yaml:"negation_handling" json:"negation_handling"`
}

type NeutralPatterns struct {
	Indicators     []string `yaml:"indicators" json:"indicators"`
	QuestionLeads  []string `yaml:"question_leads" json:"question_leads"`
	StatementLeads []string `yaml:"statement_leads" json:"statement_leads"`
}

type Categories struct {
	Angry    PatternSet `yaml:"angry" json:"angry"`
	Stressed PatternSet `yaml:"stressed" json:"stressed"`
	Excited  PatternSet `yaml:"excited" json:"excited"`
}

// Lexicon is immutable once loaded. Callers must not modify the slices.
type Lexicon struct {
	Version           string          `yaml:"version" json:"version"`
	NegationMarkers   []string        `yaml:"negation_markers" json:"negation_markers"`
	SadnessIndicators []string        `yaml:"sadness_indicators" json:"sadness_indicators"`
	Categories        Categories      `yaml:"categories" json:"categories"`
	Neutral           NeutralPatterns `yaml:"neutral" json:"neutral"`
}

// Default parses the lexicon compiled into the binary.
func Default() (*Lexicon, error) {
	return Load(bytes.NewReader(defaultDocument))
}

func LoadFile(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Lexicon, error) {
	var lex Lexicon
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&lex); err != nil {
		return nil, fmt.Errorf("decode lexicon: %w", err)
	}
	lex.normalize()
	if err := lex.Validate(); err != nil {
		return nil, err
	}
	return &lex, nil
}

func (l *Lexicon) Validate() error {
	if strings.TrimSpace(l.Version) == "" {
		return fmt.Errorf("lexicon version is required")
	}
	if len(l.NegationMarkers) == 0 {
		return fmt.Errorf("lexicon negation_markers is empty")
	}
	sets := []struct {
		name string
		set  PatternSet
	}{
		{name: "angry", set: l.Categories.Angry},
		{name: "stressed", set: l.Categories.Stressed},
		{name: "excited", set: l.Categories.Excited},
	}
	for _, s := range sets {
		if len(s.set.Keywords) == 0 {
			return fmt.Errorf("lexicon category %s has no keywords", s.name)
		}
	}
	if len(l.Neutral.Indicators) == 0 && len(l.Neutral.QuestionLeads) == 0 && len(l.Neutral.StatementLeads) == 0 {
		return fmt.Errorf("lexicon neutral patterns are empty")
	}
	return nil
}

// normalize lowercases every text pattern. Emoticons are matched against the
// original text and keep their case.
func (l *Lexicon) normalize() {
	l.Version = strings.TrimSpace(l.Version)
	l.NegationMarkers = lowerAll(l.NegationMarkers)
	l.SadnessIndicators = lowerAll(l.SadnessIndicators)
	for _, set := range []*PatternSet{&l.Categories.Angry, &l.Categories.Stressed, &l.Categories.Excited} {
		set.Keywords = lowerAll(set.Keywords)
		set.Phrases = lowerAll(set.Phrases)
		set.ContextClues = lowerAll(set.ContextClues)
		set.Intensifiers = lowerAll(set.Intensifiers)
		set.Emoticons = trimAll(set.Emoticons)
	}
	l.Neutral.Indicators = lowerAll(l.Neutral.Indicators)
	l.Neutral.QuestionLeads = lowerAll(l.Neutral.QuestionLeads)
	l.Neutral.StatementLeads = lowerAll(l.Neutral.StatementLeads)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(v, "’", "'")))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
