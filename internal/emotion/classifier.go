package emotion

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"rapport/internal/lexicon"
)

const Engine = "rapport-lexical-v1"

const (
	MaxConfidence   = 0.95
	EmptyConfidence = 0.5

	keywordWeight       = 1.0
	phraseWeight        = 2.0
	contextClueWeight   = 0.5
	sadnessWeight       = 1.2
	emoticonWeight      = 1.5
	intensifierStep     = 0.3
	negationTransfer    = 0.8
	negationRetain      = 0.3
	mixedExcitedRetain  = 0.4
	questionLeadWeight  = 1.0
	statementLeadWeight = 0.8
	indicatorWeight     = 0.6
)

type Result struct {
	Label       Category             `json:"label"`
	Confidence  float64              `json:"confidence"`
	Scores      map[Category]float64 `json:"scores"`
	HasNegation bool                 `json:"has_negation"`
}

type patternSet struct {
	keywords         map[string]struct{}
	phrases          []string
	contextClues     []string
	intensifiers     map[string]struct{}
	emoticons        []string
	negationHandling bool
}

// Classifier is safe for concurrent use; it holds no mutable state.
type Classifier struct {
	lex       *lexicon.Lexicon
	angry     patternSet
	stressed  patternSet
	excited   patternSet
	negations map[string]struct{}
	sadness   map[string]struct{}
	neutral   map[string]struct{}
}

func NewClassifier(lex *lexicon.Lexicon) *Classifier {
	return &Classifier{
		lex:       lex,
		angry:     compile(lex.Categories.Angry),
		stressed:  compile(lex.Categories.Stressed),
		excited:   compile(lex.Categories.Excited),
		negations: toSet(lex.NegationMarkers),
		sadness:   toSet(lex.SadnessIndicators),
		neutral:   toSet(lex.Neutral.Indicators),
	}
}

func (c *Classifier) Version() string {
	return Engine + "/" + c.lex.Version
}

func (c *Classifier) Lexicon() *lexicon.Lexicon {
	return c.lex
}

// EmptyResult is returned for blank input.
func EmptyResult() Result {
	return Result{
		Label:      Neutral,
		Confidence: EmptyConfidence,
		Scores:     zeroScores(),
	}
}

func (c *Classifier) Classify(text string) Result {
	original := NormalizeText(text)
	lowered := strings.ToLower(strings.TrimSpace(original))
	if lowered == "" {
		return EmptyResult()
	}
	tokens := Tokenize(lowered)
	hasNegation := c.detectNegation(tokens)

	angry := c.rawScore(c.angry, tokens, lowered)
	stressed := c.rawScore(c.stressed, tokens, lowered) + float64(countTokens(tokens, c.sadness))*sadnessWeight
	excited := c.rawScore(c.excited, tokens, lowered) + float64(countLiterals(original, c.excited.emoticons))*emoticonWeight

	angry = boost(angry, c.angry, tokens)
	stressed = boost(stressed, c.stressed, tokens)
	excited = boost(excited, c.excited, tokens)

	// "not happy" reads as distress rather than joy.
	if hasNegation && excited > 0 && c.excited.negationHandling {
		stressed += excited * negationTransfer
		excited *= negationRetain
	}
	// Mixed positive and negative wording is usually sarcasm or a complaint.
	if (angry > 0 || stressed > 0) && excited > 0 {
		excited *= mixedExcitedRetain
	}

	scores := map[Category]float64{
		Angry:    round(angry, 4),
		Stressed: round(stressed, 4),
		Excited:  round(excited, 4),
		Neutral:  round(c.neutralScore(tokens, lowered), 4),
	}
	label, conf := decide(scores)
	return Result{
		Label:       label,
		Confidence:  conf,
		Scores:      scores,
		HasNegation: hasNegation,
	}
}

func (c *Classifier) detectNegation(tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := c.negations[tok]; ok {
			return true
		}
		if strings.HasSuffix(tok, "n't") {
			return true
		}
	}
	return false
}

func (c *Classifier) rawScore(set patternSet, tokens []string, lowered string) float64 {
	score := float64(countTokens(tokens, set.keywords)) * keywordWeight
	score += float64(countLiterals(lowered, set.phrases)) * phraseWeight
	score += float64(countLiterals(lowered, set.contextClues)) * contextClueWeight
	return score
}

func boost(score float64, set patternSet, tokens []string) float64 {
	if score <= 0 {
		return score
	}
	seen := make(map[string]struct{}, len(set.intensifiers))
	for _, tok := range tokens {
		if _, ok := set.intensifiers[tok]; ok {
			seen[tok] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return score
	}
	return score * (1 + intensifierStep*float64(len(seen)))
}

func (c *Classifier) neutralScore(tokens []string, lowered string) float64 {
	score := 0.0
	for _, lead := range c.lex.Neutral.QuestionLeads {
		if strings.HasPrefix(lowered, lead+" ") || strings.Contains(lowered, " "+lead+" ") {
			score += questionLeadWeight
			break
		}
	}
	if countLiterals(lowered, c.lex.Neutral.StatementLeads) > 0 {
		score += statementLeadWeight
	}
	if countTokens(tokens, c.neutral) > 0 {
		score += indicatorWeight
	}
	return score
}

func decide(scores map[Category]float64) (Category, float64) {
	values := make([]float64, 0, len(priority))
	for _, k := range priority {
		values = append(values, scores[k])
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(values)))
	top, second := values[0], values[1]
	if top <= 0 {
		return Neutral, EmptyConfidence
	}

	label := priority[0]
	best := scores[label]
	for _, k := range priority[1:] {
		if scores[k] > best {
			label = k
			best = scores[k]
		}
	}
	conf := 0.6 + (top-second)/(top+1)*0.3
	return label, round(math.Min(MaxConfidence, conf), 4)
}

// NormalizeText applies NFC normalization and folds typographic apostrophes.
func NormalizeText(text string) string {
	text = norm.NFC.String(text)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(text)
}

// Tokenize splits on whitespace and trims punctuation from token edges.
func Tokenize(lowered string) []string {
	fields := strings.Fields(lowered)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		tok := strings.TrimFunc(f, unicode.IsPunct)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func compile(set lexicon.PatternSet) patternSet {
	return patternSet{
		keywords:         toSet(set.Keywords),
		phrases:          set.Phrases,
		contextClues:     set.ContextClues,
		intensifiers:     toSet(set.Intensifiers),
		emoticons:        set.Emoticons,
		negationHandling: set.NegationHandling,
	}
}

func toSet(words []string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func countTokens(tokens []string, set map[string]struct{}) int {
	n := 0
	for _, tok := range tokens {
		if _, ok := set[tok]; ok {
			n++
		}
	}
	return n
}

// countLiterals counts how many of the literals occur in text, each at most once.
func countLiterals(text string, literals []string) int {
	n := 0
	for _, l := range literals {
		if strings.Contains(text, l) {
			n++
		}
	}
	return n
}

func zeroScores() map[Category]float64 {
	return map[Category]float64{Angry: 0, Stressed: 0, Excited: 0, Neutral: 0}
}

// ClampConfidence bounds an externally reported confidence to [0, MaxConfidence].
func ClampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return clamp(v, 0, MaxConfidence)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func round(v float64, precision int) float64 {
	p := math.Pow10(precision)
	return math.Round(v*p) / p
}
