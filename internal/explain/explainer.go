package explain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"rapport/internal/emotion"
)

const (
	shortMessageRunes = 15
	longMessageRunes  = 50
)

const (
	EmptyText   = "There is not enough text here to read a tone."
	GenericText = "The tone of this message is hard to read. Asking how they feel is a safe next step."
)

var apologyWords = []string{"sorry", "apologize", "my fault", "my bad"}

type Explainer struct {
	classifier *emotion.Classifier
}

func New(classifier *emotion.Classifier) *Explainer {
	return &Explainer{classifier: classifier}
}

// Explain returns one or two sentences describing how the message is likely
// meant. A nil classification is computed from text.
func (e *Explainer) Explain(text string, classification *emotion.Result) string {
	t := strings.ToLower(strings.TrimSpace(emotion.NormalizeText(text)))
	if t == "" {
		return EmptyText
	}
	if rule, ok := matchRule(t); ok {
		return rule.Text
	}

	var result emotion.Result
	switch {
	case classification != nil:
		result = *classification
	case e != nil && e.classifier != nil:
		result = e.classifier.Classify(text)
	default:
		return GenericText
	}
	return byLabel(t, result.Label)
}

func matchRule(t string) (Rule, bool) {
	for _, r := range directRules {
		if r.matches(t) {
			return r, true
		}
	}
	return Rule{}, false
}

func (r Rule) matches(t string) bool {
	for _, p := range r.All {
		if !containsWord(t, p) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return len(r.All) > 0
	}
	return containsAny(t, r.Any)
}

func byLabel(t string, label emotion.Category) string {
	n := utf8.RuneCountInString(t)
	mentionsYou := containsWord(t, "you")
	asks := strings.Contains(t, "?")

	switch label {
	case emotion.Angry:
		if mentionsYou {
			return "The anger here seems aimed at you. Acknowledging their feelings first will likely go further than defending yourself."
		}
		if n < shortMessageRunes {
			return "A short, sharp reaction. Something just annoyed them."
		}
		return "They sound angry about a situation. It does not necessarily target you."
	case emotion.Stressed:
		if containsAny(t, apologyWords) {
			return "They feel bad and are under strain. Some reassurance would probably help."
		}
		if asks {
			return "They sound stressed and are looking for answers or reassurance."
		}
		if n < shortMessageRunes {
			return "A brief, tense reply. They may be overwhelmed at the moment."
		}
		return "They seem to be carrying a lot right now. Support may matter more than solutions."
	case emotion.Excited:
		if n > longMessageRunes {
			return "An enthusiastic, detailed message. They are sharing something that matters to them."
		}
		if mentionsYou {
			return "Upbeat and warm toward you. They are in a good mood about your connection."
		}
		return "An upbeat, positive message."
	case emotion.Neutral:
		if asks {
			return "A straightforward question. They are asking for information."
		}
		if n < shortMessageRunes {
			return "A brief, neutral reply. They are most likely just acknowledging."
		}
		if n > longMessageRunes {
			return "A detailed, matter-of-fact message without strong emotion."
		}
		return "A neutral, informational message."
	default:
		return GenericText
	}
}

func containsAny(text string, hints []string) bool {
	for _, h := range hints {
		if containsWord(text, h) {
			return true
		}
	}
	return false
}

// containsWord reports whether phrase occurs in text with no letter or digit
// directly before or after it, so "you" does not match "your" or "young".
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	for from := 0; from <= len(text)-len(phrase); {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		if !wordRuneBefore(text, start) && !wordRuneAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		from = start + size
	}
	return false
}

func wordRuneBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return isWordRune(r)
}

func wordRuneAfter(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
