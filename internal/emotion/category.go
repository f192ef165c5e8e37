package emotion

import "strings"

// Category is one of the closed set of message emotion labels.
type Category string

const (
	Angry    Category = "angry"
	Stressed Category = "stressed"
	Excited  Category = "excited"
	Neutral  Category = "neutral"
)

// priority is also the tie-break order: the first declared category wins.
var priority = []Category{Angry, Stressed, Excited, Neutral}

func Categories() []Category {
	return append([]Category(nil), priority...)
}

func (c Category) Valid() bool {
	switch c {
	case Angry, Stressed, Excited, Neutral:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// Loose labels produced by external emotion services and language models.
var categoryAliases = map[string]Category{
	"angry":          Angry,
	"anger":          Angry,
	"mad":            Angry,
	"furious":        Angry,
	"frustration":    Angry,
	"disgust":        Angry,
	"annoyed":        Angry,
	"hostile":        Angry,
	"stressed":       Stressed,
	"stress":         Stressed,
	"sad":            Stressed,
	"sadness":        Stressed,
	"fear":           Stressed,
	"anxiety":        Stressed,
	"anxious":        Stressed,
	"worried":        Stressed,
	"disappointment": Stressed,
	"guilt":          Stressed,
	"embarrassment":  Stressed,
	"resignation":    Stressed,
	"excited":        Excited,
	"excitement":     Excited,
	"joy":            Excited,
	"happy":          Excited,
	"happiness":      Excited,
	"love":           Excited,
	"gratitude":      Excited,
	"relief":         Excited,
	"hope":           Excited,
	"pride":          Excited,
	"surprise":       Excited,
	"positive":       Excited,
	"neutral":        Neutral,
	"calm":           Neutral,
	"boredom":        Neutral,
	"confusion":      Neutral,
	"none":           Neutral,
}

// ParseCategory maps a loose emotion label onto the closed set.
func ParseCategory(label string) (Category, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if key == "" {
		return "", false
	}
	c, ok := categoryAliases[key]
	return c, ok
}
