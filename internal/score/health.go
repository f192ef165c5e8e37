package score

import "rapport/internal/emotion"

type Health struct {
	Status      string `json:"status"`
	Description string `json:"description"`
}

const (
	StatusExcellent  = "excellent"
	StatusGood       = "good"
	StatusNeutral    = "neutral"
	StatusConcerning = "concerning"
	StatusPoor       = "poor"
)

// largeAngryDrop marks an angry message that cost at least this many points.
const largeAngryDrop = -12

func HealthStatus(score int) Health {
	switch {
	case score >= 80:
		return Health{Status: StatusExcellent, Description: "Communication is warm and positive. This relationship is thriving."}
	case score >= 65:
		return Health{Status: StatusGood, Description: "Mostly positive exchanges with occasional friction."}
	case score >= 50:
		return Health{Status: StatusNeutral, Description: "A balanced mix of positive and negative moments."}
	case score >= 35:
		return Health{Status: StatusConcerning, Description: "Negative exchanges are outweighing positive ones."}
	default:
		return Health{Status: StatusPoor, Description: "Frequent conflict or distress. This relationship needs attention."}
	}
}

// Recommendation picks the first matching rule; the order is significant.
func Recommendation(score int, c emotion.Category, pointsApplied int) string {
	switch {
	case c == emotion.Angry && pointsApplied <= largeAngryDrop:
		return "Tensions are high. Take a short pause before replying and acknowledge their feelings before explaining your side."
	case c == emotion.Stressed && score < 50:
		return "They seem to be under strain. Offer support or ask what would help instead of problem-solving right away."
	case c == emotion.Excited && score >= 50 && score < 80:
		return "Good moment to build on. Share in their excitement and keep the positive momentum going."
	case score < 35:
		return "The conversation has been difficult lately. Consider a calm check-in about how you are both feeling."
	case score >= 80:
		return "Things are going really well. Keep showing appreciation and interest."
	default:
		return "Keep listening actively and respond with empathy."
	}
}
