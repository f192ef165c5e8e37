package explain

// Rule matches when every pattern in All occurs in the lowercased message and,
// if Any is non-empty, at least one pattern in Any occurs too. Patterns match
// whole words only: no letter or digit may touch either end.
type Rule struct {
	Name string
	All  []string
	Any  []string
	Text string
}

// directRules are evaluated in order before any label-driven heuristic.
// Earlier rules win when several match the same message.
var directRules = []Rule{
	{
		Name: "absolute_complaint",
		Any:  []string{"you never", "you always"},
		Text: "This sounds like built-up frustration. Words like \"never\" and \"always\" usually mean they feel unheard, not that it literally never happens.",
	},
	{
		Name: "anger_at_you",
		All:  []string{"you"},
		Any:  []string{"angry", "mad at", "hate", "hates", "hated", "furious", "pissed"},
		Text: "They are upset with you directly. They most likely want to be acknowledged before anything gets explained.",
	},
	{
		Name: "wants_space",
		Any:  []string{"leave me alone", "need space", "need some space", "don't talk to me"},
		Text: "They are asking for room right now. Giving them some time is usually kinder than pushing for a reply.",
	},
	{
		Name: "apology",
		Any:  []string{"sorry", "apologize", "apologies", "my bad", "forgive me"},
		Text: "This is an apology. They are trying to repair things and may be waiting to hear that it landed.",
	},
	{
		Name: "serious_talk",
		Any:  []string{"we need to talk", "can we talk"},
		Text: "They want a serious conversation. It may help to pick a calm moment rather than reply in a rush.",
	},
	{
		Name: "affection",
		Any:  []string{"love you", "adore you"},
		Text: "A warm expression of affection. They are letting you know they care about you.",
	},
	{
		Name: "longing",
		Any:  []string{"miss you", "wish you were here"},
		Text: "They miss you. This is an invitation for closeness and reassurance.",
	},
	{
		Name: "anticipation",
		Any:  []string{"can't wait", "looking forward"},
		Text: "They are looking forward to something, likely something you share.",
	},
	{
		Name: "gratitude",
		Any:  []string{"thank you", "thanks", "appreciate", "appreciated"},
		Text: "They are expressing gratitude and noticing what you did.",
	},
	{
		Name: "dismissive",
		Any:  []string{"whatever", "i'm fine", "it's fine", "forget it"},
		Text: "This may sound dismissive. Short replies like this can hide hurt feelings, so a gentle check-in might help.",
	},
	{
		Name: "overloaded",
		Any:  []string{"deadline", "deadlines", "exam", "exams", "so much to do", "too much"},
		Text: "They are under outside pressure. The tension is probably about their workload rather than about you.",
	},
	{
		Name: "shopping",
		Any:  []string{"shopping", "groceries", "grocery", "pick up"},
		Text: "A practical errand message. They are coordinating everyday tasks.",
	},
	{
		Name: "meal_plans",
		Any:  []string{"dinner", "lunch", "breakfast"},
		Text: "They are making plans around a meal. It is a simple, everyday check-in.",
	},
	{
		Name: "playful",
		Any:  []string{"haha", "hahaha", "lol", "lmao", "hehe"},
		Text: "A playful, lighthearted message. They are joking around.",
	},
}

// Rules returns the ordered direct-pattern table.
func Rules() []Rule {
	out := make([]Rule, len(directRules))
	copy(out, directRules)
	return out
}
