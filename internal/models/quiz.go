package models

// ChoiceQuestion asks for the translation of one card among several options.
// Choices holds the right translation and up to three from other cards.
type ChoiceQuestion struct {
	CardID    int64    `json:"card_id"`
	Word      string   `json:"word"`
	Choices   []string `json:"choices"`
	Remaining int      `json:"remaining"`
}

// ChoiceResult is the outcome of answering a ChoiceQuestion.
type ChoiceResult struct {
	Correct  bool      `json:"correct"`
	Answer   string    `json:"answer"`
	Schedule *Schedule `json:"schedule"`
}

// MatchingWord is one word of a matching round.
type MatchingWord struct {
	CardID int64  `json:"card_id"`
	Word   string `json:"word"`
}

// MatchingRound lists words and, in a separate shuffled order, their translations.
type MatchingRound struct {
	Words        []MatchingWord `json:"words"`
	Translations []string       `json:"translations"`
}

// Match pairs a card with the translation the learner chose for it.
type Match struct {
	CardID      int64  `json:"card_id"`
	Translation string `json:"translation"`
}

// MatchingResult scores a submitted matching round.
type MatchingResult struct {
	Correct    int     `json:"correct"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}
