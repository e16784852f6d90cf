package models

import "time"

// Ease bounds
const (
	MinEase     = 1
	MaxEase     = 5
	DefaultEase = MinEase
)

// ProgressRecord tracks how well one user knows one vocabulary item
type ProgressRecord struct {
	UserID         string    `json:"user_id" db:"user_id"`
	VocabID        int64     `json:"english_id" db:"english_id"`
	Ease           int       `json:"ease" db:"ease"`
	Seen           bool      `json:"seen" db:"seen"`
	CorrectCount   int       `json:"correct_count" db:"correct_count"`
	IncorrectCount int       `json:"incorrect_count" db:"incorrect_count"`
	LastSeen       time.Time `json:"last_seen" db:"last_seen"`
}

// EffectiveEase returns the record's ease clamped to [MinEase, MaxEase].
// A nil record or a zero ease counts as DefaultEase.
func (p *ProgressRecord) EffectiveEase() int {
	if p == nil || p.Ease < MinEase {
		return DefaultEase
	}
	if p.Ease > MaxEase {
		return MaxEase
	}
	return p.Ease
}

// Question is a vocabulary item paired with the user's current progress on it.
// Progress is nil when the user has never answered the item.
type Question struct {
	Item     VocabItem       `json:"item"`
	Progress *ProgressRecord `json:"progress,omitempty"`
}

// OptionSet is a question plus its distractors in display order
type OptionSet struct {
	Question Question   `json:"question"`
	Options  []Question `json:"options"`
}

// Meanings returns the option meanings in display order
func (o OptionSet) Meanings() []string {
	meanings := make([]string, len(o.Options))
	for i, opt := range o.Options {
		meanings[i] = opt.Item.Meaning
	}
	return meanings
}

// HasOption reports whether meaning is one of the displayed options
func (o OptionSet) HasOption(meaning string) bool {
	for _, opt := range o.Options {
		if opt.Item.Meaning == meaning {
			return true
		}
	}
	return false
}
