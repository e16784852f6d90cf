package models

// Form is one target-language rendering of a vocabulary item (e.g. singular, plural, root)
type Form struct {
	Type  string `json:"form_type" db:"form_type"`
	Value string `json:"form_value" db:"form_value"`
}

// VocabItem is an immutable reference word: an English meaning with its Arabic forms
type VocabItem struct {
	ID      int64  `json:"id" db:"id"`
	Meaning string `json:"meaning" db:"english_meaning"`
	Forms   []Form `json:"forms"`
}

// HasForms reports whether the item can be used in a quiz
func (v VocabItem) HasForms() bool {
	return len(v.Forms) > 0
}
