package quiz

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"vocabquiz/internal/models"
)

// Strength buckets an ease value for display
type Strength string

const (
	StrengthStrong Strength = "Strong"
	StrengthMedium Strength = "Medium"
	StrengthWeak   Strength = "Weak"
)

// Classify maps an ease value to its strength bucket
func Classify(ease int) Strength {
	switch {
	case ease >= 5:
		return StrengthStrong
	case ease >= 3:
		return StrengthMedium
	default:
		return StrengthWeak
	}
}

// Filter selects which progress entries are shown
type Filter string

const (
	FilterAll  Filter = "all"
	FilterWeak Filter = "weak"
)

// ParseFilter accepts "all", "weak" or empty (meaning all)
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterWeak:
		return FilterWeak, nil
	default:
		return "", fmt.Errorf("unknown progress filter %q", s)
	}
}

// Entry is one row of the progress report
type Entry struct {
	Item           models.VocabItem `json:"item"`
	Ease           int              `json:"ease"`
	CorrectCount   int              `json:"correct_count"`
	IncorrectCount int              `json:"incorrect_count"`
	Strength       Strength         `json:"strength"`
}

// Report summarizes a user's mastery. Entries are sorted weakest first.
type Report struct {
	Strong  int     `json:"strong"`
	Medium  int     `json:"medium"`
	Weak    int     `json:"weak"`
	Entries []Entry `json:"entries"`
}

// Aggregate joins progress records with their vocabulary items and classifies them.
// Records whose item is not in vocab are skipped.
func Aggregate(records []models.ProgressRecord, vocab map[int64]models.VocabItem) Report {
	report := Report{Entries: make([]Entry, 0, len(records))}

	for i := range records {
		rec := &records[i]
		item, ok := vocab[rec.VocabID]
		if !ok {
			continue
		}

		ease := rec.EffectiveEase()
		entry := Entry{
			Item:           item,
			Ease:           ease,
			CorrectCount:   rec.CorrectCount,
			IncorrectCount: rec.IncorrectCount,
			Strength:       Classify(ease),
		}

		switch entry.Strength {
		case StrengthStrong:
			report.Strong++
		case StrengthMedium:
			report.Medium++
		default:
			report.Weak++
		}
		report.Entries = append(report.Entries, entry)
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		return report.Entries[i].Ease < report.Entries[j].Ease
	})

	return report
}

// Visible returns the entries shown under filter, preserving order
func (r Report) Visible(filter Filter) []Entry {
	if filter != FilterWeak {
		return r.Entries
	}
	return lo.Filter(r.Entries, func(e Entry, _ int) bool {
		return e.Strength == StrengthWeak
	})
}

// IndexVocabulary keys vocabulary items by ID
func IndexVocabulary(items []models.VocabItem) map[int64]models.VocabItem {
	return lo.KeyBy(items, func(item models.VocabItem) int64 {
		return item.ID
	})
}

// IndexProgress keys progress records by vocabulary ID
func IndexProgress(records []models.ProgressRecord) map[int64]models.ProgressRecord {
	return lo.KeyBy(records, func(rec models.ProgressRecord) int64 {
		return rec.VocabID
	})
}
