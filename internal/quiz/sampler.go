// Package quiz holds the pure quiz logic: weighted question selection,
// distractor picking, answer scoring and progress aggregation.
package quiz

import (
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"vocabquiz/internal/models"
)

// ErrNoVocabulary is returned when no vocabulary item has any forms
var ErrNoVocabulary = errors.New("no vocab data found")

const (
	// UnseenWeight is the sampling weight of items the user has not answered yet
	UnseenWeight = 4

	// MaxDrawAttempts bounds the redraws spent avoiding a back-to-back repeat
	MaxDrawAttempts = 10

	// DistractorCount is the number of wrong answers shown next to the right one
	DistractorCount = 3
)

// Sampler draws questions and distractors from a shared random source.
// It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler creates a sampler seeded from the current time
func NewSampler() *Sampler {
	return NewSamplerWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewSamplerWithSource creates a sampler over src; tests pass a fixed seed
func NewSamplerWithSource(src rand.Source) *Sampler {
	return &Sampler{rng: rand.New(src)}
}

// Usable filters vocabulary down to items that have at least one form
func Usable(items []models.VocabItem) []models.VocabItem {
	return lo.Filter(items, func(item models.VocabItem, _ int) bool {
		return item.HasForms()
	})
}

// Weight returns the sampling weight for an item given its progress record.
// Unseen items get UnseenWeight; seen items get 6-ease, never below 1.
func Weight(p *models.ProgressRecord) int {
	if p == nil || !p.Seen {
		return UnseenWeight
	}
	return max(1, models.MaxEase+1-p.EffectiveEase())
}

// SelectQuestion picks the next question from items, favouring low-ease and unseen
// words. lastID is the previously asked item (0 when there is none); a draw equal to
// it is retried up to MaxDrawAttempts times, after which the repeat is accepted.
func (s *Sampler) SelectQuestion(items []models.VocabItem, progress map[int64]models.ProgressRecord, lastID int64) (models.Question, error) {
	usable := Usable(items)
	if len(usable) == 0 {
		return models.Question{}, ErrNoVocabulary
	}

	pool := newWeightedPool(usable, progress)

	s.mu.Lock()
	defer s.mu.Unlock()

	var picked models.VocabItem
	for attempt := 0; attempt < MaxDrawAttempts; attempt++ {
		picked = pool.draw(s.rng)
		if picked.ID != lastID {
			break
		}
	}

	return questionFor(picked, progress), nil
}

// weightedPool samples items proportionally to their weight using a
// cumulative-weight table and binary search
type weightedPool struct {
	items      []models.VocabItem
	cumulative []int
	total      int
}

func newWeightedPool(items []models.VocabItem, progress map[int64]models.ProgressRecord) *weightedPool {
	pool := &weightedPool{
		items:      items,
		cumulative: make([]int, len(items)),
	}
	for i, item := range items {
		pool.total += Weight(progressFor(item.ID, progress))
		pool.cumulative[i] = pool.total
	}
	return pool
}

func (p *weightedPool) draw(rng *rand.Rand) models.VocabItem {
	r := rng.Intn(p.total)
	idx := sort.Search(len(p.cumulative), func(i int) bool {
		return p.cumulative[i] > r
	})
	return p.items[idx]
}

func progressFor(id int64, progress map[int64]models.ProgressRecord) *models.ProgressRecord {
	rec, ok := progress[id]
	if !ok {
		return nil
	}
	return &rec
}

func questionFor(item models.VocabItem, progress map[int64]models.ProgressRecord) models.Question {
	return models.Question{Item: item, Progress: progressFor(item.ID, progress)}
}
