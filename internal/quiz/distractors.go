package quiz

import (
	"vocabquiz/internal/models"
)

// PickOptions builds the multiple-choice set for question: up to DistractorCount
// other usable items chosen uniformly at random, plus the question itself, in
// random display order.
func (s *Sampler) PickOptions(items []models.VocabItem, question models.Question, progress map[int64]models.ProgressRecord) models.OptionSet {
	usable := Usable(items)

	candidates := make([]int, 0, len(usable))
	for i, item := range usable {
		if item.ID != question.Item.ID {
			candidates = append(candidates, i)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// partial Fisher-Yates: only the first n slots need to be settled
	n := min(DistractorCount, len(candidates))
	for i := 0; i < n; i++ {
		j := i + s.rng.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	options := make([]models.Question, 0, n+1)
	for _, idx := range candidates[:n] {
		options = append(options, questionFor(usable[idx], progress))
	}
	options = append(options, question)

	s.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return models.OptionSet{Question: question, Options: options}
}
