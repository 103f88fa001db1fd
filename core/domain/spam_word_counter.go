package domain

import "sort"

// WordCounter holds per-word occurrence counts across labeled messages.
type WordCounter struct {
	Word      string `json:"word" db:"word"`
	SpamCount int64  `json:"spam_count" db:"spam_count"`
	HamCount  int64  `json:"ham_count" db:"ham_count"`
}

// Total returns the number of messages the word appeared in.
func (c WordCounter) Total() int64 {
	return c.SpamCount + c.HamCount
}

// CounterSums is the aggregate of all counters in the store.
type CounterSums struct {
	Spam int64 `json:"spam" db:"sum_spam"`
	Ham  int64 `json:"ham" db:"sum_ham"`
}

// IsZero reports whether the store holds no counts at all.
func (s CounterSums) IsZero() bool {
	return s.Spam == 0 && s.Ham == 0
}

// WordTally is a partial count produced while training a batch.
type WordTally struct {
	Total int64
	Spam  int64
	Ham   int64
}

// WordTallies maps a word to its counts within one batch.
type WordTallies map[string]WordTally

// Observe records a single message occurrence of word.
func (t WordTallies) Observe(word string, spam bool) {
	tally := t[word]
	tally.Total++
	if spam {
		tally.Spam++
	} else {
		tally.Ham++
	}
	t[word] = tally
}

// Merge adds other into t element-wise.
func (t WordTallies) Merge(other WordTallies) {
	for word, o := range other {
		tally := t[word]
		tally.Total += o.Total
		tally.Spam += o.Spam
		tally.Ham += o.Ham
		t[word] = tally
	}
}

// Counters returns the tallies with Total >= minAppearance as counters
// sorted by word.
func (t WordTallies) Counters(minAppearance int64) []WordCounter {
	counters := make([]WordCounter, 0, len(t))
	for word, tally := range t {
		if tally.Total < minAppearance {
			continue
		}
		counters = append(counters, WordCounter{Word: word, SpamCount: tally.Spam, HamCount: tally.Ham})
	}
	sort.Slice(counters, func(i, j int) bool { return counters[i].Word < counters[j].Word })
	return counters
}

// Words returns the words of the given counters in order.
func Words(counters []WordCounter) []string {
	words := make([]string, len(counters))
	for i, c := range counters {
		words[i] = c.Word
	}
	return words
}
