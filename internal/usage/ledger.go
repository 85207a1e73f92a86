package usage

import (
	"inbox-scorer-go/internal/textstat"
)

// Ledger tracks the cumulative word volume sent to the classifier within a
// single run, against a fixed ceiling. A ledger is created fresh per run and
// is not persisted, so the ceiling is a per-run cap. It is owned by one
// pipeline run and is not safe for concurrent use.
type Ledger struct {
	wordsConsumed int
	wordCeiling   int
	itemsScored   int
}

// Snapshot is a read-only view of the ledger state with derived figures.
type Snapshot struct {
	WordsConsumed  int     `json:"words_consumed"`
	WordCeiling    int     `json:"word_ceiling"`
	ItemsScored    int     `json:"items_scored"`
	PercentageUsed float64 `json:"percentage_used"`
	WordsRemaining int     `json:"words_remaining"`
	AveragePerItem float64 `json:"average_per_item"`
}

// NewLedger creates a ledger with the given word ceiling.
func NewLedger(ceiling int) *Ledger {
	return &Ledger{wordCeiling: ceiling}
}

// Ceiling returns the fixed word ceiling.
func (l *Ledger) Ceiling() int {
	return l.wordCeiling
}

// ProjectedTotal returns the cumulative word count if text were charged.
// It does not mutate the ledger; the pipeline uses it to refuse classifier
// calls that would overshoot the ceiling.
func (l *Ledger) ProjectedTotal(text string) int {
	return l.wordsConsumed + textstat.CountWords(text)
}

// RecordUsage charges the ledger for text and returns the word count charged.
// Call it only once a scoring attempt has been committed to.
func (l *Ledger) RecordUsage(text string) int {
	words := textstat.CountWords(text)
	l.wordsConsumed += words
	l.itemsScored++
	return words
}

// GetSnapshot returns the current ledger state with derived statistics.
func (l *Ledger) GetSnapshot() Snapshot {
	s := Snapshot{
		WordsConsumed:  l.wordsConsumed,
		WordCeiling:    l.wordCeiling,
		ItemsScored:    l.itemsScored,
		WordsRemaining: l.wordCeiling - l.wordsConsumed,
	}
	if l.wordCeiling > 0 {
		s.PercentageUsed = float64(l.wordsConsumed) / float64(l.wordCeiling) * 100
	}
	if l.itemsScored > 0 {
		s.AveragePerItem = float64(l.wordsConsumed) / float64(l.itemsScored)
	}
	return s
}
