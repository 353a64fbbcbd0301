package session

import (
	"strings"
	"sync"

	"quiz-session-service/internal/domain"
)

// AnswerLedger maps question numbers to chosen labels for the active
// session. One entry per number, last write wins, absent means unanswered.
type AnswerLedger struct {
	mu      sync.RWMutex
	count   int
	choices map[int]string
}

func NewAnswerLedger(questionCount int) *AnswerLedger {
	return &AnswerLedger{
		count:   questionCount,
		choices: make(map[int]string),
	}
}

// Select records the learner's choice for a question, overwriting any
// previous selection.
func (l *AnswerLedger) Select(number int, label string) error {
	label = strings.ToUpper(strings.TrimSpace(label))
	if !isChoiceLabel(label) {
		return domain.ErrInvalidChoice
	}
	if number < 1 || number > l.count {
		return domain.ErrQuestionOutOfRange
	}
	l.mu.Lock()
	l.choices[number] = label
	l.mu.Unlock()
	return nil
}

// Choice returns the current selection for a question, if any.
func (l *AnswerLedger) Choice(number int) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	label, ok := l.choices[number]
	return label, ok
}

// Answered reports how many questions have a selection.
func (l *AnswerLedger) Answered() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.choices)
}

// Snapshot returns an immutable copy of the ledger for scoring.
func (l *AnswerLedger) Snapshot() map[int]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[int]string, len(l.choices))
	for number, label := range l.choices {
		out[number] = label
	}
	return out
}

func isChoiceLabel(label string) bool {
	for _, l := range domain.ChoiceLabels {
		if label == l {
			return true
		}
	}
	return false
}
