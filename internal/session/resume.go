package session

import (
	"time"

	"quiz-session-service/internal/domain"
)

// ResumePlan is the reconstruction of an active session from a stored
// attempt: how much clock is left and which answers can be restored.
type ResumePlan struct {
	TotalSeconds        int
	RemainingSeconds    int
	RestoredAnswers     map[int]string
	WarningAlreadyFired bool
}

// PlanResume computes elapsed and remaining time for an attempt resumed at
// now, and maps its stored answers onto the resumed question set by ordinal
// position. The total duration falls back from the attempt's time limit to
// its duration-minutes to questionCount * secondsPerQuestion.
func PlanResume(att domain.Attempt, questions []domain.Question, now time.Time, secondsPerQuestion int) ResumePlan {
	total := att.TimeLimitSeconds
	if total <= 0 {
		total = att.DurationMinutes * 60
	}
	if total <= 0 {
		total = len(questions) * secondsPerQuestion
	}

	elapsed := int(now.Sub(att.StartedAt).Seconds())
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := total - elapsed
	if remaining < 0 {
		remaining = 0
	}

	ordinals := make(map[string]int, len(questions))
	for i, q := range questions {
		ordinals[q.ID] = i + 1
	}

	// Malformed or unmatched stored answers are dropped; they never abort
	// the resume.
	restored := make(map[int]string)
	for _, stored := range att.StoredAnswers {
		number, ok := ordinals[stored.QuestionID]
		if !ok {
			continue
		}
		decoded := DecodeStoredAnswer(stored.Answer)
		if !decoded.OK {
			continue
		}
		restored[number] = decoded.Label
	}

	return ResumePlan{
		TotalSeconds:        total,
		RemainingSeconds:    remaining,
		RestoredAnswers:     restored,
		WarningAlreadyFired: remaining <= WarningThreshold(total),
	}
}
