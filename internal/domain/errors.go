package domain

import "errors"

var (
	// ErrProfileIncomplete is returned when the learner profile lacks age or language.
	ErrProfileIncomplete = errors.New("learner profile incomplete")
	// ErrProfileUnavailable indicates the profile could not be fetched at all.
	ErrProfileUnavailable = errors.New("profile unavailable")
	// ErrQuotaExceeded is returned when the learner has no quizzes left on their plan.
	ErrQuotaExceeded = errors.New("quiz quota exceeded")
	// ErrGenerationFailed indicates a fresh question set could not be produced.
	ErrGenerationFailed = errors.New("question generation failed")
	// ErrAttemptUnavailable indicates a scheduled attempt could not be fetched.
	ErrAttemptUnavailable = errors.New("attempt unavailable")
	// ErrQuizNotFound indicates the scheduled quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionOutOfRange is returned for answers to question numbers outside the set.
	ErrQuestionOutOfRange = errors.New("question number out of range")
	// ErrInvalidChoice is returned for answer labels outside A-D.
	ErrInvalidChoice = errors.New("invalid choice label")
	// ErrNotActive is returned for learner actions outside the active phase.
	ErrNotActive = errors.New("session not active")
)
