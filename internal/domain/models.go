package domain

import "time"

// Phase is the lifecycle stage of a quiz session.
type Phase string

const (
	PhaseConfig     Phase = "config"
	PhaseLoading    Phase = "loading"
	PhaseActive     Phase = "active"
	PhaseSubmitting Phase = "submitting"
	PhaseResults    Phase = "results"
)

// ChoiceLabels are the only legal answer labels, in display order.
var ChoiceLabels = []string{"A", "B", "C", "D"}

// SessionConfig captures the learner's quiz request. Immutable once a
// session leaves the config phase.
type SessionConfig struct {
	Age           int      `json:"age"`
	Language      string   `json:"language"`
	Subject       string   `json:"subject"`
	Subtopics     []string `json:"subtopics"`
	QuestionCount int      `json:"questionCount"`
	Difficulty    string   `json:"difficulty"`
	Instructions  string   `json:"instructions,omitempty"`
}

// Choice is one of the four labeled options of a question.
type Choice struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is a single MCQ item. Number is 1-based and dense within a set.
type Question struct {
	ID           string   `json:"id"`
	Number       int      `json:"number"`
	Prompt       string   `json:"prompt"`
	Choices      []Choice `json:"choices"`
	CorrectLabel string   `json:"correctLabel"`
	Explanation  string   `json:"explanation"`
}

// Quiz is a pre-authored (scheduled) question set. TimeLimitSeconds takes
// precedence over DurationMinutes when both are set.
type Quiz struct {
	ID               string     `json:"id"`
	Subject          string     `json:"subject"`
	Questions        []Question `json:"questions"`
	TimeLimitSeconds int        `json:"timeLimitSeconds,omitempty"`
	DurationMinutes  int        `json:"durationMinutes,omitempty"`
}

// StoredAnswer is a previously persisted answer on an attempt, raw as stored.
type StoredAnswer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// Attempt is a persisted, possibly resumable record of a scheduled-quiz
// session in progress.
type Attempt struct {
	ID               string         `json:"id"`
	QuizID           string         `json:"quizId"`
	Subject          string         `json:"subject,omitempty"`
	UserID           string         `json:"userId"`
	Questions        []Question     `json:"questions"`
	StartedAt        time.Time      `json:"startedAt"`
	TimeLimitSeconds int            `json:"timeLimitSeconds,omitempty"`
	DurationMinutes  int            `json:"durationMinutes,omitempty"`
	StoredAnswers    []StoredAnswer `json:"storedAnswers,omitempty"`
}

// Profile carries the learner attributes the session needs up front.
type Profile struct {
	Age      int    `json:"age"`
	Language string `json:"language"`
}

// Complete reports whether the profile can back a session.
func (p Profile) Complete() bool {
	return p.Age > 0 && p.Language != ""
}

// AnswerResult is the per-question outcome derived at submission time.
// Chosen is nil for unanswered questions.
type AnswerResult struct {
	Number       int      `json:"number"`
	Prompt       string   `json:"prompt"`
	Chosen       *string  `json:"chosen"`
	CorrectLabel string   `json:"correctLabel"`
	Explanation  string   `json:"explanation"`
	Correct      bool     `json:"correct"`
	Choices      []Choice `json:"choices"`
}

// ResultRecord is the scored, feedback-bearing outcome of one session.
type ResultRecord struct {
	ID               string         `json:"id"`
	UserID           string         `json:"userId"`
	Subject          string         `json:"subject"`
	Subtopics        string         `json:"subtopics"`
	CorrectCount     int            `json:"correctCount"`
	WrongCount       int            `json:"wrongCount"`
	ScorePercentage  int            `json:"scorePercentage"`
	TimeTakenSeconds int            `json:"timeTakenSeconds"`
	Answers          []AnswerResult `json:"answers"`
	MistakeSummary   string         `json:"mistakeSummary,omitempty"`
	Tips             []string       `json:"tips"`
	Saved            bool           `json:"saved"`
	CompletedAt      time.Time      `json:"completedAt"`
}

// Mistakes returns the subset of answers that were not correct.
func (r ResultRecord) Mistakes() []AnswerResult {
	var out []AnswerResult
	for _, a := range r.Answers {
		if !a.Correct {
			out = append(out, a)
		}
	}
	return out
}
