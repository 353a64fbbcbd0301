package session

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-session-service/internal/domain"
)

// ResultStore persists completed session results.
type ResultStore interface {
	PersistResult(ctx context.Context, record domain.ResultRecord) error
}

// FeedbackGenerator produces improvement tips from a learner's mistakes.
type FeedbackGenerator interface {
	GenerateFeedback(ctx context.Context, mistakes []domain.AnswerResult, age int, language string) ([]string, error)
}

// SubmissionPipeline turns an answer snapshot into a scored, persisted
// result with feedback attached. Every step tolerates failure: persistence
// errors only withhold the saved indicator, feedback errors fall back to
// static tips. The pipeline itself never fails.
type SubmissionPipeline struct {
	results  ResultStore
	feedback FeedbackGenerator
	now      func() time.Time
}

func NewSubmissionPipeline(results ResultStore, feedback FeedbackGenerator, now func() time.Time) *SubmissionPipeline {
	if now == nil {
		now = time.Now
	}
	return &SubmissionPipeline{results: results, feedback: feedback, now: now}
}

// Run scores the snapshot against the question set and returns the final
// record. scheduled marks pre-authored assessments, which get deterministic
// templated tips instead of a remote feedback call.
func (p *SubmissionPipeline) Run(ctx context.Context, userID string, cfg domain.SessionConfig, questions []domain.Question, answers map[int]string, startedAt time.Time, scheduled bool) domain.ResultRecord {
	now := p.now()
	record := domain.ResultRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		Subject:     cfg.Subject,
		Subtopics:   strings.Join(cfg.Subtopics, ", "),
		CompletedAt: now,
	}
	if taken := int(now.Sub(startedAt).Seconds()); taken > 0 {
		record.TimeTakenSeconds = taken
	}

	var mistakes []domain.AnswerResult
	var summaries []string
	for i, q := range questions {
		number := i + 1
		answer := domain.AnswerResult{
			Number:       number,
			Prompt:       q.Prompt,
			CorrectLabel: q.CorrectLabel,
			Explanation:  q.Explanation,
			Choices:      q.Choices,
		}
		if label, ok := answers[number]; ok {
			chosen := label
			answer.Chosen = &chosen
			answer.Correct = label == q.CorrectLabel
		}
		if answer.Correct {
			record.CorrectCount++
		} else {
			record.WrongCount++
			mistakes = append(mistakes, answer)
			summaries = append(summaries, fmt.Sprintf("Q%d: %s", number, q.Explanation))
		}
		record.Answers = append(record.Answers, answer)
	}
	if len(questions) > 0 {
		record.ScorePercentage = int(math.Round(float64(record.CorrectCount) / float64(len(questions)) * 100))
	}
	record.MistakeSummary = strings.Join(summaries, "\n")

	if p.results != nil {
		if err := p.results.PersistResult(ctx, record); err != nil {
			log.Printf("persist result %s: %v", record.ID, err)
		} else {
			record.Saved = true
		}
	}

	record.Tips = p.tips(ctx, record.ScorePercentage, mistakes, cfg, scheduled)
	return record
}

func (p *SubmissionPipeline) tips(ctx context.Context, score int, mistakes []domain.AnswerResult, cfg domain.SessionConfig, scheduled bool) []string {
	if scheduled {
		return scheduledTips(score)
	}
	if len(mistakes) == 0 {
		return []string{"Perfect score! Keep challenging yourself with harder topics."}
	}
	if p.feedback != nil {
		tips, err := p.feedback.GenerateFeedback(ctx, mistakes, cfg.Age, cfg.Language)
		if err == nil && len(tips) > 0 {
			return tips
		}
		if err != nil {
			log.Printf("generate feedback: %v", err)
		}
	}
	return fallbackTips()
}

// scheduledTips are deterministic: pre-authored assessments never call the
// remote generator.
func scheduledTips(score int) []string {
	switch {
	case score >= 90:
		return []string{
			fmt.Sprintf("Excellent work, you scored %d%%.", score),
			"Review the few explanations you missed to lock in the details.",
		}
	case score >= 70:
		return []string{
			fmt.Sprintf("Good job, you scored %d%%.", score),
			"Re-read the explanations for the questions you got wrong.",
			"Try a slightly harder set next time.",
		}
	case score >= 50:
		return []string{
			fmt.Sprintf("You scored %d%%, a solid base to build on.", score),
			"Go over each wrong answer and its explanation before retrying.",
		}
	default:
		return []string{
			fmt.Sprintf("You scored %d%%. Don't be discouraged.", score),
			"Revisit the topic material, then retake the assessment.",
		}
	}
}

func fallbackTips() []string {
	return []string{
		"Review the explanations for the questions you missed.",
		"Retry the same topic to reinforce what you learned.",
	}
}
