package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func testQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-1",
		Subject:          "math",
		TimeLimitSeconds: 120,
		Questions: []domain.Question{
			{ID: "q1", Prompt: "1+1", CorrectLabel: "A"},
			{ID: "q2", Prompt: "2+2", CorrectLabel: "B"},
		},
	}
}

func TestAttemptStoreFreshAttempt(t *testing.T) {
	started := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewAttemptStoreWithClock(map[string]domain.Quiz{"quiz-1": testQuiz()}, func() time.Time { return started })

	att, err := store.FetchScheduledAttempt(context.Background(), "quiz-1", "", false)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if att.ID == "" {
		t.Fatalf("fresh attempt needs an id")
	}
	if att.QuizID != "quiz-1" || att.Subject != "math" || len(att.Questions) != 2 {
		t.Fatalf("attempt = %+v", att)
	}
	if !att.StartedAt.Equal(started) || att.TimeLimitSeconds != 120 {
		t.Fatalf("attempt timing = %v / %d", att.StartedAt, att.TimeLimitSeconds)
	}

	// A second fresh fetch is a distinct attempt.
	again, err := store.FetchScheduledAttempt(context.Background(), "quiz-1", "", false)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if again.ID == att.ID {
		t.Fatalf("fresh attempts must not share ids")
	}
}

func TestAttemptStoreResume(t *testing.T) {
	store := NewAttemptStore(map[string]domain.Quiz{"quiz-1": testQuiz()})

	first, err := store.FetchScheduledAttempt(context.Background(), "quiz-1", "", false)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	resumed, err := store.FetchScheduledAttempt(context.Background(), "quiz-1", first.ID, true)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.ID != first.ID || !resumed.StartedAt.Equal(first.StartedAt) {
		t.Fatalf("resumed = %+v, want the original attempt back", resumed)
	}
	if len(resumed.Questions) != 2 {
		t.Fatalf("resume must carry the quiz questions")
	}
}

func TestAttemptStoreSeededResume(t *testing.T) {
	store := NewAttemptStore(map[string]domain.Quiz{"quiz-1": testQuiz()})
	store.SeedAttempt(domain.Attempt{
		ID:               "att-9",
		QuizID:           "quiz-1",
		StartedAt:        time.Now().Add(-time.Minute),
		TimeLimitSeconds: 120,
		StoredAnswers:    []domain.StoredAnswer{{QuestionID: "q1", Answer: "A"}},
	})

	att, err := store.FetchScheduledAttempt(context.Background(), "quiz-1", "att-9", true)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if len(att.StoredAnswers) != 1 || att.StoredAnswers[0].QuestionID != "q1" {
		t.Fatalf("stored answers = %+v", att.StoredAnswers)
	}
}

func TestAttemptStoreErrors(t *testing.T) {
	store := NewAttemptStore(map[string]domain.Quiz{"quiz-1": testQuiz()})

	if _, err := store.FetchScheduledAttempt(context.Background(), "nope", "", false); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("unknown quiz err = %v", err)
	}
	if _, err := store.FetchScheduledAttempt(context.Background(), "quiz-1", "ghost", true); !errors.Is(err, domain.ErrAttemptUnavailable) {
		t.Fatalf("unknown attempt err = %v", err)
	}

	// An attempt id from a different quiz does not resume.
	store.SeedAttempt(domain.Attempt{ID: "att-other", QuizID: "quiz-2"})
	if _, err := store.FetchScheduledAttempt(context.Background(), "quiz-1", "att-other", true); !errors.Is(err, domain.ErrAttemptUnavailable) {
		t.Fatalf("cross-quiz resume err = %v", err)
	}
}

func TestQuotaStore(t *testing.T) {
	quota := NewQuotaStore(3)
	ctx := context.Background()

	if n, _ := quota.CheckQuizQuota(ctx, "u1"); n != 3 {
		t.Fatalf("default remaining = %d", n)
	}

	for i := 0; i < 3; i++ {
		if err := quota.Consume(ctx, "u1"); err != nil {
			t.Fatalf("consume: %v", err)
		}
	}
	if n, _ := quota.CheckQuizQuota(ctx, "u1"); n != 0 {
		t.Fatalf("remaining after burn = %d", n)
	}

	// Floors at zero.
	_ = quota.Consume(ctx, "u1")
	if n, _ := quota.CheckQuizQuota(ctx, "u1"); n != 0 {
		t.Fatalf("remaining went negative: %d", n)
	}

	quota.Grant("u1", 5)
	if n, _ := quota.CheckQuizQuota(ctx, "u1"); n != 5 {
		t.Fatalf("granted remaining = %d", n)
	}
}

func TestProfileDirectory(t *testing.T) {
	directory := NewProfileDirectory()
	directory.Put("u1", domain.Profile{Age: 10, Language: "English"})

	profile, err := directory.For("u1").FetchProfile(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !profile.Complete() {
		t.Fatalf("profile = %+v", profile)
	}

	if _, err := directory.For("ghost").FetchProfile(context.Background()); !errors.Is(err, domain.ErrProfileUnavailable) {
		t.Fatalf("unknown learner err = %v", err)
	}
}

func TestStaticQuestionSource(t *testing.T) {
	source := NewStaticQuestionSource(map[string][]domain.Question{
		"math": testQuiz().Questions,
	})

	questions, err := source.GenerateQuestions(context.Background(), domain.SessionConfig{Subject: "math", QuestionCount: 1})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(questions) != 1 {
		t.Fatalf("count = %d", len(questions))
	}

	// A request beyond the bank clamps to what exists.
	questions, _ = source.GenerateQuestions(context.Background(), domain.SessionConfig{Subject: "math", QuestionCount: 50})
	if len(questions) != 2 {
		t.Fatalf("clamped count = %d", len(questions))
	}

	if _, err := source.GenerateQuestions(context.Background(), domain.SessionConfig{Subject: "history"}); !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("unknown subject err = %v", err)
	}
}

func TestResultStoreNewestFirst(t *testing.T) {
	store := NewResultStore()
	ctx := context.Background()

	_ = store.PersistResult(ctx, domain.ResultRecord{ID: "r1", UserID: "u1"})
	_ = store.PersistResult(ctx, domain.ResultRecord{ID: "r2", UserID: "u1"})
	_ = store.PersistResult(ctx, domain.ResultRecord{ID: "r3", UserID: "u2"})

	records, err := store.ResultsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 2 || records[0].ID != "r2" || records[1].ID != "r1" {
		t.Fatalf("records = %+v", records)
	}

	if records, _ := store.ResultsFor(ctx, "ghost"); len(records) != 0 {
		t.Fatalf("unknown learner records = %+v", records)
	}
}
