package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quiz-session-service/internal/domain"
	pgstore "quiz-session-service/internal/infra/postgres"
	pgmigrations "quiz-session-service/internal/infra/postgres/migrations"
	infraredis "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/session"
)

func TestScheduledSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuiz(t, ctx, pgURL, sampleQuiz())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	loader := pgstore.NewQuizLoader(pool)
	catalog := infraredis.NewQuizCatalog(redisClient, loader, 5*time.Minute)
	attempts := pgstore.NewAttemptStore(pool, catalog).ForUser("u1")
	results := pgstore.NewResultStore(pool)

	// First session: a fresh attempt on the scheduled quiz.
	first := session.NewController(session.Dependencies{
		Attempts: attempts,
		Results:  results,
	}, session.Options{UserID: "u1", QuizID: "quiz-1"})

	if err := first.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if got := first.Phase(); got != domain.PhaseActive {
		t.Fatalf("phase = %s", got)
	}
	if err := first.SelectAnswer(1, "B"); err != nil {
		t.Fatalf("select: %v", err)
	}
	first.Submit(ctx)

	record, ok := first.Result()
	if !ok {
		t.Fatalf("no result after submit")
	}
	if record.CorrectCount != 1 || record.WrongCount != 1 || record.ScorePercentage != 50 {
		t.Fatalf("result = %+v", record)
	}
	if !record.Saved {
		t.Fatalf("result not persisted")
	}

	// The quiz content is now cached; a direct redis read proves it.
	if _, err := redisClient.Get(ctx, "quiz:quiz-1:content").Result(); err != nil {
		t.Fatalf("quiz not cached: %v", err)
	}

	// Second session: resume the stored attempt with one answer on record.
	var attemptID string
	if err := pool.QueryRow(ctx, `SELECT id FROM attempts WHERE user_id='u1'`).Scan(&attemptID); err != nil {
		t.Fatalf("attempt id: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE attempts SET answers='{"q1":"B"}'::jsonb WHERE id=$1`, attemptID); err != nil {
		t.Fatalf("seed stored answers: %v", err)
	}

	resumed := session.NewController(session.Dependencies{
		Attempts: attempts,
		Results:  results,
	}, session.Options{UserID: "u1", QuizID: "quiz-1", AttemptID: attemptID})

	if err := resumed.Start(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := resumed.Phase(); got != domain.PhaseActive {
		t.Fatalf("resumed phase = %s", got)
	}
	remaining := resumed.Remaining()
	if remaining <= 0 || remaining > 120 {
		t.Fatalf("resumed remaining = %d", remaining)
	}

	resumed.Submit(ctx)
	record, ok = resumed.Result()
	if !ok {
		t.Fatalf("no result after resumed submit")
	}
	if record.Answers[0].Chosen == nil || *record.Answers[0].Chosen != "B" {
		t.Fatalf("restored answer missing: %+v", record.Answers[0])
	}

	listed, err := results.ResultsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("persisted %d results, want 2", len(listed))
	}
	if len(listed[0].Answers) != 2 {
		t.Fatalf("result detail missing: %+v", listed[0])
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuiz(t *testing.T, ctx context.Context, dsn string, quiz domain.Quiz) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(quiz)
	if err != nil {
		t.Fatalf("marshal quiz: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO quizzes (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, quiz.ID, string(data)); err != nil {
		t.Fatalf("insert quiz: %v", err)
	}
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:               "quiz-1",
		Subject:          "math",
		TimeLimitSeconds: 120,
		Questions: []domain.Question{
			{
				ID:           "q1",
				Prompt:       "What is 2 + 2?",
				CorrectLabel: "B",
				Explanation:  "Two plus two is four.",
				Choices: []domain.Choice{
					{Label: "A", Text: "3"},
					{Label: "B", Text: "4"},
					{Label: "C", Text: "5"},
					{Label: "D", Text: "6"},
				},
			},
			{
				ID:           "q2",
				Prompt:       "What is 3 * 3?",
				CorrectLabel: "C",
				Explanation:  "Three times three is nine.",
				Choices: []domain.Choice{
					{Label: "A", Text: "6"},
					{Label: "B", Text: "8"},
					{Label: "C", Text: "9"},
					{Label: "D", Text: "12"},
				},
			},
		},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
