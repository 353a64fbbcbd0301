package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-session-service/internal/config"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/event"
	"quiz-session-service/internal/infra/feedback"
	"quiz-session-service/internal/infra/memory"
	pginfra "quiz-session-service/internal/infra/postgres"
	redisinfra "quiz-session-service/internal/infra/redis"
	"quiz-session-service/internal/session"
	transport "quiz-session-service/internal/transport/http"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quiz session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Quiz content: postgres behind an optional redis cache, or the demo
	// catalog when no database is configured.
	catalogTTL := config.TTLDuration(cfg.Quiz.CatalogTTL, 10*time.Minute)
	var contentLoader pginfra.ContentLoader
	if pool != nil {
		contentLoader = pginfra.NewQuizLoader(pool)
		if redisClient != nil {
			contentLoader = redisinfra.NewQuizCatalog(redisClient, contentLoader, catalogTTL)
		}
	}

	var pgAttempts *pginfra.AttemptStore
	var memAttempts *memory.AttemptStore
	if pool != nil {
		pgAttempts = pginfra.NewAttemptStore(pool, contentLoader)
	} else {
		memAttempts = memory.NewAttemptStore(sampleQuizzes())
	}

	var results session.ResultStore
	var resultReader transport.ResultReader
	if pool != nil {
		store := pginfra.NewResultStore(pool)
		results = store
		resultReader = store
	} else {
		store := memory.NewResultStore()
		results = store
		resultReader = store
	}

	var quotaChecker session.QuotaChecker
	var quotaConsumer transport.QuotaConsumer
	if cfg.Quiz.DefaultQuota > 0 {
		if redisClient != nil {
			store := redisinfra.NewQuotaStore(redisClient, cfg.Quiz.DefaultQuota)
			quotaChecker = store
			quotaConsumer = store
		} else {
			store := memory.NewQuotaStore(cfg.Quiz.DefaultQuota)
			quotaChecker = store
			quotaConsumer = store
		}
	}

	var feedbackClient session.FeedbackGenerator
	if cfg.Feedback.URL != "" {
		feedbackClient = feedback.NewClient(cfg.Feedback.URL, config.TTLDuration(cfg.Feedback.Timeout, 10*time.Second))
	}

	var publisher *event.Publisher
	if cfg.AMQP.URL != "" {
		exchange := cfg.AMQP.Exchange
		if exchange == "" {
			exchange = "quiz.sessions"
		}
		publisher, err = event.NewPublisher(cfg.AMQP.URL, exchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
	}

	profiles := sampleProfiles()
	questions := memory.NewStaticQuestionSource(sampleBanks())

	factory := func(opts session.Options) *session.Controller {
		var attempts session.AttemptStore
		if pgAttempts != nil {
			attempts = pgAttempts.ForUser(opts.UserID)
		} else {
			attempts = memAttempts
		}
		opts.SecondsPerQuestion = cfg.Quiz.SecondsPerQuestion
		return session.NewController(session.Dependencies{
			Profiles:  profiles.For(opts.UserID),
			Questions: questions,
			Attempts:  attempts,
			Results:   results,
			Feedback:  feedbackClient,
			Quota:     quotaChecker,
		}, opts)
	}

	var completion transport.CompletionPublisher
	if publisher != nil {
		completion = publisher
	}
	wsHandler := transport.NewWSHandler(factory, quotaConsumer, completion)
	router := transport.NewRouter(wsHandler, resultReader)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleProfiles seeds demo learners; swap for a profile-service client in
// production.
func sampleProfiles() *memory.ProfileDirectory {
	profiles := memory.NewProfileDirectory()
	profiles.Put("u1", domain.Profile{Age: 10, Language: "English"})
	profiles.Put("u2", domain.Profile{Age: 12, Language: "Spanish"})
	return profiles
}

// sampleBanks provides minimal fresh-quiz content per subject.
func sampleBanks() map[string][]domain.Question {
	return map[string][]domain.Question{
		"math": {
			{
				ID:     "math-q1",
				Prompt: "What is 7 x 8?",
				Choices: []domain.Choice{
					{Label: "A", Text: "54"},
					{Label: "B", Text: "56"},
					{Label: "C", Text: "58"},
					{Label: "D", Text: "64"},
				},
				CorrectLabel: "B",
				Explanation:  "7 x 8 = 56.",
			},
			{
				ID:     "math-q2",
				Prompt: "What is 15 / 3?",
				Choices: []domain.Choice{
					{Label: "A", Text: "3"},
					{Label: "B", Text: "4"},
					{Label: "C", Text: "5"},
					{Label: "D", Text: "6"},
				},
				CorrectLabel: "C",
				Explanation:  "15 divided by 3 is 5.",
			},
		},
	}
}

// sampleQuizzes provides a scheduled quiz for the no-database setup.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:               "quiz-1",
			Subject:          "math",
			TimeLimitSeconds: 120,
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Choices: []domain.Choice{
						{Label: "A", Text: "3"},
						{Label: "B", Text: "4"},
						{Label: "C", Text: "5"},
						{Label: "D", Text: "22"},
					},
					CorrectLabel: "B",
					Explanation:  "2 + 2 = 4.",
				},
				{
					ID:     "q2",
					Prompt: "What is 9 - 4?",
					Choices: []domain.Choice{
						{Label: "A", Text: "5"},
						{Label: "B", Text: "6"},
						{Label: "C", Text: "4"},
						{Label: "D", Text: "13"},
					},
					CorrectLabel: "A",
					Explanation:  "9 - 4 = 5.",
				},
			},
		},
	}
}
