package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// ResultStore persists completed session results in Postgres.
type ResultStore struct {
	pool *pgxpool.Pool
}

func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

func (s *ResultStore) PersistResult(ctx context.Context, record domain.ResultRecord) error {
	detail, err := json.Marshal(record.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (id, user_id, subject, subtopics, correct_count, wrong_count, score_percentage, time_taken_seconds, mistake_summary, detail, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		record.ID, record.UserID, record.Subject, record.Subtopics,
		record.CorrectCount, record.WrongCount, record.ScorePercentage,
		record.TimeTakenSeconds, record.MistakeSummary, detail, record.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("persist result: %w", err)
	}
	return nil
}

// ResultsFor lists a learner's persisted results, newest first.
func (s *ResultStore) ResultsFor(ctx context.Context, userID string) ([]domain.ResultRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, subject, subtopics, correct_count, wrong_count, score_percentage, time_taken_seconds, mistake_summary, detail, completed_at
		 FROM results WHERE user_id=$1 ORDER BY completed_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var out []domain.ResultRecord
	for rows.Next() {
		record := domain.ResultRecord{UserID: userID, Saved: true}
		var detail []byte
		if err := rows.Scan(
			&record.ID, &record.Subject, &record.Subtopics,
			&record.CorrectCount, &record.WrongCount, &record.ScorePercentage,
			&record.TimeTakenSeconds, &record.MistakeSummary, &detail, &record.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &record.Answers)
		}
		out = append(out, record)
	}
	return out, rows.Err()
}
