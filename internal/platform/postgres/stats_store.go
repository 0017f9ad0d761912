package postgres

import (
	"context"

	"github.com/nextudy/nextudy-api/internal/domain"
	"github.com/nextudy/nextudy-api/internal/store"
)

// PostgresStatsStore implements store.StatsStore.
type PostgresStatsStore struct {
	db store.DBTX
}

// NewPostgresStatsStore creates a stats store.
func NewPostgresStatsStore(db store.DBTX) *PostgresStatsStore {
	return &PostgresStatsStore{db: db}
}

var _ store.StatsStore = (*PostgresStatsStore)(nil)

// PlatformStats implements store.StatsStore.
func (s *PostgresStatsStore) PlatformStats(ctx context.Context) (*store.PlatformStats, error) {
	stats := &store.PlatformStats{
		UsersByStatus: map[domain.UserStatus]int{},
		TasksByStatus: map[domain.TaskStatus]int{},
	}

	if err := s.groupCount(ctx, `SELECT status, COUNT(*) FROM users GROUP BY status`,
		func(k string, n int) { stats.UsersByStatus[domain.UserStatus(k)] = n }); err != nil {
		return nil, err
	}
	if err := s.groupCount(ctx, `SELECT status, COUNT(*) FROM generation_tasks GROUP BY status`,
		func(k string, n int) { stats.TasksByStatus[domain.TaskStatus(k)] = n }); err != nil {
		return nil, err
	}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM summaries),
			(SELECT COUNT(*) FROM flashcard_sets),
			(SELECT COUNT(*) FROM quizzes),
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM subscriptions WHERE status IN ('active', 'trialing'))`).
		Scan(&stats.Summaries, &stats.FlashcardSets, &stats.Quizzes, &stats.Documents, &stats.ActiveSubs)
	if err != nil {
		return nil, MapError(err)
	}
	return stats, nil
}

func (s *PostgresStatsStore) groupCount(ctx context.Context, query string, set func(string, int)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return MapError(err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var k string
		var n int
		if err := rows.Scan(&k, &n); err != nil {
			return MapError(err)
		}
		set(k, n)
	}
	return rows.Err()
}
