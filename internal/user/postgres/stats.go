package user

import (
	"context"

	"github.com/jmoiron/sqlx"

	domain "github.com/studymatch/backend/internal/user"
)

// StatsRepository reads dashboard aggregates with one raw query. It runs
// over sqlx instead of gorm because there is no record type to map.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

const statsQuery = `
SELECT
    (SELECT COUNT(*) FROM users)                                            AS total_users,
    (SELECT COUNT(*) FROM users WHERE status = 'active')                    AS active_users,
    (SELECT COUNT(*) FROM users WHERE status = 'pending')                   AS pending_users,
    (SELECT COUNT(*) FROM permission_requests WHERE status = 'pending')     AS pending_requests,
    (SELECT COUNT(*) FROM permission_requests)                              AS total_requests
`

func (r *StatsRepository) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	if err := r.db.GetContext(ctx, &stats, statsQuery); err != nil {
		return nil, err
	}
	return &stats, nil
}
