// Package db provides a pgxpool-based connection pool with prepared statement
// registration, schema migrations, and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enesbilik/cleny/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool, running pending schema
// migrations first.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if err := Migrate(cfg.DatabaseURL); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers all statements the API and campaign
// layers use. Prepared statements eliminate parse overhead on every request.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Task selection
		"daily_task_by_user_date": `
			SELECT id, user_id, date::text, task_catalog_id, room_id, status,
			       completed_at, completion_method, duration_seconds
			FROM daily_tasks WHERE user_id = $1 AND date = $2::date`,
		"rooms_by_user": `
			SELECT id, user_id, name, sort_order FROM rooms
			WHERE user_id = $1 ORDER BY sort_order ASC, name ASC`,
		"catalog_all": `
			SELECT id, title, description, room_scope, duration_minutes, icon
			FROM tasks_catalog`,
		"latest_assignment": `
			SELECT id, user_id, date::text, task_catalog_id, room_id, status,
			       completed_at, completion_method, duration_seconds
			FROM daily_tasks WHERE user_id = $1
			ORDER BY date DESC LIMIT 1`,

		// Task surfaces
		"daily_task_detail_by_id": `
			SELECT dt.id, dt.user_id, dt.date::text, dt.task_catalog_id,
			       dt.room_id, dt.status, dt.completed_at,
			       dt.completion_method, dt.duration_seconds,
			       tc.id, tc.title, tc.description, tc.room_scope,
			       tc.duration_minutes, tc.icon,
			       r.id, r.user_id, r.name, r.sort_order
			FROM daily_tasks dt
			JOIN tasks_catalog tc ON tc.id = dt.task_catalog_id
			LEFT JOIN rooms r ON r.id = dt.room_id
			WHERE dt.id = $1`,
		"task_history": `
			SELECT id, user_id, date::text, task_catalog_id, room_id, status,
			       completed_at, completion_method, duration_seconds
			FROM daily_tasks WHERE user_id = $1 AND date >= $2::date
			ORDER BY date DESC`,
		"completed_dates": `
			SELECT date::text FROM daily_tasks
			WHERE user_id = $1 AND status = 'completed'
			ORDER BY date DESC`,

		// Campaign segmentation
		"enabled_user_ids": `
			SELECT user_id FROM user_profiles WHERE notifications_enabled = true`,
		"users_with_task_on": `
			SELECT DISTINCT user_id FROM daily_tasks WHERE date = $1::date`,
		"users_completed_on": `
			SELECT DISTINCT user_id FROM daily_tasks
			WHERE date = $1::date AND status = 'completed'`,
		"users_with_task_between": `
			SELECT DISTINCT user_id FROM daily_tasks
			WHERE date BETWEEN $1::date AND $2::date`,
		"completion_counts_between": `
			SELECT user_id, count(*) FROM daily_tasks
			WHERE status = 'completed' AND date BETWEEN $1::date AND $2::date
			GROUP BY user_id`,
		"completed_dates_since": `
			SELECT user_id, date::text FROM daily_tasks
			WHERE status = 'completed' AND date >= $2::date
			  AND user_id = ANY($1::uuid[])
			ORDER BY user_id, date`,
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}
