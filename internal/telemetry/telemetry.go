// Package telemetry records per-request API activity in PostgreSQL. Writes
// happen off the request path and are best effort: a failed insert is logged
// and dropped, never surfaced to the caller.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded API call.
type Entry struct {
	ID        string
	RouteName string
	HostInfo  string
	Input     string
	Output    string
	CreatedAt time.Time
}

// Logger persists API log entries. The zero value and a nil *Logger are both
// no-ops, so callers never have to branch on whether telemetry is configured.
type Logger struct {
	pool *pgxpool.Pool
	wg   sync.WaitGroup
}

// NewLogger connects to PostgreSQL and ensures the api_logs table exists.
// An empty databaseURL disables persistence.
func NewLogger(ctx context.Context, databaseURL string) (*Logger, error) {
	if databaseURL == "" {
		log.Printf("telemetry: DATABASE_URL not set, api logging disabled")
		return &Logger{}, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Logger{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS api_logs (
			id UUID PRIMARY KEY,
			route_name TEXT NOT NULL,
			host_info TEXT NOT NULL DEFAULT '',
			input_text TEXT NOT NULL DEFAULT '',
			output_text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_api_logs_route_created ON api_logs (route_name, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Record queues an api_logs insert and returns immediately. The write runs
// in its own goroutine with a short deadline so a slow database cannot back
// up request handling.
func (l *Logger) Record(route, host, input, output string) {
	if l == nil || l.pool == nil {
		return
	}

	entry := Entry{
		ID:        uuid.NewString(),
		RouteName: route,
		HostInfo:  host,
		Input:     input,
		Output:    output,
		CreatedAt: time.Now().UTC(),
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := l.pool.Exec(ctx,
			`INSERT INTO api_logs (id, route_name, host_info, input_text, output_text, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID,
			entry.RouteName,
			entry.HostInfo,
			entry.Input,
			entry.Output,
			entry.CreatedAt,
		)
		if err != nil {
			log.Printf("telemetry: recording %s call: %v", entry.RouteName, err)
		}
	}()
}

// Close waits for in-flight writes and releases the pool.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.wg.Wait()
	if l.pool != nil {
		l.pool.Close()
	}
}
