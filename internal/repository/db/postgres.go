package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

func NewPostgresDB(conn string) (*sql.DB, error) {
	slog.Info("connecting db", "host", redactedHost(conn))
	db, err := sql.Open("postgres", conn)
	if err != nil {
		return nil, fmt.Errorf("db.NewPostgresDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("db.NewPostgresDB: %w", err)
	}

	return db, nil
}

// redactedHost keeps credentials out of the log.
func redactedHost(conn string) string {
	u, err := url.Parse(conn)
	if err != nil {
		return "?"
	}
	return u.Host
}
