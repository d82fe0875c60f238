// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package notify keeps fallback notifications: launches that failed and can
// be retried by an operator.
package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
)

// ErrNotFound is returned for unknown or already dismissed notifications.
var ErrNotFound = errors.New("notification not found")

// Kind is the surface a notification offers to launch.
type Kind string

const (
	KindStream Kind = "stream"
	KindRemote Kind = "remote"
)

// Notification offers a manual launch of a surface that failed to start.
type Notification struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"kind"`
	PrimaryURL  string     `json:"primary_url,omitempty"`
	FallbackURL string     `json:"fallback_url,omitempty"`
	Requester   string     `json:"requester,omitempty"`
	Debug       bool       `json:"debug"`
	Reason      string     `json:"reason,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	LaunchedAt  *time.Time `json:"launched_at,omitempty"`
	Dismissed   bool       `json:"dismissed"`
}

// Store persists notifications in SQLite.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger zerolog.Logger
}

// Open opens (and creates) the notification database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create notification dir: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	s := &Store{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		logger: log.WithComponent("notify"),
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK(kind IN ('stream', 'remote')),
		primary_url TEXT NOT NULL DEFAULT '',
		fallback_url TEXT NOT NULL DEFAULT '',
		requester TEXT NOT NULL DEFAULT '',
		debug INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		launched_at TEXT,
		dismissed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(dismissed, launched_at, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Post stores n with a fresh id and creation time and returns the stored copy.
func (s *Store) Post(ctx context.Context, n Notification) (Notification, error) {
	n.ID = uuid.NewString()
	n.CreatedAt = s.now()
	n.LaunchedAt = nil
	n.Dismissed = false

	query := `
	INSERT INTO notifications (id, kind, primary_url, fallback_url, requester, debug, reason, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query,
		n.ID, string(n.Kind), n.PrimaryURL, n.FallbackURL, n.Requester, n.Debug, n.Reason,
		n.CreatedAt.Format(time.RFC3339Nano),
	); err != nil {
		return Notification{}, fmt.Errorf("insert notification: %w", err)
	}

	metrics.RecordNotification("posted")
	s.logger.Warn().
		Str(log.FieldEvent, "notification.posted").
		Str(log.FieldNotification, n.ID).
		Str("kind", string(n.Kind)).
		Str("reason", n.Reason).
		Msg("surface launch failed, manual launch offered")
	return n, nil
}

// List returns pending notifications (not launched, not dismissed), newest first.
func (s *Store) List(ctx context.Context) ([]Notification, error) {
	query := `
	SELECT id, kind, primary_url, fallback_url, requester, debug, reason, created_at, launched_at, dismissed
	FROM notifications
	WHERE dismissed = 0 AND launched_at IS NULL
	ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Get returns one notification, including launched ones. Dismissed
// notifications are reported as ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (Notification, error) {
	query := `
	SELECT id, kind, primary_url, fallback_url, requester, debug, reason, created_at, launched_at, dismissed
	FROM notifications
	WHERE id = ? AND dismissed = 0
	`
	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Notification{}, ErrNotFound
	}
	return n, err
}

// MarkLaunched records a manual launch.
func (s *Store) MarkLaunched(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET launched_at = ? WHERE id = ? AND dismissed = 0`,
		s.now().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("mark launched: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	metrics.RecordNotification("launched")
	return nil
}

// Dismiss hides a notification from List.
func (s *Store) Dismiss(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET dismissed = 1 WHERE id = ? AND dismissed = 0`, id)
	if err != nil {
		return fmt.Errorf("dismiss: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	metrics.RecordNotification("dismissed")
	s.logger.Info().
		Str(log.FieldEvent, "notification.dismissed").
		Str(log.FieldNotification, id).
		Msg("notification dismissed")
	return nil
}

// Check verifies the database is reachable and structurally sound.
func (s *Store) Check(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping notification store: %w", err)
	}
	return quickCheck(ctx, s.db)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (Notification, error) {
	var (
		n         Notification
		kind      string
		createdAt string
		launched  sql.NullString
	)
	if err := row.Scan(&n.ID, &kind, &n.PrimaryURL, &n.FallbackURL, &n.Requester,
		&n.Debug, &n.Reason, &createdAt, &launched, &n.Dismissed); err != nil {
		return Notification{}, err
	}
	n.Kind = Kind(kind)

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Notification{}, fmt.Errorf("parse created_at: %w", err)
	}
	n.CreatedAt = t

	if launched.Valid {
		lt, err := time.Parse(time.RFC3339Nano, launched.String)
		if err != nil {
			return Notification{}, fmt.Errorf("parse launched_at: %w", err)
		}
		n.LaunchedAt = &lt
	}
	return n, nil
}
