package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/upmesh/upmesh/internal/domain"
	"github.com/upmesh/upmesh/internal/repo"
)

var _ repo.WebsiteStore = (*Store)(nil)
var _ repo.ValidatorStore = (*Store)(nil)
var _ repo.TickStore = (*Store)(nil)
var _ repo.AlertStore = (*Store)(nil)

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New connects, pings, and runs pending migrations.
func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if err := Migrate(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// ---- WebsiteStore ----

func (s *Store) Add(ctx context.Context, w *domain.Website) error {
	if w.ID == "" {
		w.ID = domain.WebsiteID(uuid.NewString())
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO websites (id, url, user_id, disabled, created_at)
		 SELECT $1, $2, $3, FALSE, $4
		  WHERE NOT EXISTS (
		        SELECT 1 FROM websites WHERE url = $2 AND disabled = FALSE)`,
		string(w.ID), w.URL, w.UserID, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert website: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrDuplicateURL
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id domain.WebsiteID) (*domain.Website, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, user_id, disabled, created_at FROM websites WHERE id = $1`, string(id))
	return scanWebsite(row)
}

func (s *Store) GetActiveByURL(ctx context.Context, url string) (*domain.Website, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, url, user_id, disabled, created_at
		   FROM websites
		  WHERE url = $1 AND disabled = FALSE`, url)
	return scanWebsite(row)
}

func scanWebsite(row pgx.Row) (*domain.Website, error) {
	var w domain.Website
	err := row.Scan(&w.ID, &w.URL, &w.UserID, &w.Disabled, &w.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan website: %w", err)
	}
	return &w, nil
}

func (s *Store) ListActive(ctx context.Context) ([]domain.Website, error) {
	return s.listWebsites(ctx,
		`SELECT id, url, user_id, disabled, created_at
		   FROM websites
		  WHERE disabled = FALSE
		  ORDER BY created_at DESC, id DESC`)
}

func (s *Store) ListActiveByUser(ctx context.Context, userID string) ([]domain.Website, error) {
	return s.listWebsites(ctx,
		`SELECT id, url, user_id, disabled, created_at
		   FROM websites
		  WHERE disabled = FALSE AND user_id = $1
		  ORDER BY created_at DESC, id DESC`, userID)
}

func (s *Store) listWebsites(ctx context.Context, q string, args ...any) ([]domain.Website, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var out []domain.Website
	for rows.Next() {
		var w domain.Website
		if err := rows.Scan(&w.ID, &w.URL, &w.UserID, &w.Disabled, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) Disable(ctx context.Context, id domain.WebsiteID, userID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE websites SET disabled = TRUE WHERE id = $1 AND user_id = $2`,
		string(id), userID)
	if err != nil {
		return fmt.Errorf("disable website: %w", err)
	}
	return nil
}

// ---- ValidatorStore ----

func (s *Store) Register(ctx context.Context, v *domain.Validator) error {
	if v.ID == "" {
		v.ID = domain.ValidatorID(uuid.NewString())
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO validators (id, public_key, location, last_seen_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (public_key) DO NOTHING`,
		string(v.ID), v.PublicKey, v.Location, v.LastSeenAt, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert validator: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrDuplicateKey
	}
	return nil
}

func (s *Store) FindByPublicKey(ctx context.Context, publicKey string) (*domain.Validator, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, public_key, location, last_seen_at, created_at
		   FROM validators
		  WHERE public_key = $1`, publicKey)
	var v domain.Validator
	err := row.Scan(&v.ID, &v.PublicKey, &v.Location, &v.LastSeenAt, &v.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan validator: %w", err)
	}
	return &v, nil
}

func (s *Store) TouchLastSeen(ctx context.Context, id domain.ValidatorID, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE validators SET last_seen_at = $1 WHERE id = $2`, at, string(id))
	if err != nil {
		return fmt.Errorf("touch validator: %w", err)
	}
	return nil
}

// ---- TickStore ----

func (s *Store) Append(ctx context.Context, t *domain.Tick) error {
	if t.ID == "" {
		t.ID = domain.TickID(uuid.NewString())
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ticks (id, website_id, validator_id, status, latency_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		string(t.ID), string(t.WebsiteID), string(t.ValidatorID),
		string(t.Status), t.LatencyMS, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

func (s *Store) ListByWebsite(ctx context.Context, id domain.WebsiteID) ([]domain.Tick, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, website_id, validator_id, status, latency_ms, created_at
		   FROM ticks
		  WHERE website_id = $1`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list ticks: %w", err)
	}
	defer rows.Close()

	var out []domain.Tick
	for rows.Next() {
		var t domain.Tick
		if err := rows.Scan(&t.ID, &t.WebsiteID, &t.ValidatorID, &t.Status, &t.LatencyMS, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) EvictOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ticks WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evict ticks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ---- AlertStore ----

func (s *Store) Get(ctx context.Context, id domain.WebsiteID) (*repo.AlertRecord, error) {
	const q = `SELECT last_status, last_sent_at FROM alerts WHERE website_id = $1`
	var r repo.AlertRecord
	r.WebsiteID = id
	var lastSent *time.Time
	err := s.pool.QueryRow(ctx, q, string(id)).Scan(&r.LastStatus, &lastSent)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	r.LastSentAt = lastSent
	return &r, nil
}

func (s *Store) Set(ctx context.Context, id domain.WebsiteID, status domain.TickStatus, sentAt time.Time) error {
	const q = `
		INSERT INTO alerts (website_id, last_status, last_sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (website_id)
		DO UPDATE SET last_status = EXCLUDED.last_status, last_sent_at = EXCLUDED.last_sent_at
	`
	var ts *time.Time
	if !sentAt.IsZero() {
		ts = &sentAt
	}
	_, err := s.pool.Exec(ctx, q, string(id), string(status), ts)
	return err
}
