// Package postgres implements the state store on PostgreSQL via lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/brickvest/coinvest_layer/internal/app/storage"
)

// Store implements storage.StateStore backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.StateStore = (*Store)(nil)

// Open connects to the database and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS client_credentials (
			singleton     BOOLEAN PRIMARY KEY DEFAULT TRUE,
			access_token  TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			user_id       BIGINT NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS wallet_sessions (
			singleton  BOOLEAN PRIMARY KEY DEFAULT TRUE,
			address    TEXT NOT NULL,
			provider   TEXT NOT NULL,
			chain_id   BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS pending_commits (
			key         TEXT PRIMARY KEY,
			workflow    TEXT NOT NULL,
			property_id BIGINT NOT NULL,
			percentage  INT NOT NULL,
			amount      NUMERIC(24,0) NOT NULL,
			tx_hash     TEXT NOT NULL,
			state       TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

// --- credentials ------------------------------------------------------------

func (s *Store) SaveCredentials(ctx context.Context, creds storage.Credentials) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_credentials (singleton, access_token, refresh_token, user_id, updated_at)
		VALUES (TRUE, $1, $2, $3, $4)
		ON CONFLICT (singleton) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			user_id = EXCLUDED.user_id,
			updated_at = EXCLUDED.updated_at
	`, creds.Access, creds.Refresh, creds.UserID, time.Now().UTC())
	return err
}

func (s *Store) LoadCredentials(ctx context.Context) (storage.Credentials, error) {
	var creds storage.Credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, user_id, updated_at
		FROM client_credentials WHERE singleton
	`).Scan(&creds.Access, &creds.Refresh, &creds.UserID, &creds.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Credentials{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Credentials{}, err
	}
	return creds, nil
}

func (s *Store) ClearCredentials(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM client_credentials`)
	return err
}

// --- wallet session ---------------------------------------------------------

func (s *Store) SaveWalletSession(ctx context.Context, ws storage.WalletSession) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wallet_sessions (singleton, address, provider, chain_id, updated_at)
		VALUES (TRUE, $1, $2, $3, $4)
		ON CONFLICT (singleton) DO UPDATE SET
			address = EXCLUDED.address,
			provider = EXCLUDED.provider,
			chain_id = EXCLUDED.chain_id,
			updated_at = EXCLUDED.updated_at
	`, ws.Address, ws.Provider, ws.ChainID, time.Now().UTC())
	return err
}

func (s *Store) LoadWalletSession(ctx context.Context) (storage.WalletSession, error) {
	var ws storage.WalletSession
	err := s.db.QueryRowContext(ctx, `
		SELECT address, provider, chain_id, updated_at
		FROM wallet_sessions WHERE singleton
	`).Scan(&ws.Address, &ws.Provider, &ws.ChainID, &ws.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.WalletSession{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.WalletSession{}, err
	}
	return ws, nil
}

func (s *Store) ClearWalletSession(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM wallet_sessions`)
	return err
}

// --- pending commits --------------------------------------------------------

func (s *Store) CreatePendingCommit(ctx context.Context, pc storage.PendingCommit) (storage.PendingCommit, error) {
	now := time.Now().UTC()
	pc.CreatedAt = now
	pc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_commits (key, workflow, property_id, percentage, amount, tx_hash, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, pc.Key, string(pc.Workflow), pc.PropertyID, pc.Percentage, pc.Amount.String(), pc.TxHash, string(pc.State), pc.CreatedAt, pc.UpdatedAt)
	if err != nil {
		return storage.PendingCommit{}, err
	}
	return pc, nil
}

func (s *Store) UpdatePendingCommit(ctx context.Context, pc storage.PendingCommit) (storage.PendingCommit, error) {
	pc.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE pending_commits
		SET state = $2, tx_hash = $3, updated_at = $4
		WHERE key = $1
	`, pc.Key, string(pc.State), pc.TxHash, pc.UpdatedAt)
	if err != nil {
		return storage.PendingCommit{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.PendingCommit{}, storage.ErrNotFound
	}
	return pc, nil
}

func (s *Store) GetPendingCommit(ctx context.Context, key string) (storage.PendingCommit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, workflow, property_id, percentage, amount, tx_hash, state, created_at, updated_at
		FROM pending_commits WHERE key = $1
	`, key)
	return scanCommit(row)
}

func (s *Store) ListUnresolvedCommits(ctx context.Context) ([]storage.PendingCommit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, workflow, property_id, percentage, amount, tx_hash, state, created_at, updated_at
		FROM pending_commits
		WHERE state <> $1
		ORDER BY created_at
	`, string(storage.CommitCompleted))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []storage.PendingCommit
	for rows.Next() {
		pc, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCommit(row rowScanner) (storage.PendingCommit, error) {
	var (
		pc       storage.PendingCommit
		workflow string
		amount   string
		state    string
	)
	err := row.Scan(&pc.Key, &workflow, &pc.PropertyID, &pc.Percentage, &amount, &pc.TxHash, &state, &pc.CreatedAt, &pc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.PendingCommit{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.PendingCommit{}, err
	}
	pc.Workflow = storage.Workflow(workflow)
	pc.State = storage.CommitState(state)
	pc.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return storage.PendingCommit{}, err
	}
	return pc, nil
}
