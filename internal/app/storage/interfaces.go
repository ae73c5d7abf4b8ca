package storage

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Credentials is the persisted session state: the access/refresh token pair
// and the authenticated user id.
type Credentials struct {
	Access    string
	Refresh   string
	UserID    int64
	UpdatedAt time.Time
}

// WalletSession caches a wallet connection so it survives restarts.
type WalletSession struct {
	Address   string
	Provider  string
	ChainID   int64
	UpdatedAt time.Time
}

// Workflow identifies which two-phase workflow owns a pending commit.
type Workflow string

const (
	WorkflowFunding     Workflow = "funding"
	WorkflowRentPayment Workflow = "rent_payment"
)

// CommitState tracks a pending commit marker through its lifecycle.
type CommitState string

const (
	// CommitAwaitingBackend means the chain write confirmed but the backend
	// registration has not succeeded yet.
	CommitAwaitingBackend CommitState = "awaiting_backend"
	CommitCompleted       CommitState = "completed"
)

// PendingCommit is the durable marker persisted between the chain write and
// the backend registration of a two-phase workflow. Key doubles as the
// idempotency key sent to the backend, so a retry resumes rather than
// double-counts.
type PendingCommit struct {
	Key        string
	Workflow   Workflow
	PropertyID int64
	Percentage int
	Amount     decimal.Decimal
	TxHash     string
	State      CommitState
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StateStore persists the client-local mutable state: credentials, the
// cached wallet session and pending commit markers.
type StateStore interface {
	SaveCredentials(ctx context.Context, creds Credentials) error
	LoadCredentials(ctx context.Context) (Credentials, error)
	ClearCredentials(ctx context.Context) error

	SaveWalletSession(ctx context.Context, ws WalletSession) error
	LoadWalletSession(ctx context.Context) (WalletSession, error)
	ClearWalletSession(ctx context.Context) error

	CreatePendingCommit(ctx context.Context, pc PendingCommit) (PendingCommit, error)
	UpdatePendingCommit(ctx context.Context, pc PendingCommit) (PendingCommit, error)
	GetPendingCommit(ctx context.Context, key string) (PendingCommit, error)
	ListUnresolvedCommits(ctx context.Context) ([]PendingCommit, error)
}
