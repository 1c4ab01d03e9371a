package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"swick/internal/database"
)

// ErrNoToken means no usable credential is stored
var ErrNoToken = errors.New("no session token")

// CredentialStore persists the session token
type CredentialStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the token for the life of the process
type MemoryStore struct {
	mu    sync.Mutex
	token string
}

func NewMemoryStore(token string) *MemoryStore {
	return &MemoryStore{token: token}
}

func (m *MemoryStore) Get(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return "", ErrNoToken
	}
	return m.token, nil
}

func (m *MemoryStore) Set(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	return nil
}

// PostgresStore keeps one token per profile in the credentials table
type PostgresStore struct {
	db      *database.DB
	profile string
}

func NewPostgresStore(db *database.DB, profile string) *PostgresStore {
	return &PostgresStore{db: db, profile: profile}
}

func (p *PostgresStore) Get(ctx context.Context) (string, error) {
	var token string
	err := p.db.QueryRow(ctx, database.GetCredentialSQL, p.profile).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential: %w", err)
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func (p *PostgresStore) Set(ctx context.Context, token string) error {
	if _, err := p.db.Exec(ctx, database.UpsertCredentialSQL, p.profile, token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

func (p *PostgresStore) Clear(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, database.DeleteCredentialSQL, p.profile); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}
