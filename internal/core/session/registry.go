// Package session tracks the live sessions of each account so they can be
// counted and revoked one by one or all at once.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/core/domain"
	"github.com/Daniel-W1/vending-machine/internal/core/security"
)

// ListStore is a TTL key-value store whose values are ordered string lists.
// Append and Remove must be atomic on the server side.
type ListStore interface {
	// Append pushes value to the end of the list at key and sets the key's TTL.
	Append(ctx context.Context, key, value string, ttl time.Duration) error
	// Remove deletes every occurrence of value and reports how many were removed.
	Remove(ctx context.Context, key, value string) (int64, error)
	// Members returns the list at key, or nil if absent.
	Members(ctx context.Context, key string) ([]string, error)
	// Len returns the list length, 0 if absent. It does not touch the TTL.
	Len(ctx context.Context, key string) (int64, error)
	Delete(ctx context.Context, key string) error
}

// TokenIssuer creates and blacklists session tokens.
type TokenIssuer interface {
	Issue(ctx context.Context, accountID uuid.UUID) (*security.TokenPair, error)
	Blacklist(ctx context.Context, refreshToken string) error
	// Owner names the account a refresh token belongs to, even once expired.
	Owner(refreshToken string) (uuid.UUID, error)
	RefreshTTL() time.Duration
}

// RevokeReport summarises a bulk revocation.
type RevokeReport struct {
	Revoked int `json:"revoked"`
	Failed  int `json:"failed"`
}

type Registry struct {
	store  ListStore
	issuer TokenIssuer
}

func NewRegistry(store ListStore, issuer TokenIssuer) *Registry {
	return &Registry{store: store, issuer: issuer}
}

// Key is the store key holding an account's session list.
func Key(accountID uuid.UUID) string {
	return "active_sessions:" + accountID.String()
}

// Issue starts a new session for the account and records its refresh token.
func (r *Registry) Issue(ctx context.Context, accountID uuid.UUID) (*security.TokenPair, error) {
	if accountID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}

	pair, err := r.issuer.Issue(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if err := r.store.Append(ctx, Key(accountID), pair.Refresh, r.issuer.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("failed to record session: %w", err)
	}

	slog.Info("🔑 Session issued", "account_id", accountID, "token", security.Fingerprint(pair.Refresh))
	return pair, nil
}

// RevokeOne ends a single session of the account. Ownership comes from the
// token itself, not from the session list, so a token that never made it
// into the list (or whose list was dropped concurrently) is still
// blacklisted. Tokens of other accounts and unparseable tokens are ignored,
// and repeating the call is harmless.
func (r *Registry) RevokeOne(ctx context.Context, accountID uuid.UUID, refreshToken string) error {
	if accountID == uuid.Nil {
		return domain.ErrUnauthorized
	}

	owner, err := r.issuer.Owner(refreshToken)
	if err != nil || owner != accountID {
		slog.Debug("Ignoring revocation of foreign or malformed token", "account_id", accountID, "token", security.Fingerprint(refreshToken))
		return nil
	}

	// Blacklist first: a crash between the two steps leaves a dead token in
	// the list, never a live token outside it.
	if err := r.issuer.Blacklist(ctx, refreshToken); err != nil && !errors.Is(err, security.ErrAlreadyInvalid) {
		return err
	}

	if _, err := r.store.Remove(ctx, Key(accountID), refreshToken); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	slog.Info("Session revoked", "account_id", accountID, "token", security.Fingerprint(refreshToken))
	return nil
}

// RevokeAll blacklists every recorded session of the account, then drops the
// list. Tokens that fail to blacklist are counted, not returned as errors.
func (r *Registry) RevokeAll(ctx context.Context, accountID uuid.UUID) (*RevokeReport, error) {
	if accountID == uuid.Nil {
		return nil, domain.ErrUnauthorized
	}
	key := Key(accountID)

	members, err := r.store.Members(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}

	report := &RevokeReport{}
	for _, token := range members {
		if err := r.issuer.Blacklist(ctx, token); err != nil {
			report.Failed++
			if !errors.Is(err, security.ErrAlreadyInvalid) {
				slog.Warn("Failed to blacklist session", "account_id", accountID, "token", security.Fingerprint(token), "error", err)
			}
			continue
		}
		report.Revoked++
	}

	if err := r.store.Delete(ctx, key); err != nil {
		return report, fmt.Errorf("failed to drop sessions: %w", err)
	}

	slog.Info("All sessions revoked", "account_id", accountID, "revoked", report.Revoked, "failed", report.Failed)
	return report, nil
}

// Count returns the number of recorded sessions of the account.
func (r *Registry) Count(ctx context.Context, accountID uuid.UUID) (int, error) {
	if accountID == uuid.Nil {
		return 0, domain.ErrUnauthorized
	}
	n, err := r.store.Len(ctx, Key(accountID))
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return int(n), nil
}
