package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Daniel-W1/vending-machine/internal/core/domain"
)

// ErrAlreadyInvalid is returned by Blacklist for a token that is expired,
// malformed or already blacklisted.
var ErrAlreadyInvalid = errors.New("token is already invalid")

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims is the JWT body shared by access and refresh tokens.
// SessionID is the JTI of the refresh token an access token was minted from;
// for a refresh token it equals its own JTI.
type Claims struct {
	AccountID string    `json:"user_id"`
	Type      TokenType `json:"token_type"`
	SessionID string    `json:"sid"`
	jwt.RegisteredClaims
}

// TokenPair is returned on sign-in.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Blacklist remembers revoked session ids until they would expire anyway.
type Blacklist interface {
	// Add stores id for ttl. It reports false if id was already present.
	Add(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Contains(ctx context.Context, id string) (bool, error)
}

// TokenIssuer signs, verifies and blacklists HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	blacklist  Blacklist
	now        func() time.Time
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration, blacklist Blacklist) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		blacklist:  blacklist,
		now:        time.Now,
	}
}

// RefreshTTL is the lifetime of refresh tokens.
func (i *TokenIssuer) RefreshTTL() time.Duration {
	return i.refreshTTL
}

// Issue mints a new session: a refresh token and an access token bound to it.
func (i *TokenIssuer) Issue(ctx context.Context, accountID uuid.UUID) (*TokenPair, error) {
	sid := uuid.NewString()

	refresh, err := i.sign(accountID.String(), RefreshToken, sid, sid, i.refreshTTL)
	if err != nil {
		return nil, err
	}
	access, err := i.sign(accountID.String(), AccessToken, uuid.NewString(), sid, i.accessTTL)
	if err != nil {
		return nil, err
	}

	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh mints a new access token from a live refresh token.
func (i *TokenIssuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := i.Verify(ctx, refreshToken, RefreshToken)
	if err != nil {
		return "", err
	}
	return i.sign(claims.AccountID, AccessToken, uuid.NewString(), claims.SessionID, i.accessTTL)
}

// Verify checks signature, expiry, type and blacklist status of a token.
func (i *TokenIssuer) Verify(ctx context.Context, token string, want TokenType) (*Claims, error) {
	claims, err := i.parse(token, want)
	if err != nil {
		return nil, domain.ErrTokenInvalid.Wrap(err)
	}

	revoked, err := i.blacklist.Contains(ctx, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to check blacklist: %w", err)
	}
	if revoked {
		return nil, domain.ErrTokenInvalid
	}
	return claims, nil
}

// Blacklist revokes the session of a refresh token. Every access token
// minted from it stops verifying as well.
func (i *TokenIssuer) Blacklist(ctx context.Context, refreshToken string) error {
	claims, err := i.parse(refreshToken, RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAlreadyInvalid, err)
	}

	ttl := claims.ExpiresAt.Time.Sub(i.now())
	if ttl <= 0 {
		return ErrAlreadyInvalid
	}

	added, err := i.blacklist.Add(ctx, claims.SessionID, ttl)
	if err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	if !added {
		return ErrAlreadyInvalid
	}
	return nil
}

// Owner returns the account a refresh token was issued to. The signature and
// token type are checked but expiry and blacklist status are not, so a dead
// token still names its owner.
func (i *TokenIssuer) Owner(refreshToken string) (uuid.UUID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err == nil {
		err = checkClaims(claims, RefreshToken)
	}
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid.Wrap(err)
	}

	id, err := uuid.Parse(claims.AccountID)
	if err != nil {
		return uuid.Nil, domain.ErrTokenInvalid.Wrap(err)
	}
	return id, nil
}

func (i *TokenIssuer) sign(accountID string, typ TokenType, jti, sid string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &Claims{
		AccountID: accountID,
		Type:      typ,
		SessionID: sid,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (i *TokenIssuer) parse(token string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, err
	}
	if err := checkClaims(claims, want); err != nil {
		return nil, err
	}
	return claims, nil
}

func checkClaims(claims *Claims, want TokenType) error {
	if claims.Type != want {
		return fmt.Errorf("expected %s token, got %q", want, claims.Type)
	}
	if claims.SessionID == "" {
		return errors.New("token has no session id")
	}
	return nil
}
