package intent

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	// DefaultTTL bounds how long a pending action survives the redirect.
	DefaultTTL = 15 * time.Minute

	// DefaultIssuer is stamped into tokens when none is configured.
	DefaultIssuer = "storefront"

	minSecretLen = 16
	keyLen       = 32
	keyInfo      = "storefront pending action v1"
)

// CodecConfig configures a Codec.
type CodecConfig struct {
	// Secret is the shared secret the signing key is derived from.
	Secret string

	// Issuer is written to and required from the iss claim.
	Issuer string

	// TTL is the lifetime of an encoded action. Defaults to DefaultTTL.
	TTL time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Codec turns pending actions into URL-safe signed tokens and back. The token
// is the only copy of the action; nothing is stored server-side.
type Codec struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
	ledger *ledger
}

// claims is the JWT body of an encoded pending action.
type claims struct {
	Kind    Kind    `json:"kind"`
	Payload Payload `json:"payload"`
	jwt.RegisteredClaims
}

// NewCodec creates a codec, deriving an HMAC key from cfg.Secret.
func NewCodec(cfg CodecConfig) (*Codec, error) {
	if len(cfg.Secret) < minSecretLen {
		return nil, fmt.Errorf("intent secret must be at least %d characters", minSecretLen)
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(cfg.Secret), nil, []byte(keyInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving intent key: %w", err)
	}

	c := &Codec{
		key:    key,
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		now:    cfg.Now,
	}
	if c.issuer == "" {
		c.issuer = DefaultIssuer
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	c.ledger = newLedger(c.now)
	return c, nil
}

// TTL returns the configured token lifetime.
func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Encode signs the action. The expiry is counted from the action's CreatedAt.
func (c *Codec) Encode(a *PendingAction) (string, error) {
	if a == nil {
		return "", fmt.Errorf("%w: nil action", ErrInvalid)
	}
	if err := a.Validate(); err != nil {
		return "", err
	}

	created := a.CreatedAt
	if created.IsZero() {
		created = c.now()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Kind:    a.Kind,
		Payload: a.Payload,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        a.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(created),
			ExpiresAt: jwt.NewNumericDate(created.Add(c.ttl)),
		},
	})

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("signing pending action: %w", err)
	}
	return signed, nil
}

// Decode verifies and decodes a token produced by Encode.
func (c *Codec) Decode(token string) (*PendingAction, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalid)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)

	var cl claims
	if _, err := parser.ParseWithClaims(token, &cl, func(*jwt.Token) (any, error) {
		return c.key, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	a := &PendingAction{
		ID:      cl.ID,
		Kind:    cl.Kind,
		Payload: cl.Payload,
	}
	if cl.IssuedAt != nil {
		a.CreatedAt = cl.IssuedAt.UTC()
	}
	if cl.ExpiresAt != nil {
		a.ExpiresAt = cl.ExpiresAt.UTC()
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Consume marks a decoded action as used. A second Consume of the same action
// id before its token expires returns ErrConsumed.
func (c *Codec) Consume(a *PendingAction) error {
	if a == nil || a.ID == "" {
		return fmt.Errorf("%w: action has no id", ErrInvalid)
	}
	until := a.ExpiresAt
	if until.IsZero() {
		until = a.CreatedAt.Add(c.ttl)
	}
	return c.ledger.consume(a.ID, until)
}
