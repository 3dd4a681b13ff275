package intent

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-intent-secret"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestCodec(t *testing.T, now time.Time) *Codec {
	t.Helper()
	c, err := NewCodec(CodecConfig{Secret: testSecret, Now: fixedClock(now)})
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		payload Payload
		wantErr bool
	}{
		{name: "add cart", kind: KindAddCart, payload: Payload{ItemID: "B", Size: "M"}},
		{name: "add wishlist", kind: KindAddWishlist, payload: Payload{ItemID: "B"}},
		{name: "checkout", kind: KindCheckout, payload: Payload{CartID: "c1", PaymentMethod: "card"}},
		{name: "add cart without item", kind: KindAddCart, wantErr: true},
		{name: "checkout without payment method", kind: KindCheckout, payload: Payload{CartID: "c1"}, wantErr: true},
		{name: "unknown kind", kind: "REMOVE_CART", payload: Payload{ItemID: "B"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(tt.kind, tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, a.ID)
			assert.False(t, a.CreatedAt.IsZero())
		})
	}
}

func TestNewCodec(t *testing.T) {
	_, err := NewCodec(CodecConfig{Secret: "short"})
	assert.Error(t, err)

	c, err := NewCodec(CodecConfig{Secret: testSecret})
	require.NoError(t, err)
	assert.Equal(t, DefaultTTL, c.TTL())
	assert.Equal(t, DefaultIssuer, c.issuer)
	assert.Len(t, c.key, keyLen)
}

func TestCodecRoundTrip(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)

	a := &PendingAction{
		ID:        "act-1",
		Kind:      KindAddCart,
		Payload:   Payload{ItemID: "B", Size: "L"},
		CreatedAt: now,
	}

	token, err := c.Encode(a)
	require.NoError(t, err)
	assert.NotContains(t, token, "=", "token must be URL safe")
	assert.Len(t, strings.Split(token, "."), 3)

	got, err := c.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, a.Kind, got.Kind)
	assert.Equal(t, a.Payload, got.Payload)
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt), "created %v, got %v", a.CreatedAt, got.CreatedAt)
}

func TestCodecExpiry(t *testing.T) {
	created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	a := &PendingAction{ID: "act-2", Kind: KindAddWishlist, Payload: Payload{ItemID: "A"}, CreatedAt: created}

	token, err := newTestCodec(t, created).Encode(a)
	require.NoError(t, err)

	t.Run("within ttl", func(t *testing.T) {
		_, err := newTestCodec(t, created.Add(DefaultTTL-time.Minute)).Decode(token)
		assert.NoError(t, err)
	})

	t.Run("after ttl", func(t *testing.T) {
		_, err := newTestCodec(t, created.Add(DefaultTTL+time.Minute)).Decode(token)
		assert.ErrorIs(t, err, ErrExpired)
	})
}

func TestCodecRejects(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c := newTestCodec(t, now)
	a := &PendingAction{ID: "act-3", Kind: KindCheckout, Payload: Payload{PaymentMethod: "card"}, CreatedAt: now}
	token, err := c.Encode(a)
	require.NoError(t, err)

	t.Run("empty token", func(t *testing.T) {
		_, err := c.Decode("")
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("plain base64 json", func(t *testing.T) {
		raw := base64.StdEncoding.EncodeToString([]byte(`{"type":"ADD_CART","payload":{"itemId":"B"}}`))
		_, err := c.Decode(raw)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("different secret", func(t *testing.T) {
		other, err := NewCodec(CodecConfig{Secret: "another-secret-of-enough-length", Now: fixedClock(now)})
		require.NoError(t, err)
		_, err = other.Decode(token)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("different issuer", func(t *testing.T) {
		other, err := NewCodec(CodecConfig{Secret: testSecret, Issuer: "elsewhere", Now: fixedClock(now)})
		require.NoError(t, err)
		_, err = other.Decode(token)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		parts := strings.Split(token, ".")
		parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"kind":"CHECKOUT","payload":{"paymentMethod":"free"},"iss":"storefront","exp":9999999999}`))
		_, err := c.Decode(strings.Join(parts, "."))
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("invalid action", func(t *testing.T) {
		_, err := c.Encode(&PendingAction{Kind: KindAddCart})
		assert.ErrorIs(t, err, ErrInvalid)
		_, err = c.Encode(nil)
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestCodecConsume(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	clock := now
	c, err := NewCodec(CodecConfig{Secret: testSecret, Now: func() time.Time { return clock }})
	require.NoError(t, err)

	token, err := c.Encode(&PendingAction{ID: "act-3", Kind: KindAddCart, Payload: Payload{ItemID: "B"}, CreatedAt: now})
	require.NoError(t, err)

	a, err := c.Decode(token)
	require.NoError(t, err)
	assert.True(t, now.Add(DefaultTTL).Equal(a.ExpiresAt))

	require.NoError(t, c.Consume(a))
	assert.ErrorIs(t, c.Consume(a), ErrConsumed)

	other, err := New(KindAddCart, Payload{ItemID: "C"})
	require.NoError(t, err)
	other.CreatedAt = now
	require.NoError(t, c.Consume(other))
	assert.Equal(t, 2, c.ledger.len())

	clock = now.Add(DefaultTTL + time.Minute)
	_, err = c.Decode(token)
	assert.ErrorIs(t, err, ErrExpired, "an expired token never reaches the ledger")

	late, err := New(KindAddCart, Payload{ItemID: "D"})
	require.NoError(t, err)
	late.CreatedAt = clock
	require.NoError(t, c.Consume(late))
	assert.Equal(t, 1, c.ledger.len(), "expired ids are forgotten")

	assert.ErrorIs(t, c.Consume(&PendingAction{}), ErrInvalid)
}
