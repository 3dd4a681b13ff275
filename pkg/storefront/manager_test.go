package storefront

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/txn2/storefront/internal/testutil/fakebackend"
	"github.com/txn2/storefront/pkg/cart"
	"github.com/txn2/storefront/pkg/visitor"
)

const managerTestTTL = time.Hour

func newManager(t *testing.T, fb *fakebackend.Server, store visitor.Store, idle time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(ManagerConfig{
		NewBackend: func() (Backend, error) {
			return newClient(t, fb), nil
		},
		Shopper:     testShopperConfig(t),
		Visitors:    store,
		VisitorTTL:  managerTestTTL,
		IdleTimeout: idle,
	})
	require.NoError(t, err)
	return m
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(ManagerConfig{Visitors: visitor.NewMemoryStore(managerTestTTL)})
	assert.Error(t, err)

	_, err = NewManager(ManagerConfig{NewBackend: func() (Backend, error) { return nil, nil }})
	assert.Error(t, err)
}

func TestManagerOpen(t *testing.T) {
	fb := fakebackend.New(t)
	store := visitor.NewMemoryStore(managerTestTTL)
	m := newManager(t, fb, store, time.Minute)
	ctx := context.Background()

	first, err := m.Open(ctx, "")
	require.NoError(t, err)
	_, err = uuid.Parse(first.ID())
	require.NoError(t, err, "new visitors get a uuid")

	again, err := m.Open(ctx, first.ID())
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, store.Len())
}

func TestManagerOpenUnknownIDs(t *testing.T) {
	fb := fakebackend.New(t)
	m := newManager(t, fb, visitor.NewMemoryStore(managerTestTTL), time.Minute)
	ctx := context.Background()

	tests := []struct {
		name string
		id   string
	}{
		{name: "malformed", id: "not-a-uuid"},
		{name: "unknown", id: uuid.NewString()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh, err := m.Open(ctx, tt.id)
			require.NoError(t, err)
			assert.NotEqual(t, tt.id, sh.ID())
		})
	}
}

func TestManagerRestoresGuestCart(t *testing.T) {
	fb := fakebackend.New(t)
	store := visitor.NewMemoryStore(managerTestTTL)
	m := newManager(t, fb, store, time.Nanosecond)
	ctx := context.Background()

	sh, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.NoError(t, sh.AddToCart(ctx, "A", "M"))
	require.NoError(t, m.Save(ctx, sh))

	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, m.Evict(ctx))
	assert.Zero(t, m.Len())

	restored, err := m.Open(ctx, sh.ID())
	require.NoError(t, err)
	assert.NotSame(t, sh, restored)
	assert.Equal(t, []cart.Line{{ItemID: "A", Quantity: 1, Size: "M"}}, restored.Cart.Lines())
}

func TestManagerSaveRecordsUser(t *testing.T) {
	fb := fakebackend.New(t)
	store := visitor.NewMemoryStore(managerTestTTL)
	m := newManager(t, fb, store, time.Minute)
	ctx := context.Background()

	sh, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.NoError(t, sh.Session.Login(ctx, testEmail, fakebackend.Password))
	require.NoError(t, m.Save(ctx, sh))

	rec, err := store.Get(ctx, sh.ID())
	require.NoError(t, err)
	assert.Equal(t, testUserID, rec.UserID)
}

func TestManagerForget(t *testing.T) {
	fb := fakebackend.New(t)
	store := visitor.NewMemoryStore(managerTestTTL)
	m := newManager(t, fb, store, time.Minute)
	ctx := context.Background()

	sh, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.NoError(t, m.Forget(ctx, sh.ID()))
	assert.Zero(t, m.Len())
	assert.Zero(t, store.Len())
}

func TestManagerBackendFactoryError(t *testing.T) {
	factoryErr := errors.New("no backend")
	m, err := NewManager(ManagerConfig{
		NewBackend: func() (Backend, error) { return nil, factoryErr },
		Shopper:    testShopperConfig(t),
		Visitors:   visitor.NewMemoryStore(managerTestTTL),
	})
	require.NoError(t, err)

	_, err = m.Open(context.Background(), "")
	assert.ErrorIs(t, err, factoryErr)
}

func TestManagerCleanupRoutineAndClose(t *testing.T) {
	fb := fakebackend.New(t)
	store := visitor.NewMemoryStore(managerTestTTL)
	m := newManager(t, fb, store, 10*time.Millisecond)
	ctx := context.Background()

	sh, err := m.Open(ctx, "")
	require.NoError(t, err)
	require.NoError(t, sh.AddToCart(ctx, "B", ""))

	m.StartCleanupRoutine(5 * time.Millisecond)
	assert.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, m.Close(ctx))
	require.NoError(t, m.Close(ctx))

	rec, err := store.Get(ctx, sh.ID())
	require.NoError(t, err)
	assert.Equal(t, []cart.Line{{ItemID: "B", Quantity: 1}}, rec.GuestCart, "evicted shopper is saved")
}
