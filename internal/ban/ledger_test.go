package ban

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/whisper/pairbot/internal/testutil"
)

func TestLedger_BanIsVisibleImmediately(t *testing.T) {
	clock := testutil.NewClock()
	store := new(testutil.MockProfileStore)
	cache := new(testutil.MockBanCache)
	l := NewLedger(store, cache, clock.Now, testutil.NewTestLogger())
	ctx := context.Background()
	expiry := clock.Now().Add(4 * time.Hour)

	store.On("SetBanExpiry", ctx, int64(1), expiry).Return(nil)
	cache.On("Set", ctx, int64(1), expiry).Return(nil)

	require.NoError(t, l.Ban(ctx, 1, expiry))

	clock.Advance(90*time.Minute + 30*time.Second)
	left, banned := l.Remaining(ctx, 1)
	assert.True(t, banned)
	assert.Equal(t, 2*time.Hour+29*time.Minute+30*time.Second, left)

	clock.Advance(3 * time.Hour)
	store.On("BanExpiry", ctx, int64(1)).Return(expiry, nil)
	cache.On("Get", ctx, int64(1)).Return(time.Time{}, false, nil)
	_, banned = l.Remaining(ctx, 1)
	assert.False(t, banned)

	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestLedger_BanHoldsWhenPersistFails(t *testing.T) {
	clock := testutil.NewClock()
	store := new(testutil.MockProfileStore)
	l := NewLedger(store, nil, clock.Now, testutil.NewTestLogger())
	ctx := context.Background()
	expiry := clock.Now().Add(time.Hour)

	store.On("SetBanExpiry", ctx, int64(1), expiry).Return(errors.New("db down"))

	err := l.Ban(ctx, 1, expiry)
	assert.Error(t, err)

	_, banned := l.Remaining(ctx, 1)
	assert.True(t, banned)
	store.AssertNotCalled(t, "BanExpiry", mock.Anything, mock.Anything)
}

func TestLedger_CacheHitSkipsStore(t *testing.T) {
	clock := testutil.NewClock()
	store := new(testutil.MockProfileStore)
	cache := new(testutil.MockBanCache)
	l := NewLedger(store, cache, clock.Now, testutil.NewTestLogger())
	ctx := context.Background()
	expiry := clock.Now().Add(time.Hour)

	cache.On("Get", ctx, int64(5)).Return(expiry, true, nil).Once()

	left, banned := l.Remaining(ctx, 5)
	assert.True(t, banned)
	assert.Equal(t, time.Hour, left)

	// Second lookup is served in process.
	_, banned = l.Remaining(ctx, 5)
	assert.True(t, banned)

	cache.AssertExpectations(t)
	store.AssertNotCalled(t, "BanExpiry", mock.Anything, mock.Anything)
}

func TestLedger_StoreFallbackWarmsCache(t *testing.T) {
	clock := testutil.NewClock()
	store := new(testutil.MockProfileStore)
	cache := new(testutil.MockBanCache)
	l := NewLedger(store, cache, clock.Now, testutil.NewTestLogger())
	ctx := context.Background()
	expiry := clock.Now().Add(30 * time.Minute)

	cache.On("Get", ctx, int64(5)).Return(time.Time{}, false, errors.New("redis down"))
	store.On("BanExpiry", ctx, int64(5)).Return(expiry, nil)
	cache.On("Set", ctx, int64(5), expiry).Return(nil)

	left, banned := l.Remaining(ctx, 5)
	assert.True(t, banned)
	assert.Equal(t, 30*time.Minute, left)

	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestLedger_FailsOpen(t *testing.T) {
	clock := testutil.NewClock()
	store := new(testutil.MockProfileStore)
	cache := new(testutil.MockBanCache)
	l := NewLedger(store, cache, clock.Now, testutil.NewTestLogger())
	ctx := context.Background()

	cache.On("Get", ctx, int64(5)).Return(time.Time{}, false, errors.New("redis down"))
	store.On("BanExpiry", ctx, int64(5)).Return(time.Time{}, errors.New("db down"))

	_, banned := l.Remaining(ctx, 5)
	assert.False(t, banned)
}

func TestLedger_NegativeLookupIsCachedBriefly(t *testing.T) {
	clock := testutil.NewClock()
	store := new(testutil.MockProfileStore)
	l := NewLedger(store, nil, clock.Now, testutil.NewTestLogger())
	ctx := context.Background()

	store.On("BanExpiry", ctx, int64(5)).Return(time.Time{}, nil).Twice()

	_, banned := l.Remaining(ctx, 5)
	assert.False(t, banned)
	clock.Advance(10 * time.Second)
	_, banned = l.Remaining(ctx, 5)
	assert.False(t, banned)
	store.AssertNumberOfCalls(t, "BanExpiry", 1)

	clock.Advance(negativeTTL)
	l.Remaining(ctx, 5)
	store.AssertNumberOfCalls(t, "BanExpiry", 2)
}

func TestLedger_Unban(t *testing.T) {
	clock := testutil.NewClock()
	store := new(testutil.MockProfileStore)
	cache := new(testutil.MockBanCache)
	l := NewLedger(store, cache, clock.Now, testutil.NewTestLogger())
	ctx := context.Background()
	expiry := clock.Now().Add(time.Hour)

	store.On("SetBanExpiry", ctx, int64(1), expiry).Return(nil)
	cache.On("Set", ctx, int64(1), expiry).Return(nil)
	store.On("SetBanExpiry", ctx, int64(1), time.Time{}).Return(nil)
	cache.On("Delete", ctx, int64(1)).Return(nil)

	require.NoError(t, l.Ban(ctx, 1, expiry))
	require.NoError(t, l.Unban(ctx, 1))

	_, banned := l.Remaining(ctx, 1)
	assert.False(t, banned)
	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}
