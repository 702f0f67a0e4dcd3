package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/whisper/pairbot/internal/profile"
	"github.com/whisper/pairbot/internal/rating"
)

// MockProfileStore is a mock for the profile store
type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Get(ctx context.Context, userID int64) (*profile.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.Profile), args.Error(1)
}

func (m *MockProfileStore) Upsert(ctx context.Context, p *profile.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockProfileStore) BanExpiry(ctx context.Context, userID int64) (time.Time, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockProfileStore) SetBanExpiry(ctx context.Context, userID int64, expiry time.Time) error {
	args := m.Called(ctx, userID, expiry)
	return args.Error(0)
}

func (m *MockProfileStore) CountRegistered(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockProfileStore) CountBanned(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

// MockRatingStore is a mock for the rating store
type MockRatingStore struct {
	mock.Mock
}

func (m *MockRatingStore) Record(ctx context.Context, r rating.Rating) (bool, error) {
	args := m.Called(ctx, r)
	return args.Bool(0), args.Error(1)
}

func (m *MockRatingStore) SummaryFor(ctx context.Context, ratedID int64) (rating.Summary, error) {
	args := m.Called(ctx, ratedID)
	return args.Get(0).(rating.Summary), args.Error(1)
}

// MockBanCache is a mock for the Redis ban cache
type MockBanCache struct {
	mock.Mock
}

func (m *MockBanCache) Get(ctx context.Context, userID int64) (time.Time, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

func (m *MockBanCache) Set(ctx context.Context, userID int64, expiry time.Time) error {
	args := m.Called(ctx, userID, expiry)
	return args.Error(0)
}

func (m *MockBanCache) Delete(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockBanner is a mock for anything that applies bans
type MockBanner struct {
	mock.Mock
}

func (m *MockBanner) Ban(ctx context.Context, userID int64, expiry time.Time) error {
	args := m.Called(ctx, userID, expiry)
	return args.Error(0)
}

func (m *MockBanner) Unban(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
