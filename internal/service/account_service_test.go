package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/config"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/models"
)

type UserStoreMock struct{ mock.Mock }

func (m *UserStoreMock) FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	args := m.Called(ctx, telegramID)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserStoreMock) Create(ctx context.Context, user *models.User) (*models.User, error) {
	args := m.Called(ctx, user)
	created, _ := args.Get(0).(*models.User)
	return created, args.Error(1)
}

func (m *UserStoreMock) UpdateUsername(ctx context.Context, telegramID int64, username string) error {
	return m.Called(ctx, telegramID, username).Error(0)
}

func (m *UserStoreMock) SetAwaitingPayment(ctx context.Context, telegramID int64, awaiting bool) error {
	return m.Called(ctx, telegramID, awaiting).Error(0)
}

func (m *UserStoreMock) Grant(ctx context.Context, telegramID int64, subscriptionEnd time.Time) error {
	return m.Called(ctx, telegramID, subscriptionEnd).Error(0)
}

func (m *UserStoreMock) Revoke(ctx context.Context, telegramID int64) error {
	return m.Called(ctx, telegramID).Error(0)
}

func (m *UserStoreMock) List(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}

func (m *UserStoreMock) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]int64)
	return ids, args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Notify(ctx context.Context, telegramID int64, text string) error {
	return m.Called(ctx, telegramID, text).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testConfig() config.Config {
	return config.Config{
		AdminTelegramID:  111,
		OwnerTelegramID:  222,
		TrialDays:        2,
		SubscriptionDays: 30,
	}
}

func newAccountService(users *UserStoreMock, notifier *NotifierMock, now time.Time) *AccountService {
	svc := NewAccountService(testConfig(), newNoopLogger(), users, notifier)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAccountService_Ensure(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("creates account on first contact", func(t *testing.T) {
		users := new(UserStoreMock)
		users.On("FindByTelegramID", mock.Anything, int64(42)).Return(nil, nil).Once()
		users.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
			return u.TelegramID == 42 && u.Username == "alice" && u.TrialStart.Equal(now)
		})).Return(&models.User{TelegramID: 42, Username: "alice", TrialStart: now, IsActive: true}, nil).Once()

		svc := newAccountService(users, new(NotifierMock), now)
		user, created, err := svc.Ensure(ctx, 42, "alice")

		assert.NoError(t, err)
		assert.True(t, created)
		assert.True(t, user.IsActive)
		users.AssertExpectations(t)
	})

	t.Run("repeat contact updates only a changed username", func(t *testing.T) {
		existing := &models.User{TelegramID: 42, Username: "old", TrialStart: now.AddDate(0, 0, -1), IsActive: true}
		users := new(UserStoreMock)
		users.On("FindByTelegramID", mock.Anything, int64(42)).Return(existing, nil).Once()
		users.On("UpdateUsername", mock.Anything, int64(42), "new").Return(nil).Once()

		svc := newAccountService(users, new(NotifierMock), now)
		user, created, err := svc.Ensure(ctx, 42, "new")

		assert.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "new", user.Username)
		users.AssertExpectations(t)
		users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("identical username triggers no write", func(t *testing.T) {
		existing := &models.User{TelegramID: 42, Username: "alice", TrialStart: now.AddDate(0, 0, -1), IsActive: true}
		users := new(UserStoreMock)
		users.On("FindByTelegramID", mock.Anything, int64(42)).Return(existing, nil).Once()

		svc := newAccountService(users, new(NotifierMock), now)
		_, created, err := svc.Ensure(ctx, 42, "alice")

		assert.NoError(t, err)
		assert.False(t, created)
		users.AssertNotCalled(t, "UpdateUsername", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAccountService_RequestSubscription(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("requires a username on file", func(t *testing.T) {
		users := new(UserStoreMock)
		notifier := new(NotifierMock)
		svc := newAccountService(users, notifier, now)

		err := svc.RequestSubscription(ctx, &models.User{TelegramID: 42})

		assert.ErrorIs(t, err, ErrUsernameRequired)
		users.AssertNotCalled(t, "SetAwaitingPayment", mock.Anything, mock.Anything, mock.Anything)
		notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("flags account and notifies the owner", func(t *testing.T) {
		users := new(UserStoreMock)
		users.On("SetAwaitingPayment", mock.Anything, int64(42), true).Return(nil).Once()
		notifier := new(NotifierMock)
		notifier.On("Notify", mock.Anything, int64(222), mock.AnythingOfType("string")).Return(nil).Once()

		user := &models.User{TelegramID: 42, Username: "alice"}
		svc := newAccountService(users, notifier, now)
		err := svc.RequestSubscription(ctx, user)

		assert.NoError(t, err)
		assert.True(t, user.AwaitingPayment)
		users.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})
}

func TestAccountService_GrantRevoke(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	t.Run("grant by admin sets expiry thirty days out", func(t *testing.T) {
		users := new(UserStoreMock)
		users.On("Grant", mock.Anything, int64(42), now.AddDate(0, 0, 30)).Return(nil).Once()

		svc := newAccountService(users, new(NotifierMock), now)
		assert.NoError(t, svc.Grant(ctx, 111, 42))
		users.AssertExpectations(t)
	})

	t.Run("grant by non-admin changes nothing", func(t *testing.T) {
		users := new(UserStoreMock)
		svc := newAccountService(users, new(NotifierMock), now)

		err := svc.Grant(ctx, 999, 42)

		assert.ErrorIs(t, err, ErrNotAuthorized)
		users.AssertNotCalled(t, "Grant", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("revoke by admin", func(t *testing.T) {
		users := new(UserStoreMock)
		users.On("Revoke", mock.Anything, int64(42)).Return(nil).Once()

		svc := newAccountService(users, new(NotifierMock), now)
		assert.NoError(t, svc.Revoke(ctx, 111, 42))
		users.AssertExpectations(t)
	})

	t.Run("revoke by non-admin changes nothing", func(t *testing.T) {
		users := new(UserStoreMock)
		svc := newAccountService(users, new(NotifierMock), now)

		err := svc.Revoke(ctx, 999, 42)

		assert.ErrorIs(t, err, ErrNotAuthorized)
		users.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		users := new(UserStoreMock)
		users.On("Grant", mock.Anything, int64(42), mock.Anything).Return(errors.New("db down")).Once()

		svc := newAccountService(users, new(NotifierMock), now)
		assert.Error(t, svc.Grant(ctx, 111, 42))
	})
}
