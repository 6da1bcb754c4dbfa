package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/config"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/models"
)

var (
	// ErrNotAuthorized marks an admin-scoped call from a non-admin identity.
	// Callers are expected to swallow it without replying.
	ErrNotAuthorized = errors.New("caller is not the configured admin")

	// ErrUsernameRequired means the manual payment flow cannot proceed because
	// the owner would have no way to contact the user.
	ErrUsernameRequired = errors.New("username required for subscription request")
)

// UserStore is the narrow persistence surface the account lifecycle needs.
type UserStore interface {
	FindByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateUsername(ctx context.Context, telegramID int64, username string) error
	SetAwaitingPayment(ctx context.Context, telegramID int64, awaiting bool) error
	Grant(ctx context.Context, telegramID int64, subscriptionEnd time.Time) error
	Revoke(ctx context.Context, telegramID int64) error
	List(ctx context.Context) ([]models.User, error)
	ListTelegramIDs(ctx context.Context) ([]int64, error)
}

// Notifier sends a direct message to a Telegram user on behalf of the bot.
type Notifier interface {
	Notify(ctx context.Context, telegramID int64, text string) error
}

type AccountService struct {
	cfg      config.Config
	log      *slog.Logger
	users    UserStore
	notifier Notifier
	now      func() time.Time
}

func NewAccountService(cfg config.Config, log *slog.Logger, users UserStore, notifier Notifier) *AccountService {
	return &AccountService{
		cfg:      cfg,
		log:      log,
		users:    users,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Ensure creates the account on first contact and resyncs a changed username on
// every later one. Trial, subscription and active flags are never touched for
// an existing account.
func (s *AccountService) Ensure(ctx context.Context, telegramID int64, username string) (*models.User, bool, error) {
	user, err := s.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, false, fmt.Errorf("find user: %w", err)
	}
	if user != nil {
		if username != "" && username != user.Username {
			if err := s.users.UpdateUsername(ctx, telegramID, username); err != nil {
				s.log.Error("resync username", "user", telegramID, "err", err)
			} else {
				user.Username = username
			}
		}
		return user, false, nil
	}

	created, err := s.users.Create(ctx, &models.User{
		TelegramID: telegramID,
		Username:   username,
		TrialStart: s.now(),
	})
	if err != nil {
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	return created, true, nil
}

// RequestSubscription flags the account as awaiting manual payment and pings
// the configured owner. It grants nothing by itself.
func (s *AccountService) RequestSubscription(ctx context.Context, user *models.User) error {
	if user.Username == "" {
		return ErrUsernameRequired
	}
	if err := s.users.SetAwaitingPayment(ctx, user.TelegramID, true); err != nil {
		return fmt.Errorf("mark awaiting payment: %w", err)
	}
	text := fmt.Sprintf("🔔 Пользователь @%s (ID: %d) хочет купить подписку.\nСвяжитесь с ним в ЛС для оплаты.", user.Username, user.TelegramID)
	if err := s.notifier.Notify(ctx, s.cfg.OwnerTelegramID, text); err != nil {
		return fmt.Errorf("notify owner: %w", err)
	}
	user.AwaitingPayment = true
	return nil
}

// Grant opens a subscription window of the configured length starting now.
// Repeated grants push the expiry forward from now, they do not accumulate.
func (s *AccountService) Grant(ctx context.Context, callerID, targetID int64) error {
	if callerID != s.cfg.AdminTelegramID {
		return ErrNotAuthorized
	}
	end := s.now().AddDate(0, 0, s.cfg.SubscriptionDays)
	if err := s.users.Grant(ctx, targetID, end); err != nil {
		return fmt.Errorf("grant: %w", err)
	}
	return nil
}

func (s *AccountService) Revoke(ctx context.Context, callerID, targetID int64) error {
	if callerID != s.cfg.AdminTelegramID {
		return ErrNotAuthorized
	}
	if err := s.users.Revoke(ctx, targetID); err != nil {
		return fmt.Errorf("revoke: %w", err)
	}
	return nil
}

func (s *AccountService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *AccountService) ListTelegramIDs(ctx context.Context) ([]int64, error) {
	ids, err := s.users.ListTelegramIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list telegram ids: %w", err)
	}
	return ids, nil
}
