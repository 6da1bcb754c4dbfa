package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/access"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/config"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/models"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/session"
)

// ErrAccessExpired gates relay setup for users whose trial or subscription has
// run out.
var ErrAccessExpired = errors.New("access expired")

// RelayStore is the persistence surface for relay mappings.
type RelayStore interface {
	Upsert(ctx context.Context, mapping *models.RelayMapping) (*models.RelayMapping, error)
	FindByUserID(ctx context.Context, userID int64) (*models.RelayMapping, error)
	ListActive(ctx context.Context) ([]models.RelayMapping, error)
}

// Forwarder relays one message from its source chat to a target channel
// handle, preserving the platform's forwarded-from provenance.
type Forwarder interface {
	Forward(ctx context.Context, fromChatID int64, messageID int, targetHandle string) error
}

// CaptureStep tells the caller which stage of the setup conversation a text
// message advanced, so it can reply with the matching prompt.
type CaptureStep int

const (
	// CaptureNone: no setup in progress, the text was not consumed.
	CaptureNone CaptureStep = iota
	// CaptureSourceStored: source link taken, now waiting for the target.
	CaptureSourceStored
	// CaptureCompleted: both links captured, mapping persisted.
	CaptureCompleted
)

type RelayService struct {
	cfg      config.Config
	log      *slog.Logger
	relays   RelayStore
	sessions session.Store
	notifier Notifier
	fwd      Forwarder
	now      func() time.Time
}

func NewRelayService(cfg config.Config, log *slog.Logger, relays RelayStore, sessions session.Store, notifier Notifier, fwd Forwarder) *RelayService {
	return &RelayService{
		cfg:      cfg,
		log:      log,
		relays:   relays,
		sessions: sessions,
		notifier: notifier,
		fwd:      fwd,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// BeginSetup starts the two-step capture for a user with active access. On
// denial the session is left untouched.
func (s *RelayService) BeginSetup(ctx context.Context, user *models.User) error {
	if !access.HasActiveAccess(user, s.now(), s.cfg.TrialDays) {
		return ErrAccessExpired
	}
	s.sessions.Set(user.TelegramID, session.Session{State: session.StateAwaitingSource})
	return nil
}

// InSetup reports whether the user currently has a capture in progress.
func (s *RelayService) InSetup(userID int64) bool {
	return s.sessions.Get(userID).State != session.StateIdle
}

// CaptureLink feeds one free-text message into the setup conversation. Callers
// must filter out menu keywords first; anything passed here is taken verbatim
// as a chat link.
func (s *RelayService) CaptureLink(ctx context.Context, userID int64, text string) (CaptureStep, error) {
	link := strings.TrimSpace(text)
	sess := s.sessions.Get(userID)

	switch sess.State {
	case session.StateAwaitingSource:
		s.sessions.Set(userID, session.Session{
			State:         session.StateAwaitingTarget,
			PendingSource: link,
		})
		return CaptureSourceStored, nil

	case session.StateAwaitingTarget:
		mapping := &models.RelayMapping{
			UserID:     userID,
			SourceLink: sess.PendingSource,
			TargetLink: link,
			Active:     true,
		}
		if _, err := s.relays.Upsert(ctx, mapping); err != nil {
			// Session stays in awaiting_target so the user can resend the link.
			return CaptureNone, fmt.Errorf("store relay mapping: %w", err)
		}
		s.sessions.Clear(userID)
		return CaptureCompleted, nil

	default:
		return CaptureNone, nil
	}
}

// MappingFor returns the user's current mapping, nil when none is configured.
func (s *RelayService) MappingFor(ctx context.Context, userID int64) (*models.RelayMapping, error) {
	mapping, err := s.relays.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find relay mapping: %w", err)
	}
	return mapping, nil
}

// HandleInbound inspects one channel or group message and forwards it when an
// active mapping names its chat as a source. Only the first matching mapping is
// used: if several users configured the same source, one forward happens.
// All failures are logged and swallowed; forwarding is best effort.
func (s *RelayService) HandleInbound(ctx context.Context, chatUsername string, chatID int64, messageID int) {
	if chatUsername == "" {
		// No public handle means no link form, so no mapping can match.
		return
	}
	link := canonicalChatLink(chatUsername)

	mappings, err := s.relays.ListActive(ctx)
	if err != nil {
		s.log.Error("list active relay mappings", "err", err)
		return
	}

	for _, m := range mappings {
		if canonicalLink(m.SourceLink) != link {
			continue
		}
		target := targetHandle(m.TargetLink)
		if target == "" {
			s.log.Warn("relay target link has no handle", "mapping", m.UUID, "target_link", m.TargetLink)
			return
		}
		if err := s.fwd.Forward(ctx, chatID, messageID, target); err != nil {
			s.log.Error("forward message", "mapping", m.UUID, "source", link, "target", target, "err", err)
			warn := fmt.Sprintf("⚠️ Не удалось переслать сообщение из %s в %s. Проверьте, что бот добавлен в оба чата и имеет права на публикацию.", m.SourceLink, m.TargetLink)
			if nerr := s.notifier.Notify(ctx, m.UserID, warn); nerr != nil {
				s.log.Error("notify relay owner", "mapping", m.UUID, "err", nerr)
			}
		}
		return
	}
}

func canonicalChatLink(username string) string {
	return "https://t.me/" + strings.TrimPrefix(username, "@")
}

func canonicalLink(link string) string {
	return strings.TrimRight(strings.TrimSpace(link), "/")
}

// targetHandle extracts the channel handle from a stored target link, e.g.
// "https://t.me/dst" -> "dst".
func targetHandle(link string) string {
	link = canonicalLink(link)
	if idx := strings.LastIndex(link, "/"); idx >= 0 {
		link = link[idx+1:]
	}
	return strings.TrimPrefix(link, "@")
}
