package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/access"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/config"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/service"
)

// Server exposes the health check, a basic-auth admin REST API and, in webhook
// mode, the Telegram webhook route.
type Server struct {
	cfg      config.Config
	log      *slog.Logger
	accounts *service.AccountService
	relays   service.RelayStore
	notifier service.Notifier
	router   *chi.Mux
}

func NewServer(cfg config.Config, log *slog.Logger, accounts *service.AccountService, relays service.RelayStore, notifier service.Notifier, webhook http.HandlerFunc) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		cfg:      cfg,
		log:      log,
		accounts: accounts,
		relays:   relays,
		notifier: notifier,
		router:   r,
	}

	r.Get("/healthz", s.handleHealth)
	if cfg.Mode == config.ModeWebhook && webhook != nil {
		r.Post("/webhook/"+cfg.BotToken, webhook)
	}
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/users", s.handleListUsers)
		protected.Post("/users/{id}/grant", s.handleGrant)
		protected.Post("/users/{id}/revoke", s.handleRevoke)
		protected.Get("/relays", s.handleListRelays)
		protected.Post("/broadcast", s.handleBroadcast)
	})
	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.AdminListenAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin server listening", "addr", s.cfg.AdminListenAddr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type userView struct {
	TelegramID      int64      `json:"telegram_id"`
	Username        string     `json:"username,omitempty"`
	TrialStart      time.Time  `json:"trial_start"`
	SubscriptionEnd *time.Time `json:"subscription_end,omitempty"`
	IsActive        bool       `json:"is_active"`
	AwaitingPayment bool       `json:"awaiting_payment"`
	HasAccess       bool       `json:"has_access"`
	DaysLeft        int        `json:"days_left"`
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.accounts.List(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	now := time.Now().UTC()
	views := make([]userView, 0, len(users))
	for i := range users {
		u := &users[i]
		views = append(views, userView{
			TelegramID:      u.TelegramID,
			Username:        u.Username,
			TrialStart:      u.TrialStart,
			SubscriptionEnd: u.SubscriptionEnd,
			IsActive:        u.IsActive,
			AwaitingPayment: u.AwaitingPayment,
			HasAccess:       access.HasActiveAccess(u, now, s.cfg.TrialDays),
			DaysLeft:        access.DaysLeft(u, now, s.cfg.TrialDays),
		})
	}
	s.writeJSON(w, http.StatusOK, views)
}

// handleGrant and handleRevoke go through the same admin-checked service
// operations as the bot commands, with the configured admin as the caller.
func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := s.accounts.Grant(r.Context(), s.cfg.AdminTelegramID, id); err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevoke(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := s.accounts.Revoke(r.Context(), s.cfg.AdminTelegramID, id); err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRelays(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.relays.ListActive(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mappings)
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	ids, err := s.accounts.ListTelegramIDs(ctx)
	if err != nil {
		s.internalError(w, err)
		return
	}

	count := 0
	for _, id := range ids {
		if err := s.notifier.Notify(ctx, id, req.Message); err != nil {
			s.log.Error("send broadcast", "user", id, "err", err)
			continue
		}
		count++
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sent":  count,
		"total": len(ids),
	})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.cfg.AdminUsername || pass != s.cfg.AdminPassword {
				w.Header().Set("WWW-Authenticate", `Basic realm="forwarded"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
