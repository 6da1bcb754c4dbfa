package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lianamurzabaeva86-hue/forwarded/internal/access"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/config"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/models"
	"github.com/lianamurzabaeva86-hue/forwarded/internal/service"
)

type Bot struct {
	cfg      config.Config
	api      *tgbotapi.BotAPI
	log      *slog.Logger
	accounts *service.AccountService
	relay    *service.RelayService
	updates  chan tgbotapi.Update
}

func NewBot(cfg config.Config, api *tgbotapi.BotAPI, log *slog.Logger, accounts *service.AccountService, relay *service.RelayService) *Bot {
	return &Bot{
		cfg:      cfg,
		api:      api,
		log:      log,
		accounts: accounts,
		relay:    relay,
		updates:  make(chan tgbotapi.Update, 16),
	}
}

// Run consumes updates until the context is cancelled. In polling mode it owns
// the long-poll channel; in webhook mode updates arrive through
// WebhookHandler mounted on the HTTP server.
func (b *Bot) Run(ctx context.Context) error {
	var updates tgbotapi.UpdatesChannel
	if b.cfg.Mode == config.ModeWebhook {
		wh, err := tgbotapi.NewWebhook(b.cfg.WebhookBaseURL + "/webhook/" + b.api.Token)
		if err != nil {
			return fmt.Errorf("build webhook config: %w", err)
		}
		if _, err := b.api.Request(wh); err != nil {
			return fmt.Errorf("register webhook: %w", err)
		}
		updates = b.updates
		b.log.Info("telegram bot started", "mode", config.ModeWebhook)
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates = b.api.GetUpdatesChan(u)
		b.log.Info("telegram bot started", "mode", config.ModePolling)
	}

	for {
		select {
		case update := <-updates:
			b.handleUpdate(ctx, update)
		case <-ctx.Done():
			if b.cfg.Mode == config.ModePolling {
				b.api.StopReceivingUpdates()
			}
			return ctx.Err()
		}
	}
}

// WebhookHandler decodes Telegram webhook deliveries into the update channel.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		update, err := b.api.HandleUpdate(r)
		if err != nil {
			b.log.Error("decode webhook update", "err", err)
			http.Error(w, "bad update", http.StatusBadRequest)
			return
		}
		select {
		case b.updates <- *update:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}
}

// handleUpdate is the boundary where every processing error stops: nothing a
// single update does may take the loop down.
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("update handler panic", "panic", r)
		}
	}()

	switch {
	case update.ChannelPost != nil:
		post := update.ChannelPost
		b.relay.HandleInbound(ctx, post.Chat.UserName, post.Chat.ID, post.MessageID)
	case update.Message != nil:
		msg := update.Message
		if msg.Chat.IsGroup() || msg.Chat.IsSuperGroup() {
			b.relay.HandleInbound(ctx, msg.Chat.UserName, msg.Chat.ID, msg.MessageID)
			return
		}
		if msg.Chat.IsPrivate() {
			b.handlePrivateMessage(ctx, msg)
		}
	}
}

func (b *Bot) handlePrivateMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	user, _, err := b.accounts.Ensure(ctx, userID, msg.From.UserName)
	if err != nil {
		b.log.Error("ensure account", "user", userID, "err", err)
		b.sendText(msg.Chat.ID, "Что-то пошло не так, попробуйте позже.")
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Menu keywords always win over link capture: tapping a button must never
	// end up stored as a chat link.
	if isMenuKeyword(msg.Text) {
		b.handleMenu(ctx, msg, user)
		return
	}

	if b.relay.InSetup(userID) {
		b.handleCapture(ctx, msg, user)
		return
	}

	b.sendText(msg.Chat.ID, "Используйте кнопки меню или /start.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *models.User) {
	switch msg.Command() {
	case "start":
		b.sendGreeting(msg.Chat.ID, user)
	case "grant":
		b.handleAdminAccessCommand(ctx, msg, b.accounts.Grant, "✅ Доступ разрешён на %d дней.")
	case "revoke":
		b.handleAdminAccessCommand(ctx, msg, b.accounts.Revoke, "❌ Доступ отключён.")
	case "stats":
		b.handleStats(ctx, msg)
	default:
		b.sendText(msg.Chat.ID, "Неизвестная команда. Используйте /start.")
	}
}

// handleAdminAccessCommand runs /grant and /revoke. A non-admin caller gets no
// reply at all: the service refuses and the error is dropped here.
func (b *Bot) handleAdminAccessCommand(ctx context.Context, msg *tgbotapi.Message, op func(context.Context, int64, int64) error, okText string) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 1 {
		if msg.From.ID == b.cfg.AdminTelegramID {
			b.sendText(msg.Chat.ID, fmt.Sprintf("Использование: /%s <user_id>", msg.Command()))
		}
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		if msg.From.ID == b.cfg.AdminTelegramID {
			b.sendText(msg.Chat.ID, "Некорректный user_id.")
		}
		return
	}

	if err := op(ctx, msg.From.ID, targetID); err != nil {
		if errors.Is(err, service.ErrNotAuthorized) {
			return
		}
		b.log.Error("admin access command", "command", msg.Command(), "target", targetID, "err", err)
		b.sendText(msg.Chat.ID, "Не удалось выполнить операцию, попробуйте позже.")
		return
	}
	if strings.Contains(okText, "%d") {
		okText = fmt.Sprintf(okText, b.cfg.SubscriptionDays)
	}
	b.sendText(msg.Chat.ID, okText)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		return
	}
	users, err := b.accounts.List(ctx)
	if err != nil {
		b.log.Error("list users for stats", "err", err)
		b.sendText(msg.Chat.ID, "Не удалось получить статистику.")
		return
	}
	var active, awaiting int
	for _, u := range users {
		if u.IsActive {
			active++
		}
		if u.AwaitingPayment {
			awaiting++
		}
	}
	b.sendText(msg.Chat.ID, fmt.Sprintf("📊 Статистика:\nВсего пользователей: %d\nАктивных: %d\nОжидают оплаты: %d", len(users), active, awaiting))
}

func (b *Bot) handleMenu(ctx context.Context, msg *tgbotapi.Message, user *models.User) {
	switch msg.Text {
	case btnSetupRelay:
		b.handleSetupRelay(ctx, msg, user)
	case btnCabinet:
		b.handleCabinet(ctx, msg, user)
	case btnConfirmSub:
		b.handleSubscriptionRequest(ctx, msg, user)
	case btnHelp:
		b.sendText(msg.Chat.ID, "Бот пересылает сообщения из одного канала/группы в другой.\nНажмите «Подключить пересыл» и отправьте две ссылки: источник и приёмник.")
	case btnAdminPanel:
		b.handleAdminPanel(ctx, msg)
	case btnBack:
		b.sendGreeting(msg.Chat.ID, user)
	}
}

func (b *Bot) handleSetupRelay(ctx context.Context, msg *tgbotapi.Message, user *models.User) {
	if err := b.relay.BeginSetup(ctx, user); err != nil {
		if errors.Is(err, service.ErrAccessExpired) {
			b.sendText(msg.Chat.ID, fmt.Sprintf("❌ Пробный период закончился.\nСтоимость подписки: %s\nОформите её в личном кабинете.", b.cfg.SubscriptionPrice))
			return
		}
		b.log.Error("begin relay setup", "user", user.TelegramID, "err", err)
		b.sendText(msg.Chat.ID, "Что-то пошло не так, попробуйте позже.")
		return
	}
	b.sendText(msg.Chat.ID, "Отправьте ссылку на канал/группу, ИЗ которой пересылать сообщения.\nНапример: https://t.me/mychannel")
}

func (b *Bot) handleCapture(ctx context.Context, msg *tgbotapi.Message, user *models.User) {
	step, err := b.relay.CaptureLink(ctx, user.TelegramID, msg.Text)
	if err != nil {
		b.log.Error("capture relay link", "user", user.TelegramID, "err", err)
		b.sendText(msg.Chat.ID, "Не удалось сохранить настройку, отправьте ссылку ещё раз.")
		return
	}
	switch step {
	case service.CaptureSourceStored:
		b.sendText(msg.Chat.ID, "Теперь отправьте ссылку на канал/группу, В которую пересылать сообщения.")
	case service.CaptureCompleted:
		b.sendText(msg.Chat.ID, "✅ Пересыл настроен!\nДобавьте бота в оба чата: в источник — чтобы он видел сообщения, в приёмник — с правом публиковать.")
	}
}

func (b *Bot) handleCabinet(ctx context.Context, msg *tgbotapi.Message, user *models.User) {
	switch {
	case user.AwaitingPayment:
		b.sendText(msg.Chat.ID, "⏳ Вы запросили подписку. Владелец скоро свяжется с вами в личных сообщениях.")
	case b.hasAccess(user):
		days := access.DaysLeft(user, time.Now().UTC(), b.cfg.TrialDays)
		text := fmt.Sprintf("✅ У вас активна подписка!\nОсталось дней: %d", days)
		if mapping, err := b.relay.MappingFor(ctx, user.TelegramID); err != nil {
			b.log.Error("load relay mapping for cabinet", "user", user.TelegramID, "err", err)
		} else if mapping != nil && mapping.Active {
			text += fmt.Sprintf("\n🔁 Пересыл: %s → %s", mapping.SourceLink, mapping.TargetLink)
		}
		b.sendText(msg.Chat.ID, text)
	default:
		reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf("❌ Пробный период закончился.\nСтоимость подписки: %s\nНажмите «%s», чтобы приобрести.", b.cfg.SubscriptionPrice, btnConfirmSub))
		reply.ReplyMarkup = confirmSubscriptionMenu()
		b.send(reply)
	}
}

func (b *Bot) handleSubscriptionRequest(ctx context.Context, msg *tgbotapi.Message, user *models.User) {
	if err := b.accounts.RequestSubscription(ctx, user); err != nil {
		if errors.Is(err, service.ErrUsernameRequired) {
			b.sendText(msg.Chat.ID, "⚠️ У вас не установлен username в Telegram.\nУстановите его в настройках Telegram и нажмите /start снова.")
			return
		}
		b.log.Error("request subscription", "user", user.TelegramID, "err", err)
		b.sendText(msg.Chat.ID, "Не удалось отправить запрос, попробуйте позже.")
		return
	}
	b.sendText(msg.Chat.ID, "✅ Отлично! Владелец скоро свяжется с вами в личных сообщениях для оформления подписки.")
}

func (b *Bot) handleAdminPanel(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminTelegramID {
		return
	}
	users, err := b.accounts.List(ctx)
	if err != nil {
		b.log.Error("list users for admin panel", "err", err)
		b.sendText(msg.Chat.ID, "Не удалось получить список пользователей.")
		return
	}
	if len(users) == 0 {
		b.sendText(msg.Chat.ID, "Нет пользователей.")
		return
	}

	var sb strings.Builder
	sb.WriteString("👥 Список пользователей:\n\n")
	for _, u := range users {
		name := fmt.Sprintf("ID: %d", u.TelegramID)
		if u.Username != "" {
			name = "@" + u.Username
		}
		status := "🔴"
		if u.IsActive {
			status = "🟢"
		}
		fmt.Fprintf(&sb, "%s %s (%d)\n", status, name, u.TelegramID)
	}
	sb.WriteString("\n/grant <user_id> — выдать подписку\n/revoke <user_id> — отключить доступ\n/stats — статистика")
	b.sendText(msg.Chat.ID, sb.String())
}

func (b *Bot) sendGreeting(chatID int64, user *models.User) {
	text := fmt.Sprintf(
		"👋 Привет! Это бот для пересылки сообщений с одного канала/группы в другой.\n\nУ вас активен %d-дневный бесплатный пробный период.\nПосле его окончания требуется подписка: %s",
		b.cfg.TrialDays, b.cfg.SubscriptionPrice,
	)
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = b.mainMenu(user.TelegramID)
	b.send(msg)
}

func (b *Bot) hasAccess(user *models.User) bool {
	return access.HasActiveAccess(user, time.Now().UTC(), b.cfg.TrialDays)
}

func (b *Bot) sendText(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		b.log.Error("send message", "err", err)
	}
}
