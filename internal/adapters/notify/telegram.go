package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alejandrodnm/polytipster/internal/domain"
)

// maxMessageRunes es el límite de Telegram para el texto de un mensaje.
const maxMessageRunes = 4096

// TelegramConfig contiene las credenciales y el destino de las alertas.
type TelegramConfig struct {
	Token string
	// ChatID es un id numérico (grupos: negativo) o un @canal.
	ChatID string
	// APIEndpoint sobreescribe tgbotapi.APIEndpoint. Útil en tests.
	APIEndpoint string
	Timeout     time.Duration
}

// sender es la parte de tgbotapi.BotAPI que usa el notificador.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram implementa ports.Notifier enviando mensajes HTML a un único chat.
type Telegram struct {
	bot     sender
	chatID  int64
	channel string
	format  Formatter
	now     func() time.Time
}

// NewTelegram valida el token contra la API (getMe) y devuelve el notificador.
func NewTelegram(cfg TelegramConfig, format Formatter) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram: empty bot token")
	}
	chatID, channel, err := parseChatID(cfg.ChatID)
	if err != nil {
		return nil, err
	}
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}
	slog.Info("telegram bot authorized", "bot", bot.Self.UserName)

	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		channel: channel,
		format:  format,
		now:     time.Now,
	}, nil
}

// parseChatID acepta "-100123", "123" o "@canal".
func parseChatID(raw string) (int64, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, "", fmt.Errorf("telegram: empty chat id")
	}
	if strings.HasPrefix(raw, "@") {
		return 0, raw, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("telegram: invalid chat id %q: %w", raw, err)
	}
	return id, "", nil
}

// NotifySignal envía una alerta de smart money.
func (t *Telegram) NotifySignal(ctx context.Context, s domain.Signal) error {
	return t.send(ctx, t.format.Signal(s))
}

// NotifyWatchlist envía la lista de wallets seguidas.
func (t *Telegram) NotifyWatchlist(ctx context.Context, wallets []domain.Wallet) error {
	if len(wallets) == 0 {
		return nil
	}
	return t.send(ctx, t.format.Watchlist(wallets))
}

// NotifyScan envía el digest del scanner. Sin picks no se envía nada.
func (t *Telegram) NotifyScan(ctx context.Context, picks []domain.ScanPick) error {
	if len(picks) == 0 {
		return nil
	}
	return t.send(ctx, t.format.Scan(picks, t.now()))
}

// NotifyStartup envía el mensaje de arranque.
func (t *Telegram) NotifyStartup(ctx context.Context, info domain.StartupInfo) error {
	return t.send(ctx, t.format.Startup(info))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg tgbotapi.MessageConfig
	if t.channel != "" {
		msg = tgbotapi.NewMessageToChannel(t.channel, clip(text))
	} else {
		msg = tgbotapi.NewMessage(t.chatID, clip(text))
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}

// clip corta el texto al límite de Telegram sin partir runas.
func clip(text string) string {
	if utf8.RuneCountInString(text) <= maxMessageRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxMessageRunes-1]) + "…"
}
