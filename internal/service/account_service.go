package service

import (
	"context"
	"encoding/base32"
	"strings"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TelegramLinkCodeTTL срок жизни кода привязки, выданного ботом
const TelegramLinkCodeTTL = 10 * time.Minute

// AccountService привязка чата Telegram к аккаунту портала.
// Чат привязывается только кодом, который бот показал в этом же чате.
type AccountService struct {
	store  AccountStore
	logger *zap.Logger
	now    func() time.Time
}

func NewAccountService(store AccountStore, logger *zap.Logger) *AccountService {
	return &AccountService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// IssueTelegramLinkCode выдаёт одноразовый код для чата; прежний код чата перестаёт действовать
func (s *AccountService) IssueTelegramLinkCode(ctx context.Context, chatID int64) (string, error) {
	if chatID == 0 {
		return "", invalid("chat_id", "must be non-zero")
	}

	code := newLinkCode()
	if err := s.store.SaveTelegramLinkCode(ctx, code, chatID, s.now().Add(TelegramLinkCodeTTL)); err != nil {
		return "", storeFailure("save telegram link code", err)
	}

	s.logger.Info("Telegram link code issued", zap.Int64("chat_id", chatID))
	return code, nil
}

// LinkTelegram привязывает к аккаунту действующего пользователя чат, выдавший код
func (s *AccountService) LinkTelegram(ctx context.Context, actor model.Account, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return invalid("code", "required")
	}

	chatID, linked, err := s.store.LinkTelegramByCode(ctx, actor.UID, code, s.now())
	if err != nil {
		return storeFailure("link telegram chat", err)
	}
	if !linked {
		return invalid("code", "unknown or expired")
	}

	s.logger.Info("Telegram chat linked",
		zap.String("account", actor.UID.String()),
		zap.Int64("chat_id", chatID),
	)
	return nil
}

// UnlinkTelegram отвязывает чат от аккаунта действующего пользователя
func (s *AccountService) UnlinkTelegram(ctx context.Context, actor model.Account) error {
	ok, err := s.store.ClearTelegramChatID(ctx, actor.UID)
	if err != nil {
		return storeFailure("unlink telegram chat", err)
	}
	if !ok {
		return notFound("account", actor.UID)
	}

	s.logger.Info("Telegram chat unlinked", zap.String("account", actor.UID.String()))
	return nil
}

// ByTelegramChat находит аккаунт по чату; nil, если чат не привязан
func (s *AccountService) ByTelegramChat(ctx context.Context, chatID int64) (*model.Account, error) {
	account, err := s.store.ResolveByTelegramChatID(ctx, chatID)
	if err != nil {
		return nil, storeFailure("resolve account by telegram chat", err)
	}
	return account, nil
}

// newLinkCode 8 символов base32 из случайных байтов UUIDv4
func newLinkCode() string {
	id := uuid.New()
	return base32.StdEncoding.EncodeToString(id[:5])
}
