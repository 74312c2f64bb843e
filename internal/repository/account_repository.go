package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/Freeeeeet/guidance_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// errAccountMissing откатывает погашение кода, если аккаунта нет
var errAccountMissing = errors.New("account not found")

const accountColumns = `uid, student_id, email, display_name, capabilities, telegram_chat_id, created_at`

// AccountRepository каталог пользователей портала
type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var (
		account      model.Account
		capabilities []string
	)
	err := row.Scan(
		&account.UID,
		&account.StudentID,
		&account.Email,
		&account.DisplayName,
		&capabilities,
		&account.TelegramChatID,
		&account.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Capabilities = make([]model.Capability, len(capabilities))
	for i, c := range capabilities {
		account.Capabilities[i] = model.Capability(c)
	}

	return &account, nil
}

// Create создаёт аккаунт
func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	if account.UID == uuid.Nil {
		account.UID = uuid.New()
	}

	capabilities := make([]string, len(account.Capabilities))
	for i, c := range account.Capabilities {
		capabilities[i] = string(c)
	}

	query := `
		INSERT INTO accounts (uid, student_id, email, display_name, capabilities, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	err := r.pool.QueryRow(
		ctx, query,
		account.UID,
		account.StudentID,
		account.Email,
		account.DisplayName,
		capabilities,
		account.TelegramChatID,
	).Scan(&account.CreatedAt)

	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}

	return nil
}

// ResolveByUID получает аккаунт по UID
func (r *AccountRepository) ResolveByUID(ctx context.Context, uid uuid.UUID) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE uid = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, uid))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by uid: %w", err)
	}

	return account, nil
}

// ResolveByStudentID получает аккаунт студента по студенческому номеру
func (r *AccountRepository) ResolveByStudentID(ctx context.Context, studentID string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE student_id = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, studentID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by student id: %w", err)
	}

	return account, nil
}

// ListByCapability получает все аккаунты с данным правом
func (r *AccountRepository) ListByCapability(ctx context.Context, capability model.Capability) ([]*model.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts
		WHERE $1 = ANY(capabilities)
		ORDER BY display_name
	`

	rows, err := r.pool.Query(ctx, query, string(capability))
	if err != nil {
		return nil, fmt.Errorf("list accounts by capability: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

// ResolveByTelegramChatID получает аккаунт по привязанному чату Telegram
func (r *AccountRepository) ResolveByTelegramChatID(ctx context.Context, chatID int64) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE telegram_chat_id = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get account by telegram chat id: %w", err)
	}

	return account, nil
}

// SaveTelegramLinkCode сохраняет одноразовый код привязки чата; прежние коды этого чата и просроченные удаляются
func (r *AccountRepository) SaveTelegramLinkCode(ctx context.Context, code string, chatID int64, expiresAt time.Time) error {
	return base.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM telegram_link_codes WHERE chat_id = $1 OR expires_at <= now()`,
			chatID,
		); err != nil {
			return fmt.Errorf("purge telegram link codes: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO telegram_link_codes (code, chat_id, expires_at) VALUES ($1, $2, $3)`,
			code, chatID, expiresAt,
		); err != nil {
			return fmt.Errorf("save telegram link code: %w", err)
		}
		return nil
	})
}

// LinkTelegramByCode погашает код и привязывает его чат к аккаунту в одной транзакции.
// Чат, привязанный к другому аккаунту, переходит к этому.
// false - код неизвестен, просрочен или аккаунт не найден; в этом случае код не погашается.
func (r *AccountRepository) LinkTelegramByCode(ctx context.Context, uid uuid.UUID, code string, now time.Time) (int64, bool, error) {
	var (
		chatID int64
		linked bool
	)

	err := base.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			DELETE FROM telegram_link_codes
			WHERE code = $1 AND expires_at > $2
			RETURNING chat_id
		`, code, now).Scan(&chatID)
		if err != nil {
			if base.IsNotFound(err) {
				return nil
			}
			return fmt.Errorf("consume telegram link code: %w", err)
		}

		if _, err := tx.Exec(ctx,
			`UPDATE accounts SET telegram_chat_id = NULL WHERE telegram_chat_id = $1 AND uid <> $2`,
			chatID, uid,
		); err != nil {
			return fmt.Errorf("release telegram chat: %w", err)
		}

		result, err := tx.Exec(ctx, `UPDATE accounts SET telegram_chat_id = $2 WHERE uid = $1`, uid, chatID)
		if err != nil {
			return fmt.Errorf("set telegram chat id: %w", err)
		}
		if result.RowsAffected() == 0 {
			return errAccountMissing
		}

		linked = true
		return nil
	})
	if errors.Is(err, errAccountMissing) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return chatID, linked, nil
}

// ClearTelegramChatID отвязывает чат от аккаунта. false - аккаунт не найден.
func (r *AccountRepository) ClearTelegramChatID(ctx context.Context, uid uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `UPDATE accounts SET telegram_chat_id = NULL WHERE uid = $1`, uid)
	if err != nil {
		return false, fmt.Errorf("clear telegram chat id: %w", err)
	}

	return result.RowsAffected() > 0, nil
}
