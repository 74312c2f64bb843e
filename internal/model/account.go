package model

import (
	"time"

	"github.com/google/uuid"
)

type Capability string

const (
	CapabilityStudent   Capability = "student"
	CapabilityCounselor Capability = "counselor"
)

// Account учётная запись из каталога пользователей
type Account struct {
	UID            uuid.UUID    `json:"uid"`
	StudentID      *string      `json:"student_id"` // nil для сотрудников
	Email          string       `json:"email"`
	DisplayName    string       `json:"display_name"`
	Capabilities   []Capability `json:"capabilities"`
	TelegramChatID *int64       `json:"telegram_chat_id"` // nil - Telegram не привязан
	CreatedAt      time.Time    `json:"created_at"`
}

// Has проверяет наличие права у пользователя
func (a *Account) Has(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

func (a *Account) IsCounselor() bool {
	return a.Has(CapabilityCounselor)
}

// OwnsStudentID проверяет, что аккаунт принадлежит студенту с данным номером
func (a *Account) OwnsStudentID(studentID string) bool {
	return a.StudentID != nil && studentID != "" && *a.StudentID == studentID
}
