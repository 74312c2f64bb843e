package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // Ожидает решения консультанта
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Подтверждено
	AppointmentStatusRejected  AppointmentStatus = "rejected"  // Отклонено консультантом
	AppointmentStatusCompleted AppointmentStatus = "completed" // Завершено
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменено студентом или консультантом
)

// SlotClaim итог атомарной попытки занять слот
type SlotClaim int

const (
	SlotClaimed SlotClaim = iota + 1
	SlotClaimOccupied
	SlotClaimBlocked
)

// ActiveStatuses статусы, в которых запись занимает слот
var ActiveStatuses = []AppointmentStatus{AppointmentStatusPending, AppointmentStatusConfirmed}

// IsActive проверяет, занимает ли запись слот
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

// IsTerminal проверяет, что из статуса больше нет переходов
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusRejected, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

func (s AppointmentStatus) Valid() bool {
	return s.IsActive() || s.IsTerminal()
}

// StatusStrings конвертирует статусы для параметров запросов
func StatusStrings(statuses []AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

type CounselorType string

const (
	CounselorTypeAcademic        CounselorType = "academic"
	CounselorTypeCareer          CounselorType = "career"
	CounselorTypeMentalHealth    CounselorType = "mental_health"
	CounselorTypeFamily          CounselorType = "family"
	CounselorTypeCrisis          CounselorType = "crisis"
	CounselorTypeGenderSexuality CounselorType = "gender_sexuality"
)

func (t CounselorType) Valid() bool {
	switch t {
	case CounselorTypeAcademic, CounselorTypeCareer, CounselorTypeMentalHealth,
		CounselorTypeFamily, CounselorTypeCrisis, CounselorTypeGenderSexuality:
		return true
	}
	return false
}

// CancelledBy сторона, отменившая запись
type CancelledBy string

const (
	CancelledByStudent  CancelledBy = "student"
	CancelledByGuidance CancelledBy = "guidance"
)

type Appointment struct {
	ID                     uuid.UUID         `json:"id"`
	StudentID              string            `json:"student_id"`
	StudentName            string            `json:"student_name"`
	Email                  string            `json:"email"`
	CounselorType          CounselorType     `json:"counselor_type"`
	Date                   string            `json:"date"`      // YYYY-MM-DD
	TimeSlot               string            `json:"time_slot"` // метка слота, например "10:00 AM"
	Purpose                string            `json:"purpose"`
	Status                 AppointmentStatus `json:"status"`
	CancellationReason     *string           `json:"cancellation_reason,omitempty"` // причина отмены или отклонения
	CancellationBy         *CancelledBy      `json:"cancellation_by,omitempty"`
	RequiresAcknowledgment bool              `json:"requires_acknowledgment"`
	Acknowledged           bool              `json:"acknowledged"`
	AcknowledgedAt         *time.Time        `json:"acknowledged_at,omitempty"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// CancelledByGuidance проверяет, что запись отменена консультантом
func (a *Appointment) CancelledByGuidance() bool {
	return a.Status == AppointmentStatusCancelled &&
		a.CancellationBy != nil && *a.CancellationBy == CancelledByGuidance
}

// StatusUpdate описывает переход записи в новый статус
type StatusUpdate struct {
	Status                 AppointmentStatus
	Reason                 *string
	CancellationBy         *CancelledBy
	RequiresAcknowledgment bool
}

// DashboardCounts сырые счётчики для панели консультанта
type DashboardCounts struct {
	ByStatus               map[AppointmentStatus]int `json:"by_status"`
	Total                  int                       `json:"total"`
	AwaitingAcknowledgment int                       `json:"awaiting_acknowledgment"`
}
