// Package events доставляет изменения записей подписчикам в виде потока.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
)

// CounselorTopic общий топик для всех консультантов
const CounselorTopic = "counselors"

// subscriptionBuffer размер буфера канала подписки
const subscriptionBuffer = 32

// StudentTopic топик изменений записей конкретного студента
func StudentTopic(studentID string) string {
	return "student:" + studentID
}

// AppointmentChanged событие изменения записи
type AppointmentChanged struct {
	AppointmentID uuid.UUID               `json:"appointment_id"`
	StudentID     string                  `json:"student_id"`
	Date          string                  `json:"date"`
	TimeSlot      string                  `json:"time_slot"`
	Status        model.AppointmentStatus `json:"status"`
	Previous      model.AppointmentStatus `json:"previous,omitempty"` // пусто для новой записи
	At            time.Time               `json:"at"`
}

// NewAppointmentChanged собирает событие из записи
func NewAppointmentChanged(a *model.Appointment, previous model.AppointmentStatus, at time.Time) AppointmentChanged {
	return AppointmentChanged{
		AppointmentID: a.ID,
		StudentID:     a.StudentID,
		Date:          a.Date,
		TimeSlot:      a.TimeSlot,
		Status:        a.Status,
		Previous:      previous,
		At:            at,
	}
}

// Topics топики, в которые публикуется событие
func (e AppointmentChanged) Topics() []string {
	return []string{StudentTopic(e.StudentID), CounselorTopic}
}

type Publisher interface {
	Publish(ctx context.Context, ev AppointmentChanged) error
}

type Broker interface {
	Publisher
	Subscribe(ctx context.Context, topic string) (*Subscription, error)
	Close() error
}

// Subscription поток событий одного топика. Close обязателен, когда события больше не нужны.
type Subscription struct {
	C <-chan AppointmentChanged

	closeOnce sync.Once
	stop      func()
}

func newSubscription(c <-chan AppointmentChanged, stop func()) *Subscription {
	return &Subscription{C: c, stop: stop}
}

// Close отписывается; повторный вызов ничего не делает
func (s *Subscription) Close() {
	s.closeOnce.Do(s.stop)
}
