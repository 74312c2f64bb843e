package model

import "github.com/google/uuid"

// ReminderLedger набор записей студента, по которым уже отправлено напоминание
type ReminderLedger struct {
	StudentID      string
	AppointmentIDs map[uuid.UUID]struct{}
	added          []uuid.UUID
}

func NewReminderLedger(studentID string) *ReminderLedger {
	return &ReminderLedger{
		StudentID:      studentID,
		AppointmentIDs: make(map[uuid.UUID]struct{}),
	}
}

func (l *ReminderLedger) Contains(id uuid.UUID) bool {
	_, ok := l.AppointmentIDs[id]
	return ok
}

// Add добавляет запись и запоминает её как ещё не сохранённую
func (l *ReminderLedger) Add(id uuid.UUID) {
	if l.Contains(id) {
		return
	}
	l.AppointmentIDs[id] = struct{}{}
	l.added = append(l.added, id)
}

// Pending возвращает добавленные с момента загрузки записи
func (l *ReminderLedger) Pending() []uuid.UUID {
	return l.added
}

// MarkSaved сбрасывает список несохранённых записей
func (l *ReminderLedger) MarkSaved() {
	l.added = nil
}
