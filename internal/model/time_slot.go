package model

import (
	"fmt"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	MonthLayout     = "2006-01"
	SlotLabelLayout = "3:04 PM"
)

// DefaultSlotLabels шаблон дня, если для даты нет сохранённой конфигурации
var DefaultSlotLabels = []string{
	"9:00 AM",
	"10:00 AM",
	"11:00 AM",
	"12:00 PM",
	"1:00 PM",
	"2:00 PM",
	"3:00 PM",
	"4:00 PM",
}

type SlotEntry struct {
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

// TimeSlotDay конфигурация слотов на календарный день
type TimeSlotDay struct {
	Date      string      `json:"date"`
	Slots     []SlotEntry `json:"slots"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"` // nil - используется шаблон по умолчанию
}

// DefaultSlots возвращает новую копию шаблона, все слоты доступны
func DefaultSlots() []SlotEntry {
	slots := make([]SlotEntry, len(DefaultSlotLabels))
	for i, label := range DefaultSlotLabels {
		slots[i] = SlotEntry{Label: label, Available: true}
	}
	return slots
}

func DefaultTimeSlotDay(date string) *TimeSlotDay {
	return &TimeSlotDay{Date: date, Slots: DefaultSlots()}
}

// Find ищет слот по метке
func (d *TimeSlotDay) Find(label string) (SlotEntry, bool) {
	for _, s := range d.Slots {
		if s.Label == label {
			return s, true
		}
	}
	return SlotEntry{}, false
}

// SlotView слот с признаком занятости
type SlotView struct {
	Label     string `json:"label"`
	Available bool   `json:"available"`
	Booked    bool   `json:"booked"`
}

// ParseDate проверяет формат YYYY-MM-DD
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return t, nil
}

// SlotInstant переводит дату и метку слота в момент начала в заданной зоне
func SlotInstant(date, label string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse(SlotLabelLayout, label)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot label %q: %w", label, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), clock.Hour(), clock.Minute(), 0, 0, loc), nil
}
