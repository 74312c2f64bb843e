package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	ics "github.com/arran4/golang-ical"
)

// sessionLength длительность консультации в календаре
const sessionLength = time.Hour

// CalendarService экспортирует подтверждённые записи студента в iCalendar
type CalendarService struct {
	appointments AppointmentStore
	location     *time.Location
}

func NewCalendarService(appointments AppointmentStore, location *time.Location) *CalendarService {
	return &CalendarService{
		appointments: appointments,
		location:     location,
	}
}

// ExportStudent формирует календарь подтверждённых записей студента
func (s *CalendarService) ExportStudent(ctx context.Context, actor model.Account, studentID string) (string, error) {
	if !actor.OwnsStudentID(studentID) && !actor.IsCounselor() {
		return "", forbidden("export another student's calendar")
	}

	appointments, err := s.appointments.ListByStudentID(ctx, studentID)
	if err != nil {
		return "", storeFailure("list appointments by student", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//guidance_scheduler//appointments//EN")

	for _, a := range appointments {
		if a.Status != model.AppointmentStatusConfirmed {
			continue
		}

		start, err := model.SlotInstant(a.Date, a.TimeSlot, s.location)
		if err != nil {
			continue
		}

		event := cal.AddEvent(a.ID.String())
		event.SetDtStampTime(a.UpdatedAt)
		event.SetStartAt(start)
		event.SetEndAt(start.Add(sessionLength))
		event.SetSummary("Guidance appointment (" + string(a.CounselorType) + ")")
		event.SetDescription(a.Purpose)
		event.SetStatus(ics.ObjectStatusConfirmed)
	}

	return cal.Serialize(), nil
}
