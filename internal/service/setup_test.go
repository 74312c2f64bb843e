package service

import (
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"go.uber.org/zap"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	slots         *fakeTimeSlotStore
	appointments  *fakeAppointmentStore
	notifications *fakeNotificationStore
	ledger        *fakeLedgerStore
	directory     *fakeDirectory
	deliverer     *fakeDeliverer
	publisher     *recordingPublisher

	registry     *TimeSlotService
	availability *AvailabilityService
	notifier     *NotificationService
	svc          *AppointmentService
	reminders    *ReminderService

	student    *model.Account
	other      *model.Account
	counselors []*model.Account
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()

	env := &testEnv{
		slots:         newFakeTimeSlotStore(),
		appointments:  newFakeAppointmentStore(),
		notifications: &fakeNotificationStore{},
		ledger:        newFakeLedgerStore(),
		deliverer:     &fakeDeliverer{},
		publisher:     &recordingPublisher{},
		student:       studentAccount("2021-0001"),
		other:         studentAccount("2021-0002"),
		counselors:    []*model.Account{counselorAccount("Alice"), counselorAccount("Bob")},
	}

	env.appointments.slots = env.slots

	env.directory = &fakeDirectory{
		accounts: append([]*model.Account{env.student, env.other}, env.counselors...),
	}

	env.registry = NewTimeSlotService(env.slots, logger)
	env.availability = NewAvailabilityService(env.registry, env.appointments)
	env.notifier = NewNotificationService(env.directory, env.notifications, logger, env.deliverer)
	env.svc = NewAppointmentService(env.availability, env.appointments, env.notifier, env.publisher, time.UTC, logger)
	env.svc.now = func() time.Time { return testNow }
	env.reminders = NewReminderService(env.appointments, env.ledger, env.notifier, time.UTC, DefaultReminderLead, logger)

	return env
}

func (e *testEnv) counselor() model.Account {
	return *e.counselors[0]
}

func bookingFor(studentID, date, slot string) BookingRequest {
	return BookingRequest{
		StudentID:     studentID,
		StudentName:   "Student " + studentID,
		Email:         studentID + "@school.test",
		CounselorType: model.CounselorTypeAcademic,
		Date:          date,
		TimeSlot:      slot,
		Purpose:       "course planning",
	}
}
