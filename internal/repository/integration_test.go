//go:build integration

package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/app"
	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -tags integration ./internal/repository/ с TEST_DATABASE_DSN на пустую базу

func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := app.NewMigrator(pool, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Run(ctx))
	require.NoError(t, migrator.Close())

	_, err = pool.Exec(ctx, `TRUNCATE notified_appointments, notifications, appointments, available_time_slots, telegram_link_codes, accounts`)
	require.NoError(t, err)

	return pool
}

func newAppointment(studentID, date, slot string) *model.Appointment {
	return &model.Appointment{
		ID:            uuid.New(),
		StudentID:     studentID,
		StudentName:   "Student " + studentID,
		Email:         studentID + "@school.test",
		CounselorType: model.CounselorTypeAcademic,
		Date:          date,
		TimeSlot:      slot,
		Purpose:       "course planning",
		Status:        model.AppointmentStatusPending,
	}
}

func TestAppointmentRepository_ConcurrentBooking(t *testing.T) {
	pool := setupPool(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	const attempts = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claim, err := repo.CreateIfSlotFree(ctx, newAppointment("2021-0001", "2030-03-04", "10:00 AM"))
			assert.NoError(t, err)
			if claim == model.SlotClaimed {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)

	active, err := repo.ListActiveByDate(ctx, "2030-03-04")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestAppointmentRepository_TransitionAndAcknowledge(t *testing.T) {
	pool := setupPool(t)
	repo := NewAppointmentRepository(pool)
	ctx := context.Background()

	a := newAppointment("2021-0001", "2030-03-04", "11:00 AM")
	claim, err := repo.CreateIfSlotFree(ctx, a)
	require.NoError(t, err)
	require.Equal(t, model.SlotClaimed, claim)

	// Неверный исходный статус
	got, err := repo.Transition(ctx, a.ID, []model.AppointmentStatus{model.AppointmentStatusConfirmed},
		model.StatusUpdate{Status: model.AppointmentStatusCompleted})
	require.NoError(t, err)
	assert.Nil(t, got)

	reason := "counselor ill"
	by := model.CancelledByGuidance
	got, err = repo.Transition(ctx, a.ID, model.ActiveStatuses, model.StatusUpdate{
		Status:                 model.AppointmentStatusCancelled,
		Reason:                 &reason,
		CancellationBy:         &by,
		RequiresAcknowledgment: true,
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.CancelledByGuidance())
	assert.True(t, got.RequiresAcknowledgment)

	// Слот освободился
	claim, err = repo.CreateIfSlotFree(ctx, newAppointment("2021-0002", "2030-03-04", "11:00 AM"))
	require.NoError(t, err)
	assert.Equal(t, model.SlotClaimed, claim)

	at := time.Now().UTC().Truncate(time.Second)
	acked, err := repo.Acknowledge(ctx, a.ID, at)
	require.NoError(t, err)
	require.NotNil(t, acked)
	assert.True(t, acked.Acknowledged)

	again, err := repo.Acknowledge(ctx, a.ID, at)
	require.NoError(t, err)
	assert.Nil(t, again)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.AppointmentStatusCancelled])
	assert.Equal(t, 1, counts[model.AppointmentStatusPending])
}

func TestTimeSlotRepository_UpsertMany(t *testing.T) {
	pool := setupPool(t)
	repo := NewTimeSlotRepository(pool)
	ctx := context.Background()

	missing, err := repo.Get(ctx, "2030-03-01")
	require.NoError(t, err)
	assert.Nil(t, missing)

	days := []*model.TimeSlotDay{
		{Date: "2030-03-01", Slots: model.DefaultSlots()},
		{Date: "2030-03-02", Slots: []model.SlotEntry{{Label: "9:00 AM", Available: false}}},
	}
	require.NoError(t, repo.UpsertMany(ctx, days))

	day, err := repo.Get(ctx, "2030-03-02")
	require.NoError(t, err)
	require.NotNil(t, day)
	require.Len(t, day.Slots, 1)
	assert.False(t, day.Slots[0].Available)
	assert.NotNil(t, day.UpdatedAt)
}

func TestAppointmentRepository_BlockedSlot(t *testing.T) {
	pool := setupPool(t)
	repo := NewAppointmentRepository(pool)
	slots := NewTimeSlotRepository(pool)
	ctx := context.Background()

	day := &model.TimeSlotDay{Date: "2030-03-06", Slots: model.DefaultSlots()}
	day.Slots[1].Available = false
	require.NoError(t, slots.Upsert(ctx, day))

	claim, err := repo.CreateIfSlotFree(ctx, newAppointment("2021-0001", "2030-03-06", day.Slots[1].Label))
	require.NoError(t, err)
	assert.Equal(t, model.SlotClaimBlocked, claim)

	// Метка вне конфигурации дня
	claim, err = repo.CreateIfSlotFree(ctx, newAppointment("2021-0001", "2030-03-06", "7:00 PM"))
	require.NoError(t, err)
	assert.Equal(t, model.SlotClaimBlocked, claim)

	claim, err = repo.CreateIfSlotFree(ctx, newAppointment("2021-0001", "2030-03-06", day.Slots[0].Label))
	require.NoError(t, err)
	assert.Equal(t, model.SlotClaimed, claim)

	active, err := repo.ListActiveByDate(ctx, "2030-03-06")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestReminderLedgerRepository(t *testing.T) {
	pool := setupPool(t)
	repo := NewReminderLedgerRepository(pool)
	ctx := context.Background()

	ledger, err := repo.Get(ctx, "2021-0001")
	require.NoError(t, err)
	id := uuid.New()
	ledger.Add(id)
	require.NoError(t, repo.Save(ctx, ledger))
	assert.Empty(t, ledger.Pending())

	reloaded, err := repo.Get(ctx, "2021-0001")
	require.NoError(t, err)
	assert.True(t, reloaded.Contains(id))
}

func TestReminderLedgerRepository_WithStudentLock(t *testing.T) {
	pool := setupPool(t)
	repo := NewReminderLedgerRepository(pool)
	ctx := context.Background()

	locked, err := repo.WithStudentLock(ctx, "2021-0001", func(ctx context.Context) error {
		// Второй экземпляр не получает блокировку того же студента
		inner, err := repo.WithStudentLock(ctx, "2021-0001", func(context.Context) error {
			t.Fatal("nested scan must not run")
			return nil
		})
		require.NoError(t, err)
		assert.False(t, inner)

		other, err := repo.WithStudentLock(ctx, "2021-0002", func(context.Context) error { return nil })
		require.NoError(t, err)
		assert.True(t, other)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, locked)

	// После коммита блокировка снята
	locked, err = repo.WithStudentLock(ctx, "2021-0001", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, locked)
}

func TestAccountAndNotificationRepositories(t *testing.T) {
	pool := setupPool(t)
	accounts := NewAccountRepository(pool)
	notifications := NewNotificationRepository(pool)
	appointments := NewAppointmentRepository(pool)
	ctx := context.Background()

	studentID := "2021-0001"
	student := &model.Account{UID: uuid.New(), StudentID: &studentID, Email: "s@school.test", Capabilities: []model.Capability{model.CapabilityStudent}}
	counselor := &model.Account{UID: uuid.New(), Email: "c@school.test", Capabilities: []model.Capability{model.CapabilityCounselor}}
	require.NoError(t, accounts.Create(ctx, student))
	require.NoError(t, accounts.Create(ctx, counselor))

	resolved, err := accounts.ResolveByStudentID(ctx, studentID)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, student.UID, resolved.UID)

	counselors, err := accounts.ListByCapability(ctx, model.CapabilityCounselor)
	require.NoError(t, err)
	require.Len(t, counselors, 1)
	assert.Equal(t, counselor.UID, counselors[0].UID)

	a := newAppointment(studentID, "2030-03-05", "9:00 AM")
	claim, err := appointments.CreateIfSlotFree(ctx, a)
	require.NoError(t, err)
	require.Equal(t, model.SlotClaimed, claim)

	appointmentID := a.ID
	n := &model.Notification{
		ID:                     uuid.New(),
		UserID:                 student.UID,
		Type:                   model.NotificationAppointmentStatus,
		Title:                  "Appointment Cancelled",
		Message:                "cancelled",
		AppointmentID:          &appointmentID,
		Unread:                 true,
		RequiresAcknowledgment: true,
	}
	require.NoError(t, notifications.Create(ctx, n))

	unread, err := notifications.CountUnread(ctx, student.UID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	acked, err := notifications.AcknowledgeByAppointment(ctx, appointmentID, student.UID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, acked)

	ok, err := notifications.MarkRead(ctx, n.ID, counselor.UID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccountRepository_TelegramLinkCodes(t *testing.T) {
	pool := setupPool(t)
	accounts := NewAccountRepository(pool)
	ctx := context.Background()
	now := time.Now()

	first := &model.Account{UID: uuid.New(), Capabilities: []model.Capability{model.CapabilityStudent}}
	second := &model.Account{UID: uuid.New(), Capabilities: []model.Capability{model.CapabilityStudent}}
	require.NoError(t, accounts.Create(ctx, first))
	require.NoError(t, accounts.Create(ctx, second))

	require.NoError(t, accounts.SaveTelegramLinkCode(ctx, "AAAA1111", 900, now.Add(10*time.Minute)))

	// Неизвестный аккаунт не погашает код
	_, linked, err := accounts.LinkTelegramByCode(ctx, uuid.New(), "AAAA1111", now)
	require.NoError(t, err)
	assert.False(t, linked)

	chatID, linked, err := accounts.LinkTelegramByCode(ctx, first.UID, "AAAA1111", now)
	require.NoError(t, err)
	require.True(t, linked)
	assert.Equal(t, int64(900), chatID)

	// Код одноразовый
	_, linked, err = accounts.LinkTelegramByCode(ctx, second.UID, "AAAA1111", now)
	require.NoError(t, err)
	assert.False(t, linked)

	// Новый код того же чата переносит привязку
	require.NoError(t, accounts.SaveTelegramLinkCode(ctx, "BBBB2222", 900, now.Add(10*time.Minute)))
	_, linked, err = accounts.LinkTelegramByCode(ctx, second.UID, "BBBB2222", now)
	require.NoError(t, err)
	require.True(t, linked)

	owner, err := accounts.ResolveByTelegramChatID(ctx, 900)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, second.UID, owner.UID)

	reloaded, err := accounts.ResolveByUID(ctx, first.UID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.TelegramChatID)

	require.NoError(t, accounts.SaveTelegramLinkCode(ctx, "CCCC3333", 901, now.Add(-time.Minute)))
	_, linked, err = accounts.LinkTelegramByCode(ctx, first.UID, "CCCC3333", now)
	require.NoError(t, err)
	assert.False(t, linked)

	cleared, err := accounts.ClearTelegramChatID(ctx, second.UID)
	require.NoError(t, err)
	assert.True(t, cleared)

	owner, err = accounts.ResolveByTelegramChatID(ctx, 900)
	require.NoError(t, err)
	assert.Nil(t, owner)
}
