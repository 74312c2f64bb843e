package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/events"
	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
)

var errStoreDown = errors.New("connection refused")

// ── TimeSlotStore ──

type fakeTimeSlotStore struct {
	mu     sync.Mutex
	days   map[string]*model.TimeSlotDay
	writes int
}

func newFakeTimeSlotStore() *fakeTimeSlotStore {
	return &fakeTimeSlotStore{days: make(map[string]*model.TimeSlotDay)}
}

func (f *fakeTimeSlotStore) Get(_ context.Context, date string) (*model.TimeSlotDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	day, ok := f.days[date]
	if !ok {
		return nil, nil
	}
	cp := *day
	cp.Slots = append([]model.SlotEntry(nil), day.Slots...)
	return &cp, nil
}

func (f *fakeTimeSlotStore) Upsert(_ context.Context, day *model.TimeSlotDay) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	day.UpdatedAt = &now
	cp := *day
	cp.Slots = append([]model.SlotEntry(nil), day.Slots...)
	f.days[day.Date] = &cp
	f.writes++
	return nil
}

func (f *fakeTimeSlotStore) UpsertMany(ctx context.Context, days []*model.TimeSlotDay) error {
	for _, day := range days {
		if err := f.Upsert(ctx, day); err != nil {
			return err
		}
	}
	return nil
}

// ── AppointmentStore ──

type fakeAppointmentStore struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
	failGet      bool
	// slots источник флага available, читаемого при создании записи
	slots *fakeTimeSlotStore
	// beforeCreate вызывается между предварительной проверкой и созданием записи
	beforeCreate func()
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeAppointmentStore) put(a *model.Appointment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.appointments[a.ID] = &cp
}

func (f *fakeAppointmentStore) CreateIfSlotFree(ctx context.Context, a *model.Appointment) (model.SlotClaim, error) {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}

	if f.slots != nil {
		day, err := f.slots.Get(ctx, a.Date)
		if err != nil {
			return 0, err
		}
		if day == nil {
			day = model.DefaultTimeSlotDay(a.Date)
		}
		if entry, ok := day.Find(a.TimeSlot); !ok || !entry.Available {
			return model.SlotClaimBlocked, nil
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.appointments {
		if existing.Date == a.Date && existing.TimeSlot == a.TimeSlot && existing.Status.IsActive() {
			return model.SlotClaimOccupied, nil
		}
	}

	now := time.Now()
	a.CreatedAt, a.UpdatedAt = now, now
	cp := *a
	f.appointments[a.ID] = &cp
	return model.SlotClaimed, nil
}

func (f *fakeAppointmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failGet {
		return nil, errStoreDown
	}
	a, ok := f.appointments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppointmentStore) filter(keep func(*model.Appointment) bool) []*model.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Appointment
	for _, a := range f.appointments {
		if keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeAppointmentStore) ListActiveByDate(_ context.Context, date string) ([]*model.Appointment, error) {
	return f.filter(func(a *model.Appointment) bool { return a.Date == date && a.Status.IsActive() }), nil
}

func (f *fakeAppointmentStore) ListByDate(_ context.Context, date string) ([]*model.Appointment, error) {
	return f.filter(func(a *model.Appointment) bool { return a.Date == date }), nil
}

func (f *fakeAppointmentStore) ListByStudentID(_ context.Context, studentID string) ([]*model.Appointment, error) {
	return f.filter(func(a *model.Appointment) bool { return a.StudentID == studentID }), nil
}

func (f *fakeAppointmentStore) ListByStatus(_ context.Context, status model.AppointmentStatus) ([]*model.Appointment, error) {
	return f.filter(func(a *model.Appointment) bool { return a.Status == status }), nil
}

func (f *fakeAppointmentStore) ListConfirmedByDates(_ context.Context, dates []string) ([]*model.Appointment, error) {
	want := make(map[string]bool, len(dates))
	for _, d := range dates {
		want[d] = true
	}
	return f.filter(func(a *model.Appointment) bool {
		return want[a.Date] && a.Status == model.AppointmentStatusConfirmed
	}), nil
}

func (f *fakeAppointmentStore) Transition(_ context.Context, id uuid.UUID, from []model.AppointmentStatus, upd model.StatusUpdate) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok {
		return nil, nil
	}

	allowed := false
	for _, s := range from {
		if a.Status == s {
			allowed = true
		}
	}
	if !allowed {
		return nil, nil
	}

	a.Status = upd.Status
	if upd.Reason != nil {
		a.CancellationReason = upd.Reason
	}
	if upd.CancellationBy != nil {
		a.CancellationBy = upd.CancellationBy
	}
	a.RequiresAcknowledgment = a.RequiresAcknowledgment || upd.RequiresAcknowledgment
	if upd.Status == model.AppointmentStatusCancelled {
		a.Acknowledged = false
	}
	a.UpdatedAt = time.Now()

	cp := *a
	return &cp, nil
}

func (f *fakeAppointmentStore) Acknowledge(_ context.Context, id uuid.UUID, at time.Time) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok || !a.CancelledByGuidance() || a.Acknowledged {
		return nil, nil
	}

	a.Acknowledged = true
	a.AcknowledgedAt = &at
	cp := *a
	return &cp, nil
}

func (f *fakeAppointmentStore) CountByStatus(_ context.Context) (map[model.AppointmentStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[model.AppointmentStatus]int)
	for _, a := range f.appointments {
		counts[a.Status]++
	}
	return counts, nil
}

func (f *fakeAppointmentStore) CountAwaitingAcknowledgment(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, a := range f.appointments {
		if a.CancelledByGuidance() && !a.Acknowledged {
			n++
		}
	}
	return n, nil
}

// ── NotificationStore ──

type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []*model.Notification
	fail          bool
}

func (f *fakeNotificationStore) Create(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return errStoreDown
	}
	n.CreatedAt = time.Now()
	cp := *n
	f.notifications = append(f.notifications, &cp)
	return nil
}

func (f *fakeNotificationStore) ListByRecipient(_ context.Context, userID uuid.UUID, unreadOnly bool) ([]*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Notification
	for _, n := range f.notifications {
		if n.UserID == userID && (!unreadOnly || n.Unread) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) find(id, userID uuid.UUID) *model.Notification {
	for _, n := range f.notifications {
		if n.ID == id && n.UserID == userID {
			return n
		}
	}
	return nil
}

func (f *fakeNotificationStore) MarkRead(_ context.Context, id, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.find(id, userID)
	if n == nil {
		return false, nil
	}
	n.Unread = false
	return true, nil
}

func (f *fakeNotificationStore) Acknowledge(_ context.Context, id, userID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.find(id, userID)
	if n == nil {
		return false, nil
	}
	n.Acknowledged, n.Unread = true, false
	return true, nil
}

func (f *fakeNotificationStore) AcknowledgeByAppointment(_ context.Context, appointmentID, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, n := range f.notifications {
		if n.AppointmentID != nil && *n.AppointmentID == appointmentID && n.UserID == userID &&
			n.RequiresAcknowledgment && !n.Acknowledged {
			n.Acknowledged, n.Unread = true, false
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, n := range f.notifications {
		if n.UserID == userID && n.Unread {
			count++
		}
	}
	return count, nil
}

// byType возвращает уведомления типа t
func (f *fakeNotificationStore) byType(t model.NotificationType) []*model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*model.Notification
	for _, n := range f.notifications {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// ── ReminderLedgerStore ──

type fakeLedgerStore struct {
	mu     sync.Mutex
	ids    map[string]map[uuid.UUID]struct{}
	locked map[string]bool
	saves  int
	failed bool
	// getDelay растягивает окно между чтением и сохранением журнала
	getDelay time.Duration
}

func newFakeLedgerStore() *fakeLedgerStore {
	return &fakeLedgerStore{
		ids:    make(map[string]map[uuid.UUID]struct{}),
		locked: make(map[string]bool),
	}
}

func (f *fakeLedgerStore) WithStudentLock(ctx context.Context, studentID string, fn func(ctx context.Context) error) (bool, error) {
	f.mu.Lock()
	if f.locked[studentID] {
		f.mu.Unlock()
		return false, nil
	}
	f.locked[studentID] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.locked, studentID)
		f.mu.Unlock()
	}()

	return true, fn(ctx)
}

func (f *fakeLedgerStore) Get(_ context.Context, studentID string) (*model.ReminderLedger, error) {
	if f.getDelay > 0 {
		time.Sleep(f.getDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	ledger := model.NewReminderLedger(studentID)
	for id := range f.ids[studentID] {
		ledger.AppointmentIDs[id] = struct{}{}
	}
	return ledger, nil
}

func (f *fakeLedgerStore) Save(_ context.Context, ledger *model.ReminderLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failed {
		return errStoreDown
	}
	if f.ids[ledger.StudentID] == nil {
		f.ids[ledger.StudentID] = make(map[uuid.UUID]struct{})
	}
	for _, id := range ledger.Pending() {
		f.ids[ledger.StudentID][id] = struct{}{}
	}
	ledger.MarkSaved()
	f.saves++
	return nil
}

// ── Directory ──

type fakeDirectory struct {
	accounts []*model.Account
	codes    map[string]fakeLinkCode
}

func (d *fakeDirectory) ResolveByStudentID(_ context.Context, studentID string) (*model.Account, error) {
	for _, a := range d.accounts {
		if a.OwnsStudentID(studentID) {
			return a, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) ResolveByUID(_ context.Context, uid uuid.UUID) (*model.Account, error) {
	for _, a := range d.accounts {
		if a.UID == uid {
			return a, nil
		}
	}
	return nil, nil
}

func (d *fakeDirectory) ListByCapability(_ context.Context, c model.Capability) ([]*model.Account, error) {
	var out []*model.Account
	for _, a := range d.accounts {
		if a.Has(c) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (d *fakeDirectory) ResolveByTelegramChatID(_ context.Context, chatID int64) (*model.Account, error) {
	for _, a := range d.accounts {
		if a.TelegramChatID != nil && *a.TelegramChatID == chatID {
			return a, nil
		}
	}
	return nil, nil
}

type fakeLinkCode struct {
	chatID    int64
	expiresAt time.Time
}

func (d *fakeDirectory) SaveTelegramLinkCode(_ context.Context, code string, chatID int64, expiresAt time.Time) error {
	if d.codes == nil {
		d.codes = make(map[string]fakeLinkCode)
	}
	for c, lc := range d.codes {
		if lc.chatID == chatID {
			delete(d.codes, c)
		}
	}
	d.codes[code] = fakeLinkCode{chatID: chatID, expiresAt: expiresAt}
	return nil
}

func (d *fakeDirectory) LinkTelegramByCode(_ context.Context, uid uuid.UUID, code string, now time.Time) (int64, bool, error) {
	lc, ok := d.codes[code]
	if !ok || !lc.expiresAt.After(now) {
		return 0, false, nil
	}

	var target *model.Account
	for _, a := range d.accounts {
		if a.UID == uid {
			target = a
		}
	}
	if target == nil {
		return 0, false, nil
	}

	delete(d.codes, code)
	for _, a := range d.accounts {
		if a != target && a.TelegramChatID != nil && *a.TelegramChatID == lc.chatID {
			a.TelegramChatID = nil
		}
	}
	chatID := lc.chatID
	target.TelegramChatID = &chatID
	return chatID, true, nil
}

func (d *fakeDirectory) ClearTelegramChatID(_ context.Context, uid uuid.UUID) (bool, error) {
	for _, a := range d.accounts {
		if a.UID == uid {
			a.TelegramChatID = nil
			return true, nil
		}
	}
	return false, nil
}

// ── Deliverer ──

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []*model.Notification
	err       error
}

func (d *fakeDeliverer) Name() string { return "fake" }

func (d *fakeDeliverer) Deliver(_ context.Context, _ *model.Account, n *model.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delivered = append(d.delivered, n)
	return d.err
}

// ── Publisher ──

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.AppointmentChanged
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.AppointmentChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

// ── Аккаунты ──

func studentAccount(studentID string) *model.Account {
	id := studentID
	return &model.Account{
		UID:          uuid.New(),
		StudentID:    &id,
		Email:        studentID + "@school.test",
		DisplayName:  "Student " + studentID,
		Capabilities: []model.Capability{model.CapabilityStudent},
	}
}

func counselorAccount(name string) *model.Account {
	return &model.Account{
		UID:          uuid.New(),
		Email:        name + "@school.test",
		DisplayName:  name,
		Capabilities: []model.Capability{model.CapabilityCounselor},
	}
}
