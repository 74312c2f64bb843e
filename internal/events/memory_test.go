package events

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/guidance_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testEvent(studentID string) AppointmentChanged {
	return AppointmentChanged{
		AppointmentID: uuid.New(),
		StudentID:     studentID,
		Date:          "2024-03-04",
		TimeSlot:      "10:00 AM",
		Status:        model.AppointmentStatusConfirmed,
		Previous:      model.AppointmentStatusPending,
		At:            time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, sub *Subscription) AppointmentChanged {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		require.True(t, ok, "subscription closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return AppointmentChanged{}
}

func TestMemoryBroker_DeliversToStudentAndCounselorTopics(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	defer b.Close()
	ctx := context.Background()

	studentSub, err := b.Subscribe(ctx, StudentTopic("S-1"))
	require.NoError(t, err)
	defer studentSub.Close()

	counselorSub, err := b.Subscribe(ctx, CounselorTopic)
	require.NoError(t, err)
	defer counselorSub.Close()

	otherSub, err := b.Subscribe(ctx, StudentTopic("S-2"))
	require.NoError(t, err)
	defer otherSub.Close()

	ev := testEvent("S-1")
	require.NoError(t, b.Publish(ctx, ev))

	assert.Equal(t, ev, receive(t, studentSub))
	assert.Equal(t, ev, receive(t, counselorSub))

	select {
	case got := <-otherSub.C:
		t.Fatalf("unexpected event for other student: %+v", got)
	default:
	}
}

func TestMemoryBroker_PreservesOrderWithinTopic(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, StudentTopic("S-1"))
	require.NoError(t, err)
	defer sub.Close()

	first := testEvent("S-1")
	second := testEvent("S-1")
	second.Status = model.AppointmentStatusCancelled

	require.NoError(t, b.Publish(ctx, first))
	require.NoError(t, b.Publish(ctx, second))

	assert.Equal(t, first.AppointmentID, receive(t, sub).AppointmentID)
	assert.Equal(t, second.AppointmentID, receive(t, sub).AppointmentID)
}

func TestMemoryBroker_CloseStopsDelivery(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, CounselorTopic)
	require.NoError(t, err)

	sub.Close()
	sub.Close()

	_, ok := <-sub.C
	assert.False(t, ok)

	require.NoError(t, b.Publish(ctx, testEvent("S-1")))
}

func TestMemoryBroker_ContextCancelClosesSubscription(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := b.Subscribe(ctx, CounselorTopic)
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-sub.C:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed after context cancel")
	}
}

func TestMemoryBroker_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, CounselorTopic)
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < subscriptionBuffer*2; i++ {
		require.NoError(t, b.Publish(ctx, testEvent("S-1")))
	}

	assert.Len(t, sub.C, subscriptionBuffer)
}

func TestMemoryBroker_ClosedBroker(t *testing.T) {
	b := NewMemoryBroker(zap.NewNop())
	require.NoError(t, b.Close())

	_, err := b.Subscribe(context.Background(), CounselorTopic)
	assert.ErrorIs(t, err, ErrBrokerClosed)
	assert.ErrorIs(t, b.Publish(context.Background(), testEvent("S-1")), ErrBrokerClosed)
}
