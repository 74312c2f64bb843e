package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type memorySubscriber struct {
	ch chan AppointmentChanged
}

// MemoryBroker брокер внутри процесса, используется без Redis
type MemoryBroker struct {
	mu     sync.RWMutex
	topics map[string]map[*memorySubscriber]struct{}
	closed bool
	logger *zap.Logger
}

func NewMemoryBroker(logger *zap.Logger) *MemoryBroker {
	return &MemoryBroker{
		topics: make(map[string]map[*memorySubscriber]struct{}),
		logger: logger,
	}
}

// Publish рассылает событие без блокировки: медленный подписчик теряет событие
func (b *MemoryBroker) Publish(_ context.Context, ev AppointmentChanged) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBrokerClosed
	}

	for _, topic := range ev.Topics() {
		for sub := range b.topics[topic] {
			select {
			case sub.ch <- ev:
			default:
				b.logger.Warn("Subscriber buffer full, event dropped",
					zap.String("topic", topic),
					zap.String("appointment_id", ev.AppointmentID.String()),
				)
			}
		}
	}

	return nil
}

// Subscribe подписывается на топик; подписка закрывается при отмене ctx или вызове Close
func (b *MemoryBroker) Subscribe(ctx context.Context, topic string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBrokerClosed
	}

	sub := &memorySubscriber{ch: make(chan AppointmentChanged, subscriptionBuffer)}
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*memorySubscriber]struct{})
	}
	b.topics[topic][sub] = struct{}{}

	done := make(chan struct{})
	subscription := newSubscription(sub.ch, func() {
		close(done)
		b.remove(topic, sub)
	})

	go func() {
		select {
		case <-ctx.Done():
			subscription.Close()
		case <-done:
		}
	}()

	return subscription, nil
}

func (b *MemoryBroker) remove(topic string, sub *memorySubscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[topic]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}

	delete(subs, sub)
	if len(subs) == 0 {
		delete(b.topics, topic)
	}
	close(sub.ch)
}

// Close закрывает все подписки
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for topic, subs := range b.topics {
		for sub := range subs {
			close(sub.ch)
		}
		delete(b.topics, topic)
	}

	return nil
}
