package azbus

import (
	"context"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
)

func stringValue(ptr *string, fallback string) string {
	if ptr == nil || *ptr == "" {
		return fallback
	}
	return *ptr
}

type ErrorEntry struct {
	Count      int       `json:"count"`
	SampleBody string    `json:"sample_body"`
	LastSeen   time.Time `json:"last_seen"`
}

// DeadLetterRegistry groups dead-lettered messages by reason and
// description, keeping the first body seen as a sample.
type DeadLetterRegistry struct {
	mu     sync.RWMutex
	now    func() time.Time
	errors map[string]*ErrorEntry
}

func NewDeadLetterRegistry() *DeadLetterRegistry {
	return &DeadLetterRegistry{
		now:    time.Now,
		errors: make(map[string]*ErrorEntry),
	}
}

func (r *DeadLetterRegistry) Add(key string, body []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if e, ok := r.errors[key]; ok {
		e.Count++
		e.LastSeen = now
		return
	}
	r.errors[key] = &ErrorEntry{
		Count:      1,
		SampleBody: string(body),
		LastSeen:   now,
	}
}

func (r *DeadLetterRegistry) List() map[string]ErrorEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]ErrorEntry, len(r.errors))
	for k, v := range r.errors {
		out[k] = *v
	}
	return out
}

type deadLetterReceiver interface {
	ReceiveMessages(ctx context.Context, maxMessages int, options *azservicebus.ReceiveMessagesOptions) ([]*azservicebus.ReceivedMessage, error)
	CompleteMessage(ctx context.Context, message *azservicebus.ReceivedMessage, options *azservicebus.CompleteMessageOptions) error
}

// RunDeadLetterConsumer drains the dead-letter queue of the subscription
// into the registry until ctx is cancelled.
func RunDeadLetterConsumer(ctx context.Context, client *azservicebus.Client, topic, subscription string, registry *DeadLetterRegistry, logger logrus.FieldLogger) error {
	receiver, err := client.NewReceiverForSubscription(topic, subscription, &azservicebus.ReceiverOptions{
		SubQueue: azservicebus.SubQueueDeadLetter,
	})
	if err != nil {
		return errors.Wrap(err, "create dead-letter receiver")
	}
	defer receiver.Close(context.Background())

	return consumeDeadLetters(ctx, receiver, registry, logger)
}

func consumeDeadLetters(ctx context.Context, receiver deadLetterReceiver, registry *DeadLetterRegistry, logger logrus.FieldLogger) error {
	for {
		msgs, err := receiver.ReceiveMessages(ctx, 10, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "receive dead letters")
		}

		if len(msgs) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
			continue
		}

		for _, msg := range msgs {
			reason := stringValue(msg.DeadLetterReason, "UNKNOWN_REASON")
			desc := stringValue(msg.DeadLetterErrorDescription, "UNKNOWN_ERROR")
			key := reason + " | " + desc

			registry.Add(key, msg.Body)
			if err := receiver.CompleteMessage(ctx, msg, nil); err != nil {
				logger.WithError(err).WithField("key", key).Warn("[dlq] complete failed")
			}
		}
	}
}
