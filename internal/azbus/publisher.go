// Package azbus fans registry change messages out over an Azure Service Bus
// topic and consumes them on every instance's subscription.
package azbus

import (
	"context"
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/go-faster/errors"

	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/metrics"
)

const sinkName = "servicebus"

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// Publisher sends one message per committed write. Messages for the same
// document share a session so subscribers see them in order.
type Publisher struct {
	sender messageSender
	topic  string
}

func NewPublisher(client *azservicebus.Client, topic string) (*Publisher, error) {
	sender, err := client.NewSender(topic, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "create sender for %s", topic)
	}
	return &Publisher{sender: sender, topic: topic}, nil
}

func (p *Publisher) Notify(ctx context.Context, msg dto.ChangeMessage) (err error) {
	defer func() { metrics.RecordNotification(sinkName, err) }()

	if err := msg.Validate(); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	sessionID := msg.DocumentID
	subject := string(msg.Action)
	contentType := "application/json"
	err = p.sender.SendMessage(ctx, &azservicebus.Message{
		Body:        body,
		SessionID:   &sessionID,
		Subject:     &subject,
		ContentType: &contentType,
	}, nil)
	return errors.Wrapf(err, "send to %s", p.topic)
}

func (p *Publisher) Close(ctx context.Context) error {
	return p.sender.Close(ctx)
}
