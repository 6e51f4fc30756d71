package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	userservice "github.com/goliatone/user-service"
)

// Attribute names stamped on every published message.
const (
	AttrEventType = "event_type"
	AttrEventKey  = "event_key"
	AttrTopic     = "topic"
)

// Publisher sends user events to a queue. It satisfies
// userservice.EventProducer so commit callbacks can publish through it.
type Publisher struct {
	client   SQSAPI
	queueURL string
	logger   userservice.Logger
}

var _ userservice.EventProducer = (*Publisher)(nil)

// NewPublisher returns a Publisher bound to a queue URL.
func NewPublisher(client SQSAPI, queueURL string, logger userservice.Logger) *Publisher {
	if logger == nil {
		logger = userservice.DefaultLogger("BROKER")
	}
	return &Publisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
	}
}

// PublishUserStatusChanged emits a status transition keyed by user id so
// consumers see one user's transitions in order.
func (p *Publisher) PublishUserStatusChanged(ctx context.Context, event userservice.UserStatusChangedEvent) error {
	return p.publish(ctx, userservice.TopicUserStatusEvents, userservice.EventTypeUserStatusChanged, event.UserID, event)
}

// PublishUserRegistered emits an account creation event.
func (p *Publisher) PublishUserRegistered(ctx context.Context, event userservice.UserRegisteredEvent) error {
	return p.publish(ctx, userservice.TopicUserEvents, userservice.EventTypeUserRegistered, event.UserID, event)
}

// PublishUserLoggedIn emits a login event.
func (p *Publisher) PublishUserLoggedIn(ctx context.Context, event userservice.UserLoggedInEvent) error {
	return p.publish(ctx, userservice.TopicUserEvents, userservice.EventTypeUserLoggedIn, event.UserID, event)
}

func (p *Publisher) publish(ctx context.Context, topic, eventType, key string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	messageBody := string(body)
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &messageBody,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			AttrEventType: stringAttribute(eventType),
			AttrEventKey:  stringAttribute(key),
			AttrTopic:     stringAttribute(topic),
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send %s message: %w", eventType, err)
	}

	p.logger.Debug("published %s for %s on %s", eventType, key, topic)
	return nil
}

func stringAttribute(v string) sqstypes.MessageAttributeValue {
	dataType := "String"
	return sqstypes.MessageAttributeValue{
		DataType:    &dataType,
		StringValue: &v,
	}
}
