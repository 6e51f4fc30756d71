package broker

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	userservice "github.com/goliatone/user-service"
)

// MessageHandler processes one raw message body. Returning an error leaves
// the message on the queue for redelivery.
type MessageHandler func(ctx context.Context, payload []byte) error

// Consumer long polls a queue and feeds each message to a handler. Messages
// are deleted only after the handler succeeds, so at least once delivery is
// the contract and handlers must be idempotent.
type Consumer struct {
	client    SQSAPI
	queueURL  string
	waitTime  int32
	batchSize int32
	logger    userservice.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithWaitTime overrides the long poll duration in seconds.
func WithWaitTime(seconds int32) ConsumerOption {
	return func(c *Consumer) {
		if seconds > 0 {
			c.waitTime = seconds
		}
	}
}

// WithBatchSize overrides how many messages each poll fetches.
func WithBatchSize(size int32) ConsumerOption {
	return func(c *Consumer) {
		if size > 0 && size <= 10 {
			c.batchSize = size
		}
	}
}

// NewConsumer returns a Consumer bound to a queue URL.
func NewConsumer(client SQSAPI, queueURL string, logger userservice.Logger, opts ...ConsumerOption) *Consumer {
	if logger == nil {
		logger = userservice.DefaultLogger("CONSUMER")
	}

	c := &Consumer{
		client:    client,
		queueURL:  queueURL,
		waitTime:  20,
		batchSize: 10,
		logger:    logger,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Run polls until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &c.queueURL,
			MaxNumberOfMessages:   c.batchSize,
			WaitTimeSeconds:       c.waitTime,
			MessageAttributeNames: []string{"All"},
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("receive failed: %v", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for _, msg := range out.Messages {
			var payload []byte
			if msg.Body != nil {
				payload = []byte(*msg.Body)
			}

			if err := handler(ctx, payload); err != nil {
				c.logger.Error("handler failed, leaving message for redelivery: %v", err)
				continue
			}

			if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      &c.queueURL,
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				c.logger.Error("delete failed, message will redeliver: %v", err)
			}
		}
	}
}
