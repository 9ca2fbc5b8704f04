package messaging

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

const contentTypeHeader = "content-type"

// MessageCarrier adapts Kafka message headers to the OpenTelemetry
// TextMapCarrier interface.
type MessageCarrier struct {
	msg *kafka.Message
}

func NewMessageCarrier(msg *kafka.Message) *MessageCarrier {
	return &MessageCarrier{msg: msg}
}

func (c *MessageCarrier) Get(key string) string {
	return header(c.msg, key)
}

func (c *MessageCarrier) Set(key, value string) {
	setHeader(c.msg, key, value)
}

func (c *MessageCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// injectTrace writes the span context of ctx into the message headers.
func injectTrace(ctx context.Context, msg *kafka.Message) {
	otel.GetTextMapPropagator().Inject(ctx, NewMessageCarrier(msg))
}

// extractTrace returns ctx carrying the producer's span context, if any.
func extractTrace(ctx context.Context, msg *kafka.Message) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, NewMessageCarrier(msg))
}

func header(msg *kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// setHeader replaces the first header named key, or appends one.
func setHeader(msg *kafka.Message, key, value string) {
	for i, h := range msg.Headers {
		if h.Key == key {
			msg.Headers[i].Value = []byte(value)
			return
		}
	}
	msg.Headers = append(msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}
