package kafka

import (
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
	HeaderSource    = "source"
	HeaderTimestamp = "timestamp"
)

// Message is a produced record plus the tracing headers every event carries.
type Message struct {
	Key       []byte
	Value     []byte
	EventID   string
	EventType string
	Source    string
	Timestamp time.Time
}

// MessageBuilder assembles a Message. A fresh event ID and timestamp are
// assigned at construction and can be overridden before Build.
type MessageBuilder struct {
	msg Message
}

func NewMessageBuilder() *MessageBuilder {
	return &MessageBuilder{
		msg: Message{
			EventID:   uuid.NewString(),
			Timestamp: time.Now().UTC(),
		},
	}
}

func (b *MessageBuilder) WithKey(key string) *MessageBuilder {
	b.msg.Key = []byte(key)
	return b
}

func (b *MessageBuilder) WithValue(value []byte) *MessageBuilder {
	b.msg.Value = value
	return b
}

func (b *MessageBuilder) WithEventType(eventType string) *MessageBuilder {
	b.msg.EventType = eventType
	return b
}

func (b *MessageBuilder) WithSource(source string) *MessageBuilder {
	b.msg.Source = source
	return b
}

func (b *MessageBuilder) WithEventID(id string) *MessageBuilder {
	b.msg.EventID = id
	return b
}

func (b *MessageBuilder) Build() (Message, error) {
	if len(b.msg.Key) == 0 {
		return Message{}, ErrEmptyKey
	}
	if len(b.msg.Value) == 0 {
		return Message{}, ErrEmptyValue
	}
	return b.msg, nil
}

// toKafkaMessage converts a Message into the wire representation.
func toKafkaMessage(m Message) kafka.Message {
	return kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  m.Timestamp,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(m.EventID)},
			{Key: HeaderEventType, Value: []byte(m.EventType)},
			{Key: HeaderSource, Value: []byte(m.Source)},
			{Key: HeaderTimestamp, Value: []byte(m.Timestamp.Format(time.RFC3339Nano))},
		},
	}
}
