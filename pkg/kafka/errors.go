package kafka

import "errors"

var (
	ErrProducerClosed = errors.New("kafka producer is closed")
	ErrEmptyKey       = errors.New("message key must not be empty")
	ErrEmptyValue     = errors.New("message value must not be empty")
)
