// Package utils holds the watermill message plumbing shared by every module
// router: payload (un)marshaling and correlation-id propagation.
package utils

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
)

// NewMessage marshals payload into a fresh message with a generated UUID and
// correlation id.
func NewMessage(payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	middleware.SetCorrelationID(watermill.NewUUID(), msg)
	return msg, nil
}

// NewResultMessage marshals payload into a message that inherits the
// correlation id of the message being handled.
func NewResultMessage(parent *message.Message, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if parent != nil {
		middleware.SetCorrelationID(middleware.MessageCorrelationID(parent), msg)
	}
	return msg, nil
}

// UnmarshalPayload decodes a message body into T.
func UnmarshalPayload[T any](msg *message.Message) (*T, error) {
	var payload T
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %T: %w", payload, err)
	}
	return &payload, nil
}
