package ratinghandlers

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// Handlers is the rating module's event-handler surface.
type Handlers interface {
	HandleMatchCompleted(msg *message.Message) ([]*message.Message, error)
}
