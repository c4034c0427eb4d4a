package reconcilehandlers

import (
	"github.com/ThreeDotsLabs/watermill/message"
)

// Handlers is the reconcile module's event-handler surface.
type Handlers interface {
	HandlePickupMatchStarted(msg *message.Message) ([]*message.Message, error)
}
