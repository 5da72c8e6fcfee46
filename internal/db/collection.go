package db

import (
	"context"
	"errors"
)

// FleetSlotName is the name of the durable entry holding the fleet document.
const FleetSlotName = "logi:fleet:v1"

// ErrSlotEmpty is returned by Get when nothing has been stored yet.
var ErrSlotEmpty = errors.New("slot is empty")

// Slot defines a single named durable entry with whole-document read/replace
// semantics.
type Slot interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, value []byte) error
}
