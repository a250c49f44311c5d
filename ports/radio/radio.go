// Package radio is the boundary to a callback-driven BLE central.
//
// A [Central] only issues actions; it never returns their results. Results
// arrive later as events ([StateChanged], [Connected], [ValueUpdated], ...)
// pushed into an [Emitter], typically a dispatch.Dispatcher. Every result
// event is keyed by the helpers in keys.go, so the caller that issued the
// action can await exactly that result.
//
// [Sim] is an in-memory Central for tests and load generation.
package radio

import (
	"errors"
	"fmt"

	"github.com/codewandler/evcorr/core/event"
)

var (
	ErrPoweredOff            = errors.New("radio powered off")
	ErrUnknownPeripheral     = errors.New("unknown peripheral")
	ErrNotConnected          = errors.New("peripheral not connected")
	ErrUnknownService        = errors.New("unknown service")
	ErrUnknownCharacteristic = errors.New("unknown characteristic")
	ErrNotNotifying          = errors.New("notifications not enabled")
	ErrPeripheralLost        = errors.New("peripheral lost")
)

// Central issues radio actions. Implementations must not block: each method
// validates its input, starts the action and returns. An error means the
// action was not started and no result event will follow.
type Central interface {
	Enable() error
	Connect(peripheral string) error
	Disconnect(peripheral string) error
	DiscoverServices(peripheral string, filter []string) error
	DiscoverCharacteristics(peripheral, service string, filter []string) error
	SetNotify(peripheral string, ch CharacteristicRef, enabled bool) error
	Read(peripheral string, ch CharacteristicRef) error
}

// Emitter receives result events. dispatch.Dispatcher implements it.
type Emitter interface {
	Enqueue(ev event.Event) bool
}

type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerResetting
	PowerUnsupported
	PowerUnauthorized
	PowerOff
	PowerOn
)

func (s PowerState) String() string {
	switch s {
	case PowerUnknown:
		return "unknown"
	case PowerResetting:
		return "resetting"
	case PowerUnsupported:
		return "unsupported"
	case PowerUnauthorized:
		return "unauthorized"
	case PowerOff:
		return "poweredOff"
	case PowerOn:
		return "poweredOn"
	}
	return fmt.Sprintf("PowerState(%d)", int(s))
}

// CharacteristicRef addresses a characteristic within a peripheral. Instance
// tells apart characteristics that share an ID within one service.
type CharacteristicRef struct {
	Service  string
	ID       string
	Instance string
}

func (c CharacteristicRef) String() string {
	if c.Instance != "" {
		return fmt.Sprintf("%s/%s#%s", c.Service, c.ID, c.Instance)
	}
	return c.Service + "/" + c.ID
}
