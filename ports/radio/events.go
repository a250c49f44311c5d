package radio

import "github.com/codewandler/evcorr/core/event"

type (
	StateChanged struct {
		State PowerState
	}

	Connected struct {
		Peripheral string
	}

	// Disconnected follows a Disconnect call or an unexpected link loss, in
	// which case Reason is set.
	Disconnected struct {
		Peripheral string
		Reason     error
	}

	ServicesDiscovered struct {
		Peripheral string
		Services   []string
	}

	CharacteristicsDiscovered struct {
		Peripheral      string
		Service         string
		Characteristics []CharacteristicRef
	}

	NotifyStateChanged struct {
		Peripheral     string
		Characteristic CharacteristicRef
		Enabled        bool
	}

	// ValueUpdated carries a read result or a notification.
	ValueUpdated struct {
		Peripheral     string
		Characteristic CharacteristicRef
		Value          []byte
	}
)

func (e StateChanged) Lookup() event.Lookup { return event.Exact(StateKey()) }
func (e Connected) Lookup() event.Lookup    { return event.Exact(ConnectKey(e.Peripheral)) }
func (e Disconnected) Lookup() event.Lookup { return event.Exact(DisconnectKey(e.Peripheral)) }
func (e ServicesDiscovered) Lookup() event.Lookup {
	return event.Exact(ServicesKey(e.Peripheral))
}
func (e CharacteristicsDiscovered) Lookup() event.Lookup {
	return event.Exact(CharacteristicsKey(e.Peripheral, e.Service))
}
func (e NotifyStateChanged) Lookup() event.Lookup {
	return event.Exact(NotifyKey(e.Peripheral, e.Characteristic))
}
func (e ValueUpdated) Lookup() event.Lookup {
	return event.Exact(ValueKey(e.Peripheral, e.Characteristic))
}

var (
	_ event.Event = StateChanged{}
	_ event.Event = Connected{}
	_ event.Event = Disconnected{}
	_ event.Event = ServicesDiscovered{}
	_ event.Event = CharacteristicsDiscovered{}
	_ event.Event = NotifyStateChanged{}
	_ event.Event = ValueUpdated{}
)
