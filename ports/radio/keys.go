package radio

import "github.com/codewandler/evcorr/core/event"

const (
	NameSystemState     event.Name = "systemState"
	NameConnect         event.Name = "connect"
	NameDisconnect      event.Name = "disconnect"
	NameServices        event.Name = "discoverServices"
	NameCharacteristics event.Name = "discoverCharacteristics"
	NameNotify          event.Name = "setNotify"
	NameValue           event.Name = "value"
)

func StateKey() event.Key {
	return event.Key{Name: NameSystemState}
}

func ConnectKey(peripheral string) event.Key {
	return event.Key{Name: NameConnect, Attrs: PeripheralQuery(peripheral)}
}

func DisconnectKey(peripheral string) event.Key {
	return event.Key{Name: NameDisconnect, Attrs: PeripheralQuery(peripheral)}
}

func ServicesKey(peripheral string) event.Key {
	return event.Key{Name: NameServices, Attrs: PeripheralQuery(peripheral)}
}

func CharacteristicsKey(peripheral, service string) event.Key {
	return event.Key{Name: NameCharacteristics, Attrs: event.Attributes{
		Peripheral: event.IDOf(peripheral),
		Service:    event.IDOf(service),
	}}
}

func NotifyKey(peripheral string, ch CharacteristicRef) event.Key {
	return event.Key{Name: NameNotify, Attrs: characteristicAttrs(peripheral, ch)}
}

// ValueKey correlates both read results and notifications of ch.
func ValueKey(peripheral string, ch CharacteristicRef) event.Key {
	return event.Key{Name: NameValue, Attrs: characteristicAttrs(peripheral, ch)}
}

// PeripheralQuery selects everything registered for peripheral when used as
// wildcard attributes.
func PeripheralQuery(peripheral string) event.Attributes {
	return event.Attributes{Peripheral: event.IDOf(peripheral)}
}

func characteristicAttrs(peripheral string, ch CharacteristicRef) event.Attributes {
	attrs := event.Attributes{
		Peripheral:     event.IDOf(peripheral),
		Service:        event.IDOf(ch.Service),
		Characteristic: event.IDOf(ch.ID),
	}
	if ch.Instance != "" {
		attrs.Instance = event.IDOf(ch.Instance)
	}
	return attrs
}
