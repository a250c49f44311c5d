package dispatch

import (
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/evcorr/core/event"
	"github.com/codewandler/evcorr/internal/reflector"
)

// AttachEventListener registers fn for every event matching key and returns
// the generated listener id.
//
// Success events that are not a T are reported as *TypeMismatchError and the
// listener stays attached. The first ErrorEvent for key is forwarded as an
// *ExternalError and detaches the listener; later events never reach it.
func AttachEventListener[T event.Event](d *Dispatcher, key event.Key, fn func(T, error)) (ListenerID, error) {
	id := ListenerID(gonanoid.Must())
	err := d.attach(func() {
		d.listeners.Attach(id, key, func(ev event.Event) {
			var zero T
			if e, ok := event.AsError(ev); ok {
				fn(zero, &ExternalError{Key: e.Key, Cause: e.Cause})
				return
			}
			v, ok := ev.(T)
			if !ok {
				fn(zero, &TypeMismatchError{
					Key:      key,
					Expected: reflector.TypeInfoFor[T]().Name,
					Actual:   reflector.TypeInfoOf(ev).Name,
				})
				return
			}
			fn(v, nil)
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}
