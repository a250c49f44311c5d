package event

import (
	"fmt"
)

type (
	// Event is anything that declares how it is correlated.
	Event interface {
		Lookup() Lookup
	}

	// Lookup is either an exact key or a wildcard query. Build it with
	// [Exact] or [Wildcard].
	Lookup struct {
		exact bool
		name  Name
		attrs Attributes
	}

	// ErrorEvent reports that the effect registered under Key failed. It
	// rejects waiters and terminates keyed listeners instead of resolving
	// them.
	ErrorEvent struct {
		Key   Key
		Cause error
		// Broadcast matches Key as a wildcard query, so one failure can reject
		// everything registered below a target (e.g. a lost peripheral).
		Broadcast bool
	}
)

// Exact returns a lookup that matches k and nothing else.
func Exact(k Key) Lookup {
	return Lookup{exact: true, name: k.Name, attrs: k.Attrs}
}

// Wildcard returns a lookup that matches every key accepted by
// Match(name, attrs).
func Wildcard(name Name, attrs Attributes) Lookup {
	return Lookup{name: name, attrs: attrs}
}

func (l Lookup) IsExact() bool { return l.exact }

// Key returns the exact key of the lookup; ok is false for wildcards.
func (l Lookup) Key() (k Key, ok bool) {
	if !l.exact {
		return Key{}, false
	}
	return Key{Name: l.name, Attrs: l.attrs}, true
}

func (l Lookup) Predicate() Predicate {
	if l.exact {
		k := Key{Name: l.name, Attrs: l.attrs}
		return func(candidate Key) bool { return candidate == k }
	}
	return Match(l.name, l.attrs)
}

func (l Lookup) Matches(k Key) bool { return l.Predicate()(k) }

func (l Lookup) String() string {
	k := Key{Name: l.name, Attrs: l.attrs}
	if l.exact {
		return "exact:" + k.String()
	}
	if l.name == "" {
		k.Name = "*"
	}
	return "wildcard:" + k.String()
}

func (e ErrorEvent) Lookup() Lookup {
	if e.Broadcast {
		return Wildcard(e.Key.Name, e.Key.Attrs)
	}
	return Exact(e.Key)
}

func (e ErrorEvent) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Key, e.Cause)
}

func (e ErrorEvent) Unwrap() error { return e.Cause }

// AsError reports whether ev is an ErrorEvent, accepting both the value and
// the pointer form.
func AsError(ev Event) (ErrorEvent, bool) {
	switch e := ev.(type) {
	case ErrorEvent:
		return e, true
	case *ErrorEvent:
		if e == nil {
			return ErrorEvent{}, false
		}
		return *e, true
	}
	return ErrorEvent{}, false
}

var (
	_ Event = ErrorEvent{}
	_ error = ErrorEvent{}
)
