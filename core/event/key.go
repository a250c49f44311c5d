package event

import (
	"fmt"
	"strings"
)

type (
	// Name identifies the kind of result an effect produces (e.g. "connect").
	Name string

	// ID is an optional identifier. The zero ID is unset; in a wildcard query
	// an unset ID matches any value.
	ID struct {
		v   string
		set bool
	}

	// Attributes locate an event in the target hierarchy. All fields are
	// optional.
	Attributes struct {
		Peripheral     ID
		Service        ID
		Characteristic ID
		Instance       ID
		Descriptor     ID
	}

	// Key is the exact correlation identity of an event.
	Key struct {
		Name  Name
		Attrs Attributes
	}

	// Predicate reports whether a registered key is matched by a query.
	Predicate func(Key) bool
)

// IDOf returns a set ID holding v. The empty string is a valid, set value.
func IDOf(v string) ID { return ID{v: v, set: true} }

// Value returns the identifier and whether it is set.
func (i ID) Value() (string, bool) { return i.v, i.set }

func (i ID) IsSet() bool { return i.set }

func (i ID) String() string {
	if !i.set {
		return "*"
	}
	return i.v
}

// matches reports whether the candidate c satisfies the query field i.
func (i ID) matches(c ID) bool {
	return !i.set || i == c
}

// Matches reports whether every set attribute of a equals the corresponding
// attribute of candidate.
func (a Attributes) Matches(candidate Attributes) bool {
	return a.Peripheral.matches(candidate.Peripheral) &&
		a.Service.matches(candidate.Service) &&
		a.Characteristic.matches(candidate.Characteristic) &&
		a.Instance.matches(candidate.Instance) &&
		a.Descriptor.matches(candidate.Descriptor)
}

func (a Attributes) String() string {
	var sb strings.Builder
	write := func(label string, id ID) {
		if !id.set {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(label)
		sb.WriteByte('=')
		sb.WriteString(id.v)
	}
	write("peripheral", a.Peripheral)
	write("service", a.Service)
	write("characteristic", a.Characteristic)
	write("instance", a.Instance)
	write("descriptor", a.Descriptor)
	return sb.String()
}

func (k Key) String() string {
	if attrs := k.Attrs.String(); attrs != "" {
		return fmt.Sprintf("%s{%s}", k.Name, attrs)
	}
	return string(k.Name) + "{}"
}

// Match builds a wildcard predicate. An empty name matches any name.
func Match(name Name, attrs Attributes) Predicate {
	return func(candidate Key) bool {
		if name != "" && name != candidate.Name {
			return false
		}
		return attrs.Matches(candidate.Attrs)
	}
}
