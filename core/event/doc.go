// Package event defines the correlation model shared by the registries and
// the dispatcher: how an asynchronous event is identified and how it is
// matched against the waiters and listeners that expect it.
//
// # Keys
//
// A [Key] is a [Name] plus a tuple of optional, hierarchical [Attributes]
// (peripheral → service → characteristic → instance → descriptor). Keys are
// comparable and used directly as map keys by the registries.
//
//	k := event.Key{
//	    Name:  "read",
//	    Attrs: event.Attributes{Peripheral: event.IDOf("P1"), Characteristic: event.IDOf("2A19")},
//	}
//
// # Lookups
//
// Every [Event] declares how it must be matched by returning a [Lookup]:
//
//   - [Exact] matches the one key it names via a map hit (fast path).
//   - [Wildcard] matches every registered key whose attributes agree with all
//     attributes set on the query (flexible path). Unset attributes and an
//     empty name match anything.
//
// An [ErrorEvent] always rejects the registrations it matches instead of
// resolving them.
package event
