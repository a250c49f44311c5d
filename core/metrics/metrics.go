// Package metrics holds the backend-neutral instrumentation primitives shared
// by the core packages. Backends (see adapters/prometheus) implement them;
// the core only ever sees these interfaces.
package metrics

// Timer measures one operation. Create it when the operation starts and call
// ObserveDuration when it ends:
//
//	defer m.AwaitDuration("connect").ObserveDuration()
type Timer interface {
	ObserveDuration()
}
