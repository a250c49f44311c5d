// Package effect exposes radio commands as blocking calls.
//
// Every command derives the result key from its target, then lets the
// dispatcher register a waiter and issue the action in one step:
//
//	a := effect.New(d, central)
//	if _, err := a.SystemState(ctx, nil); err != nil { // waits for PowerOn
//	    return err
//	}
//	if _, err := a.Connect(ctx, "P1"); err != nil {
//	    return err
//	}
//	level, err := a.Read(ctx, "P1", radio.CharacteristicRef{Service: "180F", ID: "2A19"})
//
// Errors are the dispatcher's: *dispatch.TriggerError when the central
// refused the action, *dispatch.ExternalError when the action failed later,
// and dispatch.ErrCancelled when ctx ended first.
//
// The adapter watches every event to mirror the power state ([Adapter.State])
// and the last value of each characteristic ([Adapter.LastValue]).
package effect
