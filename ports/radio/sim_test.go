package radio

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codewandler/evcorr/core/event"
)

type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Enqueue(ev event.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recorder) snapshot() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

var (
	battery = CharacteristicRef{Service: "180F", ID: "2A19"}
	hr      = CharacteristicRef{Service: "180D", ID: "2A37", Instance: "1"}
)

func testPeripheral(id string) Peripheral {
	return Peripheral{ID: id, Services: []Service{
		{ID: "180F", Characteristics: []Characteristic{{ID: "2A19", Value: []byte{87}}}},
		{ID: "180D", Characteristics: []Characteristic{
			{ID: "2A37", Instance: "0"},
			{ID: "2A37", Instance: "1", Value: []byte{60}},
		}},
	}}
}

// newPoweredSim returns a powered sim whose recorder starts empty.
func newPoweredSim(t *testing.T, opts ...SimOption) (*Sim, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := NewSim(rec, opts...)
	t.Cleanup(s.Close)

	require.NoError(t, s.Enable())
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, time.Millisecond)
	rec.mu.Lock()
	rec.events = nil
	rec.mu.Unlock()
	return s, rec
}

func TestSim_requires_power(t *testing.T) {
	s := NewSim(&recorder{})
	defer s.Close()
	s.AddPeripheral(testPeripheral("P1"))

	require.ErrorIs(t, s.Connect("P1"), ErrPoweredOff)
}

func TestSim_enable_power_sequence(t *testing.T) {
	rec := &recorder{}
	s := NewSim(rec, WithPowerSequence(PowerResetting, PowerOn))
	require.NoError(t, s.Enable())
	s.Close()

	require.Equal(t, []event.Event{
		StateChanged{State: PowerResetting},
		StateChanged{State: PowerOn},
	}, rec.snapshot())
	require.Equal(t, PowerOn, s.PowerState())
}

func TestSim_unknown_peripheral(t *testing.T) {
	s, _ := newPoweredSim(t)
	require.ErrorIs(t, s.Connect("nope"), ErrUnknownPeripheral)
}

func TestSim_session(t *testing.T) {
	s, rec := newPoweredSim(t)
	id := s.AddPeripheral(testPeripheral(""))
	require.Len(t, id, 8)

	require.NoError(t, s.Connect(id))
	require.NoError(t, s.DiscoverServices(id, nil))
	require.NoError(t, s.DiscoverCharacteristics(id, "180D", []string{"2A37"}))
	require.NoError(t, s.Read(id, battery))
	require.NoError(t, s.SetNotify(id, hr, true))
	require.NoError(t, s.Disconnect(id))
	s.Close()

	require.Equal(t, []event.Event{
		Connected{Peripheral: id},
		ServicesDiscovered{Peripheral: id, Services: []string{"180F", "180D"}},
		CharacteristicsDiscovered{Peripheral: id, Service: "180D", Characteristics: []CharacteristicRef{
			{Service: "180D", ID: "2A37", Instance: "0"},
			{Service: "180D", ID: "2A37", Instance: "1"},
		}},
		ValueUpdated{Peripheral: id, Characteristic: battery, Value: []byte{87}},
		NotifyStateChanged{Peripheral: id, Characteristic: hr, Enabled: true},
		Disconnected{Peripheral: id},
	}, rec.snapshot())
}

func TestSim_requires_connection(t *testing.T) {
	s, rec := newPoweredSim(t)
	s.AddPeripheral(testPeripheral("P1"))

	require.NoError(t, s.Read("P1", battery))
	s.Close()

	evs := rec.snapshot()
	require.Len(t, evs, 1)
	e, ok := event.AsError(evs[0])
	require.True(t, ok)
	assert.Equal(t, ValueKey("P1", battery), e.Key)
	assert.ErrorIs(t, e, ErrNotConnected)
}

func TestSim_fail_next(t *testing.T) {
	s, rec := newPoweredSim(t)
	s.AddPeripheral(testPeripheral("P1"))

	errDenied := errors.New("denied")
	s.FailNext(ConnectKey("P1"), errDenied)

	require.NoError(t, s.Connect("P1"))
	require.NoError(t, s.Connect("P1"))
	s.Close()

	evs := rec.snapshot()
	require.Len(t, evs, 2)
	e, ok := event.AsError(evs[0])
	require.True(t, ok)
	assert.ErrorIs(t, e, errDenied)
	assert.Equal(t, Connected{Peripheral: "P1"}, evs[1])
}

func TestSim_notify(t *testing.T) {
	s, rec := newPoweredSim(t)
	s.AddPeripheral(testPeripheral("P1"))

	require.NoError(t, s.Connect("P1"))
	require.ErrorIs(t, s.Notify("P1", hr, []byte{1}), ErrNotNotifying)

	require.NoError(t, s.SetNotify("P1", hr, true))
	require.Eventually(t, func() bool { return s.Notify("P1", hr, []byte{72}) == nil }, time.Second, time.Millisecond)
	require.NoError(t, s.Read("P1", hr))
	s.Close()

	evs := rec.snapshot()
	require.Equal(t, ValueUpdated{Peripheral: "P1", Characteristic: hr, Value: []byte{72}}, evs[len(evs)-2])
	require.Equal(t, ValueUpdated{Peripheral: "P1", Characteristic: hr, Value: []byte{72}}, evs[len(evs)-1])
}

func TestSim_drop(t *testing.T) {
	s, rec := newPoweredSim(t)
	s.AddPeripheral(testPeripheral("P1"))

	require.NoError(t, s.Connect("P1"))
	require.NoError(t, s.Drop("P1", nil))
	require.NoError(t, s.Read("P1", battery))
	s.Close()

	evs := rec.snapshot()
	require.Len(t, evs, 4)
	lost, ok := event.AsError(evs[1])
	require.True(t, ok)
	assert.True(t, lost.Broadcast)
	assert.ErrorIs(t, lost, ErrPeripheralLost)
	assert.True(t, lost.Lookup().Matches(ConnectKey("P1")))
	assert.True(t, lost.Lookup().Matches(ValueKey("P1", battery)))
	assert.False(t, lost.Lookup().Matches(ConnectKey("P2")))

	assert.Equal(t, Disconnected{Peripheral: "P1", Reason: ErrPeripheralLost}, evs[2])

	readErr, ok := event.AsError(evs[3])
	require.True(t, ok)
	assert.ErrorIs(t, readErr, ErrNotConnected)
}

func TestSim_per_peripheral_order(t *testing.T) {
	s, rec := newPoweredSim(t, WithLatency(time.Millisecond))
	for _, id := range []string{"A", "B", "C"} {
		s.AddPeripheral(testPeripheral(id))
	}

	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, s.Connect(id))
		for range 5 {
			require.NoError(t, s.Read(id, battery))
		}
		require.NoError(t, s.Disconnect(id))
	}
	s.Close()

	byPeripheral := map[string][]string{}
	for _, ev := range rec.snapshot() {
		switch e := ev.(type) {
		case Connected:
			byPeripheral[e.Peripheral] = append(byPeripheral[e.Peripheral], "connect")
		case ValueUpdated:
			byPeripheral[e.Peripheral] = append(byPeripheral[e.Peripheral], "value")
		case Disconnected:
			byPeripheral[e.Peripheral] = append(byPeripheral[e.Peripheral], "disconnect")
		default:
			t.Fatalf("unexpected event %#v", ev)
		}
	}
	want := []string{"connect", "value", "value", "value", "value", "value", "disconnect"}
	for _, id := range []string{"A", "B", "C"} {
		require.Equal(t, want, byPeripheral[id], id)
	}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "systemState{}", StateKey().String())
	assert.Equal(t, "connect{peripheral=P1}", ConnectKey("P1").String())
	assert.Equal(t, "value{peripheral=P1 service=180F characteristic=2A19}", ValueKey("P1", battery).String())
	assert.Equal(t, "setNotify{peripheral=P1 service=180D characteristic=2A37 instance=1}", NotifyKey("P1", hr).String())
	assert.NotEqual(t, ValueKey("P1", hr), ValueKey("P1", CharacteristicRef{Service: "180D", ID: "2A37", Instance: "0"}))

	assert.Equal(t, ValueUpdated{Peripheral: "P1", Characteristic: hr}.Lookup(), event.Exact(ValueKey("P1", hr)))
	assert.Equal(t, "180D/2A37#1", hr.String())
	assert.Equal(t, "poweredOn", PowerOn.String())
}

func TestSim_read_returns_copy(t *testing.T) {
	s, rec := newPoweredSim(t)
	id := s.AddPeripheral(testPeripheral("P1"))
	require.NoError(t, s.Connect(id))
	require.NoError(t, s.Read(id, battery))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, time.Second, time.Millisecond)

	first := rec.snapshot()[1].(ValueUpdated)
	first.Value[0] = 0

	require.NoError(t, s.Read(id, battery))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, time.Millisecond)
	require.Equal(t, []byte{87}, rec.snapshot()[2].(ValueUpdated).Value)
}
