package radio

import (
	"bytes"
	"log/slog"
	"slices"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/codewandler/evcorr/core/event"
	"github.com/codewandler/evcorr/core/perkey"
)

type (
	Peripheral struct {
		ID       string
		Services []Service
	}

	Service struct {
		ID              string
		Characteristics []Characteristic
	}

	Characteristic struct {
		ID       string
		Instance string
		Value    []byte
	}

	SimOption func(*Sim)
)

// WithLatency delays every result by d.
func WithLatency(d time.Duration) SimOption {
	return func(s *Sim) { s.latency = d }
}

// WithPowerSequence sets the states reported after Enable, in order. The
// default is a single PowerOn.
func WithPowerSequence(states ...PowerState) SimOption {
	return func(s *Sim) {
		if len(states) > 0 {
			s.powerSeq = states
		}
	}
}

func WithSimLogger(log *slog.Logger) SimOption {
	return func(s *Sim) { s.log = log }
}

// centralQueue serializes results that belong to no peripheral.
const centralQueue = ""

// Sim is an in-memory Central. Results for one peripheral are emitted in the
// order their actions were issued; different peripherals progress
// independently.
type Sim struct {
	emit     Emitter
	sched    *perkey.Scheduler[string]
	log      *slog.Logger
	latency  time.Duration
	powerSeq []PowerState

	mu          sync.Mutex
	state       PowerState
	peripherals map[string]*Peripheral
	connected   map[string]bool
	notifying   map[event.Key]bool
	failures    map[event.Key][]error
}

func NewSim(emit Emitter, opts ...SimOption) *Sim {
	s := &Sim{
		emit:        emit,
		sched:       perkey.New[string](),
		log:         slog.Default(),
		powerSeq:    []PowerState{PowerOn},
		state:       PowerOff,
		peripherals: make(map[string]*Peripheral),
		connected:   make(map[string]bool),
		notifying:   make(map[event.Key]bool),
		failures:    make(map[event.Key][]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(slog.String("component", "radio.sim"))
	return s
}

// AddPeripheral makes p discoverable and returns its id, generating one when
// p.ID is empty.
func (s *Sim) AddPeripheral(p Peripheral) string {
	if p.ID == "" {
		p.ID = gonanoid.Must(8)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peripherals[p.ID] = &p
	return p.ID
}

// FailNext makes the next result for key an ErrorEvent carrying cause.
// Multiple calls queue up.
func (s *Sim) FailNext(key event.Key, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[key] = append(s.failures[key], cause)
}

// PowerState returns the state reported most recently.
func (s *Sim) PowerState() PowerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close waits for every scheduled result to be emitted.
func (s *Sim) Close() { s.sched.Close() }

func (s *Sim) Enable() error {
	seq := slices.Clone(s.powerSeq)
	return s.schedule(centralQueue, func() {
		for _, st := range seq {
			s.mu.Lock()
			s.state = st
			s.mu.Unlock()
			s.send(StateKey(), StateChanged{State: st})
		}
	})
}

func (s *Sim) Connect(peripheral string) error {
	if err := s.check(peripheral); err != nil {
		return err
	}
	return s.schedule(peripheral, func() {
		s.mu.Lock()
		s.connected[peripheral] = true
		s.mu.Unlock()
		s.send(ConnectKey(peripheral), Connected{Peripheral: peripheral})
	})
}

func (s *Sim) Disconnect(peripheral string) error {
	if err := s.check(peripheral); err != nil {
		return err
	}
	return s.schedule(peripheral, func() {
		s.disconnect(peripheral)
		s.send(DisconnectKey(peripheral), Disconnected{Peripheral: peripheral})
	})
}

func (s *Sim) DiscoverServices(peripheral string, filter []string) error {
	if err := s.check(peripheral); err != nil {
		return err
	}
	key := ServicesKey(peripheral)
	return s.schedule(peripheral, func() {
		p, err := s.connectedPeripheral(peripheral)
		if err != nil {
			s.fail(key, err)
			return
		}
		var ids []string
		for _, svc := range p.Services {
			if matchesFilter(filter, svc.ID) {
				ids = append(ids, svc.ID)
			}
		}
		s.send(key, ServicesDiscovered{Peripheral: peripheral, Services: ids})
	})
}

func (s *Sim) DiscoverCharacteristics(peripheral, service string, filter []string) error {
	if err := s.check(peripheral); err != nil {
		return err
	}
	key := CharacteristicsKey(peripheral, service)
	return s.schedule(peripheral, func() {
		p, err := s.connectedPeripheral(peripheral)
		if err != nil {
			s.fail(key, err)
			return
		}
		idx := slices.IndexFunc(p.Services, func(svc Service) bool { return svc.ID == service })
		if idx < 0 {
			s.fail(key, ErrUnknownService)
			return
		}
		var refs []CharacteristicRef
		for _, c := range p.Services[idx].Characteristics {
			if matchesFilter(filter, c.ID) {
				refs = append(refs, CharacteristicRef{Service: service, ID: c.ID, Instance: c.Instance})
			}
		}
		s.send(key, CharacteristicsDiscovered{Peripheral: peripheral, Service: service, Characteristics: refs})
	})
}

func (s *Sim) SetNotify(peripheral string, ch CharacteristicRef, enabled bool) error {
	if err := s.check(peripheral); err != nil {
		return err
	}
	key := NotifyKey(peripheral, ch)
	return s.schedule(peripheral, func() {
		if _, err := s.characteristic(peripheral, ch); err != nil {
			s.fail(key, err)
			return
		}
		s.mu.Lock()
		if enabled {
			s.notifying[ValueKey(peripheral, ch)] = true
		} else {
			delete(s.notifying, ValueKey(peripheral, ch))
		}
		s.mu.Unlock()
		s.send(key, NotifyStateChanged{Peripheral: peripheral, Characteristic: ch, Enabled: enabled})
	})
}

func (s *Sim) Read(peripheral string, ch CharacteristicRef) error {
	if err := s.check(peripheral); err != nil {
		return err
	}
	key := ValueKey(peripheral, ch)
	return s.schedule(peripheral, func() {
		c, err := s.characteristic(peripheral, ch)
		if err != nil {
			s.fail(key, err)
			return
		}
		s.mu.Lock()
		value := bytes.Clone(c.Value)
		s.mu.Unlock()
		s.send(key, ValueUpdated{Peripheral: peripheral, Characteristic: ch, Value: value})
	})
}

// Notify stores value and pushes it as a notification. Notifications must
// have been enabled with SetNotify.
func (s *Sim) Notify(peripheral string, ch CharacteristicRef, value []byte) error {
	key := ValueKey(peripheral, ch)
	s.mu.Lock()
	on := s.notifying[key]
	s.mu.Unlock()
	if !on {
		return ErrNotNotifying
	}
	value = bytes.Clone(value)
	return s.schedule(peripheral, func() {
		c, err := s.characteristic(peripheral, ch)
		if err != nil {
			s.fail(key, err)
			return
		}
		s.mu.Lock()
		c.Value = value
		s.mu.Unlock()
		s.send(key, ValueUpdated{Peripheral: peripheral, Characteristic: ch, Value: value})
	})
}

// Drop simulates losing the link to peripheral: every pending operation for
// it fails with cause (ErrPeripheralLost when nil), then Disconnected is
// reported.
func (s *Sim) Drop(peripheral string, cause error) error {
	if cause == nil {
		cause = ErrPeripheralLost
	}
	return s.schedule(peripheral, func() {
		s.disconnect(peripheral)
		s.emit.Enqueue(event.ErrorEvent{
			Key:       event.Key{Attrs: PeripheralQuery(peripheral)},
			Cause:     cause,
			Broadcast: true,
		})
		s.emit.Enqueue(Disconnected{Peripheral: peripheral, Reason: cause})
		s.log.Debug("peripheral dropped", slog.String("peripheral", peripheral), slog.Any("cause", cause))
	})
}

// ---- internals ----

func (s *Sim) check(peripheral string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != PowerOn {
		return ErrPoweredOff
	}
	if _, ok := s.peripherals[peripheral]; !ok {
		return ErrUnknownPeripheral
	}
	return nil
}

func (s *Sim) schedule(queue string, fn func()) error {
	return s.sched.Go(queue, func() {
		if s.latency > 0 {
			time.Sleep(s.latency)
		}
		fn()
	})
}

// send emits ev for key unless a failure was injected for it.
func (s *Sim) send(key event.Key, ev event.Event) {
	s.mu.Lock()
	var cause error
	if causes := s.failures[key]; len(causes) > 0 {
		cause = causes[0]
		if len(causes) == 1 {
			delete(s.failures, key)
		} else {
			s.failures[key] = causes[1:]
		}
	}
	s.mu.Unlock()

	if cause != nil {
		s.fail(key, cause)
		return
	}
	s.emit.Enqueue(ev)
}

func (s *Sim) fail(key event.Key, cause error) {
	s.log.Debug("operation failed", slog.String("key", key.String()), slog.Any("cause", cause))
	s.emit.Enqueue(event.ErrorEvent{Key: key, Cause: cause})
}

func (s *Sim) disconnect(peripheral string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connected, peripheral)
	for k := range s.notifying {
		if k.Attrs.Peripheral == event.IDOf(peripheral) {
			delete(s.notifying, k)
		}
	}
}

func (s *Sim) connectedPeripheral(id string) (*Peripheral, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peripherals[id]
	if !ok {
		return nil, ErrUnknownPeripheral
	}
	if !s.connected[id] {
		return nil, ErrNotConnected
	}
	return p, nil
}

func (s *Sim) characteristic(peripheral string, ref CharacteristicRef) (*Characteristic, error) {
	p, err := s.connectedPeripheral(peripheral)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range p.Services {
		svc := &p.Services[i]
		if svc.ID != ref.Service {
			continue
		}
		for j := range svc.Characteristics {
			c := &svc.Characteristics[j]
			if c.ID == ref.ID && c.Instance == ref.Instance {
				return c, nil
			}
		}
		return nil, ErrUnknownCharacteristic
	}
	return nil, ErrUnknownService
}

func matchesFilter(filter []string, id string) bool {
	return len(filter) == 0 || slices.Contains(filter, id)
}

var _ Central = (*Sim)(nil)
