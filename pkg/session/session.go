// Package session holds the state of one monitoring session: the tuned PID
// gains, the reference and the telemetry buffer. It is mutated only through
// Apply (decoded device events) and the operator methods, all of which are
// expected to run on a single goroutine.
package session

import (
	"github.com/itohio/ballbeam/pkg/protocol"
	"github.com/itohio/ballbeam/pkg/sample"
)

// Value is a real number that may not have been observed yet.
type Value struct {
	Value float64
	Set   bool
}

// Some returns an observed value.
func Some(v float64) Value {
	return Value{Value: v, Set: true}
}

// String renders the value for labels, "N/A" while unset.
func (v Value) String() string {
	if !v.Set {
		return "N/A"
	}
	return protocol.FormatValue(v.Value)
}

// GainSet holds the PID gains reported by the device. Fields are updated
// independently as they arrive.
type GainSet struct {
	Kp Value
	Ki Value
	Kd Value
}

// Change describes what a mutation touched.
type Change uint8

const (
	ChangeTelemetry     Change = 1 << iota // A sample was appended
	ChangeReset                            // The buffer was cleared
	ChangeGains                            // A gain field was updated
	ChangeGainsComplete                    // Kd arrived, the triple may be shown
	ChangeReference                        // The reference was updated
)

// Has reports whether c includes all bits of other.
func (c Change) Has(other Change) bool {
	return c&other == other
}

// Listener is notified after every mutation with the state and what changed.
type Listener func(s *State, c Change)

// State is the session state. The zero value is not usable, use New.
type State struct {
	gains         GainSet
	reference     Value
	referenceText string // Device text of the last echo, empty after SetReference
	buffer        *sample.Buffer

	listeners []Listener
}

// New creates an empty session state.
func New() *State {
	return &State{
		buffer:    sample.NewBuffer(1024),
		listeners: make([]Listener, 0, 1),
	}
}

// OnChange registers a listener.
func (s *State) OnChange(l Listener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

// Apply applies a decoded event and reports what changed.
// Unrecognized events change nothing and notify no one.
func (s *State) Apply(ev protocol.Event) Change {
	var c Change

	switch ev.Kind {
	case protocol.Position:
		s.buffer.Append(ev.Value)
		c = ChangeTelemetry
	case protocol.GainKp:
		s.gains.Kp = Some(ev.Value)
		c = ChangeGains
	case protocol.GainKi:
		s.gains.Ki = Some(ev.Value)
		c = ChangeGains
	case protocol.GainKd:
		s.gains.Kd = Some(ev.Value)
		c = ChangeGains
	case protocol.ReferenceEcho:
		s.reference = Some(ev.Value)
		s.referenceText = ev.Text
		c = ChangeReference
	default:
		return 0
	}
	if ev.CompletesGains() {
		c |= ChangeGainsComplete
	}

	s.notify(c)
	return c
}

// SetReference records a reference pushed by the operator.
func (s *State) SetReference(v float64) {
	s.reference = Some(v)
	s.referenceText = ""
	s.notify(ChangeReference)
}

// Reset clears the telemetry buffer. Gains and reference are kept.
func (s *State) Reset() {
	s.buffer.Reset()
	s.notify(ChangeReset)
}

// Gains returns the current gains.
func (s *State) Gains() GainSet {
	return s.gains
}

// Reference returns the current reference.
func (s *State) Reference() Value {
	return s.reference
}

// ReferenceText renders the reference for its label. An echoed reference is
// shown as the device wrote it, an operator reference in FormatValue form.
func (s *State) ReferenceText() string {
	if s.reference.Set && s.referenceText != "" {
		return s.referenceText
	}
	return s.reference.String()
}

// Len returns the number of samples in the buffer.
func (s *State) Len() int {
	return s.buffer.Len()
}

// Samples returns a copy of the telemetry buffer.
func (s *State) Samples() []sample.Sample {
	return s.buffer.Samples()
}

// Last returns the newest sample.
func (s *State) Last() (sample.Sample, bool) {
	return s.buffer.Last()
}

func (s *State) notify(c Change) {
	for _, l := range s.listeners {
		l(s, c)
	}
}
