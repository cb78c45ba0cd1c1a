// Package protocol implements the line protocol spoken by the ball-and-beam
// controller: classification of telemetry lines and encoding of commands.
//
// Device to host, one newline-terminated line per message:
//
//	Posicao:<float>          position sample
//	...Kp:<float>            proportional gain
//	...Ki:<float>            integral gain
//	...Kd:<float>            derivative gain, last of a tuned triple
//	Nova referencia:<float>  reference echo
//
// Host to device:
//
//	SET_REF:<float>
//	REINICIAR_AUTOTUNE
package protocol

import (
	"math"
	"strconv"
	"strings"
)

// Wire tokens.
const (
	PositionPrefix  = "Posicao:"
	KpMarker        = "Kp:"
	KiMarker        = "Ki:"
	KdMarker        = "Kd:"
	ReferencePrefix = "Nova referencia:"
)

// Kind classifies a decoded line.
type Kind int

const (
	Unrecognized Kind = iota
	Position
	GainKp
	GainKi
	GainKd
	ReferenceEcho
)

func (k Kind) String() string {
	switch k {
	case Position:
		return "Position"
	case GainKp:
		return "GainKp"
	case GainKi:
		return "GainKi"
	case GainKd:
		return "GainKd"
	case ReferenceEcho:
		return "ReferenceEcho"
	default:
		return "Unrecognized"
	}
}

// Event is a classified line. Value is meaningful for every kind except
// Unrecognized. Text keeps the value as the device wrote it and is only set
// for ReferenceEcho, whose label shows the device's own text.
type Event struct {
	Kind  Kind
	Value float64
	Text  string
}

// CompletesGains reports whether the event marks a full gain triple as
// displayable. The device sends Kd last, so Kd is the signal; ordering is
// not checked here.
func (e Event) CompletesGains() bool {
	return e.Kind == GainKd
}

// Decode classifies one line. Patterns are tried in a fixed order:
// Posicao prefix, then Kp, Ki and Kd substrings, then the reference echo
// prefix. A matching pattern with a malformed number, like any other line,
// yields Unrecognized. Decode never fails.
func Decode(line string) Event {
	line = strings.TrimSpace(line)

	if rest, ok := strings.CutPrefix(line, PositionPrefix); ok {
		return numeric(Position, rest)
	}
	if _, rest, ok := strings.Cut(line, KpMarker); ok {
		return numeric(GainKp, rest)
	}
	if _, rest, ok := strings.Cut(line, KiMarker); ok {
		return numeric(GainKi, rest)
	}
	if _, rest, ok := strings.Cut(line, KdMarker); ok {
		return numeric(GainKd, rest)
	}
	if rest, ok := strings.CutPrefix(line, ReferencePrefix); ok {
		return numeric(ReferenceEcho, rest)
	}
	return Event{Kind: Unrecognized}
}

func numeric(kind Kind, text string) Event {
	v, ok := ParseValue(text)
	if !ok {
		return Event{Kind: Unrecognized}
	}
	ev := Event{Kind: kind, Value: v}
	if kind == ReferenceEcho {
		ev.Text = strings.TrimSpace(text)
	}
	return ev
}

// ParseValue parses a finite decimal real number surrounded by optional
// whitespace. Hexadecimal notation is rejected.
func ParseValue(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if isHex(text) {
		return 0, false
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func isHex(text string) bool {
	text = strings.TrimLeft(text, "+-")
	return len(text) >= 2 && text[0] == '0' && (text[1] == 'x' || text[1] == 'X')
}

// FormatValue renders v the way values travel on the wire and appear on the
// labels: shortest round-trip digits, exponent form outside [1e-4, 1e16),
// and a trailing ".0" on integral values ("200.0", "123.5", "1e-05").
func FormatValue(v float64) string {
	var s string
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		s = strconv.FormatFloat(v, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}
