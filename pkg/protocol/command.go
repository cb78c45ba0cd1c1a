package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// Terminator ends every line on the wire.
const Terminator = "\n"

// Command tokens.
const (
	SetReferencePrefix     = "SET_REF:"
	RestartAutotuneCommand = "REINICIAR_AUTOTUNE"
)

// ErrInvalidReference is returned when operator input is not a real number.
var ErrInvalidReference = errors.New("invalid reference value")

// CommandKind identifies an operator command.
type CommandKind int

const (
	CmdSetReference CommandKind = iota + 1
	CmdRestartAutotune
)

// Command is an operator intent ready to be written to the device.
type Command struct {
	Kind      CommandKind
	Reference float64 // CmdSetReference only
}

// SetReference parses operator input into a set-reference command.
// Nothing is produced for input that is not a finite real number.
func SetReference(text string) (Command, error) {
	v, ok := ParseValue(text)
	if !ok {
		return Command{}, fmt.Errorf("%w: %q", ErrInvalidReference, text)
	}
	return Command{Kind: CmdSetReference, Reference: v}, nil
}

// RestartAutotune returns the autotune restart command.
func RestartAutotune() Command {
	return Command{Kind: CmdRestartAutotune}
}

// Encode returns the wire line including the terminator.
func (c Command) Encode() string {
	switch c.Kind {
	case CmdSetReference:
		return SetReferencePrefix + FormatValue(c.Reference) + Terminator
	case CmdRestartAutotune:
		return RestartAutotuneCommand + Terminator
	default:
		return ""
	}
}

// ParseCommand is the device side of Encode.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if line == RestartAutotuneCommand {
		return RestartAutotune(), true
	}
	if rest, ok := strings.CutPrefix(line, SetReferencePrefix); ok {
		if v, ok := ParseValue(rest); ok {
			return Command{Kind: CmdSetReference, Reference: v}, true
		}
	}
	return Command{}, false
}

func (c Command) String() string {
	switch c.Kind {
	case CmdSetReference:
		return "SetReference(" + FormatValue(c.Reference) + ")"
	case CmdRestartAutotune:
		return "RestartAutotune"
	default:
		return "Unknown"
	}
}
