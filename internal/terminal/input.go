package terminal

import "time"

// EscapeTimeout is the time to wait for the rest of an escape sequence
// after an ESC byte. A lone ESC within this time quits.
const EscapeTimeout = 50 * time.Millisecond

type decoderState int

const (
	stateGround   decoderState = iota
	stateEscape                // ESC received
	stateSequence              // ESC [ received, control sequence parameters follow
	stateSingle                // ESC O received, one more byte follows
)

// inputEvent is the result of decoding a single input byte.
type inputEvent struct {
	key   uint8
	press bool
	quit  bool
}

// inputDecoder separates keypad key strokes from terminal escape sequences
// that cursor and function keys send.
type inputDecoder struct {
	state decoderState
}

// feed decodes the next input byte.
func (d *inputDecoder) feed(b byte) inputEvent {
	switch d.state {
	case stateEscape:
		switch b {
		case '[':
			d.state = stateSequence
		case 'O':
			d.state = stateSingle
		default:
			d.state = stateGround
			return inputEvent{quit: true}
		}

	case stateSequence:
		// final byte of a control sequence
		if b >= 0x40 && b <= 0x7e {
			d.state = stateGround
		}

	case stateSingle:
		d.state = stateGround

	default:
		if b == keyEscape {
			d.state = stateEscape
			return inputEvent{}
		}
		if key, ok := KeyForByte(b); ok {
			return inputEvent{key: key, press: true}
		}
	}

	return inputEvent{}
}

// pendingEscape returns whether a lone ESC was received that is not yet
// known to start an escape sequence.
func (d *inputDecoder) pendingEscape() bool {
	return d.state == stateEscape
}
