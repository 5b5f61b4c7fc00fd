package terminal

import "time"

const keyEscape = 0x1b

// keyLayout maps the 4x4 block 1234/QWER/ASDF/ZXCV of a QWERTY keyboard to
// the hexadecimal keypad layout:
//
//	1 2 3 C
//	4 5 6 D
//	7 8 9 E
//	A 0 B F
var keyLayout = map[byte]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// KeyForByte returns the keypad key for a key stroke byte. Upper case
// letters map to the same key as lower case ones.
func KeyForByte(b byte) (uint8, bool) {
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	key, ok := keyLayout[b]
	return key, ok
}

type keySink interface {
	SetKeyState(key uint8, pressed bool)
}

// keyState emulates key releases by releasing keys that did not receive a
// key stroke for HoldTimeout.
type keyState struct {
	sink     keySink
	deadline [16]time.Time
}

func newKeyState(sink keySink) *keyState {
	return &keyState{sink: sink}
}

func (k *keyState) press(key uint8, now time.Time) {
	if k.deadline[key].IsZero() {
		k.sink.SetKeyState(key, true)
	}
	k.deadline[key] = now.Add(HoldTimeout)
}

func (k *keyState) expire(now time.Time) {
	for key, deadline := range k.deadline {
		if deadline.IsZero() || now.Before(deadline) {
			continue
		}
		k.deadline[key] = time.Time{}
		k.sink.SetKeyState(uint8(key), false)
	}
}
