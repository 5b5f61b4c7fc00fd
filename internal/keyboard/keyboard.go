// Package keyboard implements the 16 key hexadecimal CHIP-8 keypad state.
//
// The state is written by an input source and read by the emulation loop,
// all methods are safe for concurrent use.
package keyboard

import (
	"context"
	"sync"
)

// KeyCount is the number of keys of the keypad.
const KeyCount = 16

// Keyboard holds the pressed state of all keys.
type Keyboard struct {
	mu      sync.Mutex
	keys    [KeyCount]bool
	pressed chan struct{} // closed and replaced whenever a key gets pressed
}

// New returns a new keyboard with all keys released.
func New() *Keyboard {
	return &Keyboard{
		pressed: make(chan struct{}),
	}
}

// SetKey sets the pressed state of a key. Keys outside of the keypad range
// are ignored.
func (k *Keyboard) SetKey(key uint8, pressed bool) {
	if key >= KeyCount {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	k.keys[key] = pressed
	if pressed {
		close(k.pressed)
		k.pressed = make(chan struct{})
	}
}

// IsPressed returns whether the given key is currently pressed.
func (k *Keyboard) IsPressed(key uint8) bool {
	if key >= KeyCount {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	return k.keys[key]
}

// Pressed returns all currently pressed keys in ascending order.
func (k *Keyboard) Pressed() []uint8 {
	k.mu.Lock()
	defer k.mu.Unlock()

	var keys []uint8
	for key, pressed := range k.keys {
		if pressed {
			keys = append(keys, uint8(key))
		}
	}
	return keys
}

// Reset releases all keys.
func (k *Keyboard) Reset() {
	k.mu.Lock()
	k.keys = [KeyCount]bool{}
	k.mu.Unlock()
}

// WaitForKey blocks until any key is pressed and returns it. If keys are
// already pressed, the lowest one is returned immediately. The wait is
// aborted with the context error when the context gets canceled.
func (k *Keyboard) WaitForKey(ctx context.Context) (uint8, error) {
	for {
		k.mu.Lock()
		for key, pressed := range k.keys {
			if pressed {
				k.mu.Unlock()
				return uint8(key), nil
			}
		}
		changed := k.pressed
		k.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-changed:
		}
	}
}
