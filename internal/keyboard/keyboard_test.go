package keyboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

func TestSetKey(t *testing.T) {
	k := New()

	k.SetKey(0xA, true)
	assert.True(t, k.IsPressed(0xA))
	assert.False(t, k.IsPressed(0xB))

	k.SetKey(0xA, false)
	assert.False(t, k.IsPressed(0xA))
}

func TestSetKeyOutOfRange(t *testing.T) {
	k := New()

	k.SetKey(KeyCount, true)

	assert.False(t, k.IsPressed(KeyCount))
	assert.Len(t, k.Pressed(), 0)
}

func TestPressedAndReset(t *testing.T) {
	k := New()
	k.SetKey(0xF, true)
	k.SetKey(0x1, true)

	assert.Equal(t, []uint8{0x1, 0xF}, k.Pressed())

	k.Reset()
	assert.Len(t, k.Pressed(), 0)
}

func TestWaitForKeyAlreadyPressed(t *testing.T) {
	k := New()
	k.SetKey(0x9, true)
	k.SetKey(0x4, true)

	key, err := k.WaitForKey(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint8(0x4), key)
}

func TestWaitForKeyWakesOnPress(t *testing.T) {
	k := New()
	result := make(chan uint8, 1)

	go func() {
		key, err := k.WaitForKey(context.Background())
		if err == nil {
			result <- key
		}
	}()

	time.Sleep(10 * time.Millisecond)
	k.SetKey(0x7, true)

	select {
	case key := <-result:
		assert.Equal(t, uint8(0x7), key)
	case <-time.After(time.Second):
		t.Fatal("waiting for key press did not return")
	}
}

func TestWaitForKeyIgnoresRelease(t *testing.T) {
	k := New()
	k.SetKey(0x2, true)
	k.SetKey(0x2, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := k.WaitForKey(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestWaitForKeyCanceled(t *testing.T) {
	k := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		_, err := k.WaitForKey(ctx)
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(time.Second):
		t.Fatal("canceled wait did not return")
	}
}
