package core

import "sync"

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN KeyCode = 0x00
	KEY_ENTER   KeyCode = 0x0D
	KEY_ESCAPE  KeyCode = 0x1B
	KEY_SPACE   KeyCode = 0x20
	KEY_LEFT    KeyCode = 0x25
	KEY_UP      KeyCode = 0x26
	KEY_RIGHT   KeyCode = 0x27
	KEY_DOWN    KeyCode = 0x28

	KEY_A KeyCode = 0x41
	KEY_D KeyCode = 0x44
	KEY_E KeyCode = 0x45
	KEY_Q KeyCode = 0x51
	KEY_R KeyCode = 0x52
	KEY_S KeyCode = 0x53
	KEY_W KeyCode = 0x57

	KEYS_MAX_KEYS KeyCode = 0xFF
)

type keyboardState struct {
	keys [KEYS_MAX_KEYS]bool
}

type inputState struct {
	keyboardCurrent  keyboardState
	keyboardPrevious keyboardState
}

var (
	inputMutex       sync.Mutex
	inputInitialized bool
	input            *inputState
)

func InputInitialize() error {
	inputMutex.Lock()
	defer inputMutex.Unlock()
	input = &inputState{}
	inputInitialized = true
	LogInfo("Input subsystem initialized.")
	return nil
}

func InputShutdown() error {
	inputMutex.Lock()
	defer inputMutex.Unlock()
	inputInitialized = false
	return nil
}

// InputUpdate copies the current state to the previous one. Call it once per
// frame after input has been processed.
func InputUpdate(deltaTime float64) error {
	inputMutex.Lock()
	defer inputMutex.Unlock()
	if !inputInitialized {
		return nil
	}
	input.keyboardPrevious = input.keyboardCurrent
	return nil
}

func keyState(key KeyCode, current bool) bool {
	inputMutex.Lock()
	defer inputMutex.Unlock()
	if !inputInitialized || key >= KEYS_MAX_KEYS {
		return false
	}
	if current {
		return input.keyboardCurrent.keys[key]
	}
	return input.keyboardPrevious.keys[key]
}

func InputIsKeyDown(key KeyCode) bool {
	return keyState(key, true)
}

func InputIsKeyUp(key KeyCode) bool {
	return inputInitialized && !keyState(key, true)
}

func InputWasKeyDown(key KeyCode) bool {
	return keyState(key, false)
}

func InputWasKeyUp(key KeyCode) bool {
	return inputInitialized && !keyState(key, false)
}

// InputProcessKey records a key transition and fires the matching event.
func InputProcessKey(key KeyCode, pressed bool) error {
	inputMutex.Lock()
	if !inputInitialized || key >= KEYS_MAX_KEYS {
		inputMutex.Unlock()
		return nil
	}
	// Only handle this if the state actually changed.
	changed := input.keyboardCurrent.keys[key] != pressed
	input.keyboardCurrent.keys[key] = pressed
	inputMutex.Unlock()

	if changed {
		code := EVENT_CODE_KEY_RELEASED
		if pressed {
			code = EVENT_CODE_KEY_PRESSED
		}
		var ctx EventContext
		ctx.Data.U32[0] = uint32(key)
		EventFire(code, nil, ctx)
	}
	return nil
}
