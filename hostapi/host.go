// Package hostapi declares the services a keyboard host runtime provides to the
// stick controller, and the hooks the runtime invokes on it.
package hostapi

type Pin uint8

// Analog reads one 10-bit ADC sample (0-1023) from a pin.
type Analog interface {
	ReadAnalog(pin Pin) uint16
}

// Joystick buffers axis values and button states until Flush commits them
// as a single HID joystick report.
type Joystick interface {
	SetAxis(axis uint8, value int16)
	RegisterButton(button uint8)
	UnregisterButton(button uint8)
	Flush()
}

type MouseReport struct {
	Buttons uint8
	X       int8
	Y       int8
	V       int8
	H       int8
}

type Mouse interface {
	MouseReport() MouseReport
	SetMouseReport(report MouseReport)
	SendMouse()
}

// Timer is a free running 16-bit millisecond counter.
type Timer interface {
	ReadTimer() uint16
}

// Elapsed returns the ticks between start and now. Counter wraparound is
// handled by modular subtraction.
func Elapsed(now, start uint16) uint16 {
	return now - start
}

// Display is a character cell display. Writes advance the cursor and wrap at
// the end of a row.
type Display interface {
	SetCursor(col, row uint8)
	Write(s string)
	// WriteLine writes s and clears the rest of the row, leaving the cursor at
	// the start of the next row.
	WriteLine(s string)
	WriteChar(c byte)
}

type LayerState interface {
	HighestLayer() uint8
}

type LockLEDs struct {
	NumLock    bool `json:"numLock"`
	CapsLock   bool `json:"capsLock"`
	ScrollLock bool `json:"scrollLock"`
}

type LockState interface {
	LockLEDs() LockLEDs
}

type Typist interface {
	SendString(s string)
}

// Host bundles every collaborator a controller needs.
type Host struct {
	Analog   Analog
	Joystick Joystick
	Mouse    Mouse
	Timer    Timer
	Layers   LayerState
	Locks    LockState
	Typist   Typist
}
