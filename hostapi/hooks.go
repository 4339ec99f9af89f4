package hostapi

type Keycode uint16

type KeyPosition struct {
	Row uint8 `json:"row"`
	Col uint8 `json:"col"`
}

type KeyEvent struct {
	Keycode  Keycode
	Position KeyPosition
	Pressed  bool
}

// Hooks is implemented by the user layer and invoked serially by the host:
// never concurrently, never reentrantly.
type Hooks interface {
	// OnTick runs once per matrix scan.
	OnTick()
	// OnKeyEvent runs for every key press and release before the host handles
	// the keycode. Returning false stops the host from processing the event.
	OnKeyEvent(ev KeyEvent) bool
	// Render paints the status screen.
	Render(d Display)
}
