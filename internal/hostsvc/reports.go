package hostsvc

import (
	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/pkg/bits"
	"github.com/neuroplastio/neio-stick/pkg/keymap"
	"github.com/neuroplastio/neio-stick/pkg/usbhid/hiddesc"
)

const (
	ReportIDKeyboard uint8 = 1
	ReportIDMouse    uint8 = 2
	ReportIDJoystick uint8 = 3
	ReportIDConsumer uint8 = 4
)

const (
	JoystickAxes    = 4
	JoystickButtons = 32
	keyboardKeys    = 6
)

// ReportDescriptor describes the composite keyboard, mouse, joystick and
// consumer control device the host presents to the computer.
func ReportDescriptor() hiddesc.ReportDescriptor {
	variable := hiddesc.DataFlagVariable
	constant := hiddesc.DataFlagConstant
	relative := hiddesc.DataFlagVariable | hiddesc.DataFlagRelative
	return hiddesc.ReportDescriptor{
		Collections: []hiddesc.Collection{
			{
				Type:      hiddesc.CollectionTypeApplication,
				UsagePage: hiddesc.UsagePageGenericDesktop,
				UsageID:   hiddesc.UsageKeyboard,
				Items: []hiddesc.MainItem{
					hiddesc.Input(hiddesc.DataItem{
						Flags: variable, ReportID: ReportIDKeyboard,
						UsagePage: hiddesc.UsagePageKeyboard, UsageMinimum: 0xE0, UsageMaximum: 0xE7,
						LogicalMinimum: 0, LogicalMaximum: 1, ReportCount: 8, ReportSize: 1,
					}),
					hiddesc.Input(hiddesc.DataItem{
						Flags: constant, ReportID: ReportIDKeyboard,
						ReportCount: 1, ReportSize: 8, LogicalMinimum: 0, LogicalMaximum: 1,
					}),
					hiddesc.Output(hiddesc.DataItem{
						Flags: variable, ReportID: ReportIDKeyboard,
						UsagePage: hiddesc.UsagePageLED, UsageMinimum: 1, UsageMaximum: 5,
						LogicalMinimum: 0, LogicalMaximum: 1, ReportCount: 5, ReportSize: 1,
					}),
					hiddesc.Output(hiddesc.DataItem{
						Flags: constant, ReportID: ReportIDKeyboard,
						LogicalMinimum: 0, LogicalMaximum: 1, ReportCount: 1, ReportSize: 3,
					}),
					hiddesc.Input(hiddesc.DataItem{
						ReportID:  ReportIDKeyboard,
						UsagePage: hiddesc.UsagePageKeyboard, UsageMinimum: 0, UsageMaximum: 0xFF,
						LogicalMinimum: 0, LogicalMaximum: 0xFF, ReportCount: keyboardKeys, ReportSize: 8,
					}),
				},
			},
			{
				Type:      hiddesc.CollectionTypeApplication,
				UsagePage: hiddesc.UsagePageGenericDesktop,
				UsageID:   hiddesc.UsageMouse,
				Items: []hiddesc.MainItem{
					hiddesc.Nested(hiddesc.Collection{
						Type:      hiddesc.CollectionTypePhysical,
						UsagePage: hiddesc.UsagePageGenericDesktop,
						UsageID:   hiddesc.UsagePointer,
						Items: []hiddesc.MainItem{
							hiddesc.Input(hiddesc.DataItem{
								Flags: variable, ReportID: ReportIDMouse,
								UsagePage: hiddesc.UsagePageButton, UsageMinimum: 1, UsageMaximum: 8,
								LogicalMinimum: 0, LogicalMaximum: 1, ReportCount: 8, ReportSize: 1,
							}),
							hiddesc.Input(hiddesc.DataItem{
								Flags: relative, ReportID: ReportIDMouse,
								UsagePage: hiddesc.UsagePageGenericDesktop,
								UsageIDs:  []uint16{hiddesc.UsageX, hiddesc.UsageY, hiddesc.UsageWheel},
								LogicalMinimum: -127, LogicalMaximum: 127, ReportCount: 3, ReportSize: 8,
							}),
							hiddesc.Input(hiddesc.DataItem{
								Flags: relative, ReportID: ReportIDMouse,
								UsagePage: hiddesc.UsagePageConsumer, UsageIDs: []uint16{hiddesc.UsageACPan},
								LogicalMinimum: -127, LogicalMaximum: 127, ReportCount: 1, ReportSize: 8,
							}),
						},
					}),
				},
			},
			{
				Type:      hiddesc.CollectionTypeApplication,
				UsagePage: hiddesc.UsagePageGenericDesktop,
				UsageID:   hiddesc.UsageJoystick,
				Items: []hiddesc.MainItem{
					hiddesc.Input(hiddesc.DataItem{
						Flags: variable, ReportID: ReportIDJoystick,
						UsagePage: hiddesc.UsagePageGenericDesktop,
						UsageIDs:  []uint16{hiddesc.UsageX, hiddesc.UsageY, hiddesc.UsageZ, hiddesc.UsageRz},
						LogicalMinimum: -127, LogicalMaximum: 127, ReportCount: JoystickAxes, ReportSize: 8,
					}),
					hiddesc.Input(hiddesc.DataItem{
						Flags: variable, ReportID: ReportIDJoystick,
						UsagePage: hiddesc.UsagePageButton, UsageMinimum: 1, UsageMaximum: JoystickButtons,
						LogicalMinimum: 0, LogicalMaximum: 1, ReportCount: JoystickButtons, ReportSize: 1,
					}),
				},
			},
			{
				Type:      hiddesc.CollectionTypeApplication,
				UsagePage: hiddesc.UsagePageConsumer,
				UsageID:   hiddesc.UsageConsumerControl,
				Items: []hiddesc.MainItem{
					hiddesc.Input(hiddesc.DataItem{
						ReportID:     ReportIDConsumer,
						UsageMinimum: 1, UsageMaximum: 0x02A0,
						LogicalMinimum: 1, LogicalMaximum: 0x02A0, ReportCount: 1, ReportSize: 16,
					}),
				},
			},
		},
	}
}

// EncodeReportDescriptor returns the descriptor bytes for ReportDescriptor.
func EncodeReportDescriptor() ([]byte, error) {
	return hiddesc.Encode(ReportDescriptor())
}

// keyboardReport is a 6KRO boot keyboard report.
type keyboardReport struct {
	mods uint8
	keys [keyboardKeys]uint8
}

func (r *keyboardReport) press(usage uint8) bool {
	if usage >= uint8(keymap.KeyLeftCtrl) && usage <= uint8(keymap.KeyRightGUI) {
		r.mods |= 1 << (usage - uint8(keymap.KeyLeftCtrl))
		return true
	}
	for _, k := range r.keys {
		if k == usage {
			return true
		}
	}
	for i, k := range r.keys {
		if k == 0 {
			r.keys[i] = usage
			return true
		}
	}
	return false
}

func (r *keyboardReport) release(usage uint8) {
	if usage >= uint8(keymap.KeyLeftCtrl) && usage <= uint8(keymap.KeyRightGUI) {
		r.mods &^= 1 << (usage - uint8(keymap.KeyLeftCtrl))
		return
	}
	for i, k := range r.keys {
		if k == usage {
			copy(r.keys[i:], r.keys[i+1:])
			r.keys[len(r.keys)-1] = 0
			return
		}
	}
}

func (r keyboardReport) bytes() []byte {
	b := []byte{ReportIDKeyboard, r.mods, 0}
	return append(b, r.keys[:]...)
}

func mouseReportBytes(m hostapi.MouseReport) []byte {
	return []byte{ReportIDMouse, m.Buttons, byte(m.X), byte(m.Y), byte(m.V), byte(m.H)}
}

type joystickReport struct {
	axes    [JoystickAxes]int8
	buttons bits.Bits
}

func newJoystickReport() joystickReport {
	return joystickReport{buttons: bits.NewZeros(JoystickButtons)}
}

func (r joystickReport) bytes() []byte {
	b := make([]byte, 0, 1+JoystickAxes+JoystickButtons/8)
	b = append(b, ReportIDJoystick)
	for _, axis := range r.axes {
		b = append(b, byte(axis))
	}
	return append(b, r.buttons.Bytes()...)
}

func consumerReportBytes(usage uint16) []byte {
	return []byte{ReportIDConsumer, byte(usage), byte(usage >> 8)}
}

var consumerUsages = map[keymap.Keycode]uint16{
	keymap.KeyMute:           0x00E2,
	keymap.KeyVolumeUp:       0x00E9,
	keymap.KeyVolumeDown:     0x00EA,
	keymap.KeyMediaNext:      0x00B5,
	keymap.KeyMediaPrevious:  0x00B6,
	keymap.KeyMediaStop:      0x00B7,
	keymap.KeyMediaPlayPause: 0x00CD,
}

// ParseLEDReport decodes a keyboard output report, with or without its
// report ID prefix.
func ParseLEDReport(data []byte) (hostapi.LockLEDs, bool) {
	switch {
	case len(data) == 2 && data[0] == ReportIDKeyboard:
		data = data[1:]
	case len(data) != 1:
		return hostapi.LockLEDs{}, false
	}
	leds := bits.New(data, 0)
	return hostapi.LockLEDs{
		NumLock:    leds.IsSet(0),
		CapsLock:   leds.IsSet(1),
		ScrollLock: leds.IsSet(2),
	}, true
}
