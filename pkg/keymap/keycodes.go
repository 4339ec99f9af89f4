package keymap

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/neuroplastio/neio-stick/hostapi"
)

type Keycode = hostapi.Keycode

// Basic keycodes equal their HID Keyboard/Keypad usage IDs.
const (
	KeyNo          Keycode = 0x0000
	KeyTransparent Keycode = 0x0001

	KeyA              Keycode = 0x0004
	Key1              Keycode = 0x001E
	Key0              Keycode = 0x0027
	KeyEnter          Keycode = 0x0028
	KeyEscape         Keycode = 0x0029
	KeyBackspace      Keycode = 0x002A
	KeyTab            Keycode = 0x002B
	KeySpace          Keycode = 0x002C
	KeyMinus          Keycode = 0x002D
	KeyEqual          Keycode = 0x002E
	KeyLeftBracket    Keycode = 0x002F
	KeyRightBracket   Keycode = 0x0030
	KeyBackslash      Keycode = 0x0031
	KeySemicolon      Keycode = 0x0033
	KeyQuote          Keycode = 0x0034
	KeyGrave          Keycode = 0x0035
	KeyComma          Keycode = 0x0036
	KeyDot            Keycode = 0x0037
	KeySlash          Keycode = 0x0038
	KeyCapsLock       Keycode = 0x0039
	KeyF1             Keycode = 0x003A
	KeyPrintScreen    Keycode = 0x0046
	KeyScrollLock     Keycode = 0x0047
	KeyPause          Keycode = 0x0048
	KeyInsert         Keycode = 0x0049
	KeyHome           Keycode = 0x004A
	KeyPageUp         Keycode = 0x004B
	KeyDelete         Keycode = 0x004C
	KeyEnd            Keycode = 0x004D
	KeyPageDown       Keycode = 0x004E
	KeyRight          Keycode = 0x004F
	KeyLeft           Keycode = 0x0050
	KeyDown           Keycode = 0x0051
	KeyUp             Keycode = 0x0052
	KeyNumLock        Keycode = 0x0053
	KeypadSlash       Keycode = 0x0054
	KeypadAsterisk    Keycode = 0x0055
	KeypadMinus       Keycode = 0x0056
	KeypadPlus        Keycode = 0x0057
	KeypadEnter       Keycode = 0x0058
	Keypad1           Keycode = 0x0059
	Keypad0           Keycode = 0x0062
	KeypadDot         Keycode = 0x0063
	KeyF13            Keycode = 0x0068
	KeyMute           Keycode = 0x00A8
	KeyVolumeUp       Keycode = 0x00A9
	KeyVolumeDown     Keycode = 0x00AA
	KeyMediaNext      Keycode = 0x00AB
	KeyMediaPrevious  Keycode = 0x00AC
	KeyMediaStop      Keycode = 0x00AD
	KeyMediaPlayPause Keycode = 0x00AE
	KeyLeftCtrl       Keycode = 0x00E0
	KeyLeftShift      Keycode = 0x00E1
	KeyLeftAlt        Keycode = 0x00E2
	KeyLeftGUI        Keycode = 0x00E3
	KeyRightCtrl      Keycode = 0x00E4
	KeyRightShift     Keycode = 0x00E5
	KeyRightAlt       Keycode = 0x00E6
	KeyRightGUI       Keycode = 0x00E7
)

// Keycode ranges above the basic keys.
const (
	basicMax Keycode = 0x00FF

	ModLeftCtrl  Keycode = 0x0100
	ModLeftShift Keycode = 0x0200
	ModLeftAlt   Keycode = 0x0400
	ModLeftGUI   Keycode = 0x0800
	modsMask     Keycode = 0x0F00

	QuantumTo          Keycode = 0x5200
	QuantumToMax       Keycode = 0x521F
	QuantumJoystick    Keycode = 0x7400
	QuantumJoystickMax Keycode = 0x741F

	SafeRange Keycode = 0x7E40
)

// Keycodes handled by the stick controller.
const (
	DoubleZero Keycode = SafeRange + iota
	JoystickToggle
	JoystickRapid
	JoystickMouse
)

const MaxLayers = 32

func To(layer uint8) Keycode {
	return QuantumTo | Keycode(layer&0x1F)
}

func JoystickButton(button uint8) Keycode {
	return QuantumJoystick | Keycode(button&0x1F)
}

func IsBasic(kc Keycode) bool {
	return kc <= basicMax
}

// IsModified reports whether kc is a basic key wrapped in modifiers, as built
// by LSFT(kc) and friends.
func IsModified(kc Keycode) bool {
	return kc > basicMax && kc < 0x1000
}

func Mods(kc Keycode) Keycode {
	if !IsModified(kc) {
		return 0
	}
	return kc & modsMask
}

func Basic(kc Keycode) Keycode {
	return kc & basicMax
}

func IsLayerTo(kc Keycode) bool {
	return kc >= QuantumTo && kc <= QuantumToMax
}

func LayerOf(kc Keycode) uint8 {
	return uint8(kc & 0x1F)
}

func IsJoystickButton(kc Keycode) bool {
	return kc >= QuantumJoystick && kc <= QuantumJoystickMax
}

func ButtonOf(kc Keycode) uint8 {
	return uint8(kc & 0x1F)
}

func IsConsumer(kc Keycode) bool {
	return kc >= KeyMute && kc <= KeyMediaPlayPause
}

func IsModifierKey(kc Keycode) bool {
	return kc >= KeyLeftCtrl && kc <= KeyRightGUI
}

var keycodeNames = map[string]Keycode{
	"KC_NO":   KeyNo,
	"XXXXXXX": KeyNo,
	"KC_TRNS": KeyTransparent,
	"_______": KeyTransparent,

	"KC_ENT":  KeyEnter,
	"KC_ESC":  KeyEscape,
	"KC_BSPC": KeyBackspace,
	"KC_TAB":  KeyTab,
	"KC_SPC":  KeySpace,
	"KC_MINS": KeyMinus,
	"KC_EQL":  KeyEqual,
	"KC_LBRC": KeyLeftBracket,
	"KC_RBRC": KeyRightBracket,
	"KC_BSLS": KeyBackslash,
	"KC_SCLN": KeySemicolon,
	"KC_QUOT": KeyQuote,
	"KC_GRV":  KeyGrave,
	"KC_COMM": KeyComma,
	"KC_DOT":  KeyDot,
	"KC_SLSH": KeySlash,
	"KC_CAPS": KeyCapsLock,
	"KC_PSCR": KeyPrintScreen,
	"KC_SCRL": KeyScrollLock,
	"KC_PAUS": KeyPause,
	"KC_INS":  KeyInsert,
	"KC_HOME": KeyHome,
	"KC_PGUP": KeyPageUp,
	"KC_DEL":  KeyDelete,
	"KC_END":  KeyEnd,
	"KC_PGDN": KeyPageDown,
	"KC_RGHT": KeyRight,
	"KC_LEFT": KeyLeft,
	"KC_DOWN": KeyDown,
	"KC_UP":   KeyUp,
	"KC_NUM":  KeyNumLock,
	"KC_PSLS": KeypadSlash,
	"KC_PAST": KeypadAsterisk,
	"KC_PMNS": KeypadMinus,
	"KC_PPLS": KeypadPlus,
	"KC_PENT": KeypadEnter,
	"KC_PDOT": KeypadDot,

	"KC_MUTE": KeyMute,
	"KC_VOLU": KeyVolumeUp,
	"KC_VOLD": KeyVolumeDown,
	"KC_MNXT": KeyMediaNext,
	"KC_MPRV": KeyMediaPrevious,
	"KC_MSTP": KeyMediaStop,
	"KC_MPLY": KeyMediaPlayPause,

	"KC_LCTL": KeyLeftCtrl,
	"KC_LSFT": KeyLeftShift,
	"KC_LALT": KeyLeftAlt,
	"KC_LGUI": KeyLeftGUI,
	"KC_RCTL": KeyRightCtrl,
	"KC_RSFT": KeyRightShift,
	"KC_RALT": KeyRightAlt,
	"KC_RGUI": KeyRightGUI,

	"DOUBLE_ZERO": DoubleZero,
	"JS_TOGGLE":   JoystickToggle,
	"JS_RAPID":    JoystickRapid,
	"JS_MOUSE":    JoystickMouse,
}

var keycodeByValue = map[Keycode]string{}

func init() {
	for i := Keycode(0); i < 26; i++ {
		keycodeNames[fmt.Sprintf("KC_%c", 'A'+rune(i))] = KeyA + i
	}
	for i := Keycode(0); i < 9; i++ {
		keycodeNames[fmt.Sprintf("KC_%d", i+1)] = Key1 + i
		keycodeNames[fmt.Sprintf("KC_P%d", i+1)] = Keypad1 + i
	}
	keycodeNames["KC_0"] = Key0
	keycodeNames["KC_P0"] = Keypad0
	for i := Keycode(0); i < 12; i++ {
		keycodeNames[fmt.Sprintf("KC_F%d", i+1)] = KeyF1 + i
		keycodeNames[fmt.Sprintf("KC_F%d", i+13)] = KeyF13 + i
	}
	for i := uint8(0); i < 32; i++ {
		keycodeNames[fmt.Sprintf("JS_%d", i)] = JoystickButton(i)
	}
	for name, kc := range keycodeNames {
		keycodeByValue[kc] = name
	}
}

// LookupKeycode resolves a plain keycode name. Names are matched exactly, then
// upper cased, then converted from camel case ("jsToggle" is JS_TOGGLE).
func LookupKeycode(name string) (Keycode, bool) {
	for _, candidate := range []string{name, strings.ToUpper(name), strcase.ToScreamingSnake(name)} {
		if kc, ok := keycodeNames[candidate]; ok {
			return kc, true
		}
	}
	return 0, false
}

var modifierFuncs = []struct {
	name string
	mod  Keycode
}{
	{"LCTL", ModLeftCtrl},
	{"LSFT", ModLeftShift},
	{"LALT", ModLeftAlt},
	{"LGUI", ModLeftGUI},
}

// KeycodeName formats kc as a key expression that parses back to kc.
func KeycodeName(kc Keycode) string {
	switch {
	case kc == KeyNo:
		return "XXXXXXX"
	case kc == KeyTransparent:
		return "_______"
	case IsLayerTo(kc):
		return fmt.Sprintf("TO(%d)", LayerOf(kc))
	case IsModified(kc):
		name := KeycodeName(Basic(kc))
		mods := Mods(kc)
		for _, m := range modifierFuncs {
			if mods&m.mod != 0 {
				name = fmt.Sprintf("%s(%s)", m.name, name)
			}
		}
		return name
	}
	if name, ok := keycodeByValue[kc]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(kc))
}
