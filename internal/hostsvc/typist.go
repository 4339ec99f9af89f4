package hostsvc

import (
	"fmt"

	"github.com/neuroplastio/neio-stick/pkg/keymap"
)

var asciiCharMap = map[byte]keymap.Keycode{
	'-':  keymap.KeyMinus,
	'=':  keymap.KeyEqual,
	'[':  keymap.KeyLeftBracket,
	']':  keymap.KeyRightBracket,
	'\\': keymap.KeyBackslash,
	';':  keymap.KeySemicolon,
	'\'': keymap.KeyQuote,
	',':  keymap.KeyComma,
	'.':  keymap.KeyDot,
	'/':  keymap.KeySlash,
	'`':  keymap.KeyGrave,
	' ':  keymap.KeySpace,
	'\n': keymap.KeyEnter,
	'\t': keymap.KeyTab,
}

var asciiCharMapShifted = map[byte]keymap.Keycode{
	'_': keymap.KeyMinus,
	'+': keymap.KeyEqual,
	'{': keymap.KeyLeftBracket,
	'}': keymap.KeyRightBracket,
	'|': keymap.KeyBackslash,
	':': keymap.KeySemicolon,
	'"': keymap.KeyQuote,
	'<': keymap.KeyComma,
	'>': keymap.KeyDot,
	'?': keymap.KeySlash,
	'~': keymap.KeyGrave,

	'!': keymap.Key1,
	'@': keymap.Key1 + 1,
	'#': keymap.Key1 + 2,
	'$': keymap.Key1 + 3,
	'%': keymap.Key1 + 4,
	'^': keymap.Key1 + 5,
	'&': keymap.Key1 + 6,
	'*': keymap.Key1 + 7,
	'(': keymap.Key1 + 8,
	')': keymap.Key0,
}

// asciiKeycode maps a character to the keycode typing it on a US layout.
// Shifted characters are wrapped in LSFT.
func asciiKeycode(c byte) (keymap.Keycode, error) {
	if kc, ok := asciiCharMap[c]; ok {
		return kc, nil
	}
	if kc, ok := asciiCharMapShifted[c]; ok {
		return keymap.ModLeftShift | kc, nil
	}
	switch {
	case c >= 'a' && c <= 'z':
		return keymap.KeyA + keymap.Keycode(c-'a'), nil
	case c >= 'A' && c <= 'Z':
		return keymap.ModLeftShift | (keymap.KeyA + keymap.Keycode(c-'A')), nil
	case c == '0':
		return keymap.Key0, nil
	case c >= '1' && c <= '9':
		return keymap.Key1 + keymap.Keycode(c-'1'), nil
	}
	return 0, fmt.Errorf("unsupported character %q", c)
}
