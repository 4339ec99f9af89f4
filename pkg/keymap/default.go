package keymap

// DefaultLayers is the LHP14 lite layout: four rows of five keys, the last row
// extended by the stick push button and a layer key.
func DefaultLayers() []LayerConfig {
	return []LayerConfig{
		{
			Name: "MAIN",
			Keys: [][]string{
				{"XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX", "JS_TOGGLE"},
				{"XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX", "JS_RAPID"},
				{"XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX", "JS_MOUSE"},
				{"XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX", "JS_0", "TO(NUMPADS)"},
			},
		},
		{
			Name: "NUMPADS",
			Keys: [][]string{
				{"KC_NUM", "KC_P7", "KC_P8", "KC_P9", "LSFT(KC_MINS)"},
				{"KC_PSLS", "KC_P4", "KC_P5", "KC_P6", "KC_PMNS"},
				{"KC_PAST", "KC_P1", "KC_P2", "KC_P3", "KC_PPLS"},
				{"KC_BSPC", "KC_P0", "DOUBLE_ZERO", "KC_PDOT", "KC_PENT", "JS_0", "TO(FUNCTIONS)"},
			},
		},
		{
			Name: "FUNCTIONS",
			Keys: [][]string{
				{"JS_TOGGLE", "KC_F22", "KC_F23", "KC_F24", "KC_MPLY"},
				{"KC_MSTP", "KC_F19", "KC_F20", "KC_F21", "KC_VOLD"},
				{"KC_MUTE", "KC_F16", "KC_F17", "KC_F18", "KC_VOLU"},
				{"KC_MPRV", "KC_F13", "KC_F14", "KC_F15", "KC_MNXT", "JS_0", "TO(TEST)"},
			},
		},
		{
			Name: "TEST",
			Keys: [][]string{
				{"JS_TOGGLE", "JS_RAPID", "JS_MOUSE", "XXXXXXX", "XXXXXXX"},
				{"KC_CAPS", "KC_SCRL", "XXXXXXX", "XXXXXXX", "XXXXXXX"},
				{"XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX"},
				{"XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX", "XXXXXXX", "JS_0", "TO(MAIN)"},
			},
		},
	}
}

// MustDefault compiles DefaultLayers.
func MustDefault() *Keymap {
	km, err := Compile(DefaultLayers())
	if err != nil {
		panic(err)
	}
	return km
}
