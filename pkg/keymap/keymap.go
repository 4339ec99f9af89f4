// Package keymap holds layered keycode tables and the key expression language
// used to configure them.
package keymap

import (
	"errors"
	"fmt"

	"github.com/neuroplastio/neio-stick/hostapi"
	"github.com/neuroplastio/neio-stick/pkg/keymap/keydsl"
)

// UndefinedLayerName is shown for layer indices without a layer.
const UndefinedLayerName = "Undefined"

var ErrUnknownKeycode = errors.New("unknown keycode")

type Layer struct {
	Name string
	// Keys is indexed by matrix row, then column. Rows may have different lengths.
	Keys [][]Keycode
}

type Keymap struct {
	layers []Layer
}

func New(layers ...Layer) *Keymap {
	return &Keymap{layers: layers}
}

func (k *Keymap) Layers() []Layer {
	return k.layers
}

func (k *Keymap) LayerName(index uint8) string {
	if int(index) >= len(k.layers) || k.layers[index].Name == "" {
		return UndefinedLayerName
	}
	return k.layers[index].Name
}

func (k *Keymap) LayerIndex(name string) (uint8, bool) {
	for i, layer := range k.layers {
		if layer.Name == name {
			return uint8(i), true
		}
	}
	return 0, false
}

// Keycode returns the keycode at pos on the given layer, or KeyNo.
func (k *Keymap) Keycode(layer uint8, pos hostapi.KeyPosition) Keycode {
	if int(layer) >= len(k.layers) {
		return KeyNo
	}
	rows := k.layers[layer].Keys
	if int(pos.Row) >= len(rows) || int(pos.Col) >= len(rows[pos.Row]) {
		return KeyNo
	}
	return rows[pos.Row][pos.Col]
}

// Resolve finds the keycode at pos for a layer state bitmask: the highest
// active layer with a non-transparent key wins. Layer 0 is always active.
func (k *Keymap) Resolve(layerState uint32, pos hostapi.KeyPosition) Keycode {
	layerState |= 1
	for i := len(k.layers) - 1; i >= 0; i-- {
		if i >= MaxLayers || layerState&(1<<uint(i)) == 0 {
			continue
		}
		kc := k.Keycode(uint8(i), pos)
		if kc != KeyTransparent {
			return kc
		}
	}
	return KeyNo
}

// HighestLayer returns the index of the highest bit set in layerState.
func HighestLayer(layerState uint32) uint8 {
	for i := MaxLayers - 1; i > 0; i-- {
		if layerState&(1<<uint(i)) != 0 {
			return uint8(i)
		}
	}
	return 0
}

type LayerConfig struct {
	Name string     `json:"name" yaml:"name"`
	Keys [][]string `json:"keys" yaml:"keys,flow"`
}

// Compile parses layer configs into a keymap. TO() accepts layer names as
// well as indices.
func Compile(configs []LayerConfig) (*Keymap, error) {
	if len(configs) > MaxLayers {
		return nil, fmt.Errorf("too many layers: %d > %d", len(configs), MaxLayers)
	}
	layerIndex := make(map[string]uint8, len(configs))
	for i, cfg := range configs {
		if cfg.Name == "" {
			continue
		}
		if _, ok := layerIndex[cfg.Name]; ok {
			return nil, fmt.Errorf("duplicate layer name %s", cfg.Name)
		}
		layerIndex[cfg.Name] = uint8(i)
	}
	layers := make([]Layer, 0, len(configs))
	for i, cfg := range configs {
		layer := Layer{
			Name: cfg.Name,
			Keys: make([][]Keycode, 0, len(cfg.Keys)),
		}
		for row, keys := range cfg.Keys {
			codes := make([]Keycode, 0, len(keys))
			for col, key := range keys {
				kc, err := ParseKeycode(key, layerIndex)
				if err != nil {
					return nil, fmt.Errorf("layer %d (%s) key %d,%d: %w", i, cfg.Name, row, col, err)
				}
				codes = append(codes, kc)
			}
			layer.Keys = append(layer.Keys, codes)
		}
		layers = append(layers, layer)
	}
	return New(layers...), nil
}

// Config converts the keymap back into its configuration form.
func (k *Keymap) Config() []LayerConfig {
	configs := make([]LayerConfig, 0, len(k.layers))
	for _, layer := range k.layers {
		cfg := LayerConfig{
			Name: layer.Name,
			Keys: make([][]string, 0, len(layer.Keys)),
		}
		for _, row := range layer.Keys {
			names := make([]string, 0, len(row))
			for _, kc := range row {
				name := KeycodeName(kc)
				if IsLayerTo(kc) && int(LayerOf(kc)) < len(k.layers) && k.layers[LayerOf(kc)].Name != "" {
					name = fmt.Sprintf("TO(%s)", k.layers[LayerOf(kc)].Name)
				}
				names = append(names, name)
			}
			cfg.Keys = append(cfg.Keys, names)
		}
		configs = append(configs, cfg)
	}
	return configs
}

// ParseKeycode evaluates a key expression.
func ParseKeycode(expr string, layers map[string]uint8) (Keycode, error) {
	parsed, err := keydsl.Parse(expr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q: %w", expr, err)
	}
	return evaluate(parsed, layers)
}

func evaluate(expr *keydsl.Expression, layers map[string]uint8) (Keycode, error) {
	if expr.Code != nil {
		return Keycode(*expr.Code), nil
	}
	if !expr.IsCall() {
		kc, ok := LookupKeycode(expr.Name)
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnknownKeycode, expr.Name)
		}
		return kc, nil
	}
	if len(expr.Arguments) != 1 {
		return 0, fmt.Errorf("%s expects exactly one argument", expr.Name)
	}
	arg := expr.Arguments[0]
	if expr.Name == "TO" {
		layer, err := evaluateLayer(arg, layers)
		if err != nil {
			return 0, err
		}
		return To(layer), nil
	}
	for _, m := range modifierFuncs {
		if m.name != expr.Name {
			continue
		}
		if arg.Expr == nil {
			return 0, fmt.Errorf("%s expects a keycode", expr.Name)
		}
		kc, err := evaluate(arg.Expr, layers)
		if err != nil {
			return 0, err
		}
		if !IsBasic(kc) && !IsModified(kc) {
			return 0, fmt.Errorf("%s can only wrap basic keycodes, got %s", expr.Name, arg.Expr)
		}
		return kc | m.mod, nil
	}
	return 0, fmt.Errorf("unknown function %s", expr.Name)
}

func evaluateLayer(arg *keydsl.Argument, layers map[string]uint8) (uint8, error) {
	if arg.Number != nil {
		if *arg.Number < 0 || *arg.Number >= MaxLayers {
			return 0, fmt.Errorf("layer %d out of range", *arg.Number)
		}
		return uint8(*arg.Number), nil
	}
	if arg.Expr.IsCall() || arg.Expr.Code != nil {
		return 0, fmt.Errorf("invalid layer %s", arg.Expr)
	}
	layer, ok := layers[arg.Expr.Name]
	if !ok {
		return 0, fmt.Errorf("unknown layer %s", arg.Expr.Name)
	}
	return layer, nil
}
