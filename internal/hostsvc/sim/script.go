package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/neuroplastio/neio-stick/hostapi"
)

// Script drives a simulated keyboard:
//
//	analog 0 784   # stick X fully deflected
//	tap 0 4        # JS_TOGGLE on the default keymap
//	press 3 5
//	wait 200ms
//	release 3 5
//	leds 1 0 0
type Script struct {
	Commands []*Command `parser:"@@*"`
}

type Command struct {
	Press   *Key      `parser:"  'press' @@"`
	Release *Key      `parser:"| 'release' @@"`
	Tap     *Key      `parser:"| 'tap' @@"`
	Analog  *Analog   `parser:"| 'analog' @@"`
	LEDs    *LEDs     `parser:"| 'leds' @@"`
	Wait    *Duration `parser:"| 'wait' @Duration"`
}

type Key struct {
	Row int `parser:"@Number"`
	Col int `parser:"@Number"`
}

type Analog struct {
	Pin   int `parser:"@Number"`
	Value int `parser:"@Number"`
}

type LEDs struct {
	NumLock    int `parser:"@Number"`
	CapsLock   int `parser:"@Number"`
	ScrollLock int `parser:"@Number"`
}

type Duration time.Duration

func (d *Duration) Capture(values []string) error {
	v, err := time.ParseDuration(values[0])
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

var scriptLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Duration", Pattern: `\d+(ms|s|m)`},
	{Name: "Number", Pattern: `\d+`},
	{Name: "Ident", Pattern: `[a-z]+`},
})

var scriptParser = participle.MustBuild[Script](
	participle.Lexer(scriptLexer),
	participle.Elide("Comment", "Whitespace"),
)

func ParseScript(src string) (*Script, error) {
	script, err := scriptParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	return script, nil
}

// Run feeds the script into the backend. Taps hold the key for holdTime.
func (s *Script) Run(ctx context.Context, b *Backend, holdTime time.Duration) error {
	for _, cmd := range s.Commands {
		var err error
		switch {
		case cmd.Press != nil:
			b.Press(cmd.Press.position())
		case cmd.Release != nil:
			b.Release(cmd.Release.position())
		case cmd.Tap != nil:
			b.Press(cmd.Tap.position())
			err = sleep(ctx, holdTime)
			b.Release(cmd.Tap.position())
		case cmd.Analog != nil:
			b.SetSample(hostapi.Pin(cmd.Analog.Pin), uint16(cmd.Analog.Value))
		case cmd.LEDs != nil:
			b.SetLEDs(hostapi.LockLEDs{
				NumLock:    cmd.LEDs.NumLock != 0,
				CapsLock:   cmd.LEDs.CapsLock != 0,
				ScrollLock: cmd.LEDs.ScrollLock != 0,
			})
		case cmd.Wait != nil:
			err = sleep(ctx, time.Duration(*cmd.Wait))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (k Key) position() hostapi.KeyPosition {
	return hostapi.KeyPosition{Row: uint8(k.Row), Col: uint8(k.Col)}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
