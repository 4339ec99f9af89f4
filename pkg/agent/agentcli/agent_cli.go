package agentcli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/neuroplastio/neio-stick/internal/configsvc"
	"github.com/neuroplastio/neio-stick/internal/hostsvc"
	"github.com/neuroplastio/neio-stick/internal/hostsvc/sim"
	"github.com/neuroplastio/neio-stick/pkg/agent"
	"github.com/neuroplastio/neio-stick/pkg/keymap"
	"github.com/spf13/cobra"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "neio-stick"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

// agentProvider opens the agent on first use, so commands that only read
// configuration never lock the database.
type agentProvider func(opts ...agent.Option) (*agent.Agent, error)

func NewRootCmd(configDir string) *cobra.Command {
	cfg := agent.Config{
		DataDir:     filepath.Join(configDir, "data"),
		StickConfig: filepath.Join(configDir, "stick.yml"),
		Backend:     agent.BackendLinux,
		ViewAddr:    "127.0.0.1:8214",
	}
	rootCmd := &cobra.Command{
		Use:   "neio-stick",
		Short: "Thumbstick keyboard host",
		Long: `neio-stick runs the keymap and the analog thumbstick of an LHP14 lite style
keyboard: joystick or mouse output, rapid fire and a status screen.`,
		SilenceUsage: true,
	}
	var a *agent.Agent
	provider := func(opts ...agent.Option) (*agent.Agent, error) {
		if a != nil {
			return a, nil
		}
		var err error
		a, err = agent.NewAgent(cfg, opts...)
		return a, err
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&cfg.StickConfig, "stick-config", cfg.StickConfig, "stick config file")
	rootCmd.PersistentFlags().StringVar(&cfg.Backend, "backend", cfg.Backend, "host backend: linux or sim")
	rootCmd.PersistentFlags().StringVar(&cfg.ViewAddr, "view-addr", cfg.ViewAddr, "status view address, empty to disable")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return cfg.Validate()
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if a == nil {
			return nil
		}
		return a.Close()
	}
	rootCmd.AddCommand(NewRun(provider))
	rootCmd.AddCommand(NewSimulate(&cfg, provider))
	rootCmd.AddCommand(NewCheckConfig(&cfg))
	rootCmd.AddCommand(NewPrintKeymap(&cfg))
	rootCmd.AddCommand(NewListDevices(provider))
	rootCmd.AddCommand(NewReportDescriptor())
	return rootCmd
}

func NewRun(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the keyboard host",
		Long:  `Run the keyboard host until interrupted. The stick config is reloaded on change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := agent()
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}
}

// syncWriter serializes frame and report output of the simulator.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *syncWriter) Printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, format, args...)
}

func NewSimulate(cfg *agent.Config, provider agentProvider) *cobra.Command {
	var (
		reports  bool
		holdTime time.Duration
		settle   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate [script]",
		Short: "Run a key script against the simulator",
		Long: `Run the host on the simulator backend and feed it a script read from a file
or stdin. Every new status frame is printed.

Script commands:
  press ROW COL, release ROW COL, tap ROW COL
  analog PIN VALUE
  leds NUM CAPS SCROLL
  wait DURATION`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var src []byte
			var err error
			if len(args) == 1 {
				src, err = os.ReadFile(args[0])
			} else {
				src, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read script: %w", err)
			}
			script, err := sim.ParseScript(string(src))
			if err != nil {
				return err
			}

			out := &syncWriter{w: cmd.OutOrStdout()}
			cfg.Backend = agent.BackendSim
			cfg.DataDir = filepath.Join(cfg.DataDir, "sim")
			var opts []agent.Option
			if reports {
				opts = append(opts, agent.WithSimOptions(sim.WithReportHandler(func(report []byte) {
					out.Printf("report % x\n", report)
				})))
			}
			a, err := provider(opts...)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			done := make(chan error, 1)
			go func() {
				done <- a.Run(ctx)
			}()
			select {
			case err := <-done:
				return err
			case <-a.Ready():
			}

			printed := make(chan struct{})
			go func() {
				printFrames(ctx, a.Host(), out)
				close(printed)
			}()
			err = script.Run(ctx, a.Simulator(), holdTime)
			if err == nil {
				time.Sleep(settle)
			}
			cancel()
			<-printed
			if runErr := <-done; runErr != nil {
				return runErr
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&reports, "reports", false, "print every HID report")
	cmd.Flags().DurationVar(&holdTime, "hold", 30*time.Millisecond, "how long tap holds a key")
	cmd.Flags().DurationVar(&settle, "settle", 200*time.Millisecond, "how long to run after the script")
	return cmd
}

func printFrames(ctx context.Context, host *hostsvc.Service, out *syncWriter) {
	n := 0
	for msg := range host.Frames()(ctx) {
		n++
		frame := msg.Message
		out.Printf("--- frame %d layer %d ---\n%s\n", n, frame.Layer, strings.Join(frame.Lines, "\n"))
	}
}

func loadStickConfig(path string) (agent.StickConfig, error) {
	stick, err := configsvc.Read(path, agent.DefaultStickConfig())
	if errors.Is(err, fs.ErrNotExist) {
		return agent.DefaultStickConfig(), nil
	}
	return stick, err
}

func NewCheckConfig(cfg *agent.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the stick config",
		Long:  `Validate the stick config, including the backend section for the selected backend.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stick, err := configsvc.Read(cfg.StickConfig, agent.DefaultStickConfig())
			if err != nil {
				return err
			}
			if cfg.Backend == agent.BackendLinux {
				if err := stick.Linux.Validate(); err != nil {
					return fmt.Errorf("linux: %w", err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", cfg.StickConfig)
			return nil
		},
	}
}

func NewPrintKeymap(cfg *agent.Config) *cobra.Command {
	var normalize bool
	cmd := &cobra.Command{
		Use:   "print-keymap",
		Short: "Print the keymap",
		Long:  `Print the keymap of the stick config, or the default keymap if there is none.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			stick, err := loadStickConfig(cfg.StickConfig)
			if err != nil {
				return err
			}
			layers := stick.Keymap
			if normalize {
				km, err := keymap.Compile(layers)
				if err != nil {
					return err
				}
				layers = km.Config()
			}
			b, err := yaml.Marshal(struct {
				Keymap []keymap.LayerConfig `yaml:"keymap"`
			}{layers})
			if err != nil {
				return fmt.Errorf("failed to marshal keymap: %w", err)
			}
			cmd.OutOrStdout().Write(b)
			return nil
		},
	}
	cmd.Flags().BoolVar(&normalize, "normalize", false, "print canonical keycode names")
	return cmd
}

func NewListDevices(agent agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "list-devices",
		Short: "List known devices",
		Long:  `List the bridge and output devices the host has seen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := agent()
			if err != nil {
				return err
			}
			devices, err := a.Registry().List()
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(devices, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
}

func NewReportDescriptor() *cobra.Command {
	var raw, hex bool
	cmd := &cobra.Command{
		Use:   "report-descriptor",
		Short: "Print the report descriptor",
		Long:  `Print the HID report descriptor of the composite keyboard, mouse, joystick and consumer control device.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if raw || hex {
				b, err := hostsvc.EncodeReportDescriptor()
				if err != nil {
					return err
				}
				if raw {
					cmd.OutOrStdout().Write(b)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "% x\n", b)
				return nil
			}
			jsonB, err := json.MarshalIndent(hostsvc.ReportDescriptor(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print raw report descriptor")
	cmd.Flags().BoolVar(&hex, "hex", false, "print report descriptor as hex")
	return cmd
}
