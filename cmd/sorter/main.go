package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sopheakchan/trash-classification/internal/classify"
	"github.com/sopheakchan/trash-classification/internal/config"
	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/remote"
	"github.com/sopheakchan/trash-classification/internal/session"
	"github.com/sopheakchan/trash-classification/internal/web"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "sorter",
		Short:         "Trash classification orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", filepath.Join("configs", "default.yaml"), "path to config file")

	root.AddCommand(newServeCmd(&cfgPath))
	root.AddCommand(newTestCmd(&cfgPath))
	root.AddCommand(newOnceCmd(&cfgPath))
	root.AddCommand(newContinuousCmd(&cfgPath))
	return root
}

// app bundles the orchestrator's wired components.
type app struct {
	cfg      *config.Config
	client   *remote.Client
	sessions *session.Controller
}

func loadApp(cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	debug.Init(cfg.Defaults.DebugLevel)

	engine, err := engineFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(cfg.Peripheral.ID, cfg.Peripheral.BaseURL, cfg.PeerTimeout())

	routes := session.Routes{
		classify.LabelCan:     {Channel: cfg.Channels.Can, Duration: cfg.CanDuration()},
		classify.LabelPlastic: {Channel: cfg.Channels.Plastic, Duration: cfg.PlasticDuration()},
	}

	sessions := session.New(engine, routes)
	// The remote client carries both capabilities of the peripheral.
	sessions.Register(client.PeripheralID(), client, client)

	return &app{cfg: cfg, client: client, sessions: sessions}, nil
}

// engineFromConfig selects the inference collaborator based on
// configuration.
func engineFromConfig(cfg *config.Config) (classify.Engine, error) {
	if cfg.Engine.Mock {
		return classify.Fixed{P: cfg.Engine.MockP}, nil
	}
	if cfg.Engine.Endpoint == "" {
		return nil, fmt.Errorf("engine.endpoint is required (or set engine.mock)")
	}
	return classify.NewHTTPEngine(cfg.Engine.Endpoint, cfg.EngineTimeout()), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the inference/session HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*cfgPath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			srv := web.NewServer(a.cfg.Listen.Orchestrator, web.NewHandlers(a.sessions))
			return srv.Run(ctx)
		},
	}
}

func newTestCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Probe peripheral connectivity (no motors moved)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*cfgPath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			out := cmd.OutOrStdout()
			st, err := a.client.Status(ctx)
			if err != nil {
				fmt.Fprintf(out, "peripheral %s: UNREACHABLE (%v)\n", a.cfg.Peripheral.BaseURL, err)
				return nil
			}
			fmt.Fprintf(out, "peripheral %s: %s (%s)\n", a.cfg.Peripheral.BaseURL, st.Status, st.Message)
			fmt.Fprintf(out, "  camera_available: %v\n", st.CameraAvailable)
			fmt.Fprintf(out, "  gpio_initialized: %v\n", st.GPIOInitialized)

			report, err := a.client.SelfTest(ctx)
			if err != nil {
				fmt.Fprintf(out, "self test: FAILED (%v)\n", err)
				return nil
			}
			fmt.Fprintf(out, "self test: %s, camera shape %v\n", report.Message, report.CameraShape)
			return nil
		},
	}
}

func newOnceCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single capture->classify->actuate cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(*cfgPath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			a.sessions.Start()
			runCycle(ctx, cmd, a)
			return nil
		},
	}
}

func newContinuousCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "continuous <interval_seconds>",
		Short: "Run cycles repeatedly until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seconds, err := strconv.Atoi(args[0])
			if err != nil || seconds <= 0 {
				return fmt.Errorf("interval_seconds must be a positive integer, got %q", args[0])
			}

			a, err := loadApp(*cfgPath)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			a.sessions.Start()
			runCycle(ctx, cmd, a)

			ticker := time.NewTicker(time.Duration(seconds) * time.Second)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					snap := a.sessions.Stop()
					fmt.Fprintf(cmd.OutOrStdout(), "stopped: can=%d plastic=%d\n", snap.CanCount, snap.PlasticCount)
					return nil
				case <-ticker.C:
					runCycle(ctx, cmd, a)
				}
			}
		},
	}
}

// runCycle executes one cycle and prints the outcome. A single-cycle
// failure is reported as text only; the orchestrator stays ready for
// the next cycle.
func runCycle(ctx context.Context, cmd *cobra.Command, a *app) {
	out := cmd.OutOrStdout()
	result, err := a.sessions.RunCycle(ctx, a.client.PeripheralID())
	if err != nil {
		fmt.Fprintf(out, "cycle failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "%s (%.2f%%) can=%d plastic=%d\n",
		result.Label, result.Confidence, result.CanCount, result.PlasticCount)
}
