package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sopheakchan/trash-classification/internal/classify"
	"github.com/sopheakchan/trash-classification/internal/config"
	"github.com/sopheakchan/trash-classification/internal/debug"
	"github.com/sopheakchan/trash-classification/internal/hw/actuator"
	"github.com/sopheakchan/trash-classification/internal/hw/camera"
	"github.com/sopheakchan/trash-classification/internal/hw/gpio"
	"github.com/sopheakchan/trash-classification/internal/peripheral"
)

func main() {
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Peripheral Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize motor channels (outputs, driven low)
	debug.Step(2, "Initializing motor channels")
	motors := actuator.NewGPIO(gpioDriver, cfg.Channels.Can, cfg.Channels.Plastic)
	debug.Value("Can channel", cfg.Channels.Can)
	debug.Value("Plastic channel", cfg.Channels.Plastic)

	// Initialize camera
	debug.Step(3, "Initializing camera")
	cam := newCameraFromConfig(cfg)
	debug.Value("Mock camera", cfg.Defaults.MockCamera)
	debug.Value("Frame size", debug.Fmt("%dx%d", cfg.Camera.WidthPx, cfg.Camera.HeightPx))

	routes := map[classify.Label]actuator.Command{
		classify.LabelCan: {
			Label:    string(classify.LabelCan),
			Channel:  cfg.Channels.Can,
			Duration: cfg.CanDuration(),
		},
		classify.LabelPlastic: {
			Label:    string(classify.LabelPlastic),
			Channel:  cfg.Channels.Plastic,
			Duration: cfg.PlasticDuration(),
		},
	}

	service := peripheral.New(cfg.Peripheral.ID, cam, motors, routes)
	srv := peripheral.NewServer(cfg.Listen.Peripheral, service)

	debug.Section("Serving Peripheral API")
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("peripheral server: %v", err)
	}
}

// newCameraFromConfig selects a capture source based on configuration.
func newCameraFromConfig(cfg *config.Config) camera.Source {
	if cfg.Defaults.MockCamera {
		return camera.NewMock(cfg.Peripheral.ID, cfg.Camera.WidthPx, cfg.Camera.HeightPx)
	}
	return camera.NewLocal(
		cfg.Peripheral.ID,
		cfg.Camera.Devices,
		cfg.Camera.WidthPx,
		cfg.Camera.HeightPx,
		cfg.Camera.Command,
	)
}
