package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"go.uber.org/zap"

	"github.com/itohio/ballbeam/pkg/config"
	"github.com/itohio/ballbeam/pkg/display"
	"github.com/itohio/ballbeam/pkg/link"
	"github.com/itohio/ballbeam/pkg/logging"
	"github.com/itohio/ballbeam/pkg/monitor"
	"github.com/itohio/ballbeam/pkg/scope"
	"github.com/itohio/ballbeam/pkg/session"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated rig instead of serial port")
		portsFlag  = flag.Bool("ports", false, "List serial ports and exit")
	)
	flag.Parse()

	if *portsFlag {
		if err := printPorts(); err != nil {
			log.Fatalf("Failed to list serial ports: %v", err)
		}
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override serial port if provided via command line
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// The rig must be reachable before anything else is built
	transport := link.Open(cfg, *mockFlag, logger)
	if err := transport.Connect(); err != nil {
		logger.Fatal("Failed to connect", zap.String("port", cfg.Serial.Port), zap.Bool("mock", *mockFlag), zap.Error(err))
	}
	if *mockFlag {
		logger.Info("Connected to simulated rig")
	} else {
		logger.Info("Connected to serial port", zap.String("port", cfg.Serial.Port), zap.Int("baud", cfg.Serial.BaudRate))
	}

	// Create Fyne application
	application := app.NewWithID("com.itohio.ballbeam")

	// Create main window
	window := application.NewWindow("Ball and Beam PID Monitor")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	scopeWidget := scope.New(cfg.Display)
	panel := newControlPanel(window)

	// Frames are produced on the monitor goroutine and applied on the Fyne thread
	bridge := newFrameBridge(fyne.Do, func(f display.Frame) {
		scopeWidget.Render(f)
		panel.render(f)
	})

	state := session.New()
	adapter := display.New(cfg.Display, cfg.Session.SampleInterval, bridge, logger)
	adapter.Attach(state)
	m := monitor.New(transport, state, adapter, cfg.Session.PollInterval, logger)
	panel.bind(m)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		m.Run(ctx)
	}()

	window.SetContent(container.NewBorder(
		nil,
		panel.container(),
		nil,
		nil,
		scopeWidget,
	))

	window.SetOnClosed(func() {
		cancel()
		select {
		case <-runDone:
		case <-time.After(time.Second):
			logger.Warn("Monitor did not stop in time")
		}
		if err := m.Close(); err != nil {
			logger.Warn("Failed to close transport", zap.Error(err))
		}
		logger.Info("Disconnected")
	})

	window.ShowAndRun()
}

// printPorts writes the detected serial ports to stdout.
func printPorts() error {
	ports, err := link.Ports()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(os.Stdout, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		if p.Description != "" {
			fmt.Fprintf(os.Stdout, "%s\t%s\n", p.Name, p.Description)
		} else {
			fmt.Fprintln(os.Stdout, p.Name)
		}
	}
	return nil
}
