// Command ballbeam-tui is the terminal monitor for the ball and beam rig.
package main

import (
	"flag"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/itohio/ballbeam/pkg/config"
	"github.com/itohio/ballbeam/pkg/display"
	"github.com/itohio/ballbeam/pkg/link"
	"github.com/itohio/ballbeam/pkg/logging"
	"github.com/itohio/ballbeam/pkg/monitor"
	"github.com/itohio/ballbeam/pkg/session"
)

func main() {
	var (
		portFlag   = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyACM0)")
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag   = flag.Bool("mock", false, "Use simulated rig instead of serial port")
		logFlag    = flag.String("log", "ballbeam-tui.log", "Log file (the terminal is owned by the UI)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *logFlag != "" {
		cfg.Logging.Output = *logFlag
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	transport := link.Open(cfg, *mockFlag, logger)
	if err := transport.Connect(); err != nil {
		logger.Error("Failed to connect", zap.String("port", cfg.Serial.Port), zap.Bool("mock", *mockFlag), zap.Error(err))
		log.Fatalf("Failed to connect to %s: %v", cfg.Serial.Port, err)
	}

	view := &frameStore{}
	state := session.New()
	adapter := display.New(cfg.Display, cfg.Session.SampleInterval, view, logger)
	adapter.Attach(state)
	m := monitor.New(transport, state, adapter, cfg.Session.PollInterval, logger)

	p := tea.NewProgram(newModel(m, view, cfg.Session.PollInterval), tea.WithAltScreen())
	_, runErr := p.Run()

	if err := m.Close(); err != nil {
		logger.Warn("Failed to close transport", zap.Error(err))
	}
	if runErr != nil {
		logger.Error("Terminal UI failed", zap.Error(runErr))
		log.Fatal(runErr)
	}
}
