package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("diald v%s\n", version)
	fmt.Println("Rotary dial event-normalization daemon")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  diald [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Daemon that reads rotary encoder and button events from a Linux input")
	fmt.Println("  device, filters mechanical backlash, converts rotation into volume")
	fmt.Println("  steps with speed-adaptive sensitivity, and publishes the results over")
	fmt.Println("  a telemetry WebSocket. Haptic pulses acknowledge wake, range limits,")
	fmt.Println("  and confirmed direction changes.")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to YAML config file (flags override file values)")
	fmt.Println()
	fmt.Println("  -device string")
	fmt.Printf("        Linux input event device for the dial (default %q)\n", defaultInputDevice)
	fmt.Println()
	fmt.Println("  -haptic-dev string")
	fmt.Println("        hidraw device for haptic feedback (default: auto-discover from")
	fmt.Println("        the input device's sysfs ancestry)")
	fmt.Println()
	fmt.Println("  -telemetry-ws-url string")
	fmt.Println("        Telemetry websocket URL (default \"ws://127.0.0.1:9001\")")
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Println("        Unix domain socket path for IPC (default \"/tmp/diald.sock\")")
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  DIALD_DEVICE     - input device path (overridden by -device)")
	fmt.Println("  DIALD_HAPTIC_DEV - hidraw device path (overridden by -haptic-dev)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start daemon with default settings")
	fmt.Println("  diald")
	fmt.Println()
	fmt.Println("  # Custom input device")
	fmt.Println("  diald -device /dev/input/event4")
	fmt.Println()
	fmt.Println("  # Publish to a remote telemetry broker")
	fmt.Println("  diald -telemetry-ws-url ws://192.168.1.100:9001")
	fmt.Println()
	fmt.Println("NOTES:")
	fmt.Println("  - Requires read access to the input device (run as root or add user")
	fmt.Println("    to 'input' group)")
	fmt.Println("  - The daemon keeps retrying if the device is absent or unplugged")
	fmt.Println()
}

func main() {
	// Check for version/help flags early
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" {
			printVersion()
			return
		}
		if arg == "-help" || arg == "--help" || arg == "-h" {
			printUsage()
			return
		}
	}

	// Parse command-line flags
	var (
		configPath     = flag.String("config", "", "Path to YAML config file")
		inputDevice    = flag.String("device", "", "Linux input event device for the dial")
		hapticDevice   = flag.String("haptic-dev", "", "hidraw device for haptic feedback")
		telemetryWsURL = flag.String("telemetry-ws-url", "", "Telemetry websocket URL")
		ipcSocketPath  = flag.String("ipc-socket", "", "Unix domain socket path for IPC")
		logLevelStr    = flag.String("log-level", "", "Log level: error, warn, info, debug")
		showVersion    = flag.Bool("version", false, "Print version and exit")
		showHelp       = flag.Bool("help", false, "Print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}
	if *showVersion {
		printVersion()
		return
	}

	// Resolve configuration: defaults, then file, then environment, then flags.
	cfg := DefaultConfig()
	if *configPath != "" {
		loaded, err := LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if dev := os.Getenv("DIALD_DEVICE"); dev != "" {
		cfg.Input.Device = dev
	}
	if dev := os.Getenv("DIALD_HAPTIC_DEV"); dev != "" {
		cfg.Haptics.Device = dev
	}

	// Flags only override when explicitly set on the command line.
	overrides := FlagOverrides{}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			overrides.InputDevice = inputDevice
		case "haptic-dev":
			overrides.HapticDevice = hapticDevice
		case "telemetry-ws-url":
			overrides.TelemetryURL = telemetryWsURL
		case "ipc-socket":
			overrides.IPCSocketPath = ipcSocketPath
		case "log-level":
			overrides.LogLevel = logLevelStr
		}
	})
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	logLevel, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	logger := setupLogger(logLevel)

	// Handle shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Central event channel: input reader, IPC, and telemetry all feed it.
	events := make(chan Event, 64)

	// Haptics never blocks startup; missing hardware just disables buzzes.
	hapticPath := resolveHapticDevice(cfg.Haptics.Device, cfg.Input.Device, logger)
	haptics := OpenHapticPort(hapticPath, logger)
	defer haptics.Close()

	var telemetry *TelemetryClient
	if cfg.Telemetry.Enabled {
		telemetry, err = NewTelemetryClient(cfg.Telemetry.WsURL, events, logger)
		if err != nil {
			logger.Error("invalid telemetry configuration", "error", err)
			os.Exit(1)
		}
	}

	eff := NewEffects(haptics, telemetry, logger)
	dialCfg := cfg.ToDialConfig()
	state := NewDialState(dialCfg)

	logger.Debug("starting diald", "version", version)
	logger.Info("listening",
		"device", cfg.Input.Device,
		"haptic_dev", hapticPath,
		"telemetry_ws", cfg.Telemetry.WsURL,
		"telemetry_enabled", cfg.Telemetry.Enabled,
		"ipc", cfg.IPC.SocketPath)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runDaemon(ctx, events, eff, dialCfg, state, cfg.TickInterval(), logger)
	})
	g.Go(func() error {
		return runInputReader(ctx, cfg.Input.Device, events, logger)
	})
	g.Go(func() error {
		return runIPCServer(ctx, cfg.IPC.SocketPath, events, logger)
	})
	if telemetry != nil {
		g.Go(func() error {
			return telemetry.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("daemon exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
