package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/audiofog/pulsebridge/internal/client"
	"github.com/audiofog/pulsebridge/internal/config"
	"github.com/audiofog/pulsebridge/internal/logging"
	"github.com/audiofog/pulsebridge/internal/native"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	server     = flag.String("server", "", "Daemon address (default: environment, then the per-user socket)")
	sinkName   = flag.String("sink", "", "Sink to play samples on (default: server default)")
	volumePct  = flag.Uint("volume", 0, "Playback volume in percent (0 = let the server decide)")
	timeout    = flag.Duration("timeout", 0, "Per-request timeout (default: from config)")
)

func main() {
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flag overrides
	if *server != "" {
		cfg.Server = *server
	}
	if *sinkName != "" {
		cfg.DefaultSink = *sinkName
	}
	if *timeout > 0 {
		cfg.RequestTimeout = *timeout
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	if err := run(cfg, logger, args); err != nil {
		logger.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, args []string) error {
	verb := args[0]

	// save-config does not need a connection
	if verb == "save-config" {
		path := defaultConfigPath()
		if len(args) > 1 {
			path = args[1]
		}
		if err := config.Save(path, cfg); err != nil {
			return err
		}
		fmt.Printf("Saved configuration to %s\n", path)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := newClient(cfg, logger)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	err := c.Connect(connectCtx)
	cancel()
	if err != nil {
		return err
	}
	defer c.Disconnect()

	reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()

	switch verb {
	case "play-sample":
		if len(args) < 2 {
			return fmt.Errorf("play-sample requires a sample name")
		}
		dev := cfg.DefaultSink
		if len(args) > 2 {
			dev = args[2]
		}
		return c.PlaySample(reqCtx, args[1], dev, volume())

	case "remove-sample":
		if len(args) < 2 {
			return fmt.Errorf("remove-sample requires a sample name")
		}
		return c.RemoveSample(reqCtx, args[1])

	case "default-sink":
		if len(args) < 2 {
			return fmt.Errorf("default-sink requires a sink name")
		}
		return c.SetDefaultSink(reqCtx, args[1])

	case "default-source":
		if len(args) < 2 {
			return fmt.Errorf("default-source requires a source name")
		}
		return c.SetDefaultSource(reqCtx, args[1])

	case "set-name":
		if len(args) < 2 {
			return fmt.Errorf("set-name requires a client name")
		}
		return c.SetName(reqCtx, args[1])

	case "exit-daemon":
		// The daemon usually drops the connection before confirming
		if ok := c.ExitDaemon(reqCtx); ok {
			fmt.Println("Daemon acknowledged exit")
		} else {
			fmt.Println("Exit requested (no acknowledgement)")
		}
		return nil

	case "info":
		printInfo(c)
		return nil
	}

	return fmt.Errorf("unknown command %q", verb)
}

func newClient(cfg *config.Config, logger *zap.Logger) *client.Client {
	var flags native.ContextFlags
	if cfg.NoAutospawn {
		flags |= native.ContextNoAutospawn
	}
	if cfg.NoFail {
		flags |= native.ContextNoFail
	}
	ctx := native.NewContextWithProplist(cfg.ClientName, native.Proplist{
		native.PropApplicationName: cfg.ClientName,
		native.PropApplicationID:   "com.audiofog.pulsectl",
	})
	return client.New(ctx, cfg.Server,
		client.WithLogger(logger),
		client.WithConnectFlags(flags),
	)
}

func volume() native.Volume {
	if *volumePct == 0 {
		return native.VolumeInvalid
	}
	return native.Volume(uint64(*volumePct) * uint64(native.VolumeNorm) / 100)
}

func printInfo(c *client.Client) {
	fmt.Printf("Server:                  %s\n", c.Server())
	local := "no"
	if c.IsLocal() {
		local = "yes"
	}
	fmt.Printf("Local connection:        %s\n", local)
	fmt.Printf("Client index:            %d\n", c.Index())
	fmt.Printf("Client protocol version: %d\n", c.ProtocolVersion())
	fmt.Printf("Server protocol version: %d\n", c.ServerProtocolVersion())
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "pulsectl", "pulsectl.yaml")
	}
	return "./pulsectl.yaml"
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [options] <command> [args]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  play-sample NAME [SINK]   Play a cached sample\n")
	fmt.Fprintf(os.Stderr, "  remove-sample NAME        Remove a sample from the cache\n")
	fmt.Fprintf(os.Stderr, "  default-sink NAME         Set the default sink\n")
	fmt.Fprintf(os.Stderr, "  default-source NAME       Set the default source\n")
	fmt.Fprintf(os.Stderr, "  set-name NAME             Rename this client on the server\n")
	fmt.Fprintf(os.Stderr, "  exit-daemon               Ask the daemon to terminate\n")
	fmt.Fprintf(os.Stderr, "  info                      Print connection diagnostics\n")
	fmt.Fprintf(os.Stderr, "  save-config [PATH]        Write the effective configuration\n")
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExamples:\n")
	fmt.Fprintf(os.Stderr, "  %s play-sample bell\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s --server /run/user/1000/pulse/native default-sink alsa_output.hdmi\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  PULSECTL_LOG_LEVEL=debug %s info\n", os.Args[0])
}
