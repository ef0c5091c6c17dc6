// proctor watches a camera or video file for phones, extra people and
// attention loss, and serves the results on a local dashboard.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-proctor/internal/app"
	"github.com/teslashibe/go-proctor/internal/config"
	plog "github.com/teslashibe/go-proctor/internal/log"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	plog.Init(cfg.LogLevel)

	a, err := app.New(cfg, plog.L())
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if err := a.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer a.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		a.Shutdown()
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags loads the config file and environment, then applies flags
// that were set explicitly.
func parseFlags() (config.Config, error) {
	defaults := config.Default()

	configPath := flag.String("config", "", "YAML configuration file")
	source := flag.String("source", defaults.Source, "Camera index or video file")
	model := flag.String("model", defaults.Model.Path, "Path to the YOLOv8 ONNX model")
	modelURL := flag.String("model-url", "", "Download the model from this URL when it is missing")
	port := flag.String("port", defaults.Port, "Dashboard port")
	tick := flag.Duration("tick", defaults.Tick, "Frame submission period")
	backends := flag.String("backends", "", "Comma separated compute backends to try (cuda, openvino, cpu)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return cfg, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "source":
			cfg.Source = *source
		case "model":
			cfg.Model.Path = *model
		case "model-url":
			cfg.Model.URL = *modelURL
		case "port":
			cfg.Port = *port
		case "tick":
			cfg.Tick = *tick
		case "backends":
			cfg.Model.Backends = config.SplitList(*backends)
		}
	})
	if *debug {
		cfg.LogLevel = "debug"
	}

	if cfg.Tick < 10*time.Millisecond {
		log.Printf("⚠️  tick %v is very short; the pipeline caps itself at one pass per %v", cfg.Tick, cfg.Pipeline.MinInterval)
	}
	return cfg, cfg.Validate()
}
