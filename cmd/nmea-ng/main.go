package main

import (
	"context"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"nmea-ng/internal/config"
	"nmea-ng/internal/nmea"
	"nmea-ng/internal/web"
)

func main() {
	var (
		configPath  string
		summaryPath string
		parseStdin  bool
	)
	flag.StringVar(&configPath, "config", "./dev.yaml", "Path to YAML config")
	flag.StringVar(&summaryPath, "summary", "", "Print a summary of a recorded NMEA log and exit")
	flag.BoolVar(&parseStdin, "parse", false, "Decode sentences from stdin, print JSON records and exit")
	flag.Parse()

	if summaryPath != "" {
		if err := printLogSummary(os.Stdout, summaryPath); err != nil {
			log.Fatalf("log summary failed: %v", err)
		}
		return
	}

	if parseStdin {
		failed, err := parseStream(nmea.NewParser(nmea.DefaultRegistry()), os.Stdin, os.Stdout, os.Stderr)
		if err != nil {
			log.Fatalf("parse failed: %v", err)
		}
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logs := web.NewLogBuffer(2000)
	setupLogging(cfg.Log, logs)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("nmea-ng starting config=%s", configPath)
	rt, err := newLiveRuntime(ctx, cfg, logs)
	if err != nil {
		log.Fatalf("init failed: %v", err)
	}

	runErr := rt.Run(ctx)
	log.Printf("nmea-ng stopping")
	if err := rt.Close(); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if runErr != nil {
		log.Fatalf("%v", runErr)
	}
}

// setupLogging sends the standard logger to stderr or a rotating file, and
// always into logs for the web log view.
func setupLogging(c config.LogConfig, logs *web.LogBuffer) {
	var out io.Writer = os.Stderr
	if c.Path != "" {
		out = &lumberjack.Logger{
			Filename:   c.Path,
			MaxSize:    c.MaxSizeMB,
			MaxBackups: c.MaxBackups,
		}
	}
	log.SetOutput(io.MultiWriter(out, logs))
	log.SetFlags(log.LstdFlags | log.LUTC)
}
