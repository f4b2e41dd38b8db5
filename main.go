// Package main runs the cropwatch live analysis loop: capture a frame,
// classify it, decide whether to spray and report the result.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"cropwatch/internal/analysis"
	"cropwatch/internal/api"
	"cropwatch/internal/camera"
	"cropwatch/internal/classify"
	"cropwatch/internal/config"
	"cropwatch/internal/decision"
	"cropwatch/internal/image"
	"cropwatch/internal/pipeline"
	"cropwatch/internal/report"
	"cropwatch/internal/version"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := flag.String("config", "", "Path to config file (default: user config dir)")
	modelPath := flag.String("model", "", "Classifier checkpoint (overrides config)")
	device := flag.String("device", "", "Camera index, device path or stream URL (overrides config)")
	replay := flag.String("replay", "", "Replay still images from this directory instead of a camera")
	delay := flag.Duration("delay", 0, "Wait between cycles (overrides config)")
	area := flag.Float64("area", 0, "Field area in square metres (overrides config)")
	listen := flag.String("listen", "", "Status API address, e.g. :8080 (overrides config)")
	serialPort := flag.String("serial", "", "Serial port for the report line protocol (overrides config)")
	writeConfig := flag.Bool("write-config", false, "Write the effective config (without secrets) to the config path and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	log.Printf("Starting %s", version.String())

	cfg, err := config.Resolve(*configPath)
	if err != nil {
		log.Fatalf("Config: %v", err)
	}
	if *modelPath != "" {
		cfg.Model.Path = *modelPath
	}
	if *device != "" {
		cfg.Camera.Device = *device
	}
	if *replay != "" {
		cfg.Camera.ReplayDir = *replay
	}
	if *delay > 0 {
		cfg.Loop.Delay = delay.String()
	}
	if *area != 0 {
		cfg.Loop.FieldAreaSqm = *area
	}
	if *listen != "" {
		cfg.API.Listen = *listen
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config: %v", err)
	}
	if *writeConfig {
		path, err := saveConfig(*configPath, cfg)
		if err != nil {
			log.Fatalf("Config: %v", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return
	}

	engine, err := decision.NewEngine(cfg.Rules)
	if err != nil {
		log.Fatalf("Rules: %v", err)
	}

	labels, labelErr := resolveLabels(cfg)
	if labelErr == nil {
		if missing := engine.Taxonomy().Missing(labels); len(missing) > 0 {
			log.Printf("Warning: configured classes not known to the model: %v", missing)
		}
	}

	recorder := report.NewRecorder()
	sinks, closeSinks := buildSinks(cfg, recorder)
	defer closeSinks()

	loop := pipeline.New(
		pipeline.Config{Delay: cfg.Delay(), FieldAreaSqm: cfg.Loop.FieldAreaSqm},
		engine,
		func() (pipeline.FrameAnalyzer, error) {
			if labelErr != nil {
				return nil, labelErr
			}
			return analysis.Open(cfg.Model.Path, labels)
		},
		func() (image.Source, error) {
			if cfg.Camera.ReplayDir != "" {
				log.Printf("Replaying images from %s", cfg.Camera.ReplayDir)
				return image.NewDirSource(cfg.Camera.ReplayDir)
			}
			return camera.Open(cfg.Camera.Device)
		},
		sinks,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if cfg.API.Listen != "" {
		srv = startAPI(cfg.API.Listen, api.NewHandler(engine, recorder, loop, labels))
	}

	runErr := loop.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("API shutdown: %v", err)
		}
		cancel()
	}

	if runErr != nil {
		closeSinks()
		log.Printf("Stopped: %v", runErr)
		os.Exit(1)
	}
	log.Printf("Stopped after %d cycles", loop.Status().Cycles)
}

// saveConfig writes cfg to path, or to the per-user location when path is
// empty. The Telegram token is left out; it belongs in the environment.
func saveConfig(path string, cfg *config.Config) (string, error) {
	if path == "" {
		def, err := config.DefaultPath()
		if err != nil {
			return "", err
		}
		path = def
	}
	out := *cfg
	out.Telegram.Token = ""
	return path, out.Save(path)
}

func resolveLabels(cfg *config.Config) ([]string, error) {
	if len(cfg.Model.Labels) > 0 {
		return cfg.Model.Labels, nil
	}
	labels, source, err := classify.ResolveLabels(cfg.Model.Path, cfg.Model.DataDir)
	if err != nil {
		return nil, err
	}
	log.Printf("Class names from %s: %v", source, labels)
	return labels, nil
}

// buildSinks assembles the report sinks. Optional sinks that fail to open
// are logged and skipped so the loop still reports to the log.
func buildSinks(cfg *config.Config, recorder *report.Recorder) (report.Multi, func()) {
	sinks := report.Multi{report.LogSink{}, recorder}
	var closers []func() error

	if cfg.Serial.Port != "" {
		s, err := report.OpenSerialSink(cfg.Serial.Port, cfg.Serial.BaudRate)
		if err != nil {
			log.Printf("Serial sink disabled: %v", err)
		} else {
			log.Printf("Reporting to serial port %s at %d baud", cfg.Serial.Port, cfg.Serial.BaudRate)
			sinks = append(sinks, s)
			closers = append(closers, s.Close)
		}
	}

	if cfg.TelegramEnabled() {
		s, err := report.NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			log.Printf("Telegram sink disabled: %v", err)
		} else {
			s.ActionableOnly = cfg.Telegram.ActionableOnly
			log.Printf("Reporting to Telegram chat %d", cfg.Telegram.ChatID)
			sinks = append(sinks, s)
		}
	}

	closed := false
	return sinks, func() {
		if closed {
			return
		}
		closed = true
		for _, c := range closers {
			if err := c(); err != nil {
				log.Printf("Closing sink: %v", err)
			}
		}
	}
}

func startAPI(addr string, h *api.Handler) *http.Server {
	r := mux.NewRouter()
	h.RegisterRoutes(r.PathPrefix("/api").Subrouter())

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Printf("Status API listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Status API: %v", err)
		}
	}()
	return srv
}
