// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lumen/cmd"
	"lumen/internal/audio"
	"lumen/internal/config"
	"lumen/internal/log"
	"lumen/internal/render"
	"lumen/internal/tui"
)

// main runs the pipeline in three phases:
//
// 1. Startup Phase (Cold Path):
//   - Parse configuration (file, environment, flags)
//   - Initialize logging and PortAudio
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the capture engine and, if enabled, recording
//   - Start the frame compositor and presenters
//   - Run the control dashboard (or block headless)
//
// 3. Shutdown Phase (Cold Path):
//   - Stop capture before rendering so no callback outlives the engine
//   - Flush and close the recording, presenters and PortAudio
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	cfg, err := cmd.ParseArgs()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.Debug {
		log.SetLevel(log.LevelDebug)
	} else if level, ok := log.ParseLevel(cfg.LogLevel); ok {
		log.SetLevel(level)
	}

	if err := audio.Initialize(); err != nil {
		log.Fatalf("%v", err)
	}
	defer audio.Terminate()

	switch cfg.Command {
	case "list":
		if err := audio.ListDevices(); err != nil {
			log.Fatalf("%v", err)
		}
		return
	case "devices":
		deviceID, err := tui.StartDevicePicker()
		if err != nil {
			log.Fatalf("%v", err)
		}
		cfg.Audio.DeviceID = deviceID
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// The engine is optional: with no usable device the visuals still run,
	// just without audio reactivity.
	var engine *audio.Engine
	if cfg.Audio.Enabled {
		engine, err = audio.NewEngine(cfg)
		switch {
		case errors.Is(err, audio.ErrDeviceUnavailable):
			log.Warnf("No usable input device, continuing without audio: %v", err)
			engine = nil
		case err != nil:
			log.Fatalf("%v", err)
		}
	}

	if engine != nil {
		if err := engine.StartInputStream(); err != nil {
			log.Fatalf("%v", err)
		}
		if cfg.Recording.Enabled {
			if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
				log.Fatalf("%v", err)
			}
		}
	}

	presenter := buildPresenter(cfg)

	colors := render.Colors()
	effects := render.Effects()

	var source render.FeatureSource
	if engine != nil {
		source = engine
	}
	compositor, err := render.NewCompositor(
		cfg.Render.Width, cfg.Render.Height, cfg.Render.TargetFPS,
		source, presenter,
	)
	if err != nil {
		log.Fatalf("%v", err)
	}
	compositor.SetBackground(colors.Build(cfg.Render.Background, cfg.Render.Width, cfg.Render.Height))
	compositor.SetOverlay(effects.Build(cfg.Render.Overlay, cfg.Render.Width, cfg.Render.Height))

	renderCtx, stopRender := context.WithCancel(context.Background())
	renderDone := make(chan struct{})
	go func() {
		defer close(renderDone)
		if err := compositor.Run(renderCtx); err != nil {
			log.Errorf("Render loop: %v", err)
		}
	}()

	if cfg.Headless {
		<-done
	} else {
		dashboard := tui.NewDashboardModel(engine, compositor, colors, effects,
			cfg.Render.Background, cfg.Render.Overlay)
		if err := tui.StartDashboard(dashboard); err != nil {
			log.Errorf("Dashboard: %v", err)
		}
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if engine != nil {
		if cfg.Recording.Enabled {
			if err := engine.StopRecording(); err != nil {
				log.Errorf("Error stopping recording: %v", err)
			} else {
				fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
			}
		}
		if err := engine.Close(); err != nil {
			log.Errorf("Error closing audio engine: %v", err)
		}
	}

	stopRender()
	<-renderDone

	if err := presenter.Close(); err != nil {
		log.Errorf("Error closing presenters: %v", err)
	}
}

// buildPresenter assembles the configured frame outputs. With none enabled
// frames are composed and discarded, which still drives the dashboard
// meters.
func buildPresenter(cfg *config.Config) render.Presenter {
	var outputs render.Fanout
	if cfg.Present.WebSocketEnabled {
		outputs = append(outputs, render.NewWebSocketPresenter(cfg.Present.WebSocketAddr))
	}
	if cfg.Present.UDPEnabled {
		udp, err := render.NewUDPPresenter(cfg.Present.UDPTargetAddress)
		if err != nil {
			log.Warnf("UDP presenter disabled: %v", err)
		} else {
			outputs = append(outputs, udp)
		}
	}
	if len(outputs) == 0 {
		return render.NullPresenter{}
	}
	return outputs
}
