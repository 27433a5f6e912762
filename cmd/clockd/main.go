// Command clockd drives a Si5351 clock generator from a JSON clock plan and
// serves its status and controls over HTTP.
// Run with --backend=mock to use a simulated chip (no I2C device required).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/micro-nova/clockgen-go/internal/api"
	"github.com/micro-nova/clockgen-go/internal/config"
	"github.com/micro-nova/clockgen-go/internal/controller"
	"github.com/micro-nova/clockgen-go/internal/events"
	"github.com/micro-nova/clockgen-go/internal/hardware"
	"github.com/micro-nova/clockgen-go/internal/zeroconf"
	"periph.io/x/conn/v3/physic"
)

func main() {
	var (
		backend  = flag.String("backend", "i2c", "register transport: i2c, periph, bridge or mock")
		i2cDev   = flag.String("i2c", "/dev/i2c-1", "i2c-dev node (backend=i2c) or periph bus name (backend=periph)")
		bridge   = flag.String("bridge", "/dev/ttyUSB0", "serial port of the SC18IM700 bridge (backend=bridge)")
		baud     = flag.Int("baud", 9600, "bridge baud rate")
		oebPin   = flag.String("oeb", "", "GPIO driving the OEB pin, e.g. GPIO17 (empty: not wired)")
		addr     = flag.String("addr", ":8351", "HTTP listen address")
		cfgDir   = flag.String("config-dir", "", "config directory (default: ~/.config/clockgen)")
		monitor  = flag.Duration("monitor", controller.DefaultMonitorInterval, "status register poll interval")
		mdns     = flag.Bool("mdns", true, "advertise the API over mDNS")
		debug    = flag.Bool("debug", false, "enable debug logging")
		i2cSpeed physic.Frequency
	)
	flag.Var(&i2cSpeed, "i2c-speed", "bus clock for backend=periph, e.g. 400kHz (0: leave as is)")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	if *cfgDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			slog.Error("cannot determine home directory", "err", err)
			os.Exit(1)
		}
		*cfgDir = filepath.Join(home, ".config", "clockgen")
	}
	if err := os.MkdirAll(*cfgDir, 0755); err != nil {
		slog.Error("cannot create config directory", "path", *cfgDir, "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	hw, err := newDriver(*backend, *i2cDev, i2cSpeed, *bridge, *baud)
	if err != nil {
		slog.Error("invalid backend", "err", err)
		os.Exit(2)
	}
	if err := hw.Init(ctx); err != nil {
		slog.Error("hardware initialization failed", "backend", hw.Name(), "err", err)
		os.Exit(1)
	}
	defer hw.Close()
	slog.Info("register transport ready", "backend", hw.Name(), "real", hw.IsReal())

	opts := controller.Options{
		Driver: hw,
		Store:  config.NewJSONStore(*cfgDir),
		Bus:    events.NewBus(),
	}
	if *oebPin != "" {
		pin, err := hardware.OpenOEBPin(*oebPin)
		if err != nil {
			slog.Error("cannot open OEB pin", "pin", *oebPin, "err", err)
			os.Exit(1)
		}
		opts.OEB = pin
	}

	ctrl, err := controller.New(ctx, opts)
	if err != nil {
		slog.Error("controller initialization failed", "err", err)
		os.Exit(1)
	}
	go ctrl.RunMonitor(ctx, *monitor)

	// Hand edits to the plan file are applied live.
	watcher, err := config.NewWatcher(opts.Store.Path())
	if err != nil {
		slog.Warn("plan watcher unavailable", "err", err)
	} else {
		defer watcher.Close()
		go watcher.Run(ctx, func() {
			if err := ctrl.Reload(ctx); err != nil {
				slog.Error("plan reload failed", "path", opts.Store.Path(), "err", err)
			}
		})
	}

	if *mdns {
		plan := ctrl.Plan()
		hostname, _ := os.Hostname()
		zc := zeroconf.New("clockgen-"+hostname, listenPort(*addr),
			zeroconf.TXTRecords(plan.Variant.String(), plan.Address, hw.Name()))
		go func() {
			if err := zc.Start(ctx); err != nil {
				slog.Warn("zeroconf failed", "err", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(ctrl, opts.Bus),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		slog.Info("clockd listening", "addr", *addr, "backend", hw.Name(), "config", *cfgDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := opts.Store.Flush(); err != nil {
		slog.Warn("failed to flush plan", "err", err)
	}
	if err := srv.Shutdown(shutCtx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
	slog.Info("shutdown complete")
}

// newDriver builds the register transport named by backend.
func newDriver(backend, i2cDev string, speed physic.Frequency, bridge string, baud int) (hardware.Driver, error) {
	switch backend {
	case "i2c":
		return hardware.NewI2C(i2cDev), nil
	case "periph":
		name := i2cDev
		if strings.HasPrefix(name, "/dev/") {
			name = "" // first bus periph finds
		}
		return hardware.NewPeriph(name, speed), nil
	case "bridge":
		return hardware.NewBridge(bridge, baud), nil
	case "mock":
		return hardware.NewMock(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", backend)
}

// listenPort extracts the TCP port from a listen address, defaulting to 80.
func listenPort(addr string) int {
	port := 80
	if i := strings.LastIndex(addr, ":"); i >= 0 && i+1 < len(addr) {
		if p, err := strconv.Atoi(addr[i+1:]); err == nil {
			port = p
		}
	}
	return port
}
