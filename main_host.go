//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"pulse/app"
	"pulse/hal"
	"pulse/internal/buildinfo"
	"pulse/kernel"
	"pulse/port"
)

func main() {
	var (
		headless hal.HeadlessConfig
		realTime bool
		tickHz   uint
		ticks    uint
		cpuHz    uint
		level    string
	)
	flag.BoolVar(&headless.Enabled, "headless", false, "Run without a window.")
	flag.BoolVar(&headless.Keys, "keys", true, "Read button presses from the terminal in headless mode.")
	flag.BoolVar(&realTime, "realtime", true, "Drive the tick from the wall clock (false = as fast as possible).")
	flag.UintVar(&tickHz, "tick-hz", 1000, "Scheduler tick rate.")
	flag.UintVar(&ticks, "ticks", 0, "Halt after N ticks (0 = run forever).")
	flag.UintVar(&cpuHz, "cpu-hz", 48_000_000, "Simulated core clock.")
	flag.StringVar(&level, "log-level", "info", "Log level (emerg..trace, disabled).")
	flag.Parse()

	lvl, err := parseLevel(level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	h := hal.New(uint32(cpuHz))
	log := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(hal.LineWriter{L: h.Logger()})),
		stumpy.L.WithLevel(lvl),
	).Clone().
		Str("boot", uuid.NewString()).
		Logger().
		Logger()
	log.Notice().Str("build", buildinfo.Describe()).Log("pulse host board")

	sim := port.NewSim(port.SimConfig{RealTime: realTime, Frequency: uint32(cpuHz)})
	kcfg := kernel.DefaultConfig()
	kcfg.TickHz = uint32(tickHz)
	kcfg.Clock = h.Clock()
	kcfg.Interrupts = sim
	kcfg.Log = log
	k := kernel.New(sim, kcfg)

	if pin, ok := hal.FindPin(h.GPIO(), hal.Buttons[0]).(hal.InterruptPin); ok {
		if err := pin.SetInterrupt(func() { sim.Raise(int16(app.ButtonIRQ)) }); err != nil {
			log.Warning().Err(err).Log("button unavailable")
		}
	}

	idle := sim.WaitForInterrupt
	if !realTime {
		idle = func() {
			sim.Tick()
			sim.WaitForInterrupt()
		}
	}

	acfg := app.DefaultConfig()
	acfg.StopAfter = uint32(ticks)
	sys, err := app.New(k, app.Board{HAL: h, Log: log, Idle: idle, Halt: sim.Halt}, acfg)
	if err != nil {
		log.Crit().Err(err).Log("board setup failed")
		os.Exit(1)
	}

	run := func(ctx context.Context) error {
		stop := context.AfterFunc(ctx, sim.Halt)
		defer stop()
		return sys.Run()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if headless.Enabled {
		err = hal.RunHeadless(ctx, h, headless, run)
	} else {
		err = hal.RunWindow(ctx, h, run)
	}
	if err != nil {
		log.Err().Err(err).Log("board stopped")
		os.Exit(1)
	}
}

func parseLevel(s string) (logiface.Level, error) {
	for l := logiface.LevelDisabled; l <= logiface.LevelTrace; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
