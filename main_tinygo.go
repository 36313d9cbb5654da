//go:build tinygo && cortexm

package main

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"

	"pulse/app"
	"pulse/hal"
	"pulse/internal/buildinfo"
	"pulse/kernel"
	"pulse/port"
)

// The button vector of a board calls core.Dispatch(int16(app.ButtonIRQ)).
func main() {
	h := hal.New(0)
	log := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(hal.LineWriter{L: h.Logger()}),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelNotice),
	).Logger()
	log.Notice().Str("build", buildinfo.Describe()).Log("pulse board")

	core := port.NewCortexM()
	kcfg := kernel.DefaultConfig()
	kcfg.Clock = h.Clock()
	kcfg.Interrupts = core
	kcfg.Log = log
	k := kernel.New(core, kcfg)

	sys, err := app.New(k, app.Board{HAL: h, Log: log, Idle: core.WaitForInterrupt}, app.DefaultConfig())
	if err != nil {
		log.Crit().Err(err).Log("board setup failed")
		for {
			core.WaitForInterrupt()
		}
	}
	if err := sys.Run(); err != nil {
		log.Crit().Err(err).Log("scheduler stopped")
	}
	for {
		core.WaitForInterrupt()
	}
}
