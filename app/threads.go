package app

import (
	"errors"
	"fmt"

	"pulse/hal"
	"pulse/internal/buildinfo"
	"pulse/kernel"
)

// idle is the least urgent thread. It only waits for interrupts, and halts
// the board at the configured stop time.
func (s *System) idle() {
	for {
		if s.cfg.StopAfter > 0 && !s.halted && s.k.Now() >= s.cfg.StopAfter {
			s.log.Info().Uint64("now", uint64(s.k.Now())).Log("stop time reached")
			s.halt()
		}
		if s.b.Idle != nil {
			s.b.Idle()
		}
		s.k.Yield()
	}
}

// sensorTick runs from the tick interrupt and only releases the sampler.
func (s *System) sensorTick() {
	s.k.Signal(&s.sample)
}

// sampler produces one reading per sensor tick: a triangle wave in
// [0, 1000).
func (s *System) sampler() {
	for n := uint32(0); ; n++ {
		s.k.Wait(&s.sample)
		v := int32(n % 64)
		if v >= 32 {
			v = 63 - v
		}
		v *= 31
		s.stats.Samples++
		if err := s.k.WriteFIFO(SensorFIFO, v); err != nil {
			if !errors.Is(err, kernel.ErrBufferFull) {
				s.die(fmt.Errorf("sampler: %w", err))
			}
			s.stats.Overruns++
		}
	}
}

// consumer turns samples into a bar graph on the green LEDs and lights the
// red unit above the alarm level.
func (s *System) consumer() {
	leds := s.b.HAL.LEDs()
	var green, red uint16
	for {
		v, err := s.k.ReadFIFO(SensorFIFO)
		if err != nil {
			s.die(fmt.Errorf("consumer: %w", err))
		}
		s.stats.Consumed++

		lit := int(v) * 16 / 1000
		bar := uint16(1)<<lit - 1
		alarm := uint16(0)
		if v > 800 {
			alarm = 0xFFFF
		}
		if leds != nil {
			if bar != green {
				leds.Set(hal.LEDGreen, bar)
				green = bar
			}
			if alarm != red {
				leds.Set(hal.LEDRed, alarm)
				red = alarm
			}
		}

		if s.cfg.ConsumerStall > 0 && s.stats.Consumed%kernel.FIFOSize == 0 {
			s.k.Sleep(s.cfg.ConsumerStall)
		}
	}
}

// blinker toggles the status LED pin.
func (s *System) blinker() {
	pin := hal.FindPin(s.b.HAL.GPIO(), "LED")
	if pin != nil {
		if err := pin.Configure(hal.GPIOModeOutput, hal.GPIOPullNone); err != nil {
			s.log.Warning().Err(err).Log("blinker: no LED pin")
			pin = nil
		}
	}
	on := false
	for {
		on = !on
		if pin != nil {
			pin.Write(on)
		}
		s.stats.Blinks++
		s.k.Sleep(s.cfg.BlinkTicks)
	}
}

// buttonISR is the aperiodic event of the first button.
func (s *System) buttonISR() {
	s.k.Signal(&s.button)
}

// worker serves button presses: each press kills the counter thread if it
// runs and starts a new one if it does not.
func (s *System) worker() {
	for {
		s.k.Wait(&s.button)
		s.stats.Presses++

		if s.counterLive {
			if err := s.k.KillThread(s.counter); err != nil {
				s.log.Err().Err(err).Log("worker: kill counter")
				continue
			}
			s.counterLive = false
			s.stats.Kills++
			s.log.Info().Uint64("presses", uint64(s.stats.Presses)).Log("counter stopped")
			continue
		}
		if err := s.spawnCounter(); err != nil {
			var kerr kernel.Error
			if errors.As(err, &kerr) && kerr.Fatal() {
				s.die(err)
			}
			s.log.Err().Err(err).Log("worker: respawn counter")
			continue
		}
		s.stats.Respawns++
		s.log.Info().Uint64("id", uint64(s.counter)).Log("counter started")
	}
}

func (s *System) spawnCounter() error {
	id, err := s.k.AddThread(s.thread("counter", s.count), prioCounter, "counter")
	if err != nil {
		return fmt.Errorf("app: add thread counter: %w", err)
	}
	s.counter = id
	s.counterLive = true
	return nil
}

// count is background load: one step per tick.
func (s *System) count() {
	for {
		s.stats.Spins++
		s.k.Sleep(1)
	}
}

// oneshot reports the boot and exits.
func (s *System) oneshot() {
	s.log.Notice().
		Str("version", buildinfo.Short()).
		Int("threads", s.k.NumberOfThreads()).
		Log("pulse up")
	s.stats.Oneshot = true
	if err := s.k.KillSelf(); err != nil {
		s.die(fmt.Errorf("oneshot: %w", err))
	}
}

// die reports a fatal error from a thread and never returns.
func (s *System) die(err error) {
	s.fatal(err)
	s.park()
}

// park stops every other thread and keeps the caller off the core.
func (s *System) park() {
	s.k.KillAll()
	for {
		if s.b.Idle != nil {
			s.b.Idle()
		}
		s.k.Yield()
	}
}
