package kernel

import "github.com/joeycumines/logiface"

const (
	// MaxThreads is the size of the static thread pool.
	MaxThreads = 23

	// MaxPeriodicEvents is the size of the periodic event ring.
	MaxPeriodicEvents = 6

	// MaxNameLength bounds thread names; longer names are truncated.
	MaxNameLength = 16

	// OSIntPriority is the interrupt priority of the tick and the context
	// switch exception: the lowest level, so aperiodic events preempt them.
	OSIntPriority = 7
)

// IRQ identifies a hardware interrupt line.
type IRQ int16

// Config holds the board parameters the kernel needs.
type Config struct {
	// TickHz is the scheduler tick rate.
	TickHz uint32

	// Clock programs the tick timer. Nil leaves the reload value to the port.
	Clock Clock

	// Interrupts receives aperiodic event registrations.
	Interrupts InterruptController

	// IRQMin and IRQMax bound the general-purpose interrupt lines.
	IRQMin IRQ
	IRQMax IRQ

	// MaxHWIPriority is the least urgent priority an aperiodic event may use.
	MaxHWIPriority uint8

	Log *logiface.Logger[logiface.Event]
}

// DefaultConfig returns a 1 kHz configuration with the MSP432 interrupt
// range (PSS through PORT6).
func DefaultConfig() Config {
	return Config{
		TickHz:         1000,
		IRQMin:         0,
		IRQMax:         40,
		MaxHWIPriority: OSIntPriority - 1,
	}
}

// Kernel owns every thread, periodic event and FIFO. All state is allocated
// by New; nothing is allocated afterwards.
type Kernel struct {
	port Port
	cfg  Config
	log  *logiface.Logger[logiface.Event]

	threads    [MaxThreads]tcb
	numThreads int
	current    int
	idCounter  uint16

	// handlers counts kernel-dispatched interrupt handlers in progress.
	handlers int

	now uint32

	periodic    [MaxPeriodicEvents]ptcb
	numPeriodic int

	fifos [MaxFIFOs]fifo
}

// New creates a kernel on top of p with no threads.
func New(p Port, cfg Config) *Kernel {
	if cfg.TickHz == 0 {
		cfg.TickHz = 1000
	}
	k := &Kernel{
		port:      p,
		cfg:       cfg,
		log:       cfg.Log,
		current:   -1,
		idCounter: 1,
	}
	for i := range k.threads {
		k.threads[i].next = -1
		k.threads[i].prev = -1
	}
	for i := range k.fifos {
		k.initFIFO(&k.fifos[i])
	}
	return k
}

// Now returns the system time in ticks.
func (k *Kernel) Now() uint32 {
	g := k.enter()
	now := k.now
	g.exit()
	return now
}
