package kernel

// Port is the architecture-specific half of the kernel: interrupt masking,
// the context-switch exception and the tick timer.
//
// Implementations live in package port. Exactly one goroutine (or, on
// hardware, one core) executes kernel code at a time.
type Port interface {
	// DisableInterrupts masks maskable interrupts and returns the previous
	// mask state. RestoreInterrupts puts back exactly that state.
	DisableInterrupts() uintptr
	RestoreInterrupts(state uintptr)

	// PendSwitch requests a context switch. The switch is taken as soon as
	// interrupts are enabled and no handler is running.
	PendSwitch()

	// InitContext fabricates the initial context of slot so that the first
	// switch into it starts entry, as if it had been preempted at its first
	// instruction. Any earlier context of the slot is discarded.
	InitContext(slot int, entry func())

	// StartTimer arms the periodic tick interrupt. cycles is the reload value
	// derived from the board clock.
	StartTimer(cycles uint32, priority uint8, isr func())

	// Start transfers control into slot. From then on the switch exception
	// calls pick to choose the next slot. Start returns only when the core
	// stops scheduling.
	Start(slot int, switchPriority uint8, pick func() int) error
}

// InterruptController is the board's interrupt controller (NVIC on
// Cortex-M). It is used only to register aperiodic events.
type InterruptController interface {
	SetHandler(irq int16, fn func())
	SetPriority(irq int16, level uint8)
	Enable(irq int16)
}

// Clock supplies the tick source frequency in Hz.
type Clock interface {
	Frequency() uint32
}
