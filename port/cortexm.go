//go:build tinygo && cortexm

package port

import (
	"device/arm"
	"errors"
	"runtime/volatile"
	"unsafe"

	"pulse/arch/cortexm"
)

const (
	// MaxSlots is the number of thread stacks reserved at link time.
	MaxSlots = 23

	// StackWords is the size of each thread stack in 32-bit words.
	StackWords = 512

	// NumIRQ is the number of NVIC lines the dispatch table covers.
	NumIRQ = 64
)

var ErrNoContext = errors.New("port: slot has no context")

// System handler priority register 3: PendSV in bits 23:16, SysTick in 31:24.
var shpr3 = (*volatile.Register32)(unsafe.Pointer(uintptr(0xE000ED20)))

// Address of pulseThreadEntry with the Thumb bit set, emitted next to the
// switch routine.
//
//go:extern pulse_thread_entry_addr
var threadEntryAddr uint32

//export pulse_start_first
func startFirst(sp uintptr)

var stacks [MaxSlots][StackWords]uint32

// CortexM runs the kernel on a single ARMv7-M core. PendSV performs the
// switch, SysTick drives the tick and the NVIC carries aperiodic events.
type CortexM struct {
	sp      [MaxSlots]uintptr
	entries [MaxSlots]func()
	current int
	pick    func() int
	tickISR func()
	lines   [NumIRQ]func()
}

var core *CortexM

// NewCortexM returns the core port. There is only one core, so every call
// returns the same value.
func NewCortexM() *CortexM {
	if core == nil {
		core = &CortexM{current: -1}
	}
	return core
}

func (c *CortexM) DisableInterrupts() uintptr { return arm.DisableInterrupts() }

func (c *CortexM) RestoreInterrupts(state uintptr) { arm.EnableInterrupts(state) }

func (c *CortexM) PendSwitch() {
	arm.SCB.ICSR.Set(arm.SCB_ICSR_PENDSVSET)
}

func (c *CortexM) InitContext(slot int, entry func()) {
	if slot < 0 || slot >= MaxSlots {
		return
	}
	pc := threadEntryAddr &^ 1
	i := cortexm.BuildFrame(stacks[slot][:], pc)
	c.sp[slot] = uintptr(unsafe.Pointer(&stacks[slot][i]))
	c.entries[slot] = entry
}

func (c *CortexM) StartTimer(cycles uint32, priority uint8, isr func()) {
	c.tickISR = isr
	setSystemPriority(24, priority)
	if cycles > 0 {
		arm.SetupSystemTimer(cycles)
	}
}

// Start switches the core to the process stack of slot and runs it. It does
// not return.
func (c *CortexM) Start(slot int, switchPriority uint8, pick func() int) error {
	if slot < 0 || slot >= MaxSlots || c.entries[slot] == nil {
		return ErrNoContext
	}
	c.pick = pick
	c.current = slot
	setSystemPriority(16, switchPriority)
	arm.DisableInterrupts()
	// The initial frame is only needed by a switch in; the first thread
	// starts on an empty stack.
	startFirst(c.sp[slot] + cortexm.FrameWords*4)
	return nil
}

// SetHandler, SetPriority and Enable make CortexM the NVIC-backed interrupt
// controller. Each device vector of the board calls Dispatch with its line.
func (c *CortexM) SetHandler(irq int16, fn func()) {
	if irq >= 0 && irq < NumIRQ {
		c.lines[irq] = fn
	}
}

func (c *CortexM) SetPriority(irq int16, level uint8) {
	if irq >= 0 && irq < NumIRQ {
		arm.SetPriority(uint32(irq), uint32(level)<<5)
	}
}

func (c *CortexM) Enable(irq int16) {
	if irq >= 0 && irq < NumIRQ {
		arm.EnableIRQ(uint32(irq))
	}
}

// Dispatch runs the handler registered for irq.
func (c *CortexM) Dispatch(irq int16) {
	if irq >= 0 && irq < NumIRQ {
		if fn := c.lines[irq]; fn != nil {
			fn()
		}
	}
}

// WaitForInterrupt sleeps the core until the next interrupt.
func (c *CortexM) WaitForInterrupt() { arm.Asm("wfi") }

// setSystemPriority writes a 3-bit priority to the SHPR3 byte at shift.
func setSystemPriority(shift uint, level uint8) {
	v := shpr3.Get()
	v &^= 0xFF << shift
	v |= uint32(level) << 5 << shift
	shpr3.Set(v)
}

//export SysTick_Handler
func sysTickHandler() {
	if core != nil && core.tickISR != nil {
		core.tickISR()
	}
}

// pulseSwitch runs inside PendSV with interrupts masked. It saves the stack
// pointer of the outgoing thread and returns the one of the picked thread.
//
//export pulse_switch
func pulseSwitch(sp uintptr) uintptr {
	c := core
	c.sp[c.current] = sp
	c.current = c.pick()
	return c.sp[c.current]
}

// pulseThreadEntry is the first instruction of every thread.
//
//export pulse_thread_entry
func pulseThreadEntry() {
	c := core
	c.entries[c.current]()
	panic("port: thread returned")
}
