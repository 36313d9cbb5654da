// Package cortexm builds the initial register frame of a Cortex-M thread.
//
// It is pure data layout and builds on every target, so the layout is tested
// on the host.
package cortexm

// PSRThumb is xPSR with only the Thumb state bit set. Cortex-M executes
// Thumb code only; restoring a frame without it faults.
const PSRThumb = 0x01000000

// Frame is the register file as the context switch leaves it on a thread's
// stack, lowest address first: the callee-saved registers pushed by the
// switch routine, then the frame the hardware stacks on exception entry.
type Frame struct {
	R4, R5, R6, R7, R8, R9, R10, R11 uint32
	R0, R1, R2, R3, R12              uint32
	LR, PC, PSR                      uint32
}

// FrameWords is the size of Frame in 32-bit words.
const FrameWords = 16

// words returns f in stack order.
func (f *Frame) words() [FrameWords]uint32 {
	return [FrameWords]uint32{
		f.R4, f.R5, f.R6, f.R7, f.R8, f.R9, f.R10, f.R11,
		f.R0, f.R1, f.R2, f.R3, f.R12,
		f.LR, f.PC, f.PSR,
	}
}

// InitialFrame is the frame of a thread preempted just before the first
// instruction of entry. LR also points at entry, since a thread body never
// returns.
func InitialFrame(entry uint32) Frame {
	return Frame{
		LR:  entry,
		PC:  entry,
		PSR: PSRThumb,
	}
}

// BuildFrame writes the initial frame for entry at the top of stack and
// returns the index of the saved stack pointer. The top is first rounded
// down to 8 bytes, as the exception entry sequence requires. It returns -1
// if stack cannot hold a frame.
func BuildFrame(stack []uint32, entry uint32) int {
	top := len(stack) &^ 1
	sp := top - FrameWords
	if sp < 0 {
		return -1
	}
	f := InitialFrame(entry)
	w := f.words()
	copy(stack[sp:top], w[:])
	return sp
}
