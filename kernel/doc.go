// Package kernel is a small preemptive priority kernel for a single core.
//
// Threads live in a fixed pool and are linked into a ready ring. On every
// switch the scheduler walks the ring once from the thread after the running
// one and picks the first eligible thread with the lowest priority value, so
// threads of equal priority round-robin. A periodic tick advances system
// time, fires periodic events and wakes sleepers. Counting semaphores block
// without queues: a waiter records the semaphore in its own control block.
// Four fixed FIFOs carry int32 samples between threads.
//
// All state is allocated by New. The architecture-specific parts (interrupt
// masking, context switching, the tick timer) are behind Port.
package kernel
