package kernel

// Semaphore is a counting semaphore. A negative value is the number of
// threads blocked on it; the waiters themselves are recorded only in their
// thread control blocks.
//
// The zero value is a semaphore at 0.
type Semaphore struct {
	value int32
}

// Value returns the current counter.
func (s *Semaphore) Value() int32 { return s.value }

// InitSemaphore sets the counter.
func (k *Kernel) InitSemaphore(s *Semaphore, value int32) {
	g := k.enter()
	s.value = value
	g.exit()
}

// Wait decrements the counter and blocks the caller while the result is
// negative. There is no timeout.
func (k *Kernel) Wait(s *Semaphore) {
	g := k.enter()
	s.value--
	if s.value >= 0 {
		g.exit()
		return
	}
	if k.current < 0 {
		g.exit()
		panic("kernel: Wait would block outside a thread")
	}
	k.threads[k.current].blocked = s
	g.exit()

	for k.blockedOn(s) {
		k.Yield()
	}
}

func (k *Kernel) blockedOn(s *Semaphore) bool {
	g := k.enter()
	defer g.exit()
	return k.threads[k.current].blocked == s
}

// Signal increments the counter. If threads are waiting, exactly one of them
// becomes eligible: the first one found walking the ring from the thread
// after the caller. Wake order is ring order, not arrival order, so a waiter
// far from busy signallers can starve.
//
// Signal never blocks and may be called from interrupt handlers.
func (k *Kernel) Signal(s *Semaphore) {
	g := k.enter()
	s.value++
	if s.value <= 0 && k.current >= 0 {
		i := int(k.threads[k.current].next)
		for n := 0; n < k.numThreads; n++ {
			t := &k.threads[i]
			if t.blocked == s {
				t.blocked = nil
				break
			}
			i = int(t.next)
		}
	}
	g.exit()
}
