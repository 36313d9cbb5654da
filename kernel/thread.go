package kernel

// ThreadID is a generation counter in the high 16 bits and the pool slot in
// the low 16 bits, so a reused slot yields a different id. Generations start
// at 1, so no thread has id 0.
type ThreadID uint32

// Slot returns the pool slot encoded in the id.
func (id ThreadID) Slot() int { return int(id & 0xFFFF) }

// ThreadState is the scheduling state of a thread.
type ThreadState uint8

const (
	ThreadRunnable ThreadState = iota
	ThreadBlocked
	ThreadAsleep
	ThreadDead
)

func (s ThreadState) String() string {
	switch s {
	case ThreadRunnable:
		return "runnable"
	case ThreadBlocked:
		return "blocked"
	case ThreadAsleep:
		return "asleep"
	case ThreadDead:
		return "dead"
	default:
		return "unknown"
	}
}

// tcb is a thread control block. The saved stack pointer lives in the port,
// indexed by slot. next and prev are slot indices of the ready ring.
type tcb struct {
	next int8
	prev int8

	// blocked is the semaphore the thread waits on, nil when not waiting.
	blocked *Semaphore

	sleepUntil uint32
	asleep     bool
	alive      bool
	priority   uint8
	name       string
	id         ThreadID
}

func (t *tcb) runnable() bool {
	return t.alive && t.blocked == nil && !t.asleep
}

func (t *tcb) state() ThreadState {
	switch {
	case !t.alive:
		return ThreadDead
	case t.blocked != nil:
		return ThreadBlocked
	case t.asleep:
		return ThreadAsleep
	default:
		return ThreadRunnable
	}
}

// ThreadInfo is a snapshot of one thread.
type ThreadInfo struct {
	ID         ThreadID
	Name       string
	Priority   uint8
	State      ThreadState
	SleepUntil uint32
	Current    bool
}

// AddThread reserves the first free slot, links it into the ready ring and
// fabricates its initial context. Lower priority values are more urgent.
func (k *Kernel) AddThread(entry func(), priority uint8, name string) (ThreadID, error) {
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}

	g := k.enter()
	if k.numThreads >= MaxThreads {
		g.exit()
		return 0, ErrThreadLimitReached
	}

	slot := -1
	for i := range k.threads {
		if !k.threads[i].alive {
			slot = i
			break
		}
	}
	if slot < 0 {
		g.exit()
		return 0, ErrThreadsIncorrectlyAlive
	}

	t := &k.threads[slot]
	t.alive = true
	k.numThreads++

	prev := slot
	for {
		prev--
		if prev < 0 {
			prev = MaxThreads - 1
		}
		if k.threads[prev].alive {
			break
		}
	}
	next := slot
	for {
		next++
		if next >= MaxThreads {
			next = 0
		}
		if k.threads[next].alive {
			break
		}
	}
	k.threads[prev].next = int8(slot)
	t.prev = int8(prev)
	k.threads[next].prev = int8(slot)
	t.next = int8(next)

	k.port.InitContext(slot, entry)

	t.priority = priority
	t.name = name
	t.blocked = nil
	t.asleep = false
	t.sleepUntil = 0
	t.id = ThreadID(uint32(k.idCounter)<<16 | uint32(slot))
	k.idCounter++
	if k.idCounter == 0 {
		k.idCounter = 1
	}
	id := t.id
	g.exit()

	k.log.Debug().
		Str("thread", name).
		Uint64("id", uint64(id)).
		Int("slot", slot).
		Int("priority", int(priority)).
		Log("thread added")
	return id, nil
}

// KillThread removes the thread with the given id from the ring. Killing the
// running thread requests a switch away from it. From thread code that switch
// is taken before KillThread would return, so it does not return; from a
// periodic or aperiodic handler it is taken once the handler exits.
func (k *Kernel) KillThread(id ThreadID) error {
	self, err := k.kill(id)
	if err != nil {
		return err
	}
	k.log.Debug().Uint64("id", uint64(id)).Bool("self", self).Log("thread killed")
	if self {
		k.retire()
	}
	return nil
}

// KillSelf kills the calling thread. From thread code it returns only on
// error.
func (k *Kernel) KillSelf() error {
	g := k.enter()
	cur := k.current
	var id ThreadID
	if cur >= 0 {
		id = k.threads[cur].id
	}
	g.exit()
	if cur < 0 {
		return ErrThreadDoesNotExist
	}
	return k.KillThread(id)
}

// KillAll kills every thread except the caller.
func (k *Kernel) KillAll() error {
	g := k.enter()
	cur := k.current
	if cur < 0 {
		g.exit()
		return ErrThreadDoesNotExist
	}
	if k.numThreads <= 1 {
		g.exit()
		return ErrCannotKillLastThread
	}
	for i := range k.threads {
		t := &k.threads[i]
		if i == cur || !t.alive {
			continue
		}
		k.bury(t)
	}
	k.threads[cur].next = int8(cur)
	k.threads[cur].prev = int8(cur)
	k.numThreads = 1
	g.exit()

	k.log.Debug().Log("all other threads killed")
	return nil
}

// kill unlinks the thread and reports whether it was the running one. The
// caller owes the dead running thread a context switch.
func (k *Kernel) kill(id ThreadID) (self bool, err error) {
	g := k.enter()
	defer g.exit()

	if k.numThreads <= 1 {
		return false, ErrCannotKillLastThread
	}
	slot := id.Slot()
	if slot >= MaxThreads {
		return false, ErrThreadDoesNotExist
	}
	t := &k.threads[slot]
	if !t.alive || t.id != id {
		return false, ErrThreadDoesNotExist
	}

	k.bury(t)
	k.threads[t.prev].next = t.next
	k.threads[t.next].prev = t.prev
	k.numThreads--

	return slot == k.current, nil
}

// bury marks t dead. A thread killed while waiting withdraws from the
// semaphore so the counter keeps matching the number of waiters. The ring
// links are left for the caller; a dead current thread still needs next for
// the picker to resume from.
func (k *Kernel) bury(t *tcb) {
	if t.blocked != nil {
		t.blocked.value++
	}
	t.alive = false
	t.blocked = nil
	t.asleep = false
	t.sleepUntil = 0
}

// retire switches away from a thread that has just been killed. The switch
// normally never comes back here; if nothing else is eligible the dead thread
// keeps yielding until something is. Inside a handler the switch can only be
// taken after the handler returns, so retire just pends it.
func (k *Kernel) retire() {
	if k.inHandler() {
		k.port.PendSwitch()
		return
	}
	for {
		k.Yield()
	}
}

// CurrentThreadID returns the id of the running thread, or 0 before Launch.
func (k *Kernel) CurrentThreadID() ThreadID {
	g := k.enter()
	defer g.exit()
	if k.current < 0 {
		return 0
	}
	return k.threads[k.current].id
}

// NumberOfThreads returns the number of alive threads.
func (k *Kernel) NumberOfThreads() int {
	g := k.enter()
	defer g.exit()
	return k.numThreads
}

// Threads appends a snapshot of every alive thread to dst, in ring order
// starting at the running thread.
func (k *Kernel) Threads(dst []ThreadInfo) []ThreadInfo {
	g := k.enter()
	defer g.exit()

	start := k.current
	if start < 0 || !k.threads[start].alive {
		start = -1
		for i := range k.threads {
			if k.threads[i].alive {
				start = i
				break
			}
		}
	}
	if start < 0 {
		return dst
	}
	i := start
	for n := 0; n < k.numThreads; n++ {
		t := &k.threads[i]
		dst = append(dst, ThreadInfo{
			ID:         t.id,
			Name:       t.name,
			Priority:   t.priority,
			State:      t.state(),
			SleepUntil: t.sleepUntil,
			Current:    i == k.current,
		})
		i = int(t.next)
	}
	return dst
}
