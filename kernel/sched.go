package kernel

// schedule picks the next thread to run and makes it current. It is handed
// to the port at launch and called only from the switch exception, which
// makes the switch exception the single writer of k.current.
//
// The walk starts after the running thread and covers the whole ring once,
// keeping the first eligible thread with the lowest priority value. Threads
// of equal priority therefore take turns. If nothing is eligible the current
// thread stays selected.
func (k *Kernel) schedule() int {
	if k.current < 0 || k.numThreads == 0 {
		return k.current
	}
	pick := -1
	best := 256
	i := int(k.threads[k.current].next)
	for n := 0; n < k.numThreads; n++ {
		t := &k.threads[i]
		if t.runnable() && int(t.priority) < best {
			pick = i
			best = int(t.priority)
		}
		i = int(t.next)
	}
	if pick >= 0 {
		k.current = pick
	}
	return k.current
}

// tick is the tick interrupt handler: advance time, fire due periodic events,
// wake due sleepers, then request a switch.
func (k *Kernel) tick() {
	k.handlers++
	g := k.enter()
	k.now++
	now := k.now
	n := k.numPeriodic
	g.exit()

	p := 0
	for i := 0; i < n; i++ {
		g = k.enter()
		e := &k.periodic[p]
		due := e.executeAt == now
		if due {
			e.executeAt = now + e.period
		}
		handler := e.handler
		p = int(e.next)
		g.exit()
		if due {
			handler()
		}
	}

	g = k.enter()
	for i := range k.threads {
		t := &k.threads[i]
		if t.alive && t.asleep && int32(now-t.sleepUntil) >= 0 {
			t.asleep = false
		}
	}
	g.exit()
	k.handlers--

	k.port.PendSwitch()
}

// Launch starts scheduling with the most urgent thread (first in pool order
// on ties), arms the tick timer and transfers control to the port. It only
// returns if scheduling stops, and then always with ErrNoThreadsScheduled.
func (k *Kernel) Launch() error {
	g := k.enter()
	first := -1
	for i := range k.threads {
		t := &k.threads[i]
		if t.alive && (first < 0 || t.priority < k.threads[first].priority) {
			first = i
		}
	}
	k.current = first
	g.exit()
	if first < 0 {
		return ErrNoThreadsScheduled
	}

	var cycles uint32
	if k.cfg.Clock != nil {
		cycles = k.cfg.Clock.Frequency() / k.cfg.TickHz
	}
	k.port.StartTimer(cycles, OSIntPriority, k.tick)

	k.log.Info().
		Int("threads", k.numThreads).
		Int("periodic", k.numPeriodic).
		Str("first", k.threads[first].name).
		Uint64("tick_hz", uint64(k.cfg.TickHz)).
		Log("launching scheduler")

	if err := k.port.Start(first, OSIntPriority, k.schedule); err != nil {
		k.log.Err().Err(err).Log("scheduler stopped")
	}
	return ErrNoThreadsScheduled
}

// Yield requests a context switch. It returns once the caller is selected
// again.
func (k *Kernel) Yield() {
	k.port.PendSwitch()
}

// Sleep makes the caller ineligible for ticks ticks. A zero duration only
// yields.
func (k *Kernel) Sleep(ticks uint32) {
	if ticks == 0 {
		k.Yield()
		return
	}
	g := k.enter()
	if k.current < 0 {
		g.exit()
		panic("kernel: Sleep outside a thread")
	}
	t := &k.threads[k.current]
	t.sleepUntil = k.now + ticks
	t.asleep = true
	g.exit()

	for k.sleeping() {
		k.Yield()
	}
}

func (k *Kernel) sleeping() bool {
	g := k.enter()
	defer g.exit()
	return k.threads[k.current].asleep
}
