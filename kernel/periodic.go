package kernel

// ptcb is a periodic event control block.
type ptcb struct {
	handler   func()
	period    uint32
	executeAt uint32
	next      int8
	prev      int8
}

// AddPeriodicEvent registers fn to run from the tick interrupt every period
// ticks, first at now+period. Events cannot be removed.
//
// fn runs in interrupt context and must not block: Wait, ReadFIFO, WriteFIFO
// and Sleep are not allowed there. Signal is.
func (k *Kernel) AddPeriodicEvent(fn func(), period uint32) error {
	g := k.enter()
	if k.numPeriodic >= MaxPeriodicEvents {
		g.exit()
		return ErrThreadLimitReached
	}
	n := k.numPeriodic
	e := &k.periodic[n]
	e.handler = fn
	e.period = period
	e.executeAt = k.now + period
	if n == 0 {
		e.prev = 0
		e.next = 0
	} else {
		last := &k.periodic[n-1]
		last.next = int8(n)
		e.prev = int8(n - 1)
		k.periodic[0].prev = int8(n)
		e.next = 0
	}
	k.numPeriodic++
	first := e.executeAt
	g.exit()

	k.log.Debug().
		Uint64("period", uint64(period)).
		Uint64("first", uint64(first)).
		Log("periodic event added")
	return nil
}
