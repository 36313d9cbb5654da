package kernel

// AddAperiodicEvent installs fn directly on interrupt line irq with the given
// hardware priority and enables the line. The kernel keeps no record of it
// beyond counting the handler as interrupt context while it runs.
//
// priority must be more urgent than the kernel's own interrupts, so that
// aperiodic events preempt tick bookkeeping.
func (k *Kernel) AddAperiodicEvent(fn func(), priority uint8, irq IRQ) error {
	ic := k.cfg.Interrupts
	if ic == nil || irq < k.cfg.IRQMin || irq > k.cfg.IRQMax {
		return ErrIRQnInvalid
	}
	if priority > k.cfg.MaxHWIPriority {
		return ErrHWIPriorityInvalid
	}

	g := k.enter()
	ic.SetHandler(int16(irq), func() {
		k.handlers++
		fn()
		k.handlers--
	})
	ic.SetPriority(int16(irq), priority)
	ic.Enable(int16(irq))
	g.exit()

	k.log.Debug().Int("irq", int(irq)).Int("priority", int(priority)).Log("aperiodic event added")
	return nil
}

// inHandler reports whether a periodic or aperiodic handler is running.
// Handlers nest strictly, so the count needs no guard.
func (k *Kernel) inHandler() bool {
	return k.handlers > 0
}
