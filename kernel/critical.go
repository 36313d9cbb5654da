package kernel

// guard is a held critical section. Sections nest: exit restores the mask
// state seen by the matching enter, so only the outermost exit unmasks.
type guard struct {
	p     Port
	state uintptr
}

func (k *Kernel) enter() guard {
	return guard{p: k.port, state: k.port.DisableInterrupts()}
}

func (g guard) exit() {
	g.p.RestoreInterrupts(g.state)
}
