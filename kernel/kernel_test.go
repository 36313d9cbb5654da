package kernel

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// fakePort records port calls without running anything. Kernel calls that
// would block cannot be exercised on it.
type fakePort struct {
	depth    int
	switches int
	contexts map[int]int
	timer    uint32
	started  int
	lines    map[int16]uint8
	handlers map[int16]func()
	enabled  map[int16]bool
}

func newFakePort() *fakePort {
	return &fakePort{
		contexts: make(map[int]int),
		lines:    make(map[int16]uint8),
		handlers: make(map[int16]func()),
		enabled:  make(map[int16]bool),
		started:  -1,
	}
}

func (p *fakePort) DisableInterrupts() uintptr {
	p.depth++
	return uintptr(p.depth - 1)
}

func (p *fakePort) RestoreInterrupts(state uintptr) { p.depth = int(state) }
func (p *fakePort) PendSwitch()                     { p.switches++ }
func (p *fakePort) InitContext(slot int, _ func())  { p.contexts[slot]++ }
func (p *fakePort) StartTimer(cycles uint32, _ uint8, _ func()) {
	p.timer = cycles
}

func (p *fakePort) Start(slot int, _ uint8, _ func() int) error {
	p.started = slot
	return errors.New("fake: no core")
}

func (p *fakePort) SetHandler(irq int16, fn func())    { p.handlers[irq] = fn }
func (p *fakePort) SetPriority(irq int16, level uint8) { p.lines[irq] = level }
func (p *fakePort) Enable(irq int16)                   { p.enabled[irq] = true }

type fixedClock uint32

func (c fixedClock) Frequency() uint32 { return uint32(c) }

func newFakeKernel() (*Kernel, *fakePort) {
	p := newFakePort()
	cfg := DefaultConfig()
	cfg.Interrupts = p
	return New(p, cfg), p
}

func nop() {}

// checkRing walks the ready ring and compares it with the alive slots.
func checkRing(t *testing.T, k *Kernel) {
	t.Helper()
	var alive []int
	for i := range k.threads {
		if k.threads[i].alive {
			alive = append(alive, i)
		}
	}
	if len(alive) != k.numThreads {
		t.Fatalf("numThreads=%d, want %d alive", k.numThreads, len(alive))
	}
	if len(alive) == 0 {
		return
	}
	var walked []int
	i := alive[0]
	for n := 0; n < k.numThreads; n++ {
		walked = append(walked, i)
		next := int(k.threads[i].next)
		if int(k.threads[next].prev) != i {
			t.Fatalf("slot %d: next=%d but its prev=%d", i, next, k.threads[next].prev)
		}
		if !k.threads[next].alive {
			t.Fatalf("slot %d links to dead slot %d", i, next)
		}
		i = next
	}
	if i != alive[0] {
		t.Fatalf("ring does not close after %d steps, ended at %d", k.numThreads, i)
	}
	if diff := cmp.Diff(alive, walked); diff != "" {
		t.Fatalf("ring is not in slot order (-want +got):\n%s", diff)
	}
}

func TestAddThreadLinksInSlotOrder(t *testing.T) {
	k, p := newFakeKernel()
	for i := 0; i < 4; i++ {
		id, err := k.AddThread(nop, 1, "t")
		if err != nil {
			t.Fatalf("AddThread: %v", err)
		}
		if id.Slot() != i {
			t.Fatalf("slot=%d, want %d", id.Slot(), i)
		}
	}
	checkRing(t, k)
	if p.depth != 0 {
		t.Fatalf("critical section left held, depth=%d", p.depth)
	}
	if len(p.contexts) != 4 {
		t.Fatalf("contexts=%d, want 4", len(p.contexts))
	}
}

func TestThreadIDsAreNonzero(t *testing.T) {
	k, _ := newFakeKernel()
	if id := k.CurrentThreadID(); id != 0 {
		t.Fatalf("CurrentThreadID()=%#x before launch, want 0", id)
	}
	first, err := k.AddThread(nop, 1, "first")
	if err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	if first == 0 || first.Slot() != 0 {
		t.Fatalf("first id=%#x, want slot 0 with a nonzero generation", first)
	}

	k.idCounter = 0xFFFF
	k.AddThread(nop, 1, "last")
	if k.idCounter != 1 {
		t.Fatalf("idCounter=%d after wrap, want 1", k.idCounter)
	}
}

func TestAddThreadLimit(t *testing.T) {
	k, _ := newFakeKernel()
	for i := 0; i < MaxThreads; i++ {
		if _, err := k.AddThread(nop, 1, "t"); err != nil {
			t.Fatalf("AddThread %d: %v", i, err)
		}
	}
	if _, err := k.AddThread(nop, 1, "t"); !errors.Is(err, ErrThreadLimitReached) {
		t.Fatalf("expected ErrThreadLimitReached, got %v", err)
	}
	if k.NumberOfThreads() != MaxThreads {
		t.Fatalf("NumberOfThreads=%d, want %d", k.NumberOfThreads(), MaxThreads)
	}
}

func TestAddThreadTruncatesName(t *testing.T) {
	k, _ := newFakeKernel()
	if _, err := k.AddThread(nop, 1, "a-very-long-thread-name"); err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	got := k.Threads(nil)[0].Name
	if got != "a-very-long-thre" {
		t.Fatalf("name=%q, want %q", got, "a-very-long-thre")
	}
}

func TestKillThreadErrors(t *testing.T) {
	k, _ := newFakeKernel()
	only, err := k.AddThread(nop, 1, "only")
	if err != nil {
		t.Fatalf("AddThread: %v", err)
	}
	if err := k.KillThread(only); !errors.Is(err, ErrCannotKillLastThread) {
		t.Fatalf("expected ErrCannotKillLastThread, got %v", err)
	}

	victim, _ := k.AddThread(nop, 1, "victim")
	k.AddThread(nop, 1, "spare")
	if err := k.KillThread(ThreadID(0xFFFF)); !errors.Is(err, ErrThreadDoesNotExist) {
		t.Fatalf("expected ErrThreadDoesNotExist for bad slot, got %v", err)
	}
	if err := k.KillThread(victim); err != nil {
		t.Fatalf("KillThread: %v", err)
	}
	if err := k.KillThread(victim); !errors.Is(err, ErrThreadDoesNotExist) {
		t.Fatalf("expected ErrThreadDoesNotExist for dead thread, got %v", err)
	}

	reused, _ := k.AddThread(nop, 1, "reused")
	if reused.Slot() != victim.Slot() {
		t.Fatalf("expected slot %d reused, got %d", victim.Slot(), reused.Slot())
	}
	if reused == victim {
		t.Fatal("expected a fresh id for the reused slot")
	}
	if err := k.KillThread(victim); !errors.Is(err, ErrThreadDoesNotExist) {
		t.Fatalf("expected stale id rejected, got %v", err)
	}
	if err := k.KillSelf(); !errors.Is(err, ErrThreadDoesNotExist) {
		t.Fatalf("expected KillSelf outside a thread to fail, got %v", err)
	}
	checkRing(t, k)
}

func TestRingSurvivesRandomAddKill(t *testing.T) {
	k, _ := newFakeKernel()
	rng := rand.New(rand.NewPCG(1, 2))
	var ids []ThreadID
	for step := 0; step < 2000; step++ {
		if len(ids) < 2 || (len(ids) < MaxThreads && rng.IntN(2) == 0) {
			id, err := k.AddThread(nop, uint8(rng.IntN(4)), "r")
			if err != nil {
				t.Fatalf("step %d: AddThread: %v", step, err)
			}
			ids = append(ids, id)
		} else {
			i := rng.IntN(len(ids))
			if err := k.KillThread(ids[i]); err != nil {
				t.Fatalf("step %d: KillThread: %v", step, err)
			}
			ids = append(ids[:i], ids[i+1:]...)
		}
		checkRing(t, k)
	}
}

func TestKillBlockedThreadReturnsCount(t *testing.T) {
	k, _ := newFakeKernel()
	var s Semaphore
	k.AddThread(nop, 1, "a")
	b, _ := k.AddThread(nop, 1, "b")

	// b as if it had called Wait on s.
	s.value = -1
	k.threads[b.Slot()].blocked = &s

	if err := k.KillThread(b); err != nil {
		t.Fatalf("KillThread: %v", err)
	}
	if s.Value() != 0 {
		t.Fatalf("semaphore=%d, want 0", s.Value())
	}
}

func TestSchedulePicksLowestValueRoundRobin(t *testing.T) {
	k, _ := newFakeKernel()
	for _, prio := range []uint8{5, 1, 1, 3} {
		if _, err := k.AddThread(nop, prio, "t"); err != nil {
			t.Fatalf("AddThread: %v", err)
		}
	}
	k.current = 1

	var got []int
	for i := 0; i < 4; i++ {
		got = append(got, k.schedule())
	}
	if diff := cmp.Diff([]int{2, 1, 2, 1}, got); diff != "" {
		t.Fatalf("picks (-want +got):\n%s", diff)
	}

	var s Semaphore
	k.threads[2].blocked = &s
	if got := k.schedule(); got != 1 {
		t.Fatalf("with slot 2 blocked, pick=%d, want 1", got)
	}
	k.threads[1].asleep = true
	if got := k.schedule(); got != 3 {
		t.Fatalf("with both urgent threads out, pick=%d, want 3", got)
	}
	k.threads[0].asleep = true
	k.threads[3].asleep = true
	if got := k.schedule(); got != 3 {
		t.Fatalf("with nothing eligible, pick=%d, want current 3", got)
	}
}

func TestTickWakesSleepersAndFiresPeriodic(t *testing.T) {
	k, p := newFakeKernel()
	k.AddThread(nop, 1, "a")
	k.threads[0].asleep = true
	k.threads[0].sleepUntil = 3

	var fired []uint32
	if err := k.AddPeriodicEvent(func() { fired = append(fired, k.now) }, 2); err != nil {
		t.Fatalf("AddPeriodicEvent: %v", err)
	}
	for i := 0; i < 6; i++ {
		k.tick()
		if i == 1 && !k.threads[0].asleep {
			t.Fatal("woke before deadline")
		}
	}
	if k.threads[0].asleep {
		t.Fatal("expected sleeper awake after its deadline")
	}
	if diff := cmp.Diff([]uint32{2, 4, 6}, fired); diff != "" {
		t.Fatalf("periodic fire times (-want +got):\n%s", diff)
	}
	if p.switches != 6 {
		t.Fatalf("switches=%d, want 6", p.switches)
	}
	if k.Now() != 6 {
		t.Fatalf("Now=%d, want 6", k.Now())
	}
}

func TestSleepDeadlineAcrossWrap(t *testing.T) {
	k, _ := newFakeKernel()
	k.AddThread(nop, 1, "a")
	k.now = ^uint32(0) - 1
	k.threads[0].asleep = true
	k.threads[0].sleepUntil = k.now + 3

	k.tick()
	k.tick()
	if !k.threads[0].asleep {
		t.Fatal("woke early across wrap")
	}
	k.tick()
	if k.threads[0].asleep {
		t.Fatal("expected wake at wrapped deadline")
	}
}

func TestPeriodicEventLimit(t *testing.T) {
	k, _ := newFakeKernel()
	for i := 0; i < MaxPeriodicEvents; i++ {
		if err := k.AddPeriodicEvent(nop, uint32(i+1)); err != nil {
			t.Fatalf("AddPeriodicEvent %d: %v", i, err)
		}
	}
	if err := k.AddPeriodicEvent(nop, 1); !errors.Is(err, ErrThreadLimitReached) {
		t.Fatalf("expected ErrThreadLimitReached, got %v", err)
	}
	for i := 0; i < MaxPeriodicEvents; i++ {
		e := k.periodic[i]
		if int(k.periodic[e.next].prev) != i {
			t.Fatalf("periodic ring broken at %d", i)
		}
	}
}

func TestAddAperiodicEvent(t *testing.T) {
	k, p := newFakeKernel()
	if err := k.AddAperiodicEvent(nop, 2, 41); !errors.Is(err, ErrIRQnInvalid) {
		t.Fatalf("expected ErrIRQnInvalid, got %v", err)
	}
	if err := k.AddAperiodicEvent(nop, 2, -1); !errors.Is(err, ErrIRQnInvalid) {
		t.Fatalf("expected ErrIRQnInvalid for negative line, got %v", err)
	}
	if err := k.AddAperiodicEvent(nop, 7, 5); !errors.Is(err, ErrHWIPriorityInvalid) {
		t.Fatalf("expected ErrHWIPriorityInvalid, got %v", err)
	}
	if err := k.AddAperiodicEvent(nop, 6, 40); err != nil {
		t.Fatalf("AddAperiodicEvent: %v", err)
	}
	if !p.enabled[40] || p.lines[40] != 6 || p.handlers[40] == nil {
		t.Fatalf("line 40 not installed: enabled=%v priority=%d", p.enabled[40], p.lines[40])
	}

	bare := New(newFakePort(), DefaultConfig())
	if err := bare.AddAperiodicEvent(nop, 1, 1); !errors.Is(err, ErrIRQnInvalid) {
		t.Fatalf("expected ErrIRQnInvalid without a controller, got %v", err)
	}
}

func TestHandlerKillsInterruptedThread(t *testing.T) {
	k, p := newFakeKernel()
	victim, _ := k.AddThread(nop, 1, "victim")
	k.AddThread(nop, 2, "other")
	k.current = victim.Slot()

	var killErr error
	if err := k.AddAperiodicEvent(func() { killErr = k.KillThread(victim) }, 2, 7); err != nil {
		t.Fatalf("AddAperiodicEvent: %v", err)
	}
	before := p.switches
	p.handlers[7]()

	if killErr != nil {
		t.Fatalf("KillThread: %v", killErr)
	}
	if p.switches != before+1 {
		t.Fatalf("switches=%d, want one pended by the kill", p.switches-before)
	}
	if k.NumberOfThreads() != 1 || k.threads[victim.Slot()].alive {
		t.Fatal("victim still alive")
	}
	if k.inHandler() {
		t.Fatal("handler depth not restored")
	}
	checkRing(t, k)
}

func TestFIFOOverflowOverwritesAtWriteCursor(t *testing.T) {
	k, _ := newFakeKernel()
	for i := int32(1); i <= FIFOSize; i++ {
		if err := k.WriteFIFO(0, i); err != nil {
			t.Fatalf("WriteFIFO(%d): %v", i, err)
		}
	}
	if err := k.WriteFIFO(0, FIFOSize+1); !errors.Is(err, ErrBufferFull) {
		t.Fatalf("expected ErrBufferFull, got %v", err)
	}
	if lost, _ := k.LostData(0); lost != 1 {
		t.Fatalf("LostData=%d, want 1", lost)
	}

	var got []int32
	for i := 0; i < FIFOSize; i++ {
		v, err := k.ReadFIFO(0)
		if err != nil {
			t.Fatalf("ReadFIFO: %v", err)
		}
		got = append(got, v)
	}
	// The 17th value lands in the first slot; the read cursor never moved.
	want := []int32{FIFOSize + 1}
	for i := int32(2); i <= FIFOSize; i++ {
		want = append(want, i)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("read order (-want +got):\n%s", diff)
	}
	if v := k.fifos[0].count.Value(); v != 0 {
		t.Fatalf("count=%d after draining, want 0", v)
	}
}

func TestFIFOInvalidIndex(t *testing.T) {
	k, _ := newFakeKernel()
	if err := k.InitFIFO(MaxFIFOs); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("InitFIFO: expected ErrInvalidIndex, got %v", err)
	}
	if err := k.WriteFIFO(-1, 0); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("WriteFIFO: expected ErrInvalidIndex, got %v", err)
	}
	if _, err := k.ReadFIFO(MaxFIFOs); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("ReadFIFO: expected ErrInvalidIndex, got %v", err)
	}
	if _, err := k.LostData(MaxFIFOs); !errors.Is(err, ErrInvalidIndex) {
		t.Fatalf("LostData: expected ErrInvalidIndex, got %v", err)
	}
}

func TestInitFIFOResets(t *testing.T) {
	k, _ := newFakeKernel()
	for i := int32(0); i <= FIFOSize; i++ {
		k.WriteFIFO(2, i)
	}
	if err := k.InitFIFO(2); err != nil {
		t.Fatalf("InitFIFO: %v", err)
	}
	if lost, _ := k.LostData(2); lost != 0 {
		t.Fatalf("LostData=%d after reset, want 0", lost)
	}
	k.WriteFIFO(2, 42)
	if v, _ := k.ReadFIFO(2); v != 42 {
		t.Fatalf("ReadFIFO=%d, want 42", v)
	}
}

func TestSignalWithoutWaiters(t *testing.T) {
	k, _ := newFakeKernel()
	var s Semaphore
	k.InitSemaphore(&s, -2)
	k.Signal(&s)
	k.Signal(&s)
	k.Signal(&s)
	if s.Value() != 1 {
		t.Fatalf("value=%d, want 1", s.Value())
	}
	k.Wait(&s)
	if s.Value() != 0 {
		t.Fatalf("value=%d after Wait, want 0", s.Value())
	}
}

func TestLaunch(t *testing.T) {
	k, p := newFakeKernel()
	if err := k.Launch(); !errors.Is(err, ErrNoThreadsScheduled) {
		t.Fatalf("expected ErrNoThreadsScheduled without threads, got %v", err)
	}
	if p.started != -1 {
		t.Fatal("port started without threads")
	}

	k.cfg.Clock = fixedClock(48_000_000)
	k.AddThread(nop, 4, "low")
	k.AddThread(nop, 2, "first")
	k.AddThread(nop, 2, "second")
	if err := k.Launch(); !errors.Is(err, ErrNoThreadsScheduled) {
		t.Fatalf("expected ErrNoThreadsScheduled, got %v", err)
	}
	if p.started != 1 {
		t.Fatalf("started slot %d, want 1", p.started)
	}
	if p.timer != 48_000 {
		t.Fatalf("reload=%d, want 48000", p.timer)
	}
	if k.CurrentThreadID().Slot() != 1 {
		t.Fatalf("current=%d, want 1", k.CurrentThreadID().Slot())
	}
}

func TestErrorFatal(t *testing.T) {
	for _, e := range []Error{ErrNoThreadsScheduled, ErrThreadsIncorrectlyAlive} {
		if !e.Fatal() {
			t.Fatalf("%v: expected fatal", e)
		}
	}
	if ErrBufferFull.Fatal() {
		t.Fatal("buffer full is not fatal")
	}
	if got := Error(-9).Error(); got != "invalid index" {
		t.Fatalf("Error(-9)=%q", got)
	}
}
