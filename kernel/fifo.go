package kernel

const (
	// FIFOSize is the capacity of each FIFO.
	FIFOSize = 16

	// MaxFIFOs is the number of FIFO instances.
	MaxFIFOs = 4
)

// fifo is a fixed ring buffer. count signals available items; mutex guards
// the cursors. n is the physical occupancy, which can run ahead of count
// while a reader sits between its two waits.
type fifo struct {
	buf      [FIFOSize]int32
	head     uint8
	tail     uint8
	n        uint8
	lostData uint32
	count    Semaphore
	mutex    Semaphore
}

func (k *Kernel) initFIFO(f *fifo) {
	f.head = 0
	f.tail = 0
	f.n = 0
	f.lostData = 0
	k.InitSemaphore(&f.count, 0)
	k.InitSemaphore(&f.mutex, 1)
}

func (k *Kernel) fifo(index int) (*fifo, error) {
	if index < 0 || index >= MaxFIFOs {
		return nil, ErrInvalidIndex
	}
	return &k.fifos[index], nil
}

// InitFIFO empties FIFO index and resets its loss counter. Nothing may be
// blocked on the FIFO when it is reset.
func (k *Kernel) InitFIFO(index int) error {
	f, err := k.fifo(index)
	if err != nil {
		return err
	}
	k.initFIFO(f)
	return nil
}

// WriteFIFO stores v at the write cursor and advances it. It never waits for
// space: on a full FIFO the store overwrites an unread value while the read
// cursor stays put, the loss counter is incremented and ErrBufferFull is
// returned.
//
// WriteFIFO takes the FIFO mutex, so it may block briefly behind a reader and
// must not be called from interrupt handlers.
func (k *Kernel) WriteFIFO(index int, v int32) error {
	f, err := k.fifo(index)
	if err != nil {
		return err
	}

	k.Wait(&f.mutex)
	f.buf[f.tail] = v
	f.tail = (f.tail + 1) % FIFOSize
	if f.n == FIFOSize {
		f.lostData++
		err = ErrBufferFull
	} else {
		f.n++
		k.Signal(&f.count)
	}
	k.Signal(&f.mutex)
	return err
}

// ReadFIFO removes and returns the oldest value, blocking while the FIFO is
// empty. The only error is ErrInvalidIndex.
func (k *Kernel) ReadFIFO(index int) (int32, error) {
	f, err := k.fifo(index)
	if err != nil {
		return 0, err
	}

	k.Wait(&f.count)
	k.Wait(&f.mutex)
	v := f.buf[f.head]
	f.head = (f.head + 1) % FIFOSize
	f.n--
	k.Signal(&f.mutex)
	return v, nil
}

// LostData returns how many writes to FIFO index overwrote unread data.
func (k *Kernel) LostData(index int) (uint32, error) {
	f, err := k.fifo(index)
	if err != nil {
		return 0, err
	}
	g := k.enter()
	lost := f.lostData
	g.exit()
	return lost, nil
}
