package queue

import "github.com/msalinoh/argos-smd-at-kineis-firmware-sub000/pkg/kns"

// arrayStorage is a circular buffer of fixed-size slots.
// One slot is always kept empty to tell full from empty.
type arrayStorage struct {
	buf      []byte
	elemSize int
	slots    int
	r, w     int
}

func newArrayStorage(capacity, elemSize int) *arrayStorage {
	return &arrayStorage{
		buf:      make([]byte, capacity*elemSize),
		elemSize: elemSize,
		slots:    capacity,
	}
}

func (a *arrayStorage) slot(n int) []byte {
	return a.buf[n*a.elemSize : (n+1)*a.elemSize]
}

func (a *arrayStorage) put(item []byte) bool {
	next := (a.w + 1) % a.slots
	if next == a.r {
		return false
	}
	copy(a.slot(a.w), item)
	a.w = next
	return true
}

func (a *arrayStorage) get(item []byte) bool {
	kns.Assert(a.r >= 0 && a.r < a.slots && a.w >= 0 && a.w < a.slots,
		"queue indices out of range r=%d w=%d", a.r, a.w)
	if a.r == a.w {
		return false
	}
	copy(item, a.slot(a.r))
	a.r = (a.r + 1) % a.slots
	return true
}

func (a *arrayStorage) pending() bool {
	return a.r != a.w
}

func (a *arrayStorage) reset() {
	a.r, a.w = 0, 0
}

// chanStorage keeps the same usable capacity as arrayStorage.
type chanStorage struct {
	ch       chan []byte
	elemSize int
}

func newChanStorage(capacity, elemSize int) *chanStorage {
	return &chanStorage{ch: make(chan []byte, capacity-1), elemSize: elemSize}
}

func (c *chanStorage) put(item []byte) bool {
	elem := make([]byte, c.elemSize)
	copy(elem, item)
	select {
	case c.ch <- elem:
		return true
	default:
		return false
	}
}

func (c *chanStorage) get(item []byte) bool {
	select {
	case elem := <-c.ch:
		copy(item, elem)
		return true
	default:
		return false
	}
}

func (c *chanStorage) pending() bool {
	return len(c.ch) > 0
}

func (c *chanStorage) reset() {
	for {
		select {
		case <-c.ch:
		default:
			return
		}
	}
}
