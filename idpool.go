package timerz

import (
	"sync"

	"github.com/google/uuid"
)

// idPool keeps a buffer of pre-generated sample ids so the recording path
// does not pay for uuid generation under the counter lock.
type idPool struct {
	factory func() string
	ids     chan string
	stopCh  chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newIDPool(capacity int, factory func() string) *idPool {
	if capacity <= 0 {
		capacity = 1
	}
	if factory == nil {
		factory = uuid.NewString
	}
	p := &idPool{
		ids:     make(chan string, capacity),
		factory: factory,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	go p.refill()
	return p
}

// get returns a pooled id, or generates one directly when the pool is empty.
func (p *idPool) get() string {
	select {
	case id := <-p.ids:
		return id
	default:
		return p.factory()
	}
}

func (p *idPool) refill() {
	defer close(p.done)
	for {
		select {
		case <-p.stopCh:
			return
		default:
			select {
			case p.ids <- p.factory():
			case <-p.stopCh:
				return
			}
		}
	}
}

// close stops the refill goroutine and waits for it to exit.
// Safe to call more than once; get keeps working afterwards.
func (p *idPool) close() {
	p.once.Do(func() {
		close(p.stopCh)
	})
	<-p.done
}
