package pool

import "sync"

type Task func()

// Pool runs tasks on a fixed number of workers in submission order.
// Submit never blocks: tasks wait in an unbounded FIFO until a worker is free.
type Pool struct {
	numWorkers int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Task
	closed bool

	wg sync.WaitGroup
}

func NewPool(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &Pool{numWorkers: numWorkers}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Pool) Start() {
	for range p.numWorkers {
		p.wg.Go(func() {
			for {
				task, ok := p.next()
				if !ok {
					return
				}
				task()
			}
		})
	}
}

func (p *Pool) next() (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.cond.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	task := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	return task, true
}

// Submit queues a task. It panics if the pool is closed.
func (p *Pool) Submit(task Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic("pool: submit on closed pool")
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
}

// Close stops accepting tasks and waits for queued tasks to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
