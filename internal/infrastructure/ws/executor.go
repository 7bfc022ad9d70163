package ws

import "sync"

// serialExecutor runs submitted functions one at a time per key, in submission
// order. Different keys run concurrently.
type serialExecutor struct {
	queues map[string][]func()
	mu     sync.Mutex
	wg     sync.WaitGroup
}

func newSerialExecutor() *serialExecutor {
	return &serialExecutor{
		queues: make(map[string][]func()),
	}
}

func (e *serialExecutor) Submit(key string, fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	queue, running := e.queues[key]
	e.queues[key] = append(queue, fn)

	if !running {
		e.wg.Add(1)
		go e.drain(key)
	}
}

func (e *serialExecutor) drain(key string) {
	defer e.wg.Done()

	for {
		e.mu.Lock()
		queue := e.queues[key]
		if len(queue) == 0 {
			delete(e.queues, key)
			e.mu.Unlock()
			return
		}
		fn := queue[0]
		queue[0] = nil
		e.queues[key] = queue[1:]
		e.mu.Unlock()

		fn()
	}
}

// Wait blocks until every queue is drained.
func (e *serialExecutor) Wait() {
	e.wg.Wait()
}
