// Copyright 2025 The Mercury Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpserver

import "sync"

// WorkerPool runs connection tasks on a fixed set of workers. The
// queue grows without bound; backpressure on clients comes from the
// OS accept backlog, not from task rejection.
type WorkerPool struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []func()
	busy    int
	size    int
	closing bool
	wg      sync.WaitGroup
}

// NewWorkerPool starts size workers. The caller clamps size between
// the configured idle and max thread counts.
func NewWorkerPool(size int) *WorkerPool {
	if size < 1 {
		size = 1
	}
	pool := &WorkerPool{size: size}
	pool.cond = sync.NewCond(&pool.mu)
	pool.wg.Add(size)
	for i := 0; i < size; i++ {
		go pool.work()
	}
	return pool
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closing {
			p.cond.Wait()
		}
		if len(p.queue) == 0 && p.closing {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue = p.queue[1:]
		p.busy++
		p.mu.Unlock()

		task()

		p.mu.Lock()
		p.busy--
		p.mu.Unlock()
	}
}

// Enqueue schedules a task. It never blocks and never rejects.
func (p *WorkerPool) Enqueue(task func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closing {
		return
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
}

// Stats reports busy workers, total workers, and queued tasks.
func (p *WorkerPool) Stats() (busy, total, pending int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.busy, p.size, len(p.queue)
}

// Stop drains the queue and joins the workers.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	p.closing = true
	p.cond.Broadcast()
	p.mu.Unlock()
	p.wg.Wait()
}
