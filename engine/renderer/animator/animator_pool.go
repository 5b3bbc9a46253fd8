package animator

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-anim/engine/renderer/bind_group_provider"

	"github.com/pkg/errors"
)

// animatorPool is the implementation of the AnimatorPool interface.
type animatorPool struct {
	mu sync.Mutex

	pool        worker.DynamicWorkerPool
	workers     int
	queueSize   int
	idleTimeout time.Duration

	animators []Animator
}

// AnimatorPool poses many Animators in parallel, one task per animator per frame.
// Each Animator is only ever touched by one worker during an Update, and Update does not return
// until every animator has finished, so FinalMatrices may be read as soon as it returns.
type AnimatorPool interface {
	// Add registers an animator with the pool.
	//
	// Parameters:
	//   - a: the animator to pose each frame
	//
	// Returns:
	//   - int: the animator's index in the pool
	Add(a Animator) int

	// Animators returns a copy of the registered animators.
	//
	// Returns:
	//   - []Animator: the animators in registration order
	Animators() []Animator

	// Len returns the number of registered animators.
	Len() int

	// Update calls UpdateAnimation(deltaTime) on every animator in parallel and waits for all of them.
	// A panic inside one animator is recovered and reported; the other animators still update.
	//
	// Parameters:
	//   - deltaTime: elapsed wall time in seconds
	//
	// Returns:
	//   - error: the first failure, or nil
	Update(deltaTime float64) error

	// Flush stages every animator's skinning matrices and drains the staged writes.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the writes of all animators, in registration order
	Flush() []bind_group_provider.BufferWrite

	// Stop shuts down the worker pool. The pool must not be used afterwards.
	Stop()
}

var _ AnimatorPool = &animatorPool{}

// AnimatorPoolOption is a functional option for configuring an AnimatorPool via NewAnimatorPool.
type AnimatorPoolOption func(*animatorPool)

// WithWorkers sets the maximum number of worker goroutines.
func WithWorkers(n int) AnimatorPoolOption {
	return func(p *animatorPool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueSize sets the task queue capacity.
func WithQueueSize(n int) AnimatorPoolOption {
	return func(p *animatorPool) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithIdleTimeout sets how long an idle worker lingers before exiting.
func WithIdleTimeout(d time.Duration) AnimatorPoolOption {
	return func(p *animatorPool) {
		if d > 0 {
			p.idleTimeout = d
		}
	}
}

// WithAnimators registers animators at construction.
func WithAnimators(animators ...Animator) AnimatorPoolOption {
	return func(p *animatorPool) {
		p.animators = append(p.animators, animators...)
	}
}

// NewAnimatorPool creates a new AnimatorPool backed by a dynamic worker pool.
//
// Parameters:
//   - options: a variadic list of AnimatorPoolOption functions
//
// Returns:
//   - AnimatorPool: the pool
func NewAnimatorPool(options ...AnimatorPoolOption) AnimatorPool {
	p := &animatorPool{
		workers:     4,
		queueSize:   256,
		idleTimeout: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.pool = worker.NewDynamicWorkerPool(p.workers, p.queueSize, p.idleTimeout)
	return p
}

func (p *animatorPool) Add(a Animator) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.animators = append(p.animators, a)
	return len(p.animators) - 1
}

func (p *animatorPool) Animators() []Animator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Animator(nil), p.animators...)
}

func (p *animatorPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.animators)
}

func (p *animatorPool) Update(deltaTime float64) error {
	animators := p.Animators()

	// pool.Wait() blocks until workers idle-exit, which is unsuitable per frame;
	// a WaitGroup is the frame barrier instead.
	var wg sync.WaitGroup
	var errMu sync.Mutex
	var firstErr error

	for i, a := range animators {
		wg.Add(1)
		aCap := a
		id := i
		p.pool.SubmitTask(worker.Task{
			ID:      id,
			Payload: aCap,
			Do: func() (result any, err error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						err = errors.Errorf("animator %d: %v", id, r)
						if e, ok := r.(error); ok {
							err = errors.Wrapf(e, "animator %d", id)
						}
						errMu.Lock()
						if firstErr == nil {
							firstErr = err
						}
						errMu.Unlock()
					}
				}()
				aCap.UpdateAnimation(deltaTime)
				return nil, nil
			},
		})
	}

	wg.Wait()
	return firstErr
}

func (p *animatorPool) Flush() []bind_group_provider.BufferWrite {
	var writes []bind_group_provider.BufferWrite
	for _, a := range p.Animators() {
		a.Flush()
		writes = append(writes, a.StagedWriteData()...)
	}
	return writes
}

func (p *animatorPool) Stop() {
	p.pool.Stop()
}
