package posewatch

import (
	"fmt"
	"sync"
)

// Pool holds several runtimes of the same model spread across the NPU cores
// so inference can run from more than one goroutine
type Pool struct {
	runtimes chan *Runtime
	size     int
	close    sync.Once
}

// NewPool loads size runtimes of the model, assigning NPU cores round robin
// from the given core list
func NewPool(size int, modelFile string, cores []CoreMask) (*Pool, error) {

	if size <= 0 {
		return nil, fmt.Errorf("pool size must be positive, got %d", size)
	}

	if len(cores) == 0 {
		cores = []CoreMask{NPUCoreAuto}
	}

	p := &Pool{
		runtimes: make(chan *Runtime, size),
		size:     size,
	}

	for i := 0; i < size; i++ {
		rt, err := NewRuntime(modelFile, poolCore(cores, i))

		if err != nil {
			// close any runtimes created before the error
			p.Close()
			return nil, err
		}

		p.Return(rt)
	}

	return p, nil
}

// NewPoolByPlatform creates a pool using the NPU cores of the named platform
func NewPoolByPlatform(platform string, size int, modelFile string) (*Pool, error) {

	cores, err := PlatformCores(platform)

	if err != nil {
		return nil, err
	}

	return NewPool(size, modelFile, cores)
}

// Get takes a runtime from the pool, blocking until one is available
func (p *Pool) Get() *Runtime {
	return <-p.runtimes
}

// Return puts a runtime back in the pool
func (p *Pool) Return(runtime *Runtime) {
	select {
	case p.runtimes <- runtime:
	default:
		// pool is full or closed
	}
}

// Size returns the number of runtimes in the pool
func (p *Pool) Size() int {
	return p.size
}

// SetWantFloat sets float32 output dequantization on every pooled runtime
func (p *Pool) SetWantFloat(val bool) {

	for i := 0; i < p.size; i++ {
		rt := p.Get()
		rt.SetWantFloat(val)
		p.Return(rt)
	}
}

// Close closes the pool and all runtimes in it
func (p *Pool) Close() {
	p.close.Do(func() {
		close(p.runtimes)

		for next := range p.runtimes {
			_ = next.Close()
		}
	})
}

// poolCore returns the core mask for the i'th runtime of the pool
func poolCore(cores []CoreMask, i int) CoreMask {
	return cores[i%len(cores)]
}
