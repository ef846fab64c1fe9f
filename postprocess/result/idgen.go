package result

import "sync"

// IDGenerator hands out incrementing detection ID numbers
type IDGenerator struct {
	id int64
	sync.Mutex
}

// NewIDGenerator returns a generator starting from one
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// GetNext returns the next ID number
func (id *IDGenerator) GetNext() int64 {
	id.Lock()
	defer id.Unlock()
	id.id++
	return id.id
}
