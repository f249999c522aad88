package messaging

import (
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/getmockd/contractd/pkg/contract"
)

// identityCache remembers which contract matched a message instance. Keys
// are weak pointers, so an entry disappears once its message is collected.
type identityCache struct {
	entries sync.Map // weak.Pointer[Message] -> *contract.Contract
	size    atomic.Int64
}

func (c *identityCache) load(m *Message) (*contract.Contract, bool) {
	v, ok := c.entries.Load(weak.Make(m))
	if !ok {
		return nil, false
	}
	return v.(*contract.Contract), true
}

func (c *identityCache) store(m *Message, ct *contract.Contract) {
	key := weak.Make(m)
	if _, loaded := c.entries.Swap(key, ct); loaded {
		return
	}
	c.size.Add(1)
	runtime.AddCleanup(m, c.evict, key)
}

func (c *identityCache) evict(key weak.Pointer[Message]) {
	if _, loaded := c.entries.LoadAndDelete(key); loaded {
		c.size.Add(-1)
	}
}

func (c *identityCache) forget(m *Message) {
	c.evict(weak.Make(m))
}

func (c *identityCache) len() int {
	return int(c.size.Load())
}
