// Package scroll keeps a reader's place while a list grows underneath it.
package scroll

import "sync"

// Surface is a scrollable view.
type Surface interface {
	ScrollOffset() int
	SetScrollOffset(offset int)
}

// Scheduler runs fn after the next render pass has laid out the view.
type Scheduler interface {
	AfterRender(fn func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(fn func())

func (f SchedulerFunc) AfterRender(fn func()) { f(fn) }

// Immediate runs the callback at once; for surfaces that render synchronously.
var Immediate Scheduler = SchedulerFunc(func(fn func()) { fn() })

// Coordinator holds a single saved offset. Each Save replaces the last one.
type Coordinator struct {
	mu     sync.Mutex
	offset int
	saved  bool
}

// Save records offset, replacing any earlier value.
func (c *Coordinator) Save(offset int) {
	c.mu.Lock()
	c.offset = offset
	c.saved = true
	c.mu.Unlock()
}

// SaveFrom records the surface's current offset.
func (c *Coordinator) SaveFrom(s Surface) {
	c.Save(s.ScrollOffset())
}

// Offset returns the saved offset and whether one was saved.
func (c *Coordinator) Offset() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset, c.saved
}

// Restore re-applies the saved offset to s once sched's next render pass
// completes. The offset read at that moment is the one applied, so a Save
// made before the render wins. Without a saved offset it does nothing.
func (c *Coordinator) Restore(s Surface, sched Scheduler) {
	if _, ok := c.Offset(); !ok {
		return
	}
	if sched == nil {
		sched = Immediate
	}
	sched.AfterRender(func() {
		if offset, ok := c.Offset(); ok {
			s.SetScrollOffset(offset)
		}
	})
}

// Around saves the offset of s, runs fn, then restores after the next render.
// It is the usual wrapper for a fetch that appends rows.
func (c *Coordinator) Around(s Surface, sched Scheduler, fn func() error) error {
	c.SaveFrom(s)
	err := fn()
	c.Restore(s, sched)
	return err
}
