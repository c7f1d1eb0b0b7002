package content

import "sync"

// Events is a small synchronous subscription hub for content change
// notifications. Sources embed it; the transport layer calls NotifyChanged /
// NotifyDeleted when the CMS reports a save or delete.
type Events struct {
	mu       sync.RWMutex
	changed  []func(id int64)
	deleted  []func(id int64)
}

// OnContentChanged registers a change handler.
func (e *Events) OnContentChanged(fn func(id int64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changed = append(e.changed, fn)
}

// OnContentDeleted registers a delete handler.
func (e *Events) OnContentDeleted(fn func(id int64)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.deleted = append(e.deleted, fn)
}

// NotifyChanged invokes every change handler in registration order.
// Handlers run on the caller's goroutine.
func (e *Events) NotifyChanged(id int64) {
	e.mu.RLock()
	handlers := e.changed
	e.mu.RUnlock()
	for _, fn := range handlers {
		fn(id)
	}
}

// NotifyDeleted invokes every delete handler in registration order.
func (e *Events) NotifyDeleted(id int64) {
	e.mu.RLock()
	handlers := e.deleted
	e.mu.RUnlock()
	for _, fn := range handlers {
		fn(id)
	}
}
