package cache

import "container/list"

type entry struct {
	key   int64
	value interface{}
}

// LRU is a least-recently-used cache keyed by record id. It is not
// safe for concurrent use; the store guards it with its own lock.
type LRU struct {
	maxSize int
	items   map[int64]*list.Element
	order   *list.List
}

// NewLRU creates a cache holding at most maxSize records.
func NewLRU(maxSize int) *LRU {
	return &LRU{
		maxSize: maxSize,
		items:   make(map[int64]*list.Element),
		order:   list.New(),
	}
}

// Set adds or refreshes a record.
func (l *LRU) Set(key int64, value interface{}) {
	if element, exists := l.items[key]; exists {
		l.order.MoveToFront(element)
		element.Value.(*entry).value = value
		return
	}

	ele := l.order.PushFront(&entry{key: key, value: value})
	l.items[key] = ele

	if l.order.Len() > l.maxSize {
		oldest := l.order.Back()
		if oldest != nil {
			l.removeElement(oldest)
		}
	}
}

// Get retrieves a record and marks it most recently used.
func (l *LRU) Get(key int64) (interface{}, bool) {
	element, exists := l.items[key]
	if !exists {
		return nil, false
	}
	l.order.MoveToFront(element)
	return element.Value.(*entry).value, true
}

// Remove drops a record, used to invalidate after writes.
func (l *LRU) Remove(key int64) {
	if element, exists := l.items[key]; exists {
		l.removeElement(element)
	}
}

// Len returns the number of cached records.
func (l *LRU) Len() int {
	return l.order.Len()
}

func (l *LRU) removeElement(element *list.Element) {
	l.order.Remove(element)
	delete(l.items, element.Value.(*entry).key)
}
