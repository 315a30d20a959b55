package index

import "github.com/emirpasic/gods/lists/singlylinkedlist"

// fifoQueue remembers the insertion order of cached keys so the owner of the
// paired map can evict the oldest one. Lookups do not refresh a key's age.
// The zero value is an empty queue.
type fifoQueue[K comparable] struct {
	keys singlylinkedlist.List
}

func (q *fifoQueue[K]) push(k K) {
	q.keys.Add(k)
}

func (q *fifoQueue[K]) pop() (K, bool) {
	v, ok := q.keys.Get(0)
	if !ok {
		var zero K
		return zero, false
	}
	q.keys.Remove(0)
	return v.(K), true
}

func (q *fifoQueue[K]) len() int {
	return q.keys.Size()
}

func (q *fifoQueue[K]) reset() {
	q.keys.Clear()
}

// admit stores v under k in m, first evicting the oldest queued key while m
// holds max or more entries. A cache bounded by max <= 0 stores nothing.
func admit[K comparable, V any](m map[K]V, q *fifoQueue[K], max int, k K, v V) {
	if max <= 0 {
		return
	}
	for len(m) >= max {
		oldest, ok := q.pop()
		if !ok {
			break
		}
		delete(m, oldest)
	}
	m[k] = v
	q.push(k)
}
