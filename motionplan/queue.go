package motionplan

import "container/heap"

type queueItem struct {
	node     int32
	priority float64
	seq      uint64
}

// nodeQueue is a min-heap of arena indices ordered by priority, then by insertion order. A node
// may be pushed more than once; callers skip stale entries when they pop them.
type nodeQueue struct {
	items []queueItem
	seq   uint64
}

func (q *nodeQueue) Len() int { return len(q.items) }

func (q *nodeQueue) Less(i, j int) bool {
	if q.items[i].priority != q.items[j].priority {
		return q.items[i].priority < q.items[j].priority
	}
	return q.items[i].seq < q.items[j].seq
}

func (q *nodeQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

func (q *nodeQueue) Push(x interface{}) {
	q.items = append(q.items, x.(queueItem))
}

func (q *nodeQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

func (q *nodeQueue) push(node int32, priority float64) {
	q.seq++
	heap.Push(q, queueItem{node: node, priority: priority, seq: q.seq})
}

func (q *nodeQueue) pop() (int32, float64) {
	item := heap.Pop(q).(queueItem)
	return item.node, item.priority
}
