package runner

// queuedBatch is a (batch, retries) record awaiting dispatch. It is the
// in-memory unit moved between the staging buffer, the batch queue, and the
// handler pool.
type queuedBatch struct {
	items   []Item
	retries int
}

// batchQueue is an in-memory FIFO of queuedBatch records. It is owned
// exclusively by the dispatcher goroutine and requires no locking of its
// own; concurrent access is prevented by the single-writer discipline
// enforced at the dispatcher's mailbox.
type batchQueue struct {
	items []queuedBatch
}

// PushBack appends a single record to the tail. Used by flush and by retry
// requeueing.
func (q *batchQueue) PushBack(qb queuedBatch) {
	q.items = append(q.items, qb)
}

// PushBackMany appends a pre-built sub-queue to the tail, preserving its
// internal order. Used by the initial streamer's async-enqueue delivery.
func (q *batchQueue) PushBackMany(qbs []queuedBatch) {
	q.items = append(q.items, qbs...)
}

// PopFront removes and returns the head record. Callers must check Len()
// first; PopFront panics on an empty queue.
func (q *batchQueue) PopFront() queuedBatch {
	qb := q.items[0]
	q.items[0] = queuedBatch{}
	q.items = q.items[1:]
	return qb
}

// Len reports the number of records currently queued.
func (q *batchQueue) Len() int {
	return len(q.items)
}

// stagingBuffer is an unordered accumulator of item-lists submitted via
// Buffer between flushes. Each call appends one list; the whole buffer is
// drained atomically at flush time.
type stagingBuffer struct {
	lists [][]Item
	count int
}

// Add appends one producer-submitted list to the buffer.
func (s *stagingBuffer) Add(items []Item) {
	if len(items) == 0 {
		return
	}
	s.lists = append(s.lists, items)
	s.count += len(items)
}

// ItemCount reports the total number of buffered items across all lists.
func (s *stagingBuffer) ItemCount() int {
	return s.count
}

// Empty reports whether the buffer currently holds no items.
func (s *stagingBuffer) Empty() bool {
	return s.count == 0
}

// Drain flattens and clears the buffer, returning its contents in
// submission order.
func (s *stagingBuffer) Drain() []Item {
	flat := make([]Item, 0, s.count)
	for _, l := range s.lists {
		flat = append(flat, l...)
	}
	s.lists = nil
	s.count = 0
	return flat
}

// chunkItems splits items into contiguous segments of at most size,
// preserving order. The final segment may be shorter than size. An empty
// input yields no segments.
func chunkItems(items []Item, size int) [][]Item {
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]Item, 0, (len(items)+size-1)/size)
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		chunks = append(chunks, items[:n:n])
		items = items[n:]
	}
	return chunks
}
