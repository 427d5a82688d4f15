package queue

import (
	"sync/atomic"
	"time"

	"github.com/ufo-kit/ufo-go/internal/buffer"
)

// channelCapacity bounds each of the two FIFO channels backing a
// TwoWayQueue. The source's GAsyncQueue is unbounded, but the scheduler
// never has more than a couple of buffers in flight per edge (the
// recycling policy injects at most 2), so a modest fixed capacity is the
// Go-idiomatic equivalent without reaching for a hand-rolled unbounded
// queue.
const channelCapacity = 16

// poison is the unique end-of-stream sentinel. It is compared by pointer
// identity and never dereferenced, matching the source's POISON_PILL
// (a bogus non-nil pointer value).
var poison = &buffer.Buffer{}

// Poison returns the sentinel pushed by a producer after its final real
// output to signal end-of-stream to the consumer.
func Poison() *buffer.Buffer { return poison }

// IsPoison reports whether b is the end-of-stream sentinel.
func IsPoison(b *buffer.Buffer) bool { return b == poison }

// TwoWayQueue is the bounded, producer/consumer duplex between two
// adjacent tasks: a producer_queue carrying empty/recyclable buffers back
// to the producer, and a consumer_queue carrying filled buffers forward
// to the consumer.
type TwoWayQueue struct {
	producerQueue chan *buffer.Buffer
	consumerQueue chan *buffer.Buffer
	fillTimes     chan int64 // UnixNano timestamp paired 1:1 with each consumerQueue send
	capacity      int64
}

// New creates an empty TwoWayQueue; buffers are added via Insert.
func New() *TwoWayQueue {
	return &TwoWayQueue{
		producerQueue: make(chan *buffer.Buffer, channelCapacity),
		consumerQueue: make(chan *buffer.Buffer, channelCapacity),
		fillTimes:     make(chan int64, channelCapacity),
	}
}

// ConsumerPop blocks until a filled buffer (or the poison sentinel) is
// available and returns it.
func (q *TwoWayQueue) ConsumerPop() *buffer.Buffer {
	return <-q.consumerQueue
}

// ConsumerPopLatency blocks until a filled buffer is available, like
// ConsumerPop, and additionally reports how long it sat on the queue
// after ProducerPush filled it.
func (q *TwoWayQueue) ConsumerPopLatency() (*buffer.Buffer, time.Duration) {
	b := <-q.consumerQueue
	filledAt := <-q.fillTimes
	return b, time.Duration(time.Now().UnixNano() - filledAt)
}

// ConsumerPush returns an emptied buffer to the producer side.
func (q *TwoWayQueue) ConsumerPush(b *buffer.Buffer) {
	q.producerQueue <- b
}

// ProducerPop blocks until a recyclable buffer is available.
func (q *TwoWayQueue) ProducerPop() *buffer.Buffer {
	return <-q.producerQueue
}

// ProducerPush forwards a filled buffer (or the poison sentinel) to the
// consumer side.
func (q *TwoWayQueue) ProducerPush(b *buffer.Buffer) {
	q.fillTimes <- time.Now().UnixNano()
	q.consumerQueue <- b
}

// Insert injects a fresh buffer into the recycle loop, incrementing
// capacity. Used by the scheduler's lazy-injection policy (up to 2
// buffers per edge) rather than by tasks themselves.
func (q *TwoWayQueue) Insert(b *buffer.Buffer) {
	atomic.AddInt64(&q.capacity, 1)
	q.producerQueue <- b
}

// Capacity returns the count of buffers injected so far.
func (q *TwoWayQueue) Capacity() int {
	return int(atomic.LoadInt64(&q.capacity))
}
