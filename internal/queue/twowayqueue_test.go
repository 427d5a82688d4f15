package queue

import (
	"testing"

	"github.com/ufo-kit/ufo-go/internal/buffer"
)

func TestInsertIncrementsCapacity(t *testing.T) {
	q := New()
	if q.Capacity() != 0 {
		t.Fatalf("Capacity() = %d, want 0", q.Capacity())
	}

	b1, _ := buffer.New(buffer.NewRequisition(4), nil)
	b2, _ := buffer.New(buffer.NewRequisition(4), nil)
	q.Insert(b1)
	q.Insert(b2)

	if q.Capacity() != 2 {
		t.Fatalf("Capacity() = %d, want 2", q.Capacity())
	}
}

func TestProducerConsumerRoundTrip(t *testing.T) {
	q := New()
	b, _ := buffer.New(buffer.NewRequisition(4), nil)
	q.Insert(b)

	got := q.ProducerPop()
	if got != b {
		t.Fatalf("ProducerPop() returned a different buffer")
	}

	q.ProducerPush(got)
	back := q.ConsumerPop()
	if back != b {
		t.Fatalf("ConsumerPop() returned a different buffer")
	}

	q.ConsumerPush(back)
	recycled := q.ProducerPop()
	if recycled != b {
		t.Fatalf("ProducerPop() after recycling returned a different buffer")
	}
}

func TestPoisonSentinel(t *testing.T) {
	q := New()
	q.ProducerPush(Poison())

	got := q.ConsumerPop()
	if !IsPoison(got) {
		t.Fatalf("ConsumerPop() did not return the poison sentinel")
	}

	b, _ := buffer.New(buffer.NewRequisition(1), nil)
	if IsPoison(b) {
		t.Fatalf("IsPoison() reported a regular buffer as poison")
	}
}

