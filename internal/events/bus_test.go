package events

import "testing"

func TestBusSince(t *testing.T) {
	bus := NewBus(3)
	bus.Publish(Event{Type: TypeStatus, Message: "1"})
	bus.Publish(Event{Type: TypeProgress, Progress: 10})
	bus.Publish(Event{Type: TypeProgress, Progress: 20})

	events := bus.Since(1)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Seq != 2 || events[1].Seq != 3 {
		t.Fatalf("unexpected seqs: %+v", events)
	}
}

func TestBusCapsHistory(t *testing.T) {
	bus := NewBus(2)
	bus.Publish(Event{Message: "1"})
	bus.Publish(Event{Message: "2"})
	bus.Publish(Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestBusSubscribe(t *testing.T) {
	bus := NewBus(10)
	ch, cancel := bus.Subscribe(4)
	bus.Publish(Event{Type: TypeProgress, Progress: 60})

	got := <-ch
	if got.Progress != 60 || got.Seq != 1 {
		t.Fatalf("event = %+v", got)
	}
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after cancel")
	}
}

func TestBusCloseEndsSubscriptions(t *testing.T) {
	bus := NewBus(10)
	ch, cancel := bus.Subscribe(1)
	defer cancel()
	bus.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after bus close")
	}
	bus.Publish(Event{Message: "late"})
	if n := len(bus.Since(0)); n != 0 {
		t.Fatalf("len = %d, want 0 after close", n)
	}

	late, _ := bus.Subscribe(1)
	if _, ok := <-late; ok {
		t.Fatalf("subscribing to a closed bus should yield a closed channel")
	}
}
