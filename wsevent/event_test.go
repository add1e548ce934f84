package wsevent

import "testing"

func TestOnMessageFiresEveryTime(t *testing.T) {
	r := NewRegistry()
	var count int
	r.OnMessage(func(any) { count++ })

	r.EmitMessage("a")
	r.EmitMessage("b")

	if count != 2 {
		t.Fatalf("want 2 deliveries, got %d", count)
	}
}

func TestOnceMessageFiresOnlyOnce(t *testing.T) {
	r := NewRegistry()
	var count int
	r.OnceMessage(func(any) { count++ })

	r.EmitMessage("a")
	r.EmitMessage("b")

	if count != 1 {
		t.Fatalf("want 1 delivery, got %d", count)
	}
}

func TestHandlersFireInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	var order []int
	r.OnOpen(func() { order = append(order, 1) })
	r.OnOpen(func() { order = append(order, 2) })
	r.OnOpen(func() { order = append(order, 3) })

	r.EmitOpen()

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v, want %v", order, want)
		}
	}
}

func TestRemoveAllDropsHandlersForOneEvent(t *testing.T) {
	r := NewRegistry()
	var opens, closes int
	r.OnOpen(func() { opens++ })
	r.OnClose(func(int, string) { closes++ })

	r.RemoveAll(Open)
	r.EmitOpen()
	r.EmitClose(1000, "")

	if opens != 0 {
		t.Fatalf("want 0 opens after RemoveAll(Open), got %d", opens)
	}
	if closes != 1 {
		t.Fatalf("want 1 close, got %d", closes)
	}
}

func TestRemoveAllNegativeDropsEveryEvent(t *testing.T) {
	r := NewRegistry()
	var opens, closes int
	r.OnOpen(func() { opens++ })
	r.OnClose(func(int, string) { closes++ })

	r.RemoveAll(-1)
	r.EmitOpen()
	r.EmitClose(1000, "")

	if opens != 0 || closes != 0 {
		t.Fatalf("want no handlers to fire, got opens=%d closes=%d", opens, closes)
	}
}

func TestRemoveDropsOnlyThatHandler(t *testing.T) {
	r := NewRegistry()
	var first, second int
	sub := r.OnOpen(func() { first++ })
	r.OnOpen(func() { second++ })

	r.Remove(sub)
	r.EmitOpen()

	if first != 0 {
		t.Fatalf("want removed handler not to fire, got %d", first)
	}
	if second != 1 {
		t.Fatalf("want remaining handler to fire once, got %d", second)
	}
}

func TestRemoveOfAlreadyFiredOnceHandlerIsNoop(t *testing.T) {
	r := NewRegistry()
	var count int
	sub := r.OnceOpen(func() { count++ })

	r.EmitOpen() // fires and auto-removes

	r.Remove(sub) // must not panic or affect anything else
	r.EmitOpen()

	if count != 1 {
		t.Fatalf("want 1 delivery, got %d", count)
	}
}
