package state

import "testing"

func TestBroadcaster_DeliversInOrder(t *testing.T) {
	var b Broadcaster[string]
	var got []string
	b.Subscribe(func(v string) { got = append(got, "a:"+v) })
	cancel := b.Subscribe(func(v string) { got = append(got, "b:"+v) })
	b.Subscribe(func(v string) { got = append(got, "c:"+v) })

	b.Publish("1")
	cancel()
	b.Publish("2")

	want := []string{"a:1", "b:1", "c:1", "a:2", "c:2"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
}

func TestBroadcaster_ListenerMayUnsubscribeItself(t *testing.T) {
	var b Broadcaster[int]
	calls := 0
	var cancel CancelFunc
	cancel = b.Subscribe(func(int) {
		calls++
		cancel()
	})
	b.Publish(1)
	b.Publish(2)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestScope_CloseCancelsEachOnce(t *testing.T) {
	var scope Scope
	counts := make([]int, 3)
	for i := range counts {
		i := i
		scope.Add(func() { counts[i]++ })
	}

	scope.Close()
	scope.Close()

	for i, n := range counts {
		if n != 1 {
			t.Fatalf("cancel %d ran %d times, want 1", i, n)
		}
	}
	if !scope.Closed() {
		t.Fatal("Closed() = false after Close")
	}

	late := 0
	scope.Add(func() { late++ })
	if late != 1 {
		t.Fatalf("handle added after Close ran %d times, want 1", late)
	}
}
