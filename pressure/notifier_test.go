package pressure_test

import (
	"context"
	"testing"

	"github.com/tailored-agentic-units/docstore/pressure"
)

func TestNotifier_SubscribeAndNotify(t *testing.T) {
	n := pressure.NewNotifier()

	calls := 0
	n.Subscribe(func(ctx context.Context) { calls++ })
	n.Subscribe(func(ctx context.Context) { calls++ })

	n.Notify(context.Background())

	if calls != 2 {
		t.Errorf("handlers called %d times, want 2", calls)
	}
	if n.Len() != 2 {
		t.Errorf("Len() = %d, want 2", n.Len())
	}
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := pressure.NewNotifier()

	calls := 0
	token := n.Subscribe(func(ctx context.Context) { calls++ })
	n.Unsubscribe(token)

	n.Notify(context.Background())

	if calls != 0 {
		t.Errorf("handler called %d times after Unsubscribe, want 0", calls)
	}
	if n.Len() != 0 {
		t.Errorf("Len() = %d, want 0", n.Len())
	}
}

func TestNotifier_Unsubscribe_UnknownToken(t *testing.T) {
	n := pressure.NewNotifier()
	n.Unsubscribe(42)
}

func TestNotifier_SubscriptionOrder(t *testing.T) {
	n := pressure.NewNotifier()

	var order []int
	n.Subscribe(func(ctx context.Context) { order = append(order, 1) })
	n.Subscribe(func(ctx context.Context) { order = append(order, 2) })
	n.Subscribe(func(ctx context.Context) { order = append(order, 3) })

	n.Notify(context.Background())

	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("order = %v, want %v", order, want)
			break
		}
	}
}

func TestNotifier_Notify_Empty(t *testing.T) {
	n := pressure.NewNotifier()
	n.Notify(context.Background())
}
