package domain

import "testing"

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusPending, OrderStatusPaid, true},
		{OrderStatusPaid, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPaid, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusPaid, OrderStatusDelivered, false},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPaid, false},
		{OrderStatusDelivered, OrderStatusPending, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransitionTo(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCanBeCancelled(t *testing.T) {
	for status, want := range map[OrderStatus]bool{
		OrderStatusPending:   true,
		OrderStatusPaid:      true,
		OrderStatusShipped:   false,
		OrderStatusDelivered: false,
		OrderStatusCancelled: false,
	} {
		o := &Order{Status: status}
		if o.CanBeCancelled() != want {
			t.Errorf("%s: CanBeCancelled = %v, want %v", status, !want, want)
		}
	}
}

func TestFormatOrderNumber(t *testing.T) {
	cases := []struct {
		year int
		seq  int64
		want string
	}{
		{2026, 1, "ORD-2026-000001"},
		{2026, 42, "ORD-2026-000042"},
		{2030, 999999, "ORD-2030-999999"},
		{2030, 1000000, "ORD-2030-1000000"}, // sequence widens past a million
	}
	for _, c := range cases {
		if got := FormatOrderNumber(c.year, c.seq); got != c.want {
			t.Errorf("FormatOrderNumber(%d, %d) = %q, want %q", c.year, c.seq, got, c.want)
		}
	}
}
