package cache

import (
	"context"
	"testing"
	"time"
)

type payload struct {
	Count int    `json:"count"`
	Day   string `json:"day"`
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var got payload
	if ok, err := m.Get(ctx, "k", &got); ok || err != nil {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}

	if err := m.Set(ctx, "k", payload{Count: 3, Day: "2025-11-15"}, time.Minute); err != nil {
		t.Fatal(err)
	}
	ok, err := m.Get(ctx, "k", &got)
	if !ok || err != nil {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if got.Count != 3 || got.Day != "2025-11-15" {
		t.Errorf("got %+v", got)
	}

	if err := m.Delete(ctx, "k", "missing"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := m.Get(ctx, "k", &got); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 11, 15, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	if err := m.Set(ctx, "k", payload{Count: 1}, time.Minute); err != nil {
		t.Fatal(err)
	}
	if err := m.Set(ctx, "forever", payload{Count: 2}, 0); err != nil {
		t.Fatal(err)
	}

	now = now.Add(2 * time.Minute)
	var got payload
	if ok, _ := m.Get(ctx, "k", &got); ok {
		t.Error("expected expired entry to miss")
	}
	if ok, _ := m.Get(ctx, "forever", &got); !ok || got.Count != 2 {
		t.Errorf("entry without ttl = %v %+v", ok, got)
	}
}

func TestNoop(t *testing.T) {
	var c Cache = Noop{}
	ctx := context.Background()
	if err := c.Set(ctx, "k", payload{Count: 1}, time.Minute); err != nil {
		t.Fatal(err)
	}
	var got payload
	if ok, err := c.Get(ctx, "k", &got); ok || err != nil {
		t.Errorf("Noop Get = %v, %v", ok, err)
	}
}
