package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockPinger struct {
	err   error
	calls int
}

func (m *mockPinger) Ping(_ context.Context) error {
	m.calls++
	return m.err
}

// --- Tests ---

func TestCheck_NoSources(t *testing.T) {
	r := New().Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if len(r.Checks) != 0 {
		t.Errorf("expected no checks, got %v", r.Checks)
	}
}

func TestCheck_AllHealthy(t *testing.T) {
	svc := New().
		Register("valkey", &mockPinger{}).
		Register("local", &mockPinger{})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{"valkey", "local"} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
}

func TestCheck_OneSourceDown(t *testing.T) {
	svc := New().
		Register("valkey", &mockPinger{err: errors.New("conn refused")}).
		Register("local", &mockPinger{})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["valkey"] != CheckError {
		t.Errorf("expected valkey %q, got %q", CheckError, r.Checks["valkey"])
	}
	if r.Checks["local"] != CheckOK {
		t.Errorf("expected local %q, got %q", CheckOK, r.Checks["local"])
	}
}

func TestRegister_ReplacesByName(t *testing.T) {
	first := &mockPinger{err: errors.New("down")}
	second := &mockPinger{}
	svc := New().Register("valkey", first).Register("valkey", second)

	r := svc.Check(context.Background())
	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if first.calls != 0 {
		t.Errorf("replaced pinger called %d times", first.calls)
	}
	if second.calls != 1 {
		t.Errorf("expected 1 call, got %d", second.calls)
	}
	if got := svc.Names(); len(got) != 1 || got[0] != "valkey" {
		t.Errorf("unexpected names %v", got)
	}
}

func TestPingerFunc(t *testing.T) {
	want := errors.New("boom")
	svc := New().Register("fn", PingerFunc(func(context.Context) error { return want }))

	if r := svc.Check(context.Background()); r.Checks["fn"] != CheckError {
		t.Errorf("expected %q, got %q", CheckError, r.Checks["fn"])
	}
}

func TestNames_Sorted(t *testing.T) {
	svc := New().Register("valkey", &mockPinger{}).Register("s3", &mockPinger{}).Register("local", &mockPinger{})
	got := svc.Names()
	want := []string{"local", "s3", "valkey"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names = %v, want %v", got, want)
		}
	}
}
