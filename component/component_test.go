package component

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   Health
	events   *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	*f.events = append(*f.events, "start:"+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("stop without deadline")
	}
	*f.events = append(*f.events, "stop:"+f.name)
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health { return f.health }

func pipeline(events *[]string) (*Registry, []*fakeComponent) {
	r := NewRegistry()
	cs := []*fakeComponent{
		{name: "workspace", events: events, health: Health{Name: "workspace", Status: StatusHealthy}},
		{name: "embedding", events: events, health: Health{Name: "embedding", Status: StatusDegraded, Message: "serving from fallback spectral"}},
		{name: "http-server", events: events, health: Health{Name: "http-server", Status: StatusHealthy}},
	}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r, cs
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	var events []string
	r, _ := pipeline(&events)
	err := r.Register(&fakeComponent{name: "embedding", events: &events})
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if got := r.Get("embedding"); got == nil || got.Name() != "embedding" {
		t.Errorf("Get(embedding) = %v", got)
	}
	if r.Get("sidecar") != nil {
		t.Error("expected nil for unknown component")
	}
	if names := r.All(); len(names) != 3 || names[2].Name() != "http-server" {
		t.Errorf("All() order = %v", names)
	}
}

func TestStartThenStopReversed(t *testing.T) {
	var events []string
	r, _ := pipeline(&events)
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	want := "start:workspace start:embedding start:http-server stop:http-server stop:embedding stop:workspace"
	if got := strings.Join(events, " "); got != want {
		t.Errorf("events = %s\nwant     %s", got, want)
	}

	// A second StopAll has nothing started to stop.
	events = nil
	if err := r.StopAll(context.Background()); err != nil || len(events) != 0 {
		t.Errorf("second StopAll: err=%v events=%v", err, events)
	}
}

func TestStartFailureStopsOnlyStarted(t *testing.T) {
	var events []string
	r, cs := pipeline(&events)
	cs[1].startErr = errors.New("model file missing")

	err := r.StartAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "start embedding") || !errors.Is(err, cs[1].startErr) {
		t.Fatalf("expected wrapped embedding error, got %v", err)
	}
	events = nil
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	if strings.Join(events, " ") != "stop:workspace" {
		t.Errorf("expected only workspace stopped, got %v", events)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	var events []string
	r, cs := pipeline(&events)
	cs[0].stopErr = errors.New("scratch dir busy")
	cs[2].stopErr = errors.New("listener closed")
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatal(err)
	}

	err := r.StopAll(context.Background())
	if !errors.Is(err, cs[0].stopErr) || !errors.Is(err, cs[2].stopErr) {
		t.Fatalf("expected both stop errors, got %v", err)
	}
	if len(events) != 6 {
		t.Errorf("every component should be stopped, events = %v", events)
	}
}

func TestHealthAllInOrder(t *testing.T) {
	var events []string
	r, _ := pipeline(&events)
	hs := r.HealthAll(context.Background())
	if len(hs) != 3 {
		t.Fatalf("expected 3 results, got %d", len(hs))
	}
	if hs[1].Status != StatusDegraded || hs[1].Message == "" {
		t.Errorf("embedding health = %+v", hs[1])
	}
	if hs[0].Name != "workspace" || hs[2].Name != "http-server" {
		t.Errorf("unexpected order %v", hs)
	}
}
