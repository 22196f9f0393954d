package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/HerbHall/netcollect/pkg/collection"
)

func TestLogger_NotNil(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNewStore_Usable(t *testing.T) {
	db := NewStore(t)
	if db == nil {
		t.Fatal("expected non-nil store")
	}
	if err := db.DB().PingContext(context.Background()); err != nil {
		t.Fatalf("PingContext: %v", err)
	}
}

func TestClock_Cycles(t *testing.T) {
	c := NewClock(5 * time.Minute)
	if !c.Now().Equal(Epoch) {
		t.Fatalf("Now() = %v, want %v", c.Now(), Epoch)
	}
	if got := c.Tick(); !got.Equal(Epoch.Add(5 * time.Minute)) {
		t.Errorf("Tick() = %v, want one step past epoch", got)
	}
	c.Advance(time.Minute)
	if got := c.Now().Sub(Epoch); got != 6*time.Minute {
		t.Errorf("elapsed = %v, want 6m", got)
	}
}

func TestClock_Window(t *testing.T) {
	c := NewClock(time.Minute)
	c.Tick()
	c.Tick()

	from, to := c.Window(3)
	if !from.Equal(Epoch) || !to.Equal(Epoch.Add(2*time.Minute)) {
		t.Errorf("Window(3) = %v..%v, want %v..%v", from, to, Epoch, Epoch.Add(2*time.Minute))
	}
	if from, to := c.Window(1); !from.Equal(to) {
		t.Errorf("Window(1) = %v..%v, want a single instant", from, to)
	}
}

func TestNewResource_Defaults(t *testing.T) {
	r := NewResource()
	if r.ID == "" {
		t.Error("expected non-empty ID")
	}
	if r.Type != "node" {
		t.Errorf("Type = %q, want node", r.Type)
	}
	if r.Label != "test-node" {
		t.Errorf("Label = %q, want test-node", r.Label)
	}
}

func TestNewResource_WithOptions(t *testing.T) {
	r := NewResource(
		WithResourceID("node-7"),
		WithInstance("interface", "eth0"),
		WithLabel("uplink"),
	)
	if r.ID != collection.ResourceID("node-7") {
		t.Errorf("ID = %q, want node-7", r.ID)
	}
	if r.Type != "interface" || r.Instance != "eth0" {
		t.Errorf("Type/Instance = %q/%q, want interface/eth0", r.Type, r.Instance)
	}
	if r.String() != "uplink" {
		t.Errorf("String() = %q, want uplink", r.String())
	}
}

func TestNewCatalog(t *testing.T) {
	c := NewCatalog()
	if c.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", c.Len())
	}
	typ, ok := c.Lookup("ifInOctets")
	if !ok || typ.Class() != collection.ClassCounter {
		t.Errorf("ifInOctets = %v, %v; want counter", typ, ok)
	}
	if len(c.OIDs()) != 2 {
		t.Errorf("OIDs() = %v, want 2 entries", c.OIDs())
	}
}
