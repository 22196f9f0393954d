package collection

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

func TestResourceSet_AddRejectsDuplicates(t *testing.T) {
	set := NewResourceSet(testResource())
	typ := NewAttributeType("cpu", "gauge", "")

	if _, err := set.Add(typ, "1"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := set.Add(typ, "2"); !errors.Is(err, ErrDuplicateAttribute) {
		t.Fatalf("second Add error = %v, want ErrDuplicateAttribute", err)
	}
	if set.Len() != 1 {
		t.Errorf("Len() = %d, want 1", set.Len())
	}
}

func TestResourceSet_Normalize(t *testing.T) {
	set := NewResourceSet(testResource())
	raws := map[string]string{}
	for i := 0; i < 50; i++ {
		name := "m" + strconv.Itoa(i)
		kind := "gauge"
		if i%2 == 0 {
			kind = "counter"
		}
		raw := strconv.Itoa(i) + ".7 units"
		if i%10 == 0 {
			raw = "n/a"
		}
		raws[name] = raw
		if _, err := set.Add(NewAttributeType(name, kind, ""), raw); err != nil {
			t.Fatalf("Add(%s): %v", name, err)
		}
	}

	samples, err := set.Normalize(context.Background(), nil, 4)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(samples) != 50 {
		t.Fatalf("got %d samples, want 50", len(samples))
	}

	for i, s := range samples {
		if want := "m" + strconv.Itoa(i); s.Name != want {
			t.Fatalf("sample %d is %s, want %s: insertion order lost", i, s.Name, want)
		}
		if s.Raw != raws[s.Name] || !s.Persist || s.Resource != testResource() {
			t.Errorf("%s: raw %q persist %v resource %+v", s.Name, s.Raw, s.Persist, s.Resource)
		}

		want := strconv.Itoa(i) + ".7"
		switch {
		case i%10 == 0:
			want = SentinelUnknown
			if s.Outcome != OutcomeUnknown {
				t.Errorf("%s: outcome %v, want unknown", s.Name, s.Outcome)
			}
		case i%2 == 0:
			want = strconv.Itoa(i)
		}
		if got := s.Value.String(); got != want {
			t.Errorf("%s: value %q, want %q", s.Name, got, want)
		}
	}
}

func TestResourceSet_NormalizeCancelled(t *testing.T) {
	set := NewResourceSet(testResource())
	if _, err := set.Add(NewAttributeType("a", "gauge", ""), "1"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := set.Normalize(ctx, nil, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Normalize error = %v, want context.Canceled", err)
	}
}

func TestResourceSet_AttributesIsCopy(t *testing.T) {
	set := NewResourceSet(testResource())
	if _, err := set.Add(NewAttributeType("a", "gauge", ""), "1"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	attrs := set.Attributes()
	attrs[0] = nil
	if set.Attributes()[0] == nil {
		t.Error("Attributes() exposes the set's backing slice")
	}
}
