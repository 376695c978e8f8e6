package unknown

import (
	"math/rand"
	"testing"
)

func TestTracker_FirstSeenOrder(t *testing.T) {
	tr := NewTracker("")
	got := []string{tr.Label("SPEAKER_07"), tr.Label("A"), tr.Label("SPEAKER_07"), tr.Label("B")}
	want := []string{"Unknown Speaker 1", "Unknown Speaker 2", "Unknown Speaker 1", "Unknown Speaker 3"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("label %d = %q, want %q", i, got[i], want[i])
		}
	}
	if tr.Len() != 3 {
		t.Errorf("Len = %d, want 3", tr.Len())
	}
	m := tr.Mapping()
	if m[0].Cluster != "SPEAKER_07" || m[2].Label != "Unknown Speaker 3" {
		t.Errorf("Mapping = %+v", m)
	}
	if l := tr.Labels(); len(l) != 3 || l[1] != "Unknown Speaker 2" {
		t.Errorf("Labels = %v", l)
	}
}

func TestTracker_StableAcrossPositions(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	clusters := []string{"A", "B", "C", "D"}
	tr := NewTracker("Speaker")
	first := map[string]string{}
	for i := 0; i < 200; i++ {
		c := clusters[rng.Intn(len(clusters))]
		l := tr.Label(c)
		if prev, ok := first[c]; ok && prev != l {
			t.Fatalf("cluster %s renamed from %q to %q", c, prev, l)
		}
		first[c] = l
	}
	seen := map[string]bool{}
	for _, l := range first {
		if seen[l] {
			t.Fatalf("placeholder %q reused", l)
		}
		seen[l] = true
	}
}

func TestTracker_Lookup(t *testing.T) {
	tr := NewTracker("  Guest ")
	if _, ok := tr.Lookup("A"); ok {
		t.Error("unseen cluster should not be found")
	}
	tr.Label("A")
	if l, ok := tr.Lookup("A"); !ok || l != "Guest 1" {
		t.Errorf("Lookup = %q, %v", l, ok)
	}
	if tr.Prefix() != "Guest" {
		t.Errorf("Prefix = %q", tr.Prefix())
	}
}
