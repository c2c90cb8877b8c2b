package queue

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/spofree/spofree/internal/provider"
)

func sampleTracks(n int) []provider.Track {
	var out []provider.Track
	for i := 0; i < n; i++ {
		out = append(out, provider.Track{ID: fmt.Sprintf("t%d", i), Title: fmt.Sprintf("Track %d", i)})
	}
	return out
}

func ids(tracks []provider.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func sameOrder(a, b []provider.Track) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			return false
		}
	}
	return true
}

func TestShufflePermutationPinned(t *testing.T) {
	tracks := sampleTracks(8)
	for seed := int64(0); seed < 50; seed++ {
		rng := rand.New(rand.NewSource(seed))
		pinned := tracks[seed%8]
		got := Shuffle(tracks, &pinned, rng)
		if len(got) != len(tracks) {
			t.Fatalf("seed %d: len %d", seed, len(got))
		}
		if got[0].ID != pinned.ID {
			t.Fatalf("seed %d: expected %s first, got %s", seed, pinned.ID, got[0].ID)
		}
		gotIDs, wantIDs := ids(got), ids(tracks)
		sort.Strings(gotIDs)
		sort.Strings(wantIDs)
		for i := range gotIDs {
			if gotIDs[i] != wantIDs[i] {
				t.Fatalf("seed %d: not a permutation: %v", seed, ids(got))
			}
		}
	}
}

func TestShuffleDoesNotMutateInput(t *testing.T) {
	tracks := sampleTracks(6)
	before := ids(tracks)
	_ = Shuffle(tracks, nil, rand.New(rand.NewSource(1)))
	for i, id := range ids(tracks) {
		if id != before[i] {
			t.Fatalf("input reordered: %v", ids(tracks))
		}
	}
}

func TestShufflePinnedOutsideList(t *testing.T) {
	extra := provider.Track{ID: "x"}
	got := Shuffle(sampleTracks(3), &extra, rand.New(rand.NewSource(2)))
	if len(got) != 4 || got[0].ID != "x" {
		t.Fatalf("expected pinned track prepended, got %v", ids(got))
	}
}

func TestRepeatModeCycle(t *testing.T) {
	m := RepeatOff
	var seen []RepeatMode
	for i := 0; i < 3; i++ {
		m = m.next()
		seen = append(seen, m)
	}
	if seen[0] != RepeatAll || seen[1] != RepeatOne || seen[2] != RepeatOff {
		t.Fatalf("unexpected cycle %v", seen)
	}
	if RepeatOne.String() != "one" {
		t.Errorf("String() = %s", RepeatOne.String())
	}
}

func TestStateCloneIsDeep(t *testing.T) {
	cur := provider.Track{ID: "a"}
	s := State{Queue: sampleTracks(2), Current: &cur}
	c := s.clone()
	c.Queue[0].ID = "changed"
	c.Current.ID = "changed"
	if s.Queue[0].ID != "t0" || s.Current.ID != "a" {
		t.Fatal("clone shares memory with original")
	}
}
