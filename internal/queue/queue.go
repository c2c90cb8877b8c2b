package queue

import (
	"math/rand"

	"github.com/spofree/spofree/internal/provider"
)

type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatAll
	RepeatOne
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatAll:
		return "all"
	case RepeatOne:
		return "one"
	default:
		return "off"
	}
}

// next cycles off -> all -> one -> off.
func (m RepeatMode) next() RepeatMode {
	return (m + 1) % 3
}

// AdvisoryUnresolved is shown when no quality tier yields a stream.
const AdvisoryUnresolved = "Could not resolve stream. Trying another server..."

// State is a snapshot of the engine. When Shuffling is false, Queue and
// OriginalQueue hold the same tracks in the same order.
type State struct {
	Queue         []provider.Track
	OriginalQueue []provider.Track
	Shuffling     bool
	Repeat        RepeatMode
	Current       *provider.Track
	Playing       bool
	Advisory      string
}

func (s State) clone() State {
	out := s
	out.Queue = cloneTracks(s.Queue)
	out.OriginalQueue = cloneTracks(s.OriginalQueue)
	if s.Current != nil {
		cur := *s.Current
		out.Current = &cur
	}
	return out
}

// Index returns the position of the current track in Queue, or -1.
func (s State) Index() int {
	if s.Current == nil {
		return -1
	}
	return indexOf(s.Queue, s.Current.ID)
}

func cloneTracks(in []provider.Track) []provider.Track {
	if in == nil {
		return nil
	}
	out := make([]provider.Track, len(in))
	copy(out, in)
	return out
}

func indexOf(tracks []provider.Track, id string) int {
	for i, t := range tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Shuffle returns a random permutation of tracks. When pinned is set it is
// removed from the permutation and placed first, even if tracks lacks it.
func Shuffle(tracks []provider.Track, pinned *provider.Track, rng *rand.Rand) []provider.Track {
	list := make([]provider.Track, 0, len(tracks)+1)
	head := pinned
	for i, t := range tracks {
		if pinned != nil && t.ID == pinned.ID {
			head = &tracks[i]
			continue
		}
		list = append(list, t)
	}
	rng.Shuffle(len(list), func(i, j int) { list[i], list[j] = list[j], list[i] })
	if head != nil {
		list = append([]provider.Track{*head}, list...)
	}
	return list
}
