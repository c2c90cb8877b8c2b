// Package queue owns the play queue: shuffle and repeat state, the current
// track, and the hand-off between stream resolution and the player.
package queue

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/spofree/spofree/internal/localfiles"
	"github.com/spofree/spofree/internal/provider"
)

// Resolver turns a track id into a playable URL.
type Resolver interface {
	Resolve(ctx context.Context, trackID string) (string, error)
}

// Library records plays.
type Library interface {
	AddToRecentlyPlayed(ctx context.Context, item provider.RecentlyPlayedItem) error
}

// Player is the audio element the engine drives. Restart seeks the loaded
// track back to the start. After an end of file nothing is loaded, so the
// engine calls Load again instead.
type Player interface {
	Load(url string) error
	Restart() error
	SetPaused(paused bool) error
}

type Options struct {
	Resolver Resolver
	Library  Library
	Player   Player
	Logger   *slog.Logger
	Rand     *rand.Rand
	Now      func() time.Time
	// OnChange is called with a snapshot after every state change.
	OnChange func(State)
}

type Engine struct {
	opts Options

	mu       sync.Mutex
	state    State
	rng      *rand.Rand
	onChange func(State)
	// loaded is true while the player holds the current stream.
	loaded bool

	// pending tracks in-flight resolutions.
	pending sync.WaitGroup
}

func NewEngine(opts Options) *Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{opts: opts, rng: opts.Rand, onChange: opts.OnChange}
}

// OnChange replaces the change callback.
func (e *Engine) OnChange(fn func(State)) {
	e.mu.Lock()
	e.onChange = fn
	e.mu.Unlock()
}

// State returns a deep copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Wait blocks until every in-flight resolution has settled.
func (e *Engine) Wait() {
	e.pending.Wait()
}

func (e *Engine) notify() {
	e.mu.Lock()
	fn := e.onChange
	snap := e.state.clone()
	e.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// PlayTrack starts track with tracks as the new queue. Playing the track
// that is already current only toggles pause.
func (e *Engine) PlayTrack(ctx context.Context, track provider.Track, tracks []provider.Track) {
	e.mu.Lock()
	if e.state.Current != nil && e.state.Current.ID == track.ID {
		e.state.Playing = !e.state.Playing
		paused := !e.state.Playing
		e.mu.Unlock()
		if e.opts.Player != nil {
			if err := e.opts.Player.SetPaused(paused); err != nil {
				e.opts.Logger.Warn("set paused", slog.Any("err", err))
			}
		}
		e.notify()
		return
	}
	e.state.OriginalQueue = cloneTracks(tracks)
	if e.state.Shuffling {
		e.state.Queue = Shuffle(tracks, &track, e.rng)
	} else {
		e.state.Queue = cloneTracks(tracks)
	}
	e.mu.Unlock()
	e.start(ctx, track)
}

// TogglePause flips playback of the current track. A current track that is
// not loaded in the player, as after Restore or a finished queue, is started
// from the beginning instead.
func (e *Engine) TogglePause(ctx context.Context) {
	e.mu.Lock()
	if e.state.Current == nil {
		e.mu.Unlock()
		return
	}
	cur := *e.state.Current
	loaded := e.loaded
	e.mu.Unlock()
	if !loaded {
		e.restart(ctx)
		return
	}
	e.PlayTrack(ctx, cur, nil)
}

// start makes track current and resolves it. The queues are left as they are.
func (e *Engine) start(ctx context.Context, track provider.Track) {
	cur := track
	local := localfiles.IsLocal(track) && track.StreamURL != ""
	if !local {
		cur.StreamURL = ""
	}

	e.mu.Lock()
	e.state.Current = &cur
	e.state.Playing = false
	e.state.Advisory = ""
	e.loaded = false
	e.mu.Unlock()
	e.notify()

	if e.opts.Library != nil {
		if err := e.opts.Library.AddToRecentlyPlayed(ctx, provider.RecentTrack(track, e.opts.Now())); err != nil {
			e.opts.Logger.Warn("record recently played", slog.String("track_id", track.ID), slog.Any("err", err))
		}
	}

	if local {
		e.settle(track.ID, track.StreamURL, nil)
		return
	}

	// A newer PlayTrack does not cancel this resolution.
	rctx := context.WithoutCancel(ctx)
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		url, err := e.opts.Resolver.Resolve(rctx, track.ID)
		e.settle(track.ID, url, err)
	}()
}

// settle applies a finished resolution. Results for a track that is no longer
// current are dropped.
func (e *Engine) settle(trackID, url string, err error) {
	e.mu.Lock()
	if e.state.Current == nil || e.state.Current.ID != trackID {
		e.mu.Unlock()
		e.opts.Logger.Debug("dropping stale resolution", slog.String("track_id", trackID))
		return
	}
	if err != nil {
		e.state.Playing = false
		e.state.Advisory = AdvisoryUnresolved
		e.mu.Unlock()
		e.opts.Logger.Warn("stream unresolved", slog.String("track_id", trackID), slog.Any("err", err))
		e.notify()
		return
	}
	e.state.Current.StreamURL = url
	e.state.Playing = true
	e.state.Advisory = ""
	e.mu.Unlock()

	e.load(trackID, url)
	e.notify()
}

// load hands url to the player and records that it is loaded.
func (e *Engine) load(trackID, url string) {
	if e.opts.Player != nil {
		if err := e.opts.Player.Load(url); err != nil {
			e.opts.Logger.Error("load stream", slog.String("track_id", trackID), slog.Any("err", err))
			return
		}
	}
	e.mu.Lock()
	if e.state.Current != nil && e.state.Current.ID == trackID {
		e.loaded = true
	}
	e.mu.Unlock()
}

// ToggleShuffle switches shuffle. Turning it on keeps the current order in
// OriginalQueue and pins the current track first; turning it off restores
// that order exactly.
func (e *Engine) ToggleShuffle() bool {
	e.mu.Lock()
	if !e.state.Shuffling {
		e.state.OriginalQueue = cloneTracks(e.state.Queue)
		e.state.Queue = Shuffle(e.state.OriginalQueue, e.state.Current, e.rng)
		e.state.Shuffling = true
	} else {
		e.state.Queue = cloneTracks(e.state.OriginalQueue)
		e.state.Shuffling = false
	}
	on := e.state.Shuffling
	e.mu.Unlock()
	e.notify()
	return on
}

// ToggleRepeat cycles off, all, one and returns the new mode.
func (e *Engine) ToggleRepeat() RepeatMode {
	e.mu.Lock()
	e.state.Repeat = e.state.Repeat.next()
	mode := e.state.Repeat
	e.mu.Unlock()
	e.notify()
	return mode
}

// Next advances through the queue. Repeat one restarts the current track,
// repeat all wraps from the last track to the first, and with repeat off
// the last track is the end.
func (e *Engine) Next(ctx context.Context) {
	e.mu.Lock()
	if e.state.Current == nil || len(e.state.Queue) == 0 {
		e.mu.Unlock()
		return
	}
	if e.state.Repeat == RepeatOne {
		e.mu.Unlock()
		e.restart(ctx)
		return
	}
	idx := e.state.Index()
	var target provider.Track
	switch {
	case idx < len(e.state.Queue)-1:
		target = e.state.Queue[idx+1]
	case e.state.Repeat == RepeatAll:
		target = e.state.Queue[0]
	default:
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	e.start(ctx, target)
}

// Prev steps back. On the first track it restarts instead of wrapping.
func (e *Engine) Prev(ctx context.Context) {
	e.mu.Lock()
	if e.state.Current == nil || len(e.state.Queue) == 0 {
		e.mu.Unlock()
		return
	}
	idx := e.state.Index()
	if idx > 0 {
		target := e.state.Queue[idx-1]
		e.mu.Unlock()
		e.start(ctx, target)
		return
	}
	first := e.state.Queue[0]
	e.mu.Unlock()
	if idx == 0 {
		e.restart(ctx)
		return
	}
	e.start(ctx, first)
}

// restart plays the current track from zero. A loaded track is seeked; a
// resolved track the player has dropped is loaded again; a track whose
// stream never resolved is started again.
func (e *Engine) restart(ctx context.Context) {
	e.mu.Lock()
	if e.state.Current == nil {
		e.mu.Unlock()
		return
	}
	cur := *e.state.Current
	if cur.StreamURL == "" {
		e.mu.Unlock()
		e.start(ctx, cur)
		return
	}
	e.state.Playing = true
	loaded := e.loaded
	e.mu.Unlock()

	switch {
	case !loaded:
		e.load(cur.ID, cur.StreamURL)
	case e.opts.Player != nil:
		if err := e.opts.Player.Restart(); err != nil {
			e.opts.Logger.Warn("restart track", slog.Any("err", err))
		}
	}
	e.notify()
}

// TrackEnded handles the player reporting a natural end of file. The player
// has unloaded the stream by then. At the end of the queue with repeat off
// playback simply stops.
func (e *Engine) TrackEnded(ctx context.Context) {
	e.mu.Lock()
	e.state.Playing = false
	e.loaded = false
	e.mu.Unlock()
	e.Next(ctx)
	e.notify()
}

// Restore replaces the state with a persisted snapshot. Nothing is resolved
// until the user plays.
func (e *Engine) Restore(r LoadResult) {
	e.mu.Lock()
	e.state = State{
		Queue:         cloneTracks(r.Queue),
		OriginalQueue: cloneTracks(r.OriginalQueue),
		Shuffling:     r.Shuffled,
		Repeat:        r.Repeat,
	}
	if !r.Shuffled {
		e.state.OriginalQueue = cloneTracks(r.Queue)
	}
	if i := indexOf(r.Queue, r.CurrentID); i >= 0 {
		cur := r.Queue[i]
		if !localfiles.IsLocal(cur) {
			cur.StreamURL = ""
		}
		e.state.Current = &cur
	}
	e.loaded = false
	e.mu.Unlock()
	e.notify()
}
