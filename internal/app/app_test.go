package app

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spofree/spofree/internal/player"
	"github.com/spofree/spofree/internal/provider"
	"github.com/spofree/spofree/internal/queue"
	"github.com/spofree/spofree/internal/ui"
)

type mockCatalog struct {
	res     provider.SearchResults
	queries []string
}

func (c *mockCatalog) SearchAll(_ context.Context, q string) provider.SearchResults {
	c.queries = append(c.queries, q)
	return c.res
}

type mockEngine struct {
	mu      sync.Mutex
	calls   []string
	played  provider.Track
	context []provider.Track
	shuffle bool
	repeat  queue.RepeatMode
}

func (e *mockEngine) record(call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
}

func (e *mockEngine) PlayTrack(_ context.Context, track provider.Track, tracks []provider.Track) {
	e.record("play")
	e.played, e.context = track, tracks
}
func (e *mockEngine) Next(context.Context)        { e.record("next") }
func (e *mockEngine) Prev(context.Context)        { e.record("prev") }
func (e *mockEngine) TogglePause(context.Context) { e.record("pause") }
func (e *mockEngine) TrackEnded(context.Context)  { e.record("ended") }
func (e *mockEngine) State() queue.State          { return queue.State{} }
func (e *mockEngine) ToggleShuffle() bool {
	e.shuffle = !e.shuffle
	return e.shuffle
}
func (e *mockEngine) ToggleRepeat() queue.RepeatMode {
	e.repeat = (e.repeat + 1) % 3
	return e.repeat
}

type mockLibrary struct {
	history []string
	liked   map[string]bool
}

func (l *mockLibrary) AddToHistory(_ context.Context, q string) error {
	l.history = append(l.history, q)
	return nil
}

func (l *mockLibrary) ToggleLikeSong(_ context.Context, t provider.Track) (bool, error) {
	l.liked[t.ID] = !l.liked[t.ID]
	return l.liked[t.ID], nil
}

func (l *mockLibrary) IsLiked(_ context.Context, id string) bool { return l.liked[id] }

func sampleTracks() []provider.Track {
	return []provider.Track{
		{ID: "1", Title: "One More Time", Artist: provider.ArtistRef{Name: "Daft Punk"}, Duration: 320},
		{ID: "2", Title: "Aerodynamic", Artist: provider.ArtistRef{Name: "Daft Punk"}, Duration: 212},
	}
}

type fixture struct {
	model   Model
	catalog *mockCatalog
	engine  *mockEngine
	library *mockLibrary
}

func newFixture() *fixture {
	f := &fixture{
		catalog: &mockCatalog{res: provider.SearchResults{Tracks: sampleTracks(), Albums: []provider.Album{{ID: "9"}}}},
		engine:  &mockEngine{},
		library: &mockLibrary{liked: map[string]bool{}},
	}
	f.model = New(Options{
		Catalog:  f.catalog,
		Engine:   f.engine,
		Library:  f.library,
		Instance: func() string { return "https://api.one.example" },
		Theme:    ui.NoColor(),
	})
	return f
}

func updateModel(m Model, msg tea.Msg) (Model, tea.Cmd) {
	nm, cmd := m.Update(msg)
	return nm.(Model), cmd
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		if r == ' ' {
			m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
			continue
		}
		m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// search types q, submits it and feeds the search result back into the model.
func (f *fixture) search(t *testing.T, q string) {
	t.Helper()
	m := typeText(f.model, q)
	m, cmd := updateModel(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected a search command")
	}
	f.model, _ = updateModel(m, cmd())
}

func TestSearchSubmitRecordsHistory(t *testing.T) {
	f := newFixture()
	f.search(t, "daft punk")

	if len(f.catalog.queries) != 1 || f.catalog.queries[0] != "daft punk" {
		t.Errorf("unexpected queries %v", f.catalog.queries)
	}
	if len(f.library.history) != 1 || f.library.history[0] != "daft punk" {
		t.Errorf("expected history recorded, got %v", f.library.history)
	}
	if len(f.model.results) != 2 || f.model.focus != focusResults {
		t.Errorf("expected results focused, got %d results focus=%d", len(f.model.results), f.model.focus)
	}
	if !strings.Contains(f.model.status, "2 tracks, 1 albums") {
		t.Errorf("unexpected status %q", f.model.status)
	}
}

func TestBlankSearchIsIgnored(t *testing.T) {
	f := newFixture()
	m := typeText(f.model, "   ")
	_, cmd := updateModel(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("blank query must not search")
	}
}

func TestStaleSearchResultDropped(t *testing.T) {
	f := newFixture()
	m := typeText(f.model, "new")
	m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = updateModel(m, searchMsg{query: "old", res: provider.SearchResults{Tracks: sampleTracks()}})
	if len(m.results) != 0 || !m.searching {
		t.Errorf("stale result applied: %+v", m.results)
	}
}

func TestBackspaceEditsInput(t *testing.T) {
	f := newFixture()
	m := typeText(f.model, "abc")
	m, _ = updateModel(m, tea.KeyMsg{Type: tea.KeyBackspace})
	if m.input != "ab" {
		t.Errorf("input = %q", m.input)
	}
}

func TestEnterPlaysWithResultsAsContext(t *testing.T) {
	f := newFixture()
	f.search(t, "daft")
	m, _ := updateModel(f.model, key('j'))
	m, cmd := updateModel(m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("expected play command")
	}
	cmd()
	if f.engine.played.ID != "2" || len(f.engine.context) != 2 {
		t.Errorf("unexpected play %s with %d tracks", f.engine.played.ID, len(f.engine.context))
	}
	if m.status != "Loading Aerodynamic" {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestPlaybackKeys(t *testing.T) {
	f := newFixture()
	f.search(t, "daft")
	m := f.model
	for _, r := range []rune{'n', 'p', ' '} {
		var cmd tea.Cmd
		m, cmd = updateModel(m, key(r))
		if cmd == nil {
			t.Fatalf("expected command for %q", r)
		}
		cmd()
	}
	want := []string{"next", "prev", "pause"}
	if strings.Join(f.engine.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", f.engine.calls, want)
	}

	m, _ = updateModel(m, key('s'))
	if m.status != "Shuffle on" {
		t.Errorf("unexpected status %q", m.status)
	}
	m, _ = updateModel(m, key('r'))
	if m.status != "Repeat all" {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestLikeCurrentTrack(t *testing.T) {
	f := newFixture()
	f.search(t, "daft")
	cur := sampleTracks()[0]
	m, _ := updateModel(f.model, stateMsg(queue.State{Current: &cur, Queue: sampleTracks()}))

	m, cmd := updateModel(m, key('l'))
	if cmd == nil {
		t.Fatal("expected like command")
	}
	m, _ = updateModel(m, cmd())
	if !m.liked || !f.library.liked["1"] || m.status != "Liked One More Time" {
		t.Errorf("expected liked, got liked=%v status=%q", m.liked, m.status)
	}
	if !strings.Contains(m.View(), "♥") {
		t.Error("expected heart in player bar")
	}
}

func TestViewShowsAdvisoryAndInstance(t *testing.T) {
	f := newFixture()
	cur := sampleTracks()[1]
	m, _ := updateModel(f.model, stateMsg(queue.State{
		Current:   &cur,
		Queue:     sampleTracks(),
		Advisory:  queue.AdvisoryUnresolved,
		Shuffling: true,
		Repeat:    queue.RepeatOne,
	}))
	view := m.View()
	for _, want := range []string{queue.AdvisoryUnresolved, "via https://api.one.example", "Aerodynamic", "2/2", "[shuffle]", "[repeat one]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTrackEndedAdvancesEngine(t *testing.T) {
	f := newFixture()
	events := make(chan player.Event, 1)
	f.model.opts.PlayerEvents = events
	m, cmd := updateModel(f.model, playerMsg(player.Event{Ended: true}))
	if cmd == nil {
		t.Fatal("expected commands after end of file")
	}
	// The batch runs the engine call and re-arms the event watch.
	events <- player.Event{}
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) != 2 {
		t.Fatalf("expected a batch of two commands, got %T", cmd())
	}
	for _, c := range batch {
		c()
	}
	if len(f.engine.calls) != 1 || f.engine.calls[0] != "ended" {
		t.Errorf("calls = %v", f.engine.calls)
	}
	_ = m
}

func TestQuitKeys(t *testing.T) {
	f := newFixture()
	_, cmd := updateModel(f.model, tea.KeyMsg{Type: tea.KeyCtrlC})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should quit")
	}

	// q only quits outside the search input.
	m, cmd := updateModel(f.model, key('q'))
	if cmd != nil || m.input != "q" {
		t.Error("q in the input should be typed")
	}
	f.search(t, "daft")
	_, cmd = updateModel(f.model, key('q'))
	if cmd == nil {
		t.Fatal("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit from results")
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[int]string{0: "0:00", 59: "0:59", 61: "1:01", 3600: "60:00", -3: "0:00"}
	for in, want := range tests {
		if got := formatDuration(in); got != want {
			t.Errorf("formatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

type mockControls struct {
	seeks   []float64
	volumes []float64
	muted   []bool
}

func (c *mockControls) Seek(d float64) error {
	c.seeks = append(c.seeks, d)
	return nil
}

func (c *mockControls) SetVolume(v float64) error {
	c.volumes = append(c.volumes, v)
	return nil
}

func (c *mockControls) SetMute(mute bool) error {
	c.muted = append(c.muted, mute)
	return nil
}

func TestControlKeys(t *testing.T) {
	f := newFixture()
	controls := &mockControls{}
	f.model.opts.Controls = controls
	f.model.volume = 98
	f.search(t, "daft")

	m := f.model
	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyLeft},
		{Type: tea.KeyRight},
		key('+'),
		key('-'),
		key('-'),
		key('m'),
	} {
		m, _ = updateModel(m, k)
	}
	if len(controls.seeks) != 2 || controls.seeks[0] != -5 || controls.seeks[1] != 5 {
		t.Errorf("seeks = %v", controls.seeks)
	}
	want := []float64{100, 95, 90}
	if len(controls.volumes) != 3 || controls.volumes[0] != want[0] || controls.volumes[2] != want[2] {
		t.Errorf("volumes = %v, want %v", controls.volumes, want)
	}
	if len(controls.muted) != 1 || !controls.muted[0] || !m.muted {
		t.Errorf("mute = %v", controls.muted)
	}

	vol := 40.0
	m, _ = updateModel(m, playerMsg(player.Event{Volume: &vol}))
	if m.volume != 40 {
		t.Errorf("player volume event not applied, got %v", m.volume)
	}
}
