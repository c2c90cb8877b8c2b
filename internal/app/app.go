package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spofree/spofree/internal/player"
	"github.com/spofree/spofree/internal/provider"
	"github.com/spofree/spofree/internal/queue"
	"github.com/spofree/spofree/internal/ui"
)

// Searcher runs a best-effort search over every category.
type Searcher interface {
	SearchAll(ctx context.Context, query string) provider.SearchResults
}

// Engine is the playback surface the model drives.
type Engine interface {
	PlayTrack(ctx context.Context, track provider.Track, tracks []provider.Track)
	Next(ctx context.Context)
	Prev(ctx context.Context)
	TogglePause(ctx context.Context)
	ToggleShuffle() bool
	ToggleRepeat() queue.RepeatMode
	TrackEnded(ctx context.Context)
	State() queue.State
}

// Controls are direct player adjustments that bypass the engine.
type Controls interface {
	Seek(deltaSeconds float64) error
	SetVolume(vol float64) error
	SetMute(mute bool) error
}

// Library is the slice of the library store the model touches.
type Library interface {
	AddToHistory(ctx context.Context, query string) error
	ToggleLikeSong(ctx context.Context, track provider.Track) (bool, error)
	IsLiked(ctx context.Context, id string) bool
}

type Options struct {
	Catalog Searcher
	Engine  Engine
	Library Library
	// Controls is optional; without it seek and volume keys do nothing.
	Controls Controls
	// Instance reports the backend currently in use. Optional.
	Instance func() string
	Theme    ui.Theme
	// States carries engine snapshots published from its change callback.
	States <-chan queue.State
	// PlayerEvents carries mpv events. Optional.
	PlayerEvents  <-chan player.Event
	SearchTimeout time.Duration
	// Volume is the starting volume, 0-100.
	Volume int
	Logger *slog.Logger
}

const (
	seekStep   = 5
	volumeStep = 5
)

type focus int

const (
	focusInput focus = iota
	focusResults
)

type Model struct {
	opts Options

	focus     focus
	input     string
	query     string
	results   []provider.Track
	selection int
	searching bool

	state    queue.State
	liked    bool
	timePos  float64
	duration float64
	volume   float64
	muted    bool

	status   string
	errorMsg string
	width    int
	height   int
}

func New(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SearchTimeout <= 0 {
		opts.SearchTimeout = 10 * time.Second
	}
	m := Model{opts: opts, status: "Type to search, enter to submit", volume: float64(opts.Volume)}
	if opts.Engine != nil {
		m.state = opts.Engine.State()
	}
	return m
}

type searchMsg struct {
	query string
	res   provider.SearchResults
}

type stateMsg queue.State

type playerMsg player.Event

type likedMsg struct {
	title string
	liked bool
	err   error
}

type clearErrorMsg struct{}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.watchStateCmd(), m.watchPlayerCmd())
}

func (m Model) watchStateCmd() tea.Cmd {
	if m.opts.States == nil {
		return nil
	}
	return func() tea.Msg {
		st, ok := <-m.opts.States
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func (m Model) watchPlayerCmd() tea.Cmd {
	if m.opts.PlayerEvents == nil {
		return nil
	}
	return func() tea.Msg {
		evt, ok := <-m.opts.PlayerEvents
		if !ok {
			return nil
		}
		return playerMsg(evt)
	}
}

func (m Model) searchCmd(q string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.SearchTimeout)
		defer cancel()
		if m.opts.Library != nil {
			if err := m.opts.Library.AddToHistory(ctx, q); err != nil {
				m.opts.Logger.Warn("record search history", slog.Any("err", err))
			}
		}
		return searchMsg{query: q, res: m.opts.Catalog.SearchAll(ctx, q)}
	}
}

// engineCmd runs fn off the update loop; the engine reports back through
// States.
func (m Model) engineCmd(fn func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		fn(context.Background())
		return nil
	}
}

func (m Model) likeCmd(track provider.Track) tea.Cmd {
	return func() tea.Msg {
		liked, err := m.opts.Library.ToggleLikeSong(context.Background(), track)
		return likedMsg{title: track.Title, liked: liked, err: err}
	}
}

func (m Model) clearErrorCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

func (m Model) setError(err error) (Model, tea.Cmd) {
	m.errorMsg = err.Error()
	return m, m.clearErrorCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case searchMsg:
		if msg.query != m.query {
			return m, nil
		}
		m.searching = false
		m.results = msg.res.Tracks
		m.selection = 0
		if len(m.results) > 0 {
			m.focus = focusResults
		}
		m.status = fmt.Sprintf("Found %d tracks, %d albums, %d artists, %d playlists",
			len(msg.res.Tracks), len(msg.res.Albums), len(msg.res.Artists), len(msg.res.Playlists))
		return m, nil
	case stateMsg:
		prev := m.state.Current
		m.state = queue.State(msg)
		if m.state.Current != nil && (prev == nil || prev.ID != m.state.Current.ID) {
			m.timePos, m.duration = 0, 0
			if m.opts.Library != nil {
				m.liked = m.opts.Library.IsLiked(context.Background(), m.state.Current.ID)
			}
		}
		return m, m.watchStateCmd()
	case playerMsg:
		if msg.TimePos != nil {
			m.timePos = *msg.TimePos
		}
		if msg.Duration != nil {
			m.duration = *msg.Duration
		}
		if msg.Volume != nil {
			m.volume = *msg.Volume
		}
		if msg.Muted != nil {
			m.muted = *msg.Muted
		}
		if msg.Err != nil {
			m.opts.Logger.Warn("player event", slog.Any("err", msg.Err))
		}
		if msg.Ended {
			return m, tea.Batch(m.engineCmd(m.opts.Engine.TrackEnded), m.watchPlayerCmd())
		}
		return m, m.watchPlayerCmd()
	case likedMsg:
		if msg.err != nil {
			return m.setError(msg.err)
		}
		m.liked = msg.liked
		if msg.liked {
			m.status = "Liked " + msg.title
		} else {
			m.status = "Removed " + msg.title + " from liked songs"
		}
		return m, nil
	case clearErrorMsg:
		m.errorMsg = ""
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if m.focus == focusInput {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/", "esc":
		m.focus = focusInput
		return m, nil
	case "j", "down":
		if m.selection < len(m.results)-1 {
			m.selection++
		}
	case "k", "up":
		if m.selection > 0 {
			m.selection--
		}
	case "enter":
		if len(m.results) == 0 {
			return m, nil
		}
		track := m.results[clamp(m.selection, 0, len(m.results)-1)]
		tracks := append([]provider.Track(nil), m.results...)
		m.status = "Loading " + track.Title
		return m, m.engineCmd(func(ctx context.Context) {
			m.opts.Engine.PlayTrack(ctx, track, tracks)
		})
	case "n":
		return m, m.engineCmd(m.opts.Engine.Next)
	case "p":
		return m, m.engineCmd(m.opts.Engine.Prev)
	case " ":
		return m, m.engineCmd(m.opts.Engine.TogglePause)
	case "s":
		if m.opts.Engine.ToggleShuffle() {
			m.status = "Shuffle on"
		} else {
			m.status = "Shuffle off"
		}
	case "r":
		m.status = "Repeat " + m.opts.Engine.ToggleRepeat().String()
	case "l":
		if m.state.Current != nil && m.opts.Library != nil {
			return m, m.likeCmd(*m.state.Current)
		}
	case "left", "right", "-", "+", "m":
		return m.handleControlKey(msg.String())
	}
	return m, nil
}

func (m Model) handleControlKey(k string) (tea.Model, tea.Cmd) {
	c := m.opts.Controls
	if c == nil {
		return m, nil
	}
	var err error
	switch k {
	case "left":
		err = c.Seek(-seekStep)
	case "right":
		err = c.Seek(seekStep)
	case "-":
		m.volume = max(m.volume-volumeStep, 0)
		err = c.SetVolume(m.volume)
	case "+":
		m.volume = min(m.volume+volumeStep, 100)
		err = c.SetVolume(m.volume)
	case "m":
		m.muted = !m.muted
		err = c.SetMute(m.muted)
	}
	if err != nil {
		return m.setError(err)
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		q := strings.TrimSpace(m.input)
		if q == "" {
			return m, nil
		}
		m.query = q
		m.searching = true
		m.status = "Searching " + q + "…"
		return m, m.searchCmd(q)
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeyEsc, tea.KeyTab:
		if len(m.results) > 0 {
			m.focus = focusResults
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	}
	return m, nil
}

func (m Model) View() string {
	top := m.opts.Theme.Title.Render("Spofree") + " " + m.opts.Theme.Dim.Render(m.instanceLabel())

	prompt := "Search: "
	input := m.input
	if m.focus == focusInput {
		input += "▏"
		prompt = m.opts.Theme.Accent.Render(prompt)
	} else {
		prompt = m.opts.Theme.Dim.Render(prompt)
	}

	status := m.opts.Theme.Dim.Render(m.status)
	if m.errorMsg != "" {
		status = m.opts.Theme.Error.Render(m.errorMsg)
	}
	parts := []string{top, prompt + input, "", m.renderResults(), status}
	if m.state.Advisory != "" {
		parts = append(parts, m.opts.Theme.Warning.Render(m.state.Advisory))
	}
	parts = append(parts, m.renderPlayerBar())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) instanceLabel() string {
	if m.opts.Instance == nil {
		return ""
	}
	return "via " + m.opts.Instance()
}

func (m Model) renderResults() string {
	if m.searching {
		return m.opts.Theme.Dim.Render("Searching…")
	}
	if len(m.results) == 0 {
		if m.query != "" {
			return m.opts.Theme.Dim.Render("No tracks for " + m.query)
		}
		return ""
	}
	limit := len(m.results)
	if m.height > 10 && limit > m.height-10 {
		limit = m.height - 10
	}
	start := 0
	if m.selection >= limit {
		start = m.selection - limit + 1
	}
	var b strings.Builder
	for i := start; i < start+limit && i < len(m.results); i++ {
		t := m.results[i]
		line := fmt.Sprintf("%s — %s (%s)", t.Artist.Name, t.Title, formatDuration(t.Duration))
		switch {
		case i == m.selection && m.focus == focusResults:
			b.WriteString(m.opts.Theme.Highlight.Render("⏵ "+line) + "\n")
		case m.state.Current != nil && m.state.Current.ID == t.ID:
			b.WriteString(m.opts.Theme.Accent.Render("  "+line) + "\n")
		default:
			b.WriteString(m.opts.Theme.Text.Render("  "+line) + "\n")
		}
	}
	return b.String()
}

func (m Model) renderPlayerBar() string {
	cur := m.state.Current
	if cur == nil {
		return m.opts.Theme.Dim.Render("(stopped)")
	}
	state := "⏸"
	if m.state.Playing {
		state = "⏵"
	}
	like := ""
	if m.liked {
		like = " ♥"
	}
	progress := ""
	if m.duration > 0 {
		progress = fmt.Sprintf(" %s/%s", formatDuration(int(m.timePos)), formatDuration(int(m.duration)))
	}
	modes := ""
	if m.state.Shuffling {
		modes += " [shuffle]"
	}
	if m.state.Repeat != queue.RepeatOff {
		modes += " [repeat " + m.state.Repeat.String() + "]"
	}
	vol := fmt.Sprintf(" vol %.0f%%", m.volume)
	if m.muted {
		vol = " muted"
	}
	pos := ""
	if idx := m.state.Index(); idx >= 0 {
		pos = fmt.Sprintf(" %d/%d", idx+1, len(m.state.Queue))
	}
	name := m.opts.Theme.Accent.Render(cur.Title) + " — " + cur.Artist.Name
	return fmt.Sprintf("%s %s%s%s%s%s%s", state, name, like, progress, pos, modes, vol)
}

func formatDuration(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func clamp(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
