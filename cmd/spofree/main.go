package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spofree/spofree/internal/app"
	"github.com/spofree/spofree/internal/catalog"
	"github.com/spofree/spofree/internal/config"
	"github.com/spofree/spofree/internal/failover"
	"github.com/spofree/spofree/internal/library"
	"github.com/spofree/spofree/internal/localfiles"
	"github.com/spofree/spofree/internal/logging"
	"github.com/spofree/spofree/internal/player"
	"github.com/spofree/spofree/internal/queue"
	"github.com/spofree/spofree/internal/stream"
	"github.com/spofree/spofree/internal/ui"
	"golang.org/x/time/rate"
)

var version = "0.1.0"

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Spofree - a terminal client for interchangeable music API instances

Usage: spofree [options]

Options:
  -config string
        Path to config file (default: ~/.config/spofree/config.toml)
  -version
        Print version and exit

Diagnostics:
  -doctor
        Check configuration, instance reachability and mpv

One-shot:
  -search string
        Search every category and print the results
  -resolve string
        Resolve a track id to a stream URL and print it
  -import string
        Import local audio files under a path into a new playlist
  -album string
        Print an album's tracks
  -artist string
        Print an artist's top tracks and albums
  -playlist string
        Print a playlist from the library or the API
  -save
        With -album, save or unsave it; with -artist, follow or unfollow
  -library
        Print liked songs, saved albums, followed artists, playlists and history

Examples:
  spofree                          # Start interactive TUI
  spofree -doctor                  # Check setup
  spofree -search "daft punk"      # Print search results
  spofree -resolve 1234567         # Print a playable URL
  spofree -import ~/Music/Albums   # Import local files
  spofree -album 77646 -save       # Show and save an album

`)
	}

	cfgPath := flag.String("config", "", "")
	doctor := flag.Bool("doctor", false, "")
	showVersion := flag.Bool("version", false, "")
	searchQ := flag.String("search", "", "")
	resolveID := flag.String("resolve", "", "")
	importPath := flag.String("import", "", "")
	albumID := flag.String("album", "", "")
	artistID := flag.String("artist", "", "")
	playlistID := flag.String("playlist", "", "")
	save := flag.Bool("save", false, "")
	showLibrary := flag.Bool("library", false, "")
	flag.Parse()

	if *showVersion {
		fmt.Println("spofree", version)
		return
	}

	cfg, resolvedPath, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		log.Fatalf("setup logging: %v", err)
	}
	defer logCloser.Close()
	logger.Info("starting spofree", slog.String("config", resolvedPath), slog.Int("instances", len(cfg.API.Instances)))

	client, err := buildClient(cfg, logger)
	if err != nil {
		log.Fatalf("api client: %v", err)
	}

	if *doctor {
		runDoctor(cfg, client, logger)
		return
	}

	backend, err := library.OpenSQLite(cfg.Library.Path)
	if err != nil {
		log.Fatalf("open library: %v", err)
	}
	defer backend.Close()
	store := library.Open(backend, library.Options{Logger: logger})

	cat := catalog.New(client, catalog.Options{
		SearchTimeout: cfg.API.SearchTimeout(),
		FeedTimeout:   cfg.API.RequestTimeout(),
		Logger:        logger,
	})
	resolver := stream.NewResolver(client, store, stream.Options{
		Timeout: cfg.API.StreamTimeout(),
		Logger:  logger,
	})

	switch {
	case *searchQ != "":
		if err := runSearch(cfg, cat, store, *searchQ); err != nil {
			log.Fatalf("search: %v", err)
		}
		return
	case *resolveID != "":
		if err := runResolve(cfg, resolver, *resolveID); err != nil {
			log.Fatalf("resolve: %v", err)
		}
		return
	case *importPath != "":
		if err := runImport(store, *importPath, logger); err != nil {
			log.Fatalf("import: %v", err)
		}
		return
	case *albumID != "" || *artistID != "" || *playlistID != "" || *showLibrary:
		ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.API.RequestTimeout())
		defer cancel()
		switch {
		case *albumID != "":
			err = runAlbum(ctx, os.Stdout, cat, store, *albumID, *save)
		case *artistID != "":
			err = runArtist(ctx, os.Stdout, cat, store, *artistID, *save)
		case *playlistID != "":
			err = runPlaylist(ctx, os.Stdout, cat, store, *playlistID)
		default:
			err = runLibrary(ctx, os.Stdout, store)
		}
		if err != nil {
			log.Fatalf("browse: %v", err)
		}
		return
	}

	if err := config.ValidatePlayer(*cfg); err != nil {
		log.Fatalf("player: %v", err)
	}
	ctrl := player.New(player.Options{
		MPVPath: cfg.Player.MPVPath,
		IPCPath: cfg.Player.IPC,
		Logger:  logger,
	})
	if err := ctrl.Start(context.Background()); err != nil {
		logger.Error("start player", slog.Any("err", err))
		log.Fatalf("start player: %v", err)
	}
	defer ctrl.Stop()
	if err := ctrl.SetVolume(float64(cfg.Player.InitialVolume)); err != nil {
		logger.Warn("set initial volume", slog.Any("err", err))
	}

	var queueStore *queue.PersistenceStore
	if cfg.Queue.PersistEnabled() {
		queueStore, err = queue.NewPersistenceStore(cfg.Queue.Path)
		if err != nil {
			logger.Warn("queue persistence unavailable", slog.Any("err", err))
		} else {
			defer queueStore.Close()
		}
	}

	engine := queue.NewEngine(queue.Options{
		Resolver: resolver,
		Library:  store,
		Player:   ctrl,
		Logger:   logger,
	})
	if queueStore != nil {
		ctx, cancel := cfg.DeadlineContext()
		restored, err := queueStore.Load(ctx)
		cancel()
		if err != nil {
			logger.Warn("restore queue", slog.Any("err", err))
		} else {
			engine.Restore(restored)
		}
	}
	states := make(chan queue.State, 1)
	engine.OnChange(stateSink(states, queueStore, logger))

	// NO_COLOR env var support
	noColor := os.Getenv("NO_COLOR") != "" || cfg.UI.NoColor
	accentCtx, cancel := cfg.DeadlineContext()
	theme := ui.GetTheme(cfg.UI.Theme, store.AccentColor(accentCtx), noColor)
	cancel()

	model := app.New(app.Options{
		Catalog:       cat,
		Engine:        engine,
		Library:       store,
		Controls:      ctrl,
		Volume:        cfg.Player.InitialVolume,
		Instance:      client.Current,
		Theme:         theme,
		States:        states,
		PlayerEvents:  ctrl.Events(),
		SearchTimeout: cfg.API.SearchTimeout(),
		Logger:        logger,
	})
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		logger.Error("run tui", slog.Any("err", err))
		log.Fatalf("tui: %v", err)
	}
	engine.Wait()
}

func buildClient(cfg *config.Config, logger *slog.Logger) (*failover.Client, error) {
	opts := failover.Options{
		Instances: cfg.API.Instances,
		Logger:    logger,
	}
	if rps := cfg.API.RequestsPerSecond; rps > 0 {
		opts.Limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return failover.New(opts)
}

// stateSink publishes engine snapshots to the TUI, keeping only the latest,
// and persists each one when a queue store is configured.
func stateSink(states chan queue.State, store *queue.PersistenceStore, logger *slog.Logger) func(queue.State) {
	var mu sync.Mutex
	return func(st queue.State) {
		mu.Lock()
		defer mu.Unlock()
		select {
		case <-states:
		default:
		}
		states <- st
		if store == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.Save(ctx, st); err != nil {
			logger.Warn("persist queue", slog.Any("err", err))
		}
	}
}

func runDoctor(cfg *config.Config, client *failover.Client, logger *slog.Logger) {
	fmt.Println("Spofree doctor")
	fmt.Println("Config file: OK")

	mpvPath, err := exec.LookPath(cfg.Player.MPVPath)
	if err != nil {
		fmt.Printf("mpv (%s): NOT FOUND\n", cfg.Player.MPVPath)
	} else {
		fmt.Printf("mpv: OK (%s)\n", mpvPath)
	}

	ctx, cancel := cfg.DeadlineContext()
	defer cancel()
	healthy := 0
	for _, r := range client.Probe(ctx, "/", cfg.API.RequestTimeout()) {
		latency := r.Latency.Round(time.Millisecond)
		if r.Err != nil {
			fmt.Printf("Instance %s: ERROR - %v (%s)\n", r.Instance, r.Err, latency)
			continue
		}
		healthy++
		fmt.Printf("Instance %s: OK (%d, %s)\n", r.Instance, r.Status, latency)
	}
	fmt.Printf("Reachable instances: %d/%d\n", healthy, len(cfg.API.Instances))

	libPath := cfg.Library.Path
	if libPath == "" {
		libPath, _ = library.DefaultPath()
	}
	fmt.Printf("Library: %s\n", libPath)

	logger.Info("doctor complete", slog.Int("healthy", healthy))
}

func runSearch(cfg *config.Config, cat *catalog.Catalog, store *library.Store, q string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.SearchTimeout()+time.Second)
	defer cancel()
	if err := store.AddToHistory(ctx, q); err != nil {
		return err
	}
	res := cat.SearchAll(ctx, q)
	if res.Empty() {
		fmt.Println("No results")
		return nil
	}
	fmt.Printf("Tracks (%d)\n", len(res.Tracks))
	for _, t := range res.Tracks {
		fmt.Printf("  %s  %s — %s [%s]\n", t.ID, t.Artist.Name, t.Title, t.Quality)
	}
	fmt.Printf("Albums (%d)\n", len(res.Albums))
	for _, a := range res.Albums {
		fmt.Printf("  %s  %s — %s\n", a.ID, a.Artist.Name, a.Title)
	}
	fmt.Printf("Artists (%d)\n", len(res.Artists))
	for _, a := range res.Artists {
		fmt.Printf("  %s  %s\n", a.ID, a.Name)
	}
	fmt.Printf("Playlists (%d)\n", len(res.Playlists))
	for _, p := range res.Playlists {
		fmt.Printf("  %s  %s\n", p.UUID, p.Title)
	}
	return nil
}

func runResolve(cfg *config.Config, resolver *stream.Resolver, id string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 4*cfg.API.StreamTimeout())
	defer cancel()
	url, err := resolver.Resolve(ctx, id)
	if err != nil {
		return err
	}
	fmt.Println(url)
	return nil
}

func runImport(store *library.Store, path string, logger *slog.Logger) error {
	ctx := context.Background() // No timeout for import
	start := time.Now()
	tracks, err := localfiles.Import(ctx, []string{path}, localfiles.Options{Logger: logger})
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		fmt.Println("No audio files found")
		return nil
	}
	title := filepath.Base(filepath.Clean(path))
	pl, err := store.SaveQueueAsPlaylist(ctx, title, tracks)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d tracks into playlist %q (%s) in %s\n", len(pl.Tracks), pl.Title, pl.UUID, time.Since(start).Round(time.Millisecond))
	return nil
}
