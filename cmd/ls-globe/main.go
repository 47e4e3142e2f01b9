// Command ls-globe renders a rotating, draggable orthographic globe with
// animated great-circle routes in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/litescript/ls-globe/internal/api"
	"github.com/litescript/ls-globe/internal/canvas"
	"github.com/litescript/ls-globe/internal/config"
	"github.com/litescript/ls-globe/internal/land"
	"github.com/litescript/ls-globe/internal/logging"
	"github.com/litescript/ls-globe/internal/metrics"
	"github.com/litescript/ls-globe/internal/rotation"
	"github.com/litescript/ls-globe/internal/scene"
	"github.com/litescript/ls-globe/internal/scheduler"
	"github.com/litescript/ls-globe/internal/state"
	"github.com/litescript/ls-globe/internal/telemetry"
	"github.com/litescript/ls-globe/internal/ui"
	"github.com/litescript/ls-globe/internal/version"
)

// CLI flags
var (
	configPath   string
	logLevel     string
	logFile      string
	landURL      string
	landFile     string
	listenAddr   string
	headless     bool
	frames       uint64
	snapshotPath string
	visitorFlag  string
	cols, rows   int
	noColor      bool
	showVersion  bool
)

const (
	defaultCols = 80
	defaultRows = 40
)

func main() {
	flag.StringVar(&configPath, "config", "", "Config file (default: globe.yaml in . or ./configs)")
	flag.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&logFile, "log-file", "", "Write logs to file (TUI mode discards logs otherwise)")
	flag.StringVar(&landURL, "land-url", "", "GeoJSON land outline URL")
	flag.StringVar(&landFile, "land-file", "", "GeoJSON land outline file (overrides -land-url)")
	flag.StringVar(&listenAddr, "listen", "", "Serve the control API on this address (e.g. :8080)")
	flag.BoolVar(&headless, "headless", false, "Render without the TUI and print the last frame")
	flag.Uint64Var(&frames, "frames", 1, "Headless: ticks to run before printing (0 runs until interrupted)")
	flag.StringVar(&snapshotPath, "snapshot-path", "", "Headless: export the last frame as JSON (use - for stdout)")
	flag.StringVar(&visitorFlag, "visitor", "", "Initial visitor pin as lon,lat")
	flag.IntVar(&cols, "cols", 0, "Headless: canvas width in cells (default: terminal width)")
	flag.IntVar(&rows, "rows", 0, "Headless: canvas height in cells (default: terminal height)")
	flag.BoolVar(&noColor, "no-color", false, "Disable ANSI colour in headless output")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()
	if cfg.File != "" {
		logger.Info("config loaded from %s", cfg.File)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
		if err != nil {
			logger.Warn("telemetry init failed: %v", err)
		} else {
			defer shutdown()
			logger.Info("tracing to %s", cfg.Telemetry.Endpoint)
		}
	}

	var visitor *[2]float64
	if visitorFlag != "" {
		lon, lat, err := parseLonLat(visitorFlag)
		if err != nil {
			return fmt.Errorf("-visitor: %w", err)
		}
		visitor = &[2]float64{lon, lat}
	}

	stateMgr := state.NewManager(state.DefaultConfig())
	raster := canvas.NewRaster(defaultCols, defaultRows)
	surface := canvas.NewSurface(raster)

	opts := []scheduler.Option{
		scheduler.WithLogger(logger.With("scheduler")),
		scheduler.WithObserver(scheduler.Observers{stateMgr, metrics.Recorder{}}),
	}
	if headless {
		opts = append(opts, scheduler.WithMaxTicks(frames))
	}
	ctrl := rotation.New(cfg.Rotation(), cfg.InitialRotation())
	sched := scheduler.New(cfg.Scheduler(), ctrl, cfg.Scene(), scheduler.Surfaces{surface, stateMgr}, opts...)

	// Draw with the built-in outlines until the configured source resolves.
	sched.SetLand(land.FallbackRings())
	if visitor != nil {
		sched.SetVisitorLocation(visitor[0], visitor[1])
	}

	if headless {
		return runHeadless(ctx, cfg, sched, surface, stateMgr, logger)
	}
	return runTUI(ctx, cfg, sched, surface, stateMgr, logger)
}

// applyFlags lets explicit flags win over file and environment values.
func applyFlags(cfg *config.Config) {
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFile != "" {
		cfg.Log.File = logFile
	}
	if landURL != "" {
		cfg.Land.URL = landURL
	}
	if landFile != "" {
		cfg.Land.Path = landFile
	}
	if listenAddr != "" {
		cfg.API.Listen = listenAddr
	}
}

// setupLogging writes to log.file when set. Without a file, the TUI discards
// logs so they cannot tear the alt screen; headless mode logs to stderr.
func setupLogging(cfg *config.Config) (*logging.Logger, func(), error) {
	level := logging.ParseLevel(cfg.Log.Level)
	if cfg.Log.File == "" {
		if headless {
			return logging.New(level), func() {}, nil
		}
		return logging.Discard(), func() {}, nil
	}

	f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := logging.New(level)
	logger.SetOutput(f)
	return logger, func() { _ = f.Close() }, nil
}

func parseLonLat(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want lon,lat, got %q", s)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("longitude: %w", err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("latitude: %w", err)
	}
	return lon, lat, nil
}

// loadLand resolves the configured land source and records the outcome.
func loadLand(ctx context.Context, cfg *config.Config, stateMgr *state.Manager, logger *logging.Logger) land.Result {
	res := land.Load(ctx, cfg.LandSource(), logger.With("land"))
	stateMgr.RecordLand(res.Source, len(res.Rings), res.Fallback, res.Duration, res.Err)
	metrics.RecordLand(res.Source, res.Fallback, res.Duration)
	return res
}

// serveAPI runs the control API until ctx is done.
func serveAPI(ctx context.Context, addr string, cmds api.Commander, stateMgr *state.Manager, logger *logging.Logger) {
	apiLog := logger.With("api")
	app := api.NewApp(&api.Dependencies{
		Commands: cmds,
		State:    stateMgr,
		Logger:   apiLog,
		Version:  version.Version,
	})
	if err := api.Serve(ctx, app, addr, apiLog); err != nil {
		apiLog.Error("control API failed: %v", err)
	}
}

func runTUI(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, surface *canvas.Surface, stateMgr *state.Manager, logger *logging.Logger) error {
	model := ui.New(sched, surface, stateMgr, cfg.FrameInterval())
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	go func() {
		res := loadLand(ctx, cfg, stateMgr, logger)
		p.Send(ui.LandLoadedMsg{Result: res})
	}()

	if cfg.API.Listen != "" {
		go serveAPI(ctx, cfg.API.Listen, ui.NewCommander(p), stateMgr, logger)
	}

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run TUI: %w", err)
	}
	return nil
}

func runHeadless(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler, surface *canvas.Surface, stateMgr *state.Manager, logger *logging.Logger) error {
	isTTY := term.IsTerminal(int(os.Stdout.Fd()))
	w, h := cols, rows
	if isTTY && (w <= 0 || h <= 0) {
		if tw, th, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			if w <= 0 {
				w = tw
			}
			if h <= 0 {
				h = th - 1
			}
		}
	}
	if w <= 0 {
		w = defaultCols
	}
	if h <= 0 {
		h = defaultRows
	}
	surface.SetSize(w, h)
	surface.SetColor(isTTY && !noColor)

	// A snapshot should show real outlines, so wait for the source here.
	res := loadLand(ctx, cfg, stateMgr, logger)
	sched.SetLand(res.Rings)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	commands := make(chan scheduler.Command)
	apiDone := make(chan struct{})
	if cfg.API.Listen != "" {
		go func() {
			defer close(apiDone)
			serveAPI(runCtx, cfg.API.Listen, scheduler.NewQueue(runCtx, commands), stateMgr, logger)
		}()
	} else {
		close(apiDone)
	}

	err := sched.Run(runCtx, cfg.FrameInterval(), commands)
	cancel()
	<-apiDone
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return writeOutput(sched.Frame(), surface)
}

func writeOutput(f scene.Frame, surface *canvas.Surface) error {
	if snapshotPath == "" {
		fmt.Println(surface.String())
		return nil
	}

	export := scene.Export(f)
	if snapshotPath == "-" {
		if err := export.WriteJSON(os.Stdout); err != nil {
			return fmt.Errorf("write JSON to stdout: %w", err)
		}
		return nil
	}

	file, err := os.Create(snapshotPath)
	if err != nil {
		return fmt.Errorf("create snapshot file: %w", err)
	}
	defer file.Close()
	if err := export.WriteJSON(file); err != nil {
		return fmt.Errorf("write JSON to file: %w", err)
	}
	return nil
}
