package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/soar-cam/trackerd/internal/autorecord"
	"github.com/soar-cam/trackerd/internal/config"
	"github.com/soar-cam/trackerd/internal/diag"
	"github.com/soar-cam/trackerd/internal/eventlog"
	"github.com/soar-cam/trackerd/internal/fsutil"
	"github.com/soar-cam/trackerd/internal/monitoring"
	"github.com/soar-cam/trackerd/internal/motion"
	"github.com/soar-cam/trackerd/internal/security"
	"github.com/soar-cam/trackerd/internal/serialport"
	"github.com/soar-cam/trackerd/internal/ssb"
	"github.com/soar-cam/trackerd/internal/timeutil"
	"github.com/soar-cam/trackerd/internal/tracking"
	"github.com/soar-cam/trackerd/internal/version"
	"github.com/soar-cam/trackerd/internal/zoomlink"
)

var (
	configPath = flag.String("config", "", "path to a tuning config JSON file (defaults built in if unset)")
	dbPath     = flag.String("db", "eventlog.db", "path to the event log sqlite database")
	adminAddr  = flag.String("admin-addr", "localhost:8081", "listen address for the diagnostic HTTP surface")
)

// persistedKeys are the SSB keys that survive a restart: the calibration
// results and operator-tunable runtime settings, not transient tracking
// state. Matches original_source/db.py's distinction between calibration
// data it persists to disk and per-tick GPS state it does not.
var persistedKeys = []ssb.Key{
	ssb.KeyCameraOrigin,
	ssb.KeyCameraHeadingCoords,
	ssb.KeyCameraHeadingAngle,
	ssb.KeyTiltOffset,
	ssb.KeyCameraVerticalDistance,
	ssb.KeyCameraZoomMultiplier,
	ssb.KeySpeedControlModeThreshold,
	ssb.KeyMaxPanSpeed,
	ssb.KeyEnableAutoRecording,
	ssb.KeyCameraSecurityToken,
}

func main() {
	flag.Parse()
	log.Printf("trackerd %s (git %s, built %s) starting", version.Version, version.GitSHA, version.BuildTime)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	persistPath := cfg.GetPersistPath()
	if err := security.ValidateExportPath(persistPath); err != nil {
		log.Fatalf("refusing to use persist path %q outside the working directory: %v", persistPath, err)
	}
	if err := security.ValidateExportPath(*dbPath); err != nil {
		log.Fatalf("refusing to use db path %q outside the working directory: %v", *dbPath, err)
	}

	bus := ssb.New(fsutil.OSFileSystem{})
	if err := bus.Load(persistPath); err != nil {
		log.Printf("no persisted state loaded from %s: %v", persistPath, err)
	}

	clock := timeutil.RealClock{}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fblLink, err := openLink(ctx, "front-board", cfg.GetFBLPortSubstring(), cfg.GetFBLBaudRate(), cfg.GetFBLReadTimeout(), cfg.GetPortDiscoveryRetry(), clock)
	if err != nil {
		log.Fatalf("failed to open front-board link: %v", err)
	}
	defer fblLink.Close()

	zlLink, err := openLink(ctx, "zoom", cfg.GetZLPortSubstring(), cfg.GetZLBaudRate(), cfg.GetZLReadTimeout(), cfg.GetPortDiscoveryRetry(), clock)
	if err != nil {
		log.Fatalf("failed to open zoom link: %v", err)
	}
	defer zlLink.Close()

	if err := zoomlink.Init(zlLink); err != nil {
		log.Printf("zoom lens init failed (continuing): %v", err)
	}

	eventDB, err := eventlog.OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open event log: %v", err)
	}
	defer eventDB.Close()
	store := eventlog.NewStore(eventDB, func() int64 { return clock.Now().Unix() })

	mc := motion.NewController(fblLink, cfg)
	ar := autorecord.New(cfg, clock)
	core := tracking.NewCore(bus, fblLink, zlLink, mc, ar, cfg, clock)
	core.SetEventLog(store)

	admin := diag.New(fblLink, zlLink, bus, eventDB)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		store.Run(ctx)
		log.Print("event log writer terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		core.Run(ctx)
		log.Print("tracking loop terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runAdminServer(ctx, admin)
		log.Print("admin HTTP server terminated")
	}()

	wg.Wait()

	if err := bus.Snapshot(persistPath, persistedKeys); err != nil {
		log.Printf("failed to persist state to %s: %v", persistPath, err)
	}
	log.Print("graceful shutdown complete")
}

func loadConfig(path string) (*config.TuningConfig, error) {
	if path == "" {
		return config.MustLoadDefaultConfig(), nil
	}
	return config.LoadTuningConfig(path)
}

// openLink discovers and opens one of the daemon's two serial links,
// busy-retrying discovery until the device appears or ctx is cancelled.
func openLink(ctx context.Context, name, substring string, baud int, readTimeout, retryInterval time.Duration, clock timeutil.Clock) (*serialport.Link, error) {
	path, err := serialport.Discover(ctx, serialport.RealEnumerator{}, serialport.MatchNameSubstring(substring), clock, retryInterval)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("serialport: %s link found at %s", name, path)

	port, err := serialport.RealFactory{}.Open(path, serialport.PortOptions{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, err
	}
	return serialport.NewLink(port), nil
}

// runAdminServer serves the diagnostic HTTP surface until ctx is
// cancelled, then shuts it down gracefully, matching the teacher's HTTP
// server goroutine shape (ListenAndServe in a sub-goroutine, blocking
// wait on ctx.Done, bounded Shutdown).
func runAdminServer(ctx context.Context, admin *diag.Surface) {
	mux := http.NewServeMux()
	admin.AttachAdminRoutes(mux)

	server := &http.Server{
		Addr:    *adminAddr,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("admin HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Print("shutting down admin HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin HTTP server shutdown error: %v", err)
	}
}
