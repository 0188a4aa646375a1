package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"gamecal/internal/calendar"
	"gamecal/internal/capture"
	"gamecal/internal/catalog"
	"gamecal/internal/config"
	appLog "gamecal/internal/log"
	"gamecal/internal/refresh"
	"gamecal/internal/web"
)

type flagConfig struct {
	configPath  string
	listen      string
	once        bool
	tidy        bool
	capturePath string
	debug       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	setupLogging(conf, flags.debug)
	defer appLog.Close()

	if err := refresh.ValidateCron(conf.RefreshCron); err != nil {
		appLog.Error("invalid refresh schedule", err)
		os.Exit(1)
	}

	appLog.Info("gamecal starting",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"games", conf.Sources.Games,
		"updates", conf.Sources.Updates,
		"window_months", conf.WindowMonths,
		"refresh", conf.RefreshCron,
		"watch_files", conf.Watching(),
		"tidy", conf.Tidy || flags.tidy,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc := web.ResolveLocation(conf.Timezone)
	loader := catalog.NewLoader(
		catalog.Sources{Games: conf.Sources.Games, Updates: conf.Sources.Updates},
		catalog.Options{Tidy: conf.Tidy || flags.tidy},
	)
	runner := refresh.New(loader, refresh.Options{
		Cron:     conf.RefreshCron,
		Watch:    conf.Watching(),
		Location: loc,
	})

	// Both documents must load before anything is served.
	if err := runner.Load(ctx); err != nil {
		appLog.Error("데이터 로딩 실패", err)
		os.Exit(1)
	}

	switch {
	case flags.tidy:
		err = printJSON(runner.Current().Updates)
	case flags.once:
		err = printView(conf, runner.Current(), loc)
	case flags.capturePath != "":
		err = runCapture(ctx, conf, runner, flags.capturePath)
	default:
		err = serve(ctx, conf, runner)
	}
	if err != nil {
		appLog.Error("gamecal failed", err)
		os.Exit(1)
	}
	appLog.Info("gamecal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Print the default calendar view as JSON and exit")
	flag.BoolVar(&cfg.tidy, "tidy", false, "Print the tidied updates document as JSON and exit")
	flag.StringVar(&cfg.capturePath, "capture", "", "Write a PNG snapshot of the calendar page to this path and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func setupLogging(conf *config.Config, debug bool) {
	level := appLog.ParseLevel(conf.Log.Level)
	if debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)
	if conf.Log.File != "" {
		appLog.SetFile(appLog.FileOptions{
			Path:       conf.Log.File,
			MaxSizeMB:  conf.Log.MaxSizeMB,
			MaxBackups: conf.Log.MaxBackups,
			MaxAgeDays: conf.Log.MaxAgeDays,
			Compress:   conf.Log.Compress,
		})
	}
}

func serve(ctx context.Context, conf *config.Config, runner *refresh.Runner) error {
	srv := web.NewServer(conf, runner)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error { return runner.Run(gctx) })
	return g.Wait()
}

func printView(conf *config.Config, cat *catalog.Catalog, loc *time.Location) error {
	state := calendar.NewState(cat, conf.Subculture)
	view := state.View(cat, time.Now(), web.ViewOptions(conf, loc))
	appLog.Info("calendar view", "stats", view.Stats.Label(), "events", view.Stats.Events, "unscheduled", view.Stats.Unscheduled)
	return printJSON(view)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runCapture serves the page just long enough to screenshot it.
func runCapture(ctx context.Context, conf *config.Config, runner *refresh.Runner, out string) error {
	srvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := web.NewServer(conf, runner)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(srvCtx) }()

	if err := waitListening(ctx, conf.Listen, 5*time.Second); err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/", dialAddr(conf.Listen))
	appLog.Info("capturing calendar", "url", url, "output", out)
	if err := capture.CalendarPNG(ctx, capture.Options{URL: url, OutputPath: out}); err != nil {
		return err
	}

	cancel()
	if err := <-errCh; err != nil {
		return err
	}
	appLog.Info("calendar captured", "output", out)
	return nil
}

func waitListening(ctx context.Context, listen string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", dialAddr(listen), 200*time.Millisecond)
		if err == nil {
			return conn.Close()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server did not start listening on %s: %w", listen, err)
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), err)
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// dialAddr turns wildcard listen addresses into something dialable.
func dialAddr(listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return listen
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
