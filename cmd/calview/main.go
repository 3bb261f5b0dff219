package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/xlab/closer"

	"calview/internal/calendar"
	"calview/internal/capture"
	"calview/internal/config"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/refresh"
	"calview/internal/source"
	"calview/internal/web"
)

const version = "0.1.0"

// refreshTimeout bounds one aggregation of all sources.
const refreshTimeout = 2 * time.Minute

func main() {
	closer.Bind(appLog.Sync)

	if err := newApp().Run(context.Background(), os.Args); err != nil {
		appLog.Error("calview exited with error", err)
		appLog.Sync()
		os.Exit(1)
	}
	closer.Close()
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    "calview",
		Usage:   "unified calendar view over platform, Google and Microsoft sources",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "./calview.yaml",
				Usage:   "path to config file, created with defaults if missing",
				Sources: cli.EnvVars("CALVIEW_CONFIG"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			viewCommand(),
			snapshotCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "refresh sources on a schedule and serve the calendar over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "listen", Usage: "HTTP listen address (overrides config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			if l := cmd.String("listen"); l != "" {
				conf.Listen = l
			}
			return serve(ctx, conf)
		},
	}
}

func serve(parent context.Context, conf *config.Config) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}
	agg, err := newAggregator(conf, loc, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan struct{})
	closer.Bind(func() {
		appLog.Info("signal received, shutting down")
		cancel()
		<-done
	})
	defer close(done)

	appLog.Info("calview starting",
		"version", version,
		"listen", conf.Listen,
		"timezone", loc.String(),
		"refresh", conf.RefreshCron,
		"sources", len(conf.Sources),
	)

	refreshOnce(ctx, agg)

	sched, err := refresh.NewScheduler(conf.RefreshCron, loc, refreshTimeout, refresh.RefreshFunc(func(ctx context.Context) error {
		_, err := agg.Refresh(ctx)
		return err
	}))
	if err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Stop()
	appLog.Info("refresh scheduled", "next", sched.Next())

	srv, err := web.NewServer(conf, agg)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func viewCommand() *cli.Command {
	return &cli.Command{
		Name:  "view",
		Usage: "refresh once and print a projected view as JSON",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mode", Value: string(calendar.ViewMonth), Usage: "month, week, day or agenda"},
			&cli.StringFlag{Name: "date", Usage: "reference date YYYY-MM-DD (default today)"},
			&cli.StringSliceFlag{Name: "hide", Usage: "source ids to hide"},
			&cli.StringFlag{Name: "now", Usage: "override the current time (RFC3339)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			conf, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			return printView(ctx, conf, viewArgs{
				mode: cmd.String("mode"),
				date: cmd.String("date"),
				hide: cmd.StringSlice("hide"),
				now:  cmd.String("now"),
			})
		},
	}
}

type viewArgs struct {
	mode string
	date string
	hide []string
	now  string
}

func printView(ctx context.Context, conf *config.Config, args viewArgs) error {
	loc, err := conf.Location()
	if err != nil {
		return err
	}

	now := time.Now().In(loc)
	if args.now != "" {
		t, err := time.Parse(time.RFC3339, args.now)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		now = t.In(loc)
	}

	agg, err := newAggregator(conf, loc, func() time.Time { return now })
	if err != nil {
		return err
	}
	refreshOnce(ctx, agg)
	store := agg.Store()

	sources := make([]model.SourceID, 0, len(conf.Sources))
	for _, s := range conf.Sources {
		sources = append(sources, model.SourceID(s.ID))
	}
	sel := calendar.NewSelection(now, sources...)

	mode, err := calendar.ParseViewMode(args.mode)
	if err != nil {
		return err
	}
	sel.SetViewMode(mode)
	if args.date != "" {
		d, err := calendar.ParseDate(args.date)
		if err != nil {
			return fmt.Errorf("--date: %w", err)
		}
		sel.Reference = d
		sel.SelectDate(d)
	}
	for _, id := range args.hide {
		sel.SetSourceVisible(model.SourceID(id), false)
	}

	out := struct {
		State *calendar.Selection `json:"state"`
		View  calendar.View       `json:"view"`
	}{
		State: sel,
		View:  calendar.NewProjector(store, conf.CalendarOptions()).Project(sel, now),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func snapshotCommand() *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "capture the /calendar page of a running server as PNG",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "page to capture (default http://<listen>/calendar)"},
			&cli.StringFlag{Name: "out", Value: "calview.png", Usage: "output PNG path"},
			&cli.IntFlag{Name: "width", Value: capture.DefaultWidth},
			&cli.IntFlag{Name: "height", Value: capture.DefaultHeight},
			&cli.DurationFlag{Name: "timeout", Value: capture.DefaultTimeout},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			url := cmd.String("url")
			if url == "" {
				conf, err := loadConfig(cmd.String("config"))
				if err != nil {
					return err
				}
				url = "http://" + conf.Listen + "/calendar"
			}
			return capture.SnapshotPNG(ctx, capture.Options{
				URL:        url,
				OutputPath: cmd.String("out"),
				Width:      cmd.Int("width"),
				Height:     cmd.Int("height"),
				Timeout:    cmd.Duration("timeout"),
			})
		},
	}
}

// loadConfig reads the config file, applies env overrides, validates the
// result and sets up logging from it.
func loadConfig(path string) (*config.Config, error) {
	conf, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	appLog.Setup(appLog.ParseLevel(conf.Log.Level), conf.Log.Development)
	return conf, nil
}

func newAggregator(conf *config.Config, loc *time.Location, now func() time.Time) (*source.Aggregator, error) {
	providers, err := source.FromConfig(conf, loc, nil, now)
	if err != nil {
		return nil, err
	}
	return source.NewAggregator(providers...), nil
}

// refreshOnce runs a bounded refresh. Failed sources are logged; whatever
// did load is still served.
func refreshOnce(ctx context.Context, agg *source.Aggregator) {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	res, err := agg.Refresh(ctx)
	if err != nil {
		appLog.Error("initial refresh incomplete", err, "failed", res.Failed)
	}
	appLog.Info("events loaded", "generation", res.Generation, "events", res.Events, "rejected", res.Rejected)
}
