package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/robfig/cron/v3"

	"portfolio/internal/agenda"
	"portfolio/internal/calendar"
	"portfolio/internal/capture"
	"portfolio/internal/chat"
	"portfolio/internal/config"
	"portfolio/internal/events"
	"portfolio/internal/ics"
	appLog "portfolio/internal/log"
	"portfolio/internal/notify"
	"portfolio/internal/profile"
	"portfolio/internal/session"
	"portfolio/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	debug      bool
	snapshot   string
	dark       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	conf.ApplyEnv(os.Getenv)
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	if err := run(conf, flags); err != nil {
		appLog.Error("portfolio exited with error", err)
		os.Exit(1)
	}
}

func run(conf *config.Config, flags flagConfig) error {
	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("invalid timezone, using local", "timezone", conf.Timezone)
		loc = time.Local
	}

	prof, err := profile.Load(conf.ProfilePath)
	if err != nil {
		return err
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", loc.String(),
		"week_start", conf.WeekStart,
		"ics_count", len(conf.Calendar.ICS),
		"events_driver", conf.Events.Driver,
		"chat_model", conf.Chat.Model,
		"chat_configured", conf.Chat.APIKey != "",
	)

	llm := chat.NewClient(conf.Chat, prof.SystemPrompt())
	if !llm.IsConfigured() {
		appLog.Warn("chat api key not set; chat will answer with the fallback message")
	}

	newRepo := func(string) events.Repository { return events.NewMemoryStore() }
	if conf.Events.Driver == "sqlite" {
		db, err := events.OpenSQLite(conf.Events.Path, loc)
		if err != nil {
			return err
		}
		defer db.Close()
		newRepo = func(owner string) events.Repository { return db.For(owner) }
	}

	ws := calendar.ParseWeekStart(conf.WeekStart)
	welcome := chat.WelcomeMessage(prof.FirstName())
	sessions := session.NewStore(func(id string) (*chat.Session, *calendar.Planner) {
		return chat.NewSession(llm, prof.Contact.Email, welcome),
			calendar.NewPlanner(newRepo(id), ws, loc, nil)
	})

	ag := agenda.NewService(ics.NewFetcher(conf.Calendar.CacheDir), conf.Calendar, loc)

	mailer := notify.NewMailer(conf.SMTP)
	if !mailer.Enabled() {
		appLog.Info("booking notifications disabled; smtp credentials not set")
	}

	srv, err := web.NewServer(web.Deps{
		Config:    conf,
		Profile:   prof,
		Agenda:    ag,
		Sessions:  sessions,
		Completer: llm,
		Mailer:    mailer,
		Location:  loc,
		Debug:     flags.debug,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := cron.New(cron.WithLocation(loc))
	if len(conf.Calendar.ICS) > 0 {
		if _, err := sched.AddFunc(conf.Calendar.Refresh, func() {
			rctx, cancel := context.WithTimeout(ctx, time.Minute)
			defer cancel()
			if err := ag.Refresh(rctx); err != nil {
				appLog.Error("scheduled agenda refresh failed", err)
			}
		}); err != nil {
			return err
		}
	}
	idle := time.Duration(conf.Session.IdleMinutes) * time.Minute
	if _, err := sched.AddFunc(conf.Session.Sweep, func() { srv.Sweep(idle) }); err != nil {
		return err
	}
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	ln, err := net.Listen("tcp", conf.Listen)
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String(), "debug", flags.debug)
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if flags.snapshot != "" {
		_, serr := capture.Snapshot(ctx, capture.Options{
			BaseURL: "http://" + ln.Addr().String(),
			OutDir:  flags.snapshot,
			Dark:    flags.dark,
			Preview: true,
		})
		stop()
		shutdown(httpSrv)
		return serr
	}

	select {
	case <-ctx.Done():
		appLog.Info("signal received, shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	shutdown(httpSrv)
	appLog.Info("portfolio exiting")
	return nil
}

func shutdown(s *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		appLog.Error("http shutdown failed", err)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging and gin debug mode")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "Capture PNG snapshots of the site into this directory and exit")
	flag.BoolVar(&cfg.dark, "dark", false, "With -snapshot, capture the dark theme")

	flag.Parse()

	return cfg
}
