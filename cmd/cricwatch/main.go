package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lolwierd/cric-commentary/internal/config"
	"github.com/lolwierd/cric-commentary/internal/fetch"
	"github.com/lolwierd/cric-commentary/internal/logger"
	"github.com/lolwierd/cric-commentary/internal/notify"
	"github.com/lolwierd/cric-commentary/internal/poller"
	"github.com/lolwierd/cric-commentary/internal/status"
	"github.com/lolwierd/cric-commentary/internal/store"
	"github.com/lolwierd/cric-commentary/internal/tracker"
)

// shutdownGrace is how long pending notifications get once polling stops.
const shutdownGrace = 10 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(config.New()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:           "cricwatch",
		Short:         "Poll live cricket commentary and post new deliveries to Discord",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, cfgFile)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfgFile, "config", "c", os.Getenv("CRICWATCH_CONFIG"), "config file path (default d.yaml in . or ./configs)")
	flags.String("url", "", "live commentary page to poll")
	flags.String("team", "", "team code whose score is reported, e.g. NZ")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("status-addr", "", "serve the status API on this address, e.g. :8080")

	bind := map[string]string{
		"source.url":    "url",
		"source.team":   "team",
		"logging.level": "log-level",
		"status.addr":   "status-addr",
	}
	for key, flag := range bind {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	return cmd
}

func run(ctx context.Context, v *viper.Viper, cfgFile string) error {
	boot, err := logger.New(v.GetString("logging.level"))
	if err != nil {
		boot, _ = logger.New("info")
	}

	cfg, err := config.Load(v, cfgFile, boot)
	if err != nil {
		boot.Error("failed to load configuration", zap.Error(err))
		return err
	}

	log, err := logger.New(cfg.Logging.Level)
	if err != nil {
		boot.Error("failed to build logger", zap.Error(err))
		return err
	}
	defer func() { _ = log.Sync() }()

	var notifier notify.Notifier = notify.NewNoop(log)
	if cfg.Discord.Enabled {
		discord, err := notify.NewDiscord(cfg.Discord.Token, log)
		if err != nil {
			log.Error("failed to create Discord client, notifications disabled",
				zap.String("error", config.Redact(err.Error())),
			)
		} else {
			notifier = discord
			log.Info("Discord notifications enabled", zap.Int("channels", len(cfg.Discord.ChannelIDs)))
		}
	} else {
		log.Warn("Discord notifications disabled")
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.Discord.ChannelIDs, notify.DefaultQueueSize, log)

	fetcher := fetch.New(fetch.Options{
		Timeout: cfg.Poll.FetchTimeout,
		Retry: fetch.RetryConfig{
			MaxAttempts:   cfg.Poll.MaxAttempts,
			InitialDelay:  cfg.Poll.Backoff,
			BackoffFactor: 2.0,
		},
	}, log)

	var stateStore poller.StateStore
	if cfg.State.Path != "" {
		bs := store.New(cfg.State.Path, log)
		if err := bs.Open(); err != nil {
			log.Error("failed to open state file", zap.Error(err))
			return err
		}
		defer func() { _ = bs.Close() }()
		stateStore = bs
	}

	board := status.NewBoard(cfg.Source.URL, cfg.Source.Team)
	p := poller.New(poller.Options{
		URL:          cfg.Source.URL,
		Team:         cfg.Source.Team,
		MinInterval:  cfg.Poll.MinInterval,
		FailureDelay: cfg.Poll.FailureDelay,
		Fetcher:      fetcher,
		Tracker: tracker.New(tracker.Options{
			KeyPrefix:  cfg.Tracker.KeyPrefix,
			MaxKeys:    cfg.Tracker.MaxKeys,
			RetainKeys: cfg.Tracker.RetainKeys,
		}),
		Dispatcher: dispatcher,
		Board:      board,
		Store:      stateStore,
	}, log)

	if _, err := p.Restore(); err != nil {
		log.Warn("starting with empty tracker state", zap.Error(err))
	}

	if cfg.Status.Addr != "" {
		router := status.NewRouter(board, dispatcher, log)
		go func() {
			if err := status.Serve(ctx, cfg.Status.Addr, router, log); err != nil {
				log.Error("status API stopped", zap.Error(err))
			}
		}()
	}

	runErr := p.Run(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := dispatcher.Close(closeCtx); err != nil {
		log.Warn("gave up waiting for notifications", zap.Error(err))
	}

	if runErr != nil {
		log.Error("poller stopped", zap.Error(runErr))
		return runErr
	}
	log.Info("shutting down")
	return nil
}
