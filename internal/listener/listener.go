package listener

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"freightdesk/internal/config"
	"freightdesk/internal/connectors"
	gmailconnector "freightdesk/internal/connectors/gmail"
	imapconnector "freightdesk/internal/connectors/imap"
	"freightdesk/internal/extraction"
	"freightdesk/internal/pipeline"
	"freightdesk/internal/storage"
)

type Service struct {
	db     *storage.DB
	cfg    config.Config
	logger *slog.Logger
	cycle  func(ctx context.Context) error
}

func NewService(db *storage.DB, cfg config.Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{db: db, cfg: cfg, logger: logger}
	s.cycle = s.runCycle
	return s
}

// Run polls until ctx is cancelled. MAIL_LISTENER_SCHEDULE, when set, is a
// cron spec and replaces the fixed interval.
func (s *Service) Run(ctx context.Context) error {
	if spec := strings.TrimSpace(s.cfg.MailListenerSchedule); spec != "" {
		return s.runScheduled(ctx, spec)
	}

	interval := s.cfg.MailListenerInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.logger.Info("listener.started", "mode", "interval", "interval", interval)
	for {
		s.safeCycle(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) runScheduled(ctx context.Context, spec string) error {
	loc := time.Local
	if tz := strings.TrimSpace(s.cfg.MailListenerTimezone); tz != "" && tz != "Local" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("MAIL_LISTENER_TZ %q: %w", tz, err)
		}
		loc = l
	}

	logger := cronLogger{s.logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() { s.safeCycle(ctx) }); err != nil {
		return fmt.Errorf("MAIL_LISTENER_SCHEDULE %q: %w", spec, err)
	}

	s.logger.Info("listener.started", "mode", "cron", "schedule", spec, "tz", loc.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// RunOnce performs a single cycle and returns its error.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.cycle(ctx)
}

func (s *Service) safeCycle(ctx context.Context) {
	if err := s.cycle(ctx); err != nil {
		s.logger.Error("listener.cycle.failed", "err", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	mailConnector, err := MakeConnector(ctx, provider, s.cfg, s.logger)
	if err != nil {
		return err
	}

	if !s.cfg.MailListenerAutoRun {
		fetcher := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector, s.logger)
		res, err := fetcher.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
		if err != nil {
			return err
		}
		s.logger.Info("listener.cycle.done", "provider", provider, "fetched", res.Fetched, "stored", res.Stored)
		return nil
	}

	ports, err := pipeline.LoadReference(s.db, s.cfg.ReferencePath, s.logger)
	if err != nil {
		return err
	}
	processor := pipeline.NewProcessingService(s.db, extraction.NewClient(s.cfg, s.logger), ports, s.logger)
	report, err := pipeline.NewRunner(s.db, s.cfg, mailConnector, processor, s.logger).Run(ctx)
	if err != nil {
		return err
	}
	s.logger.Info("listener.cycle.done", "provider", provider, "fetched", report.Fetch.Fetched,
		"stored", report.Fetch.Stored, "processed", report.Stats.Emails, "status", report.Summary.Status())
	return nil
}

// MakeConnector builds the mail connector for provider ("imap" or "gmail").
func MakeConnector(ctx context.Context, provider string, cfg config.Config, logger *slog.Logger) (connectors.MailConnector, error) {
	switch provider {
	case "gmail":
		return gmailconnector.NewConnector(ctx, cfg, logger)
	case "imap":
		return imapconnector.NewConnector(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", provider)
	}
}

type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("listener.cron."+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("listener.cron."+msg, append([]interface{}{"err", err}, keysAndValues...)...)
}
