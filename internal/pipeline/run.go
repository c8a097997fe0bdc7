package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"freightdesk/internal"
	"freightdesk/internal/clientmatch"
	"freightdesk/internal/config"
	"freightdesk/internal/connectors"
	"freightdesk/internal/pricing"
	"freightdesk/internal/reference"
	"freightdesk/internal/reports"
	"freightdesk/internal/sheet"
	"freightdesk/internal/storage"
)

// Runner drives one full pass: fetch, process, client check, price match,
// reports and the run summary.
type Runner struct {
	db        *storage.DB
	cfg       config.Config
	connector connectors.MailConnector
	processor *ProcessingService
	logger    *slog.Logger
	now       func() time.Time
}

// NewRunner builds a runner. connector may be nil to only process what is
// already stored.
func NewRunner(db *storage.DB, cfg config.Config, connector connectors.MailConnector, processor *ProcessingService, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{db: db, cfg: cfg, connector: connector, processor: processor, logger: logger, now: time.Now}
}

type RunReport struct {
	TraceID   string
	StartedAt time.Time
	Dirs      RunDirs
	Fetch     connectors.FetchResult
	Stats     internal.RunStats
	Outputs   []string
	Summary   reports.Summary
}

func (r *Runner) Run(ctx context.Context) (RunReport, error) {
	started := r.now()
	report := RunReport{TraceID: uuid.NewString(), StartedAt: started}
	log := r.logger.With("trace_id", report.TraceID)
	timings := map[string]float64{}
	step := func(name string, t time.Time) { timings[name+"Ms"] = float64(time.Since(t).Milliseconds()) }

	dirs, err := NewRunDirs(r.cfg.WorkDir, started)
	if err != nil {
		return report, err
	}
	report.Dirs = dirs
	log.Info("run.started", "dir", dirs.Base)

	if r.connector != nil {
		t := time.Now()
		fetcher := connectors.NewFetchService(r.db, r.cfg.RawMailDir, r.connector, r.logger)
		report.Fetch, err = fetcher.FetchAndStore(ctx, r.cfg.MailListenerLabel, r.cfg.MailListenerFetchMax)
		if err != nil {
			return report, r.fail(report, timings, fmt.Errorf("fetch: %w", err))
		}
		step("fetch", t)
	}

	t := time.Now()
	batch, err := r.processor.ProcessPending(ctx, r.cfg.MailListenerProcessBatch, "", dirs)
	if err != nil {
		return report, r.fail(report, timings, fmt.Errorf("process: %w", err))
	}
	report.Stats = batch.Stats
	step("process", t)

	infoPath := dirs.InfoPath()
	if len(batch.Rows) > 0 {
		if err := AppendInfo(infoPath, batch.Rows); err != nil {
			return report, r.fail(report, timings, fmt.Errorf("info.xlsx: %w", err))
		}
		report.Outputs = append(report.Outputs, infoPath)
		log.Info("run.info.written", "path", infoPath, "rows", len(batch.Rows))

		if err := r.postProcess(infoPath, &report, timings, log); err != nil {
			return report, r.fail(report, timings, err)
		}
	} else {
		log.Warn("run.info.skipped", "reason", "no rows extracted")
	}

	report.Summary = reports.Summary{
		StartedAt:    started,
		Duration:     r.now().Sub(started),
		Emails:       report.Stats.Emails,
		Extracted:    report.Stats.Extracted,
		ClientsFound: report.Stats.ClientSingle + report.Stats.ClientMulti,
		PricesFound:  report.Stats.PriceMatched,
	}
	summaryPath := reports.SummaryPath(dirs.Base, started)
	if err := reports.WriteSummary(summaryPath, report.Summary); err != nil {
		return report, r.fail(report, timings, fmt.Errorf("run summary: %w", err))
	}
	report.Outputs = append(report.Outputs, summaryPath)

	if removed, err := dirs.CleanupTemp(); err != nil {
		log.Warn("run.temp.cleanup_failed", "err", err)
	} else if !removed {
		log.Warn("run.temp.kept", "dir", dirs.Temp, "reason", "unprocessed files left")
	}

	timings["totalMs"] = float64(time.Since(started).Milliseconds())
	if err := r.db.InsertRun(report.TraceID, report.Summary.Status(), timings, countsOf(report)); err != nil {
		return report, err
	}
	if err := r.db.SetMetadata("pipeline.last_run", started.UTC().Format(time.RFC3339)); err != nil {
		log.Warn("run.metadata.failed", "key", "pipeline.last_run", "err", err)
	}
	log.Info("run.done", "status", report.Summary.Status(), "emails", report.Stats.Emails, "failed", report.Stats.Failed,
		"extracted", report.Stats.Extracted, "outputs", len(report.Outputs))
	return report, nil
}

// postProcess runs the client check, the price match and the reports over
// info.xlsx. Missing reference files skip their step.
func (r *Runner) postProcess(infoPath string, report *RunReport, timings map[string]float64, log *slog.Logger) error {
	t := time.Now()
	clients, err := clientmatch.CheckWorkbook(infoPath, r.cfg.BookingListPath, r.logger)
	if err != nil {
		return fmt.Errorf("client check: %w", err)
	}
	report.Stats.ClientNone = clients.NoMatch
	report.Stats.ClientSingle = clients.Single
	report.Stats.ClientMulti = clients.Multiple
	timings["clientsMs"] = float64(time.Since(t).Milliseconds())

	t = time.Now()
	if r.cfg.PriceListPath == "" {
		log.Warn("run.prices.skipped", "reason", "price list not configured")
	} else {
		table, err := pricing.LoadRateTableFile(r.cfg.PriceListPath, r.logger)
		switch {
		case errors.Is(err, sheet.ErrMissingInput):
			log.Warn("run.prices.skipped", "reason", "price list not found", "path", r.cfg.PriceListPath)
		case err != nil:
			return fmt.Errorf("price list: %w", err)
		default:
			prices, err := pricing.ApplyToWorkbook(infoPath, table, r.logger)
			if err != nil {
				return fmt.Errorf("price match: %w", err)
			}
			report.Stats.PriceMatched = prices.Matched
			report.Stats.PriceNotFound = prices.NotFound
		}
	}
	timings["pricesMs"] = float64(time.Since(t).Milliseconds())

	t = time.Now()
	outputs, err := reports.GenerateAll(infoPath, r.now(), reports.Options{
		XeroDueDays: r.cfg.XeroDueDays,
		SRTSDueDays: r.cfg.SRTSDueDays,
	}, r.logger)
	report.Outputs = append(report.Outputs, outputs...)
	if err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	timings["reportsMs"] = float64(time.Since(t).Milliseconds())
	return nil
}

func (r *Runner) fail(report RunReport, timings map[string]float64, cause error) error {
	timings["totalMs"] = float64(time.Since(report.StartedAt).Milliseconds())
	if err := r.db.InsertRun(report.TraceID, "failed", timings, countsOf(report)); err != nil {
		return errors.Join(cause, err)
	}
	r.logger.Error("run.failed", "trace_id", report.TraceID, "err", cause)
	return cause
}

func countsOf(report RunReport) map[string]int {
	s := report.Stats
	return map[string]int{
		"fetched":       report.Fetch.Fetched,
		"stored":        report.Fetch.Stored,
		"emails":        s.Emails,
		"failed":        s.Failed,
		"documents":     s.Documents,
		"ignored":       s.Ignored,
		"extracted":     s.Extracted,
		"clientNone":    s.ClientNone,
		"clientSingle":  s.ClientSingle,
		"clientMulti":   s.ClientMulti,
		"priceMatched":  s.PriceMatched,
		"priceNotFound": s.PriceNotFound,
	}
}

// LoadReference loads the port-code table and records what was loaded.
func LoadReference(db *storage.DB, path string, logger *slog.Logger) (*reference.Ports, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ports, err := reference.LoadPorts(path)
	if err != nil {
		return nil, err
	}
	source := path
	if source == "" {
		source = "builtin"
	}
	if db != nil {
		meta := [][2]string{
			{"reference.ports.source", source},
			{"reference.ports.count", strconv.Itoa(ports.Len())},
			{"reference.ports.loaded_at", time.Now().UTC().Format(time.RFC3339)},
		}
		for _, kv := range meta {
			if err := db.SetMetadata(kv[0], kv[1]); err != nil {
				logger.Warn("reference.metadata.failed", "key", kv[0], "err", err)
			}
		}
	}
	logger.Info("reference.ports.loaded", "source", source, "codes", ports.Len())
	return ports, nil
}
