package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"freightdesk/internal/clientmatch"
	"freightdesk/internal/config"
	"freightdesk/internal/connectors"
	"freightdesk/internal/extraction"
	"freightdesk/internal/listener"
	"freightdesk/internal/logging"
	"freightdesk/internal/pipeline"
	"freightdesk/internal/pricing"
	"freightdesk/internal/reports"
	"freightdesk/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	args := os.Args[2:]

	// Commands that work on files alone need no database.
	switch cmd {
	case "classify":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "pdf path")
		_ = fs.Parse(args)
		requireFlag("--file", *file)
		blob, err := os.ReadFile(*file)
		must(err)
		res := pipeline.ClassifyPDF(blob, *file)
		fmt.Printf("%s\t%s\t%s\n", res.Category, res.Rule, *file)
		return
	case "booking":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		text := fs.String("text", "", "message body")
		subject := fs.String("subject", "", "message subject")
		eml := fs.String("eml", "", "raw .eml file instead of --text")
		_ = fs.Parse(args)
		body := *text
		if *eml != "" {
			raw, err := os.ReadFile(*eml)
			must(err)
			msg, err := pipeline.ParseMessage(raw)
			must(err)
			*subject, body = msg.Subject, msg.Body
		}
		fmt.Printf("booking=%s order=%s supplier=%s\n",
			pipeline.ExtractBooking(body), pipeline.ExtractOrderNo(*subject), pipeline.DetectSupplier(*subject, body))
		return
	case "extract":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		file := fs.String("file", "", "invoice pdf path")
		_ = fs.Parse(args)
		requireFlag("--file", *file)
		blob, err := os.ReadFile(*file)
		must(err)
		text, err := pipeline.FullText(blob)
		must(err)
		lines, err := extraction.NewClient(cfg, logger).ExtractInvoice(ctx, text)
		must(err)
		out, _ := json.MarshalIndent(lines, "", "  ")
		fmt.Println(string(out))
		return
	case "clients:check":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		info := fs.String("info", "", "info.xlsx path")
		list := fs.String("booking-list", cfg.BookingListPath, "booking list workbook")
		_ = fs.Parse(args)
		requireFlag("--info", *info)
		stats, err := clientmatch.CheckWorkbook(*info, *list, logger)
		must(err)
		fmt.Printf("client check done rows=%d single=%d multiple=%d none=%d\n", stats.Total, stats.Single, stats.Multiple, stats.NoMatch)
		return
	case "prices:match":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		info := fs.String("info", "", "info.xlsx path")
		list := fs.String("price-list", cfg.PriceListPath, "rate table workbook")
		_ = fs.Parse(args)
		requireFlag("--info", *info)
		requireFlag("--price-list", *list)
		table, err := pricing.LoadRateTableFile(*list, logger)
		must(err)
		stats, err := pricing.ApplyToWorkbook(*info, table, logger)
		must(err)
		fmt.Printf("price match done rows=%d matched=%d not_found=%d\n", stats.Total, stats.Matched, stats.NotFound)
		return
	case "reports:generate":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		info := fs.String("info", "", "info.xlsx path")
		_ = fs.Parse(args)
		requireFlag("--info", *info)
		paths, err := reports.GenerateAll(*info, time.Now(), reports.Options{XeroDueDays: cfg.XeroDueDays, SRTSDueDays: cfg.SRTSDueDays}, logger)
		must(err)
		for _, p := range paths {
			fmt.Println(p)
		}
		return
	}

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	switch cmd {
	case "mail:fetch":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", cfg.MailProvider, "gmail|imap")
		label := fs.String("label", cfg.MailListenerLabel, "mailbox/label")
		max := fs.Int("max", cfg.MailListenerFetchMax, "max messages")
		_ = fs.Parse(args)
		conn, err := listener.MakeConnector(ctx, normalizeProvider(*provider), cfg, logger)
		must(err)
		fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn, logger)
		result, err := fetch.FetchAndStore(ctx, *label, *max)
		must(err)
		fmt.Printf("mail fetch done provider=%s fetched=%d stored=%d known=%d\n", *provider, result.Fetched, result.Stored, result.Known)
	case "mail:process":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		provider := fs.String("provider", "", "gmail|imap (empty for any)")
		messageID := fs.String("messageId", "", "specific message-id")
		batch := fs.Int("batch", cfg.MailListenerProcessBatch, "batch size")
		_ = fs.Parse(args)
		processor := newProcessor(db, cfg, logger)
		dirs, err := pipeline.NewRunDirs(cfg.WorkDir, time.Now())
		must(err)

		var rows []map[string]string
		if strings.TrimSpace(*messageID) != "" {
			p := normalizeProvider(*provider)
			if p == "" {
				p = normalizeProvider(cfg.MailProvider)
			}
			res, err := processor.ProcessByProviderMessageID(ctx, p, *messageID, dirs)
			must(err)
			rows = res.Rows
			fmt.Printf("processed email id=%d documents=%d invoices=%d rows=%d\n", res.EmailID, res.Documents, res.Invoices, len(res.Rows))
		} else {
			res, err := processor.ProcessPending(ctx, *batch, normalizeProvider(*provider), dirs)
			must(err)
			rows = res.Rows
			fmt.Printf("processed pending emails=%d failed=%d invoices=%d rows=%d\n", res.Emails, res.Stats.Failed, res.Stats.Extracted, len(res.Rows))
		}
		if len(rows) > 0 {
			must(pipeline.AppendInfo(dirs.InfoPath(), rows))
			fmt.Printf("info written to %s\n", dirs.InfoPath())
		}
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		fetch := fs.Bool("fetch", true, "fetch unread mail first")
		provider := fs.String("provider", cfg.MailProvider, "gmail|imap")
		_ = fs.Parse(args)
		var conn connectors.MailConnector
		if *fetch {
			conn, err = listener.MakeConnector(ctx, normalizeProvider(*provider), cfg, logger)
			must(err)
		}
		report, err := pipeline.NewRunner(db, cfg, conn, newProcessor(db, cfg, logger), logger).Run(ctx)
		must(err)
		fmt.Printf("run done trace=%s status=%s emails=%d failed=%d extracted=%d clients=%d prices=%d\n",
			report.TraceID, report.Summary.Status(), report.Stats.Emails, report.Stats.Failed, report.Stats.Extracted,
			report.Summary.ClientsFound, report.Summary.PricesFound)
		for _, p := range report.Outputs {
			fmt.Println(p)
		}
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 10, "how many runs")
		_ = fs.Parse(args)
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			fmt.Printf("%d\t%s\t%s\temails=%d extracted=%d\n", r.ID, r.TraceID, r.Status, r.Counts["emails"], r.Counts["extracted"])
		}
	case "mail:listen":
		s := listener.NewService(db, cfg, logger)
		must(s.Run(ctx))
	default:
		usage()
		os.Exit(1)
	}
}

func newProcessor(db *storage.DB, cfg config.Config, logger *slog.Logger) *pipeline.ProcessingService {
	ports, err := pipeline.LoadReference(db, cfg.ReferencePath, logger)
	must(err)
	return pipeline.NewProcessingService(db, extraction.NewClient(cfg, logger), ports, logger)
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

func requireFlag(name, value string) {
	if strings.TrimSpace(value) == "" {
		must(fmt.Errorf("%s is required", name))
	}
}

func usage() {
	fmt.Println("usage: freightdesk <command>")
	fmt.Println("commands:")
	fmt.Println("  mail:fetch --provider=imap|gmail --label=INBOX --max=50")
	fmt.Println("  mail:process [--provider=imap|gmail] [--messageId=...] [--batch=50]")
	fmt.Println("  mail:listen")
	fmt.Println("  run [--fetch=true] [--provider=imap|gmail]")
	fmt.Println("  runs [--limit=10]")
	fmt.Println("  classify --file=doc.pdf")
	fmt.Println("  booking --text=... [--subject=...] | --eml=message.eml")
	fmt.Println("  extract --file=invoice.pdf")
	fmt.Println("  clients:check --info=info.xlsx [--booking-list=list.xlsx]")
	fmt.Println("  prices:match --info=info.xlsx [--price-list=rates.xlsx]")
	fmt.Println("  reports:generate --info=info.xlsx")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
