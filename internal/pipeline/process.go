package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"freightdesk/internal"
	"freightdesk/internal/extraction"
	"freightdesk/internal/reference"
	"freightdesk/internal/storage"
)

// Extractor turns invoice text into charge lines.
type Extractor interface {
	ExtractInvoice(ctx context.Context, text string) ([]internal.InvoiceFields, error)
}

type ProcessingService struct {
	db        *storage.DB
	extractor Extractor
	ports     *reference.Ports
	logger    *slog.Logger

	firstPage func([]byte) *string
	fullText  func([]byte) (string, error)
}

func NewProcessingService(db *storage.DB, extractor Extractor, ports *reference.Ports, logger *slog.Logger) *ProcessingService {
	if logger == nil {
		logger = slog.Default()
	}
	if ports == nil {
		ports = reference.DefaultPorts()
	}
	return &ProcessingService{
		db:        db,
		extractor: extractor,
		ports:     ports,
		logger:    logger,
		firstPage: FirstPageText,
		fullText:  FullText,
	}
}

type ProcessResult struct {
	EmailID   int
	Documents int
	Ignored   int
	Invoices  int
	Rows      []map[string]string
}

type BatchResult struct {
	Emails int
	Stats  internal.RunStats
	Rows   []map[string]string
}

func (s *ProcessingService) ProcessByProviderMessageID(ctx context.Context, provider, messageID string, dirs RunDirs) (ProcessResult, error) {
	email, err := s.db.MustEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessEmail(ctx, email, dirs)
}

// ProcessPending handles fetched emails oldest first. provider "" means any.
// An email that fails is marked failed and the batch moves on.
func (s *ProcessingService) ProcessPending(ctx context.Context, limit int, provider string, dirs RunDirs) (BatchResult, error) {
	pending, err := s.db.ListEmailsByStatus("fetched", limit)
	if err != nil {
		return BatchResult{}, err
	}
	var batch BatchResult
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		res, err := s.ProcessEmail(ctx, email, dirs)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return batch, ctxErr
			}
			// Park the email so later mail still runs.
			batch.Stats.Failed++
			s.logger.Error("pipeline.email.failed", "email_id", email.ID, "provider", email.Provider,
				"message_id", email.MessageID, "err", err)
			if err := s.db.UpdateEmailStatus(email.ID, "failed"); err != nil {
				s.logger.Error("pipeline.email.status_failed", "email_id", email.ID, "err", err)
			}
			continue
		}
		batch.Emails++
		batch.Stats.Emails++
		batch.Stats.Documents += res.Documents
		batch.Stats.Ignored += res.Ignored
		batch.Stats.Extracted += res.Invoices
		batch.Rows = append(batch.Rows, res.Rows...)
	}
	return batch, nil
}

type keptDocument struct {
	id      int64
	name    string
	path    string
	content []byte
	result  ClassifyResult
}

// ProcessEmail classifies the PDF attachments of one email, extracts every
// invoice, archives invoices and bills of lading into dirs and returns the
// info rows. Per-document failures are logged and skipped.
func (s *ProcessingService) ProcessEmail(ctx context.Context, email internal.EmailRow, dirs RunDirs) (ProcessResult, error) {
	start := time.Now()
	log := s.logger.With("email_id", email.ID)

	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}
	msg, err := ParseMessage(raw)
	if err != nil {
		return ProcessResult{}, err
	}
	if msg.From == "" {
		msg.From = email.Sender
	}

	if err := s.db.ClearEmailProcessing(email.ID); err != nil {
		return ProcessResult{}, err
	}
	if err := s.db.SetEmailRouting(email.ID, msg.BookingNo, msg.Supplier); err != nil {
		return ProcessResult{}, err
	}
	log.Info("pipeline.email.parsed", "subject", msg.Subject, "booking_no", msg.BookingNo,
		"order_no", msg.OrderNo, "supplier", msg.Supplier, "pdfs", len(msg.Attachments))

	res := ProcessResult{EmailID: email.ID}
	kept, ignored, err := s.keepDocuments(email.ID, msg.Attachments, dirs, log)
	if err != nil {
		return res, err
	}
	res.Ignored = ignored
	res.Documents = len(kept)

	if len(kept) == 0 {
		log.Info("pipeline.email.skipped", "reason", "no usable pdf")
		if err := s.db.UpdateEmailStatus(email.ID, "skipped"); err != nil {
			return res, err
		}
		return res, nil
	}

	// UNKNOWN documents are tried as invoices first; whatever is still in
	// Temp afterwards is archived as a bill of lading.
	hbl := ""
	for _, doc := range kept {
		if doc.result.Category != internal.CategoryInvoice && doc.result.Category != internal.CategoryUnknown {
			continue
		}
		lines := s.extract(ctx, doc, log)
		if len(lines) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}

		invoiceNo := firstField(lines, extraction.FieldInvoiceNo, extraction.FieldOriginalFileNo)
		if hbl == "" {
			hbl = firstField(lines, extraction.FieldHBL)
		}
		archived, err := dirs.ArchiveInvoice(doc.path, invoiceNo)
		if err != nil {
			log.Warn("pipeline.invoice.archive_failed", "file", doc.name, "err", err)
		} else if err := s.db.UpdateDocumentPath(doc.id, archived); err != nil {
			return res, err
		}
		if err := s.db.InsertInvoiceLines(email.ID, doc.id, lines); err != nil {
			return res, err
		}

		res.Invoices++
		res.Rows = append(res.Rows, InfoRows(InvoiceSource{
			FileName:  filepath.Base(doc.path),
			BookingNo: msg.BookingNo,
			Supplier:  msg.Supplier,
			From:      msg.From,
			Lines:     lines,
		}, s.ports)...)
		log.Info("pipeline.invoice.extracted", "file", doc.name, "invoice_no", invoiceNo, "lines", len(lines))
	}

	for _, doc := range kept {
		if doc.result.Category != internal.CategoryBL && doc.result.Category != internal.CategoryUnknown {
			continue
		}
		archived, err := dirs.ArchiveBL(doc.path, hbl)
		if errors.Is(err, ErrDocumentGone) {
			continue
		}
		if err != nil {
			log.Warn("pipeline.bl.archive_failed", "file", doc.name, "err", err)
			continue
		}
		if err := s.db.UpdateDocumentPath(doc.id, archived); err != nil {
			return res, err
		}
		log.Info("pipeline.bl.archived", "file", doc.name, "path", archived)
	}

	if err := s.db.UpdateEmailStatus(email.ID, "processed"); err != nil {
		return res, err
	}
	log.Info("pipeline.email.processed", "documents", res.Documents, "ignored", res.Ignored,
		"invoices", res.Invoices, "rows", len(res.Rows), "elapsed_ms", time.Since(start).Milliseconds())
	return res, nil
}

// keepDocuments writes each PDF to Temp and classifies it. IGNORE files are
// deleted right away.
func (s *ProcessingService) keepDocuments(emailID int, atts []internal.Attachment, dirs RunDirs, log *slog.Logger) ([]keptDocument, int, error) {
	var kept []keptDocument
	ignored := 0
	for _, att := range atts {
		path, err := dirs.SaveTemp(att.FileName, att.Content)
		if err != nil {
			return nil, ignored, err
		}
		result := ClassifyWithRule(s.firstPage(att.Content), att.FileName)
		log.Info("pipeline.document.classified", "file", att.FileName, "category", result.Category, "rule", result.Rule)

		if result.Category == internal.CategoryIgnore {
			ignored++
			if err := os.Remove(path); err != nil {
				log.Warn("pipeline.document.remove_failed", "file", path, "err", err)
			}
			continue
		}

		id, err := s.db.InsertDocument(emailID, internal.Document{
			FileName: att.FileName,
			Path:     path,
			Category: result.Category,
			Rule:     result.Rule,
		})
		if err != nil {
			return nil, ignored, err
		}
		kept = append(kept, keptDocument{id: id, name: att.FileName, path: path, content: att.Content, result: result})
	}
	return kept, ignored, nil
}

func (s *ProcessingService) extract(ctx context.Context, doc keptDocument, log *slog.Logger) []internal.InvoiceFields {
	if s.extractor == nil {
		log.Warn("pipeline.invoice.no_extractor", "file", doc.name)
		return nil
	}
	text, err := s.fullText(doc.content)
	if err != nil || text == "" {
		log.Warn("pipeline.invoice.no_text", "file", doc.name, "err", err)
		return nil
	}
	lines, err := s.extractor.ExtractInvoice(ctx, text)
	if err != nil {
		log.Warn("pipeline.invoice.extract_failed", "file", doc.name, "err", err)
		return nil
	}
	if len(lines) == 0 {
		log.Warn("pipeline.invoice.empty", "file", doc.name)
	}
	return lines
}

func firstField(lines []internal.InvoiceFields, keys ...string) string {
	if len(lines) == 0 {
		return ""
	}
	for _, k := range keys {
		if v := lines[0].Get(k); v != "" {
			return v
		}
	}
	return ""
}
