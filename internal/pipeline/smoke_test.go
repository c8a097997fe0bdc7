package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"freightdesk/internal"
	"freightdesk/internal/config"
	"freightdesk/internal/sheet"
	"freightdesk/internal/storage"
)

type stubExtractor struct {
	calls int
	lines map[string][]internal.InvoiceFields
}

func (s *stubExtractor) ExtractInvoice(_ context.Context, text string) ([]internal.InvoiceFields, error) {
	s.calls++
	for marker, lines := range s.lines {
		if strings.Contains(text, marker) {
			return lines, nil
		}
	}
	return nil, nil
}

func textAsPDF(content []byte) *string {
	s := string(content)
	return &s
}

func mkEmail(t *testing.T, path string, attachments map[string]string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("From: SRTS Operations <ops@srts.test>\r\n")
	b.WriteString("Subject: SRTS invoice and BL\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"xx\"\r\n\r\n")
	b.WriteString("--xx\r\nContent-Type: text/plain; charset=utf-8\r\n\r\nBooking No: SZX2403001\r\n")
	for name, body := range attachments {
		fmt.Fprintf(&b, "--xx\r\nContent-Type: application/pdf\r\nContent-Disposition: attachment; filename=%q\r\nContent-Transfer-Encoding: base64\r\n\r\n%s\r\n",
			name, base64.StdEncoding.EncodeToString([]byte(body)))
	}
	b.WriteString("--xx--\r\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSmokeEmailToReports(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	bookingList := filepath.Join(tmp, "booking_list.xlsx")
	if err := sheet.WriteXLSX(bookingList, sheet.WriteOptions{}, &sheet.Table{
		Name:    "2024",
		Headers: []string{"Booking", "HBL", "Client"},
		Rows:    [][]string{{"SZX2403001", "HBL001", "Alpha Co"}},
	}); err != nil {
		t.Fatal(err)
	}
	priceList := filepath.Join(tmp, "rates.xlsx")
	if err := sheet.WriteXLSX(priceList, sheet.WriteOptions{}, &sheet.Table{
		Name:    "2024",
		Headers: []string{"Month", "Carrier", "POL Code", "POD Code", "Effective Date", "Expiry Date", "20GP", "40GP", "40HQ"},
		Rows:    [][]string{{"202403", "MAERSK", "CNSHA", "USLAX", "2024-01-01", "2024-12-31", "900", "1300", "1500"}},
	}); err != nil {
		t.Fatal(err)
	}

	rawPath := filepath.Join(tmp, "fixture.eml")
	mkEmail(t, rawPath, map[string]string{
		"invoice.pdf": "DEBIT NOTE S2403001 TOTAL USD 3000",
		"bl.pdf":      "BILL OF LADING HBL001",
		"terms.pdf":   "BANK DETAILS",
	})
	email, err := db.UpsertEmail("imap", "<fixture-1@srts.test>", "SRTS invoice and BL", "ops@srts.test", "2024-03-15T00:00:00Z", "hash", rawPath, "fetched")
	if err != nil {
		t.Fatal(err)
	}

	extractor := &stubExtractor{lines: map[string][]internal.InvoiceFields{
		"S2403001": {
			{"InvoiceNo": "S2403001", "DATE": "2024/03/15", "Carrier": "Maersk", "loadingport": "Shanghai",
				"Destination": "Los Angeles", "ETD": "2024/03/20", "ETADate": "2024/04/05", "HBL": "HBL001",
				"OCEANFREIGHT": "OCEAN FREIGHT", "XUSD": "2", "Unit_Price": "1500", "Container_Type": "40' HQ", "USD": "3000"},
			{"InvoiceNo": "S2403001", "DATE": "2024/03/15", "Carrier": "Maersk", "loadingport": "Shanghai",
				"Destination": "Los Angeles", "ETD": "2024/03/20", "ETADate": "2024/04/05", "HBL": "HBL001",
				"OCEANFREIGHT": "THC", "XUSD": "1", "Unit_Price": "80", "Container_Type": "reefer", "USD": "80"},
		},
	}}

	cfg, _ := config.Load()
	cfg.WorkDir = tmp
	cfg.BookingListPath = bookingList
	cfg.PriceListPath = priceList
	cfg.MailListenerProcessBatch = 10

	proc := NewProcessingService(db, extractor, nil, nil)
	proc.firstPage = textAsPDF
	proc.fullText = func(b []byte) (string, error) { return string(b), nil }

	runner := NewRunner(db, cfg, nil, proc, nil)
	runner.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if extractor.calls != 1 {
		t.Fatalf("extractor calls=%d", extractor.calls)
	}
	if report.Stats.Emails != 1 || report.Stats.Documents != 2 || report.Stats.Ignored != 1 || report.Stats.Extracted != 1 {
		t.Fatalf("stats %+v", report.Stats)
	}
	if report.Stats.ClientSingle != 2 || report.Stats.PriceMatched != 1 || report.Stats.PriceNotFound != 1 {
		t.Fatalf("post stats %+v", report.Stats)
	}

	dirs := report.Dirs
	for _, p := range []string{
		filepath.Join(dirs.Invoice, "invoice S2403001.pdf"),
		filepath.Join(dirs.BL, "BL HBL001.pdf"),
		filepath.Join(dirs.Base, "internal_booking_list_20240315.xlsx"),
		filepath.Join(dirs.Base, "XERO_Bill_20240315.csv"),
		filepath.Join(dirs.Base, "run_summary_20240315.xlsx"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing output: %v", err)
		}
	}
	if _, err := os.Stat(dirs.Temp); !os.IsNotExist(err) {
		t.Fatalf("temp dir should be gone, stat err=%v", err)
	}

	wb, err := sheet.Open(dirs.InfoPath())
	if err != nil {
		t.Fatal(err)
	}
	info := wb.First()
	if len(info.Rows) != 2 {
		t.Fatalf("info rows=%d", len(info.Rows))
	}
	checks := map[string]string{
		"FILENO":                 "S2403001",
		"Loading Port Code":      "CNSHA",
		"Destination Code":       "USLAX",
		"Booking No":             "SZX2403001",
		"Supplier Name":          "SRTS",
		"Client Name":            "Alpha Co",
		"Standard Freight Price": "1500",
	}
	for col, want := range checks {
		if got := info.Value(0, col); got != want {
			t.Fatalf("%s: got %q want %q", col, got, want)
		}
	}
	if got := info.Value(1, "Standard Freight Price"); got != "N/A" {
		t.Fatalf("reefer line price %q", got)
	}

	row, _ := db.GetEmailByID(email.ID)
	if row.Status != "processed" {
		t.Fatalf("email status %q", row.Status)
	}
	docs, _ := db.ListDocuments(email.ID)
	if len(docs) != 2 {
		t.Fatalf("documents=%d", len(docs))
	}
	runs, err := db.ListRuns(1)
	if err != nil || len(runs) != 1 || runs[0].Status != "success" || runs[0].Counts["extracted"] != 1 {
		t.Fatalf("runs=%+v err=%v", runs, err)
	}
}

func TestRunWithNothingPending(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	cfg, _ := config.Load()
	cfg.WorkDir = tmp
	runner := NewRunner(db, cfg, nil, NewProcessingService(db, nil, nil, nil), nil)
	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Summary.Status() != "no data" {
		t.Fatalf("status %q", report.Summary.Status())
	}
	if _, err := os.Stat(report.Dirs.InfoPath()); !os.IsNotExist(err) {
		t.Fatalf("info.xlsx should not be written")
	}
	if len(report.Outputs) != 1 {
		t.Fatalf("outputs %v", report.Outputs)
	}
}
