// Package reports turns a finished info.xlsx into the internal booking list
// workbook and the XERO bill import CSV.
package reports

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"freightdesk/internal/sheet"
	"freightdesk/internal/util"
)

var ErrEmptyInfo = errors.New("info.xlsx has no data rows")

const XeroDateLayout = "2006/01/02"

type Options struct {
	// XeroDueDays is added to the invoice date when no due date is known.
	XeroDueDays int
	// SRTSDueDays is added to the ETA for SRTS bills.
	SRTSDueDays int
}

func (o Options) withDefaults() Options {
	if o.XeroDueDays <= 0 {
		o.XeroDueDays = 30
	}
	if o.SRTSDueDays <= 0 {
		o.SRTSDueDays = 7
	}
	return o
}

// GenerateAll writes internal_booking_list_YYYYMMDD.xlsx and
// XERO_Bill_YYYYMMDD.csv next to info.xlsx and returns their paths.
func GenerateAll(infoPath string, now time.Time, opts Options, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wb, err := sheet.Open(infoPath)
	if err != nil {
		return nil, err
	}
	info := wb.First()
	if info == nil || len(info.Rows) == 0 {
		return nil, fmt.Errorf("%s: %w", infoPath, ErrEmptyInfo)
	}

	dir := filepath.Dir(infoPath)
	suffix := now.Format("20060102")
	bookingPath := filepath.Join(dir, "internal_booking_list_"+suffix+".xlsx")
	xeroPath := filepath.Join(dir, "XERO_Bill_"+suffix+".csv")

	if err := WriteBookingList(info, bookingPath); err != nil {
		return nil, fmt.Errorf("internal booking list: %w", err)
	}
	logger.Info("reports.booking_list.written", "path", bookingPath, "rows", len(info.Rows))

	if err := WriteXeroCSV(info, xeroPath, opts); err != nil {
		return []string{bookingPath}, fmt.Errorf("xero bill: %w", err)
	}
	logger.Info("reports.xero.written", "path", xeroPath, "rows", len(info.Rows))

	return []string{bookingPath, xeroPath}, nil
}

// rowReader reads an info.xlsx row by the first header present among
// alternative spellings.
type rowReader struct {
	t   *sheet.Table
	row int
}

func (r rowReader) get(names ...string) string {
	for _, n := range names {
		if idx := r.t.Col(n); idx >= 0 {
			return util.SafeString(r.t.Get(r.row, idx))
		}
	}
	return ""
}
