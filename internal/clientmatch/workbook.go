package clientmatch

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"freightdesk/internal"
	"freightdesk/internal/sheet"
)

const (
	ColClientName = "Client Name"
	ColPosition   = "Booking List Position"
	ColNote       = "Note"
)

// CheckWorkbook fills the client columns of info.xlsx from the booking list
// and saves info.xlsx in place. A missing booking list only skips the step.
func CheckWorkbook(infoPath, bookingListPath string, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bookingListPath == "" {
		logger.Warn("clients.check.skipped", "reason", "booking list not configured")
		return Stats{}, nil
	}
	if _, err := os.Stat(bookingListPath); errors.Is(err, os.ErrNotExist) {
		logger.Warn("clients.check.skipped", "reason", "booking list not found", "path", bookingListPath)
		return Stats{}, nil
	}

	info, err := sheet.Open(infoPath)
	if err != nil {
		return Stats{}, err
	}
	target := info.First()
	if target == nil {
		return Stats{}, fmt.Errorf("%s: no worksheet with a header row", infoPath)
	}
	cols, err := target.Require("OBL", "HBL", "Booking No")
	if err != nil {
		return Stats{}, err
	}

	bookingList, err := sheet.Open(bookingListPath)
	if err != nil {
		return Stats{}, err
	}
	sources := LoadSources(bookingList, logger)
	logger.Info("clients.sources.loaded", "sheets", len(bookingList.Sheets), "rows", len(sources))

	targets := make([]internal.TargetRecord, len(target.Rows))
	for i := range target.Rows {
		targets[i] = internal.TargetRecord{
			OBL:       target.Get(i, cols[0]),
			HBL:       target.Get(i, cols[1]),
			BookingNo: target.Get(i, cols[2]),
		}
	}

	results, stats := BuildIndex(sources).Resolve(targets)

	nameCol := target.EnsureColumn(ColClientName)
	posCol := target.EnsureColumn(ColPosition)
	noteCol := target.EnsureColumn(ColNote)
	for i, res := range results {
		target.Set(i, nameCol, res.ClientName)
		target.Set(i, posCol, res.Position)
		target.Set(i, noteCol, res.Note)
		if res.Matches == 0 {
			logger.Info("clients.match.not_found", "row", i+2, "obl", targets[i].OBL, "hbl", targets[i].HBL, "booking_no", targets[i].BookingNo)
		} else if res.Matches > 1 {
			logger.Warn("clients.match.multiple", "row", i+2, "count", res.Matches, "position", res.Position)
		}
	}

	if err := sheet.WriteXLSX(infoPath, sheet.WriteOptions{NumericColumns: internal.InfoNumericColumns}, info.Sheets...); err != nil {
		return stats, err
	}
	logger.Info("clients.check.done", "total", stats.Total, "no_match", stats.NoMatch, "single", stats.Single, "multiple", stats.Multiple)
	return stats, nil
}
