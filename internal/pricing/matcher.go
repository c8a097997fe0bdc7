package pricing

import (
	"fmt"
	"log/slog"

	"freightdesk/internal"
	"freightdesk/internal/sheet"
)

const ColStandardPrice = "Standard Freight Price"

type Stats struct {
	Total    int
	Matched  int
	NotFound int
}

// MatchPrices prices every line against the table. Failures never stop the
// batch; each one is logged with the fields that identify the line.
func MatchPrices(lines []internal.InvoiceLine, table *Table, logger *slog.Logger) ([]internal.PriceResult, Stats) {
	if logger == nil {
		logger = slog.Default()
	}
	out := make([]internal.PriceResult, 0, len(lines))
	var stats Stats
	for _, line := range lines {
		res := table.Match(line)
		stats.Total++
		if res.Status == internal.PriceFound {
			stats.Matched++
			logger.Debug("pricing.match.found", "row", line.Row, "price", res.Price.String(), "container", res.Container,
				"rate_sheet", res.RateSheet, "rate_row", res.RateRow)
		} else {
			stats.NotFound++
			logger.Info("pricing.match.not_found",
				"row", line.Row,
				"reason", res.Reason,
				"etd", line.ETD,
				"carrier", line.Carrier,
				"pol", line.LoadingPortCode,
				"pod", line.DestinationCode,
				"container", line.ContainerType,
				"rate_sheet", res.RateSheet,
				"rate_row", res.RateRow)
		}
		out = append(out, res)
	}
	return out, stats
}

// ApplyToWorkbook writes the standard freight price of every info.xlsx row
// and saves the file in place.
func ApplyToWorkbook(infoPath string, table *Table, logger *slog.Logger) (Stats, error) {
	if logger == nil {
		logger = slog.Default()
	}
	wb, err := sheet.Open(infoPath)
	if err != nil {
		return Stats{}, err
	}
	info := wb.First()
	if info == nil {
		return Stats{}, fmt.Errorf("%s: no worksheet with a header row", infoPath)
	}
	cols, err := info.Require("ETD", "Carrier", "Loading Port Code", "Destination Code", "Container Type")
	if err != nil {
		return Stats{}, err
	}

	lines := make([]internal.InvoiceLine, len(info.Rows))
	for i := range info.Rows {
		lines[i] = internal.InvoiceLine{
			Row:             i + 2,
			ETD:             info.Get(i, cols[0]),
			Carrier:         info.Get(i, cols[1]),
			LoadingPortCode: info.Get(i, cols[2]),
			DestinationCode: info.Get(i, cols[3]),
			ContainerType:   info.Get(i, cols[4]),
			Quantity:        info.Value(i, "Quantity"),
			UnitPrice:       info.Value(i, "Unit Price"),
			Amount:          info.Value(i, "Amount"),
		}
	}

	results, stats := MatchPrices(lines, table, logger)
	priceCol := info.EnsureColumn(ColStandardPrice)
	for i, res := range results {
		info.Set(i, priceCol, res.String())
	}

	if err := sheet.WriteXLSX(infoPath, sheet.WriteOptions{NumericColumns: internal.InfoNumericColumns}, wb.Sheets...); err != nil {
		return stats, err
	}
	logger.Info("pricing.apply.done", "total", stats.Total, "matched", stats.Matched, "not_found", stats.NotFound)
	return stats, nil
}
