// Package pricing looks up the contracted freight rate for invoice lines in
// the carrier rate table.
package pricing

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"freightdesk/internal"
	"freightdesk/internal/sheet"
	"freightdesk/internal/util"
)

var ErrNoRateData = errors.New("rate table has no data rows")

var containerHeaderMarkers = []string{"20GP", "40GP", "40HQ"}

// Table is a loaded rate table. It is read-only once built and may be
// shared between matchers.
type Table struct {
	Headers []string
	Columns Columns
	Entries []internal.RateEntry

	carriers []string
}

// LoadRateTableFile opens the workbook at path and loads it.
func LoadRateTableFile(path string, logger *slog.Logger) (*Table, error) {
	wb, err := sheet.Open(path)
	if err != nil {
		return nil, err
	}
	return LoadRateTable(wb, logger)
}

// LoadRateTable concatenates the data rows of every sheet, aligning later
// sheets to the header names seen first.
func LoadRateTable(wb *sheet.Workbook, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var headers []string
	position := map[string]int{}
	type rawRow struct {
		sheet string
		row   int
		cells []string
	}
	var rows []rawRow

	for _, t := range wb.Sheets {
		if len(t.Rows) == 0 {
			logger.Debug("pricing.sheet.empty", "sheet", t.Name)
			continue
		}
		colMap := make([]int, len(t.Headers))
		for i, h := range t.Headers {
			name := cleanHeader(h)
			idx, ok := position[name]
			if !ok {
				idx = len(headers)
				position[name] = idx
				headers = append(headers, name)
			}
			colMap[i] = idx
		}
		for j, r := range t.Rows {
			cells := make([]string, len(headers))
			for i, v := range r {
				if i < len(colMap) {
					cells[colMap[i]] = v
				}
			}
			rows = append(rows, rawRow{sheet: t.Name, row: j + 2, cells: cells})
		}
		logger.Debug("pricing.sheet.loaded", "sheet", t.Name, "rows", len(t.Rows))
	}
	if len(rows) == 0 {
		return nil, ErrNoRateData
	}

	cols, err := DiscoverColumns(headers)
	if err != nil {
		return nil, err
	}
	logger.Info("pricing.columns",
		"carrier", headers[cols.Carrier], "pol", headers[cols.POL], "pod", headers[cols.POD],
		"effective", headers[cols.Effective], "expiry", headers[cols.Expiry])

	tbl := &Table{Headers: headers, Columns: cols}
	for _, r := range rows {
		cells := make([]string, len(headers))
		copy(cells, r.cells)

		entry := internal.RateEntry{
			Row:       r.row,
			Sheet:     r.sheet,
			Carrier:   util.NormalizeCell(cells[cols.Carrier]),
			POLCode:   util.NormalizeCell(cells[cols.POL]),
			PODCode:   util.NormalizeCell(cells[cols.POD]),
			Effective: util.MinDate,
			Expiry:    util.MaxDate,
			Prices:    map[string]decimal.Decimal{},
		}
		if d, ok := util.ParseDate(cells[cols.Effective]); ok {
			entry.Effective = d
		}
		if d, ok := util.ParseDate(cells[cols.Expiry]); ok {
			entry.Expiry = d
		}
		for c, h := range headers {
			if p, ok := util.ParsePrice(cells[c]); ok {
				entry.Prices[h] = p
			}
		}
		tbl.Entries = append(tbl.Entries, entry)
		tbl.carriers = append(tbl.carriers, util.CanonicalCarrier(entry.Carrier))
	}
	logger.Info("pricing.table.loaded", "rows", len(tbl.Entries), "columns", len(headers))
	return tbl, nil
}

// cleanHeader trims a header and drops all spaces, full-width ones
// included, from container price headers.
func cleanHeader(h string) string {
	h = strings.TrimSpace(h)
	compact := strings.ReplaceAll(strings.ReplaceAll(h, " ", ""), "\u3000", "")
	if util.ContainsAny(strings.ToUpper(compact), containerHeaderMarkers) {
		return compact
	}
	return h
}

// Match finds the first rate row valid for the line and returns its price
// for the line's container type.
func (t *Table) Match(line internal.InvoiceLine) internal.PriceResult {
	carrier := util.CanonicalCarrier(line.Carrier)
	pol := util.NormalizeCell(util.SafeString(line.LoadingPortCode))
	dest := util.NormalizeCell(util.SafeString(line.DestinationCode))
	if carrier == "" || pol == "" || dest == "" || util.SafeString(line.ETD) == "" {
		return notFound("missing key field")
	}
	etd, ok := util.ParseDate(line.ETD)
	if !ok {
		return notFound("unparseable ETD")
	}
	container := util.NormalizeContainerTypeRich(line.ContainerType)
	if container == util.ContainerUnknown {
		return notFound("unknown container type")
	}

	for i, e := range t.Entries {
		if t.carriers[i] != carrier || e.POLCode != pol || !strings.Contains(e.PODCode, dest) {
			continue
		}
		if etd.Before(e.Effective) || etd.After(e.Expiry) {
			continue
		}
		col, ok := ResolvePriceColumn(t.Headers, container)
		if !ok {
			return internal.PriceResult{Status: internal.PriceNotFound, Container: container, RateSheet: e.Sheet, RateRow: e.Row,
				Reason: fmt.Sprintf("no price column for %s", container)}
		}
		price, ok := e.Prices[t.Headers[col]]
		if !ok {
			return internal.PriceResult{Status: internal.PriceNotFound, Container: container, RateSheet: e.Sheet, RateRow: e.Row,
				Reason: fmt.Sprintf("empty price in column %s", t.Headers[col])}
		}
		return internal.PriceResult{Status: internal.PriceFound, Price: price, Container: container, RateSheet: e.Sheet, RateRow: e.Row}
	}
	return internal.PriceResult{Status: internal.PriceNotFound, Container: container, Reason: "no matching rate"}
}

func notFound(reason string) internal.PriceResult {
	return internal.PriceResult{Status: internal.PriceNotFound, Reason: reason}
}
