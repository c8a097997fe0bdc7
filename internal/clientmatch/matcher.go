// Package clientmatch resolves the client of each invoice row by looking its
// booking, OBL and HBL numbers up in the booking list.
package clientmatch

import (
	"fmt"
	"log/slog"

	"freightdesk/internal"
	"freightdesk/internal/sheet"
	"freightdesk/internal/util"
)

const NoClientMapping = "no client mapping"

var clientHeaderProbes = []string{"Client", "Customer", "Cnee", "Consignee"}

type Stats struct {
	Total    int
	NoMatch  int
	Single   int
	Multiple int
}

func (s *Stats) add(matches int) {
	s.Total++
	switch {
	case matches == 0:
		s.NoMatch++
	case matches == 1:
		s.Single++
	default:
		s.Multiple++
	}
}

// LoadSources flattens every sheet of the booking list into source records
// in sheet then row order. Sheets without a client column are skipped.
func LoadSources(wb *sheet.Workbook, logger *slog.Logger) []internal.SourceRecord {
	if logger == nil {
		logger = slog.Default()
	}
	out := []internal.SourceRecord{}
	for _, t := range wb.Sheets {
		clientIdx := util.FindHeaderIndex(t.Headers, clientHeaderProbes)
		if clientIdx < 0 {
			logger.Warn("clients.sheet.skipped", "sheet", t.Name, "reason", "no client column")
			continue
		}
		for i, row := range t.Rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				if n := util.NormalizeCell(c); n != "" {
					cells = append(cells, n)
				}
			}
			out = append(out, internal.SourceRecord{
				SheetName: t.Name,
				RowIndex:  i + 2,
				Cells:     cells,
				Client:    util.SafeString(t.Get(i, clientIdx)),
			})
		}
		logger.Debug("clients.sheet.loaded", "sheet", t.Name, "rows", len(t.Rows), "client_column", t.Headers[clientIdx])
	}
	return out
}

// targetKeys returns the non-empty uppercased lookup keys of a target.
func targetKeys(t internal.TargetRecord) []string {
	keys := make([]string, 0, 3)
	for _, v := range []string{t.BookingNo, t.OBL, t.HBL} {
		if k := util.NormalizeCell(util.SafeString(v)); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func rowMatches(cells []string, keys []string) bool {
	for _, c := range cells {
		for _, k := range keys {
			if c == k {
				return true
			}
		}
	}
	return false
}

// Resolve scans every source row for every target, so it costs
// O(targets x source rows). Index gives the same answers for large lists.
func Resolve(targets []internal.TargetRecord, sources []internal.SourceRecord) ([]internal.ClientResolution, Stats) {
	out := make([]internal.ClientResolution, 0, len(targets))
	var stats Stats
	for _, t := range targets {
		keys := targetKeys(t)
		var matched []int
		if len(keys) > 0 {
			for i, src := range sources {
				if rowMatches(src.Cells, keys) {
					matched = append(matched, i)
				}
			}
		}
		res := resolution(sources, matched)
		stats.add(res.Matches)
		out = append(out, res)
	}
	return out, stats
}

// resolution picks the first match in scan order and flags ambiguity.
func resolution(sources []internal.SourceRecord, matched []int) internal.ClientResolution {
	if len(matched) == 0 {
		return internal.ClientResolution{ClientName: NoClientMapping}
	}
	first := sources[matched[0]]
	res := internal.ClientResolution{
		ClientName: first.Client,
		Position:   fmt.Sprintf("%s-row%d", first.SheetName, first.RowIndex),
		Matches:    len(matched),
	}
	if len(matched) > 1 {
		res.Note = fmt.Sprintf("Warning: Multiple matches found (%d)", len(matched))
	}
	return res
}
