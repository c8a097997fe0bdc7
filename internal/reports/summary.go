package reports

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"freightdesk/internal/sheet"
)

// Summary is the one-row record of a pipeline run.
type Summary struct {
	StartedAt    time.Time
	Duration     time.Duration
	Emails       int
	Extracted    int
	ClientsFound int
	PricesFound  int
}

func (s Summary) Status() string {
	if s.Extracted > 0 {
		return "success"
	}
	return "no data"
}

// SummaryPath is where the run summary for dir and day is written.
func SummaryPath(dir string, day time.Time) string {
	return filepath.Join(dir, "run_summary_"+day.Format("20060102")+".xlsx")
}

func WriteSummary(path string, s Summary) error {
	t := &sheet.Table{
		Name: "Summary",
		Headers: []string{
			"Run Time", "Duration (s)", "Emails Processed", "Invoices Extracted",
			"Clients Matched", "Prices Matched", "Status",
		},
		Rows: [][]string{{
			s.StartedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.1f", s.Duration.Seconds()),
			strconv.Itoa(s.Emails),
			strconv.Itoa(s.Extracted),
			strconv.Itoa(s.ClientsFound),
			strconv.Itoa(s.PricesFound),
			s.Status(),
		}},
	}
	numeric := []string{"Duration (s)", "Emails Processed", "Invoices Extracted", "Clients Matched", "Prices Matched"}
	return sheet.WriteXLSX(path, sheet.WriteOptions{NumericColumns: numeric}, t)
}
