package reports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"freightdesk/internal"
	"freightdesk/internal/sheet"
)

func infoTable() *sheet.Table {
	headers := append(append([]string{}, internal.InfoHeaders...), "Supplier Name", "Client Name")
	t := &sheet.Table{Name: "Sheet1", Headers: headers}
	add := func(values map[string]string) {
		row := make([]string, len(headers))
		for k, v := range values {
			row[t.Col(k)] = v
		}
		t.Rows = append(t.Rows, row)
	}
	add(map[string]string{
		"File No": "F100", "OBL": "OBL1", "HBL": "HBL1", "DATE": "2024/01/15", "ETA": "2024-02-25",
		"Container Type": "2 x 40' HC", "Quantity": "2", "Unit Price": "$1,500.00", "Amount": "3000",
		"Supplier Name": "SRTS Logistics", "Client Name": "Alpha Co", "Item": "Ocean Freight",
		"Loading Port": "Shanghai", "Destination": "Los Angeles", "Carrier": "MSK", "Booking No": "BK1",
	})
	add(map[string]string{
		"FILENO": "S2511", "DATE": "15/01/2024", "Container Type": "20GP", "Amount": "800",
		"Supplier Name": "Acme Shipping",
	})
	return t
}

func TestBookingList(t *testing.T) {
	out := BookingList(infoTable())
	if len(out.Headers) != 41 || len(out.Rows) != 2 {
		t.Fatalf("headers=%d rows=%d", len(out.Headers), len(out.Rows))
	}
	first := out.Rows[0]
	check := func(row []string, header, want string) {
		t.Helper()
		if got := row[out.Col(header)]; got != want {
			t.Fatalf("%s = %q want %q", header, got, want)
		}
	}
	check(first, "Type", "Bill")
	check(first, "From/to", "SRTS Logistics")
	check(first, "# 40ft hq", "2")
	check(first, "price 40ft hq", "1500")
	check(first, "total", "3000")
	check(first, "MBL", "OBL1")
	check(first, "Customer", "Alpha Co")
	check(first, "File no", "F100")

	second := out.Rows[1]
	check(second, "# 20ft", "1")
	check(second, "price 20ft", "800")
	check(second, "total", "800")
	check(second, "File no", "")
}

func TestXeroRows(t *testing.T) {
	rows := XeroRows(infoTable(), Options{})
	col := func(name string) int {
		for i, h := range XeroHeaders {
			if h == name {
				return i
			}
		}
		t.Fatalf("no header %s", name)
		return -1
	}
	first := rows[0]
	want := map[string]string{
		"*ContactName":   "SRTS Far East Ltd",
		"*InvoiceNumber": "F100/OBL1/HBL1",
		"*InvoiceDate":   "2024/01/15",
		"*DueDate":       "2024/03/03",
		"*Quantity":      "2",
		"*UnitAmount":    "1500",
		"*AccountCode":   "310",
		"*TaxType":       "Tax on Purchases",
		"TaxAmount":      "0",
		"Currency":       "USD",
		"Description":    "Ocean Freight",
	}
	for k, v := range want {
		if got := first[col(k)]; got != v {
			t.Fatalf("%s = %q want %q", k, got, v)
		}
	}

	second := rows[1]
	if got := second[col("*DueDate")]; got != "2024/02/14" {
		t.Fatalf("other supplier due date %q", got)
	}
	if got := second[col("*UnitAmount")]; got != "800" || second[col("*Quantity")] != "1" {
		t.Fatalf("amount fallback %q / %q", got, second[col("*Quantity")])
	}
	if got := second[col("*ContactName")]; got != "Acme Shipping" {
		t.Fatalf("contact %q", got)
	}
}

func TestXeroDueDateFromInvoice(t *testing.T) {
	info := &sheet.Table{
		Headers: []string{"Supplier Name", "DATE", "Due Date", "ETA"},
		Rows: [][]string{
			{"Acme", "2024/01/15", "2024-03-31", ""},
			{"SRTS", "2024/01/15", "", ""},
		},
	}
	rows := XeroRows(info, Options{XeroDueDays: 10})
	if rows[0][12] != "2024/03/31" {
		t.Fatalf("due date column %q", rows[0][12])
	}
	if rows[1][12] != "2024/01/25" {
		t.Fatalf("SRTS without ETA %q", rows[1][12])
	}
}

func TestGenerateAll(t *testing.T) {
	dir := t.TempDir()
	infoPath := filepath.Join(dir, "info.xlsx")
	if err := sheet.WriteXLSX(infoPath, sheet.WriteOptions{NumericColumns: internal.InfoNumericColumns}, infoTable()); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	paths, err := GenerateAll(infoPath, now, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "internal_booking_list_20240506.xlsx" || filepath.Base(paths[1]) != "XERO_Bill_20240506.csv" {
		t.Fatalf("paths %v", paths)
	}

	raw, err := os.ReadFile(paths[1])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(raw, []byte("\xef\xbb\xbf")) {
		t.Fatalf("csv has no BOM")
	}
	records, err := csv.NewReader(bytes.NewReader(raw[3:])).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 || len(records[0]) != 26 {
		t.Fatalf("records %d x %d", len(records), len(records[0]))
	}

	wb, err := sheet.Open(paths[0])
	if err != nil {
		t.Fatal(err)
	}
	if got := wb.First().Value(0, "price 40ft hq"); got != "1500" {
		t.Fatalf("booking list price %q", got)
	}
}

func TestGenerateAllEmpty(t *testing.T) {
	infoPath := filepath.Join(t.TempDir(), "info.xlsx")
	if err := sheet.WriteXLSX(infoPath, sheet.WriteOptions{}, &sheet.Table{Name: "Sheet1", Headers: internal.InfoHeaders}); err != nil {
		t.Fatal(err)
	}
	if _, err := GenerateAll(infoPath, time.Now(), Options{}, nil); !errors.Is(err, ErrEmptyInfo) {
		t.Fatalf("got %v", err)
	}
}

func TestWriteSummary(t *testing.T) {
	path := SummaryPath(t.TempDir(), time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC))
	s := Summary{StartedAt: time.Date(2024, 5, 6, 8, 30, 0, 0, time.UTC), Duration: 90 * time.Second, Emails: 3}
	if s.Status() != "no data" {
		t.Fatalf("status %q", s.Status())
	}
	if err := WriteSummary(path, s); err != nil {
		t.Fatal(err)
	}
	wb, err := sheet.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	tbl := wb.First()
	if tbl.Value(0, "Run Time") != "2024-05-06 08:30:00" || tbl.Value(0, "Emails Processed") != "3" {
		t.Fatalf("row %v", tbl.Rows)
	}
}
