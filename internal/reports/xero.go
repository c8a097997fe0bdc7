package reports

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"freightdesk/internal/sheet"
	"freightdesk/internal/util"
)

const (
	XeroAccountCode = "310"
	XeroTaxType     = "Tax on Purchases"
	XeroCurrency    = "USD"
)

var XeroHeaders = []string{
	"*ContactName", "EmailAddress", "POAddressLine1", "POAddressLine2",
	"POAddressLine3", "POAddressLine4", "POCity", "PORegion",
	"POPostalCode", "POCountry", "*InvoiceNumber", "*InvoiceDate",
	"*DueDate", "Total", "InventoryItemCode", "Description",
	"*Quantity", "*UnitAmount", "*AccountCode", "*TaxType",
	"TaxAmount", "TrackingName1", "TrackingOption1", "TrackingName2",
	"TrackingOption2", "Currency",
}

// XeroRows builds one bill line per info.xlsx row, in XeroHeaders order.
func XeroRows(info *sheet.Table, opts Options) [][]string {
	opts = opts.withDefaults()
	col := map[string]int{}
	for i, h := range XeroHeaders {
		col[h] = i
	}

	out := make([][]string, 0, len(info.Rows))
	for i := range info.Rows {
		r := rowReader{t: info, row: i}
		cells := make([]string, len(XeroHeaders))
		set := func(header, v string) { cells[col[header]] = v }

		supplier := r.get("Supplier Name")
		invoiceDate := r.get("DATE", "Date", "Invoice Date")

		unitAmount := util.CleanPrice(r.get("Unit Price"))
		quantity := r.get("Quantity")
		amount := util.CleanPrice(r.get("Amount"))
		if unitAmount.IsZero() && amount.IsPositive() {
			unitAmount = amount
			quantity = "1"
		}

		set("*ContactName", util.MapSupplierName(supplier))
		set("*InvoiceNumber", util.SafeJoin([]string{r.get("File No"), r.get("OBL"), r.get("HBL")}, "/"))
		set("*InvoiceDate", util.FormatDate(invoiceDate, XeroDateLayout))
		set("*DueDate", dueDate(r, supplier, invoiceDate, opts))
		set("Description", r.get("Item", "Description", "Fee Name"))
		set("*Quantity", quantity)
		if unitAmount.IsPositive() {
			set("*UnitAmount", unitAmount.String())
		}
		set("*AccountCode", XeroAccountCode)
		set("*TaxType", XeroTaxType)
		set("TaxAmount", "0")
		set("Currency", util.FirstNonEmpty(r.get("Currency"), XeroCurrency))

		out = append(out, cells)
	}
	return out
}

// dueDate is ETA plus SRTSDueDays for SRTS, otherwise the invoice's own due
// date; both fall back to the invoice date plus XeroDueDays.
func dueDate(r rowReader, supplier, invoiceDate string, opts Options) string {
	if strings.Contains(strings.ToUpper(supplier), "SRTS") {
		if d := util.AddDays(r.get("ETA"), opts.SRTSDueDays, XeroDateLayout); d != "" {
			return d
		}
		return util.AddDays(invoiceDate, opts.XeroDueDays, XeroDateLayout)
	}
	if due := r.get("Due Date"); due != "" {
		return util.FormatDate(due, XeroDateLayout)
	}
	return util.AddDays(invoiceDate, opts.XeroDueDays, XeroDateLayout)
}

// WriteXeroCSV writes the bill CSV as UTF-8 with a byte order mark so that
// spreadsheet tools pick the right encoding.
func WriteXeroCSV(info *sheet.Table, path string, opts Options) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString("\ufeff"); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(XeroHeaders); err != nil {
		return err
	}
	if err := w.WriteAll(XeroRows(info, opts)); err != nil {
		return err
	}
	return f.Close()
}
