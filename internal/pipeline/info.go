package pipeline

import (
	"errors"
	"net/mail"
	"strconv"

	"freightdesk/internal"
	"freightdesk/internal/extraction"
	"freightdesk/internal/reference"
	"freightdesk/internal/sheet"
	"freightdesk/internal/util"
)

const ColSupplierName = "Supplier Name"

// InfoColumns is the info.xlsx layout written by a run.
func InfoColumns() []string {
	return append(append([]string{}, internal.InfoHeaders...), ColSupplierName)
}

// InvoiceSource is what the info rows of one invoice are built from.
type InvoiceSource struct {
	FileName  string
	BookingNo string
	Supplier  internal.SupplierType
	From      string
	Lines     []internal.InvoiceFields
}

// InfoRows renders one info.xlsx row per charge line, keyed by header.
// Port codes come from the ports table when one is given.
func InfoRows(src InvoiceSource, ports *reference.Ports) []map[string]string {
	supplier := supplierName(src.Supplier, src.From)
	out := make([]map[string]string, 0, len(src.Lines))
	for _, f := range src.Lines {
		row := map[string]string{
			"File Name":         src.FileName,
			"FILENO":            util.FirstNonEmpty(f.Get(extraction.FieldInvoiceNo), f.Get(extraction.FieldOriginalFileNo)),
			"File No":           f.Get(extraction.FieldOriginalFileNo),
			"DATE":              f.Get(extraction.FieldDate),
			"Carrier":           f.Get(extraction.FieldCarrier),
			"Vessel/Voyage":     f.Get(extraction.FieldVessel),
			"Loading Port":      f.Get(extraction.FieldLoadingPort),
			"Loading Port Code": "",
			"Destination":       f.Get(extraction.FieldDestination),
			"Destination Code":  "",
			"ETD":               f.Get(extraction.FieldETD),
			"ETA":               f.Get(extraction.FieldETA),
			"Receipt":           f.Get(extraction.FieldReceipt),
			"OBL":               f.Get(extraction.FieldOBL),
			"HBL":               f.Get(extraction.FieldHBL),
			"MBL":               f.Get(extraction.FieldMBL),
			"Item":              f.Get(extraction.FieldItem),
			"Quantity":          f.Get(extraction.FieldQuantity),
			"Unit Price":        f.Get(extraction.FieldUnitPrice),
			"Container Type":    f.Get(extraction.FieldContainerType),
			"Amount":            f.Get(extraction.FieldAmount),
			"Booking No":        src.BookingNo,
			ColSupplierName:     supplier,
		}
		if ports != nil {
			row["Loading Port Code"] = ports.Code(row["Loading Port"])
			row["Destination Code"] = ports.Code(row["Destination"])
		}
		out = append(out, row)
	}
	return out
}

// supplierName is the SRTS tag, or the sender's display name or address.
func supplierName(supplier internal.SupplierType, from string) string {
	if supplier == internal.SupplierSRTS {
		return string(internal.SupplierSRTS)
	}
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return util.SafeString(from)
	}
	return util.FirstNonEmpty(addr.Name, addr.Address)
}

// AppendInfo adds rows to info.xlsx, creating it when missing. Columns added
// by later steps (client, price) are kept; NO is renumbered from 1.
func AppendInfo(path string, rows []map[string]string) error {
	t := &sheet.Table{Name: "Sheet1", Headers: InfoColumns()}
	wb, err := sheet.Open(path)
	switch {
	case err == nil:
		if first := wb.First(); first != nil {
			t = first
		}
		for _, h := range InfoColumns() {
			t.EnsureColumn(h)
		}
	case errors.Is(err, sheet.ErrMissingInput):
	default:
		return err
	}

	for _, row := range rows {
		cells := make([]string, len(t.Headers))
		for i, h := range t.Headers {
			cells[i] = row[h]
		}
		t.AppendRow(cells)
	}

	no := t.Col("NO")
	for r := range t.Rows {
		t.Set(r, no, strconv.Itoa(r+1))
	}
	return sheet.WriteXLSX(path, sheet.WriteOptions{NumericColumns: internal.InfoNumericColumns}, t)
}
