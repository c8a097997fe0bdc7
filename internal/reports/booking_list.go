package reports

import (
	"github.com/shopspring/decimal"

	"freightdesk/internal/sheet"
	"freightdesk/internal/util"
)

var BookingListHeaders = []string{
	"Type", "From/to", "todo", "check rate", "POL", "POD", "Carrier for SRTS",
	"File no", "MBL", "HBLs", "Booking number matching", "ETD/atd", "ETA",
	"Customer", "INV-Number", "# 20ft", "# 40ft", "# 40ft hq",
	"price 20ft", "price 40ft", "price 40ft hq", "ETS 20ft", "ETS 40ft",
	"ETS HQ", "Other charge per container", "comment on other charge", "total",
	"# 20ft.1", "# 40ft.1", "# 40ft hq.1", "price 20ft.1", "price 40ft.1",
	"price 40ft hq.1", "ets 20ft", "ets 40ft", "ets hq",
	"Other charge per container.1", "Comment on other charge", "Total",
	"Difference", "JC check",
}

var bookingListNumeric = []string{
	"# 20ft", "# 40ft", "# 40ft hq", "price 20ft", "price 40ft", "price 40ft hq", "total",
}

// qtyAndPrice columns per normalized container class.
var containerColumns = map[string][2]string{
	util.Container20GP: {"# 20ft", "price 20ft"},
	util.Container40GP: {"# 40ft", "price 40ft"},
	util.Container40HQ: {"# 40ft hq", "price 40ft hq"},
}

// BookingList maps every info.xlsx row to an internal booking list row.
func BookingList(info *sheet.Table) *sheet.Table {
	out := &sheet.Table{Name: "Sheet1", Headers: BookingListHeaders}
	col := map[string]int{}
	for i, h := range BookingListHeaders {
		if _, dup := col[h]; !dup {
			col[h] = i
		}
	}

	for i := range info.Rows {
		r := rowReader{t: info, row: i}
		cells := make([]string, len(BookingListHeaders))
		set := func(header, v string) { cells[col[header]] = v }

		container := util.NormalizeContainerTypeRich(r.get("Container Type"))
		quantity := r.get("Quantity")
		unitPrice := util.CleanPrice(r.get("Unit Price"))
		amount := util.CleanPrice(r.get("Amount"))
		if (quantity == "" || quantity == "0") && unitPrice.IsZero() && amount.IsPositive() {
			quantity = "1"
			unitPrice = amount
		}

		if cols, ok := containerColumns[container]; ok {
			set(cols[0], quantity)
			if unitPrice.IsPositive() {
				set(cols[1], unitPrice.String())
			}
		}
		if qty, err := decimal.NewFromString(quantity); err == nil && qty.IsPositive() && unitPrice.IsPositive() {
			set("total", unitPrice.Mul(qty).String())
		}

		set("Type", "Bill")
		set("From/to", r.get("Supplier Name"))
		set("check rate", "Checked/correct")
		set("POL", r.get("Loading Port"))
		set("POD", r.get("Destination"))
		set("Carrier for SRTS", r.get("Carrier"))
		set("File no", r.get("File No", "FILENO"))
		set("MBL", r.get("OBL"))
		set("HBLs", r.get("HBL"))
		set("Booking number matching", r.get("Booking No", "Booking No."))
		set("ETD/atd", r.get("ETD"))
		set("ETA", r.get("ETA"))
		set("Customer", r.get("Client Name"))

		out.Rows = append(out.Rows, cells)
	}
	return out
}

func WriteBookingList(info *sheet.Table, path string) error {
	return sheet.WriteXLSX(path, sheet.WriteOptions{NumericColumns: bookingListNumeric}, BookingList(info))
}
