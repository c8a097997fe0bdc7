package internal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryInvoice Category = "INVOICE"
	CategoryBL      Category = "BL"
	CategoryIgnore  Category = "IGNORE"
	CategoryUnknown Category = "UNKNOWN"
)

type SupplierType string

const (
	SupplierSRTS  SupplierType = "SRTS"
	SupplierOther SupplierType = "OTHER"
)

type Attachment struct {
	FileName string
	Content  []byte
}

// Document is a PDF attachment after classification. Path is set once the
// payload has been written into the run's temp directory.
type Document struct {
	FileName string
	Path     string
	Category Category
	Rule     string
}

type ExtractedMessage struct {
	Subject     string
	From        string
	Body        string
	BookingNo   string
	OrderNo     string
	Supplier    SupplierType
	Attachments []Attachment
}

// SourceRecord is one data row of the booking list. RowIndex is the row
// number a person sees in the spreadsheet, so the first data row is 2.
type SourceRecord struct {
	SheetName string
	RowIndex  int
	Cells     []string
	Client    string
}

type TargetRecord struct {
	OBL       string
	HBL       string
	BookingNo string
}

type ClientResolution struct {
	ClientName string
	Position   string
	Note       string
	Matches    int
}

type RateEntry struct {
	Row       int
	Sheet     string
	Carrier   string
	POLCode   string
	PODCode   string
	Effective time.Time
	Expiry    time.Time
	// Prices is keyed by the rate table header the value came from.
	Prices map[string]decimal.Decimal
}

type InvoiceLine struct {
	Row             int
	ETD             string
	Carrier         string
	LoadingPortCode string
	DestinationCode string
	ContainerType   string
	Quantity        string
	UnitPrice       string
	Amount          string
}

type PriceStatus string

const (
	PriceFound    PriceStatus = "FOUND"
	PriceNotFound PriceStatus = "N/A"
)

// PriceResult carries the rate row that decided it. RateRow is the row
// number seen in RateSheet.
type PriceResult struct {
	Status    PriceStatus
	Price     decimal.Decimal
	Container string
	RateSheet string
	RateRow   int
	Reason    string
}

func (r PriceResult) String() string {
	if r.Status != PriceFound {
		return string(PriceNotFound)
	}
	return r.Price.String()
}

// InvoiceFields is one line item returned by the field-extraction service.
// Header fields are repeated on every line.
type InvoiceFields map[string]any

// Get returns the field as trimmed text; null and missing fields are "".
func (f InvoiceFields) Get(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

type EmailRow struct {
	ID         int
	Provider   string
	MessageID  string
	Subject    string
	Sender     string
	ReceivedAt string
	Hash       string
	Status     string
	RawRef     string
}

type DocumentRow struct {
	ID       int
	EmailID  int
	FileName string
	Path     string
	Category string
	Rule     string
}

type RunRow struct {
	ID      int
	TraceID string
	Status  string
	Timings map[string]float64
	Counts  map[string]int
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type RunStats struct {
	Emails        int
	Failed        int
	Documents     int
	Ignored       int
	Extracted     int
	ClientNone    int
	ClientSingle  int
	ClientMulti   int
	PriceMatched  int
	PriceNotFound int
}

// InfoHeaders is the column layout of info.xlsx as written by a run.
var InfoHeaders = []string{
	"NO", "File Name", "FILENO", "File No", "DATE", "Carrier", "Vessel/Voyage",
	"Loading Port", "Loading Port Code", "Destination", "Destination Code",
	"ETD", "ETA", "Receipt", "OBL", "HBL", "MBL",
	"Item", "Quantity", "Unit Price", "Container Type", "Amount", "Booking No",
}

// InfoNumericColumns are saved as numbers when their cells parse as such.
var InfoNumericColumns = []string{"NO", "Quantity", "Unit Price", "Amount", "Standard Freight Price"}
