package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"freightdesk/internal"
)

// Field keys returned by the model. Header fields repeat on every line.
const (
	FieldInvoiceNo      = "InvoiceNo"
	FieldOriginalFileNo = "OriginalFileNo"
	FieldDate           = "DATE"
	FieldCarrier        = "Carrier"
	FieldLoadingPort    = "loadingport"
	FieldDestination    = "Destination"
	FieldVessel         = "Vessel"
	FieldETD            = "ETD"
	FieldETA            = "ETADate"
	FieldOBL            = "OBL"
	FieldHBL            = "HBL"
	FieldMBL            = "MBL"
	FieldReceipt        = "Receipt"
	FieldItem           = "OCEANFREIGHT"
	FieldQuantity       = "XUSD"
	FieldAmount         = "USD"
	FieldUnitPrice      = "Unit_Price"
	FieldContainerType  = "Container_Type"
)

var ErrEmptyCompletion = errors.New("empty completion")

const systemPrompt = "You extract data from logistics documents. Reply with JSON only."

const instructions = `Analyse the freight invoice text below. It may contain several charge lines.

Return a JSON list of objects, one object per charge line. Every object carries the
invoice header fields and the fields of its own charge line. Use exactly these keys and
null for anything you cannot find.

Header fields (repeat on every object):
- InvoiceNo: number after "INVOICE NO", usually starting with 'S' (e.g. S2511SED...)
- OriginalFileNo: number after "FILE NO."
- DATE: date after "DATE", formatted YYYY/MM/DD
- Carrier: text after "Carrier"
- loadingport: port after "Loading port"
- Destination: port after "Destination" or "Discharge port"
- Vessel: vessel name after "Vessel"
- ETD: date after "ETD"
- ETADate: date after "ETA Date"
- OBL: number after "OBL"
- HBL: number after "HBL"
- MBL: number after "MBL"
- Receipt: place after "Receipt"

Charge line fields:
- OCEANFREIGHT: charge description, usually in the Description column
- XUSD: quantity in front of "X USD", digits only
- USD: line total
- Unit_Price: unit price, e.g. "2042.000" in "2042.000/40' HQ"
- Container_Type: container type, e.g. "40' HQ" in "2042.000/40' HQ"

Rules:
1. Always return a list, even for a single line: [{...}].
2. No Markdown, return the bare JSON text.
3. InvoiceNo is mandatory; prefer the number after "INVOICE NO".`

func buildUserPrompt(text string) string {
	return instructions + "\n\nDocument text:\n" + text
}

// StripFences removes markdown code fences the model sometimes wraps JSON in.
func StripFences(content string) string {
	s := strings.ReplaceAll(content, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// ParseLines decodes a completion into charge lines. A bare object is
// treated as a one-element list. Every line is validated against the
// line schema before it is returned.
func ParseLines(content string) ([]internal.InvoiceFields, error) {
	s := StripFences(content)
	if s == "" {
		return nil, ErrEmptyCompletion
	}
	if strings.HasPrefix(s, "{") {
		s = "[" + s + "]"
	}
	if err := validateLines([]byte(s)); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var lines []internal.InvoiceFields
	if err := dec.Decode(&lines); err != nil {
		return nil, fmt.Errorf("decode lines: %w", err)
	}
	return lines, nil
}
