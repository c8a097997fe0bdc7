package pipeline

import (
	"strings"

	"freightdesk/internal"
	"freightdesk/internal/util"
)

var (
	invoiceKeywords = []string{"INVOICE", "DEBIT NOTE", "TAX RECEIPT", "PAYMENT REQUEST", "CREDIT NOTE"}
	blKeywords      = []string{"BILL OF LADING", "WAYBILL", "TELEX RELEASE", "CARGO RECEIPT"}
	moneyKeywords   = []string{"TOTAL", "AMOUNT DUE", "GRAND TOTAL", "BALANCE", "SUBTOTAL"}

	fileNameBLMarkers = []string{"HBL", "MBL"}
)

// titleWindow is how far into the text a "BILL OF LADING" title still counts
// as the document heading.
const titleWindow = 500

type classifyInput struct {
	text      string
	name      string
	isInvoice bool
	isBL      bool
	hasMoney  bool
}

type classifyRule struct {
	Name     string
	When     func(in classifyInput) bool
	Category internal.Category
}

// classifyRules is evaluated in order; the first rule that holds decides.
var classifyRules = []classifyRule{
	{
		Name:     "bank_details",
		When:     func(in classifyInput) bool { return strings.Contains(in.text, "BANK DETAILS") },
		Category: internal.CategoryIgnore,
	},
	{
		Name: "file_name_bl",
		When: func(in classifyInput) bool {
			return util.ContainsAny(in.name, fileNameBLMarkers) && !strings.Contains(in.name, "INVOICE")
		},
		Category: internal.CategoryBL,
	},
	{
		Name: "conflict_title_bl",
		When: func(in classifyInput) bool {
			return in.isInvoice && in.isBL && strings.Contains(headRunes(in.text, titleWindow), "BILL OF LADING")
		},
		Category: internal.CategoryBL,
	},
	{
		Name:     "conflict_money",
		When:     func(in classifyInput) bool { return in.isInvoice && in.isBL && in.hasMoney },
		Category: internal.CategoryInvoice,
	},
	{
		Name:     "conflict_default_bl",
		When:     func(in classifyInput) bool { return in.isInvoice && in.isBL },
		Category: internal.CategoryBL,
	},
	{
		Name:     "invoice_keywords",
		When:     func(in classifyInput) bool { return in.isInvoice },
		Category: internal.CategoryInvoice,
	},
	{
		Name:     "bl_keywords",
		When:     func(in classifyInput) bool { return in.isBL },
		Category: internal.CategoryBL,
	},
}

type ClassifyResult struct {
	Category internal.Category
	Rule     string
}

// Classify decides the document category from first-page text and file
// name. A nil text means the page could not be read.
func Classify(rawText *string, fileName string) internal.Category {
	return ClassifyWithRule(rawText, fileName).Category
}

func ClassifyWithRule(rawText *string, fileName string) ClassifyResult {
	if rawText == nil {
		return ClassifyResult{Category: internal.CategoryUnknown, Rule: "unreadable"}
	}
	text := strings.ToUpper(*rawText)
	in := classifyInput{
		text:      text,
		name:      strings.ToUpper(fileName),
		isInvoice: util.ContainsAny(text, invoiceKeywords),
		isBL:      util.ContainsAny(text, blKeywords),
		hasMoney:  util.ContainsAny(text, moneyKeywords),
	}
	for _, rule := range classifyRules {
		if rule.When(in) {
			return ClassifyResult{Category: rule.Category, Rule: rule.Name}
		}
	}
	return ClassifyResult{Category: internal.CategoryUnknown, Rule: "no_keywords"}
}

// ClassifyPDF classifies raw PDF bytes by their first page.
func ClassifyPDF(content []byte, fileName string) ClassifyResult {
	return ClassifyWithRule(FirstPageText(content), fileName)
}

func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}
