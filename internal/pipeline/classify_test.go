package pipeline

import (
	"strings"
	"testing"

	"freightdesk/internal"
)

func strPtr(s string) *string { return &s }

func TestClassify(t *testing.T) {
	longPrefix := strings.Repeat("x", 600)
	cases := []struct {
		name     string
		text     *string
		fileName string
		want     internal.Category
		rule     string
	}{
		{"unreadable", nil, "a.pdf", internal.CategoryUnknown, "unreadable"},
		{"bank details wins", strPtr("INVOICE total\nBank Details: HSBC"), "invoice 1.pdf", internal.CategoryIgnore, "bank_details"},
		{"hbl file name", strPtr("some page"), "HBL123.pdf", internal.CategoryBL, "file_name_bl"},
		{"hbl invoice file name", strPtr("Debit note"), "invoice HBL123.pdf", internal.CategoryInvoice, "invoice_keywords"},
		{"title bill of lading", strPtr("BILL OF LADING\nsee invoice, total 100"), "doc.pdf", internal.CategoryBL, "conflict_title_bl"},
		{"invoice quoting bl", strPtr(longPrefix + " invoice bill of lading grand total"), "doc.pdf", internal.CategoryInvoice, "conflict_money"},
		{"conflict without money", strPtr(longPrefix + " invoice waybill"), "doc.pdf", internal.CategoryBL, "conflict_default_bl"},
		{"plain invoice", strPtr("Commercial Invoice\nTotal USD 100"), "doc.pdf", internal.CategoryInvoice, "invoice_keywords"},
		{"telex release", strPtr("TELEX RELEASE"), "doc.pdf", internal.CategoryBL, "bl_keywords"},
		{"nothing", strPtr("hello"), "doc.pdf", internal.CategoryUnknown, "no_keywords"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyWithRule(tc.text, tc.fileName)
			if got.Category != tc.want || got.Rule != tc.rule {
				t.Fatalf("got %s/%s want %s/%s", got.Category, got.Rule, tc.want, tc.rule)
			}
			if again := Classify(tc.text, tc.fileName); again != got.Category {
				t.Fatalf("not idempotent: %s then %s", got.Category, again)
			}
		})
	}
}

func TestClassifyRuleOrder(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range classifyRules {
		if seen[r.Name] {
			t.Fatalf("duplicate rule %s", r.Name)
		}
		seen[r.Name] = true
	}
	if classifyRules[0].Category != internal.CategoryIgnore {
		t.Fatalf("junk detection must run first")
	}
}

func TestClassifyPDFUnreadable(t *testing.T) {
	got := ClassifyPDF([]byte("not a pdf"), "x.pdf")
	if got.Category != internal.CategoryUnknown {
		t.Fatalf("got %s", got.Category)
	}
}

func TestClassifyTitleWindowEdge(t *testing.T) {
	const title = "BILL OF LADING"
	tail := " invoice total usd 100"

	inside := strings.Repeat("x", titleWindow-len(title)) + title + tail
	if got := ClassifyWithRule(&inside, "doc.pdf"); got.Category != internal.CategoryBL || got.Rule != "conflict_title_bl" {
		t.Fatalf("title ending at rune %d: got %+v", titleWindow, got)
	}

	outside := strings.Repeat("x", titleWindow-len(title)+1) + title + tail
	if got := ClassifyWithRule(&outside, "doc.pdf"); got.Category != internal.CategoryInvoice || got.Rule != "conflict_money" {
		t.Fatalf("title ending at rune %d: got %+v", titleWindow+1, got)
	}
}
