package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// FirstPageText returns the plain text of page one, or nil when the PDF
// cannot be read or has no pages. The PDF reader can panic on malformed
// input; that is treated as unreadable too.
func FirstPageText(content []byte) (text *string) {
	defer func() {
		if recover() != nil {
			text = nil
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil || r.NumPage() == 0 {
		return nil
	}
	p := r.Page(1)
	if p.V.IsNull() {
		return nil
	}
	s, err := p.GetPlainText(nil)
	if err != nil {
		return nil
	}
	return &s
}

// FullText concatenates the text of every page, one page per block.
func FullText(content []byte) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("read pdf: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pageText, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	return b.String(), nil
}
