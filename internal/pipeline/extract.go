package pipeline

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"

	"freightdesk/internal"
	"freightdesk/internal/util"
)

var bankDetailMarkers = []string{"bank detail", "bank_detail"}

// ParseMessage reads a raw RFC 822 message. The body is the text part, or
// the HTML part rendered to text when there is no text part. Only PDF
// attachments that are not bank detail sheets are kept.
func ParseMessage(raw []byte) (internal.ExtractedMessage, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return internal.ExtractedMessage{}, fmt.Errorf("parse message: %w", err)
	}

	// enmime fills Text from the HTML part when no text part exists; the
	// goquery rendering keeps table rows on one line each.
	body := env.Text
	if env.HTML != "" && !hasTextPart(env) {
		body = htmlToText(env.HTML)
	}
	body = CleanMessageText(body)
	subject := env.GetHeader("Subject")

	msg := internal.ExtractedMessage{
		Subject:   subject,
		From:      env.GetHeader("From"),
		Body:      body,
		BookingNo: ExtractBooking(body),
		OrderNo:   ExtractOrderNo(subject),
		Supplier:  DetectSupplier(subject, body),
	}

	parts := append(append([]*enmime.Part{}, env.Attachments...), env.Inlines...)
	for _, part := range parts {
		name := strings.TrimSpace(part.FileName)
		if !IsCandidateAttachment(name) {
			continue
		}
		msg.Attachments = append(msg.Attachments, internal.Attachment{FileName: name, Content: part.Content})
	}
	return msg, nil
}

func hasTextPart(env *enmime.Envelope) bool {
	if env.Root == nil {
		return false
	}
	return env.Root.BreadthMatchFirst(func(p *enmime.Part) bool {
		return p.ContentType == "text/plain" && p.Disposition != "attachment"
	}) != nil
}

// IsCandidateAttachment reports whether an attachment name is a PDF worth
// classifying.
func IsCandidateAttachment(name string) bool {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".pdf") {
		return false
	}
	return !util.ContainsAny(lower, bankDetailMarkers)
}

func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script,style,head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p,div,tr,li,h1,h2,h3,h4,table").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("td,th").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	lines := strings.Split(doc.Text(), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if l := util.NormalizeSpaces(line); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
