package imap

import (
	"testing"
	"time"

	"github.com/emersion/go-imap"
)

func TestToFetched(t *testing.T) {
	received := time.Date(2024, 3, 15, 8, 30, 0, 0, time.FixedZone("CST", 8*3600))
	msg := &imap.Message{
		Uid:          42,
		InternalDate: received,
		Envelope: &imap.Envelope{
			Subject: "INVOICE S2403",
			From: []*imap.Address{
				{PersonalName: "SRTS Ops", MailboxName: "ops", HostName: "srts.test"},
				{MailboxName: "noreply", HostName: "srts.test"},
			},
		},
	}
	got := toFetched(msg, []byte("raw"))
	if got.MessageID != "imap-42" {
		t.Fatalf("message id %q", got.MessageID)
	}
	if got.From != "SRTS Ops <ops@srts.test>, noreply@srts.test" {
		t.Fatalf("from %q", got.From)
	}
	if got.ReceivedAt != "2024-03-15T00:30:00Z" {
		t.Fatalf("received %q", got.ReceivedAt)
	}
}
