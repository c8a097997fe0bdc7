package imap

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"freightdesk/internal"
	"freightdesk/internal/config"
)

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	markSeen bool
	logger   *slog.Logger
}

func NewConnector(cfg config.Config, logger *slog.Logger) (*Connector, error) {
	if err := cfg.Require("IMAP_HOST", cfg.IMAPHost); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_USER", cfg.IMAPUser); err != nil {
		return nil, err
	}
	if err := cfg.Require("IMAP_PASSWORD", cfg.IMAPPassword); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
		logger:   logger,
	}, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	if c.secure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	}
	return imapclient.Dial(addr)
}

// FetchInbox returns the newest unseen messages of the folder, at most max
// of them. Cancelling ctx drops the connection.
func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	client, err := c.dial()
	if err != nil {
		return nil, fmt.Errorf("imap dial %s: %w", c.host, err)
	}
	defer client.Logout()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = client.Terminate()
		case <-stop:
		}
	}()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, fmt.Errorf("imap login: %w", err)
	}

	if _, err := client.Select(label, false); err != nil {
		return nil, fmt.Errorf("imap select %s: %w", label, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, err
	}
	c.logger.Info("imap.unseen", "folder", label, "count", len(ids))
	if len(ids) == 0 {
		return nil, nil
	}

	if max > 0 && len(ids) > max {
		ids = ids[len(ids)-max:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(ids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out := make([]internal.FetchedMailMessage, 0, len(ids))
	seen := new(imap.SeqSet)
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		out = append(out, toFetched(msg, raw))
		seen.AddNum(msg.SeqNum)
	}

	if err := <-fetchDone; err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}

	if c.markSeen && !seen.Empty() {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.Store(seen, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, fmt.Errorf("imap mark seen: %w", err)
		}
	}

	return out, nil
}

func toFetched(msg *imap.Message, raw []byte) internal.FetchedMailMessage {
	messageID := ""
	subject := ""
	from := ""
	if msg.Envelope != nil {
		messageID = msg.Envelope.MessageId
		subject = msg.Envelope.Subject
		from = formatAddresses(msg.Envelope.From)
	}
	if messageID == "" {
		messageID = fmt.Sprintf("imap-%d", msg.Uid)
	}

	received := time.Now().UTC().Format(time.RFC3339)
	if !msg.InternalDate.IsZero() {
		received = msg.InternalDate.UTC().Format(time.RFC3339)
	}

	return internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  messageID,
		Subject:    subject,
		From:       from,
		ReceivedAt: received,
		Raw:        raw,
	}
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(a.MailboxName+"@"+a.HostName, "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
