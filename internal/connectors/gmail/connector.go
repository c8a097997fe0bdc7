package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"freightdesk/internal"
	"freightdesk/internal/config"
)

// unreadWithPDF narrows the listing to what the pipeline can use.
const unreadWithPDF = "is:unread has:attachment filename:pdf"

type Connector struct {
	service *gmail.Service
	logger  *slog.Logger
}

func NewConnector(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Connector, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &Connector{service: svc, logger: logger}, nil
}

func (c *Connector) FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error) {
	listResp, err := c.service.Users.Messages.List("me").
		LabelIds(label).
		Q(unreadWithPDF).
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}
	c.logger.Info("gmail.unread", "label", label, "count", len(listResp.Messages))

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		msg, err := c.fetchOne(ctx, ref.Id)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			out = append(out, *msg)
		}
	}
	return out, nil
}

func (c *Connector) fetchOne(ctx context.Context, id string) (*internal.FetchedMailMessage, error) {
	rawResp, err := c.service.Users.Messages.Get("me", id).Format("raw").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail get %s: %w", id, err)
	}
	if rawResp.Raw == "" {
		return nil, nil
	}
	rawBytes, err := decodeBase64URL(rawResp.Raw)
	if err != nil {
		return nil, err
	}

	// The raw payload carries its own headers; no second metadata call.
	headers := map[string]string{}
	if parsed, err := mail.ReadMessage(strings.NewReader(string(rawBytes))); err == nil {
		for _, name := range []string{"Subject", "From", "Date", "Message-Id"} {
			headers[strings.ToLower(name)] = parsed.Header.Get(name)
		}
		if dec, err := new(mime.WordDecoder).DecodeHeader(headers["subject"]); err == nil {
			headers["subject"] = dec
		}
	}

	received := time.UnixMilli(rawResp.InternalDate).UTC()
	if rawResp.InternalDate == 0 {
		received = time.Now().UTC()
		if t, err := mail.ParseDate(headers["date"]); err == nil {
			received = t.UTC()
		}
	}

	messageID := headers["message-id"]
	if messageID == "" {
		messageID = id
	}

	return &internal.FetchedMailMessage{
		Provider:   "gmail",
		MessageID:  messageID,
		Subject:    headers["subject"],
		From:       headers["from"],
		ReceivedAt: received.Format(time.RFC3339),
		Raw:        rawBytes,
	}, nil
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}
