package connectors

import (
	"context"

	"freightdesk/internal"
)

// MailConnector returns unread messages from one mailbox folder or label.
type MailConnector interface {
	FetchInbox(ctx context.Context, label string, max int) ([]internal.FetchedMailMessage, error)
}
