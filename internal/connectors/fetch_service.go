package connectors

import (
	"context"
	"log/slog"

	"freightdesk/internal/storage"
)

type FetchService struct {
	db        *storage.DB
	connector MailConnector
	store     *rawStore
	logger    *slog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
	Known   int
}

func NewFetchService(db *storage.DB, rawMailDir string, connector MailConnector, logger *slog.Logger) *FetchService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FetchService{
		db:        db,
		connector: connector,
		store:     newRawStore(db, rawMailDir),
		logger:    logger,
	}
}

// FetchAndStore pulls unread messages and records each one. Messages seen
// in an earlier fetch keep their processing status.
func (s *FetchService) FetchAndStore(ctx context.Context, label string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchInbox(ctx, label, max)
	if err != nil {
		return FetchResult{}, err
	}

	res := FetchResult{Fetched: len(messages)}
	for _, msg := range messages {
		existing, err := s.db.GetEmailByProviderMessageID(msg.Provider, msg.MessageID)
		if err != nil {
			return res, err
		}
		row, err := s.store.Store(msg)
		if err != nil {
			return res, err
		}
		if existing != nil {
			res.Known++
			continue
		}
		res.Stored++
		s.logger.Info("mail.stored", "email_id", row.ID, "provider", row.Provider, "subject", row.Subject)
	}

	s.logger.Info("mail.fetch.done", "label", label, "fetched", res.Fetched, "stored", res.Stored, "known", res.Known)
	return res, nil
}
