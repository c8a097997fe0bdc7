package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"freightdesk/internal"
	"freightdesk/internal/storage"
)

const undatedDir = "undated"

// rawStore keeps one .eml per distinct payload, grouped by receive day.
type rawStore struct {
	db  *storage.DB
	dir string
	now func() time.Time
}

func newRawStore(db *storage.DB, dir string) *rawStore {
	return &rawStore{db: db, dir: dir, now: time.Now}
}

func (s *rawStore) Store(msg internal.FetchedMailMessage) (internal.EmailRow, error) {
	if msg.MessageID == "" {
		return internal.EmailRow{}, fmt.Errorf("%s message without id", msg.Provider)
	}
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])
	if msg.ReceivedAt == "" {
		msg.ReceivedAt = s.now().UTC().Format(time.RFC3339)
	}

	day := filepath.Join(s.dir, receiveDay(msg.ReceivedAt))
	if err := os.MkdirAll(day, 0o755); err != nil {
		return internal.EmailRow{}, err
	}
	path := filepath.Join(day, hash+".eml")
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(path, msg.Raw, 0o644); err != nil {
			return internal.EmailRow{}, err
		}
	} else if err != nil {
		return internal.EmailRow{}, err
	}

	return s.db.UpsertEmail(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, path, "fetched")
}

// receiveDay turns an RFC 3339 or RFC 1123Z timestamp into YYYY-MM-DD.
func receiveDay(receivedAt string) string {
	for _, layout := range []string{time.RFC3339, time.RFC1123Z, time.RFC1123} {
		if t, err := time.Parse(layout, receivedAt); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return undatedDir
}
