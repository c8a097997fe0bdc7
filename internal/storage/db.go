package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"freightdesk/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  bookingNo TEXT,
  supplier TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  emailId INTEGER NOT NULL,
  fileName TEXT NOT NULL,
  path TEXT NOT NULL,
  category TEXT NOT NULL,
  rule TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(emailId) REFERENCES emails(id)
);
CREATE INDEX IF NOT EXISTS idx_documents_email ON documents(emailId);

CREATE TABLE IF NOT EXISTS invoice_lines (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  emailId INTEGER NOT NULL,
  documentId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  invoiceNo TEXT,
  hbl TEXT,
  fieldsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(documentId, lineNo),
  FOREIGN KEY(emailId) REFERENCES emails(id),
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  status TEXT NOT NULL,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

const emailColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef`

func scanEmail(row interface{ Scan(...any) error }) (internal.EmailRow, error) {
	var e internal.EmailRow
	err := row.Scan(&e.ID, &e.Provider, &e.MessageID, &e.Subject, &e.Sender, &e.ReceivedAt, &e.Hash, &e.Status, &e.RawRef)
	return e, err
}

func (d *DB) UpsertEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.EmailRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.EmailRow{}, err
	}

	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, errors.New("failed to upsert email")
	}
	return *row, nil
}

func (d *DB) GetEmailByProviderMessageID(provider, messageID string) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE provider = ? AND messageId = ?`, provider, messageID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetEmailByID(id int) (*internal.EmailRow, error) {
	row, err := scanEmail(d.conn.QueryRow(`SELECT `+emailColumns+` FROM emails WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListEmailsByStatus(status string, limit int) ([]internal.EmailRow, error) {
	rows, err := d.conn.Query(`SELECT `+emailColumns+` FROM emails WHERE status = ? ORDER BY receivedAt ASC, id ASC LIMIT ?`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailRow
	for rows.Next() {
		row, err := scanEmail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEmailStatus(emailID int, status string) error {
	_, err := d.conn.Exec(`UPDATE emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, emailID)
	return err
}

// SetEmailRouting stores what was read from the message body.
func (d *DB) SetEmailRouting(emailID int, bookingNo string, supplier internal.SupplierType) error {
	_, err := d.conn.Exec(`UPDATE emails SET bookingNo = ?, supplier = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, bookingNo, string(supplier), emailID)
	return err
}

// ClearEmailProcessing drops documents and invoice lines of an email so it
// can be processed again.
func (d *DB) ClearEmailProcessing(emailID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM invoice_lines WHERE emailId = ?`, emailID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE emailId = ?`, emailID); err != nil {
		return err
	}
	return tx.Commit()
}

func (d *DB) InsertDocument(emailID int, doc internal.Document) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO documents (emailId, fileName, path, category, rule)
VALUES (?, ?, ?, ?, ?)
`, emailID, doc.FileName, doc.Path, string(doc.Category), doc.Rule)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// UpdateDocumentPath records where a document was archived.
func (d *DB) UpdateDocumentPath(documentID int64, path string) error {
	_, err := d.conn.Exec(`UPDATE documents SET path = ? WHERE id = ?`, path, documentID)
	return err
}

func (d *DB) ListDocuments(emailID int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT id, emailId, fileName, path, category, rule
FROM documents WHERE emailId = ? ORDER BY id ASC
`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		var row internal.DocumentRow
		if err := rows.Scan(&row.ID, &row.EmailID, &row.FileName, &row.Path, &row.Category, &row.Rule); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) InsertInvoiceLines(emailID int, documentID int64, lines []internal.InvoiceFields) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO invoice_lines (emailId, documentId, lineNo, invoiceNo, hbl, fieldsJson)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(documentId, lineNo) DO UPDATE SET
  invoiceNo=excluded.invoiceNo,
  hbl=excluded.hbl,
  fieldsJson=excluded.fieldsJson
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, line := range lines {
		fieldsJSON, err := json.Marshal(line)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(emailID, documentID, i+1, line.Get("InvoiceNo"), line.Get("HBL"), string(fieldsJSON)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) ListInvoiceLines(emailID int) ([]internal.InvoiceFields, error) {
	rows, err := d.conn.Query(`SELECT fieldsJson FROM invoice_lines WHERE emailId = ? ORDER BY documentId ASC, lineNo ASC`, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.InvoiceFields
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, err
		}
		var fields internal.InvoiceFields
		if err := json.Unmarshal([]byte(blob), &fields); err != nil {
			return nil, fmt.Errorf("invoice line of email %d: %w", emailID, err)
		}
		out = append(out, fields)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID, status string, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, status, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, status, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`SELECT id, traceId, status, timingsJson, countsJson FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		var timingsJSON, countsJSON string
		if err := rows.Scan(&row.ID, &row.TraceID, &row.Status, &timingsJSON, &countsJSON); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(timingsJSON), &row.Timings)
		_ = json.Unmarshal([]byte(countsJSON), &row.Counts)
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (d *DB) MustEmailByProviderMessageID(provider, messageID string) (internal.EmailRow, error) {
	row, err := d.GetEmailByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.EmailRow{}, err
	}
	if row == nil {
		return internal.EmailRow{}, fmt.Errorf("email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}
