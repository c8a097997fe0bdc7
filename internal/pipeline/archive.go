package pipeline

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"freightdesk/internal/util"
)

const (
	TempDirName    = "Temp"
	InvoiceDirName = "Invoice附件"
	BLDirName      = "BL附件"
	InfoFileName   = "info.xlsx"

	unknownBLPrefix = "BL_未知_"
)

// ErrDocumentGone is returned when a document was already moved elsewhere,
// typically an UNKNOWN file that was archived as an invoice.
var ErrDocumentGone = errors.New("document no longer in temp directory")

// RunDirs is the per-day working tree: Download/YYYYMMDD/{Temp,Invoice附件,BL附件}.
type RunDirs struct {
	Base    string
	Temp    string
	Invoice string
	BL      string
}

func NewRunDirs(workDir string, day time.Time) (RunDirs, error) {
	base := filepath.Join(workDir, "Download", day.Format("20060102"))
	d := RunDirs{
		Base:    base,
		Temp:    filepath.Join(base, TempDirName),
		Invoice: filepath.Join(base, InvoiceDirName),
		BL:      filepath.Join(base, BLDirName),
	}
	for _, dir := range []string{d.Temp, d.Invoice, d.BL} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return RunDirs{}, err
		}
	}
	return d, nil
}

func (d RunDirs) InfoPath() string { return filepath.Join(d.Base, InfoFileName) }

// SaveTemp writes an attachment into Temp under a free name.
func (d RunDirs) SaveTemp(name string, content []byte) (string, error) {
	name = util.SanitizeFilename(filepath.Base(name))
	if name == "" || name == "." {
		name = "attachment.pdf"
	}
	path := UniquePath(filepath.Join(d.Temp, name))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ArchiveInvoice moves an invoice to "invoice {No}.pdf", or keeps its own
// name when no invoice number is known.
func (d RunDirs) ArchiveInvoice(path, invoiceNo string) (string, error) {
	name := filepath.Base(path)
	if no := strings.TrimSpace(invoiceNo); no != "" {
		name = fmt.Sprintf("invoice %s.pdf", no)
	}
	return archive(path, filepath.Join(d.Invoice, util.SanitizeFilename(name)))
}

// ArchiveBL moves a bill of lading to "BL {HBL}.pdf", or to
// "BL_未知_{name}" when the HBL is unknown.
func (d RunDirs) ArchiveBL(path, hbl string) (string, error) {
	name := unknownBLPrefix + filepath.Base(path)
	if h := strings.TrimSpace(hbl); h != "" {
		name = fmt.Sprintf("BL %s.pdf", h)
	}
	return archive(path, filepath.Join(d.BL, util.SanitizeFilename(name)))
}

// CleanupTemp removes Temp when nothing is left in it and reports whether
// it did.
func (d RunDirs) CleanupTemp() (bool, error) {
	entries, err := os.ReadDir(d.Temp)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if len(entries) > 0 {
		return false, nil
	}
	return true, os.Remove(d.Temp)
}

// UniquePath returns path, or path with _1, _2... before the extension if
// that name is taken.
func UniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return path
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", stem, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
	}
}

func archive(src, dst string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrDocumentGone
		}
		return "", err
	}
	dst = UniquePath(dst)
	if err := moveFile(src, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// moveFile renames, falling back to copy and delete across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		_ = in.Close()
		return err
	}
	_, copyErr := io.Copy(out, in)
	_ = in.Close()
	if closeErr := out.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(dst)
		return copyErr
	}
	return os.Remove(src)
}
