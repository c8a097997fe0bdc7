package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRunDirsArchive(t *testing.T) {
	day := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	dirs, err := NewRunDirs(t.TempDir(), day)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(dirs.Base) != "20240315" {
		t.Fatalf("base %s", dirs.Base)
	}

	first, err := dirs.SaveTemp("inv.pdf", []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := dirs.SaveTemp("inv.pdf", []byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "inv_1.pdf" {
		t.Fatalf("second temp name %s", second)
	}

	got, err := dirs.ArchiveInvoice(first, "S2403/001")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "invoice S2403_001.pdf" {
		t.Fatalf("archived as %s", got)
	}
	got, err = dirs.ArchiveInvoice(second, "S2403/001")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "invoice S2403_001_1.pdf" {
		t.Fatalf("collision archived as %s", got)
	}
	if _, err := dirs.ArchiveBL(second, "H1"); !errors.Is(err, ErrDocumentGone) {
		t.Fatalf("moved file should be gone, got %v", err)
	}

	bl, _ := dirs.SaveTemp("scan.pdf", []byte("c"))
	got, err = dirs.ArchiveBL(bl, "")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(got) != "BL_未知_scan.pdf" {
		t.Fatalf("unknown bl archived as %s", got)
	}

	removed, err := dirs.CleanupTemp()
	if err != nil || !removed {
		t.Fatalf("temp cleanup removed=%v err=%v", removed, err)
	}
	if _, err := os.Stat(dirs.Temp); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("temp still present")
	}
}

func TestCleanupTempKeepsLeftovers(t *testing.T) {
	dirs, err := NewRunDirs(t.TempDir(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dirs.SaveTemp("left.pdf", []byte("x")); err != nil {
		t.Fatal(err)
	}
	removed, err := dirs.CleanupTemp()
	if err != nil || removed {
		t.Fatalf("removed=%v err=%v", removed, err)
	}
}
