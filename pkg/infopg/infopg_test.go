package infopg

import (
	"testing"

	"github.com/cuemby/pgbackrest-repo/pkg/ini"
)

func TestSetAppendsFirstEntry(t *testing.T) {
	h := New()
	e := h.Set("11", 12345, 1201, 1100)

	if e.HistoryID != 1 {
		t.Errorf("HistoryID = %d, want 1", e.HistoryID)
	}

	current, err := h.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current.HistoryID != 1 {
		t.Errorf("Current().HistoryID = %d, want 1", current.HistoryID)
	}
}

func TestSetReplacesInPlaceWhenIdentical(t *testing.T) {
	h := New()
	h.Set("11", 12345, 1201, 1100)
	e := h.Set("11", 12345, 1201, 1100)

	if e.HistoryID != 1 {
		t.Errorf("HistoryID = %d, want 1 (replace in place)", e.HistoryID)
	}
	if len(h.Entries()) != 1 {
		t.Errorf("len(Entries()) = %d, want 1", len(h.Entries()))
	}
}

func TestSetAppendsNewHistoryIDOnChange(t *testing.T) {
	h := New()
	h.Set("11", 12345, 1201, 1100)
	e := h.Set("12", 12345, 1300, 1201)

	if e.HistoryID != 2 {
		t.Errorf("HistoryID = %d, want 2", e.HistoryID)
	}
	if len(h.Entries()) != 2 {
		t.Errorf("len(Entries()) = %d, want 2", len(h.Entries()))
	}
}

func TestCurrentOnEmptyHistoryFails(t *testing.T) {
	h := New()
	if _, err := h.Current(); err == nil {
		t.Error("Current() on empty history should fail")
	}
}

func TestFindUnknownHistoryIDFails(t *testing.T) {
	h := New()
	h.Set("11", 12345, 1201, 1100)

	if _, err := h.Find(99); err == nil {
		t.Error("Find() with unknown historyId should fail")
	}
}

func TestArchiveID(t *testing.T) {
	if got, want := ArchiveID("11", 2), "11-2"; got != want {
		t.Errorf("ArchiveID() = %q, want %q", got, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	h := New()
	h.Set("11", 12345, 1201, 1100)
	h.Set("12", 12345, 1300, 1201)

	tree := ini.NewTree()
	if err := h.Save(tree); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(tree)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded.Entries()) != 2 {
		t.Fatalf("len(Entries()) = %d, want 2", len(loaded.Entries()))
	}

	current, err := loaded.Current()
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if current.HistoryID != 2 || current.PgVersionStr != "12" {
		t.Errorf("Current() = %+v, want historyId=2 pgVersion=12", current)
	}
}
