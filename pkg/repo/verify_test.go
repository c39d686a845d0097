package repo

import (
	"testing"

	"github.com/cuemby/pgbackrest-repo/pkg/backupinfo"
	"github.com/cuemby/pgbackrest-repo/pkg/label"
)

func TestVerifyFindsOrphansAndMissing(t *testing.T) {
	catalog := backupinfo.New()
	catalog.PgSet("15", 42, 202, 101)
	if err := catalog.Add(backupinfo.Record{Label: "20210101-000000F", Type: label.Full, HistoryID: 1}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := catalog.Add(backupinfo.Record{Label: "20210102-000000F", Type: label.Full, HistoryID: 1}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	onDisk := []string{"20210101-000000F", "20210103-unexpected"}

	report := Verify(catalog, onDisk)

	if len(report.OrphanedDirs) != 1 || report.OrphanedDirs[0] != "20210103-unexpected" {
		t.Errorf("OrphanedDirs = %v, want [20210103-unexpected]", report.OrphanedDirs)
	}
	if len(report.MissingDirs) != 1 || report.MissingDirs[0] != "20210102-000000F" {
		t.Errorf("MissingDirs = %v, want [20210102-000000F]", report.MissingDirs)
	}
}

func TestVerifyCleanRepositoryReportsNothing(t *testing.T) {
	catalog := backupinfo.New()
	catalog.PgSet("15", 42, 202, 101)
	if err := catalog.Add(backupinfo.Record{Label: "20210101-000000F", Type: label.Full, HistoryID: 1}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	report := Verify(catalog, []string{"20210101-000000F"})

	if len(report.OrphanedDirs) != 0 || len(report.MissingDirs) != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}
