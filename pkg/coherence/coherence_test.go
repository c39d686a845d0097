package coherence

import (
	"testing"

	"github.com/cuemby/pgbackrest-repo/pkg/infopg"
)

func TestPgHistoryMatchingListsSucceed(t *testing.T) {
	archive := infopg.New()
	archive.Set("13", 999999, 0, 0)
	archive.Set("14", 999999, 0, 0)

	backup := infopg.New()
	backup.Set("13", 999999, 1201, 1100)
	backup.Set("14", 999999, 1300, 1100)

	if err := PgHistory(archive, backup); err != nil {
		t.Errorf("PgHistory() with matching pgVersion/systemId = %v, want nil", err)
	}
}

func TestPgHistoryMissingOnOneSideFails(t *testing.T) {
	archive := infopg.New()
	archive.Set("13", 999999, 0, 0)
	archive.Set("14", 999999, 0, 0)

	backup := infopg.New()
	backup.Set("13", 999999, 1201, 1100)

	if err := PgHistory(archive, backup); err == nil {
		t.Error("PgHistory() should fail when backup history is missing an entry archive has")
	}
}

func TestPgHistorySystemIDMismatchFails(t *testing.T) {
	archive := infopg.New()
	archive.Set("13", 999999, 0, 0)

	backup := infopg.New()
	backup.Set("13", 111111, 1201, 1100)

	if err := PgHistory(archive, backup); err == nil {
		t.Error("PgHistory() should fail when systemId differs for the same historyId")
	}
}

func TestPgLiveMatchingIdentitySucceeds(t *testing.T) {
	current := infopg.Entry{
		HistoryID:      1,
		PgVersionStr:   "13",
		SystemID:       999999,
		CatalogVersion: 1201,
		ControlVersion: 1100,
	}
	live := PgControl{PgVersion: "13", SystemID: 999999, CatalogVersion: 1201, ControlVersion: 1100}

	if err := PgLive(current, live, PathCheck{}); err != nil {
		t.Errorf("PgLive() with matching identity = %v, want nil", err)
	}
}

func TestPgLiveVersionMismatchFails(t *testing.T) {
	current := infopg.Entry{HistoryID: 1, PgVersionStr: "13", SystemID: 999999, CatalogVersion: 1201, ControlVersion: 1100}
	live := PgControl{PgVersion: "14", SystemID: 999999, CatalogVersion: 1201, ControlVersion: 1100}

	if err := PgLive(current, live, PathCheck{}); err == nil {
		t.Error("PgLive() should fail on pgVersion mismatch")
	}
}

func TestPgLiveCatalogVersionMismatchFails(t *testing.T) {
	current := infopg.Entry{HistoryID: 1, PgVersionStr: "13", SystemID: 999999, CatalogVersion: 1201, ControlVersion: 1100}
	live := PgControl{PgVersion: "13", SystemID: 999999, CatalogVersion: 1300, ControlVersion: 1100}

	if err := PgLive(current, live, PathCheck{}); err == nil {
		t.Error("PgLive() should fail on catalogVersion mismatch")
	}
}

func TestPgLivePathMismatchFailsOnlyWhenActive(t *testing.T) {
	current := infopg.Entry{HistoryID: 1, PgVersionStr: "13", SystemID: 999999, CatalogVersion: 1201, ControlVersion: 1100}
	live := PgControl{PgVersion: "13", SystemID: 999999, CatalogVersion: 1201, ControlVersion: 1100}

	if err := PgLive(current, live, PathCheck{Active: false, Configured: "/a", Queried: "/b"}); err != nil {
		t.Errorf("PgLive() with inactive path check should ignore mismatched paths, got %v", err)
	}

	if err := PgLive(current, live, PathCheck{Active: true, Configured: "/a", Queried: "/b"}); err == nil {
		t.Error("PgLive() with active path check should fail on mismatched paths")
	}

	if err := PgLive(current, live, PathCheck{Active: true, Configured: "/a", Queried: "/a"}); err != nil {
		t.Errorf("PgLive() with matching configured/queried paths = %v, want nil", err)
	}
}
