package lock

import (
	"testing"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "main")

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
}

func TestAcquireFailsWhenAlreadyHeld(t *testing.T) {
	dir := t.TempDir()

	first := New(dir, "main")
	if err := first.Acquire(); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	defer first.Release()

	second := New(dir, "main")
	if err := second.Acquire(); err == nil {
		t.Error("second Acquire() on the same stanza should fail while the first holds it")
	}
}

func TestAcquireIsReentrantWithinOneHolder(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "main")

	if err := l.Acquire(); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	if err := l.Acquire(); err != nil {
		t.Errorf("second Acquire() by the same holder should be a no-op, got %v", err)
	}
}

func TestCheckStopFile(t *testing.T) {
	dir := t.TempDir()

	if err := CheckStopFile(dir, "main"); err != nil {
		t.Errorf("CheckStopFile() with no stop file = %v, want nil", err)
	}

	if err := CreateStopFile(dir, "main"); err != nil {
		t.Fatalf("CreateStopFile() error = %v", err)
	}

	if err := CheckStopFile(dir, "main"); err == nil {
		t.Error("CheckStopFile() should fail once the stop file exists")
	}

	if err := RemoveStopFile(dir, "main"); err != nil {
		t.Fatalf("RemoveStopFile() error = %v", err)
	}

	if err := CheckStopFile(dir, "main"); err != nil {
		t.Errorf("CheckStopFile() after removal = %v, want nil", err)
	}
}
