package singleflight

import "testing"

func TestFlag_TryAcquireThenRelease(t *testing.T) {
	var f Flag

	if !f.TryAcquire() {
		t.Fatal("expected first TryAcquire to succeed")
	}
	if f.TryAcquire() {
		t.Fatal("expected second TryAcquire to fail while held")
	}
	if !f.InFlight() {
		t.Fatal("expected InFlight to report true while held")
	}

	f.Release()

	if f.InFlight() {
		t.Fatal("expected InFlight to report false after Release")
	}
	if !f.TryAcquire() {
		t.Fatal("expected TryAcquire to succeed again after Release")
	}
}
