package core

import (
	"errors"
	"testing"
)

func TestCanTransition_HappyPath(t *testing.T) {
	sequence := []ScanStatus{ScanPending, ScanParsing, ScanBuilding, ScanIndexing, ScanCompleted}
	for i := 0; i < len(sequence)-1; i++ {
		if !CanTransition(sequence[i], sequence[i+1]) {
			t.Errorf("expected %s -> %s to be allowed", sequence[i], sequence[i+1])
		}
	}
}

func TestCanTransition_NoReentry(t *testing.T) {
	cases := []struct {
		from, to ScanStatus
	}{
		{ScanParsing, ScanPending},
		{ScanBuilding, ScanParsing},
		{ScanIndexing, ScanBuilding},
		{ScanCompleted, ScanIndexing},
		{ScanCompleted, ScanParsing},
		{ScanPending, ScanBuilding},  // skips parsing
		{ScanParsing, ScanIndexing},  // skips building
		{ScanPending, ScanCompleted}, // skips everything
		{ScanFailed, ScanParsing},
		{ScanCancelled, ScanPending},
	}
	for _, tc := range cases {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestCanTransition_FailureAndCancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range []ScanStatus{ScanPending, ScanParsing, ScanBuilding, ScanIndexing} {
		if !CanTransition(from, ScanFailed) {
			t.Errorf("expected %s -> failed to be allowed", from)
		}
		if !CanTransition(from, ScanCancelled) {
			t.Errorf("expected %s -> cancelled to be allowed", from)
		}
	}
	for _, from := range []ScanStatus{ScanCompleted, ScanFailed, ScanCancelled} {
		if CanTransition(from, ScanFailed) || CanTransition(from, ScanCancelled) {
			t.Errorf("expected terminal state %s to reject further transitions", from)
		}
	}
}

func TestLineageScan_Transition(t *testing.T) {
	scan := NewLineageScan("scan-1", ScanTypeFull, "", "", "tester", "corr-1")

	if err := scan.Transition(ScanParsing); err != nil {
		t.Fatalf("pending -> parsing: %v", err)
	}

	err := scan.Transition(ScanCompleted)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if scan.Status != ScanParsing {
		t.Errorf("invalid transition must leave status unchanged, got %s", scan.Status)
	}

	if err := scan.Fail("catalog unavailable"); err != nil {
		t.Fatalf("parsing -> failed: %v", err)
	}
	if scan.CompletedAt == nil {
		t.Error("terminal transition must stamp CompletedAt")
	}
	if scan.ErrorMessage != "catalog unavailable" {
		t.Errorf("unexpected error message %q", scan.ErrorMessage)
	}
}

func TestLineageScan_Progress(t *testing.T) {
	cases := []struct {
		name      string
		total     int
		processed int
		want      float64
	}{
		{"zero total", 0, 5, 0},
		{"none processed", 10, 0, 0},
		{"halfway", 10, 5, 50},
		{"rounds to two decimals", 3, 1, 33.33},
		{"two thirds", 3, 2, 66.67},
		{"complete", 4, 4, 100},
		{"clamped", 4, 9, 100},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scan := &LineageScan{TotalObjects: tc.total, ProcessedObjects: tc.processed}
			if got := scan.Progress(); got != tc.want {
				t.Errorf("Progress() = %v, want %v", got, tc.want)
			}
		})
	}
}
