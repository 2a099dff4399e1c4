package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"cashtrack/internal/core"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFilename(t *testing.T) {
	got := Filename(day(2024, 1, 1), day(2024, 3, 31))
	if got != "collections-export-2024-01-01-to-2024-03-31.csv" {
		t.Fatalf("filename = %q", got)
	}
}

func TestFilterRangeInclusive(t *testing.T) {
	collections := []core.Collection{
		{CleanerName: "a", Date: day(2023, 12, 31)},
		{CleanerName: "b", Date: day(2024, 1, 1)},
		{CleanerName: "c", Date: time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC)},
		{CleanerName: "d", Date: day(2024, 1, 31)},
		{CleanerName: "e", Date: day(2024, 2, 1)},
	}
	got, err := FilterRange(collections, day(2024, 1, 1), day(2024, 1, 31))
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("kept %d records, want 3", len(got))
	}
	if got[0].CleanerName != "b" || got[2].CleanerName != "d" {
		t.Fatalf("unexpected records: %+v", got)
	}
}

func TestFilterRangeRejectsReversedBounds(t *testing.T) {
	_, err := FilterRange(nil, day(2024, 2, 1), day(2024, 1, 1))
	if !errors.Is(err, ErrBadRange) {
		t.Fatalf("expected ErrBadRange, got %v", err)
	}
}

func TestWriteCSV(t *testing.T) {
	collections := []core.Collection{
		{
			CleanerName: "Ali",
			Site:        "Tower A",
			Date:        day(2024, 1, 5),
			Amount:      core.Money{Cents: 25000},
			Notes:       "morning, first round",
		},
		{
			CleanerName: "Omar",
			Site:        "Tower B",
			Date:        day(2024, 1, 6),
			Amount:      core.Money{Cents: 130000},
		},
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, collections); err != nil {
		t.Fatalf("write: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if lines[0] != "Date,Cleaner Name,Site,Amount,Notes" {
		t.Fatalf("header = %q", lines[0])
	}
	// The comma in the notes field must be quoted.
	if lines[1] != `2024-01-05,Ali,Tower A,250.00,"morning, first round"` {
		t.Fatalf("row 1 = %q", lines[1])
	}
	if lines[2] != "2024-01-06,Omar,Tower B,1300.00," {
		t.Fatalf("row 2 = %q", lines[2])
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "Date,Cleaner Name,Site,Amount,Notes" {
		t.Fatalf("empty export = %q", buf.String())
	}
}
