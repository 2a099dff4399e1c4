package importer

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestParseTabSeparated(t *testing.T) {
	text := "Plate\tContract Amount Cash\tCleaner Name\tSite Name\n" +
		"P12345\tAED 250.00\tAli\tTower A\n" +
		"P67890\t1300\tOmar\tTower B\n"

	res, err := Parse(text, testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Items) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("items=%d skipped=%d", len(res.Items), len(res.Skipped))
	}

	first := res.Items[0]
	if first.CleanerName != "Ali" || first.Site != "Tower A" || first.CarPlate != "P12345" {
		t.Fatalf("first item = %+v", first)
	}
	if first.Amount.Cents != 25000 {
		t.Fatalf("amount = %d, want 25000", first.Amount.Cents)
	}
	if !first.Date.Equal(testNow) {
		t.Fatalf("date = %v, want %v", first.Date, testNow)
	}
}

func TestParseCommaSeparatedAndHeaderVariants(t *testing.T) {
	// Header matching is case-insensitive substring, so decorated column
	// names still resolve.
	text := "Car Plate No.,CONTRACT AMOUNT CASH (AED),Cleaner Name,Site Name\n" +
		"P1,100,Ali,Tower A\n"

	res, err := Parse(text, testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(res.Items))
	}
	if res.Items[0].Amount.Cents != 10000 {
		t.Fatalf("amount = %d, want 10000", res.Items[0].Amount.Cents)
	}
}

func TestParseColumnOrderIndependent(t *testing.T) {
	text := "Cleaner Name\tSite Name\tPlate\tContract Amount Cash\n" +
		"Ali\tTower A\tP1\t50\n"

	res, err := Parse(text, testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(res.Items))
	}
	got := res.Items[0]
	if got.CleanerName != "Ali" || got.CarPlate != "P1" || got.Amount.Cents != 5000 {
		t.Fatalf("item = %+v", got)
	}
}

func TestParseSkipsBadRows(t *testing.T) {
	text := "Plate\tContract Amount Cash\tCleaner Name\tSite Name\n" +
		"P1\t100\tAli\tTower A\n" +
		"\n" +
		"P2\tabc\tOmar\tTower B\n" +
		"P3\t0\tSara\tTower C\n" +
		"P4\t100\t\tTower D\n" +
		"P5\t-50\tNoor\tTower E\n"

	res, err := Parse(text, testNow)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(res.Items))
	}
	if len(res.Skipped) != 4 {
		t.Fatalf("skipped = %d, want 4: %+v", len(res.Skipped), res.Skipped)
	}
	// Line numbers are 1-based and count the header.
	if res.Skipped[0].Line != 4 {
		t.Fatalf("first skipped line = %d, want 4", res.Skipped[0].Line)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("   \n  ", testNow); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if _, err := Parse("Plate\tAmount\tCleaner Name\tSite Name\nP1\t1\tA\tB", testNow); !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("expected ErrMissingColumns, got %v", err)
	}
}
