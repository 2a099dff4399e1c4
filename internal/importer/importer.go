// Package importer parses pasted spreadsheet text into pending items.
package importer

import (
	"errors"
	"strings"
	"time"

	"cashtrack/internal/core"
)

var (
	ErrEmptyInput      = errors.New("pasted data is empty")
	ErrMissingColumns  = errors.New("could not find all required columns: Plate, Contract Amount Cash, Cleaner Name, Site Name")
	errIncompleteRow   = errors.New("incomplete row")
	errUnparsedAmount  = errors.New("unparsable amount")
	errNonPositiveCash = errors.New("amount must be positive")
)

// Result holds the parsed items plus the rows that were skipped.
type Result struct {
	Items   []core.PendingItem
	Skipped []SkippedLine
}

// SkippedLine records one rejected input row, 1-based including the header.
type SkippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Parse reads pasted tab- or comma-separated text. The first line must be a
// header; required columns are located by case-insensitive substring match,
// so "Car Plate No." still resolves the plate column. Rows missing any
// field, or whose amount does not parse to a positive number, are skipped
// rather than failing the whole paste. All items get the date now.
func Parse(text string, now time.Time) (Result, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return Result{}, ErrEmptyInput
	}

	headers := splitRow(strings.ToLower(lines[0]))
	plateIdx := findColumn(headers, "plate")
	amountIdx := findColumn(headers, "contract amount cash")
	cleanerIdx := findColumn(headers, "cleaner name")
	siteIdx := findColumn(headers, "site name")
	if plateIdx < 0 || amountIdx < 0 || cleanerIdx < 0 || siteIdx < 0 {
		return Result{}, ErrMissingColumns
	}

	var res Result
	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lineNo := i + 2

		cols := splitRow(line)
		item, err := parseRow(cols, cleanerIdx, siteIdx, plateIdx, amountIdx, now)
		if err != nil {
			res.Skipped = append(res.Skipped, SkippedLine{Line: lineNo, Reason: err.Error()})
			continue
		}
		res.Items = append(res.Items, item)
	}
	return res, nil
}

func parseRow(cols []string, cleanerIdx, siteIdx, plateIdx, amountIdx int, now time.Time) (core.PendingItem, error) {
	cleaner := column(cols, cleanerIdx)
	site := column(cols, siteIdx)
	plate := column(cols, plateIdx)
	amountStr := column(cols, amountIdx)
	if cleaner == "" || site == "" || plate == "" || amountStr == "" {
		return core.PendingItem{}, errIncompleteRow
	}
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return core.PendingItem{}, errUnparsedAmount
	}
	if amount.Cents <= 0 {
		return core.PendingItem{}, errNonPositiveCash
	}
	return core.PendingItem{
		CleanerName: cleaner,
		Site:        site,
		CarPlate:    plate,
		Amount:      amount,
		Date:        now,
	}, nil
}

// Rows split on tab or comma. Empty columns are kept so indices from the
// header line stay aligned.
func splitRow(line string) []string {
	var cols []string
	start := 0
	for i, r := range line {
		if r == '\t' || r == ',' {
			cols = append(cols, line[start:i])
			start = i + 1
		}
	}
	return append(cols, line[start:])
}

func findColumn(headers []string, substr string) int {
	for i, h := range headers {
		if strings.Contains(strings.TrimSpace(h), substr) {
			return i
		}
	}
	return -1
}

func column(cols []string, idx int) string {
	if idx < 0 || idx >= len(cols) {
		return ""
	}
	return strings.TrimSpace(cols[idx])
}
