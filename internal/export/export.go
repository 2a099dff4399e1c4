// Package export renders collection records as CSV for download.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"cashtrack/internal/core"
)

var ErrBadRange = errors.New("from date must not be after to date")

const dateLayout = "2006-01-02"

var header = []string{"Date", "Cleaner Name", "Site", "Amount", "Notes"}

// Filename builds the download name for an export over [from, to].
func Filename(from, to time.Time) string {
	return fmt.Sprintf("collections-export-%s-to-%s.csv",
		from.Format(dateLayout), to.Format(dateLayout))
}

// FilterRange keeps collections whose date falls within [from, to],
// inclusive on both ends. Dates compare at day granularity.
func FilterRange(collections []core.Collection, from, to time.Time) ([]core.Collection, error) {
	from = truncateDay(from)
	to = truncateDay(to)
	if from.After(to) {
		return nil, ErrBadRange
	}
	var out []core.Collection
	for _, c := range collections {
		d := truncateDay(c.Date)
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

// WriteCSV writes the header and one row per collection.
func WriteCSV(w io.Writer, collections []core.Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, c := range collections {
		row := []string{
			c.Date.UTC().Format(dateLayout),
			c.CleanerName,
			c.Site,
			c.Amount.String(),
			c.Notes,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
