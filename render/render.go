// Package render builds the Markdown texts for the two chat messages. The
// engine compares rendered texts byte-for-byte to suppress no-op edits, so
// output must be deterministic: dates ascending, times ascending.
package render

import (
	"fmt"
	"strings"
	"time"

	"slotwatch/pkg/schedule"
)

var weekdaysRU = [...]string{
	"воскресенье", "понедельник", "вторник", "среда",
	"четверг", "пятница", "суббота",
}

var monthsRU = [...]string{
	"", "января", "февраля", "марта", "апреля",
	"мая", "июня", "июля", "августа",
	"сентября", "октября", "ноября", "декабря",
}

// Renderer builds message texts for one doctor's booking page.
type Renderer struct {
	bookingURL string
	loc        *time.Location
}

// New creates a renderer. Timestamps in message texts are shown in the
// clinic's zone (UTC+3), matching the audience.
func New(bookingURL string) *Renderer {
	return &Renderer{
		bookingURL: bookingURL,
		loc:        time.FixedZone("MSK", 3*60*60),
	}
}

// Schedule renders the availability list: an optional banner line, a header
// linking to the booking page, then one line per date with its times
// comma-joined.
func (r *Renderer) Schedule(snap schedule.Snapshot, banner bool) string {
	var lines []string
	if banner {
		lines = append(lines, "🟢 *Появились слоты* 🟢\n")
	}
	lines = append(lines, fmt.Sprintf("🗓 **[Доступные записи](%s):**", r.bookingURL))

	dates := snap.Dates()
	if len(dates) == 0 {
		lines = append(lines, "_(пока пусто)_")
	} else {
		for _, d := range dates {
			lines = append(lines, fmt.Sprintf("%s: %s", formatDate(d), strings.Join(snap.Times(d), ", ")))
		}
	}

	return strings.Join(lines, "\n")
}

// NoSlots renders the "no availability" message, with a "last seen" suffix
// when availability has ever been observed.
func (r *Renderer) NoSlots(lastNonEmptyAt *time.Time) string {
	text := "🔴 *Слотов нет* 🔴\n\n" +
		"Не волнуйтесь — как только освободится окошко, сразу напишу 🙏🏻"
	if lastNonEmptyAt != nil {
		text += fmt.Sprintf("\n\n_(Появлялись %s)_", r.formatDateTime(*lastNonEmptyAt))
	}
	return text
}

// formatDate turns "2025-01-26" into "26 января (воскресенье)". A date that
// fails to parse is shown verbatim rather than dropped.
func formatDate(isoDate string) string {
	d, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	return fmt.Sprintf("%d %s (%s)", d.Day(), monthsRU[d.Month()], weekdaysRU[d.Weekday()])
}

// formatDateTime turns a timestamp into "26 января в 19:30" in the clinic zone.
func (r *Renderer) formatDateTime(t time.Time) string {
	t = t.In(r.loc)
	return fmt.Sprintf("%d %s в %02d:%02d", t.Day(), monthsRU[t.Month()], t.Hour(), t.Minute())
}
