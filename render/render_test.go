package render

import (
	"strings"
	"testing"
	"time"

	"slotwatch/pkg/schedule"
)

const bookingURL = "https://clinic.example/doctor/1"

func TestScheduleOrderingAndContent(t *testing.T) {
	r := New(bookingURL)

	snap := schedule.New()
	snap.Add("2025-02-03", "14:00")
	snap.Add("2025-02-01", "11:30")
	snap.Add("2025-02-01", "09:00")

	text := r.Schedule(snap, false)
	t.Logf("rendered:\n%s", text)

	lines := strings.Split(text, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 date lines: %q", len(lines), text)
	}
	if !strings.Contains(lines[0], bookingURL) {
		t.Errorf("header should link to the booking page, got %q", lines[0])
	}
	if lines[1] != "1 февраля (суббота): 09:00, 11:30" {
		t.Errorf("first date line = %q", lines[1])
	}
	if lines[2] != "3 февраля (понедельник): 14:00" {
		t.Errorf("second date line = %q", lines[2])
	}
}

func TestScheduleBannerLine(t *testing.T) {
	r := New(bookingURL)

	snap := schedule.New()
	snap.Add("2025-02-01", "10:00")

	with := r.Schedule(snap, true)
	without := r.Schedule(snap, false)

	if !strings.HasPrefix(with, "🟢 *Появились слоты* 🟢") {
		t.Errorf("banner rendering should start with the banner line, got %q", with)
	}
	if strings.Contains(without, "Появились слоты") {
		t.Errorf("bannerless rendering must not mention the banner, got %q", without)
	}
	if !strings.HasSuffix(with, without) {
		t.Error("banner should be purely additive above the same body")
	}
}

func TestScheduleEmptyPlaceholder(t *testing.T) {
	r := New(bookingURL)

	text := r.Schedule(schedule.New(), false)
	if !strings.Contains(text, "_(пока пусто)_") {
		t.Errorf("empty snapshot should render the placeholder, got %q", text)
	}
}

func TestScheduleDeterministic(t *testing.T) {
	r := New(bookingURL)

	snap := schedule.New()
	snap.Add("2025-02-01", "10:00")
	snap.Add("2025-02-02", "12:15")

	first := r.Schedule(snap, true)
	for range 10 {
		if r.Schedule(snap, true) != first {
			t.Fatal("rendering must be deterministic; edits are suppressed by text equality")
		}
	}
}

func TestNoSlots(t *testing.T) {
	r := New(bookingURL)

	bare := r.NoSlots(nil)
	if !strings.Contains(bare, "Слотов нет") {
		t.Errorf("missing fixed body, got %q", bare)
	}
	if strings.Contains(bare, "Появлялись") {
		t.Errorf("no last-seen suffix expected without a timestamp, got %q", bare)
	}

	// 16:30 UTC is 19:30 in the clinic zone.
	seen := time.Date(2025, 1, 26, 16, 30, 0, 0, time.UTC)
	withSeen := r.NoSlots(&seen)
	if !strings.Contains(withSeen, "_(Появлялись 26 января в 19:30)_") {
		t.Errorf("last-seen suffix wrong, got %q", withSeen)
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		iso  string
		want string
	}{
		{"2025-01-26", "26 января (воскресенье)"},
		{"2025-12-31", "31 декабря (среда)"},
		{"not-a-date", "not-a-date"},
	}

	for _, tt := range tests {
		if got := formatDate(tt.iso); got != tt.want {
			t.Errorf("formatDate(%q) = %q, want %q", tt.iso, got, tt.want)
		}
	}
}
