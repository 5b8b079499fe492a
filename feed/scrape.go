package feed

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"slotwatch/pkg/schedule"
)

// scrapeBookingPage extracts slots from the public booking page. The page
// renders each bookable slot as a <time datetime="..."> element inside the
// slot picker; this is the fallback path when the JSON feed is behind the
// anti-bot wall.
func (f *Fetcher) scrapeBookingPage(ctx context.Context) (schedule.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.bookingURL, http.NoBody)
	if err != nil {
		return schedule.New(), fmt.Errorf("create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return schedule.New(), fmt.Errorf("fetch booking page: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return schedule.New(), fmt.Errorf("fetch booking page: HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return schedule.New(), fmt.Errorf("parse booking page: %w", err)
	}

	snap := schedule.New()
	doc.Find(".booking-slots time[datetime]").Each(func(_ int, sel *goquery.Selection) {
		raw, ok := sel.Attr("datetime")
		if !ok {
			return
		}
		start, parseErr := time.Parse(time.RFC3339, raw)
		if parseErr != nil {
			f.logger.Warn("Skipping slot with unparseable datetime attribute", "datetime", raw, "error", parseErr)
			return
		}
		snap.Add(start.Format("2006-01-02"), start.Format("15:04"))
	})

	f.logger.Info("Booking page scraped", "dates", len(snap), "slots", snap.Total())
	return snap, nil
}
