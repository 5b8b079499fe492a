// Package feed fetches the doctor's open-slot feed. Any transport or parse
// failure degrades to an empty snapshot: the caller cannot distinguish "feed
// unreachable" from "truly zero slots", which is inherited behavior, so the
// fetch error is returned alongside the empty snapshot for logging.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"slotwatch/pkg/schedule"
)

const (
	apiURLFormat     = "https://telemed-patient-bff.sberhealth.ru/api/showcase/web/v1/providers/62/doctors/%s/specialties/psychologist/slots"
	bookingURLFormat = "https://lk.sberhealth.ru/telemed/speciality/47/doctor/%s"
)

// Desktop user agents rotated per request so the poll cadence doesn't look
// like a single automaton.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) " +
		"Gecko/20100101 Firefox/109.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_1) AppleWebKit/605.1.15 " +
		"(KHTML, like Gecko) Version/16.1 Safari/605.1.15",
}

// Fetcher fetches and parses the slot feed for one doctor.
type Fetcher struct {
	client     *http.Client
	logger     *slog.Logger
	apiURL     string
	bookingURL string
}

// New creates a fetcher for the given doctor id.
func New(client *http.Client, doctorID string, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		client:     client,
		logger:     logger,
		apiURL:     fmt.Sprintf(apiURLFormat, doctorID),
		bookingURL: fmt.Sprintf(bookingURLFormat, doctorID),
	}
}

// BookingURL returns the public booking page for this doctor, used as the
// link target in the schedule message.
func (f *Fetcher) BookingURL() string {
	return f.bookingURL
}

// slotsResponse is the feed's JSON shape; each slot carries an ISO start time.
type slotsResponse struct {
	Slots []struct {
		From string `json:"from"`
	} `json:"slots"`
}

// Fetch retrieves the current snapshot. One attempt per cycle; the poll loop
// provides the cadence and a failed cycle self-corrects on the next one. On
// HTTP 403 (anti-bot wall) it falls back to scraping the booking page.
func (f *Fetcher) Fetch(ctx context.Context) (schedule.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.apiURL, http.NoBody)
	if err != nil {
		return schedule.New(), fmt.Errorf("create request: %w", err)
	}
	setBrowserHeaders(req)

	startTime := time.Now()
	resp, err := f.client.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		f.logger.Warn("Slot feed request failed",
			"url", f.apiURL,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return schedule.New(), fmt.Errorf("fetch slots: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			f.logger.Warn("Failed to close response body", "error", closeErr)
		}
	}()

	f.logger.Debug("Slot feed request completed",
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	if resp.StatusCode == http.StatusForbidden {
		f.logger.Warn("Slot feed returned 403, falling back to booking page scrape")
		return f.scrapeBookingPage(ctx)
	}

	if resp.StatusCode != http.StatusOK {
		return schedule.New(), fmt.Errorf("fetch slots: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return schedule.New(), fmt.Errorf("read response: %w", err)
	}

	var parsed slotsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return schedule.New(), fmt.Errorf("parse slots response: %w", err)
	}

	snap := schedule.New()
	for _, slot := range parsed.Slots {
		if slot.From == "" {
			continue
		}
		start, err := time.Parse(time.RFC3339, slot.From)
		if err != nil {
			f.logger.Warn("Skipping slot with unparseable start time", "from", slot.From, "error", err)
			continue
		}
		snap.Add(start.Format("2006-01-02"), start.Format("15:04"))
	}

	f.logger.Info("Slot feed fetched", "dates", len(snap), "slots", snap.Total())
	return snap, nil
}

// setBrowserHeaders makes the request look like an ordinary browser visit.
func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;"+
		"q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ru-RU,ru;q=0.9,en-US;q=0.8")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
