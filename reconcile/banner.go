package reconcile

import (
	"time"

	"slotwatch/pkg/schedule"
)

// BannerTTL is how long the "new slots" banner stays up after it is
// triggered, regardless of further activity.
const BannerTTL = time.Hour

// ShowBanner reports whether the "new slots" banner is still active. The
// banner expires after BannerTTL and cannot outlive the availability that
// triggered it. now is passed explicitly so the decision is testable without
// wall-clock reads.
func ShowBanner(snap schedule.Snapshot, startedAt *time.Time, now time.Time) bool {
	if startedAt == nil {
		return false
	}
	if now.Sub(*startedAt) > BannerTTL {
		return false
	}
	if snap.Empty() {
		return false
	}
	return true
}
