package ledger

import (
	"time"

	"parkwise/models"
)

// liveReservations returns the slot's reservations still holding a claim at
// the evaluation instant: not cancelled and not lazily expired. An unpaid
// reservation older than noShowAfter is treated as released even before a
// sweep has persisted the cancellation, so a dangling reservation never
// blocks a slot past its timeout.
func liveReservations(slot *models.Slot, now time.Time, noShowAfter time.Duration) []models.Reservation {
	if slot == nil {
		return nil
	}
	live := make([]models.Reservation, 0, len(slot.Reservations))
	for _, r := range slot.Reservations {
		if r.Cancelled {
			continue
		}
		if expiredNoShow(r, now, noShowAfter) {
			continue
		}
		live = append(live, r)
	}
	return live
}

func expiredNoShow(r models.Reservation, now time.Time, noShowAfter time.Duration) bool {
	return r.Payment == models.PaymentUnpaid &&
		noShowAfter > 0 &&
		now.Sub(r.CreatedAt) >= noShowAfter
}

// Availability derives the per-slot status of a lot for a query interval.
// A disabled slot is under maintenance regardless of its bookings. With a
// nil interval, a slot counts as booked iff some live reservation covers
// the evaluation instant. The result is recomputed from the lot document on
// every call and must not be cached across ledger mutations.
func Availability(lot *models.Lot, q *models.Interval, now time.Time, noShowAfter time.Duration) map[string]models.SlotStatus {
	statuses := make(map[string]models.SlotStatus, len(lot.Slots))
	for slotID, slot := range lot.Slots {
		if slot == nil {
			continue
		}
		if slot.Disabled {
			statuses[slotID] = models.SlotMaintenance
			continue
		}

		live := liveReservations(slot, now, noShowAfter)
		booked := false
		if q != nil {
			booked = Overlaps(live, *q)
		} else {
			for _, r := range live {
				if !r.Start.After(now) && now.Before(r.End) {
					booked = true
					break
				}
			}
		}

		if booked {
			statuses[slotID] = models.SlotBooked
		} else {
			statuses[slotID] = models.SlotAvailable
		}
	}
	return statuses
}
