package ledger

import "parkwise/models"

// Overlaps reports whether the candidate interval shares an instant with any
// of the existing reservations under half-open [start, end) semantics: two
// intervals overlap iff s1 < e2 && s2 < e1, so reservations touching at a
// boundary do not conflict.
//
// Callers filter the existing list down to live claims (unpaid or paid, not
// cancelled) and validate the candidate before calling; Overlaps itself is
// pure interval arithmetic.
func Overlaps(existing []models.Reservation, candidate models.Interval) bool {
	for _, r := range existing {
		if r.Start.Before(candidate.End) && candidate.Start.Before(r.End) {
			return true
		}
	}
	return false
}
