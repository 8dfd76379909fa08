package models

import "time"

// SlotStatus is the availability classification of a single slot.
type SlotStatus string

const (
	SlotAvailable   SlotStatus = "available"
	SlotBooked      SlotStatus = "booked"
	SlotMaintenance SlotStatus = "maintenance"
)

// Lot represents one parking facility document. The slot map and the derived
// AvailableSpots counter are always written together as a single document
// update guarded by Version.
type Lot struct {
	ID             string           `bson:"id" json:"id"`
	Name           string           `bson:"name" json:"name"`
	Address        string           `bson:"address,omitempty" json:"address,omitempty"`
	TotalSlots     int              `bson:"totalSlots" json:"totalSlots"`
	AvailableSpots int              `bson:"availableSpots" json:"availableSpots"` // derived; see RecountAvailable
	PricePerHour   int64            `bson:"pricePerHour" json:"pricePerHour"`     // minor currency units per hour
	Currency       string           `bson:"currency,omitempty" json:"currency,omitempty"`
	Slots          map[string]*Slot `bson:"slots" json:"slots"`
	Version        int64            `bson:"version" json:"version"`
	CreatedAt      time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time        `bson:"updatedAt" json:"updatedAt"`
}

// Slot is one physical parking space within a lot.
type Slot struct {
	Disabled      bool          `bson:"disabled" json:"disabled"`
	DisableReason string        `bson:"disableReason,omitempty" json:"disableReason,omitempty"`
	Reservations  []Reservation `bson:"reservations" json:"reservations"`
}

// ActiveReservations returns the slot's reservations that still hold the
// slot, ie. everything not cancelled.
func (s *Slot) ActiveReservations() []Reservation {
	if s == nil {
		return nil
	}
	active := make([]Reservation, 0, len(s.Reservations))
	for _, r := range s.Reservations {
		if !r.Cancelled {
			active = append(active, r)
		}
	}
	return active
}

// RecountAvailable recomputes the AvailableSpots counter from the slot map:
// the number of enabled slots with no active reservation covering now.
// The counter is never incremented or decremented independently; every
// ledger mutation calls this before persisting.
func (l *Lot) RecountAvailable(now time.Time) {
	free := 0
	for _, slot := range l.Slots {
		if slot == nil || slot.Disabled {
			continue
		}
		occupied := false
		for _, r := range slot.Reservations {
			if r.Cancelled {
				continue
			}
			if !r.Start.After(now) && now.Before(r.End) {
				occupied = true
				break
			}
		}
		if !occupied {
			free++
		}
	}
	l.AvailableSpots = free
}

// LotSummary is the listing view returned by the lots endpoint.
type LotSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Address        string `json:"address,omitempty"`
	TotalSlots     int    `json:"totalSlots"`
	AvailableSpots int    `json:"availableSpots"`
	PricePerHour   int64  `json:"pricePerHour"`
	Currency       string `json:"currency,omitempty"`
}

// Summary converts a lot document into its listing view.
func (l *Lot) Summary() LotSummary {
	return LotSummary{
		ID:             l.ID,
		Name:           l.Name,
		Address:        l.Address,
		TotalSlots:     l.TotalSlots,
		AvailableSpots: l.AvailableSpots,
		PricePerHour:   l.PricePerHour,
		Currency:       l.Currency,
	}
}
