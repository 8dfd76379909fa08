package models

import "time"

// PaymentState tracks whether a reservation has been settled.
type PaymentState string

const (
	PaymentUnpaid PaymentState = "unpaid"
	PaymentPaid   PaymentState = "paid"
)

// Interval is a half-open [Start, End) time window. Two intervals that only
// touch at a boundary do not overlap.
type Interval struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// Valid reports whether the interval spans a positive duration.
func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Reservation is a claim on one slot for a half-open time interval.
// Reservations are never removed from a slot's list, only marked cancelled.
type Reservation struct {
	ID        string       `bson:"id" json:"id"`
	UserID    string       `bson:"userId" json:"userId"`
	Vehicle   string       `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
	Start     time.Time    `bson:"start" json:"start"`
	End       time.Time    `bson:"end" json:"end"`
	Payment   PaymentState `bson:"payment" json:"payment"`
	Cancelled bool         `bson:"cancelled" json:"cancelled"`
	CreatedAt time.Time    `bson:"createdAt" json:"createdAt"`
	OrderID   string       `bson:"orderId,omitempty" json:"orderId,omitempty"`
	PaymentID string       `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
}

// Window returns the reservation's time interval.
func (r Reservation) Window() Interval {
	return Interval{Start: r.Start, End: r.End}
}
