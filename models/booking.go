package models

import "time"

// BookingStatus is the lifecycle state of a booking record.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingActive    BookingStatus = "ACTIVE"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// PaymentMethod is how the booking is settled.
type PaymentMethod string

const (
	MethodPrepaid    PaymentMethod = "PREPAID"
	MethodPayAsYouGo PaymentMethod = "PAY_AS_YOU_GO"
)

// Booking is the user-facing booking record. It mirrors the ledger
// reservation it was created for and is never deleted, only marked
// CANCELLED.
type Booking struct {
	ID              string        `bson:"id" json:"id"`
	UserID          string        `bson:"userId" json:"userId"`
	LotID           string        `bson:"lotId" json:"lotId"`
	SlotID          string        `bson:"slotId" json:"slotId"`
	ReservationID   string        `bson:"reservationId" json:"reservationId"`
	Vehicle         string        `bson:"vehicle,omitempty" json:"vehicle,omitempty"`
	Method          PaymentMethod `bson:"method" json:"method"`
	Status          BookingStatus `bson:"status" json:"status"`
	Start           time.Time     `bson:"start" json:"start"`
	End             time.Time     `bson:"end" json:"end"`
	Amount          int64         `bson:"amount" json:"amount"` // minor currency units
	Currency        string        `bson:"currency,omitempty" json:"currency,omitempty"`
	OrderID         string        `bson:"orderId,omitempty" json:"orderId,omitempty"`
	PaymentID       string        `bson:"paymentId,omitempty" json:"paymentId,omitempty"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
	EntryAt         *time.Time    `bson:"entryAt,omitempty" json:"entryAt,omitempty"`
	ExitAt          *time.Time    `bson:"exitAt,omitempty" json:"exitAt,omitempty"`
	NoShowWarned    bool          `bson:"noShowWarned,omitempty" json:"noShowWarned,omitempty"`
	RatingSubmitted bool          `bson:"ratingSubmitted,omitempty" json:"ratingSubmitted,omitempty"`
	CancelReason    string        `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
}

// Terminal reports whether the booking accepts no further transitions.
func (b *Booking) Terminal() bool {
	return b.Status == BookingCompleted || b.Status == BookingCancelled
}
