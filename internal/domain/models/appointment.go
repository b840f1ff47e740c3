// internal/domain/models/appointment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Appointment statuses.
const (
	AppointmentScheduled = "scheduled"
	AppointmentCancelled = "cancelled"
)

// Appointment is one booked slot on a professional's agenda.
//
// The interval is half-open: [StartsAt, EndsAt). Two scheduled appointments
// for the same professional never overlap.
type Appointment struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	ClientName     string             `bson:"client_name" json:"client_name"`
	Professional   string             `bson:"professional" json:"professional"`
	ProfessionalCI string             `bson:"professional_ci" json:"-"` // folded key used for overlap checks
	Service        string             `bson:"service" json:"service"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`

	StartsAt time.Time `bson:"starts_at" json:"starts_at"`
	EndsAt   time.Time `bson:"ends_at" json:"ends_at"`

	Status      string     `bson:"status" json:"status"`
	CancelledAt *time.Time `bson:"cancelled_at,omitempty" json:"cancelled_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Duration returns the booked length of the appointment.
func (a Appointment) Duration() time.Duration {
	return a.EndsAt.Sub(a.StartsAt)
}

// Overlaps reports whether a and the interval [start, end) intersect.
func (a Appointment) Overlaps(start, end time.Time) bool {
	return a.StartsAt.Before(end) && start.Before(a.EndsAt)
}
