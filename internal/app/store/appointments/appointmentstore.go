package appointmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/barbearia/calendario/internal/app/system/htmlsanitize"
	"github.com/barbearia/calendario/internal/app/system/normalize"
	"github.com/barbearia/calendario/internal/app/system/txn"
	"github.com/barbearia/calendario/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Duration bounds for a single appointment.
const (
	MinDuration = 5 * time.Minute
	MaxDuration = 8 * time.Hour
)

// DefaultListLimit caps List when the filter sets no limit.
const DefaultListLimit int64 = 500

var (
	// ErrNotFound is returned when no appointment matches.
	ErrNotFound = errors.New("appointment not found")
	// ErrSlotTaken is returned when the interval overlaps another scheduled
	// appointment of the same professional.
	ErrSlotTaken = errors.New("time slot already booked")
	// ErrNotScheduled is returned when updating a cancelled appointment.
	ErrNotScheduled = errors.New("appointment is cancelled")
	// ErrInvalidInterval is returned for an empty, inverted, or out-of-bounds interval.
	ErrInvalidInterval = errors.New("appointment must last between 5 minutes and 8 hours")
)

type Store struct {
	db    *mongo.Database
	c     *mongo.Collection
	locks *mongo.Collection

	txLog *zap.Logger // non-nil once WithTransactions is called
}

func New(db *mongo.Database) *Store {
	return &Store{
		db:    db,
		c:     db.Collection("appointments"),
		locks: db.Collection("agenda_locks"),
	}
}

// WithTransactions makes Create and Update run the overlap check and the
// write in one transaction that also bumps a per-professional lock
// document. Two bookings for the same professional then conflict on the
// lock and the loser is retried, sees the winner and gets ErrSlotTaken.
// On deployments without transactions the check stays best effort.
func (s *Store) WithTransactions(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s.txLog = logger
	return s
}

// guarded runs fn under the professional's lock when transactions are on.
func (s *Store) guarded(ctx context.Context, professionalCI string, fn func(ctx context.Context) error) error {
	if s.txLog == nil {
		return fn(ctx)
	}
	return txn.Run(ctx, s.db, s.txLog, func(ctx context.Context) error {
		_, err := s.locks.UpdateOne(ctx,
			bson.M{"_id": professionalCI},
			bson.M{"$inc": bson.M{"version": 1}, "$currentDate": bson.M{"updated_at": true}},
			options.Update().SetUpsert(true))
		if err != nil {
			return err
		}
		return fn(ctx)
	})
}

// ValidInterval reports whether [start, end) is a bookable interval.
func ValidInterval(start, end time.Time) bool {
	d := end.Sub(start)
	return d >= MinDuration && d <= MaxDuration
}

// Create inserts a scheduled appointment after normalizing fields and
// checking that the professional is free for the whole interval.
func (s *Store) Create(ctx context.Context, a models.Appointment) (models.Appointment, error) {
	a.ID = primitive.NewObjectID()
	a.Professional = normalize.Name(a.Professional)
	a.ProfessionalCI = text.Fold(a.Professional)
	a.ClientName = normalize.Name(a.ClientName)
	a.Service = normalize.Name(a.Service)
	a.Notes = htmlsanitize.PlainText(a.Notes)
	a.StartsAt = a.StartsAt.UTC()
	a.EndsAt = a.EndsAt.UTC()
	a.Status = models.AppointmentScheduled
	a.CancelledAt = nil

	if !ValidInterval(a.StartsAt, a.EndsAt) {
		return models.Appointment{}, ErrInvalidInterval
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	err := s.guarded(ctx, a.ProfessionalCI, func(ctx context.Context) error {
		if err := s.checkFree(ctx, a.ProfessionalCI, a.StartsAt, a.EndsAt, primitive.NilObjectID); err != nil {
			return err
		}
		_, err := s.c.InsertOne(ctx, a)
		return err
	})
	if err != nil {
		return models.Appointment{}, err
	}
	return a, nil
}

// GetByID loads an appointment by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var a models.Appointment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Filter narrows List. Zero values mean "any".
type Filter struct {
	UserID       primitive.ObjectID
	Professional string
	Status       string
	From         time.Time // appointments ending after From
	To           time.Time // appointments starting before To
	Limit        int64
}

func (f Filter) query() bson.M {
	q := bson.M{}
	if !f.UserID.IsZero() {
		q["user_id"] = f.UserID
	}
	if f.Professional != "" {
		q["professional_ci"] = text.Fold(normalize.Name(f.Professional))
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if !f.To.IsZero() {
		q["starts_at"] = bson.M{"$lt": f.To.UTC()}
	}
	if !f.From.IsZero() {
		q["ends_at"] = bson.M{"$gt": f.From.UTC()}
	}
	return q
}

// List returns appointments matching f in start order.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Appointment, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, f.query(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]models.Appointment, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Busy returns the scheduled appointments of professional that intersect
// [from, to).
func (s *Store) Busy(ctx context.Context, professional string, from, to time.Time) ([]models.Appointment, error) {
	return s.List(ctx, Filter{
		Professional: professional,
		Status:       models.AppointmentScheduled,
		From:         from,
		To:           to,
	})
}

// Update holds the editable fields of an appointment.
type Update struct {
	Professional string
	Service      string
	ClientName   string
	Notes        string
	StartsAt     time.Time
	EndsAt       time.Time
}

// Update reschedules or edits a scheduled appointment. The overlap check
// ignores the appointment itself.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, upd Update) (models.Appointment, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	if current.Status != models.AppointmentScheduled {
		return models.Appointment{}, ErrNotScheduled
	}

	professional := normalize.Name(upd.Professional)
	start, end := upd.StartsAt.UTC(), upd.EndsAt.UTC()
	if !ValidInterval(start, end) {
		return models.Appointment{}, ErrInvalidInterval
	}
	set := bson.M{
		"professional":    professional,
		"professional_ci": text.Fold(professional),
		"service":         normalize.Name(upd.Service),
		"client_name":     normalize.Name(upd.ClientName),
		"notes":           htmlsanitize.PlainText(upd.Notes),
		"starts_at":       start,
		"ends_at":         end,
		"updated_at":      time.Now().UTC(),
	}

	var out models.Appointment
	err = s.guarded(ctx, text.Fold(professional), func(ctx context.Context) error {
		if err := s.checkFree(ctx, text.Fold(professional), start, end, id); err != nil {
			return err
		}
		return s.c.FindOneAndUpdate(ctx,
			bson.M{"_id": id, "status": models.AppointmentScheduled},
			bson.M{"$set": set},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&out)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		// cancelled or deleted between the read and the write
		return models.Appointment{}, ErrNotScheduled
	}
	if err != nil {
		return models.Appointment{}, err
	}
	return out, nil
}

// Cancel marks an appointment cancelled. Cancelling an already cancelled
// appointment returns it unchanged.
func (s *Store) Cancel(ctx context.Context, id primitive.ObjectID) (models.Appointment, error) {
	now := time.Now().UTC()

	var out models.Appointment
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.AppointmentScheduled},
		bson.M{"$set": bson.M{
			"status":       models.AppointmentCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Appointment{}, err
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Appointment{}, err
	}
	return *existing, nil
}

// Delete removes an appointment.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// checkFree returns ErrSlotTaken when a scheduled appointment other than
// exclude intersects [start, end) for the professional.
func (s *Store) checkFree(ctx context.Context, professionalCI string, start, end time.Time, exclude primitive.ObjectID) error {
	q := bson.M{
		"professional_ci": professionalCI,
		"status":          models.AppointmentScheduled,
		"starts_at":       bson.M{"$lt": end},
		"ends_at":         bson.M{"$gt": start},
	}
	if !exclude.IsZero() {
		q["_id"] = bson.M{"$ne": exclude}
	}

	err := s.c.FindOne(ctx, q, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	switch {
	case err == nil:
		return ErrSlotTaken
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil
	default:
		return err
	}
}
