package appointmentstore_test

import (
	"errors"
	"testing"
	"time"

	appointmentstore "github.com/barbearia/calendario/internal/app/store/appointments"
	"github.com/barbearia/calendario/internal/domain/models"
	"github.com/barbearia/calendario/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

var ns = testutil.NS("appointments")

func slot(hour, minutes int) (time.Time, time.Time) {
	start := time.Date(2026, 3, 10, hour, 0, 0, 0, time.UTC)
	return start, start.Add(time.Duration(minutes) * time.Minute)
}

func TestStore_Create(t *testing.T) {
	mt := testutil.MockMongo(t)

	mt.Run("free slot", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch), // overlap check: nothing
			mtest.CreateSuccessResponse(),                       // insert
		)
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		start, end := slot(10, 30)
		created, err := store.Create(ctx, models.Appointment{
			UserID:       primitive.NewObjectID(),
			ClientName:   " Ana  Souza",
			Professional: "  João ",
			Service:      "Corte",
			Notes:        "<b>sem</b> máquina",
			StartsAt:     start,
			EndsAt:       end,
		})
		if err != nil {
			mt.Fatalf("Create failed: %v", err)
		}
		if created.ID.IsZero() {
			mt.Error("expected ID to be assigned")
		}
		if created.Status != models.AppointmentScheduled {
			mt.Errorf("Status = %q, want scheduled", created.Status)
		}
		if created.Professional != "João" || created.ProfessionalCI == "" {
			mt.Errorf("professional not normalized: %q / %q", created.Professional, created.ProfessionalCI)
		}
		if created.ClientName != "Ana Souza" {
			mt.Errorf("ClientName = %q", created.ClientName)
		}
		if created.Notes != "sem máquina" {
			mt.Errorf("Notes = %q, want markup stripped", created.Notes)
		}
	})

	mt.Run("overlap", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: primitive.NewObjectID()}}))
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		start, end := slot(10, 30)
		_, err := store.Create(ctx, models.Appointment{Professional: "João", StartsAt: start, EndsAt: end})
		if !errors.Is(err, appointmentstore.ErrSlotTaken) {
			mt.Errorf("expected ErrSlotTaken, got %v", err)
		}
	})

	mt.Run("invalid interval", func(mt *mtest.T) {
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		start, _ := slot(10, 0)
		for _, end := range []time.Time{start, start.Add(-time.Hour), start.Add(time.Minute), start.Add(9 * time.Hour)} {
			_, err := store.Create(ctx, models.Appointment{Professional: "João", StartsAt: start, EndsAt: end})
			if !errors.Is(err, appointmentstore.ErrInvalidInterval) {
				mt.Errorf("end %v: expected ErrInvalidInterval, got %v", end, err)
			}
		}
	})
}

func TestStore_GetByID_NotFound(t *testing.T) {
	mt := testutil.MockMongo(t)

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, appointmentstore.ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_List(t *testing.T) {
	mt := testutil.MockMongo(t)

	mt.Run("decodes all", func(mt *mtest.T) {
		s1, e1 := slot(9, 30)
		s2, e2 := slot(11, 45)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			testutil.AppointmentDoc(models.Appointment{Professional: "João", Service: "Corte", StartsAt: s1, EndsAt: e1}),
			testutil.AppointmentDoc(models.Appointment{Professional: "João", Service: "Barba", StartsAt: s2, EndsAt: e2}),
		))
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		list, err := store.List(ctx, appointmentstore.Filter{Professional: "joão"})
		if err != nil {
			mt.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 {
			mt.Fatalf("len = %d, want 2", len(list))
		}
		if list[1].Service != "Barba" || !list[1].StartsAt.Equal(s2) {
			mt.Errorf("unexpected second row: %+v", list[1])
		}
	})

	mt.Run("empty is non-nil", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		list, err := store.List(ctx, appointmentstore.Filter{})
		if err != nil {
			mt.Fatalf("List failed: %v", err)
		}
		if list == nil || len(list) != 0 {
			mt.Errorf("expected empty slice, got %#v", list)
		}
	})
}

func TestStore_Update(t *testing.T) {
	mt := testutil.MockMongo(t)
	id := primitive.NewObjectID()
	start, end := slot(14, 30)

	mt.Run("reschedule", func(mt *mtest.T) {
		newStart, newEnd := slot(15, 60)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				testutil.AppointmentDoc(models.Appointment{ID: id, Professional: "João", StartsAt: start, EndsAt: end})),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: testutil.AppointmentDoc(models.Appointment{
				ID: id, Professional: "João", StartsAt: newStart, EndsAt: newEnd,
			})}),
		)
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		out, err := store.Update(ctx, id, appointmentstore.Update{Professional: "João", Service: "Corte", StartsAt: newStart, EndsAt: newEnd})
		if err != nil {
			mt.Fatalf("Update failed: %v", err)
		}
		if !out.StartsAt.Equal(newStart) || out.Duration() != time.Hour {
			mt.Errorf("unexpected interval %v..%v", out.StartsAt, out.EndsAt)
		}
	})

	mt.Run("cancelled cannot be edited", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			testutil.AppointmentDoc(models.Appointment{ID: id, Professional: "João", StartsAt: start, EndsAt: end, Status: models.AppointmentCancelled})))
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		_, err := store.Update(ctx, id, appointmentstore.Update{Professional: "João", StartsAt: start, EndsAt: end})
		if !errors.Is(err, appointmentstore.ErrNotScheduled) {
			mt.Errorf("expected ErrNotScheduled, got %v", err)
		}
	})
}

func TestStore_Cancel(t *testing.T) {
	mt := testutil.MockMongo(t)
	id := primitive.NewObjectID()
	start, end := slot(16, 30)
	cancelledAt := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	cancelled := testutil.AppointmentDoc(models.Appointment{
		ID: id, Professional: "João", StartsAt: start, EndsAt: end,
		Status: models.AppointmentCancelled, CancelledAt: &cancelledAt,
	})

	mt.Run("scheduled", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: cancelled}))
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		out, err := store.Cancel(ctx, id)
		if err != nil {
			mt.Fatalf("Cancel failed: %v", err)
		}
		if out.Status != models.AppointmentCancelled || out.CancelledAt == nil {
			mt.Errorf("unexpected result %+v", out)
		}
	})

	mt.Run("already cancelled is idempotent", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, cancelled),
		)
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		out, err := store.Cancel(ctx, id)
		if err != nil {
			mt.Fatalf("Cancel failed: %v", err)
		}
		if out.Status != models.AppointmentCancelled || !out.CancelledAt.Equal(cancelledAt) {
			mt.Errorf("expected the stored cancellation, got %+v", out)
		}
	})
}

func TestStore_Delete(t *testing.T) {
	mt := testutil.MockMongo(t)

	mt.Run("deleted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		if err := store.Delete(ctx, primitive.NewObjectID()); err != nil {
			mt.Errorf("Delete failed: %v", err)
		}
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))
		store := appointmentstore.New(mt.DB)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		if err := store.Delete(ctx, primitive.NewObjectID()); !errors.Is(err, appointmentstore.ErrNotFound) {
			mt.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestValidInterval(t *testing.T) {
	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tests := []struct {
		d    time.Duration
		want bool
	}{
		{0, false},
		{4 * time.Minute, false},
		{5 * time.Minute, true},
		{8 * time.Hour, true},
		{8*time.Hour + time.Minute, false},
	}
	for _, tt := range tests {
		if got := appointmentstore.ValidInterval(start, start.Add(tt.d)); got != tt.want {
			t.Errorf("ValidInterval(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
}
