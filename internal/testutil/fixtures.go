package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/barbearia/calendario/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TestContext returns a context bounded for a single test operation.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// MockMongo returns an mtest harness backed by a mock deployment. Each
// mt.Run subtest gets a fresh client and mt.DB; queue the server replies
// with mt.AddMockResponses before exercising the code under test.
func MockMongo(t *testing.T) *mtest.T {
	t.Helper()
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

// NS is the namespace used in mock cursor responses.
func NS(collection string) string {
	return "calendario." + collection
}

// UserDoc builds the BSON document a users query would return.
func UserDoc(u models.User) bson.D {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	return bson.D{
		{Key: "_id", Value: u.ID},
		{Key: "full_name", Value: u.FullName},
		{Key: "full_name_ci", Value: text.Fold(u.FullName)},
		{Key: "email", Value: u.Email},
		{Key: "password_hash", Value: u.PasswordHash},
		{Key: "role", Value: u.Role},
		{Key: "created_at", Value: u.CreatedAt},
		{Key: "updated_at", Value: u.UpdatedAt},
	}
}

// AppointmentDoc builds the BSON document an appointments query would return.
func AppointmentDoc(a models.Appointment) bson.D {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Status == "" {
		a.Status = models.AppointmentScheduled
	}
	d := bson.D{
		{Key: "_id", Value: a.ID},
		{Key: "user_id", Value: a.UserID},
		{Key: "client_name", Value: a.ClientName},
		{Key: "professional", Value: a.Professional},
		{Key: "professional_ci", Value: text.Fold(a.Professional)},
		{Key: "service", Value: a.Service},
		{Key: "starts_at", Value: a.StartsAt},
		{Key: "ends_at", Value: a.EndsAt},
		{Key: "status", Value: a.Status},
		{Key: "created_at", Value: a.CreatedAt},
		{Key: "updated_at", Value: a.UpdatedAt},
	}
	if a.Notes != "" {
		d = append(d, bson.E{Key: "notes", Value: a.Notes})
	}
	if a.CancelledAt != nil {
		d = append(d, bson.E{Key: "cancelled_at", Value: *a.CancelledAt})
	}
	return d
}
