package indexes

import (
	"errors"
	"testing"

	"github.com/barbearia/calendario/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

func indexDoc(name string, keys bson.D, unique bool) bson.D {
	d := bson.D{{Key: "v", Value: 2}, {Key: "key", Value: keys}, {Key: "name", Value: name}}
	if unique {
		d = append(d, bson.E{Key: "unique", Value: true})
	}
	return d
}

func TestEnsureAll_CreatesMissing(t *testing.T) {
	mt := testutil.MockMongo(t)

	mt.Run("clean database", func(mt *mtest.T) {
		idDoc := indexDoc("_id_", bson.D{{Key: "_id", Value: 1}}, false)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, testutil.NS("users"), mtest.FirstBatch, idDoc),
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, testutil.NS("appointments"), mtest.FirstBatch, idDoc),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, testutil.NS("login_records"), mtest.FirstBatch, idDoc),
			mtest.CreateSuccessResponse(),
		)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		if err := EnsureAll(ctx, mt.DB, zap.NewNop()); err != nil {
			mt.Fatalf("EnsureAll failed: %v", err)
		}
	})
}

func TestEnsureAll_ReusesExisting(t *testing.T) {
	mt := testutil.MockMongo(t)

	mt.Run("already reconciled", func(mt *mtest.T) {
		var users, appts, logins []bson.D
		for _, m := range UserIndexes() {
			users = append(users, indexDoc(*m.Options.Name, m.Keys.(bson.D), true))
		}
		for _, m := range AppointmentIndexes() {
			appts = append(appts, indexDoc(*m.Options.Name, m.Keys.(bson.D), false))
		}
		for _, m := range LoginRecordIndexes() {
			logins = append(logins, indexDoc(*m.Options.Name, m.Keys.(bson.D), false))
		}
		// Only the listIndexes replies are queued: any create would fail.
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, testutil.NS("users"), mtest.FirstBatch, users...),
			mtest.CreateCursorResponse(0, testutil.NS("appointments"), mtest.FirstBatch, appts...),
			mtest.CreateCursorResponse(0, testutil.NS("login_records"), mtest.FirstBatch, logins...),
		)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		if err := EnsureAll(ctx, mt.DB, nil); err != nil {
			mt.Fatalf("EnsureAll failed: %v", err)
		}
	})
}

func TestEnsureAll_ReportsDuplicates(t *testing.T) {
	mt := testutil.MockMongo(t)

	mt.Run("duplicate emails", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, testutil.NS("users"), mtest.FirstBatch),
			mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "E11000 duplicate key error", Name: "DuplicateKey"}),
			mtest.CreateCursorResponse(0, testutil.NS("appointments"), mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateCursorResponse(0, testutil.NS("login_records"), mtest.FirstBatch),
			mtest.CreateSuccessResponse(),
		)
		ctx, cancel := testutil.TestContext()
		defer cancel()

		err := EnsureAll(ctx, mt.DB, zap.NewNop())
		if err == nil {
			mt.Fatal("expected an error")
		}
		if got := err.Error(); got != "users: users(uniq_users_email): cannot create unique index (duplicates present)" {
			mt.Errorf("unexpected error %q", got)
		}
	})
}

func TestKeySig(t *testing.T) {
	got := keySig(bson.D{{Key: "professional_ci", Value: 1}, {Key: "starts_at", Value: 1}})
	if got != "professional_ci:1, starts_at:1" {
		t.Errorf("keySig = %q", got)
	}
}

func TestSameBoolPtr(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		a, b *bool
		want bool
	}{
		{nil, nil, true},
		{nil, &no, true},
		{&yes, nil, false},
		{&yes, &yes, true},
	}
	for _, tt := range tests {
		if got := sameBoolPtr(tt.a, tt.b); got != tt.want {
			t.Errorf("sameBoolPtr(%v, %v) = %v", tt.a, tt.b, got)
		}
	}
}

func TestIsDuplicateKeyErr(t *testing.T) {
	if isDuplicateKeyErr(nil) {
		t.Error("nil is not a duplicate")
	}
	if !isDuplicateKeyErr(mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}) {
		t.Error("expected write error 11000 to be a duplicate")
	}
	if !isDuplicateKeyErr(errors.New("E11000 duplicate key error collection")) {
		t.Error("expected message match")
	}
	if isDuplicateKeyErr(errors.New("connection refused")) {
		t.Error("unexpected duplicate")
	}
}
