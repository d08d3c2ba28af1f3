package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/tradedesk/auth-service/internal/core/domain"
)

func TestMongoUser_ToDomain(t *testing.T) {
	oid := primitive.NewObjectID()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	u := mongoUser{
		ID:        oid,
		Username:  "alice",
		Email:     "a@x.com",
		Password:  "$2a$10$hash",
		CreatedAt: created,
	}.toDomain()

	if u.ID != oid.Hex() {
		t.Fatalf("expected id %s, got %s", oid.Hex(), u.ID)
	}
	if u.Username != "alice" || u.Email != "a@x.com" || u.PasswordHash != "$2a$10$hash" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !u.CreatedAt.Equal(created) {
		t.Fatalf("unexpected created_at: %v", u.CreatedAt)
	}
}

func TestUserRepository_FindByID_MalformedID(t *testing.T) {
	// A malformed id is rejected before any round trip, so no database is needed.
	r := &UserRepository{}

	for _, id := range []string{"", "not-an-object-id", "123"} {
		if _, err := r.FindByID(context.Background(), id); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("id %q: expected ErrUserNotFound, got %v", id, err)
		}
	}
}

func newMockRepo(mt *mtest.T) *UserRepository {
	return NewUserRepository(mt.DB)
}

func TestUserRepository_Create(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("assigns id", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		u, err := newMockRepo(mt).Create(context.Background(), &domain.User{
			Username:     "alice",
			Email:        "a@x.com",
			PasswordHash: "$2a$10$hash",
			CreatedAt:    time.Now(),
		})
		if err != nil {
			mt.Fatalf("Create returned error: %v", err)
		}
		if _, err := primitive.ObjectIDFromHex(u.ID); err != nil {
			mt.Fatalf("expected an ObjectID hex id, got %q", u.ID)
		}
		if u.Username != "alice" || u.PasswordHash != "$2a$10$hash" {
			mt.Fatalf("unexpected user: %+v", u)
		}
	})

	mt.Run("duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: trading.users index: uniq_email",
		}))

		_, err := newMockRepo(mt).Create(context.Background(), &domain.User{Username: "alice", Email: "a@x.com"})
		if !errors.Is(err, domain.ErrDuplicateUser) {
			mt.Fatalf("expected ErrDuplicateUser, got %v", err)
		}
	})

	mt.Run("other write error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "Document failed validation",
		}))

		_, err := newMockRepo(mt).Create(context.Background(), &domain.User{Username: "alice", Email: "a@x.com"})
		if err == nil || errors.Is(err, domain.ErrDuplicateUser) {
			mt.Fatalf("expected a non-duplicate error, got %v", err)
		}
	})
}

func TestUserRepository_Find(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := mtest.TestDb + "." + usersCollection

	mt.Run("miss", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		if _, err := newMockRepo(mt).FindByEmail(context.Background(), "ghost@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
			mt.Fatalf("expected ErrUserNotFound, got %v", err)
		}
	})

	mt.Run("hit by id", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "username", Value: "alice"},
			{Key: "email", Value: "a@x.com"},
			{Key: "password", Value: "$2a$10$hash"},
			{Key: "created_at", Value: primitive.NewDateTimeFromTime(created)},
		}))

		u, err := newMockRepo(mt).FindByID(context.Background(), oid.Hex())
		if err != nil {
			mt.Fatalf("FindByID returned error: %v", err)
		}
		if u.ID != oid.Hex() || u.Email != "a@x.com" || u.PasswordHash != "$2a$10$hash" {
			mt.Fatalf("unexpected user: %+v", u)
		}
		if !u.CreatedAt.Equal(created) {
			mt.Fatalf("unexpected created_at: %v", u.CreatedAt)
		}
	})

	mt.Run("command failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    13,
			Name:    "Unauthorized",
			Message: "not authorized",
		}))

		_, err := newMockRepo(mt).FindByUsername(context.Background(), "alice")
		if err == nil || errors.Is(err, domain.ErrUserNotFound) {
			mt.Fatalf("expected a store error, got %v", err)
		}
	})
}

func TestUserRepository_EnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unique username and email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		if err := newMockRepo(mt).EnsureIndexes(context.Background()); err != nil {
			mt.Fatalf("EnsureIndexes returned error: %v", err)
		}

		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "createIndexes" {
			mt.Fatalf("expected a createIndexes command, got %+v", evt)
		}
		if coll := evt.Command.Lookup("createIndexes").StringValue(); coll != usersCollection {
			mt.Fatalf("indexes created on %q", coll)
		}

		values, err := evt.Command.Lookup("indexes").Array().Values()
		if err != nil {
			mt.Fatalf("decode indexes: %v", err)
		}
		want := map[string]string{"uniq_username": "username", "uniq_email": "email"}
		if len(values) != len(want) {
			mt.Fatalf("expected %d indexes, got %d", len(want), len(values))
		}
		for _, v := range values {
			idx := v.Document()
			name := idx.Lookup("name").StringValue()
			field, ok := want[name]
			if !ok {
				mt.Fatalf("unexpected index %q", name)
			}
			if !idx.Lookup("unique").Boolean() {
				mt.Fatalf("index %q is not unique", name)
			}
			if _, err := idx.Lookup("key").Document().LookupErr(field); err != nil {
				mt.Fatalf("index %q does not cover %s", name, field)
			}
		}
	})
}
