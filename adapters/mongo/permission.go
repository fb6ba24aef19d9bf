package mongo

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/singleflight"

	"github.com/fabienmoyon/socialInbox/core/dispatch"
	"github.com/fabienmoyon/socialInbox/core/event"
	"github.com/fabienmoyon/socialInbox/ports/store"
)

// PermissionOracle resolves an email for a viewer iff the viewer appears in
// the email's users or usersShared members. Concurrent identical checks
// (the same viewer receiving a burst of events for one email) collapse into
// one lookup.
type PermissionOracle struct {
	db  *mongo.Database
	sf  singleflight.Group
	log *slog.Logger
}

func NewPermissionOracle(db *mongo.Database, log *slog.Logger) *PermissionOracle {
	if log == nil {
		log = slog.Default()
	}
	return &PermissionOracle{
		db:  db,
		log: log.With(slog.String("component", "permission")),
	}
}

// emailVisibleFilter matches the email document only when the viewer is a
// member of it.
func emailVisibleFilter(viewer event.Actor, emailID string) bson.M {
	return bson.M{
		"_id": emailID,
		"$or": []bson.M{
			{"users": viewer.ID},
			{"usersShared": viewer.ID},
		},
	}
}

func (o *PermissionOracle) ResolveIfAuthorized(ctx context.Context, viewer event.Actor, emailID string) (map[string]any, error) {
	key := viewer.ID + "/" + emailID
	v, err, _ := o.sf.Do(key, func() (any, error) {
		var doc bson.M
		err := o.db.Collection(store.CollectionEmails).FindOne(ctx, emailVisibleFilter(viewer, emailID)).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			o.log.Debug("email not visible",
				slog.String("viewer", viewer.ID),
				slog.String("email", emailID),
			)
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return map[string]any(doc), nil
	})
	if err != nil || v == nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

var _ dispatch.PermissionOracle = (*PermissionOracle)(nil)
