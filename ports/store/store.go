// Package store defines the document store port used by the activity
// recorder. The only operation the pipeline needs is an atomic push onto an
// array field of one document; schema and querying stay with the store.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Well-known collections holding activity arrays.
const (
	CollectionUserInfos = "userinfos"
	CollectionEmails    = "emails"

	FieldActivity = "activity"
)

// AppendResult reports how many documents the append touched. Anything but
// exactly one is an anomaly the caller must treat as a failed append.
type AppendResult struct {
	Modified int64
}

// ActivityStore appends a value to an array field of a single document.
// The append is one atomic operation against the store; no read-modify-write
// is introduced on this side.
type ActivityStore interface {
	AppendToArray(ctx context.Context, collection, id, field string, value any) (AppendResult, error)
}
