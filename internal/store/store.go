// Package store defines the keyed-document store contract the rest of
// the application is written against. Documents are opaque JSON blobs
// organized into named collections scoped to a user. Two drivers exist:
// pgstore (PostgreSQL, the production driver) and memstore (in-memory,
// for development and tests).
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// Collection names used by the application.
const (
	ColTransactions      = "transactions"
	ColCategories        = "categories"
	ColAccounts          = "accounts"
	ColForecastedIncomes = "forecastedIncomes"
)

// ErrNotFound is returned when a document id does not exist in the
// given collection.
var ErrNotFound = errors.New("document not found")

// Document is one stored record. Data never includes the id.
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// WriteOp is the kind of mutation in a batch write.
type WriteOp int

const (
	OpCreate WriteOp = iota
	OpUpdate
)

// Write is one mutation inside an atomic batch. For OpCreate the ID is
// ignored and a new one is generated.
type Write struct {
	Op         WriteOp
	Collection string
	ID         string
	Data       json.RawMessage
}

// CancelFunc tears down a subscription. Safe to call more than once.
type CancelFunc func()

// Store is the narrow contract over the external document store.
//
// Subscribe yields the full current document set of a collection, once
// immediately and then again after every change, mirroring a real-time
// listener. The returned channel is closed on cancel.
type Store interface {
	Create(ctx context.Context, userID, collection string, data json.RawMessage) (string, error)
	Update(ctx context.Context, userID, collection, id string, data json.RawMessage) error
	Delete(ctx context.Context, userID, collection, id string) error
	Get(ctx context.Context, userID, collection, id string) (Document, error)
	List(ctx context.Context, userID, collection string) ([]Document, error)

	// BatchWrite applies all writes atomically: either every write
	// becomes visible together or none do.
	BatchWrite(ctx context.Context, userID string, writes []Write) error

	Subscribe(ctx context.Context, userID, collection string) (<-chan []Document, CancelFunc)

	Close()
}

// Decode unmarshals a document's data into v and fills an "id" carrying
// struct field when present, by unmarshalling into v first and then
// letting callers assign the ID themselves. Convenience for repositories.
func Decode(doc Document, v any) error {
	return json.Unmarshal(doc.Data, v)
}

// Encode marshals v for storage.
func Encode(v any) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
