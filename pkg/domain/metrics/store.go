package metrics

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no document matches a lookup.
var ErrNotFound = errors.New("document not found")

// Store persists metric documents. Each sync run inserts fresh documents;
// the newest document for a key supersedes older ones and nothing is merged.
type Store interface {
	// Insert validates and stamps every document, then appends them.
	// Nothing is written if any document is invalid.
	Insert(ctx context.Context, docs ...Document) error
	// Latest decodes the newest document in collection whose key field
	// equals key into out.
	Latest(ctx context.Context, collection, key string, out Document) error
	Close(ctx context.Context) error
}

// ValidateAll validates docs and joins every failure.
func ValidateAll(docs ...Document) error {
	var errs []error
	for _, d := range docs {
		if d == nil {
			errs = append(errs, errors.New("nil document"))
			continue
		}
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
