package tracking

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("tracking link not found")

// LinkReader fetches a link by id. Returns ErrNotFound if it does not exist.
type LinkReader interface {
	GetLink(ctx context.Context, id LinkID) (*Link, error)
}

// HitCounter atomically increments a link's visit counter.
// Returns ErrNotFound if the link does not exist.
type HitCounter interface {
	IncrementHits(ctx context.Context, id LinkID) error
}

// LocationWriter stores a location record under a link, keyed by visit.
// A second record for the same visit only replaces the first if it supersedes it.
type LocationWriter interface {
	SaveLocation(ctx context.Context, id LinkID, record *LocationRecord) error
}

// Store is the subset of the document store used when a tracking link is opened.
type Store interface {
	LinkReader
	HitCounter
	LocationWriter
}

// Repository is the full document store used by the service and the dashboard.
type Repository interface {
	Store

	CreateLink(ctx context.Context, link *Link) error

	// ListLinks returns all links, newest first.
	ListLinks(ctx context.Context) ([]*Link, error)

	// DeleteLink removes a link together with all of its location records.
	DeleteLink(ctx context.Context, id LinkID) error

	// ListLocations returns a link's records, newest first.
	ListLocations(ctx context.Context, id LinkID) ([]*LocationRecord, error)
}
