package tracking

import "time"

// LinkID identifies a tracking link.
type LinkID string

// Link is a tracking link: a short identifier mapping to an optional
// destination URL and a hit counter.
type Link struct {
	ID             LinkID
	Name           string
	DestinationURL string // empty means no redirect
	HitCount       int64
	CreatedAt      time.Time
}

// HasDestination reports whether visits should be redirected.
func (l *Link) HasDestination() bool {
	return l != nil && l.DestinationURL != ""
}
