package tracking

import "time"

// Source identifies which acquisition path produced a record's coordinates.
type Source string

const (
	SourceGPS Source = "gps"
	SourceIP  Source = "ip"
)

// IPInfo is the coarse context returned by an IP geolocation lookup.
// Every field is optional; a failed lookup yields the zero value.
type IPInfo struct {
	IP        string
	City      string
	Region    string
	Country   string
	Org       string
	Timezone  string
	Latitude  *float64
	Longitude *float64
}

// HasCoordinates reports whether the lookup produced a usable coordinate pair.
func (i IPInfo) HasCoordinates() bool {
	return i.Latitude != nil && i.Longitude != nil
}

// ClientMeta is visitor metadata captured regardless of geolocation outcome.
type ClientMeta struct {
	UserAgent string
	Language  string
	Platform  string
}

// LocationRecord is one persisted observation of a visitor, at most one per visit.
type LocationRecord struct {
	VisitID   string
	Timestamp time.Time // assigned by the store
	Source    Source

	Lat      *float64
	Lng      *float64
	Accuracy *float64 // meters, gps only
	Altitude *float64 // gps only

	IP       string
	City     string
	Region   string
	Country  string
	Org      string
	Timezone string
	IPLat    *float64
	IPLng    *float64

	Client ClientMeta
}

// HasCoordinates reports whether the record carries a lat/lng pair.
// Records without one are never persisted.
func (r *LocationRecord) HasCoordinates() bool {
	return r != nil && r.Lat != nil && r.Lng != nil
}

// Supersedes reports whether r should replace existing for the same visit.
// A gps record replaces an ip record; nothing else is replaced.
func (r *LocationRecord) Supersedes(existing *LocationRecord) bool {
	return existing == nil || (r.Source == SourceGPS && existing.Source == SourceIP)
}
