package handlers

import (
	"time"

	"github.com/serroba/link-tracker/internal/analytics"
)

// LinkBody is the dashboard representation of a tracking link.
type LinkBody struct {
	ID             string    `doc:"The link id"                    example:"V1StGXR8_Z"                          json:"id"`
	Name           string    `doc:"Display label"                  example:"Spring campaign"                     json:"name"`
	DestinationURL string    `doc:"Where visitors are sent"        example:"https://example.com/landing"         json:"destinationUrl,omitempty"`
	HitCount       int64     `doc:"Number of times the link opened" example:"42"                                 json:"hitCount"`
	CreatedAt      time.Time `doc:"Creation time"                  json:"createdAt"`
	TrackingURL    string    `doc:"The URL to share"               example:"http://localhost:8888/t?id=V1StGXR8_Z" json:"trackingUrl"`
}

// LocationBody is one recorded visitor location.
type LocationBody struct {
	VisitID   string    `json:"visitId"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `doc:"gps or ip"               enum:"gps,ip" json:"source"`
	Lat       *float64  `json:"lat"`
	Lng       *float64  `json:"lng"`
	Accuracy  *float64  `doc:"Meters, gps records only" json:"accuracy"`
	Altitude  *float64  `doc:"Meters, gps records only" json:"altitude"`
	IP        string    `json:"ip,omitempty"`
	City      string    `json:"city,omitempty"`
	Region    string    `json:"region,omitempty"`
	Country   string    `json:"country,omitempty"`
	Org       string    `json:"org,omitempty"`
	Timezone  string    `json:"timezone,omitempty"`
	IPLat     *float64  `json:"ipLat"`
	IPLng     *float64  `json:"ipLng"`
	UserAgent string    `json:"userAgent,omitempty"`
	Language  string    `json:"language,omitempty"`
	Platform  string    `json:"platform,omitempty"`
}

// CreateLinkRequest is the request body for creating a tracking link.
type CreateLinkRequest struct {
	Body struct {
		Name           string `doc:"Display label"                     example:"Spring campaign"             json:"name"                     maxLength:"200" minLength:"1"`
		DestinationURL string `doc:"Optional http(s) destination URL" example:"https://example.com/landing" json:"destinationUrl,omitempty" maxLength:"2048"`
	}
}

// CreateLinkResponse is the response for a successfully created link.
type CreateLinkResponse struct {
	Headers struct {
		Location string `doc:"The tracking URL" header:"Location"`
	}
	Body LinkBody
}

// LinkRequest addresses a single link.
type LinkRequest struct {
	ID string `doc:"The link id" example:"V1StGXR8_Z" path:"id"`
}

// LinkResponse wraps a single link.
type LinkResponse struct {
	Body LinkBody
}

// ListLinksResponse lists links, newest first.
type ListLinksResponse struct {
	Body struct {
		Links []LinkBody `json:"links"`
	}
}

// ListLocationsResponse lists a link's records, newest first.
type ListLocationsResponse struct {
	Body struct {
		Locations []LocationBody `json:"locations"`
	}
}

// LinkStatsResponse carries aggregated visit statistics.
type LinkStatsResponse struct {
	Body analytics.LinkStats
}

// TrackRequest is the entry request of a tracking link.
type TrackRequest struct {
	ID string `doc:"The link id" example:"V1StGXR8_Z" query:"id"`
}

// TrackPageResponse is the HTML tracking page.
type TrackPageResponse struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

// DeviceReportRequest carries the browser's geolocation result for a visit.
type DeviceReportRequest struct {
	VisitID string `doc:"The visit id" path:"visitId"`
	Body    struct {
		Status    string   `doc:"ok when a fix was obtained"              enum:"ok,error"   json:"status"`
		Latitude  *float64 `json:"latitude,omitempty"  maximum:"90"       minimum:"-90"`
		Longitude *float64 `json:"longitude,omitempty" maximum:"180"      minimum:"-180"`
		Accuracy  *float64 `doc:"Meters"                                  json:"accuracy,omitempty" minimum:"0"`
		Altitude  *float64 `doc:"Meters"                                  json:"altitude,omitempty"`
		Code      string   `doc:"Failure code: denied, unavailable, timeout or unsupported" json:"code,omitempty"`
	}
}

// DeviceReportResponse tells whether the report was the first for the visit.
type DeviceReportResponse struct {
	Body struct {
		Accepted bool `doc:"False when a report was already received" json:"accepted"`
	}
}

// OutcomeRequest polls for a visit's terminal outcome.
type OutcomeRequest struct {
	VisitID string `doc:"The visit id"                               path:"visitId"`
	Wait    int    `default:"25000" doc:"Milliseconds to wait for the outcome" maximum:"30000" minimum:"0" query:"wait"`
}

// OutcomeResponse is a visit's terminal outcome, once ready.
type OutcomeResponse struct {
	Body struct {
		Ready       bool   `doc:"False while the visit is still pending" json:"ready"`
		Status      string `enum:"invalid_link,redirect,done"                json:"status,omitempty"`
		Message     string `doc:"Status text shown to the visitor"       json:"message,omitempty"`
		Destination string `json:"destination,omitempty"`
		Trigger     string `json:"trigger,omitempty"`
	}
}
