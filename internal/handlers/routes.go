package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the tracking entry and the routes its page calls.
func RegisterRoutes(api huma.API, trackHandler *TrackHandler) {
	// GET /t?id= - Tracking link entry, serves the capture page
	huma.Register(api, huma.Operation{
		OperationID: "track-visit",
		Method:      http.MethodGet,
		Path:        "/t",
		Summary:     "Open tracking link",
		Description: "Counts a hit, starts location capture for the visit and serves the page that redirects the visitor.",
		Tags:        []string{"Tracking"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Tracking page",
				Content:     map[string]*huma.MediaType{"text/html": {}},
			},
		},
	}, trackHandler.Track)

	huma.Register(api, huma.Operation{
		OperationID:   "report-device-location",
		Method:        http.MethodPost,
		Path:          "/visits/{visitId}/device",
		Summary:       "Report device location",
		Description:   "Delivers the browser geolocation result of a visit. Only the first report counts.",
		Tags:          []string{"Tracking"},
		DefaultStatus: http.StatusAccepted,
	}, trackHandler.ReportDevice)

	huma.Register(api, huma.Operation{
		OperationID: "get-visit-outcome",
		Method:      http.MethodGet,
		Path:        "/visits/{visitId}/outcome",
		Summary:     "Wait for visit outcome",
		Description: "Long-polls until the visit is dispatched or the wait expires.",
		Tags:        []string{"Tracking"},
	}, trackHandler.Outcome)
}

// RegisterLinkRoutes registers the link-management dashboard routes.
func RegisterLinkRoutes(api huma.API, linkHandler *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/links",
		Summary:       "Create tracking link",
		Description:   "Creates a tracking link with an optional destination URL.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
	}, linkHandler.CreateLink)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/links",
		Summary:     "List tracking links",
		Description: "Lists all tracking links, newest first.",
		Tags:        []string{"Links"},
	}, linkHandler.ListLinks)

	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/links/{id}",
		Summary:     "Get tracking link",
		Tags:        []string{"Links"},
	}, linkHandler.GetLink)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-link",
		Method:        http.MethodDelete,
		Path:          "/links/{id}",
		Summary:       "Delete tracking link",
		Description:   "Deletes a tracking link together with its recorded locations.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusNoContent,
	}, linkHandler.DeleteLink)

	huma.Register(api, huma.Operation{
		OperationID: "list-link-locations",
		Method:      http.MethodGet,
		Path:        "/links/{id}/locations",
		Summary:     "List recorded locations",
		Description: "Lists the locations recorded for a link, newest first.",
		Tags:        []string{"Links"},
	}, linkHandler.ListLocations)

	huma.Register(api, huma.Operation{
		OperationID: "get-link-stats",
		Method:      http.MethodGet,
		Path:        "/links/{id}/stats",
		Summary:     "Get visit statistics",
		Tags:        []string{"Links"},
	}, linkHandler.LinkStats)
}
