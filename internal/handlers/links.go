package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/link-tracker/internal/analytics"
	"github.com/serroba/link-tracker/internal/tracking"
	"go.uber.org/zap"
)

// IDGenerator generates link ids.
type IDGenerator func() string

// LinkHandler serves the link-management dashboard API.
type LinkHandler struct {
	store      tracking.Repository
	stats      analytics.StatsReader
	baseURL    string
	generateID IDGenerator
	logger     *zap.Logger
}

// NewLinkHandler creates a new link handler.
func NewLinkHandler(
	store tracking.Repository,
	stats analytics.StatsReader,
	baseURL string,
	generateID IDGenerator,
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		store:      store,
		stats:      stats,
		baseURL:    strings.TrimRight(baseURL, "/"),
		generateID: generateID,
		logger:     logger,
	}
}

// TrackingURL returns the shareable URL of a link.
func (h *LinkHandler) TrackingURL(id tracking.LinkID) string {
	return h.baseURL + "/t?id=" + url.QueryEscape(string(id))
}

func (h *LinkHandler) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	name := strings.TrimSpace(req.Body.Name)
	if name == "" {
		return nil, huma.Error400BadRequest("name is required")
	}

	dest, err := tracking.NormalizeDestination(req.Body.DestinationURL)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}

	link := &tracking.Link{
		ID:             tracking.LinkID(h.generateID()),
		Name:           name,
		DestinationURL: dest,
	}

	if err := h.store.CreateLink(ctx, link); err != nil {
		h.logger.Error("failed to create link", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to create link")
	}

	resp := &CreateLinkResponse{Body: h.linkBody(link)}
	resp.Headers.Location = resp.Body.TrackingURL

	return resp, nil
}

func (h *LinkHandler) ListLinks(ctx context.Context, _ *struct{}) (*ListLinksResponse, error) {
	links, err := h.store.ListLinks(ctx)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to list links")
	}

	resp := &ListLinksResponse{}
	resp.Body.Links = make([]LinkBody, 0, len(links))

	for _, link := range links {
		resp.Body.Links = append(resp.Body.Links, h.linkBody(link))
	}

	return resp, nil
}

func (h *LinkHandler) GetLink(ctx context.Context, req *LinkRequest) (*LinkResponse, error) {
	link, err := h.store.GetLink(ctx, tracking.LinkID(req.ID))
	if err != nil {
		return nil, h.storeError(err, "failed to get link")
	}

	return &LinkResponse{Body: h.linkBody(link)}, nil
}

func (h *LinkHandler) DeleteLink(ctx context.Context, req *LinkRequest) (*struct{}, error) {
	if err := h.store.DeleteLink(ctx, tracking.LinkID(req.ID)); err != nil {
		return nil, h.storeError(err, "failed to delete link")
	}

	if err := h.stats.DeleteLinkStats(ctx, req.ID); err != nil {
		h.logger.Warn("failed to delete link stats", zap.String("link", req.ID), zap.Error(err))
	}

	return nil, nil
}

func (h *LinkHandler) ListLocations(ctx context.Context, req *LinkRequest) (*ListLocationsResponse, error) {
	records, err := h.store.ListLocations(ctx, tracking.LinkID(req.ID))
	if err != nil {
		return nil, h.storeError(err, "failed to list locations")
	}

	resp := &ListLocationsResponse{}
	resp.Body.Locations = make([]LocationBody, 0, len(records))

	for _, r := range records {
		resp.Body.Locations = append(resp.Body.Locations, locationBody(r))
	}

	return resp, nil
}

func (h *LinkHandler) LinkStats(ctx context.Context, req *LinkRequest) (*LinkStatsResponse, error) {
	if _, err := h.store.GetLink(ctx, tracking.LinkID(req.ID)); err != nil {
		return nil, h.storeError(err, "failed to get link")
	}

	stats, err := h.stats.LinkStats(ctx, req.ID)
	if err != nil {
		h.logger.Error("failed to read link stats", zap.String("link", req.ID), zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to read stats")
	}

	return &LinkStatsResponse{Body: *stats}, nil
}

func (h *LinkHandler) storeError(err error, msg string) error {
	if errors.Is(err, tracking.ErrNotFound) {
		return huma.Error404NotFound("link not found")
	}

	h.logger.Error(msg, zap.Error(err))

	return huma.NewError(http.StatusInternalServerError, msg)
}

func (h *LinkHandler) linkBody(link *tracking.Link) LinkBody {
	return LinkBody{
		ID:             string(link.ID),
		Name:           link.Name,
		DestinationURL: link.DestinationURL,
		HitCount:       link.HitCount,
		CreatedAt:      link.CreatedAt,
		TrackingURL:    h.TrackingURL(link.ID),
	}
}

func locationBody(r *tracking.LocationRecord) LocationBody {
	return LocationBody{
		VisitID:   r.VisitID,
		Timestamp: r.Timestamp,
		Source:    string(r.Source),
		Lat:       r.Lat,
		Lng:       r.Lng,
		Accuracy:  r.Accuracy,
		Altitude:  r.Altitude,
		IP:        r.IP,
		City:      r.City,
		Region:    r.Region,
		Country:   r.Country,
		Org:       r.Org,
		Timezone:  r.Timezone,
		IPLat:     r.IPLat,
		IPLng:     r.IPLng,
		UserAgent: r.Client.UserAgent,
		Language:  r.Client.Language,
		Platform:  r.Client.Platform,
	}
}
