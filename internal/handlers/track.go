package handlers

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/link-tracker/internal/capture"
	"github.com/serroba/link-tracker/internal/tracking"
	"go.uber.org/zap"
)

//go:embed templates/track.html
var templates embed.FS

var trackPage = template.Must(template.ParseFS(templates, "templates/track.html"))

type trackPageData struct {
	VisitID         string
	DeviceTimeoutMS int64
	Message         string
	Pending         bool
}

// TrackHandler serves the tracking page and the endpoints its script calls.
type TrackHandler struct {
	coordinator *capture.Coordinator
	registry    *capture.Registry
	newVisitID  IDGenerator
	logger      *zap.Logger
}

// NewTrackHandler creates a new tracking handler.
func NewTrackHandler(
	coordinator *capture.Coordinator,
	registry *capture.Registry,
	newVisitID IDGenerator,
	logger *zap.Logger,
) *TrackHandler {
	return &TrackHandler{
		coordinator: coordinator,
		registry:    registry,
		newVisitID:  newVisitID,
		logger:      logger,
	}
}

// Track starts capturing a visit and serves the page that completes it.
func (h *TrackHandler) Track(ctx context.Context, req *TrackRequest) (*TrackPageResponse, error) {
	meta := RequestMetaFromContext(ctx)
	relay := capture.NewDeviceRelay()

	visit := capture.Visit{
		ID:       h.newVisitID(),
		LinkID:   tracking.LinkID(strings.TrimSpace(req.ID)),
		ClientIP: meta.ClientIP,
		Client:   meta.Client(),
		Device:   relay,
	}

	cp := h.coordinator.Start(ctx, visit, h.navigator(visit))
	h.registry.Add(&capture.Session{Capture: cp, Device: relay})

	data := trackPageData{
		VisitID:         visit.ID,
		DeviceTimeoutMS: h.coordinator.Config().DeviceTimeout.Milliseconds(),
		Message:         "Loading…",
		Pending:         true,
	}

	select {
	case <-cp.Done():
		outcome := cp.Outcome()
		if outcome.Status == capture.StatusInvalidLink {
			data.Message = outcome.Message()
			data.Pending = false
		}
	default:
	}

	var buf bytes.Buffer
	if err := trackPage.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render tracking page", zap.Error(err))

		return nil, huma.Error500InternalServerError("failed to render page")
	}

	return &TrackPageResponse{
		ContentType:  "text/html; charset=utf-8",
		CacheControl: "no-store",
		Body:         buf.Bytes(),
	}, nil
}

// ReportDevice feeds the browser's geolocation result into the visit.
func (h *TrackHandler) ReportDevice(_ context.Context, req *DeviceReportRequest) (*DeviceReportResponse, error) {
	session, ok := h.registry.Get(req.VisitID)
	if !ok || session.Device == nil {
		return nil, huma.Error404NotFound("visit not found")
	}

	var accepted bool

	switch req.Body.Status {
	case "ok":
		if req.Body.Latitude == nil || req.Body.Longitude == nil || req.Body.Accuracy == nil {
			return nil, huma.Error422UnprocessableEntity("latitude, longitude and accuracy are required")
		}

		accepted = session.Device.ReportPosition(capture.Position{
			Latitude:  *req.Body.Latitude,
			Longitude: *req.Body.Longitude,
			Accuracy:  *req.Body.Accuracy,
			Altitude:  req.Body.Altitude,
		})
	default:
		accepted = session.Device.ReportFailure(capture.DeviceError(req.Body.Code))
	}

	resp := &DeviceReportResponse{}
	resp.Body.Accepted = accepted

	return resp, nil
}

// Outcome waits up to the requested time for the visit to be dispatched.
func (h *TrackHandler) Outcome(ctx context.Context, req *OutcomeRequest) (*OutcomeResponse, error) {
	session, ok := h.registry.Get(req.VisitID)
	if !ok {
		return nil, huma.Error404NotFound("visit not found")
	}

	resp := &OutcomeResponse{}

	if !waitDone(ctx, session.Capture, time.Duration(req.Wait)*time.Millisecond) {
		return resp, nil
	}

	outcome := session.Capture.Outcome()

	resp.Body.Ready = true
	resp.Body.Status = string(outcome.Status)
	resp.Body.Message = outcome.Message()
	resp.Body.Destination = outcome.Destination
	resp.Body.Trigger = string(outcome.Trigger)

	return resp, nil
}

func waitDone(ctx context.Context, cp *capture.Capture, wait time.Duration) bool {
	select {
	case <-cp.Done():
		return true
	default:
	}

	if wait <= 0 {
		return false
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-cp.Done():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *TrackHandler) navigator(visit capture.Visit) capture.Navigator {
	return capture.NavigatorFunc(func(outcome capture.Outcome) {
		h.logger.Debug("visit dispatched",
			zap.String("visit", visit.ID),
			zap.String("link", string(visit.LinkID)),
			zap.String("status", string(outcome.Status)),
			zap.String("trigger", string(outcome.Trigger)),
		)
	})
}
