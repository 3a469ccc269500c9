// Package handler implements the HTTP endpoints the driver and admin
// clients talk to.
package handler

import (
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/farkhanisturkia/mapsReactGo/internal/routing"
	"github.com/farkhanisturkia/mapsReactGo/internal/storage"
	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes caps CSV uploads when no limit is configured.
const DefaultMaxUploadBytes = 5 << 20

// UploadRecorder observes upload outcomes.
type UploadRecorder interface {
	UploadResult(result string, stored int)
}

// Handler holds the domain dependencies for all HTTP handlers.
type Handler struct {
	planner        routing.Planner
	points         storage.PointsRepository
	maxUploadBytes int64
	log            logging.Logger
	uploads        UploadRecorder
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the handler logger.
func WithLogger(l logging.Logger) Option { return func(h *Handler) { h.log = l } }

// WithUploadRecorder reports upload outcomes to r.
func WithUploadRecorder(r UploadRecorder) Option { return func(h *Handler) { h.uploads = r } }

// WithMaxUploadBytes caps the request body of CSV uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUploadBytes = n
		}
	}
}

// New creates a Handler with the given dependencies.
func New(planner routing.Planner, points storage.PointsRepository, opts ...Option) *Handler {
	h := &Handler{
		planner:        planner,
		points:         points,
		maxUploadBytes: DefaultMaxUploadBytes,
		log:            logging.Noop(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register mounts every endpoint on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/data.json", h.GetDataJSON)
	r.POST("/api/route", h.PostRoute)
	r.POST("/api/upload-csv", h.UploadCSV)
}

func (h *Handler) recordUpload(result string, stored int) {
	if h.uploads != nil {
		h.uploads.UploadResult(result, stored)
	}
}
