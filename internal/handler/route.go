package handler

import (
	"net/http"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/gin-gonic/gin"
)

type routeRequest struct {
	Current geo.Point   `json:"current"`
	Points  []geo.Point `json:"points"`
}

// PostRoute handles POST /api/route
//
// Request:
//
//	{"current":{"name":"Current","lat":-6.2,"lng":106.8},"points":[...]}
//
// Response 200: {"route":[...]} starting with current, each distinct point
// name visited once in nearest-neighbour order.
// Response 400: body is not a valid route request.
// Response 500: planning failed.
func (h *Handler) PostRoute(c *gin.Context) {
	var req routeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input"})
		return
	}

	ctx := c.Request.Context()
	route, err := h.planner.Plan(ctx, req.Current, req.Points)
	if err != nil {
		h.log.Error(ctx, "plan route", logging.Int("points", len(req.Points)), logging.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate route"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"route": route})
}
