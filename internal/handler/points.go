package handler

import (
	"net/http"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/gin-gonic/gin"
)

// GetDataJSON handles GET /data.json
//
// Response 200: the stored points as a JSON array, [] before any upload.
// Response 500: the store could not be read.
func (h *Handler) GetDataJSON(c *gin.Context) {
	ctx := c.Request.Context()

	points, err := h.points.ListPoints(ctx)
	if err != nil {
		h.log.Error(ctx, "list points", logging.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load points"})
		return
	}
	if points == nil {
		points = []geo.Point{}
	}

	c.JSON(http.StatusOK, points)
}
