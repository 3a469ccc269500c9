package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/farkhanisturkia/mapsReactGo/internal/ingest"
	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
	"github.com/gin-gonic/gin"
)

// csvField is the multipart part carrying the upload.
const csvField = "csv"

// UploadCSV handles POST /api/upload-csv
//
// Expects a multipart form with a "csv" part holding name,lat,lng rows after
// a header row. The parsed set replaces the stored points.
//
// Response 200: {"message":"CSV processed and saved N points"}
// Response 400: missing part, malformed CSV or invalid row.
// Response 413: body exceeds the upload limit.
// Response 500: the points could not be stored.
func (h *Handler) UploadCSV(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	ctx := c.Request.Context()

	file, header, err := c.Request.FormFile(csvField)
	if err != nil {
		h.recordUpload("rejected", 0)
		if isTooLarge(err) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("file must not exceed %d bytes", h.maxUploadBytes),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "no CSV file uploaded"})
		return
	}
	defer file.Close() //nolint:errcheck

	points, err := ingest.ParseCSV(file)
	if err != nil {
		h.recordUpload("rejected", 0)
		h.log.Warn(ctx, "csv rejected", logging.String("file", header.Filename), logging.Err(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.points.ReplacePoints(ctx, points); err != nil {
		h.recordUpload("failed", 0)
		h.log.Error(ctx, "store points", logging.String("file", header.Filename), logging.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save points"})
		return
	}

	h.recordUpload("ok", len(points))
	h.log.Info(ctx, "csv imported", logging.String("file", header.Filename), logging.Int("points", len(points)))
	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("CSV processed and saved %d points", len(points)),
	})
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe) || strings.Contains(err.Error(), "request body too large")
}
