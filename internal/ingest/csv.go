// Package ingest turns uploaded CSV files into points.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
)

// Columns is the header every upload must start with.
var Columns = []string{"name", "lat", "lng"}

// ErrEmpty is returned when the file holds no data rows.
var ErrEmpty = errors.New("CSV contains no points")

// RowError reports a problem at a specific line of the input. Msg is safe to
// return to the uploader verbatim.
type RowError struct {
	Line int
	Msg  string
	Err  error
}

func (e *RowError) Error() string {
	if e.Line == 0 {
		return e.Msg
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

func (e *RowError) Unwrap() error { return e.Err }

// ParseCSV reads name,lat,lng rows. The first row is a header and is skipped.
// Every point must pass geo.Point.Validate.
func ParseCSV(r io.Reader) ([]geo.Point, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // column count is checked per row below
	reader.TrimLeadingSpace = true

	var points []geo.Point
	header := true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			return nil, &RowError{Line: line, Msg: "invalid CSV format", Err: err}
		}
		line, _ := reader.FieldPos(0)

		if header {
			header = false
			continue
		}

		p, err := parseRecord(line, record)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}

	if len(points) == 0 {
		return nil, ErrEmpty
	}
	return points, nil
}

func parseRecord(line int, record []string) (geo.Point, error) {
	if len(record) != len(Columns) {
		return geo.Point{}, &RowError{Line: line, Msg: "CSV must have 3 columns: name,lat,lng"}
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
	if err != nil {
		return geo.Point{}, &RowError{Line: line, Msg: "invalid latitude", Err: err}
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
	if err != nil {
		return geo.Point{}, &RowError{Line: line, Msg: "invalid longitude", Err: err}
	}

	p := geo.Point{Name: strings.TrimSpace(record[0]), Lat: lat, Lng: lng}
	if err := p.Validate(); err != nil {
		return geo.Point{}, &RowError{Line: line, Msg: err.Error(), Err: err}
	}
	return p, nil
}
