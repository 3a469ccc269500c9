// Package render formats orchestrator state for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/farkhanisturkia/mapsReactGo/internal/client"
	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
)

// Route renders an ordered route as a numbered list.
func Route(route []geo.Point) string {
	if len(route) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Route Result:"))
	b.WriteByte('\n')
	width := len(fmt.Sprint(len(route)))
	for i, p := range route {
		fmt.Fprintf(&b, "%*d. %s\n", width, i+1, p.String())
	}
	return b.String()
}

// Error renders an error line, or "" when msg is empty.
func Error(msg string) string {
	if msg == "" {
		return ""
	}
	return errorStyle.Render("Error: "+msg) + "\n"
}

// Success renders a success line, or "" when msg is empty.
func Success(msg string) string {
	if msg == "" {
		return ""
	}
	return successStyle.Render(msg) + "\n"
}

// Driver renders the driver view: the route of the last successful request
// and the most recent error of either the loader or the requester.
func Driver(points client.State[[]geo.Point], route client.State[[]geo.Point]) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Nearest Route Finder"))
	b.WriteByte('\n')

	switch {
	case route.Busy():
		b.WriteString(mutedStyle.Render("Loading...") + "\n")
	case points.Phase == client.Pending || points.Phase == client.Idle:
		b.WriteString(mutedStyle.Render("Loading points from data.json...") + "\n")
	}

	b.WriteString(Error(points.Err))
	b.WriteString(Error(route.Err))
	b.WriteString(Route(route.Data))
	return b.String()
}

// Upload renders the admin view for one uploader snapshot.
func Upload(st client.UploadState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Admin - Upload CSV"))
	b.WriteByte('\n')
	if st.File != nil {
		b.WriteString(mutedStyle.Render("File: "+st.File.Name()) + "\n")
	}
	if st.Busy() {
		b.WriteString(mutedStyle.Render("Uploading...") + "\n")
	}
	b.WriteString(Error(st.Err))
	b.WriteString(Success(st.Message))
	return b.String()
}
