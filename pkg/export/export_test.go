package export

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCSVExporterRender(t *testing.T) {
	exporter := NewCSVExporter()
	data := Dataset{
		Headers: []string{"username", "course", "progress"},
		Rows: []map[string]string{
			{"username": "alice", "course": "Go Basics", "progress": "66.67"},
			{"username": "bob", "course": "Go Basics", "progress": "0"},
		},
	}

	out, err := exporter.Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	require.Equal(t, "username,course,progress", lines[0])
	require.Contains(t, lines[1], "alice")
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	exporter := NewPDFExporter()
	data := Dataset{
		Headers: []string{"username", "progress"},
		Rows:    []map[string]string{{"username": "alice", "progress": "100"}},
	}

	out, err := exporter.Render(data, "enrollments")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestCertificateRendererRender(t *testing.T) {
	renderer := NewCertificateRenderer()
	out, err := renderer.Render(Certificate{
		StudentName: "Alice Johnson",
		CourseTitle: "Go Basics",
		CompletedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestCertificateRendererRequiresFields(t *testing.T) {
	renderer := NewCertificateRenderer()
	_, err := renderer.Render(Certificate{StudentName: "Alice Johnson"})
	require.Error(t, err)
}
