package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Certificate holds the data printed on a course completion certificate.
type Certificate struct {
	StudentName string
	CourseTitle string
	CompletedAt time.Time
}

// CertificateRenderer produces completion certificates as PDF documents.
type CertificateRenderer struct{}

// NewCertificateRenderer constructs a renderer.
func NewCertificateRenderer() *CertificateRenderer {
	return &CertificateRenderer{}
}

// Render lays out a landscape A4 certificate for the given completion.
func (r *CertificateRenderer) Render(cert Certificate) ([]byte, error) {
	if cert.StudentName == "" || cert.CourseTitle == "" {
		return nil, fmt.Errorf("certificate requires student name and course title")
	}
	if cert.CompletedAt.IsZero() {
		cert.CompletedAt = time.Now().UTC()
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 25, 20)
	pdf.AddPage()

	w, h := pdf.GetPageSize()
	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, w-20, h-20, "D")

	pdf.SetFont("Times", "B", 30)
	pdf.CellFormat(0, 18, "Certificate of Completion", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(0, 8, "This certifies that", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Times", "BI", 24)
	pdf.CellFormat(0, 12, cert.StudentName, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Times", "", 14)
	pdf.CellFormat(0, 8, "has successfully completed the course", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Times", "B", 20)
	pdf.CellFormat(0, 10, cert.CourseTitle, "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Times", "", 12)
	pdf.CellFormat(0, 8, fmt.Sprintf("Completed on %s", cert.CompletedAt.Format("January 2, 2006")), "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}
