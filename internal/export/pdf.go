package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"geoattend/internal/attendance"
	"geoattend/internal/session"
)

// PDF renders a session's roster as a simple tabular PDF. Records are
// written in the order given, same as the CSV export.
func PDF(sess session.Session, records []attendance.Record) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Attendance "+sess.CourseCode, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, fmt.Sprintf("Attendance - %s", sess.CourseCode))
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Professor: %s", sess.ProfessorName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s    Attendees: %d", sess.CreatedAt.UTC().Format("2006-01-02"), len(records)))
	pdf.Ln(9)

	widths := []float64{60, 30, 45, 28, 28}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range csvHeader {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, rec := range records {
		cells := []string{
			rec.StudentName,
			rec.RollNumber,
			rec.Timestamp.UTC().Format(time.RFC3339),
			fmt.Sprintf("%.5f", rec.Latitude),
			fmt.Sprintf("%.5f", rec.Longitude),
		}
		for i, c := range cells {
			pdf.CellFormat(widths[i], 6, c, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
