package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"geoattend/internal/attendance"
	"geoattend/internal/session"
)

// csvHeader matches the columns professors expect in spreadsheet tools.
var csvHeader = []string{"Name", "Roll Number", "Time", "Latitude", "Longitude"}

// CSV renders a session's roster as UTF-8 CSV with a byte-order mark so
// Excel detects the encoding. Records are written in the order given; the
// caller lists them roll-ascending.
func CSV(sess session.Session, records []attendance.Record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\uFEFF")

	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := []string{
			rec.StudentName,
			rec.RollNumber,
			rec.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
			strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename builds the download name for a session export, e.g.
// attendance-CS101-2026-08-28.csv.
func Filename(sess session.Session, ext string) string {
	return fmt.Sprintf("attendance-%s-%s.%s", sess.CourseCode, sess.CreatedAt.UTC().Format("2006-01-02"), ext)
}
