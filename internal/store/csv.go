package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
)

// CSVHeader is the column layout of exported and imported schedules.
var CSVHeader = []string{"Datum", "Klient", "Sitzungsart", "Nummer", "Art Supervision", "Stundenanzahl"}

const (
	colDate = iota
	colClient
	colType
	colNumber
	colKind
	colHours
)

// WriteCSV writes records with a header row.
func WriteCSV(w io.Writer, records []appointment.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	row := make([]string, len(CSVHeader))
	for _, r := range records {
		row[colDate] = appointment.Day(r.Date).Format(appointment.DateLayout)
		row[colClient] = deref(r.ClientID)
		row[colType] = r.SessionType
		row[colNumber] = formatInt(r.SequenceNumber)
		row[colKind] = deref(r.SupervisionKind)
		row[colHours] = formatInt(r.SupervisionHours)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a schedule. Columns are matched by header name so extra
// columns (such as a leading index) are ignored; empty cells are absent values.
func ReadCSV(r io.Reader) ([]appointment.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := headerIndex(header)
	if err != nil {
		return nil, err
	}

	var out []appointment.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		cell := func(col int) string {
			if i := idx[col]; i >= 0 && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		if isBlank(row) {
			continue
		}

		rec, err := parseRow(cell)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(cell func(int) string) (appointment.Record, error) {
	var rec appointment.Record

	date, err := parseCSVDate(cell(colDate))
	if err != nil {
		return rec, err
	}
	rec.Date = date
	rec.SessionType = cell(colType)
	if rec.SessionType == "" {
		return rec, errors.New("missing Sitzungsart")
	}
	if v := cell(colClient); v != "" {
		rec.ClientID = &v
	}
	if v := cell(colKind); v != "" {
		rec.SupervisionKind = &v
	}
	if rec.SequenceNumber, err = parseOptionalInt(cell(colNumber)); err != nil {
		return rec, fmt.Errorf("Nummer: %w", err)
	}
	if rec.SupervisionHours, err = parseOptionalInt(cell(colHours)); err != nil {
		return rec, fmt.Errorf("Stundenanzahl: %w", err)
	}
	return rec, nil
}

func headerIndex(header []string) ([colHours + 1]int, error) {
	var idx [colHours + 1]int
	for i := range idx {
		idx[i] = -1
	}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		for col, want := range CSVHeader {
			if strings.EqualFold(name, want) {
				idx[col] = i
			}
		}
	}
	for _, col := range []int{colDate, colType} {
		if idx[col] < 0 {
			return idx, fmt.Errorf("missing column %q", CSVHeader[col])
		}
	}
	return idx, nil
}

// parseCSVDate accepts ISO dates and the "YYYY-MM-DD hh:mm:ss" form
// spreadsheet tools write for date columns.
func parseCSVDate(s string) (time.Time, error) {
	if len(s) > len(appointment.DateLayout) && s[len(appointment.DateLayout)] == ' ' {
		s = s[:len(appointment.DateLayout)]
	}
	return appointment.ParseDate(s)
}

// parseOptionalInt accepts "5" and "5.0"; the latter appears when a column
// with empty cells went through a float conversion.
func parseOptionalInt(s string) (*int, error) {
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	n := int(f)
	return &n, nil
}

func formatInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// CSVFile persists the schedule in a single CSV file. Saves write a temporary
// file next to the target and rename it into place.
type CSVFile struct {
	path string
}

func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// Load returns no records when the file does not exist yet.
func (f *CSVFile) Load(context.Context) ([]appointment.Record, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.path, err)
	}
	defer file.Close()

	records, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return records, nil
}

func (f *CSVFile) Save(_ context.Context, records []appointment.Record) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, records); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
