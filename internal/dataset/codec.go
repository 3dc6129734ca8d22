package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Marker is the comment character that prefixes metadata lines.
const Marker = '&'

// Recognized metadata keys. Matching is exact after stripping the marker,
// the trailing colon, and surrounding whitespace.
const (
	KeyTitle            = "title"
	KeyXLabel           = "xlabel"
	KeyYLabel           = "ylabel"
	KeyLogAllowed       = "log_allowed"
	KeyDeltaAllowed     = "delta_allowed"
	KeyPerCapitaAllowed = "per_capita_allowed"
	KeySuggestedScaling = "suggested_scaling"
)

// MalformedMetadataError reports a metadata line that does not carry a
// usable key/value pair.
type MalformedMetadataError struct {
	File   string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedMetadataError) Error() string {
	return fmt.Sprintf("%s line %d: malformed metadata %q: %s", e.File, e.Line, e.Text, e.Reason)
}

// UnknownMetadataKeyError reports a metadata key outside the recognized
// set.
type UnknownMetadataKeyError struct {
	File string
	Line int
	Key  string
}

func (e *UnknownMetadataKeyError) Error() string {
	return fmt.Sprintf("%s line %d: unknown metadata key %q", e.File, e.Line, e.Key)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"1/2/06",
	"1/2/2006",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// Read parses a comment-annotated CSV stream. The name is used in error
// messages and to derive the default title when the file carries none.
func Read(r io.Reader, name string) (*Table, Settings, error) {
	settings := DefaultSettings()

	br := bufio.NewReader(r)
	var body strings.Builder
	lineNo := 0
	inMetadata := true
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			lineNo++
			if inMetadata && line[0] == Marker {
				if perr := applyMetadataLine(&settings, name, lineNo, strings.TrimRight(line, "\r\n")); perr != nil {
					return nil, Settings{}, perr
				}
			} else {
				inMetadata = false
				body.WriteString(line)
				if !strings.HasSuffix(line, "\n") {
					body.WriteString("\n")
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Settings{}, fmt.Errorf("reading %s: %w", name, err)
		}
	}

	table, err := readBody(strings.NewReader(body.String()), name)
	if err != nil {
		return nil, Settings{}, err
	}
	if settings.Title == "" {
		settings.Title = TitleFromPath(name)
	}
	return table, settings, nil
}

// ReadFile parses a comment-annotated CSV file.
func ReadFile(path string) (*Table, Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Settings{}, fmt.Errorf("opening table file: %w", err)
	}
	defer f.Close()
	return Read(f, path)
}

// applyMetadataLine interprets one marker-prefixed line of the form
// "&key:,value,". Strict boolean and integer parsing: the original
// implementation treated any non-empty value as true, which made
// metadata booleans unfalsifiable from file content.
func applyMetadataLine(s *Settings, file string, lineNo int, line string) error {
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return &MalformedMetadataError{
			File: file, Line: lineNo, Text: line,
			Reason: "expected a comma-separated key/value pair",
		}
	}
	key := strings.TrimSpace(fields[0])
	key = strings.TrimPrefix(key, string(Marker))
	key = strings.TrimSuffix(key, ":")
	key = strings.ToLower(strings.TrimSpace(key))
	value := strings.TrimSpace(fields[1])

	switch key {
	case KeyTitle:
		s.Title = value
	case KeyXLabel:
		s.XLabel = value
	case KeyYLabel:
		s.YLabel = value
	case KeyLogAllowed, KeyDeltaAllowed, KeyPerCapitaAllowed:
		b, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return &MalformedMetadataError{
				File: file, Line: lineNo, Text: line,
				Reason: fmt.Sprintf("invalid boolean %q for %s", value, key),
			}
		}
		switch key {
		case KeyLogAllowed:
			s.LogAllowed = b
		case KeyDeltaAllowed:
			s.DeltaAllowed = b
		case KeyPerCapitaAllowed:
			s.PerCapitaAllowed = b
		}
	case KeySuggestedScaling:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return &MalformedMetadataError{
				File: file, Line: lineNo, Text: line,
				Reason: fmt.Sprintf("invalid scaling divisor %q", value),
			}
		}
		s.SuggestedScaling = n
	default:
		return &UnknownMetadataKeyError{File: file, Line: lineNo, Key: key}
	}
	return nil
}

// readBody parses the header row and the date-indexed numeric matrix that
// follow the metadata block.
func readBody(r io.Reader, name string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: no table data after metadata", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: reading header: %w", name, err)
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("%s: header has no location columns", name)
	}
	columns := make([]string, len(header)-1)
	for i, h := range header[1:] {
		columns[i] = strings.TrimSpace(h)
	}

	var dates []time.Time
	values := make([][]float64, len(columns))
	row := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s: reading row %d: %w", name, row+1, err)
		}
		row++
		d, err := parseDate(record[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", name, row, err)
		}
		dates = append(dates, d)
		for i := range columns {
			v := math.NaN()
			if i+1 < len(record) {
				cell := strings.TrimSpace(record[i+1])
				if cell != "" {
					v, err = strconv.ParseFloat(cell, 64)
					if err != nil {
						return nil, fmt.Errorf("%s row %d column %q: invalid value %q", name, row, columns[i], cell)
					}
				}
			}
			values[i] = append(values[i], v)
		}
	}

	table, err := NewTable(dates)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	for i, col := range columns {
		if err := table.AddColumn(col, values[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return table, nil
}

// Write serializes a table with its settings in the commented-CSV format.
// Recognized settings round-trip exactly through Read.
func Write(w io.Writer, t *Table, s Settings) error {
	bw := bufio.NewWriter(w)

	writeEntry := func(key, value string) {
		fmt.Fprintf(bw, "%c%s:,%s,\n", Marker, key, value)
	}
	if s.Title != "" {
		writeEntry(KeyTitle, s.Title)
	}
	if s.XLabel != "" && s.XLabel != DefaultXLabel {
		writeEntry(KeyXLabel, s.XLabel)
	}
	if s.YLabel != "" {
		writeEntry(KeyYLabel, s.YLabel)
	}
	writeEntry(KeyLogAllowed, strconv.FormatBool(s.LogAllowed))
	writeEntry(KeyDeltaAllowed, strconv.FormatBool(s.DeltaAllowed))
	writeEntry(KeyPerCapitaAllowed, strconv.FormatBool(s.PerCapitaAllowed))
	if s.SuggestedScaling > 0 {
		writeEntry(KeySuggestedScaling, strconv.Itoa(s.SuggestedScaling))
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	cw := csv.NewWriter(w)
	header := append([]string{"date"}, t.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(header))
	for i, d := range t.Dates() {
		record[0] = d.Format("2006-01-02")
		for j, col := range t.Columns() {
			v := t.Value(i, col)
			if math.IsNaN(v) {
				record[j+1] = ""
			} else {
				record[j+1] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile serializes a table with its settings to the given path.
func WriteFile(path string, t *Table, s Settings) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating table file: %w", err)
	}
	if err := Write(f, t, s); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TitleFromPath derives a page title from a file path: the base name
// without extension, underscores replaced by spaces.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ReplaceAll(base, "_", " ")
}
