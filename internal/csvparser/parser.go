// =============================================================================
// Patient Import - CSV Parser Module
// =============================================================================
//
// This module is responsible for parsing delimited patient exports. It
// handles:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Legacy encodings (ISO-8859-1, Windows-1252) and UTF-8 BOMs
//   - Quoted fields; unbalanced quoting is a fatal ParseError
//   - Empty and duplicate header names
//
// The first non-empty line is the header row. Every following non-empty
// line becomes one RawRow.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/patient-import/internal/config"
	"github.com/ginjaninja78/patient-import/internal/types"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrParseFailure is matched by every ParseError.
var ErrParseFailure = errors.New("parse failure")

// ParseError reports malformed delimited text. It aborts the whole batch.
type ParseError struct {
	// Line is the 1-based line where parsing failed, 0 if unknown.
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse failure at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse failure: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParseFailure) true.
func (e *ParseError) Is(target error) bool { return target == ErrParseFailure }

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed file.
type CSVData struct {
	// Headers contains the column headers, disambiguated.
	Headers []string

	// Rows contains the data rows in file order.
	Rows []types.RawRow

	// SourceFile is the path to the source file, empty for in-memory input.
	SourceFile string

	// RowCount is the total number of data rows (excluding headers).
	RowCount int

	// ColumnCount is the number of columns.
	ColumnCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile reads a delimited file and returns the parsed data.
//
// PARAMETERS:
//   - filePath: The path to the file.
//   - settings: The parsing settings from the configuration.
//
// RETURNS:
//   - A pointer to the CSVData struct containing the parsed data.
//   - An error if the file cannot be read, or a *ParseError if it is
//     malformed.
func ParseFile(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := Parse(file, settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// ParseString parses raw file text already held in memory.
func ParseString(text string, settings config.CSVSettings) (*CSVData, error) {
	return Parse(strings.NewReader(text), settings)
}

// Parse reads delimited text from r.
//
// PARSING PROCESS:
//   1. Decode the configured encoding and drop a UTF-8 BOM
//   2. Configure the CSV reader with the delimiter
//   3. Read every record; any syntax error aborts with a ParseError
//   4. Take the first non-empty record as headers
//   5. Convert each remaining non-empty record to a RawRow
func Parse(r io.Reader, settings config.CSVSettings) (*CSVData, error) {
	decoder, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}

	reader := transform.NewReader(bufio.NewReader(r), decoder)
	csvReader := csv.NewReader(reader)
	configureReader(csvReader, settings)

	var (
		headers []string
		rows    []types.RawRow
	)

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, asParseError(err)
		}

		line, _ := csvReader.FieldPos(0)
		if IsRowEmpty(record) {
			continue
		}

		if headers == nil {
			headers = CleanHeaders(record)
			continue
		}

		rows = append(rows, types.NewRawRow(headers, record, line))
	}

	if headers == nil {
		return nil, &ParseError{Err: errors.New("file is empty")}
	}

	return &CSVData{
		Headers:     headers,
		Rows:        rows,
		RowCount:    len(rows),
		ColumnCount: len(headers),
	}, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	reader.Comma = Delimiter(settings.Delimiter)

	// Allow variable number of fields per row. Short rows are padded with
	// empty cells, long rows lose their extra cells.
	reader.FieldsPerRecord = -1

	// Unbalanced quoting must surface as a parse failure.
	reader.LazyQuotes = false

	reader.TrimLeadingSpace = settings.TrimLeadingSpace == nil || *settings.TrimLeadingSpace
}

// Delimiter resolves a configured delimiter name to its rune. A single
// character stands for itself; anything else unknown means comma.
func Delimiter(name string) rune {
	switch name {
	case ",", "comma", "COMMA":
		return ','
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	default:
		if r, size := utf8.DecodeRuneInString(name); r != utf8.RuneError && size == len(name) {
			return r
		}
		return ','
	}
}

// decoderFor returns a transformer that decodes the named encoding to UTF-8
// and strips a leading UTF-8 BOM.
func decoderFor(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "UTF-8", "UTF8":
		enc = unicode.UTF8BOM
	case "ISO-8859-1", "LATIN1":
		enc = charmap.ISO8859_1
	case "WINDOWS-1252", "CP1252":
		enc = charmap.Windows1252
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

func asParseError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: csvErr.Err}
	}
	return &ParseError{Err: err}
}

// CleanHeaders trims headers, names empty ones Column_N and suffixes repeats
// with _2, _3, ... so every column stays addressable. A suffix never takes a
// name that another header in the file already uses.
func CleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	reserved := make(map[string]bool, len(cleaned))
	for _, header := range cleaned {
		reserved[strings.ToLower(header)] = true
	}

	used := make(map[string]bool, len(cleaned))
	for i, header := range cleaned {
		name := header
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d", header, n)
			if reserved[strings.ToLower(name)] {
				name = header
			}
		}
		used[strings.ToLower(name)] = true
		cleaned[i] = name
	}

	return cleaned
}

// IsRowEmpty checks if a row contains only empty values.
func IsRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
