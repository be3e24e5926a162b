package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// CSVParser reads a header-keyed CSV stream
type CSVParser struct {
	delimiter rune
	headerMap map[string]int
	headers   []string
	line      int
	reader    *csv.Reader
}

// ParserOption configures a CSVParser
type ParserOption func(*CSVParser)

// WithDelimiter sets the field delimiter (default is comma).
// Spreadsheets exported with a French locale use ';'.
func WithDelimiter(d rune) ParserOption {
	return func(p *CSVParser) {
		p.delimiter = d
	}
}

// NewCSVParser strips a UTF-8 BOM, rejects non UTF-8 content and reads the header row.
// Header names are matched case-insensitively.
func NewCSVParser(r io.Reader, opts ...ParserOption) (*CSVParser, error) {
	p := &CSVParser{delimiter: ',', headerMap: make(map[string]int)}
	for _, opt := range opts {
		opt(p)
	}

	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	const peekSize = 4096
	head, err := br.Peek(peekSize)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	if len(strings.TrimSpace(string(head))) == 0 {
		return nil, ErrEmptyFile
	}
	if !validPrefix(head, len(head) == peekSize) {
		return nil, ErrInvalidEncoding
	}

	p.reader = csv.NewReader(br)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = true
	p.reader.TrimLeadingSpace = true
	p.reader.FieldsPerRecord = -1

	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	p.line = 1
	for i, h := range record {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		p.headers = append(p.headers, h)
		p.headerMap[h] = i
	}
	if len(p.headers) == 0 {
		return nil, ErrMissingHeader
	}
	return p, nil
}

// Headers returns the normalized header names in file order
func (p *CSVParser) Headers() []string {
	return p.headers
}

// MissingHeaders returns the required headers the file does not carry
func (p *CSVParser) MissingHeaders(required ...string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := p.headerMap[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data record keyed by header
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value for header, "" when absent
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty reports whether every field is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// ReadRow returns the next record, or io.EOF
func (p *CSVParser) ReadRow() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		line := p.line + 1
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = pe.Line
		}
		p.line = line
		return nil, NewRowError(line, "", ErrCodeMalformedRow, err.Error())
	}
	// blank lines are skipped by the reader, so ask it where the record started
	p.line, _ = p.reader.FieldPos(0)

	row := &Row{Line: p.line, Data: make(map[string]string, len(p.headers))}
	for h, i := range p.headerMap {
		if i < len(record) {
			row.Data[h] = strings.TrimSpace(record[i])
		} else {
			row.Data[h] = ""
		}
	}
	return row, nil
}

// validPrefix reports whether b is valid UTF-8, ignoring a final rune that
// a truncated read cut short
func validPrefix(b []byte, truncated bool) bool {
	if truncated {
		for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
			if utf8.RuneStart(b[i]) {
				if !utf8.FullRune(b[i:]) {
					b = b[:i]
				}
				break
			}
		}
	}
	return utf8.Valid(b)
}
