package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// TextLoaderOptions controls how a delimited file is read.
type TextLoaderOptions struct {
	Separator      rune
	HasHeader      bool
	AllowQuoting   bool
	TrimWhitespace bool
}

// ValidSeparator reports whether r can separate fields: tab, or a printable
// rune that is neither a letter nor a digit, excluding quote, '.', '-', '+'
// and line breaks.
func ValidSeparator(r rune) bool {
	if r == '\t' {
		return true
	}
	switch r {
	case '"', '.', '-', '+', '\r', '\n', unicode.ReplacementChar:
		return false
	}
	return unicode.IsPrint(r) && !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// ParseSeparator reads a separator given as text. `\t` and "tab" name the tab
// character; anything else must be exactly one rune. Whether the rune is
// usable is left to ValidSeparator.
func ParseSeparator(s string) (rune, error) {
	if s == `\t` || s == "tab" {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, errors.NewValidationError("separator", fmt.Sprintf("must be a single character, got %q", s), s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r, nil
}

// TextView is a lazily read dataset file bound to HouseDataSchema.
// It can be iterated any number of times; each pass re-opens the file.
type TextView struct {
	path   string
	opts   TextLoaderOptions
	schema Schema
}

// LoadFromTextFile binds path to HouseDataSchema. It checks eagerly that the
// file can be opened and that the separator is usable; rows are parsed on
// iteration. The file is never modified.
func LoadFromTextFile(path string, opts TextLoaderOptions) (*TextView, error) {
	if !ValidSeparator(opts.Separator) {
		return nil, errors.NewDataLoadError(path, "invalid separator "+strconv.QuoteRune(opts.Separator), nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDataLoadError(path, "file not found", err)
		}
		return nil, errors.NewDataLoadError(path, "cannot stat file", err)
	}
	if info.IsDir() {
		return nil, errors.NewDataLoadError(path, "path is a directory", nil)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDataLoadError(path, "file is not readable", err)
	}
	f.Close()

	return &TextView{path: path, opts: opts, schema: HouseDataSchema()}, nil
}

// Path returns the bound file path.
func (v *TextView) Path() string { return v.path }

// Schema implements View.
func (v *TextView) Schema() Schema { return v.schema }

// Records iterates the rows of the file. A malformed row yields a
// DataLoadError naming its line and column and ends the iteration.
func (v *TextView) Records() iter.Seq2[HouseData, error] {
	return func(yield func(HouseData, error) bool) {
		f, err := os.Open(v.path)
		if err != nil {
			yield(HouseData{}, errors.NewDataLoadError(v.path, "file is not readable", err))
			return
		}
		defer f.Close()

		first := true
		for row, err := range v.rows(f) {
			if err != nil {
				yield(HouseData{}, errors.NewRowLoadError(v.path, row.line, 0, "malformed row", err))
				return
			}
			if first && v.opts.HasHeader {
				first = false
				continue
			}
			first = false

			rec, err := v.parse(row.line, row.fields)
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// Frame implements View by reading every row.
func (v *TextView) Frame() (*Frame, error) {
	cols := make([][]float64, len(v.schema.Columns))
	rows := 0
	for rec, err := range v.Records() {
		if err != nil {
			return nil, err
		}
		for j, val := range rec.Values() {
			cols[j] = append(cols[j], val)
		}
		rows++
	}

	dense := make([]*mat.Dense, len(cols))
	if rows > 0 {
		for j := range cols {
			dense[j] = mat.NewDense(rows, 1, cols[j])
		}
	}
	return NewFrame(v.schema, rows, dense)
}

func (v *TextView) parse(line int, fields []string) (HouseData, error) {
	var rec HouseData
	ptrs := rec.fields()
	for j, c := range v.schema.Columns {
		if c.Index >= len(fields) {
			return HouseData{}, errors.NewRowLoadError(v.path, line, c.Index,
				"missing column "+c.Name+": row has "+strconv.Itoa(len(fields))+" fields", nil)
		}
		raw := fields[c.Index]
		if v.opts.TrimWhitespace {
			raw = strings.TrimSpace(raw)
		}
		if raw == "" {
			// an empty field is a missing value
			*ptrs[j] = math.NaN()
			continue
		}
		val, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return HouseData{}, errors.NewRowLoadError(v.path, line, c.Index,
				"column "+c.Name+" is not a number: "+strconv.Quote(raw), nil)
		}
		*ptrs[j] = val
	}
	return rec, nil
}

type rawRow struct {
	line   int
	fields []string
}

// rows yields each non-empty record of r with its 1-based line number.
// With quoting enabled records follow RFC 4180; otherwise quotes are literal
// and each line is split on the separator.
func (v *TextView) rows(r io.Reader) iter.Seq2[rawRow, error] {
	if v.opts.AllowQuoting {
		return v.quotedRows(r)
	}
	return v.plainRows(r)
}

func (v *TextView) quotedRows(r io.Reader) iter.Seq2[rawRow, error] {
	return func(yield func(rawRow, error) bool) {
		cr := csv.NewReader(r)
		cr.Comma = v.opts.Separator
		cr.FieldsPerRecord = -1
		for {
			fields, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				line := 0
				var perr *csv.ParseError
				if errors.As(err, &perr) {
					line = perr.Line
				}
				yield(rawRow{line: line}, err)
				return
			}
			line, _ := cr.FieldPos(0)
			if !yield(rawRow{line: line, fields: fields}, nil) {
				return
			}
		}
	}
}

func (v *TextView) plainRows(r io.Reader) iter.Seq2[rawRow, error] {
	return func(yield func(rawRow, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		sep := string(v.opts.Separator)
		line := 0
		for sc.Scan() {
			line++
			text := strings.TrimSuffix(sc.Text(), "\r")
			if text == "" {
				continue
			}
			if !yield(rawRow{line: line, fields: strings.Split(text, sep)}, nil) {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(rawRow{line: line + 1}, err)
		}
	}
}
