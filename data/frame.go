package data

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// View is a dataset bound to a schema that can be materialised as a Frame.
type View interface {
	Schema() Schema
	Frame() (*Frame, error)
}

// Frame is an in-memory columnar dataset. Each column is a rows×width matrix.
// A frame with zero rows holds nil matrices.
type Frame struct {
	schema Schema
	rows   int
	cols   []*mat.Dense
}

// NewFrame builds a frame from matrices given in schema order.
func NewFrame(schema Schema, rows int, cols []*mat.Dense) (*Frame, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if len(cols) != len(schema.Columns) {
		return nil, errors.NewDimensionError("data.NewFrame", len(schema.Columns), len(cols), 1)
	}
	for i, c := range schema.Columns {
		if rows == 0 {
			cols[i] = nil
			continue
		}
		if cols[i] == nil {
			return nil, errors.NewValueError("data.NewFrame", fmt.Sprintf("column %q has no data", c.Name))
		}
		r, w := cols[i].Dims()
		if r != rows || w != c.Width {
			return nil, errors.NewValueError("data.NewFrame",
				fmt.Sprintf("column %q is %dx%d, want %dx%d", c.Name, r, w, rows, c.Width))
		}
	}
	return &Frame{schema: schema, rows: rows, cols: cols}, nil
}

// FrameFromRecords materialises records against HouseDataSchema.
func FrameFromRecords(records []HouseData) *Frame {
	schema := HouseDataSchema()
	n := len(records)
	f := &Frame{schema: schema, rows: n, cols: make([]*mat.Dense, len(schema.Columns))}
	if n == 0 {
		return f
	}
	for j := range schema.Columns {
		f.cols[j] = mat.NewDense(n, 1, nil)
	}
	for i := range records {
		for j, v := range records[i].Values() {
			f.cols[j].Set(i, 0, v)
		}
	}
	return f
}

// Schema implements View.
func (f *Frame) Schema() Schema { return f.schema }

// Frame implements View. Frames are immutable so it returns f itself.
func (f *Frame) Frame() (*Frame, error) { return f, nil }

// Rows returns the number of rows.
func (f *Frame) Rows() int { return f.rows }

// Column returns the matrix of the named column. It is nil for an empty frame.
func (f *Frame) Column(name string) (*mat.Dense, error) {
	_, i, ok := f.schema.Lookup(name)
	if !ok {
		return nil, errors.NewValueError("data.Frame.Column", fmt.Sprintf("unknown column %q", name))
	}
	return f.cols[i], nil
}

// WithColumn returns a new frame with col added or replaced.
func (f *Frame) WithColumn(name string, col *mat.Dense) (*Frame, error) {
	width := 1
	if col != nil {
		var r int
		r, width = col.Dims()
		if r != f.rows {
			return nil, errors.NewDimensionError("data.Frame.WithColumn", f.rows, r, 0)
		}
	} else if f.rows != 0 {
		return nil, errors.NewValueError("data.Frame.WithColumn", fmt.Sprintf("column %q has no data", name))
	}

	schema := f.schema.With(Column{Name: name, Index: -1, Width: width})
	cols := make([]*mat.Dense, len(schema.Columns))
	for i, c := range schema.Columns {
		if c.Name == name {
			cols[i] = col
			continue
		}
		cols[i], _ = f.Column(c.Name)
	}
	return &Frame{schema: schema, rows: f.rows, cols: cols}, nil
}

// Subset returns a new frame holding the given rows in the given order.
func (f *Frame) Subset(indices []int) (*Frame, error) {
	out := &Frame{schema: f.schema, rows: len(indices), cols: make([]*mat.Dense, len(f.cols))}
	if len(indices) == 0 {
		return out, nil
	}
	for _, idx := range indices {
		if idx < 0 || idx >= f.rows {
			return nil, errors.NewValueError("data.Frame.Subset", fmt.Sprintf("row %d out of range [0, %d)", idx, f.rows))
		}
	}
	for j, src := range f.cols {
		_, w := src.Dims()
		dst := mat.NewDense(len(indices), w, nil)
		for i, idx := range indices {
			dst.SetRow(i, src.RawRowView(idx))
		}
		out.cols[j] = dst
	}
	return out, nil
}

// Records converts the frame back to HouseData rows.
// Columns missing from the frame are left zero.
func (f *Frame) Records() []HouseData {
	out := make([]HouseData, f.rows)
	schema := HouseDataSchema()
	for j, c := range schema.Columns {
		col, err := f.Column(c.Name)
		if err != nil || col == nil {
			continue
		}
		for i := range out {
			*out[i].fields()[j] = col.At(i, 0)
		}
	}
	return out
}
