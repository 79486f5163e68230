package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/data"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// ConcatenateName is the stage name of the concatenate transform.
const ConcatenateName = "Concatenate"

// Concatenate joins the input columns, in order, into one vector column.
type Concatenate struct {
	Output string
	Inputs []string
}

func (c *Concatenate) Name() string { return ConcatenateName }

// Fit checks that every input column exists. The transform has no learned state.
func (c *Concatenate) Fit(_ FitContext, frame *data.Frame) (Transformer, error) {
	t := &ConcatTransformer{Output: c.Output, Inputs: append([]string(nil), c.Inputs...)}
	if _, err := t.widths(frame.Schema()); err != nil {
		return nil, err
	}
	return t, nil
}

// ConcatTransformer is the fitted form of Concatenate.
type ConcatTransformer struct {
	Output string
	Inputs []string
}

func (t *ConcatTransformer) Name() string { return ConcatenateName }

func (t *ConcatTransformer) widths(schema data.Schema) ([]int, error) {
	widths := make([]int, len(t.Inputs))
	for i, name := range t.Inputs {
		c, _, ok := schema.Lookup(name)
		if !ok {
			return nil, errors.NewValueError("Concatenate", fmt.Sprintf("input column %q not found", name))
		}
		widths[i] = c.Width
	}
	return widths, nil
}

// Transform adds the Output column. Position in Inputs is position in the vector.
func (t *ConcatTransformer) Transform(frame *data.Frame) (*data.Frame, error) {
	widths, err := t.widths(frame.Schema())
	if err != nil {
		return nil, err
	}
	if frame.Rows() == 0 {
		return frame.WithColumn(t.Output, nil)
	}

	total := 0
	for _, w := range widths {
		total += w
	}
	out := mat.NewDense(frame.Rows(), total, nil)
	off := 0
	for i, name := range t.Inputs {
		col, err := frame.Column(name)
		if err != nil {
			return nil, err
		}
		out.Slice(0, frame.Rows(), off, off+widths[i]).(*mat.Dense).Copy(col)
		off += widths[i]
	}
	return frame.WithColumn(t.Output, out)
}
