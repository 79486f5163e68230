// Package data binds delimited house sale datasets to a fixed schema and
// materialises them as columnar frames.
package data

import (
	"fmt"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// Column names of the house schema.
const (
	ColLabel        = "Label"
	ColBedrooms     = "Bedrooms"
	ColBathrooms    = "Bathrooms"
	ColLivingArea   = "LivingArea"
	ColLotArea      = "LotArea"
	ColFloors       = "Floors"
	ColWaterfront   = "Waterfront"
	ColView         = "View"
	ColCondition    = "Condition"
	ColGrade        = "Grade"
	ColHighFeet     = "HighFeet"
	ColBasementFeet = "BasementFeet"

	// ColFeatures is the concatenated feature vector.
	ColFeatures = "Features"
	// ColScore holds model predictions.
	ColScore = "Score"
)

// NumericFeatures is the ordered list of feature columns fed to the trainers.
// Position in this list is the position in the Features vector.
var NumericFeatures = []string{
	ColBedrooms,
	ColBathrooms,
	ColLivingArea,
	ColLotArea,
	ColFloors,
	ColWaterfront,
	ColView,
	ColCondition,
	ColGrade,
	ColHighFeet,
	ColBasementFeet,
}

// Column describes one column of a schema. Index is the zero-based position in
// the source file, or -1 for derived columns. Width is 1 for scalars.
type Column struct {
	Name  string
	Index int
	Width int
}

// Schema is an ordered list of columns.
type Schema struct {
	Columns []Column
}

// HouseDataSchema returns the 12 loaded columns of a house sales file.
//
// Files carry a leading row-number column ahead of the usual
// id;date;price;... sales layout, so price sits at index 3 and the 11
// features follow it up to sqft_basement at index 14. Columns after 14 are
// ignored.
func HouseDataSchema() Schema {
	return Schema{Columns: []Column{
		{Name: ColLabel, Index: 3, Width: 1},
		{Name: ColBedrooms, Index: 4, Width: 1},
		{Name: ColBathrooms, Index: 5, Width: 1},
		{Name: ColLivingArea, Index: 6, Width: 1},
		{Name: ColLotArea, Index: 7, Width: 1},
		{Name: ColFloors, Index: 8, Width: 1},
		{Name: ColWaterfront, Index: 9, Width: 1},
		{Name: ColView, Index: 10, Width: 1},
		{Name: ColCondition, Index: 11, Width: 1},
		{Name: ColGrade, Index: 12, Width: 1},
		{Name: ColHighFeet, Index: 13, Width: 1},
		{Name: ColBasementFeet, Index: 14, Width: 1},
	}}
}

// Lookup returns the named column and its position.
func (s Schema) Lookup(name string) (Column, int, bool) {
	for i, c := range s.Columns {
		if c.Name == name {
			return c, i, true
		}
	}
	return Column{}, -1, false
}

// Names returns the column names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// MaxIndex is the largest source index a row must have.
func (s Schema) MaxIndex() int {
	max := -1
	for _, c := range s.Columns {
		if c.Index > max {
			max = c.Index
		}
	}
	return max
}

// Validate rejects empty or duplicate names and non-positive widths.
func (s Schema) Validate() error {
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" {
			return errors.NewConfigurationError("schema", "column with empty name")
		}
		if seen[c.Name] {
			return errors.NewConfigurationError("schema", fmt.Sprintf("duplicate column %q", c.Name))
		}
		if c.Width < 1 {
			return errors.NewConfigurationError("schema", fmt.Sprintf("column %q has width %d", c.Name, c.Width))
		}
		seen[c.Name] = true
	}
	return nil
}

// With returns a copy of the schema with col appended, or replacing a column of the same name.
func (s Schema) With(col Column) Schema {
	cols := make([]Column, 0, len(s.Columns)+1)
	replaced := false
	for _, c := range s.Columns {
		if c.Name == col.Name {
			cols = append(cols, col)
			replaced = true
			continue
		}
		cols = append(cols, c)
	}
	if !replaced {
		cols = append(cols, col)
	}
	return Schema{Columns: cols}
}
