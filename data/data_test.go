package data

import (
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/pricepredict/pkg/errors"
)

const header = "row;id;date;price;bedrooms;bathrooms;sqft_living;sqft_lot;floors;waterfront;view;condition;grade;sqft_above;sqft_basement;yr_built;yr_renovated;zipcode;lat;long;sqft_living15;sqft_lot15"

func writeFile(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "houses.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return path
}

func row(price string) string {
	return "0;7129300520;20141013T000000;" + price + ";3;1;1180;5650;1;0;0;3;7;1180;0;1955;0;98178;47.5112;-122.257;1340;5650"
}

var defaultOpts = TextLoaderOptions{Separator: ';', HasHeader: true, AllowQuoting: true}

func TestHouseDataSchema(t *testing.T) {
	s := HouseDataSchema()
	require.NoError(t, s.Validate())
	assert.Len(t, s.Columns, 12)

	c, pos, ok := s.Lookup(ColLabel)
	require.True(t, ok)
	assert.Equal(t, 0, pos)
	assert.Equal(t, 3, c.Index)
	assert.Equal(t, 14, s.MaxIndex())

	for _, name := range NumericFeatures {
		_, _, ok := s.Lookup(name)
		assert.True(t, ok, name)
	}
	assert.Len(t, NumericFeatures, 11)
}

func TestSchemaValidate(t *testing.T) {
	dup := Schema{Columns: []Column{{Name: "a", Width: 1}, {Name: "a", Width: 1}}}
	var ce *errors.ConfigurationError
	assert.True(t, errors.As(dup.Validate(), &ce))

	assert.Error(t, Schema{Columns: []Column{{Name: "", Width: 1}}}.Validate())
	assert.Error(t, Schema{Columns: []Column{{Name: "a", Width: 0}}}.Validate())

	s := HouseDataSchema().With(Column{Name: ColFeatures, Index: -1, Width: 11})
	assert.Len(t, s.Columns, 13)
	s = s.With(Column{Name: ColFeatures, Index: -1, Width: 3})
	c, _, _ := s.Lookup(ColFeatures)
	assert.Equal(t, 3, c.Width)
}

func TestValidSeparator(t *testing.T) {
	for _, r := range []rune{';', ',', '\t', '|', ':', ' ', '#'} {
		assert.True(t, ValidSeparator(r), "%q", r)
	}
	for _, r := range []rune{'a', 'Z', '5', '"', '.', '-', '+', '\n', '\r', 0} {
		assert.False(t, ValidSeparator(r), "%q", r)
	}
}

func TestParseSeparator(t *testing.T) {
	for in, want := range map[string]rune{";": ';', ",": ',', `\t`: '\t', "tab": '\t', "|": '|', "\t": '\t'} {
		got, err := ParseSeparator(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", ";;", "ab"} {
		_, err := ParseSeparator(in)
		var ve *errors.ValidationError
		assert.True(t, errors.As(err, &ve), in)
	}
}

func TestLoadFromTextFile(t *testing.T) {
	path := writeFile(t, header, row("221900"), "", row("538000"))

	view, err := LoadFromTextFile(path, defaultOpts)
	require.NoError(t, err)
	assert.Equal(t, path, view.Path())

	frame, err := view.Frame()
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Rows())

	label, err := frame.Column(ColLabel)
	require.NoError(t, err)
	assert.Equal(t, 221900.0, label.At(0, 0))
	assert.Equal(t, 538000.0, label.At(1, 0))

	recs := frame.Records()
	assert.Equal(t, HouseData{
		Label: 221900, Bedrooms: 3, Bathrooms: 1, LivingArea: 1180, LotArea: 5650,
		Floors: 1, Waterfront: 0, View: 0, Condition: 3, Grade: 7, HighFeet: 1180, BasementFeet: 0,
	}, recs[0])
}

func TestSchemaMatchesHeader(t *testing.T) {
	names := strings.Split(header, ";")
	want := map[string]string{
		ColLabel: "price", ColBedrooms: "bedrooms", ColBathrooms: "bathrooms",
		ColLivingArea: "sqft_living", ColLotArea: "sqft_lot", ColFloors: "floors",
		ColWaterfront: "waterfront", ColView: "view", ColCondition: "condition",
		ColGrade: "grade", ColHighFeet: "sqft_above", ColBasementFeet: "sqft_basement",
	}
	for _, c := range HouseDataSchema().Columns {
		require.Less(t, c.Index, len(names), c.Name)
		assert.Equal(t, want[c.Name], names[c.Index], c.Name)
	}
}

func TestLoadReadsEveryColumnFromItsIndex(t *testing.T) {
	fields := make([]string, len(strings.Split(header, ";")))
	for i := range fields {
		fields[i] = strconv.Itoa(100 + i)
	}
	fields[2] = "20141013T000000"
	path := writeFile(t, header, strings.Join(fields, ";"))

	view, err := LoadFromTextFile(path, defaultOpts)
	require.NoError(t, err)
	frame, err := view.Frame()
	require.NoError(t, err)
	require.Equal(t, 1, frame.Rows())

	assert.Equal(t, HouseData{
		Label:        103,
		Bedrooms:     104,
		Bathrooms:    105,
		LivingArea:   106,
		LotArea:      107,
		Floors:       108,
		Waterfront:   109,
		View:         110,
		Condition:    111,
		Grade:        112,
		HighFeet:     113,
		BasementFeet: 114,
	}, frame.Records()[0])
}

func TestTextViewIsReiterable(t *testing.T) {
	path := writeFile(t, header, row("1"), row("2"), row("3"))
	view, err := LoadFromTextFile(path, defaultOpts)
	require.NoError(t, err)

	count := func() int {
		n := 0
		for _, err := range view.Records() {
			require.NoError(t, err)
			n++
		}
		return n
	}
	assert.Equal(t, 3, count())
	assert.Equal(t, 3, count())
}

func TestLoadFromTextFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFromTextFile(filepath.Join(t.TempDir(), "nope.csv"), defaultOpts)
		var de *errors.DataLoadError
		require.True(t, errors.As(err, &de))
		assert.Contains(t, err.Error(), "file not found")
	})

	t.Run("directory", func(t *testing.T) {
		_, err := LoadFromTextFile(t.TempDir(), defaultOpts)
		var de *errors.DataLoadError
		assert.True(t, errors.As(err, &de))
	})

	t.Run("invalid separator", func(t *testing.T) {
		path := writeFile(t, header)
		_, err := LoadFromTextFile(path, TextLoaderOptions{Separator: 'x'})
		var de *errors.DataLoadError
		assert.True(t, errors.As(err, &de))
	})
}

func TestMalformedRowRejectsLoad(t *testing.T) {
	t.Run("not a number", func(t *testing.T) {
		path := writeFile(t, header, row("1"), row("abc"))
		view, err := LoadFromTextFile(path, defaultOpts)
		require.NoError(t, err)

		_, err = view.Frame()
		var de *errors.DataLoadError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 3, de.Line)
		assert.Equal(t, 3, de.Column)
	})

	t.Run("short row", func(t *testing.T) {
		path := writeFile(t, header, "1;2;3;4")
		view, err := LoadFromTextFile(path, defaultOpts)
		require.NoError(t, err)

		_, err = view.Frame()
		var de *errors.DataLoadError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 2, de.Line)
		assert.Equal(t, 4, de.Column)
	})
}

func TestMissingValues(t *testing.T) {
	nanRow := strings.Replace(row("100"), ";3;1;1180;", ";NaN;;1180;", 1)
	path := writeFile(t, header, nanRow)

	view, err := LoadFromTextFile(path, defaultOpts)
	require.NoError(t, err)
	frame, err := view.Frame()
	require.NoError(t, err)

	recs := frame.Records()
	assert.True(t, math.IsNaN(recs[0].Bedrooms))
	assert.True(t, math.IsNaN(recs[0].Bathrooms))
	assert.Equal(t, 1180.0, recs[0].LivingArea)
}

func TestQuotingAndTrimming(t *testing.T) {
	quoted := strings.Replace(row("100"), ";100;", `;"100";`, 1)
	spaced := strings.Replace(row("200"), ";200;", "; 200 ;", 1)

	t.Run("quoted", func(t *testing.T) {
		view, err := LoadFromTextFile(writeFile(t, header, quoted), defaultOpts)
		require.NoError(t, err)
		frame, err := view.Frame()
		require.NoError(t, err)
		assert.Equal(t, 100.0, frame.Records()[0].Label)
	})

	t.Run("quotes are literal without quoting", func(t *testing.T) {
		view, err := LoadFromTextFile(writeFile(t, header, quoted), TextLoaderOptions{Separator: ';', HasHeader: true})
		require.NoError(t, err)
		_, err = view.Frame()
		assert.Error(t, err)
	})

	t.Run("trimmed", func(t *testing.T) {
		opts := defaultOpts
		opts.TrimWhitespace = true
		view, err := LoadFromTextFile(writeFile(t, header, spaced), opts)
		require.NoError(t, err)
		frame, err := view.Frame()
		require.NoError(t, err)
		assert.Equal(t, 200.0, frame.Records()[0].Label)
	})

	t.Run("untrimmed", func(t *testing.T) {
		view, err := LoadFromTextFile(writeFile(t, header, spaced), defaultOpts)
		require.NoError(t, err)
		_, err = view.Frame()
		assert.Error(t, err)
	})
}

func TestHeaderOnly(t *testing.T) {
	view, err := LoadFromTextFile(writeFile(t, header), defaultOpts)
	require.NoError(t, err)
	frame, err := view.Frame()
	require.NoError(t, err)
	assert.Equal(t, 0, frame.Rows())

	col, err := frame.Column(ColLabel)
	require.NoError(t, err)
	assert.Nil(t, col)
}

func TestFrameSubsetAndWithColumn(t *testing.T) {
	f := FrameFromRecords([]HouseData{{Label: 1}, {Label: 2}, {Label: 3}})

	sub, err := f.Subset([]int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Rows())
	label, _ := sub.Column(ColLabel)
	assert.Equal(t, []float64{3, 1}, mat.Col(nil, 0, label))

	_, err = f.Subset([]int{5})
	assert.Error(t, err)

	empty, err := f.Subset(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Rows())

	feats := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	g, err := f.WithColumn(ColFeatures, feats)
	require.NoError(t, err)
	c, _, ok := g.Schema().Lookup(ColFeatures)
	require.True(t, ok)
	assert.Equal(t, 2, c.Width)
	assert.Equal(t, -1, c.Index)

	_, err = f.WithColumn(ColFeatures, mat.NewDense(2, 2, nil))
	assert.Error(t, err)

	_, err = f.Column("nope")
	assert.Error(t, err)
}
