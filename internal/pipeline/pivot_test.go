package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpivot/internal"
	"carpivot/internal/config"
)

func TestPivotGroupsAttributesByListing(t *testing.T) {
	rows := []internal.RawAttributeRow{
		attr(2, "BMW", "320d", "Km", num("120000")),
		attr(1, "AUDI", "A4", "Km", num("32000")),
		attr(1, "AUDI", "A4", "BodyColorText", txt("schwarz")),
		attr(2, "BMW", "320d", "Hp", num("190")),
		attr(1, "AUDI", "A4", "Km", num("99")),
	}

	res, err := Pivot(rows, PivotOptions{MissingListings: config.MissingFill})
	require.NoError(t, err)
	assert.Equal(t, 2, res.MaxID)
	assert.Empty(t, res.MissingIDs)
	assert.Empty(t, res.UnknownAttributes)

	assert.Equal(t, []string{"ID", "MakeText", "TypeName", "TypeNameFull", "ModelText", "ModelTypeText", "Km", "BodyColorText", "Hp"}, res.Table.Columns)
	require.Len(t, res.Table.Listings, 2)

	for i, l := range res.Table.Listings {
		assert.Equal(t, i+1, l.ID)
		assert.Equal(t, int64(i+1), l.Get(internal.ColID).Cell())
	}

	first := res.Table.Listings[0]
	assert.Equal(t, "AUDI", first.Get(internal.ColMakeText).String())
	assert.Equal(t, "A4 variant", first.Get(internal.ColModelType).String())
	assert.Equal(t, "32000", first.Get("Km").String(), "first value of a repeated attribute wins")
	assert.Equal(t, "schwarz", first.Get("BodyColorText").String())
	assert.True(t, first.Get("Hp").IsMissing())

	second := res.Table.Listings[1]
	assert.Equal(t, "190", second.Get("Hp").String())
	assert.True(t, second.Get("BodyColorText").IsMissing())
}

func TestPivotEveryAttributeRetrievable(t *testing.T) {
	rows := []internal.RawAttributeRow{
		attr(1, "VW", "Golf", "Km", num("1000")),
		attr(1, "VW", "Golf", "City", txt("Zürich")),
		attr(1, "VW", "Golf", "FirstRegYear", num("2015")),
		attr(1, "VW", "Golf", "ConsumptionTotalText", txt("6.5 l/100km")),
	}
	res, err := Pivot(rows, PivotOptions{MissingListings: config.MissingFill})
	require.NoError(t, err)
	listing := res.Table.Listings[0]
	for _, r := range rows {
		assert.Equal(t, r.AttributeValue, listing.Get(r.AttributeName), r.AttributeName)
	}
}

func TestPivotCarriesTopLevelListingFields(t *testing.T) {
	row := attr(1, "FIAT", "500", "Km", num("5000"))
	row.Fields = map[string]internal.Value{
		internal.ColBodyType: txt("Kleinwagen"),
		internal.ColCity:     txt("Bern"),
	}
	override := attr(1, "FIAT", "500", internal.ColCity, txt("Basel"))

	res, err := Pivot([]internal.RawAttributeRow{row, override}, PivotOptions{MissingListings: config.MissingFill})
	require.NoError(t, err)
	l := res.Table.Listings[0]
	assert.Equal(t, "Kleinwagen", l.Get(internal.ColBodyType).String())
	assert.Equal(t, "Basel", l.Get(internal.ColCity).String(), "attribute overrides top-level field")
	assert.Contains(t, res.Table.Columns, internal.ColBodyType)
}

func TestPivotMissingListingPolicies(t *testing.T) {
	rows := []internal.RawAttributeRow{
		attr(1, "AUDI", "A4", "Km", num("1")),
		attr(4, "OPEL", "Corsa", "Km", num("4")),
	}

	t.Run("fill", func(t *testing.T) {
		res, err := Pivot(rows, PivotOptions{MissingListings: config.MissingFill})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, res.MissingIDs)
		assert.Equal(t, 2, res.MissingCount)
		require.Len(t, res.Table.Listings, 4)

		gap := res.Table.Listings[1]
		assert.Equal(t, 2, gap.ID)
		assert.True(t, gap.Missing)
		assert.Equal(t, int64(2), gap.Get(internal.ColID).Cell())
		assert.True(t, gap.Get(internal.ColMakeText).IsMissing())
		assert.False(t, res.Table.Listings[3].Missing)
	})

	t.Run("skip", func(t *testing.T) {
		res, err := Pivot(rows, PivotOptions{MissingListings: config.MissingSkip})
		require.NoError(t, err)
		assert.Equal(t, []int{2, 3}, res.MissingIDs)
		require.Len(t, res.Table.Listings, 2)
		assert.Equal(t, 1, res.Table.Listings[0].ID)
		assert.Equal(t, 4, res.Table.Listings[1].ID)
	})
}

func TestPivotSparseHugeID(t *testing.T) {
	rows := []internal.RawAttributeRow{
		attr(1, "AUDI", "A4", "Km", num("1")),
		attr(1<<62, "OPEL", "Corsa", "Km", num("4")),
	}

	t.Run("fill", func(t *testing.T) {
		_, err := Pivot(rows, PivotOptions{MissingListings: config.MissingFill})
		require.ErrorIs(t, err, ErrIDSpan)
	})

	t.Run("skip", func(t *testing.T) {
		res, err := Pivot(rows, PivotOptions{MissingListings: config.MissingSkip})
		require.NoError(t, err)
		require.Len(t, res.Table.Listings, 2)
		assert.Equal(t, 1<<62, res.Table.Listings[1].ID)
		assert.Equal(t, 1<<62-2, res.MissingCount)
		assert.Len(t, res.MissingIDs, MaxFilledListings)
		assert.Equal(t, 2, res.MissingIDs[0])
	})

	t.Run("fill within limit", func(t *testing.T) {
		rows := []internal.RawAttributeRow{attr(MaxFilledListings+1, "OPEL", "Corsa", "Km", num("4"))}
		res, err := Pivot(rows, PivotOptions{MissingListings: config.MissingFill})
		require.NoError(t, err)
		assert.Len(t, res.Table.Listings, MaxFilledListings+1)
		assert.Equal(t, MaxFilledListings, res.MissingCount)
	})
}

func TestPivotUnknownAttributes(t *testing.T) {
	rows := []internal.RawAttributeRow{
		attr(1, "AUDI", "A4", "Warranty", txt("12 Monate")),
		attr(1, "AUDI", "A4", "Km", num("1")),
		attr(2, "AUDI", "A6", "Accident", txt("nein")),
		attr(2, "AUDI", "A6", "Warranty", txt("24 Monate")),
	}

	res, err := Pivot(rows, PivotOptions{MissingListings: config.MissingFill})
	require.NoError(t, err)
	assert.Equal(t, []string{"Accident", "Warranty"}, res.UnknownAttributes)
	assert.Equal(t, "24 Monate", res.Table.Listings[1].Get("Warranty").String())

	_, err = Pivot(rows, PivotOptions{MissingListings: config.MissingFill, Strict: true})
	require.ErrorIs(t, err, ErrUnknownAttribute)
	assert.Contains(t, err.Error(), `"Warranty"`)
}

func TestPivotIgnoresEmptyAttributeName(t *testing.T) {
	res, err := Pivot([]internal.RawAttributeRow{attr(1, "AUDI", "A4", "", txt("x"))}, PivotOptions{MissingListings: config.MissingFill})
	require.NoError(t, err)
	assert.Equal(t, internal.FixedColumns, res.Table.Columns)
}

func TestPivotEmptyInput(t *testing.T) {
	res, err := Pivot(nil, PivotOptions{MissingListings: config.MissingFill})
	require.NoError(t, err)
	assert.Equal(t, 0, res.MaxID)
	assert.Empty(t, res.Table.Listings)
}
