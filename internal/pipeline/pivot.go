package pipeline

import (
	"errors"
	"fmt"
	"sort"

	"carpivot/internal"
	"carpivot/internal/config"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute name")
	ErrIDSpan           = errors.New("listing identifiers too sparse to fill")
)

// MaxFilledListings caps how many gap listings the fill policy may invent.
const MaxFilledListings = 100_000

// knownAttributes lists the attribute names the supplier export is expected
// to carry. Anything else is still pivoted but reported.
var knownAttributes = map[string]struct{}{
	internal.ColKm:               {},
	internal.ColBodyColor:        {},
	internal.ColBodyType:         {},
	internal.ColConditionType:    {},
	internal.ColConsumptionTotal: {},
	internal.ColFirstRegYear:     {},
	internal.ColFirstRegMonth:    {},
	internal.ColCity:             {},
	"Ccm":                        {},
	"Hp":                         {},
	"Doors":                      {},
	"Seats":                      {},
	"FuelTypeText":               {},
	"TransmissionTypeText":       {},
	"DriveTypeText":              {},
	"InteriorColorText":          {},
	"Co2EmissionText":            {},
	"ConsumptionRatingText":      {},
	"Properties":                 {},
}

func IsKnownAttribute(name string) bool {
	_, ok := knownAttributes[name]
	return ok
}

type PivotOptions struct {
	MissingListings string
	Strict          bool
}

// PivotResult is the pivoted table plus what the grouping pass observed.
// MissingIDs lists at most MaxFilledListings of the MissingCount gaps.
type PivotResult struct {
	Table             internal.Table
	MaxID             int
	MissingCount      int
	MissingIDs        []int
	UnknownAttributes []string
}

// Pivot groups raw rows by listing ID and returns one listing per ID in
// 1..max(ID), ascending. Each attribute becomes a column named after it.
// Under the skip policy only IDs with rows are emitted.
func Pivot(rows []internal.RawAttributeRow, opts PivotOptions) (PivotResult, error) {
	groups := make(map[int][]internal.RawAttributeRow)
	maxID := 0
	for _, r := range rows {
		groups[r.ID] = append(groups[r.ID], r)
		if r.ID > maxID {
			maxID = r.ID
		}
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	fill := opts.MissingListings != config.MissingSkip
	if gaps := maxID - len(ids); fill && gaps > MaxFilledListings {
		return PivotResult{}, fmt.Errorf("%w: highest ID %d leaves %d gaps (limit %d)", ErrIDSpan, maxID, gaps, MaxFilledListings)
	}

	res := PivotResult{
		Table: internal.Table{Columns: append([]string(nil), internal.FixedColumns...)},
		MaxID: maxID,
	}
	if fill {
		res.Table.Listings = make([]internal.Listing, 0, maxID)
	} else {
		res.Table.Listings = make([]internal.Listing, 0, len(ids))
	}
	unknown := map[string]struct{}{}

	next := 1
	for _, id := range ids {
		res.MissingCount += id - next
		for ; next < id && len(res.MissingIDs) < MaxFilledListings; next++ {
			res.MissingIDs = append(res.MissingIDs, next)
			if fill {
				listing := internal.NewListing(next)
				listing.Missing = true
				res.Table.Listings = append(res.Table.Listings, listing)
			}
		}
		next = id + 1

		listing, err := pivotListing(id, groups[id], &res.Table, unknown, opts.Strict)
		if err != nil {
			return PivotResult{}, err
		}
		res.Table.Listings = append(res.Table.Listings, listing)
	}

	for name := range unknown {
		res.UnknownAttributes = append(res.UnknownAttributes, name)
	}
	sort.Strings(res.UnknownAttributes)
	return res, nil
}

func pivotListing(id int, group []internal.RawAttributeRow, t *internal.Table, unknown map[string]struct{}, strict bool) (internal.Listing, error) {
	listing := internal.NewListing(id)
	first := group[0]
	for _, col := range internal.FixedColumns[1:] {
		listing.Cells[col] = first.Fixed(col)
	}
	for _, col := range internal.ListingColumns {
		if v, ok := first.Fields[col]; ok {
			listing.Cells[col] = v
			t.AddColumn(col)
		}
	}

	seen := map[string]struct{}{}
	for _, r := range group {
		name := r.AttributeName
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		if !IsKnownAttribute(name) {
			if strict {
				return internal.Listing{}, fmt.Errorf("%w: %q (listing %d, line %d)", ErrUnknownAttribute, name, id, r.Line)
			}
			unknown[name] = struct{}{}
		}
		listing.Cells[name] = r.AttributeValue
		t.AddColumn(name)
	}
	return listing, nil
}
