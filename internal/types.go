package internal

import (
	"math"
	"strconv"
	"strings"
)

// NullSentinel marks a field that has no value in the source.
const NullSentinel = "null"

type ValueKind int

const (
	KindMissing ValueKind = iota
	KindText
	KindNumber
)

// Value is one decoded source cell. Blank text is treated as missing.
type Value struct {
	kind ValueKind
	raw  string
}

func Missing() Value { return Value{} }

func Text(s string) Value {
	if strings.TrimSpace(s) == "" {
		return Value{}
	}
	return Value{kind: KindText, raw: s}
}

// Number keeps the literal as decoded so integers stay integers on export.
func Number(literal string) Value {
	literal = strings.TrimSpace(literal)
	if literal == "" {
		return Value{}
	}
	return Value{kind: KindNumber, raw: literal}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsMissing() bool { return v.kind == KindMissing }

func (v Value) String() string { return v.raw }

// Float parses the value as a finite number. Numeric text is accepted.
func (v Value) Float() (float64, bool) {
	if v.kind == KindMissing {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v.raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Cell returns the form written to a spreadsheet cell.
func (v Value) Cell() any {
	switch v.kind {
	case KindNumber:
		if i, err := strconv.ParseInt(v.raw, 10, 64); err == nil {
			return i
		}
		if f, ok := v.Float(); ok {
			return f
		}
		return v.raw
	case KindText:
		return v.raw
	default:
		return nil
	}
}

// Fixed listing-level columns, in sheet order.
const (
	ColID           = "ID"
	ColMakeText     = "MakeText"
	ColTypeName     = "TypeName"
	ColTypeNameFull = "TypeNameFull"
	ColModelText    = "ModelText"
	ColModelType    = "ModelTypeText"
)

var FixedColumns = []string{ColID, ColMakeText, ColTypeName, ColTypeNameFull, ColModelText, ColModelType}

// Source columns read by normalization and projection. They usually arrive
// as attributes but may also be present on the record itself.
const (
	ColBodyColor        = "BodyColorText"
	ColBodyType         = "BodyTypeText"
	ColConditionType    = "ConditionTypeText"
	ColConsumptionTotal = "ConsumptionTotalText"
	ColFirstRegYear     = "FirstRegYear"
	ColFirstRegMonth    = "FirstRegMonth"
	ColCity             = "City"
	ColKm               = "Km"
)

var ListingColumns = []string{
	ColBodyColor, ColBodyType, ColConditionType, ColConsumptionTotal,
	ColFirstRegYear, ColFirstRegMonth, ColCity,
}

// Columns added by normalization.
const (
	ColFuelConsumptionUnit = "fuel_consumption_unit"
	ColMileage             = "mileage"
	ColColor               = "color"
	ColCarType             = "carType"
	ColType                = "type"
)

type RawAttributeRow struct {
	Line           int
	ID             int
	MakeText       Value
	TypeName       Value
	TypeNameFull   Value
	ModelText      Value
	ModelTypeText  Value
	Fields         map[string]Value
	AttributeName  string
	AttributeValue Value
}

// Fixed returns the value of one of FixedColumns other than ID.
func (r RawAttributeRow) Fixed(col string) Value {
	switch col {
	case ColMakeText:
		return r.MakeText
	case ColTypeName:
		return r.TypeName
	case ColTypeNameFull:
		return r.TypeNameFull
	case ColModelText:
		return r.ModelText
	case ColModelType:
		return r.ModelTypeText
	default:
		return Missing()
	}
}

type NullReason string

const (
	ReasonMissing    NullReason = "missing"
	ReasonNotNumeric NullReason = "not_numeric"
	ReasonNotText    NullReason = "not_text"
	ReasonUnmapped   NullReason = "unmapped"
)

type Listing struct {
	ID      int
	Missing bool
	Cells   map[string]Value

	// Defaults records which derived columns fell back and why.
	Defaults map[string]NullReason
}

func NewListing(id int) Listing {
	return Listing{
		ID:    id,
		Cells: map[string]Value{ColID: Number(strconv.Itoa(id))},
	}
}

func (l Listing) Get(col string) Value {
	return l.Cells[col]
}

func (l Listing) Clone() Listing {
	out := Listing{ID: l.ID, Missing: l.Missing, Cells: make(map[string]Value, len(l.Cells))}
	for k, v := range l.Cells {
		out.Cells[k] = v
	}
	if l.Defaults != nil {
		out.Defaults = make(map[string]NullReason, len(l.Defaults))
		for k, v := range l.Defaults {
			out.Defaults[k] = v
		}
	}
	return out
}

// Table is one stage's output: ordered columns and listings ascending by ID.
type Table struct {
	Columns  []string
	Listings []Listing
}

func (t *Table) AddColumn(col string) {
	for _, c := range t.Columns {
		if c == col {
			return
		}
	}
	t.Columns = append(t.Columns, col)
}

func (t Table) Clone() Table {
	out := Table{
		Columns:  append([]string(nil), t.Columns...),
		Listings: make([]Listing, len(t.Listings)),
	}
	for i, l := range t.Listings {
		out.Listings[i] = l.Clone()
	}
	return out
}

type OutputRecord struct {
	ID                  int
	CarType             Value
	Color               Value
	Condition           Value
	Currency            Value
	Drive               Value
	City                Value
	Country             Value
	Make                Value
	ManufactureYear     Value
	Mileage             Value
	MileageUnit         Value
	Model               Value
	ModelVariant        Value
	PriceOnRequest      Value
	Type                Value
	Zip                 Value
	ManufactureMonth    Value
	FuelConsumptionUnit Value
}

var OutputColumns = []string{
	"carType", "color", "condition", "currency", "drive", "city", "country",
	"make", "manufacture_year", "mileage", "mileage_unit", "model", "model_variant",
	"price_on_request", "type", "zip", "manufacture_month", "fuel_consumption_unit",
}

// Values returns the record's cells in OutputColumns order.
func (o OutputRecord) Values() []Value {
	return []Value{
		o.CarType, o.Color, o.Condition, o.Currency, o.Drive, o.City, o.Country,
		o.Make, o.ManufactureYear, o.Mileage, o.MileageUnit, o.Model, o.ModelVariant,
		o.PriceOnRequest, o.Type, o.Zip, o.ManufactureMonth, o.FuelConsumptionUnit,
	}
}

type RunRow struct {
	ID        int
	TraceID   string
	Input     string
	Output    string
	TimingsMs map[string]float64
	Counts    map[string]int
	CreatedAt string
}

type FieldDiagnostic struct {
	ListingID int
	Field     string
	Reason    NullReason
}
