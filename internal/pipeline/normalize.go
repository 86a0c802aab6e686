package pipeline

import (
	"strconv"
	"strings"

	"carpivot/internal"
	"carpivot/internal/util"
)

// Fuel consumption unit tags.
const (
	UnitLitresPer100Km = "l_km_consumption"
	UnitKmPerLitre     = "km_l_consumption"
	UnitMilesPerGallon = "mi_g_consumption"
)

// Vehicle types.
const (
	VehicleCar        = "car"
	VehicleMotorcycle = "motorcycle"
)

const carTypeOther = "Other"

// Derived is the outcome of one field derivation: a value, or the reason
// the field has to fall back to a default.
type Derived struct {
	Value  string
	Reason internal.NullReason
}

func derived(v string) Derived { return Derived{Value: v} }

func failed(reason internal.NullReason) Derived { return Derived{Reason: reason} }

func (d Derived) OK() bool { return d.Reason == "" }

// Or returns the value, or fallback when the derivation failed.
func (d Derived) Or(fallback string) string {
	if d.OK() {
		return d.Value
	}
	return fallback
}

var conditions = map[string]string{
	"Occasion":      "Used",
	"Oldtimer":      "Restored",
	"Neu":           "New",
	"Vorführmodell": "Original Condition",
}

type BodyClass struct {
	CarType string
	Vehicle string
}

var bodyTypes = map[string]BodyClass{
	"Limousine":            {CarType: "Saloon", Vehicle: VehicleCar},
	"Kombi":                {CarType: "Station Wagon", Vehicle: VehicleCar},
	"Coupé":                {CarType: "Coupé", Vehicle: VehicleCar},
	"SUV / Geländewagen":   {CarType: "SUV", Vehicle: VehicleCar},
	"Cabriolet":            {CarType: "Convertible / Roadster", Vehicle: VehicleCar},
	"Wohnkabine":           {CarType: carTypeOther, Vehicle: VehicleCar},
	"Kleinwagen":           {CarType: carTypeOther, Vehicle: VehicleCar},
	"Kompaktvan / Minivan": {CarType: carTypeOther, Vehicle: VehicleCar},
	"Sattelschlepper":      {CarType: carTypeOther, Vehicle: VehicleCar},
	"Pick-up":              {CarType: carTypeOther, Vehicle: VehicleCar},
}

// derivedColumns are appended to the normalized table in this order.
var derivedColumns = []string{
	internal.ColFuelConsumptionUnit, internal.ColMileage, internal.ColColor,
	internal.ColCarType, internal.ColType,
}

// unknownBody is what every unlisted body type maps to. It also turns
// unknown car bodies into motorcycles.
var unknownBody = BodyClass{CarType: carTypeOther, Vehicle: VehicleMotorcycle}

// NormalizeCondition maps the supplier condition vocabulary by exact match.
func NormalizeCondition(v internal.Value) Derived {
	if v.IsMissing() {
		return failed(internal.ReasonMissing)
	}
	mapped, ok := conditions[v.String()]
	if !ok {
		return failed(internal.ReasonUnmapped)
	}
	return derived(mapped)
}

// ClassifyConsumptionUnit infers the unit from the tail of the consumption
// text. Anything that ends in neither "km" nor "l" is taken to be MPG.
func ClassifyConsumptionUnit(v internal.Value) Derived {
	switch v.Kind() {
	case internal.KindMissing:
		return failed(internal.ReasonMissing)
	case internal.KindNumber:
		return failed(internal.ReasonNotText)
	}
	s := v.String()
	switch {
	case strings.HasSuffix(s, "km"):
		return derived(UnitLitresPer100Km)
	case strings.HasSuffix(s, "l"):
		return derived(UnitKmPerLitre)
	default:
		return derived(UnitMilesPerGallon)
	}
}

// FormatMileage renders the odometer reading with one fractional digit.
func FormatMileage(v internal.Value) Derived {
	if v.IsMissing() {
		return failed(internal.ReasonMissing)
	}
	f, ok := v.Float()
	if !ok {
		return failed(internal.ReasonNotNumeric)
	}
	return derived(strconv.FormatFloat(f, 'f', 1, 64))
}

func CapitalizeColor(v internal.Value) Derived {
	switch v.Kind() {
	case internal.KindMissing:
		return failed(internal.ReasonMissing)
	case internal.KindNumber:
		return failed(internal.ReasonNotText)
	}
	return derived(util.Capitalize(v.String()))
}

// MapBodyType classifies the body type. The reason is set when the fallback
// class was used.
func MapBodyType(v internal.Value) (BodyClass, internal.NullReason) {
	if v.IsMissing() {
		return unknownBody, internal.ReasonMissing
	}
	class, ok := bodyTypes[v.String()]
	if !ok {
		return unknownBody, internal.ReasonUnmapped
	}
	return class, ""
}

// Normalize returns a copy of the pivoted table with the derived columns
// added. The input table is not modified.
func Normalize(pivoted internal.Table) internal.Table {
	out := internal.Table{
		Columns:  append([]string(nil), pivoted.Columns...),
		Listings: make([]internal.Listing, len(pivoted.Listings)),
	}
	for _, col := range derivedColumns {
		out.AddColumn(col)
	}
	for i, l := range pivoted.Listings {
		out.Listings[i] = NormalizeListing(l)
	}
	return out
}

// NormalizeListing applies every field rule to a copy of l. A listing with
// no source rows gets the null sentinel in every derived column.
func NormalizeListing(l internal.Listing) internal.Listing {
	out := l.Clone()
	out.Defaults = map[string]internal.NullReason{}

	set := func(col string, d Derived) {
		if !d.OK() {
			out.Defaults[col] = d.Reason
		}
		out.Cells[col] = internal.Text(d.Or(internal.NullSentinel))
	}

	if out.Missing {
		for _, col := range derivedColumns {
			set(col, failed(internal.ReasonMissing))
		}
		out.Defaults[internal.ColConditionType] = internal.ReasonMissing
		return out
	}

	// An unmapped condition keeps its source text.
	if cond := NormalizeCondition(l.Get(internal.ColConditionType)); cond.OK() {
		out.Cells[internal.ColConditionType] = internal.Text(cond.Value)
	} else {
		out.Defaults[internal.ColConditionType] = cond.Reason
	}

	set(internal.ColFuelConsumptionUnit, ClassifyConsumptionUnit(l.Get(internal.ColConsumptionTotal)))
	set(internal.ColMileage, FormatMileage(l.Get(internal.ColKm)))
	set(internal.ColColor, CapitalizeColor(l.Get(internal.ColBodyColor)))

	class, reason := MapBodyType(l.Get(internal.ColBodyType))
	if reason != "" {
		out.Defaults[internal.ColCarType] = reason
	}
	out.Cells[internal.ColCarType] = internal.Text(class.CarType)
	out.Cells[internal.ColType] = internal.Text(class.Vehicle)
	return out
}
