package pipeline

import (
	"carpivot/internal"
	"carpivot/internal/config"
)

// ProjectOptions carries the constants written to every output record.
type ProjectOptions struct {
	Country     string
	MileageUnit string
}

func ProjectOptionsFromConfig(cfg config.Config) ProjectOptions {
	return ProjectOptions{Country: cfg.TargetCountry, MileageUnit: cfg.MileageUnit}
}

func Project(normalized internal.Table, opts ProjectOptions) []internal.OutputRecord {
	out := make([]internal.OutputRecord, 0, len(normalized.Listings))
	for _, l := range normalized.Listings {
		out = append(out, ProjectListing(l, opts))
	}
	return out
}

// ProjectListing maps one normalized listing onto the target schema. Values
// are copied as is; a listing without source rows becomes all null.
func ProjectListing(l internal.Listing, opts ProjectOptions) internal.OutputRecord {
	null := internal.Text(internal.NullSentinel)
	if l.Missing {
		return internal.OutputRecord{
			ID: l.ID, CarType: null, Color: null, Condition: null, Currency: null,
			Drive: null, City: null, Country: null, Make: null, ManufactureYear: null,
			Mileage: null, MileageUnit: null, Model: null, ModelVariant: null,
			PriceOnRequest: null, Type: null, Zip: null, ManufactureMonth: null,
			FuelConsumptionUnit: null,
		}
	}

	return internal.OutputRecord{
		ID:                  l.ID,
		CarType:             l.Get(internal.ColCarType),
		Color:               l.Get(internal.ColColor),
		Condition:           l.Get(internal.ColConditionType),
		Currency:            null,
		Drive:               null,
		City:                l.Get(internal.ColCity),
		Country:             internal.Text(opts.Country),
		Make:                l.Get(internal.ColMakeText),
		ManufactureYear:     l.Get(internal.ColFirstRegYear),
		Mileage:             l.Get(internal.ColMileage),
		MileageUnit:         internal.Text(opts.MileageUnit),
		Model:               l.Get(internal.ColModelText),
		ModelVariant:        l.Get(internal.ColModelType),
		PriceOnRequest:      null,
		Type:                l.Get(internal.ColType),
		Zip:                 null,
		ManufactureMonth:    l.Get(internal.ColFirstRegMonth),
		FuelConsumptionUnit: l.Get(internal.ColFuelConsumptionUnit),
	}
}
