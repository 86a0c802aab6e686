package pipeline

import "carpivot/internal"

func txt(s string) internal.Value { return internal.Text(s) }

func num(s string) internal.Value { return internal.Number(s) }

// attr builds a raw row for listing id carrying one attribute.
func attr(id int, brand, model, name string, value internal.Value) internal.RawAttributeRow {
	return internal.RawAttributeRow{
		ID:             id,
		MakeText:       txt(brand),
		TypeName:       txt(model),
		TypeNameFull:   txt(brand + " " + model),
		ModelText:      txt(model),
		ModelTypeText:  txt(model + " variant"),
		AttributeName:  name,
		AttributeValue: value,
	}
}
