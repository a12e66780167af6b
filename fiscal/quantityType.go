package fiscal

import "strings"

type QuantityType int

const (
	QuantityPiece QuantityType = iota + 1
	QuantityKilogram
	QuantityLiter
	QuantityMeter
	QuantitySquareMeter
	QuantityCubicMeter
)

type VatType int

const (
	VatStandard VatType = 1
	VatExempt   VatType = 2
)

// Code types understood by the device.
const (
	CodeTypePlain   = 0
	CodeTypeBarcode = 1
)

var (
	areaMarkers     = []string{"m2", "m²", "kv.m", "kvm", "sq", "square"}
	volumeMarkers   = []string{"m3", "m³", "kub", "cubic"}
	kilogramMarkers = []string{"kg", "kq", "kilo"}
	literMarkers    = []string{"liter", "litre", "litr"}
	meterMarkers    = []string{"meter", "metre", "metr"}
)

// ClassifyUnit maps a free-text unit name to the device quantity type.
// Area and volume are checked before meter since their names contain it.
func ClassifyUnit(unitName string) QuantityType {
	name := strings.ToLower(strings.TrimSpace(unitName))
	if name == "" {
		return QuantityPiece
	}
	switch {
	case containsAny(name, areaMarkers):
		return QuantitySquareMeter
	case containsAny(name, volumeMarkers):
		return QuantityCubicMeter
	case containsAny(name, kilogramMarkers):
		return QuantityKilogram
	case containsAny(name, literMarkers) || name == "l" || name == "lt":
		return QuantityLiter
	case containsAny(name, meterMarkers) || name == "m":
		return QuantityMeter
	}
	return QuantityPiece
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
