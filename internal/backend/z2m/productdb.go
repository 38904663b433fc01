package z2m

import "github.com/nilclass/huebridge/internal/resource"

// productDB is a static subset of the device product-data catalog
// (SPEC_FULL.md supplemented feature 1), grounded on
// original_source/crates/hue/src/devicedb.rs's SimpleProductData table.
// Unknown model ids fall back to a generic entry in DeriveProductData.
var productDB = map[string]resource.ProductData{
	"LCT001": {
		ModelID:          "LCT001",
		ManufacturerName: "Signify Netherlands B.V.",
		ProductName:      "Hue bulb A19",
		ProductArchetype: "sultan_bulb",
	},
	"LCT015": {
		ModelID:          "LCT015",
		ManufacturerName: "Signify Netherlands B.V.",
		ProductName:      "Hue color candle",
		ProductArchetype: "candle_bulb",
	},
	"LST002": {
		ModelID:          "LST002",
		ManufacturerName: "Signify Netherlands B.V.",
		ProductName:      "Hue lightstrip plus",
		ProductArchetype: "hue_lightstrip",
	},
	"LOM001": {
		ModelID:          "LOM001",
		ManufacturerName: "Signify Netherlands B.V.",
		ProductName:      "Hue smart plug",
		ProductArchetype: "plug",
	},
}
