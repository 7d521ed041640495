package domain

// HazardOption is one selectable hazard type.
type HazardOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var oceanHazards = []HazardOption{
	{Value: "tsunami", Label: "Tsunami"},
	{Value: "high_waves", Label: "High Waves"},
	{Value: "flooding", Label: "Coastal Flooding"},
	{Value: "oil_spill", Label: "Oil Spill"},
	{Value: "rip_currents", Label: "Rip Currents"},
}

var localHazards = []HazardOption{
	{Value: "torrential_rainfall", Label: "Torrential Rainfall"},
	{Value: "electrocution", Label: "Electrocution Risk"},
	{Value: "urban_flooding", Label: "Urban Flooding"},
	{Value: "tree_falls", Label: "Tree Falls"},
	{Value: "landslides", Label: "Landslides"},
}

// HazardTypes returns the hazard types offered for a category, or nil for an
// unknown or empty category.
func HazardTypes(c Category) []HazardOption {
	var src []HazardOption
	switch c {
	case CategoryOcean:
		src = oceanHazards
	case CategoryLocal:
		src = localHazards
	default:
		return nil
	}
	out := make([]HazardOption, len(src))
	copy(out, src)
	return out
}

// IsHazardType reports whether hazardType belongs to category c.
func IsHazardType(c Category, hazardType string) bool {
	for _, opt := range HazardTypes(c) {
		if opt.Value == hazardType {
			return true
		}
	}
	return false
}
