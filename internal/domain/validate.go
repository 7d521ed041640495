package domain

import "unicode/utf8"

// Requirement names one submission condition a draft fails to meet.
type Requirement string

const (
	RequireCategory    Requirement = "hazardCategory"
	RequireHazardType  Requirement = "hazardType"
	RequireLatitude    Requirement = "location.latitude"
	RequireLongitude   Requirement = "location.longitude"
	RequireSeverity    Requirement = "severity"
	RequireDescription Requirement = "description"
	RequireContact     Requirement = "contactInfo"
)

// Requirements lists every submission condition in evaluation order.
var Requirements = []Requirement{
	RequireCategory,
	RequireHazardType,
	RequireLatitude,
	RequireLongitude,
	RequireSeverity,
	RequireDescription,
	RequireContact,
}

// Validate returns the conditions d does not satisfy, in the order of
// [Requirements]. An empty result means the draft may be submitted.
func Validate(d Draft) []Requirement {
	unmet := make([]Requirement, 0, len(Requirements))
	if d.HazardCategory == "" {
		unmet = append(unmet, RequireCategory)
	}
	if d.HazardType == "" {
		unmet = append(unmet, RequireHazardType)
	}
	if d.Location.Latitude == "" {
		unmet = append(unmet, RequireLatitude)
	}
	if d.Location.Longitude == "" {
		unmet = append(unmet, RequireLongitude)
	}
	if d.Severity == "" {
		unmet = append(unmet, RequireSeverity)
	}
	if DescriptionLength(d.Description) < MinDescriptionLength {
		unmet = append(unmet, RequireDescription)
	}
	if !d.IsAnonymous && !d.ContactInfo.Complete() {
		unmet = append(unmet, RequireContact)
	}
	return unmet
}

// IsValid reports whether d satisfies every submission condition.
func IsValid(d Draft) bool {
	return len(Validate(d)) == 0
}

// DescriptionLength counts characters, not bytes. Characters outside the
// Basic Multilingual Plane (most emoji) count once here but twice in a
// browser's UTF-16 string length, so limits may differ from a web client's.
func DescriptionLength(s string) int {
	return utf8.RuneCountInString(s)
}
