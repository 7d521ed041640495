// Package domain models citizen hazard reports: the in-progress draft a
// reporter fills in, the rules that decide whether it may be submitted, and
// the receipt issued once it has been accepted.
//
// # Draft Layout
//
// A draft is persisted whole as JSON under a single key, with its save time
// under a second key as an RFC 3339 timestamp. The JSON field names are
// camelCase and stable:
//
//	{
//	  "hazardCategory": "ocean",
//	  "hazardType": "tsunami",
//	  "location": {"latitude": "19.076000", "longitude": "72.877700", "address": "19.0760, 72.8777"},
//	  "severity": "high",
//	  "description": "...",
//	  "files": [{"id": "...", "handle": "...", "name": "wave.jpg", "size": 20480, "type": "image/jpeg", "preview": "..."}],
//	  "contactInfo": {"name": "", "phone": "", "email": ""},
//	  "isAnonymous": true
//	}
//
// There is no schema version field. Drafts that fail to decode are treated
// as absent rather than migrated.
//
// # Hazard Catalog
//
// Each category carries a fixed set of hazard types:
//
//	ocean: tsunami, high_waves, flooding, oil_spill, rip_currents
//	local: torrential_rainfall, electrocution, urban_flooding, tree_falls, landslides
//
// Changing category always clears the hazard type, even when the old type
// would also be valid in the new category.
//
// # Submission Eligibility
//
// Eligibility is presence-only. A draft may be submitted when category,
// hazard type, latitude, longitude and severity are set, the description
// has at least 50 characters, and the reporter is either anonymous or has
// supplied name, phone and email. No format checks are made on any field.
// See [Validate].
//
// # Report IDs
//
// Report ids are "HR-" followed by the six low-order decimal digits of the
// acceptance time in Unix milliseconds, e.g. "HR-482913". They are not
// globally unique. See [NewReportID].
package domain
