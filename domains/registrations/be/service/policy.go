package service

import "strings"

// Fields is a candidate set of applicant-editable values.
type Fields struct {
	IdentityID    string
	Name          string
	PhoneNumber   string
	Organization  string
	OriginCountry string
}

// Comments is a candidate set of admin correction notes, one per field.
type Comments struct {
	IdentityIDComment    string
	NameComment          string
	EmailComment         string
	PhoneNumberComment   string
	OrganizationComment  string
	OriginCountryComment string
}

// ValidateFields enforces the category field policy on a candidate set:
// mandatory fields are present and category-exclusive fields stay empty for
// the other category. Returns nil when the set is acceptable.
func ValidateFields(category Category, f Fields) *ValidationError {
	fieldErrors := FieldErrors{}

	if !category.Valid() {
		fieldErrors.add("category", "category must be visitor or client")
		return &ValidationError{Fields: fieldErrors}
	}

	if strings.TrimSpace(f.Name) == "" {
		fieldErrors.add("name", "name is required")
	}
	if strings.TrimSpace(f.PhoneNumber) == "" {
		fieldErrors.add("phoneNumber", "phoneNumber is required")
	}

	switch category {
	case CategoryVisitor:
		if strings.TrimSpace(f.Organization) != "" {
			fieldErrors.add("organization", "organization is not allowed for visitors")
		}
		if strings.TrimSpace(f.OriginCountry) != "" {
			fieldErrors.add("originCountry", "originCountry is not allowed for visitors")
		}
	case CategoryClient:
		if strings.TrimSpace(f.Organization) == "" {
			fieldErrors.add("organization", "organization is required for clients")
		}
		if strings.TrimSpace(f.OriginCountry) == "" {
			fieldErrors.add("originCountry", "originCountry is required for clients")
		}
		// Clients never carry an external identity reference.
		if strings.TrimSpace(f.IdentityID) != "" {
			fieldErrors.add("identityId", "identityId is not allowed for clients")
		}
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

// ValidateComments mirrors the field policy for the admin's per-field notes:
// a comment may only exist where its field may exist.
func ValidateComments(category Category, c Comments) *ValidationError {
	fieldErrors := FieldErrors{}

	if !category.Valid() {
		fieldErrors.add("category", "category must be visitor or client")
		return &ValidationError{Fields: fieldErrors}
	}

	switch category {
	case CategoryVisitor:
		if strings.TrimSpace(c.OrganizationComment) != "" {
			fieldErrors.add("organizationComment", "organizationComment is not allowed for visitors")
		}
		if strings.TrimSpace(c.OriginCountryComment) != "" {
			fieldErrors.add("originCountryComment", "originCountryComment is not allowed for visitors")
		}
	case CategoryClient:
		if strings.TrimSpace(c.IdentityIDComment) != "" {
			fieldErrors.add("identityIdComment", "identityIdComment is not allowed for clients")
		}
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}
