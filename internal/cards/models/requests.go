package models

import (
	"strings"

	dErrors "cardshare/pkg/domain-errors"
)

// CreateCardRequest is the caller-facing input for creating a card.
type CreateCardRequest struct {
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Attribute   string `json:"attribute"`
}

// Normalize trims surrounding whitespace from every field.
func (r *CreateCardRequest) Normalize() {
	r.OwnerID = strings.TrimSpace(r.OwnerID)
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Attribute = strings.TrimSpace(r.Attribute)
}

// Validate enforces that all four business fields are present.
func (r *CreateCardRequest) Validate() error {
	switch {
	case r.OwnerID == "":
		return dErrors.New(dErrors.CodeValidation, "ownerId is required")
	case r.Title == "":
		return dErrors.New(dErrors.CodeValidation, "title is required")
	case r.Description == "":
		return dErrors.New(dErrors.CodeValidation, "description is required")
	case r.Attribute == "":
		return dErrors.New(dErrors.CodeValidation, "attribute is required")
	}
	return nil
}

// UpdateCardRequest is the caller-facing partial update. Only set fields are
// applied; the JSON decoder rejects unknown keys before this is reached.
type UpdateCardRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Attribute   *string `json:"attribute"`
	ShareLink   *string `json:"shareLink"`
}

// Normalize trims surrounding whitespace from every set field.
func (r *UpdateCardRequest) Normalize() {
	for _, f := range []*string{r.Title, r.Description, r.Attribute, r.ShareLink} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}

// Validate rejects empty patches and empty values for supplied fields.
func (r *UpdateCardRequest) Validate() error {
	if r.Title == nil && r.Description == nil && r.Attribute == nil && r.ShareLink == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be supplied")
	}
	fields := []struct {
		name  string
		value *string
	}{
		{"title", r.Title},
		{"description", r.Description},
		{"attribute", r.Attribute},
		{"shareLink", r.ShareLink},
	}
	for _, f := range fields {
		if f.value != nil && *f.value == "" {
			return dErrors.New(dErrors.CodeValidation, f.name+" must not be empty")
		}
	}
	return nil
}

// Patch converts the request into the store-level patch.
func (r *UpdateCardRequest) Patch() CardPatch {
	return CardPatch{
		Title:       r.Title,
		Description: r.Description,
		Attribute:   r.Attribute,
		ShareLink:   r.ShareLink,
	}
}
