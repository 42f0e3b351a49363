package models

// Card is a shareable study card. ID and ShareCode are fixed at creation and
// stay bound to the same card until it is deleted.
type Card struct {
	ID          string `json:"id"`
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Attribute   string `json:"attribute"`
	ShareCode   string `json:"shareCode"`
	ShareLink   string `json:"shareLink"`
}

// Filter narrows Find/FindOne by equality. A nil field does not constrain;
// a set field is an exact match, so a set empty string matches only cards
// holding an empty value. The zero Filter matches every card.
type Filter struct {
	OwnerID   *string
	ShareCode *string
}

// ByOwner matches the cards created by ownerID.
func ByOwner(ownerID string) Filter {
	return Filter{OwnerID: &ownerID}
}

// ByShareCode matches the card holding shareCode.
func ByShareCode(shareCode string) Filter {
	return Filter{ShareCode: &shareCode}
}

// Matches reports whether c satisfies every set field of f.
func (f Filter) Matches(c *Card) bool {
	if f.OwnerID != nil && c.OwnerID != *f.OwnerID {
		return false
	}
	if f.ShareCode != nil && c.ShareCode != *f.ShareCode {
		return false
	}
	return true
}

// AttributeGroup is one grouping key of the distinct-attribute listing.
type AttributeGroup struct {
	Attribute string `json:"attribute"`
}

// CardPatch lists the mutable fields of a Card. Nil fields are left untouched.
// ID, OwnerID and ShareCode are deliberately absent.
type CardPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Attribute   *string `json:"attribute,omitempty"`
	ShareLink   *string `json:"shareLink,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p CardPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Attribute == nil && p.ShareLink == nil
}

// Apply merges the set fields of p into c.
func (p CardPatch) Apply(c *Card) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Attribute != nil {
		c.Attribute = *p.Attribute
	}
	if p.ShareLink != nil {
		c.ShareLink = *p.ShareLink
	}
}
