package enums

import "fmt"

// ListingType distinguishes physical inventory from digital downloads.
type ListingType string

const (
	ListingTypePhysical ListingType = "physical"
	ListingTypeDigital  ListingType = "digital"
)

func (t ListingType) String() string {
	return string(t)
}

func (t ListingType) IsValid() bool {
	return t == ListingTypePhysical || t == ListingTypeDigital
}

func ParseListingType(value string) (ListingType, error) {
	listingType := ListingType(value)
	if !listingType.IsValid() {
		return "", fmt.Errorf("invalid listing type: %q", value)
	}
	return listingType, nil
}
