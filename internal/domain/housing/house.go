// Package housing holds houses, apartments and their meters.
package housing

import (
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/communal/backend/internal/domain/shared"
)

// MaxAddressLength is the longest accepted address, in characters
const MaxAddressLength = 255

// House is the root of the ownership tree. Addresses are unique.
type House struct {
	shared.BaseEntity
	Address    string
	Apartments []Apartment
}

// NewHouse creates a new house
func NewHouse(address string) (*House, error) {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	return &House{
		BaseEntity: shared.NewBaseEntity(),
		Address:    normalized,
	}, nil
}

// NormalizeAddress trims, collapses inner whitespace and converts the
// address to NFC so that visually equal addresses compare equal.
func NormalizeAddress(address string) (string, error) {
	normalized := norm.NFC.String(strings.Join(strings.Fields(address), " "))
	if normalized == "" {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "House address cannot be empty")
	}
	if utf8.RuneCountInString(normalized) > MaxAddressLength {
		return "", shared.NewDomainError(shared.CodeInvalidInput, "House address cannot exceed 255 characters")
	}
	return normalized, nil
}

// Rename changes the house address
func (h *House) Rename(address string) error {
	normalized, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	h.Address = normalized
	h.UpdatedAt = time.Now()
	return nil
}
