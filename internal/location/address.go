package location

import (
	"fmt"
	"strings"

	"github.com/kjstillabower/jakesky/internal/models"
)

// minAddressTokens is the street number or name plus city, state and postal code.
const minAddressTokens = 4

// SplitAddressString splits a one-line US address such as "200 Clarendon St Boston MA 02116".
// The last three whitespace-separated tokens are the city, state and postal code and everything
// before them is the street. Multi-word cities or states are therefore split incorrectly, e.g.
// "Sioux Falls" yields street "... Sioux" and city "Falls"; callers needing those should geocode
// from structured input instead.
func SplitAddressString(s string) (models.PostalAddress, error) {
	tokens := strings.Fields(s)
	if len(tokens) < minAddressTokens {
		return models.PostalAddress{}, fmt.Errorf("%w: %q has %d parts, need at least %d", ErrInvalidAddress, s, len(tokens), minAddressTokens)
	}

	n := len(tokens)
	return models.PostalAddress{
		Street:     strings.Join(tokens[:n-3], " "),
		City:       tokens[n-3],
		State:      tokens[n-2],
		PostalCode: tokens[n-1],
	}, nil
}
