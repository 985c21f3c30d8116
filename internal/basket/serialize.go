package basket

import (
	"encoding/json"
	"fmt"
)

// snapshotVersion is the current serialised layout. Readers tolerate
// older layouts by defaulting absent fields.
const snapshotVersion = 2

type snapshot struct {
	Version int `json:"version"`
	*Basket
}

// Serialize renders the basket for session storage and for the order's
// basket snapshot. The resolved catalog attachments are not included;
// Restore callers re-attach them from the stored ids and codes.
func (b *Basket) Serialize() (string, error) {
	data, err := json.Marshal(snapshot{Version: snapshotVersion, Basket: b})
	if err != nil {
		return "", fmt.Errorf("serialize basket: %w", err)
	}
	return string(data), nil
}

// Restore rebuilds a basket from its serialised form. Unknown fields
// are ignored so newer writers do not break older readers, and missing
// fields fall back to their zero values.
func Restore(data string, maxQuantity int, defaultCountry string) (*Basket, error) {
	restored := New(maxQuantity, defaultCountry)
	if data == "" {
		return restored, nil
	}
	holder := snapshot{Basket: restored}
	if err := json.Unmarshal([]byte(data), &holder); err != nil {
		return nil, fmt.Errorf("restore basket: %w", err)
	}
	if restored.Items == nil {
		restored.Items = []*Item{}
	}
	return restored, nil
}
