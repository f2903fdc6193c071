// Package cursor provides opaque pagination token encoding/decoding.
package cursor

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// EventCursor marks a position in the fact journal ordered by
// (campaign_id, seq). Pages resume strictly after this position.
type EventCursor struct {
	CampaignID uint64 `json:"cid"`
	Seq        uint64 `json:"seq"`
	// FilterHash invalidates tokens when the filter changes between pages.
	FilterHash string `json:"filter_hash,omitempty"`
}

// CampaignCursor marks a position in the campaign listing ordered by id.
type CampaignCursor struct {
	ID uint64 `json:"id"`
}

// EncodeEvent encodes an event cursor to an opaque base64 token.
func EncodeEvent(c EventCursor) (string, error) {
	return encode(c)
}

// DecodeEvent decodes an opaque token back to an event cursor.
func DecodeEvent(token string) (EventCursor, error) {
	var c EventCursor
	if err := decode(token, &c); err != nil {
		return EventCursor{}, err
	}
	return c, nil
}

// EncodeCampaign encodes a campaign cursor to an opaque base64 token.
func EncodeCampaign(c CampaignCursor) (string, error) {
	return encode(c)
}

// DecodeCampaign decodes an opaque token back to a campaign cursor.
func DecodeCampaign(token string) (CampaignCursor, error) {
	var c CampaignCursor
	if err := decode(token, &c); err != nil {
		return CampaignCursor{}, err
	}
	return c, nil
}

func encode(c any) (string, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

func decode(token string, target any) error {
	if token == "" {
		return fmt.Errorf("empty token")
	}

	data, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("decode base64: %w", err)
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("unmarshal cursor: %w", err)
	}
	return nil
}

// HashFilter computes a short hash of the filter string for cursor
// validation. Returns empty string for an empty filter.
func HashFilter(filter string) string {
	if filter == "" {
		return ""
	}
	h := sha256.Sum256([]byte(filter))
	// 64 bits is sufficient for validation
	return hex.EncodeToString(h[:8])
}

// ValidateFilterHash checks that the cursor's filter hash matches the
// current filter, so a changed filter cannot silently reuse a stale token.
func ValidateFilterHash(c EventCursor, currentFilter string) error {
	if c.FilterHash != HashFilter(currentFilter) {
		return fmt.Errorf("filter changed since cursor was created")
	}
	return nil
}
