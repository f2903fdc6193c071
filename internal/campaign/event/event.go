// Package event defines the durable fact stream: the immutable envelope, the
// typed payloads, and the content addressing that chains each fact to its
// predecessor. Facts are the source of truth; projections are rebuilt from
// them.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

// Type identifies the kind of fact.
type Type string

// Campaign lifecycle facts.
const (
	// TypeCampaignLaunched records the creation of a raising campaign.
	TypeCampaignLaunched Type = "campaign.launched"
	// TypeCampaignContributed records one contribution and the resulting totals.
	TypeCampaignContributed Type = "campaign.contributed"
	// TypeCampaignBonded records the one-way raising-to-bonded transition.
	TypeCampaignBonded Type = "campaign.bonded"
)

// Pool facts.
const (
	// TypePoolCreated records the creation of the constant-product pool.
	TypePoolCreated Type = "pool.created"
	// TypePoolSwapped records one executed swap and the resulting reserves.
	TypePoolSwapped Type = "pool.swapped"
	// TypePoolLiquidityAdded records a liquidity deposit and share mint.
	TypePoolLiquidityAdded Type = "pool.liquidity_added"
	// TypePoolLiquidityRemoved records a share burn and proportional payout.
	TypePoolLiquidityRemoved Type = "pool.liquidity_removed"
)

// knownTypes is the closed set of fact types this core emits.
var knownTypes = map[Type]struct{}{
	TypeCampaignLaunched:     {},
	TypeCampaignContributed:  {},
	TypeCampaignBonded:       {},
	TypePoolCreated:          {},
	TypePoolSwapped:          {},
	TypePoolLiquidityAdded:   {},
	TypePoolLiquidityRemoved: {},
}

// IsValid reports whether the fact type is one this core emits.
func (t Type) IsValid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Domain returns the domain prefix of the fact type (e.g. "campaign", "pool").
func (t Type) Domain() string {
	for i, c := range t {
		if c == '.' {
			return string(t[:i])
		}
	}
	return string(t)
}

// Event represents an immutable fact in the append-only stream.
type Event struct {
	// CampaignID is the campaign this fact belongs to.
	CampaignID uint64
	// Seq is the fact sequence number within the campaign (starts at 1).
	// Assigned by storage on append.
	Seq uint64
	// Hash is the content-addressed identity (SHA-256 truncated to 128-bit).
	// Assigned by storage on append.
	Hash string
	// PrevHash is the previous fact's chain hash (empty for the first fact).
	// Assigned by storage on append.
	PrevHash string
	// ChainHash links this fact to its predecessor (SHA-256 truncated).
	// Assigned by storage on append.
	ChainHash string
	// Timestamp is when the fact occurred, UTC.
	Timestamp time.Time
	// Type identifies the kind of fact.
	Type Type
	// Actor is the principal whose call produced the fact.
	Actor string
	// TraceID and SpanID capture the active trace, if any, so indexers can
	// join facts to traces.
	TraceID string
	SpanID  string
	// PayloadJSON holds the fact-specific data as JSON.
	PayloadJSON []byte
}

// Validate checks the caller-supplied fields of an unsealed fact.
func (e Event) Validate() error {
	if e.CampaignID == 0 {
		return apperrors.New(apperrors.CodeEventInvalid, "event campaign id is required")
	}
	if !e.Type.IsValid() {
		return apperrors.New(apperrors.CodeEventInvalid,
			fmt.Sprintf("event type %q is not known", e.Type))
	}
	if strings.TrimSpace(e.Actor) == "" {
		return apperrors.New(apperrors.CodeEventInvalid, "event actor is required")
	}
	if e.Timestamp.IsZero() {
		return apperrors.New(apperrors.CodeEventInvalid, "event timestamp is required")
	}
	if len(e.PayloadJSON) == 0 || !json.Valid(e.PayloadJSON) {
		return apperrors.New(apperrors.CodeEventInvalid, "event payload must be valid JSON")
	}
	return nil
}

// hashEnvelope is the canonical subset of fields covered by the content hash.
// Trace metadata stays outside the hash so observability configuration cannot
// change fact identity.
type hashEnvelope struct {
	CampaignID uint64          `json:"campaign_id"`
	Seq        uint64          `json:"seq"`
	Timestamp  int64           `json:"timestamp_ms"`
	Type       Type            `json:"type"`
	Actor      string          `json:"actor"`
	Payload    json.RawMessage `json:"payload"`
}

// Seal assigns the sequence number and computes the content and chain hashes.
// prevChainHash is the chain hash of the campaign's previous fact, empty when
// sealing the first fact.
func Seal(e Event, seq uint64, prevChainHash string) (Event, error) {
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	if seq == 0 {
		return Event{}, apperrors.New(apperrors.CodeEventInvalid, "event seq starts at 1")
	}

	e.Seq = seq
	hash, err := ContentHash(hashEnvelope{
		CampaignID: e.CampaignID,
		Seq:        e.Seq,
		Timestamp:  e.Timestamp.UTC().UnixMilli(),
		Type:       e.Type,
		Actor:      e.Actor,
		Payload:    json.RawMessage(e.PayloadJSON),
	})
	if err != nil {
		return Event{}, fmt.Errorf("content hash: %w", err)
	}

	chainHash, err := Chain(prevChainHash, hash)
	if err != nil {
		return Event{}, fmt.Errorf("chain hash: %w", err)
	}

	e.Hash = hash
	e.PrevHash = prevChainHash
	e.ChainHash = chainHash
	return e, nil
}

// Chain computes the running chain hash linking a fact to its predecessor.
func Chain(prevChainHash, hash string) (string, error) {
	return ContentHash(struct {
		Prev string `json:"prev"`
		Hash string `json:"hash"`
	}{Prev: prevChainHash, Hash: hash})
}

// VerifyChain recomputes hashes over one campaign's facts in sequence order
// and reports the first break it finds.
func VerifyChain(events []Event) error {
	prevChainHash := ""
	for i, e := range events {
		if e.Seq != uint64(i)+1 {
			return apperrors.New(apperrors.CodeEventInvalid,
				fmt.Sprintf("fact %d has seq %d, want %d", i, e.Seq, i+1))
		}
		if e.PrevHash != prevChainHash {
			return apperrors.New(apperrors.CodeEventInvalid,
				fmt.Sprintf("fact seq %d prev hash %q does not match prior chain hash %q", e.Seq, e.PrevHash, prevChainHash))
		}
		resealed, err := Seal(Event{
			CampaignID:  e.CampaignID,
			Timestamp:   e.Timestamp,
			Type:        e.Type,
			Actor:       e.Actor,
			PayloadJSON: e.PayloadJSON,
		}, e.Seq, prevChainHash)
		if err != nil {
			return err
		}
		if resealed.Hash != e.Hash {
			return apperrors.New(apperrors.CodeEventInvalid,
				fmt.Sprintf("fact seq %d content hash %q does not match recomputed %q", e.Seq, e.Hash, resealed.Hash))
		}
		if resealed.ChainHash != e.ChainHash {
			return apperrors.New(apperrors.CodeEventInvalid,
				fmt.Sprintf("fact seq %d chain hash %q does not match recomputed %q", e.Seq, e.ChainHash, resealed.ChainHash))
		}
		prevChainHash = e.ChainHash
	}
	return nil
}
