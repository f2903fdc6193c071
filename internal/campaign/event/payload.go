package event

import (
	"encoding/json"

	"github.com/louisbranch/agentbond/internal/ledger"
)

// Payloads carry resulting totals, not deltas alone, so projections write
// carried values without recomputing market math. Amounts encode as decimal
// strings; the bonding seed encodes as a decimal string because canonical
// hashing round-trips numbers through float64.

// CampaignLaunchedPayload captures the payload for campaign.launched facts.
type CampaignLaunchedPayload struct {
	ID            uint64          `json:"id"`
	Creator       string          `json:"creator"`
	Name          string          `json:"name"`
	FundingTarget ledger.Amount   `json:"funding_target"`
	TokenSupply   ledger.Amount   `json:"token_supply"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
}

// CampaignContributedPayload captures the payload for campaign.contributed facts.
type CampaignContributedPayload struct {
	Contributor string        `json:"contributor"`
	Amount      ledger.Amount `json:"amount"`
	// TotalRaised and ContributorTotal are the running totals after this
	// contribution was applied.
	TotalRaised      ledger.Amount `json:"total_raised"`
	ContributorTotal ledger.Amount `json:"contributor_total"`
}

// CampaignBondedPayload captures the payload for campaign.bonded facts.
type CampaignBondedPayload struct {
	TotalRaised   ledger.Amount `json:"total_raised"`
	FeeSkim       ledger.Amount `json:"fee_skim"`
	PoolBase      ledger.Amount `json:"pool_base"`
	PoolTokens    ledger.Amount `json:"pool_tokens"`
	CreatorTokens ledger.Amount `json:"creator_tokens"`
	TokenAddress  string        `json:"token_address"`
	PoolAddress   string        `json:"pool_address"`
	Seed          string        `json:"seed"`
}

// PoolCreatedPayload captures the payload for pool.created facts.
type PoolCreatedPayload struct {
	PoolAddress  string        `json:"pool_address"`
	Provider     string        `json:"provider"`
	ReserveBase  ledger.Amount `json:"reserve_base"`
	ReserveToken ledger.Amount `json:"reserve_token"`
	TotalShares  ledger.Amount `json:"total_shares"`
	// LockedShares stay assigned to no provider so reserves cannot drain.
	LockedShares   ledger.Amount `json:"locked_shares"`
	ProviderShares ledger.Amount `json:"provider_shares"`
	SwapFeeBps     uint32        `json:"swap_fee_bps"`
}

// PoolSwappedPayload captures the payload for pool.swapped facts.
type PoolSwappedPayload struct {
	Trader    string        `json:"trader"`
	Direction string        `json:"direction"`
	AmountIn  ledger.Amount `json:"amount_in"`
	AmountOut ledger.Amount `json:"amount_out"`
	// FeePaid is the input-side fee retained inside the reserves.
	FeePaid ledger.Amount `json:"fee_paid"`
	// ReserveBase and ReserveToken are the reserves after the swap.
	ReserveBase  ledger.Amount `json:"reserve_base"`
	ReserveToken ledger.Amount `json:"reserve_token"`
}

// PoolLiquidityAddedPayload captures the payload for pool.liquidity_added facts.
type PoolLiquidityAddedPayload struct {
	Provider     string        `json:"provider"`
	BaseIn       ledger.Amount `json:"base_in"`
	TokenIn      ledger.Amount `json:"token_in"`
	SharesMinted ledger.Amount `json:"shares_minted"`
	// ProviderShares is the provider's position after the mint.
	ProviderShares ledger.Amount `json:"provider_shares"`
	ReserveBase    ledger.Amount `json:"reserve_base"`
	ReserveToken   ledger.Amount `json:"reserve_token"`
	TotalShares    ledger.Amount `json:"total_shares"`
}

// PoolLiquidityRemovedPayload captures the payload for pool.liquidity_removed facts.
type PoolLiquidityRemovedPayload struct {
	Provider     string        `json:"provider"`
	SharesBurned ledger.Amount `json:"shares_burned"`
	BaseOut      ledger.Amount `json:"base_out"`
	TokenOut     ledger.Amount `json:"token_out"`
	// ProviderShares is the provider's position after the burn.
	ProviderShares ledger.Amount `json:"provider_shares"`
	ReserveBase    ledger.Amount `json:"reserve_base"`
	ReserveToken   ledger.Amount `json:"reserve_token"`
	TotalShares    ledger.Amount `json:"total_shares"`
}
