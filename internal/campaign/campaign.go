package campaign

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
)

var (
	// ErrEmptyName indicates a missing campaign name.
	ErrEmptyName = apperrors.New(apperrors.CodeCampaignNameEmpty, "campaign name is required")
	// ErrEmptyCreator indicates a missing creator principal.
	ErrEmptyCreator = apperrors.New(apperrors.CodeCampaignCreatorEmpty, "campaign creator is required")
	// ErrInvalidFundingTarget indicates a zero funding target.
	ErrInvalidFundingTarget = apperrors.New(apperrors.CodeCampaignFundingTargetInvalid, "funding target must be greater than zero")
	// ErrInvalidTokenSupply indicates a zero token supply.
	ErrInvalidTokenSupply = apperrors.New(apperrors.CodeCampaignTokenSupplyInvalid, "token supply must be greater than zero")
	// ErrEmptyContributor indicates a missing contributor principal.
	ErrEmptyContributor = apperrors.New(apperrors.CodeContributionContributorEmpty, "contributor is required")
	// ErrZeroContribution indicates a zero contribution amount.
	ErrZeroContribution = apperrors.New(apperrors.CodeContributionZeroAmount, "contribution amount must be greater than zero")
)

// Campaign represents one funding round for a creator-agent token.
type Campaign struct {
	ID      uint64
	Creator string
	Name    string
	// FundingTarget is the contribution total that triggers bonding.
	FundingTarget ledger.Amount
	// TokenSupply is the total token amount issued at bonding.
	TokenSupply ledger.Amount
	// TotalRaised is non-decreasing while raising and frozen at bonding.
	TotalRaised ledger.Amount
	// Metadata is opaque to this core and passed through unchanged.
	Metadata json.RawMessage
	Status   Status
	// TokenAddress and PoolAddress are empty until bonding assigns them.
	TokenAddress string
	PoolAddress  string
	// Seed is the entropy value emitted with the bonded fact.
	Seed uint64
	// CreatedAt is the timestamp when the campaign was launched.
	CreatedAt time.Time
	// BondedAt is zero while the campaign is raising.
	BondedAt time.Time
}

// Contribution tracks one contributor's running total in one campaign.
// It never exists before a first nonzero contribution and never decreases.
type Contribution struct {
	CampaignID  uint64
	Contributor string
	Amount      ledger.Amount
	UpdatedAt   time.Time
}

// LaunchInput describes the caller-supplied fields for a new campaign.
type LaunchInput struct {
	Creator       string
	Name          string
	FundingTarget ledger.Amount
	TokenSupply   ledger.Amount
	Metadata      json.RawMessage
}

// NormalizeLaunchInput trims identity fields and validates the economic ones.
func NormalizeLaunchInput(input LaunchInput) (LaunchInput, error) {
	input.Creator = strings.TrimSpace(input.Creator)
	input.Name = strings.TrimSpace(input.Name)
	if input.Creator == "" {
		return LaunchInput{}, ErrEmptyCreator
	}
	if input.Name == "" {
		return LaunchInput{}, ErrEmptyName
	}
	if !input.FundingTarget.IsPositive() {
		return LaunchInput{}, ErrInvalidFundingTarget
	}
	if !input.TokenSupply.IsPositive() {
		return LaunchInput{}, ErrInvalidTokenSupply
	}
	return input, nil
}

// Launch builds a new raising campaign from validated input. The id is the
// store-assigned sequence value.
func Launch(input LaunchInput, id uint64, now time.Time) (Campaign, error) {
	normalized, err := NormalizeLaunchInput(input)
	if err != nil {
		return Campaign{}, err
	}
	return Campaign{
		ID:            id,
		Creator:       normalized.Creator,
		Name:          normalized.Name,
		FundingTarget: normalized.FundingTarget,
		TokenSupply:   normalized.TokenSupply,
		TotalRaised:   ledger.Zero(),
		Metadata:      normalized.Metadata,
		Status:        StatusRaising,
		CreatedAt:     now.UTC(),
	}, nil
}

// TargetReached reports whether the running total has met the funding target.
func (c Campaign) TargetReached() bool {
	return c.TotalRaised.GTE(c.FundingTarget)
}

// errAlreadyBonded builds the re-entry error for a terminal campaign.
func errAlreadyBonded(id uint64) error {
	return apperrors.WithMetadata(
		apperrors.CodeCampaignAlreadyBonded,
		fmt.Sprintf("campaign %d has already bonded", id),
		map[string]string{"CampaignID": strconv.FormatUint(id, 10)},
	)
}

// ApplyContribution adds one contribution to a raising campaign and to the
// contributor's running total. contributorTotal is the previously recorded
// amount for this contributor, zero when this is the first contribution.
// It returns the updated campaign and the contribution record to persist.
func ApplyContribution(c Campaign, contributor string, contributorTotal, amount ledger.Amount, at time.Time) (Campaign, Contribution, error) {
	if c.Status == StatusBonded {
		return c, Contribution{}, errAlreadyBonded(c.ID)
	}
	if c.Status != StatusRaising {
		return c, Contribution{}, apperrors.WithMetadata(
			apperrors.CodeCampaignInvalidStatusTransition,
			fmt.Sprintf("campaign %d cannot accept contributions in status %q", c.ID, c.Status),
			map[string]string{"FromStatus": string(c.Status), "ToStatus": string(StatusRaising)},
		)
	}

	contributor = strings.TrimSpace(contributor)
	if contributor == "" {
		return c, Contribution{}, ErrEmptyContributor
	}
	if !amount.IsPositive() {
		return c, Contribution{}, ErrZeroContribution
	}

	totalRaised, err := ledger.Add(c.TotalRaised, amount)
	if err != nil {
		return c, Contribution{}, err
	}
	contributorTotal, err = ledger.Add(contributorTotal, amount)
	if err != nil {
		return c, Contribution{}, err
	}

	c.TotalRaised = totalRaised
	return c, Contribution{
		CampaignID:  c.ID,
		Contributor: contributor,
		Amount:      contributorTotal,
		UpdatedAt:   at.UTC(),
	}, nil
}
