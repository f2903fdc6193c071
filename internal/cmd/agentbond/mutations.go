package agentbond

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/engine"
	"github.com/louisbranch/agentbond/internal/platform/timeouts"
	"github.com/louisbranch/agentbond/internal/pool"
)

func runLaunch(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("launch", errOut)
	creator := fs.String("creator", actorDefault(ctx), "creator principal")
	name := fs.String("name", "", "campaign name")
	target := fs.String("target", "", "funding target in base units")
	supply := fs.String("supply", "", "token supply minted at bonding")
	metadata := fs.String("metadata", "", "opaque JSON metadata")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fundingTarget, err := parseAmount(*target, "target")
	if err != nil {
		return err
	}
	tokenSupply, err := parseAmount(*supply, "supply")
	if err != nil {
		return err
	}
	var meta json.RawMessage
	if trimmed := strings.TrimSpace(*metadata); trimmed != "" {
		if !json.Valid([]byte(trimmed)) {
			return fmt.Errorf("-metadata: not valid JSON")
		}
		meta = json.RawMessage(trimmed)
	}

	c, err := eng.Launch(ctx, campaign.LaunchInput{
		Creator:       *creator,
		Name:          *name,
		FundingTarget: fundingTarget,
		TokenSupply:   tokenSupply,
		Metadata:      meta,
	})
	if err != nil {
		return err
	}
	printKV(out, campaignRows(c))
	return nil
}

func runContribute(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("contribute", errOut)
	campaignID := fs.Uint64("campaign", 0, "campaign id")
	contributor := fs.String("contributor", actorDefault(ctx), "contributor principal")
	amount := fs.String("amount", "", "contribution amount in base units")
	if err := fs.Parse(args); err != nil {
		return err
	}

	value, err := parseAmount(*amount, "amount")
	if err != nil {
		return err
	}

	result, err := eng.Contribute(ctx, engine.ContributeInput{
		CampaignID:  *campaignID,
		Contributor: *contributor,
		Amount:      value,
	})
	if err != nil {
		return err
	}

	printKV(out, []kv{
		{"campaign_id", strconv.FormatUint(result.Campaign.ID, 10)},
		{"contributor", result.Contribution.Contributor},
		{"contributor_total", result.Contribution.Amount.String()},
		{"total_raised", result.Campaign.TotalRaised.String()},
		{"status", string(result.Campaign.Status)},
		{"bonded", strconv.FormatBool(result.Bonded)},
	})
	if result.Bonded {
		fmt.Fprintln(out)
		printKV(out, poolRows(*result.Pool))
	}
	return nil
}

func runSwap(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("swap", errOut)
	campaignID := fs.Uint64("campaign", 0, "campaign id")
	trader := fs.String("trader", actorDefault(ctx), "trader principal")
	direction := fs.String("direction", string(pool.DirectionBaseIn), "base_in or token_in")
	amountIn := fs.String("amount-in", "", "input amount")
	minOut := fs.String("min-out", "0", "minimum acceptable output")
	wait := fs.Duration("deadline", timeouts.TradeDeadline, "time allowed before the trade expires")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dir, ok := pool.ParseDirection(*direction)
	if !ok {
		return fmt.Errorf("-direction must be %s or %s", pool.DirectionBaseIn, pool.DirectionTokenIn)
	}
	in, err := parseAmount(*amountIn, "amount-in")
	if err != nil {
		return err
	}
	floor, err := parseAmount(*minOut, "min-out")
	if err != nil {
		return err
	}

	result, err := eng.Swap(ctx, engine.SwapInput{
		CampaignID:   *campaignID,
		Trader:       *trader,
		Direction:    dir,
		AmountIn:     in,
		MinAmountOut: floor,
		Deadline:     time.Now().Add(*wait),
	})
	if err != nil {
		return err
	}

	printKV(out, []kv{
		{"direction", string(result.Direction)},
		{"amount_in", result.AmountIn.String()},
		{"amount_out", result.AmountOut.String()},
		{"fee_paid", result.FeePaid.String()},
		{"reserve_base", result.Pool.ReserveBase.String()},
		{"reserve_token", result.Pool.ReserveToken.String()},
	})
	return nil
}

func runAddLiquidity(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("add-liquidity", errOut)
	campaignID := fs.Uint64("campaign", 0, "campaign id")
	provider := fs.String("provider", actorDefault(ctx), "liquidity provider principal")
	tokenAmount := fs.String("token-amount", "", "token amount to deposit")
	minToken := fs.String("min-token", "0", "minimum token deposit")
	minBase := fs.String("min-base", "0", "minimum base deposit")
	wait := fs.Duration("deadline", timeouts.TradeDeadline, "time allowed before the deposit expires")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tokens, err := parseAmount(*tokenAmount, "token-amount")
	if err != nil {
		return err
	}
	minTok, err := parseAmount(*minToken, "min-token")
	if err != nil {
		return err
	}
	minBas, err := parseAmount(*minBase, "min-base")
	if err != nil {
		return err
	}

	result, err := eng.AddLiquidity(ctx, engine.AddLiquidityInput{
		CampaignID:  *campaignID,
		Provider:    *provider,
		TokenAmount: tokens,
		MinToken:    minTok,
		MinBase:     minBas,
		Deadline:    time.Now().Add(*wait),
	})
	if err != nil {
		return err
	}

	printKV(out, []kv{
		{"base_in", result.BaseIn.String()},
		{"token_in", result.TokenIn.String()},
		{"shares_minted", result.SharesMinted.String()},
		{"provider_shares", result.ProviderShares.String()},
		{"total_shares", result.Pool.TotalShares.String()},
		{"reserve_base", result.Pool.ReserveBase.String()},
		{"reserve_token", result.Pool.ReserveToken.String()},
	})
	return nil
}

func runRemoveLiquidity(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("remove-liquidity", errOut)
	campaignID := fs.Uint64("campaign", 0, "campaign id")
	provider := fs.String("provider", actorDefault(ctx), "liquidity provider principal")
	shares := fs.String("shares", "", "LP shares to burn")
	minToken := fs.String("min-token", "0", "minimum token payout")
	minBase := fs.String("min-base", "0", "minimum base payout")
	wait := fs.Duration("deadline", timeouts.TradeDeadline, "time allowed before the burn expires")
	if err := fs.Parse(args); err != nil {
		return err
	}

	burn, err := parseAmount(*shares, "shares")
	if err != nil {
		return err
	}
	minTok, err := parseAmount(*minToken, "min-token")
	if err != nil {
		return err
	}
	minBas, err := parseAmount(*minBase, "min-base")
	if err != nil {
		return err
	}

	result, err := eng.RemoveLiquidity(ctx, engine.RemoveLiquidityInput{
		CampaignID: *campaignID,
		Provider:   *provider,
		Shares:     burn,
		MinToken:   minTok,
		MinBase:    minBas,
		Deadline:   time.Now().Add(*wait),
	})
	if err != nil {
		return err
	}

	printKV(out, []kv{
		{"shares_burned", result.SharesBurned.String()},
		{"base_out", result.BaseOut.String()},
		{"token_out", result.TokenOut.String()},
		{"provider_shares", result.ProviderShares.String()},
		{"total_shares", result.Pool.TotalShares.String()},
		{"reserve_base", result.Pool.ReserveBase.String()},
		{"reserve_token", result.Pool.ReserveToken.String()},
	})
	return nil
}

func runGrant(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("grant", errOut)
	granter := fs.String("granter", actorDefault(ctx), "owner principal issuing the grant")
	principal := fs.String("principal", "", "principal receiving the capability")
	capability := fs.String("capability", "", "capability name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	grant, err := eng.Grant(ctx, *granter, *principal, *capability)
	if err != nil {
		return err
	}

	printKV(out, []kv{
		{"principal", grant.Principal},
		{"capability", string(grant.Capability)},
		{"granted_by", grant.GrantedBy},
		{"updated_at", grant.UpdatedAt.Format(time.RFC3339)},
	})
	return nil
}

func runRevoke(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("revoke", errOut)
	granter := fs.String("granter", actorDefault(ctx), "owner principal revoking the grant")
	principal := fs.String("principal", "", "principal losing the capability")
	capability := fs.String("capability", "", "capability name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := eng.Revoke(ctx, *granter, *principal, *capability); err != nil {
		return err
	}

	printKV(out, []kv{
		{"principal", strings.TrimSpace(*principal)},
		{"capability", strings.TrimSpace(*capability)},
		{"revoked", "true"},
	})
	return nil
}

func runWithdraw(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("withdraw", errOut)
	principal := fs.String("principal", actorDefault(ctx), "principal withdrawing fees")
	amount := fs.String("amount", "", "amount to withdraw")
	if err := fs.Parse(args); err != nil {
		return err
	}

	value, err := parseAmount(*amount, "amount")
	if err != nil {
		return err
	}

	acct, err := eng.WithdrawTreasury(ctx, *principal, value)
	if err != nil {
		return err
	}

	printKV(out, []kv{
		{"withdrawn", value.String()},
		{"balance", acct.Balance.String()},
		{"updated_at", acct.UpdatedAt.Format(time.RFC3339)},
	})
	return nil
}
