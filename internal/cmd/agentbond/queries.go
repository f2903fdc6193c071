package agentbond

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/agentbond/internal/engine"
	"github.com/louisbranch/agentbond/internal/treasury"
)

func runCampaigns(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("campaigns", errOut)
	pageSize := fs.Int("page-size", 0, "campaigns per page (0 = server default)")
	pageToken := fs.String("page-token", "", "token from a previous page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page, err := eng.ListCampaigns(ctx, int32(*pageSize), *pageToken)
	if err != nil {
		return err
	}

	for _, c := range page.Campaigns {
		fmt.Fprintf(out, "id=%d status=%s raised=%s/%s name=%q\n",
			c.ID, c.Status, c.TotalRaised, c.FundingTarget, c.Name)
	}
	if page.NextPageToken != "" {
		fmt.Fprintf(out, "next_page_token = %s\n", page.NextPageToken)
	}
	return nil
}

func runCampaign(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("campaign", errOut)
	campaignID := fs.Uint64("campaign", 0, "campaign id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := eng.GetCampaign(ctx, *campaignID)
	if err != nil {
		return err
	}
	printKV(out, campaignRows(c))

	contributions, err := eng.ListContributions(ctx, *campaignID)
	if err != nil {
		return err
	}
	if len(contributions) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "contributions:")
	for _, contribution := range contributions {
		fmt.Fprintf(out, "  %-24s %s\n", contribution.Contributor, contribution.Amount)
	}
	return nil
}

func runPool(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("pool", errOut)
	campaignID := fs.Uint64("campaign", 0, "campaign id")
	provider := fs.String("provider", "", "also show this provider's LP position")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := eng.GetPool(ctx, *campaignID)
	if err != nil {
		return err
	}
	rows := poolRows(p)
	if trimmed := strings.TrimSpace(*provider); trimmed != "" {
		position, err := eng.GetPosition(ctx, *campaignID, trimmed)
		if err != nil {
			return err
		}
		rows = append(rows,
			kv{"provider", trimmed},
			kv{"provider_shares", position.Shares.String()},
		)
	}
	printKV(out, rows)
	return nil
}

func runEvents(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("events", errOut)
	campaignID := fs.Uint64("campaign", 0, "list one campaign's journal")
	afterSeq := fs.Uint64("after-seq", 0, "start after this sequence number")
	limit := fs.Int("limit", 50, "maximum facts to list")
	filter := fs.String("filter", "", `search filter, e.g. type = "campaign.bonded" AND actor = "alice"`)
	pageSize := fs.Int("page-size", 0, "facts per search page (0 = server default)")
	pageToken := fs.String("page-token", "", "token from a previous search page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *campaignID != 0 {
		if *filter != "" {
			return fmt.Errorf("-campaign and -filter are mutually exclusive")
		}
		facts, err := eng.ListEvents(ctx, *campaignID, *afterSeq, *limit)
		if err != nil {
			return err
		}
		for _, evt := range facts {
			printEvent(out, evt)
		}
		return nil
	}

	page, err := eng.SearchEvents(ctx, *filter, int32(*pageSize), *pageToken)
	if err != nil {
		return err
	}
	for _, evt := range page.Events {
		printEvent(out, evt)
	}
	if page.NextPageToken != "" {
		fmt.Fprintf(out, "next_page_token = %s\n", page.NextPageToken)
	}
	return nil
}

// runFees shows the active fee config, or updates it when -bonding-bps or
// -swap-bps is set.
func runFees(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("fees", errOut)
	principal := fs.String("principal", actorDefault(ctx), "principal applying a fee update")
	bondingBps := fs.String("bonding-bps", "", "new bonding fee in basis points")
	swapBps := fs.String("swap-bps", "", "new swap fee in basis points")
	if err := fs.Parse(args); err != nil {
		return err
	}

	current, err := eng.FeeConfig(ctx)
	if err != nil {
		return err
	}

	if *bondingBps == "" && *swapBps == "" {
		printKV(out, feeRows(current))
		return nil
	}

	next := current
	if *bondingBps != "" {
		bps, err := parseBps(*bondingBps, "bonding-bps")
		if err != nil {
			return err
		}
		next.BondingFeeBps = bps
	}
	if *swapBps != "" {
		bps, err := parseBps(*swapBps, "swap-bps")
		if err != nil {
			return err
		}
		next.SwapFeeBps = bps
	}

	updated, err := eng.SetFeeConfig(ctx, *principal, next)
	if err != nil {
		return err
	}
	printKV(out, feeRows(updated))
	return nil
}

func parseBps(value, flagName string) (uint32, error) {
	bps, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("-%s: %w", flagName, err)
	}
	return uint32(bps), nil
}

func runTreasury(ctx context.Context, eng *engine.Engine, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("treasury", errOut)
	if err := fs.Parse(args); err != nil {
		return err
	}

	acct, err := eng.TreasuryBalance(ctx)
	if err != nil {
		return err
	}
	printKV(out, treasuryRows(acct))
	return nil
}

func treasuryRows(acct treasury.Account) []kv {
	rows := []kv{{"balance", acct.Balance.String()}}
	if !acct.UpdatedAt.IsZero() {
		rows = append(rows, kv{"updated_at", acct.UpdatedAt.Format(time.RFC3339)})
	}
	return rows
}
