package agentbond

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/engine"
	"github.com/louisbranch/agentbond/internal/ledger"
	"github.com/louisbranch/agentbond/internal/platform/timeouts"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/storage/memory"
)

// runDemo walks the full campaign lifecycle against an in-memory store:
// launch, three contributions that cross the funding target, the bonding
// transition, and a first swap against the seeded pool. Nothing touches
// the configured database.
func runDemo(ctx context.Context, cfg Config, args []string, out, errOut io.Writer) error {
	fs := newFlagSet("demo", errOut)
	if err := fs.Parse(args); err != nil {
		return err
	}

	eng, err := engine.New(ctx, memory.New(), engine.Config{
		BondingFeeBps:     cfg.BondingFeeBps,
		SwapFeeBps:        cfg.SwapFeeBps,
		PoolSupplyBps:     cfg.PoolSupplyBps,
		TreasuryPrincipal: cfg.TreasuryPrincipal,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(out, message(cfg.Locale, "cli.demo.start"))
	c, err := eng.Launch(ctx, campaign.LaunchInput{
		Creator:       "creator-1",
		Name:          "Agent Nova",
		FundingTarget: ledger.FromUint64(10_000),
		TokenSupply:   ledger.FromUint64(1_000_000),
	})
	if err != nil {
		return err
	}
	printKV(out, campaignRows(c))

	contributions := []struct {
		contributor string
		amount      uint64
	}{
		{"alice", 4_000},
		{"bob", 3_000},
		{"carol", 3_000},
	}
	for _, next := range contributions {
		result, err := eng.Contribute(ctx, engine.ContributeInput{
			CampaignID:  c.ID,
			Contributor: next.contributor,
			Amount:      ledger.FromUint64(next.amount),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s contributed %d (total %s of %s)\n",
			next.contributor, next.amount, result.Campaign.TotalRaised, c.FundingTarget)
		if result.Bonded {
			fmt.Fprintln(out, message(cfg.Locale, "cli.demo.bonded"))
			printKV(out, poolRows(*result.Pool))
		}
	}

	swap, err := eng.Swap(ctx, engine.SwapInput{
		CampaignID: c.ID,
		Trader:     "dave",
		Direction:  pool.DirectionBaseIn,
		AmountIn:   ledger.FromUint64(500),
		Deadline:   time.Now().Add(timeouts.TradeDeadline),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\ndave swapped %s base for %s tokens (fee %s)\n",
		swap.AmountIn, swap.AmountOut, swap.FeePaid)

	acct, err := eng.TreasuryBalance(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "treasury balance: %s\n", acct.Balance)

	facts, err := eng.ListEvents(ctx, c.ID, 0, 100)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\njournal:")
	for _, evt := range facts {
		printEvent(out, evt)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, message(cfg.Locale, "cli.demo.done"))
	return nil
}
