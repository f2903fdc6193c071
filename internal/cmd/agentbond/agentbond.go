// Package agentbond implements the bonding engine CLI: launching and
// funding campaigns, trading against bonded pools, and administering
// protocol fees and capability grants over a local sqlite database.
package agentbond

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	"github.com/louisbranch/agentbond/internal/engine"
	"github.com/louisbranch/agentbond/internal/ledger"
	"github.com/louisbranch/agentbond/internal/platform/cmd"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/storage/sqlite"
	"github.com/louisbranch/agentbond/internal/treasury"

	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/platform/errors/i18n"
	i18ncatalog "github.com/louisbranch/agentbond/internal/platform/i18n/catalog"
	"github.com/louisbranch/agentbond/internal/platform/requestctx"
)

// Config holds agentbond command configuration.
type Config struct {
	// DBPath locates the sqlite database used by every subcommand except demo.
	DBPath string `env:"AGENTBOND_DB_PATH" envDefault:"data/agentbond.db"`
	// Owner is the principal with implicit full capabilities.
	Owner string `env:"AGENTBOND_OWNER"`
	// RestrictedLaunch requires the campaigns.launch capability for Launch.
	RestrictedLaunch bool `env:"AGENTBOND_RESTRICTED_LAUNCH"`
	// BondingFeeBps and SwapFeeBps seed the fee config on first start.
	BondingFeeBps uint32 `env:"AGENTBOND_BONDING_FEE_BPS" envDefault:"250"`
	SwapFeeBps    uint32 `env:"AGENTBOND_SWAP_FEE_BPS" envDefault:"30"`
	// PoolSupplyBps is the share of token supply paired into the pool at bonding.
	PoolSupplyBps uint32 `env:"AGENTBOND_POOL_SUPPLY_BPS" envDefault:"8750"`
	// TreasuryPrincipal holds the protocol's locked-in LP position.
	TreasuryPrincipal string `env:"AGENTBOND_TREASURY_PRINCIPAL" envDefault:"treasury"`
	// Actor is the default principal for -creator, -contributor, and
	// similar identity flags.
	Actor string `env:"AGENTBOND_ACTOR"`
	// Locale selects the language for user-facing messages.
	Locale string `env:"AGENTBOND_LOCALE" envDefault:"en-US"`
}

// ParseConfig loads configuration from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := cmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg Config) engineConfig() engine.Config {
	return engine.Config{
		Owner:             cfg.Owner,
		RestrictedLaunch:  cfg.RestrictedLaunch,
		BondingFeeBps:     cfg.BondingFeeBps,
		SwapFeeBps:        cfg.SwapFeeBps,
		PoolSupplyBps:     cfg.PoolSupplyBps,
		TreasuryPrincipal: cfg.TreasuryPrincipal,
	}
}

// UserMessage renders the localized message for an error. Errors without
// a known code fall back to their Go error text.
func UserMessage(err error, locale string) string {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return i18n.GetCatalog(locale).Format(string(appErr.Code), appErr.Metadata)
	}
	return err.Error()
}

// Run executes one agentbond subcommand.
func Run(ctx context.Context, cfg Config, args []string, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if actor := strings.TrimSpace(cfg.Actor); actor != "" {
		ctx = requestctx.WithPrincipal(ctx, actor)
	}

	if len(args) == 0 {
		usage(out, cfg.Locale)
		return fmt.Errorf("subcommand is required")
	}
	name, rest := args[0], args[1:]

	switch name {
	case "help", "-h", "-help", "--help":
		usage(out, cfg.Locale)
		return nil
	case "demo":
		return runDemo(ctx, cfg, rest, out, errOut)
	}

	store, err := sqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	eng, err := engine.New(ctx, store, cfg.engineConfig())
	if err != nil {
		return err
	}

	switch name {
	case "launch":
		return runLaunch(ctx, eng, rest, out, errOut)
	case "contribute":
		return runContribute(ctx, eng, rest, out, errOut)
	case "swap":
		return runSwap(ctx, eng, rest, out, errOut)
	case "add-liquidity":
		return runAddLiquidity(ctx, eng, rest, out, errOut)
	case "remove-liquidity":
		return runRemoveLiquidity(ctx, eng, rest, out, errOut)
	case "campaigns":
		return runCampaigns(ctx, eng, rest, out, errOut)
	case "campaign":
		return runCampaign(ctx, eng, rest, out, errOut)
	case "pool":
		return runPool(ctx, eng, rest, out, errOut)
	case "events":
		return runEvents(ctx, eng, rest, out, errOut)
	case "grant":
		return runGrant(ctx, eng, rest, out, errOut)
	case "revoke":
		return runRevoke(ctx, eng, rest, out, errOut)
	case "fees":
		return runFees(ctx, eng, rest, out, errOut)
	case "treasury":
		return runTreasury(ctx, eng, rest, out, errOut)
	case "withdraw":
		return runWithdraw(ctx, eng, rest, out, errOut)
	}

	usage(out, cfg.Locale)
	return fmt.Errorf("unknown subcommand %q", name)
}

func usage(out io.Writer, locale string) {
	fmt.Fprintln(out, message(locale, "cli.title"))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  agentbond <subcommand> [flags]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Campaigns:")
	fmt.Fprintln(out, "  launch            create a raising campaign")
	fmt.Fprintln(out, "  contribute        add funds; bonds when the target is reached")
	fmt.Fprintln(out, "  campaigns         list campaigns")
	fmt.Fprintln(out, "  campaign          show one campaign and its contributions")
	fmt.Fprintln(out, "  events            list or search the fact journal")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Pool:")
	fmt.Fprintln(out, "  swap              trade against a bonded pool")
	fmt.Fprintln(out, "  add-liquidity     deposit both assets for LP shares")
	fmt.Fprintln(out, "  remove-liquidity  burn LP shares for a reserve cut")
	fmt.Fprintln(out, "  pool              show pool reserves and positions")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Administration:")
	fmt.Fprintln(out, "  grant             issue a capability (owner only)")
	fmt.Fprintln(out, "  revoke            remove a capability (owner only)")
	fmt.Fprintln(out, "  fees              show or update protocol fee rates")
	fmt.Fprintln(out, "  treasury          show the protocol fee balance")
	fmt.Fprintln(out, "  withdraw          withdraw accumulated protocol fees")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  demo              run the bonding walkthrough in memory")
}

// message resolves a CLI catalog key, falling back to the key itself.
func message(locale, key string) string {
	if msg, ok := i18ncatalog.Default().Message(locale, key); ok {
		return msg
	}
	return key
}

// actorDefault is the identity used when a subcommand's principal flag is
// left empty. Run stores AGENTBOND_ACTOR on the context.
func actorDefault(ctx context.Context) string {
	return requestctx.PrincipalFromContext(ctx)
}

func parseAmount(value, flagName string) (ledger.Amount, error) {
	amount, err := ledger.Parse(strings.TrimSpace(value))
	if err != nil {
		return ledger.Zero(), fmt.Errorf("-%s: %w", flagName, err)
	}
	return amount, nil
}

func newFlagSet(name string, errOut io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	return fs
}

type kv struct {
	key   string
	value string
}

func printKV(out io.Writer, rows []kv) {
	width := 0
	for _, row := range rows {
		if len(row.key) > width {
			width = len(row.key)
		}
	}
	for _, row := range rows {
		fmt.Fprintf(out, "%-*s = %s\n", width, row.key, row.value)
	}
}

func campaignRows(c campaign.Campaign) []kv {
	rows := []kv{
		{"campaign_id", strconv.FormatUint(c.ID, 10)},
		{"creator", c.Creator},
		{"name", c.Name},
		{"status", string(c.Status)},
		{"funding_target", c.FundingTarget.String()},
		{"token_supply", c.TokenSupply.String()},
		{"total_raised", c.TotalRaised.String()},
		{"created_at", c.CreatedAt.Format(time.RFC3339)},
	}
	if c.Status == campaign.StatusBonded {
		rows = append(rows,
			kv{"token_address", c.TokenAddress},
			kv{"pool_address", c.PoolAddress},
			kv{"seed", strconv.FormatUint(c.Seed, 10)},
			kv{"bonded_at", c.BondedAt.Format(time.RFC3339)},
		)
	}
	return rows
}

func poolRows(p pool.Pool) []kv {
	return []kv{
		{"campaign_id", strconv.FormatUint(p.CampaignID, 10)},
		{"pool_address", p.Address},
		{"reserve_base", p.ReserveBase.String()},
		{"reserve_token", p.ReserveToken.String()},
		{"total_shares", p.TotalShares.String()},
		{"swap_fee_bps", strconv.FormatUint(uint64(p.SwapFeeBps), 10)},
	}
}

func feeRows(cfg treasury.FeeConfig) []kv {
	return []kv{
		{"bonding_fee_bps", strconv.FormatUint(uint64(cfg.BondingFeeBps), 10)},
		{"swap_fee_bps", strconv.FormatUint(uint64(cfg.SwapFeeBps), 10)},
	}
}

func printEvent(out io.Writer, evt event.Event) {
	fmt.Fprintf(out, "campaign=%d seq=%d type=%s actor=%s at=%s payload=%s\n",
		evt.CampaignID, evt.Seq, evt.Type, evt.Actor,
		evt.Timestamp.Format(time.RFC3339), evt.PayloadJSON)
}
