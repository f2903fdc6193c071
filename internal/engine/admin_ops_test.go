package engine

import (
	"context"
	"testing"

	"github.com/louisbranch/agentbond/internal/authz"
	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/treasury"
)

func ownerConfig() Config {
	cfg := defaultConfig()
	cfg.Owner = "root"
	return cfg
}

func TestGrantAdministration(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, ownerConfig())

	grant, err := e.Grant(ctx, "root", "alice", "treasury.withdraw")
	if err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if grant.Principal != "alice" || grant.Capability != authz.CapabilityWithdrawTreasury || grant.GrantedBy != "root" {
		t.Fatalf("grant = %+v, want alice/treasury.withdraw by root", grant)
	}
	if !grant.UpdatedAt.Equal(engineNow) {
		t.Fatalf("UpdatedAt = %s, want %s", grant.UpdatedAt, engineNow)
	}

	_, err = e.Grant(ctx, "mallory", "bob", "fees.set")
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("Grant() by non-owner error = %v, want %s", err, apperrors.CodeUnauthorized)
	}
	_, err = e.Grant(ctx, "root", "bob", "universe.admin")
	if !apperrors.IsCode(err, apperrors.CodeAuthzUnknownCapability) {
		t.Fatalf("Grant() unknown capability error = %v, want %s", err, apperrors.CodeAuthzUnknownCapability)
	}

	grants, err := e.ListGrants(ctx, "")
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("len(grants) = %d, want 1", len(grants))
	}

	if err := e.Revoke(ctx, "mallory", "alice", "treasury.withdraw"); !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("Revoke() by non-owner error = %v, want %s", err, apperrors.CodeUnauthorized)
	}
	if err := e.Revoke(ctx, "root", "alice", "treasury.withdraw"); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	// Revoking an absent grant stays quiet.
	if err := e.Revoke(ctx, "root", "alice", "treasury.withdraw"); err != nil {
		t.Fatalf("Revoke() repeat error = %v", err)
	}
	grants, err = e.ListGrants(ctx, "alice")
	if err != nil {
		t.Fatalf("ListGrants() error = %v", err)
	}
	if len(grants) != 0 {
		t.Fatalf("len(grants) after revoke = %d, want 0", len(grants))
	}
}

func TestGrantRequiresOwner(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, defaultConfig())

	_, err := e.Grant(ctx, "alice", "bob", "fees.set")
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("Grant() with no owner configured error = %v, want %s", err, apperrors.CodeUnauthorized)
	}
}

func TestSetFeeConfig(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, ownerConfig())

	_, err := e.SetFeeConfig(ctx, "mallory", treasury.FeeConfig{BondingFeeBps: 100, SwapFeeBps: 10})
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("SetFeeConfig() unauthorized error = %v, want %s", err, apperrors.CodeUnauthorized)
	}

	_, err = e.SetFeeConfig(ctx, "root", treasury.FeeConfig{BondingFeeBps: 1_001})
	if !apperrors.IsCode(err, apperrors.CodeFeeBpsOverCeiling) {
		t.Fatalf("SetFeeConfig() over ceiling error = %v, want %s", err, apperrors.CodeFeeBpsOverCeiling)
	}

	if _, err := e.SetFeeConfig(ctx, "root", treasury.FeeConfig{BondingFeeBps: 500, SwapFeeBps: 50}); err != nil {
		t.Fatalf("SetFeeConfig() error = %v", err)
	}
	cfg, err := e.FeeConfig(ctx)
	if err != nil {
		t.Fatalf("FeeConfig() error = %v", err)
	}
	if cfg.BondingFeeBps != 500 || cfg.SwapFeeBps != 50 {
		t.Fatalf("FeeConfig() = %+v, want {500 50}", cfg)
	}

	// A campaign bonding after the change pays the new rates.
	c, err := e.Launch(ctx, campaign.LaunchInput{
		Creator:       "creator-2",
		Name:          "Agent Vega",
		FundingTarget: ledger.FromUint64(10_000),
		TokenSupply:   ledger.FromUint64(1_000_000),
	})
	if err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	result, err := e.Contribute(ctx, ContributeInput{
		CampaignID:  c.ID,
		Contributor: "alice",
		Amount:      ledger.FromUint64(10_000),
	})
	if err != nil {
		t.Fatalf("Contribute() error = %v", err)
	}
	if !result.Bonded {
		t.Fatal("Bonded = false, want true")
	}
	if !result.Pool.ReserveBase.Equal(ledger.FromUint64(9_500)) {
		t.Fatalf("ReserveBase = %s, want 9500 after a 500 bps skim", result.Pool.ReserveBase)
	}
	if result.Pool.SwapFeeBps != 50 {
		t.Fatalf("SwapFeeBps = %d, want 50", result.Pool.SwapFeeBps)
	}
	acct, err := e.TreasuryBalance(ctx)
	if err != nil {
		t.Fatalf("TreasuryBalance() error = %v", err)
	}
	if !acct.Balance.Equal(ledger.FromUint64(500)) {
		t.Fatalf("treasury = %s, want 500", acct.Balance)
	}

	// The capability can be delegated.
	if _, err := e.Grant(ctx, "root", "alice", "fees.set"); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	if _, err := e.SetFeeConfig(ctx, "alice", treasury.FeeConfig{BondingFeeBps: 250, SwapFeeBps: 30}); err != nil {
		t.Fatalf("SetFeeConfig() with grant error = %v", err)
	}
}

func TestWithdrawTreasury(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, ownerConfig())
	bondTestCampaign(t, e)

	_, err := e.WithdrawTreasury(ctx, "mallory", ledger.FromUint64(100))
	if !apperrors.IsCode(err, apperrors.CodeUnauthorized) {
		t.Fatalf("WithdrawTreasury() unauthorized error = %v, want %s", err, apperrors.CodeUnauthorized)
	}

	acct, err := e.WithdrawTreasury(ctx, "root", ledger.FromUint64(100))
	if err != nil {
		t.Fatalf("WithdrawTreasury() error = %v", err)
	}
	if !acct.Balance.Equal(ledger.FromUint64(150)) {
		t.Fatalf("balance = %s, want 150", acct.Balance)
	}

	if _, err := e.Grant(ctx, "root", "alice", "treasury.withdraw"); err != nil {
		t.Fatalf("Grant() error = %v", err)
	}
	acct, err = e.WithdrawTreasury(ctx, "alice", ledger.FromUint64(150))
	if err != nil {
		t.Fatalf("WithdrawTreasury() with grant error = %v", err)
	}
	if !acct.Balance.IsZero() {
		t.Fatalf("balance = %s, want 0", acct.Balance)
	}

	_, err = e.WithdrawTreasury(ctx, "root", ledger.FromUint64(1))
	if !apperrors.IsCode(err, apperrors.CodeTreasuryInsufficientBalance) {
		t.Fatalf("WithdrawTreasury() overdraw error = %v, want %s", err, apperrors.CodeTreasuryInsufficientBalance)
	}
	_, err = e.WithdrawTreasury(ctx, "root", ledger.Zero())
	if !apperrors.IsCode(err, apperrors.CodeTreasuryZeroAmount) {
		t.Fatalf("WithdrawTreasury() zero error = %v, want %s", err, apperrors.CodeTreasuryZeroAmount)
	}
}
