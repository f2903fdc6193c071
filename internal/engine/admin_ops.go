package engine

import (
	"context"
	"fmt"

	"github.com/louisbranch/agentbond/internal/authz"
	"github.com/louisbranch/agentbond/internal/ledger"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/treasury"
)

// errNotOwner builds the denial for grant administration by a non-owner.
// Grant administration is not a grantable capability, so the label is only
// for the message.
func errNotOwner(principal string) error {
	return apperrors.WithMetadata(apperrors.CodeUnauthorized,
		fmt.Sprintf("principal %s cannot administer grants", principal),
		map[string]string{"Principal": principal, "Capability": "grants.administer"})
}

// Grant issues a capability to a principal. Only the owner can.
func (e *Engine) Grant(ctx context.Context, granter, principal, capability string) (authz.Grant, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Grant")
	defer span.End()

	granter, err := authz.NormalizePrincipal(granter)
	if err != nil {
		return authz.Grant{}, err
	}
	if !authz.CanAdminister(e.cfg.Owner, granter) {
		return authz.Grant{}, errNotOwner(granter)
	}
	parsed, err := authz.ParseCapability(capability)
	if err != nil {
		return authz.Grant{}, err
	}
	grant, err := authz.NewGrant(principal, parsed, granter, e.clock())
	if err != nil {
		return authz.Grant{}, err
	}
	if err := e.store.PutGrant(ctx, grant); err != nil {
		return authz.Grant{}, err
	}
	return grant, nil
}

// Revoke removes a capability from a principal. Only the owner can. Revoking
// a grant that does not exist is a no-op.
func (e *Engine) Revoke(ctx context.Context, granter, principal, capability string) error {
	ctx, span := e.tracer.Start(ctx, "engine.Revoke")
	defer span.End()

	granter, err := authz.NormalizePrincipal(granter)
	if err != nil {
		return err
	}
	if !authz.CanAdminister(e.cfg.Owner, granter) {
		return errNotOwner(granter)
	}
	principal, err = authz.NormalizePrincipal(principal)
	if err != nil {
		return err
	}
	parsed, err := authz.ParseCapability(capability)
	if err != nil {
		return err
	}
	return e.store.DeleteGrant(ctx, principal, parsed)
}

// ListGrants returns grants ordered by principal then capability. An empty
// principal lists every grant.
func (e *Engine) ListGrants(ctx context.Context, principal string) ([]authz.Grant, error) {
	return e.store.ListGrants(ctx, principal)
}

// SetFeeConfig replaces the runtime fee configuration. Requires the fees.set
// capability; rates already charged are unaffected.
func (e *Engine) SetFeeConfig(ctx context.Context, principal string, cfg treasury.FeeConfig) (treasury.FeeConfig, error) {
	ctx, span := e.tracer.Start(ctx, "engine.SetFeeConfig")
	defer span.End()

	if err := e.authorize(ctx, principal, authz.CapabilitySetFees); err != nil {
		return treasury.FeeConfig{}, err
	}
	if err := treasury.ValidateFeeConfig(cfg); err != nil {
		return treasury.FeeConfig{}, err
	}
	if err := e.store.PutFeeConfig(ctx, cfg); err != nil {
		return treasury.FeeConfig{}, err
	}
	return cfg, nil
}

// WithdrawTreasury moves accumulated fees out of the treasury. Requires the
// treasury.withdraw capability.
func (e *Engine) WithdrawTreasury(ctx context.Context, principal string, amount ledger.Amount) (treasury.Account, error) {
	ctx, span := e.tracer.Start(ctx, "engine.WithdrawTreasury")
	defer span.End()

	if err := e.authorize(ctx, principal, authz.CapabilityWithdrawTreasury); err != nil {
		return treasury.Account{}, err
	}
	acct, err := e.store.GetTreasury(ctx)
	if err != nil {
		return treasury.Account{}, err
	}
	updated, err := treasury.Withdraw(acct, amount, e.clock())
	if err != nil {
		return treasury.Account{}, err
	}
	if err := e.store.PutTreasury(ctx, updated); err != nil {
		return treasury.Account{}, err
	}
	return updated, nil
}
