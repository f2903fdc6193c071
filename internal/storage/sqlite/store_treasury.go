package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/agentbond/internal/authz"
	"github.com/louisbranch/agentbond/internal/ledger"
	"github.com/louisbranch/agentbond/internal/storage"
	"github.com/louisbranch/agentbond/internal/treasury"
)

func getTreasury(ctx context.Context, q dbtx) (treasury.Account, error) {
	var (
		balance   string
		updatedAt int64
	)
	row := q.QueryRowContext(ctx, "SELECT balance, updated_at FROM treasury WHERE id = 1")
	err := row.Scan(&balance, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return treasury.Account{Balance: ledger.Zero()}, nil
	}
	if err != nil {
		return treasury.Account{}, fmt.Errorf("get treasury: %w", err)
	}

	acct := treasury.Account{UpdatedAt: fromMillis(updatedAt)}
	if acct.Balance, err = ledger.Parse(balance); err != nil {
		return treasury.Account{}, fmt.Errorf("parse treasury balance: %w", err)
	}
	return acct, nil
}

// GetTreasury returns the treasury account; a never-credited treasury has a
// zero balance.
func (s *Store) GetTreasury(ctx context.Context) (treasury.Account, error) {
	if err := ctx.Err(); err != nil {
		return treasury.Account{}, err
	}
	if s == nil || s.sqlDB == nil {
		return treasury.Account{}, fmt.Errorf("storage is not configured")
	}
	return getTreasury(ctx, s.sqlDB)
}

func putTreasury(ctx context.Context, q dbtx, acct treasury.Account) error {
	_, err := q.ExecContext(ctx, `INSERT INTO treasury (id, balance, updated_at)
VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    balance = excluded.balance,
    updated_at = excluded.updated_at`,
		acct.Balance.String(),
		toMillis(acct.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put treasury: %w", err)
	}
	return nil
}

// PutTreasury stores the treasury account.
func (s *Store) PutTreasury(ctx context.Context, acct treasury.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return putTreasury(ctx, s.sqlDB, acct)
}

// GetFeeConfig returns the persisted fee configuration.
func (s *Store) GetFeeConfig(ctx context.Context) (treasury.FeeConfig, error) {
	if err := ctx.Err(); err != nil {
		return treasury.FeeConfig{}, err
	}
	if s == nil || s.sqlDB == nil {
		return treasury.FeeConfig{}, fmt.Errorf("storage is not configured")
	}

	var bondingFeeBps, swapFeeBps int64
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT bonding_fee_bps, swap_fee_bps FROM fee_config WHERE id = 1")
	err := row.Scan(&bondingFeeBps, &swapFeeBps)
	if errors.Is(err, sql.ErrNoRows) {
		return treasury.FeeConfig{}, storage.ErrNotFound
	}
	if err != nil {
		return treasury.FeeConfig{}, fmt.Errorf("get fee config: %w", err)
	}
	return treasury.FeeConfig{
		BondingFeeBps: uint32(bondingFeeBps),
		SwapFeeBps:    uint32(swapFeeBps),
	}, nil
}

// PutFeeConfig stores the fee configuration.
func (s *Store) PutFeeConfig(ctx context.Context, cfg treasury.FeeConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO fee_config (id, bonding_fee_bps, swap_fee_bps)
VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    bonding_fee_bps = excluded.bonding_fee_bps,
    swap_fee_bps = excluded.swap_fee_bps`,
		int64(cfg.BondingFeeBps),
		int64(cfg.SwapFeeBps),
	)
	if err != nil {
		return fmt.Errorf("put fee config: %w", err)
	}
	return nil
}

// PutGrant stores a capability grant.
func (s *Store) PutGrant(ctx context.Context, g authz.Grant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx, `INSERT INTO grants (principal, capability, granted_by, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(principal, capability) DO UPDATE SET
    granted_by = excluded.granted_by,
    updated_at = excluded.updated_at`,
		g.Principal,
		string(g.Capability),
		g.GrantedBy,
		toMillis(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put grant: %w", err)
	}
	return nil
}

func scanGrant(row rowScanner) (authz.Grant, error) {
	var (
		g          authz.Grant
		capability string
		updatedAt  int64
	)
	if err := row.Scan(&g.Principal, &capability, &g.GrantedBy, &updatedAt); err != nil {
		return authz.Grant{}, err
	}
	g.Capability = authz.Capability(capability)
	g.UpdatedAt = fromMillis(updatedAt)
	return g, nil
}

// GetGrant retrieves a capability grant.
func (s *Store) GetGrant(ctx context.Context, principal string, capability authz.Capability) (authz.Grant, error) {
	if err := ctx.Err(); err != nil {
		return authz.Grant{}, err
	}
	if s == nil || s.sqlDB == nil {
		return authz.Grant{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT principal, capability, granted_by, updated_at FROM grants WHERE principal = ? AND capability = ?",
		principal, string(capability))
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return authz.Grant{}, storage.ErrNotFound
	}
	if err != nil {
		return authz.Grant{}, fmt.Errorf("get grant: %w", err)
	}
	return g, nil
}

// DeleteGrant removes a capability grant. Deleting a missing grant is a no-op.
func (s *Store) DeleteGrant(ctx context.Context, principal string, capability authz.Capability) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	_, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM grants WHERE principal = ? AND capability = ?",
		principal, string(capability))
	if err != nil {
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

// ListGrants returns grants for a principal ordered by capability; an empty
// principal lists every grant ordered by principal then capability.
func (s *Store) ListGrants(ctx context.Context, principal string) ([]authz.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := "SELECT principal, capability, granted_by, updated_at FROM grants"
	var params []any
	if principal != "" {
		query += " WHERE principal = ?"
		params = append(params, principal)
	}
	query += " ORDER BY principal ASC, capability ASC"

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var result []authz.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		result = append(result, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	return result, nil
}
