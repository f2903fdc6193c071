package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/agentbond/internal/ledger"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/storage"
)

func putPool(ctx context.Context, q dbtx, p pool.Pool) error {
	_, err := q.ExecContext(ctx, `INSERT INTO pools (campaign_id, address, reserve_base, reserve_token, total_shares, swap_fee_bps)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(campaign_id) DO UPDATE SET
    address = excluded.address,
    reserve_base = excluded.reserve_base,
    reserve_token = excluded.reserve_token,
    total_shares = excluded.total_shares,
    swap_fee_bps = excluded.swap_fee_bps`,
		int64(p.CampaignID),
		p.Address,
		p.ReserveBase.String(),
		p.ReserveToken.String(),
		p.TotalShares.String(),
		int64(p.SwapFeeBps),
	)
	if err != nil {
		return fmt.Errorf("put pool: %w", err)
	}
	return nil
}

// PutPool stores pool reserve state.
func (s *Store) PutPool(ctx context.Context, p pool.Pool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return putPool(ctx, s.sqlDB, p)
}

func getPool(ctx context.Context, q dbtx, campaignID uint64) (pool.Pool, error) {
	var (
		p            pool.Pool
		id           int64
		reserveBase  string
		reserveToken string
		totalShares  string
		swapFeeBps   int64
	)
	row := q.QueryRowContext(ctx,
		"SELECT campaign_id, address, reserve_base, reserve_token, total_shares, swap_fee_bps FROM pools WHERE campaign_id = ?",
		int64(campaignID))
	err := row.Scan(&id, &p.Address, &reserveBase, &reserveToken, &totalShares, &swapFeeBps)
	if errors.Is(err, sql.ErrNoRows) {
		return pool.Pool{}, storage.ErrNotFound
	}
	if err != nil {
		return pool.Pool{}, fmt.Errorf("get pool: %w", err)
	}

	p.CampaignID = uint64(id)
	if p.ReserveBase, err = ledger.Parse(reserveBase); err != nil {
		return pool.Pool{}, fmt.Errorf("parse reserve base: %w", err)
	}
	if p.ReserveToken, err = ledger.Parse(reserveToken); err != nil {
		return pool.Pool{}, fmt.Errorf("parse reserve token: %w", err)
	}
	if p.TotalShares, err = ledger.Parse(totalShares); err != nil {
		return pool.Pool{}, fmt.Errorf("parse total shares: %w", err)
	}
	p.SwapFeeBps = uint32(swapFeeBps)
	return p, nil
}

// GetPool retrieves pool reserve state by campaign id.
func (s *Store) GetPool(ctx context.Context, campaignID uint64) (pool.Pool, error) {
	if err := ctx.Err(); err != nil {
		return pool.Pool{}, err
	}
	if s == nil || s.sqlDB == nil {
		return pool.Pool{}, fmt.Errorf("storage is not configured")
	}
	return getPool(ctx, s.sqlDB, campaignID)
}

func putPosition(ctx context.Context, q dbtx, p pool.Position) error {
	_, err := q.ExecContext(ctx, `INSERT INTO positions (campaign_id, provider, shares, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(campaign_id, provider) DO UPDATE SET
    shares = excluded.shares,
    updated_at = excluded.updated_at`,
		int64(p.CampaignID),
		p.Provider,
		p.Shares.String(),
		toMillis(p.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put position: %w", err)
	}
	return nil
}

// PutPosition stores a provider's LP share position.
func (s *Store) PutPosition(ctx context.Context, p pool.Position) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return putPosition(ctx, s.sqlDB, p)
}

// GetPosition retrieves a provider's LP share position.
func (s *Store) GetPosition(ctx context.Context, campaignID uint64, provider string) (pool.Position, error) {
	if err := ctx.Err(); err != nil {
		return pool.Position{}, err
	}
	if s == nil || s.sqlDB == nil {
		return pool.Position{}, fmt.Errorf("storage is not configured")
	}

	var (
		p         pool.Position
		id        int64
		shares    string
		updatedAt int64
	)
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT campaign_id, provider, shares, updated_at FROM positions WHERE campaign_id = ? AND provider = ?",
		int64(campaignID), provider)
	err := row.Scan(&id, &p.Provider, &shares, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return pool.Position{}, storage.ErrNotFound
	}
	if err != nil {
		return pool.Position{}, fmt.Errorf("get position: %w", err)
	}

	p.CampaignID = uint64(id)
	if p.Shares, err = ledger.Parse(shares); err != nil {
		return pool.Position{}, fmt.Errorf("parse shares: %w", err)
	}
	p.UpdatedAt = fromMillis(updatedAt)
	return p, nil
}
