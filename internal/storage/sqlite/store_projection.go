package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/campaign/event"
	"github.com/louisbranch/agentbond/internal/pool"
	"github.com/louisbranch/agentbond/internal/storage"
	"github.com/louisbranch/agentbond/internal/treasury"
)

func getCheckpoint(ctx context.Context, q dbtx, campaignID uint64) (uint64, error) {
	var seq int64
	row := q.QueryRowContext(ctx,
		"SELECT seq FROM checkpoints WHERE campaign_id = ?", int64(campaignID))
	err := row.Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get checkpoint: %w", err)
	}
	return uint64(seq), nil
}

// GetCheckpoint returns the last projected fact sequence for a campaign,
// zero when nothing has been projected.
func (s *Store) GetCheckpoint(ctx context.Context, campaignID uint64) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	return getCheckpoint(ctx, s.sqlDB, campaignID)
}

func putCheckpoint(ctx context.Context, q dbtx, campaignID uint64, seq uint64) error {
	_, err := q.ExecContext(ctx, `INSERT INTO checkpoints (campaign_id, seq)
VALUES (?, ?)
ON CONFLICT(campaign_id) DO UPDATE SET seq = excluded.seq`,
		int64(campaignID), int64(seq))
	if err != nil {
		return fmt.Errorf("put checkpoint: %w", err)
	}
	return nil
}

// PutCheckpoint records the last projected fact sequence for a campaign.
func (s *Store) PutCheckpoint(ctx context.Context, campaignID uint64, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return putCheckpoint(ctx, s.sqlDB, campaignID, seq)
}

// ApplyProjection folds one sealed fact into the read models and advances the
// campaign checkpoint, all in one transaction. Facts at or below the
// checkpoint are skipped so replay is idempotent.
func (s *Store) ApplyProjection(ctx context.Context, evt event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	checkpoint, err := getCheckpoint(ctx, tx, evt.CampaignID)
	if err != nil {
		return err
	}
	if evt.Seq <= checkpoint {
		return nil
	}
	if evt.Seq != checkpoint+1 {
		return fmt.Errorf("apply projection: fact seq %d does not follow checkpoint %d", evt.Seq, checkpoint)
	}

	var priorCampaign *campaign.Campaign
	switch c, err := getCampaign(ctx, tx, evt.CampaignID); {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	default:
		priorCampaign = &c
	}
	var priorPool *pool.Pool
	switch p, err := getPool(ctx, tx, evt.CampaignID); {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return err
	default:
		priorPool = &p
	}

	delta, err := storage.FoldEvent(evt, priorCampaign, priorPool)
	if err != nil {
		return err
	}

	if delta.Campaign != nil {
		if err := putCampaign(ctx, tx, *delta.Campaign); err != nil {
			return err
		}
	}
	if delta.Contribution != nil {
		if err := putContribution(ctx, tx, *delta.Contribution); err != nil {
			return err
		}
	}
	if delta.Pool != nil {
		if err := putPool(ctx, tx, *delta.Pool); err != nil {
			return err
		}
	}
	if delta.Position != nil {
		if err := putPosition(ctx, tx, *delta.Position); err != nil {
			return err
		}
	}
	if delta.TreasuryCredit != nil {
		acct, err := getTreasury(ctx, tx)
		if err != nil {
			return err
		}
		credited, err := treasury.Credit(acct, delta.TreasuryCredit.Amount, delta.TreasuryCredit.At)
		if err != nil {
			return err
		}
		if err := putTreasury(ctx, tx, credited); err != nil {
			return err
		}
	}

	if err := putCheckpoint(ctx, tx, evt.CampaignID, evt.Seq); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit projection: %w", err)
	}
	return nil
}
