package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/louisbranch/agentbond/internal/campaign"
	"github.com/louisbranch/agentbond/internal/ledger"
	"github.com/louisbranch/agentbond/internal/storage"
	"github.com/louisbranch/agentbond/internal/storage/cursor"
)

const campaignColumns = "id, creator, name, funding_target, token_supply, total_raised, metadata, status, token_address, pool_address, seed, created_at, bonded_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (campaign.Campaign, error) {
	var (
		c             campaign.Campaign
		id            int64
		fundingTarget string
		tokenSupply   string
		totalRaised   string
		metadata      string
		status        string
		seed          string
		createdAt     int64
		bondedAt      sql.NullInt64
	)
	if err := row.Scan(
		&id,
		&c.Creator,
		&c.Name,
		&fundingTarget,
		&tokenSupply,
		&totalRaised,
		&metadata,
		&status,
		&c.TokenAddress,
		&c.PoolAddress,
		&seed,
		&createdAt,
		&bondedAt,
	); err != nil {
		return campaign.Campaign{}, err
	}

	c.ID = uint64(id)
	var err error
	if c.FundingTarget, err = ledger.Parse(fundingTarget); err != nil {
		return campaign.Campaign{}, fmt.Errorf("parse funding target: %w", err)
	}
	if c.TokenSupply, err = ledger.Parse(tokenSupply); err != nil {
		return campaign.Campaign{}, fmt.Errorf("parse token supply: %w", err)
	}
	if c.TotalRaised, err = ledger.Parse(totalRaised); err != nil {
		return campaign.Campaign{}, fmt.Errorf("parse total raised: %w", err)
	}
	if metadata != "" {
		c.Metadata = json.RawMessage(metadata)
	}
	parsed, ok := campaign.ParseStatus(status)
	if !ok {
		return campaign.Campaign{}, fmt.Errorf("campaign %d has unknown status %q", id, status)
	}
	c.Status = parsed
	if c.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
		return campaign.Campaign{}, fmt.Errorf("parse seed: %w", err)
	}
	c.CreatedAt = fromMillis(createdAt)
	if bondedAt.Valid {
		c.BondedAt = fromMillis(bondedAt.Int64)
	}
	return c, nil
}

// NextCampaignID atomically allocates the next campaign id, starting at 1.
func (s *Store) NextCampaignID(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO id_sequence (name, value) VALUES ('campaign', 0)"); err != nil {
		return 0, fmt.Errorf("init campaign sequence: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE id_sequence SET value = value + 1 WHERE name = 'campaign'"); err != nil {
		return 0, fmt.Errorf("increment campaign sequence: %w", err)
	}
	var value int64
	if err := tx.QueryRowContext(ctx,
		"SELECT value FROM id_sequence WHERE name = 'campaign'").Scan(&value); err != nil {
		return 0, fmt.Errorf("read campaign sequence: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit campaign sequence: %w", err)
	}
	return uint64(value), nil
}

func putCampaign(ctx context.Context, q dbtx, c campaign.Campaign) error {
	var bondedAt any
	if !c.BondedAt.IsZero() {
		bondedAt = toMillis(c.BondedAt)
	}
	_, err := q.ExecContext(ctx, `INSERT INTO campaigns (`+campaignColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    creator = excluded.creator,
    name = excluded.name,
    funding_target = excluded.funding_target,
    token_supply = excluded.token_supply,
    total_raised = excluded.total_raised,
    metadata = excluded.metadata,
    status = excluded.status,
    token_address = excluded.token_address,
    pool_address = excluded.pool_address,
    seed = excluded.seed,
    created_at = excluded.created_at,
    bonded_at = excluded.bonded_at`,
		int64(c.ID),
		c.Creator,
		c.Name,
		c.FundingTarget.String(),
		c.TokenSupply.String(),
		c.TotalRaised.String(),
		string(c.Metadata),
		string(c.Status),
		c.TokenAddress,
		c.PoolAddress,
		strconv.FormatUint(c.Seed, 10),
		toMillis(c.CreatedAt),
		bondedAt,
	)
	if err != nil {
		return fmt.Errorf("put campaign: %w", err)
	}
	return nil
}

// PutCampaign stores a campaign read model row.
func (s *Store) PutCampaign(ctx context.Context, c campaign.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return putCampaign(ctx, s.sqlDB, c)
}

func getCampaign(ctx context.Context, q dbtx, id uint64) (campaign.Campaign, error) {
	row := q.QueryRowContext(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE id = ?", int64(id))
	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign.Campaign{}, storage.ErrNotFound
	}
	if err != nil {
		return campaign.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// GetCampaign retrieves a campaign by id.
func (s *Store) GetCampaign(ctx context.Context, id uint64) (campaign.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return campaign.Campaign{}, err
	}
	if s == nil || s.sqlDB == nil {
		return campaign.Campaign{}, fmt.Errorf("storage is not configured")
	}
	return getCampaign(ctx, s.sqlDB, id)
}

// ListCampaigns returns a page of campaigns ordered by id ascending.
func (s *Store) ListCampaigns(ctx context.Context, pageSize int, pageToken string) (storage.CampaignPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.CampaignPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.CampaignPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.CampaignPage{}, fmt.Errorf("page size must be greater than zero")
	}

	afterID := uint64(0)
	if pageToken != "" {
		cur, err := cursor.DecodeCampaign(pageToken)
		if err != nil {
			return storage.CampaignPage{}, fmt.Errorf("decode page token: %w", err)
		}
		afterID = cur.ID
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE id > ? ORDER BY id ASC LIMIT ?",
		int64(afterID), pageSize+1)
	if err != nil {
		return storage.CampaignPage{}, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	page := storage.CampaignPage{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return storage.CampaignPage{}, fmt.Errorf("scan campaign: %w", err)
		}
		page.Campaigns = append(page.Campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return storage.CampaignPage{}, fmt.Errorf("list campaigns: %w", err)
	}

	if len(page.Campaigns) > pageSize {
		token, err := cursor.EncodeCampaign(cursor.CampaignCursor{ID: page.Campaigns[pageSize-1].ID})
		if err != nil {
			return storage.CampaignPage{}, fmt.Errorf("encode page token: %w", err)
		}
		page.NextPageToken = token
		page.Campaigns = page.Campaigns[:pageSize]
	}
	return page, nil
}

func putContribution(ctx context.Context, q dbtx, c campaign.Contribution) error {
	_, err := q.ExecContext(ctx, `INSERT INTO contributions (campaign_id, contributor, amount, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(campaign_id, contributor) DO UPDATE SET
    amount = excluded.amount,
    updated_at = excluded.updated_at`,
		int64(c.CampaignID),
		c.Contributor,
		c.Amount.String(),
		toMillis(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("put contribution: %w", err)
	}
	return nil
}

// PutContribution stores a contributor's running total.
func (s *Store) PutContribution(ctx context.Context, c campaign.Contribution) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return putContribution(ctx, s.sqlDB, c)
}

func scanContribution(row rowScanner) (campaign.Contribution, error) {
	var (
		c          campaign.Contribution
		campaignID int64
		amount     string
		updatedAt  int64
	)
	if err := row.Scan(&campaignID, &c.Contributor, &amount, &updatedAt); err != nil {
		return campaign.Contribution{}, err
	}
	c.CampaignID = uint64(campaignID)
	var err error
	if c.Amount, err = ledger.Parse(amount); err != nil {
		return campaign.Contribution{}, fmt.Errorf("parse contribution amount: %w", err)
	}
	c.UpdatedAt = fromMillis(updatedAt)
	return c, nil
}

// GetContribution retrieves one contributor's running total.
func (s *Store) GetContribution(ctx context.Context, campaignID uint64, contributor string) (campaign.Contribution, error) {
	if err := ctx.Err(); err != nil {
		return campaign.Contribution{}, err
	}
	if s == nil || s.sqlDB == nil {
		return campaign.Contribution{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT campaign_id, contributor, amount, updated_at FROM contributions WHERE campaign_id = ? AND contributor = ?",
		int64(campaignID), contributor)
	c, err := scanContribution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return campaign.Contribution{}, storage.ErrNotFound
	}
	if err != nil {
		return campaign.Contribution{}, fmt.Errorf("get contribution: %w", err)
	}
	return c, nil
}

// ListContributions returns every contribution for a campaign ordered by
// contributor.
func (s *Store) ListContributions(ctx context.Context, campaignID uint64) ([]campaign.Contribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT campaign_id, contributor, amount, updated_at FROM contributions WHERE campaign_id = ? ORDER BY contributor ASC",
		int64(campaignID))
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	defer rows.Close()

	var result []campaign.Contribution
	for rows.Next() {
		c, err := scanContribution(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contribution: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return result, nil
}
