package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/agentbond/internal/campaign/event"
	apperrors "github.com/louisbranch/agentbond/internal/platform/errors"
	"github.com/louisbranch/agentbond/internal/storage"
	"github.com/louisbranch/agentbond/internal/storage/cursor"
	"github.com/louisbranch/agentbond/internal/storage/filter"
)

const eventColumns = "campaign_id, seq, event_hash, prev_event_hash, chain_hash, timestamp, event_type, actor, trace_id, span_id, payload_json"

func scanEventRows(rows *sql.Rows) (event.Event, error) {
	var (
		evt        event.Event
		campaignID int64
		seq        int64
		timestamp  int64
		eventType  string
		payload    string
	)
	if err := rows.Scan(
		&campaignID,
		&seq,
		&evt.Hash,
		&evt.PrevHash,
		&evt.ChainHash,
		&timestamp,
		&eventType,
		&evt.Actor,
		&evt.TraceID,
		&evt.SpanID,
		&payload,
	); err != nil {
		return event.Event{}, err
	}
	evt.CampaignID = uint64(campaignID)
	evt.Seq = uint64(seq)
	evt.Timestamp = fromMillis(timestamp)
	evt.Type = event.Type(eventType)
	evt.PayloadJSON = []byte(payload)
	return evt, nil
}

// AppendEvents atomically appends a single-campaign batch of facts. Every
// fact seals against the journal head inside one transaction, so concurrent
// appenders conflict on the (campaign_id, seq) key instead of forking the
// chain.
func (s *Store) AppendEvents(ctx context.Context, events []event.Event) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if len(events) == 0 {
		return nil, apperrors.New(apperrors.CodeEventInvalid, "event batch is empty")
	}
	campaignID := events[0].CampaignID
	for _, evt := range events {
		if evt.CampaignID != campaignID {
			return nil, apperrors.New(apperrors.CodeEventInvalid, "event batch spans multiple campaigns")
		}
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	lastSeq := uint64(0)
	prevChainHash := ""
	row := tx.QueryRowContext(ctx,
		"SELECT seq, chain_hash FROM events WHERE campaign_id = ? ORDER BY seq DESC LIMIT 1",
		int64(campaignID))
	var headSeq int64
	var headChainHash string
	switch err := row.Scan(&headSeq, &headChainHash); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("load journal head: %w", err)
	default:
		lastSeq = uint64(headSeq)
		prevChainHash = headChainHash
	}

	sealed := make([]event.Event, 0, len(events))
	for i, evt := range events {
		evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
		out, err := event.Seal(evt, lastSeq+uint64(i)+1, prevChainHash)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			int64(out.CampaignID),
			int64(out.Seq),
			out.Hash,
			out.PrevHash,
			out.ChainHash,
			toMillis(out.Timestamp),
			string(out.Type),
			out.Actor,
			out.TraceID,
			out.SpanID,
			string(out.PayloadJSON),
		); err != nil {
			if isConstraintError(err) {
				return nil, storage.ErrAlreadyExists
			}
			return nil, fmt.Errorf("append event: %w", err)
		}
		sealed = append(sealed, out)
		prevChainHash = out.ChainHash
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit events: %w", err)
	}
	return sealed, nil
}

// ListEvents returns one campaign's facts ordered by sequence ascending,
// starting after afterSeq. A non-positive limit returns everything.
func (s *Store) ListEvents(ctx context.Context, campaignID uint64, afterSeq uint64, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	query := "SELECT " + eventColumns + " FROM events WHERE campaign_id = ? AND seq > ? ORDER BY seq ASC"
	params := []any{int64(campaignID), int64(afterSeq)}
	if limit > 0 {
		query += " LIMIT ?"
		params = append(params, limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var result []event.Event
	for rows.Next() {
		evt, err := scanEventRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return result, nil
}

// SearchEvents returns a page of facts across campaigns matching an AIP-160
// filter, ordered by (campaign_id, seq).
func (s *Store) SearchEvents(ctx context.Context, filterStr string, pageSize int, pageToken string) (storage.EventPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.EventPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.EventPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.EventPage{}, fmt.Errorf("page size must be greater than zero")
	}

	cond, err := filter.ParseEventFilter(filterStr)
	if err != nil {
		return storage.EventPage{}, err
	}

	var where []string
	var params []any
	if cond.Clause != "" {
		where = append(where, cond.Clause)
		params = append(params, cond.Params...)
	}
	if pageToken != "" {
		cur, err := cursor.DecodeEvent(pageToken)
		if err != nil {
			return storage.EventPage{}, fmt.Errorf("decode page token: %w", err)
		}
		if err := cursor.ValidateFilterHash(cur, filterStr); err != nil {
			return storage.EventPage{}, err
		}
		where = append(where, "(campaign_id > ? OR (campaign_id = ? AND seq > ?))")
		params = append(params, int64(cur.CampaignID), int64(cur.CampaignID), int64(cur.Seq))
	}

	query := "SELECT " + eventColumns + " FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY campaign_id ASC, seq ASC LIMIT ?"
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, params...)
	if err != nil {
		return storage.EventPage{}, fmt.Errorf("search events: %w", err)
	}
	defer rows.Close()

	page := storage.EventPage{}
	for rows.Next() {
		evt, err := scanEventRows(rows)
		if err != nil {
			return storage.EventPage{}, fmt.Errorf("scan event: %w", err)
		}
		page.Events = append(page.Events, evt)
	}
	if err := rows.Err(); err != nil {
		return storage.EventPage{}, fmt.Errorf("search events: %w", err)
	}

	if len(page.Events) > pageSize {
		last := page.Events[pageSize-1]
		token, err := cursor.EncodeEvent(cursor.EventCursor{
			CampaignID: last.CampaignID,
			Seq:        last.Seq,
			FilterHash: cursor.HashFilter(filterStr),
		})
		if err != nil {
			return storage.EventPage{}, fmt.Errorf("encode page token: %w", err)
		}
		page.NextPageToken = token
		page.Events = page.Events[:pageSize]
	}
	return page, nil
}

// ListJournalCampaignIDs returns the distinct campaign ids in the journal.
func (s *Store) ListJournalCampaignIDs(ctx context.Context) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT DISTINCT campaign_id FROM events ORDER BY campaign_id ASC")
	if err != nil {
		return nil, fmt.Errorf("list journal campaign ids: %w", err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan campaign id: %w", err)
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list journal campaign ids: %w", err)
	}
	return ids, nil
}
