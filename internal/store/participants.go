package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// AddParticipant records one player's entry: the participant row, its gift
// line items, and the matching inventory decrements run in a single
// transaction, so a failed decrement never leaves a stake without a debit.
// The session row is locked first so the status check and the insert cannot
// interleave with completion.
func (s *Store) AddParticipant(ctx context.Context, sessionID, playerID string, balanceMilli int64, selections []GiftSelection, color string, positionIndex int) (*Participant, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var status string
	row := tx.QueryRow(ctx, `SELECT status FROM sessions WHERE id = $1 FOR UPDATE`, sessionID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if status != StatusWaiting && status != StatusCountdown {
		return nil, ErrSessionNotJoinable
	}

	var giftValue int64
	type line struct {
		giftID    string
		quantity  int
		unitValue int64
	}
	lines := make([]line, 0, len(selections))
	for _, sel := range selections {
		if sel.Quantity <= 0 {
			continue
		}
		var unit int64
		row := tx.QueryRow(ctx, `SELECT base_value_milli FROM gifts WHERE id = $1 AND is_active`, sel.GiftID)
		if err := row.Scan(&unit); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		tag, err := tx.Exec(ctx, `UPDATE player_gifts SET quantity = quantity - $3
			WHERE player_id = $1 AND gift_id = $2 AND quantity >= $3`,
			playerID, sel.GiftID, sel.Quantity)
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			return nil, ErrInsufficientGifts
		}
		giftValue += unit * int64(sel.Quantity)
		lines = append(lines, line{giftID: sel.GiftID, quantity: sel.Quantity, unitValue: unit})
	}

	id := NewID()
	_, err = tx.Exec(ctx, `INSERT INTO participants
			(id, session_id, player_id, balance_milli, gift_value_milli, color, position_index)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		id, sessionID, playerID, balanceMilli, giftValue, color, positionIndex)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateParticipant
		}
		return nil, err
	}

	for _, ln := range lines {
		_, err := tx.Exec(ctx, `INSERT INTO participant_gifts
				(id, participant_id, gift_id, quantity, unit_value_milli)
			VALUES ($1,$2,$3,$4,$5)`,
			NewID(), id, ln.giftID, ln.quantity, ln.unitValue)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &Participant{
		ID:             id,
		SessionID:      sessionID,
		PlayerID:       playerID,
		BalanceMilli:   balanceMilli,
		GiftValueMilli: giftValue,
		Color:          color,
		PositionIndex:  positionIndex,
	}, nil
}

func (s *Store) CountParticipants(ctx context.Context, sessionID string) (int, error) {
	row := s.Pool.QueryRow(ctx, `SELECT COUNT(1) FROM participants WHERE session_id = $1`, sessionID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ListParticipants loads the full participant snapshot in position order,
// with each gift line item expanded back into repeated emoji entries the way
// the wheel displays them.
func (s *Store) ListParticipants(ctx context.Context, sessionID string) ([]Participant, error) {
	rows, err := s.Pool.Query(ctx, `SELECT p.id, p.session_id, p.player_id,
			COALESCE(NULLIF(pl.username, ''), pl.first_name), COALESCE(pl.photo_url, ''),
			p.balance_milli, p.gift_value_milli, p.color, p.position_index, p.created_at
		FROM participants p
		JOIN players pl ON pl.id = p.player_id
		WHERE p.session_id = $1
		ORDER BY p.position_index ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Participant{}
	index := map[string]int{}
	for rows.Next() {
		var p Participant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PlayerID, &p.PlayerName, &p.PhotoURL,
			&p.BalanceMilli, &p.GiftValueMilli, &p.Color, &p.PositionIndex, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Gifts = []string{}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	giftRows, err := s.Pool.Query(ctx, `SELECT pg.participant_id, g.emoji, pg.quantity
		FROM participant_gifts pg
		JOIN gifts g ON g.id = pg.gift_id
		JOIN participants p ON p.id = pg.participant_id
		WHERE p.session_id = $1
		ORDER BY p.position_index ASC, pg.id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer giftRows.Close()
	for giftRows.Next() {
		var participantID, emoji string
		var quantity int
		if err := giftRows.Scan(&participantID, &emoji, &quantity); err != nil {
			return nil, err
		}
		i, ok := index[participantID]
		if !ok {
			continue
		}
		for n := 0; n < quantity; n++ {
			out[i].Gifts = append(out[i].Gifts, emoji)
		}
	}
	return out, giftRows.Err()
}
