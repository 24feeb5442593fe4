package store

import "context"

// ListMatchHistory returns completed rounds, newest first, with the full
// participant roster attached.
func (s *Store) ListMatchHistory(ctx context.Context, limit int) ([]MatchHistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT g.id, g.roll_number,
			COALESCE(NULLIF(pl.username, ''), pl.first_name, ''),
			COALESCE(g.winner_chance, 0), COALESCE(g.total_pot_milli, 0), g.completed_at
		FROM sessions g
		LEFT JOIN participants wp ON wp.id = g.winner_participant_id
		LEFT JOIN players pl ON pl.id = wp.player_id
		WHERE g.status = 'completed'
		ORDER BY g.completed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MatchHistoryEntry{}
	index := map[string]int{}
	for rows.Next() {
		var e MatchHistoryEntry
		if err := rows.Scan(&e.SessionID, &e.RollNumber, &e.WinnerName,
			&e.WinnerChance, &e.TotalPotMilli, &e.CompletedAt); err != nil {
			return nil, err
		}
		e.Participants = []Participant{}
		index[e.SessionID] = len(out)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	for _, e := range out {
		ids = append(ids, e.SessionID)
	}
	pRows, err := s.Pool.Query(ctx, `SELECT p.id, p.session_id, p.player_id,
			COALESCE(NULLIF(pl.username, ''), pl.first_name), COALESCE(pl.photo_url, ''),
			p.balance_milli, p.gift_value_milli, p.color, p.position_index, p.created_at
		FROM participants p
		JOIN players pl ON pl.id = p.player_id
		WHERE p.session_id = ANY($1)
		ORDER BY p.session_id, p.position_index ASC`, ids)
	if err != nil {
		return nil, err
	}
	defer pRows.Close()
	for pRows.Next() {
		var p Participant
		if err := pRows.Scan(&p.ID, &p.SessionID, &p.PlayerID, &p.PlayerName, &p.PhotoURL,
			&p.BalanceMilli, &p.GiftValueMilli, &p.Color, &p.PositionIndex, &p.CreatedAt); err != nil {
			return nil, err
		}
		if i, ok := index[p.SessionID]; ok {
			out[i].Participants = append(out[i].Participants, p)
		}
	}
	return out, pRows.Err()
}
