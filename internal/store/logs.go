package store

import "context"

func (s *Store) AppendLog(ctx context.Context, sessionID, playerID, category, message string) error {
	var pid any
	if playerID != "" {
		pid = playerID
	}
	_, err := s.Pool.Exec(ctx, `INSERT INTO session_logs (id, session_id, player_id, category, message)
		VALUES ($1,$2,$3,$4,$5)`, NewID(), sessionID, pid, category, message)
	return err
}

func (s *Store) ListLogs(ctx context.Context, sessionID string, limit int) ([]SessionLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `SELECT id, session_id, COALESCE(player_id, ''), category, message, created_at
		FROM session_logs WHERE session_id = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SessionLog{}
	for rows.Next() {
		var l SessionLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.PlayerID, &l.Category, &l.Message, &l.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
