package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// TelegramProfile is the one-shot identity input from the Mini-App handshake.
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
	IsPremium  bool
}

const playerColumns = `id, telegram_id, username, COALESCE(first_name, ''), COALESCE(last_name, ''),
	COALESCE(photo_url, ''), is_premium, games_played, games_won, total_won_milli, created_at`

func scanPlayer(row pgx.Row) (*Player, error) {
	var p Player
	err := row.Scan(&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName,
		&p.PhotoURL, &p.IsPremium, &p.GamesPlayed, &p.GamesWon, &p.TotalWonMilli, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetOrCreatePlayer resolves a Telegram identity to a player profile,
// creating it on first sight. The upsert keeps display attributes current
// without touching the aggregate counters.
func (s *Store) GetOrCreatePlayer(ctx context.Context, tg TelegramProfile) (*Player, error) {
	username := tg.Username
	if username == "" {
		username = tg.FirstName
	}
	row := s.Pool.QueryRow(ctx, `INSERT INTO players
			(id, telegram_id, username, first_name, last_name, photo_url, is_premium)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			photo_url = EXCLUDED.photo_url,
			is_premium = EXCLUDED.is_premium
		RETURNING `+playerColumns,
		NewID(), tg.TelegramID, username, tg.FirstName, tg.LastName, tg.PhotoURL, tg.IsPremium)
	return scanPlayer(row)
}

func (s *Store) GetPlayer(ctx context.Context, id string) (*Player, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (s *Store) ListPlayers(ctx context.Context, limit, offset int) ([]Player, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+playerColumns+` FROM players
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Player{}
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName,
			&p.PhotoURL, &p.IsPremium, &p.GamesPlayed, &p.GamesWon, &p.TotalWonMilli, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
