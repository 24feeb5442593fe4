package store

import "context"

// EnsureDefaultGifts seeds the catalog on first boot. Values are milliTON.
func (s *Store) EnsureDefaultGifts(ctx context.Context) error {
	row := s.Pool.QueryRow(ctx, `SELECT COUNT(1) FROM gifts`)
	var c int
	if err := row.Scan(&c); err != nil {
		return err
	}
	if c > 0 {
		return nil
	}
	defaults := []Gift{
		{Name: "Heart", Emoji: "❤️", BaseValueMilli: 10, Rarity: "common"},
		{Name: "Teddy", Emoji: "🧸", BaseValueMilli: 25, Rarity: "common"},
		{Name: "Gift Box", Emoji: "🎁", BaseValueMilli: 50, Rarity: "common"},
		{Name: "Rose", Emoji: "🌹", BaseValueMilli: 100, Rarity: "rare"},
		{Name: "Trophy", Emoji: "🏆", BaseValueMilli: 250, Rarity: "rare"},
		{Name: "Ring", Emoji: "💍", BaseValueMilli: 500, Rarity: "epic"},
		{Name: "Diamond", Emoji: "💎", BaseValueMilli: 1000, Rarity: "legendary"},
	}
	for _, g := range defaults {
		_, err := s.Pool.Exec(ctx, `INSERT INTO gifts (id, name, emoji, base_value_milli, rarity, is_active)
			VALUES ($1,$2,$3,$4,$5,true)`, NewID(), g.Name, g.Emoji, g.BaseValueMilli, g.Rarity)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListGifts(ctx context.Context) ([]Gift, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, emoji, base_value_milli, rarity, is_active
		FROM gifts WHERE is_active ORDER BY base_value_milli ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Gift{}
	for rows.Next() {
		var g Gift
		if err := rows.Scan(&g.ID, &g.Name, &g.Emoji, &g.BaseValueMilli, &g.Rarity, &g.IsActive); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) ListPlayerInventory(ctx context.Context, playerID string) ([]InventoryItem, error) {
	rows, err := s.Pool.Query(ctx, `SELECT g.id, g.name, g.emoji, g.base_value_milli, pg.quantity
		FROM player_gifts pg
		JOIN gifts g ON g.id = pg.gift_id
		WHERE pg.player_id = $1 AND pg.quantity > 0
		ORDER BY g.base_value_milli ASC`, playerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []InventoryItem{}
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.GiftID, &it.Name, &it.Emoji, &it.BaseValueMilli, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// CreditGift records an inventory credit after an operator confirms an
// out-of-band deposit. The transfer itself happens in chat; only the
// resulting credit is stored.
func (s *Store) CreditGift(ctx context.Context, playerID, giftID string, quantity int) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO player_gifts (id, player_id, gift_id, quantity)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (player_id, gift_id) DO UPDATE SET quantity = player_gifts.quantity + EXCLUDED.quantity`,
		NewID(), playerID, giftID, quantity)
	return err
}
