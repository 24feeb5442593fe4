package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const sessionColumns = `id, roll_number, status, seed_commitment, COALESCE(seed_reveal, ''),
	countdown_ends_at, COALESCE(winner_participant_id, ''), COALESCE(winner_chance, 0),
	COALESCE(total_pot_milli, 0), created_at, completed_at`

func scanSession(row pgx.Row) (*Session, error) {
	var sess Session
	err := row.Scan(&sess.ID, &sess.RollNumber, &sess.Status, &sess.SeedCommitment, &sess.SeedReveal,
		&sess.CountdownEndsAt, &sess.WinnerParticipantID, &sess.WinnerChance,
		&sess.TotalPotMilli, &sess.CreatedAt, &sess.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// CurrentSession returns the most recently created open session, or
// ErrNotFound when no round is in progress.
func (s *Store) CurrentSession(ctx context.Context) (*Session, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions
		WHERE status IN ('waiting','countdown')
		ORDER BY created_at DESC LIMIT 1`)
	return scanSession(row)
}

func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id)
	return scanSession(row)
}

func (s *Store) CreateSession(ctx context.Context, rollNumber int64, seedCommitment string) (string, error) {
	id := NewID()
	_, err := s.Pool.Exec(ctx, `INSERT INTO sessions (id, roll_number, status, seed_commitment)
		VALUES ($1,$2,'waiting',$3)`, id, rollNumber, seedCommitment)
	return id, err
}

// NextRollNumber returns the human-facing sequence number for a new round.
func (s *Store) NextRollNumber(ctx context.Context) (int64, error) {
	row := s.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(roll_number), 0) + 1 FROM sessions`)
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ReconcileDuplicateSessions demotes all open sessions except the newest to
// cancelled. Duplicates can only appear through operator error or a crash
// between create and adopt; the sweep keeps the invariant cheap to restore.
// Idempotent. Returns the number of sessions cancelled.
func (s *Store) ReconcileDuplicateSessions(ctx context.Context) (int, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE sessions SET status = 'cancelled'
		WHERE status IN ('waiting','countdown')
		AND id <> (
			SELECT id FROM sessions WHERE status IN ('waiting','countdown')
			ORDER BY created_at DESC LIMIT 1
		)`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// StartCountdown stamps the absolute deadline, but only when no deadline is
// already pending, so racing callers cannot push the deadline further out.
// Returns true when this call actually started the countdown.
func (s *Store) StartCountdown(ctx context.Context, id string, deadline time.Time) (bool, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE sessions SET countdown_ends_at = $2, status = 'countdown'
		WHERE id = $1 AND status IN ('waiting','countdown')
		AND (countdown_ends_at IS NULL OR countdown_ends_at <= now())`, id, deadline)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CancelSession voids a round without an outcome. Used when a draw turns
// out to be impossible, e.g. after operator edits emptied the pot.
func (s *Store) CancelSession(ctx context.Context, id string) error {
	_, err := s.Pool.Exec(ctx, `UPDATE sessions SET status = 'cancelled'
		WHERE id = $1 AND status <> 'completed'`, id)
	return err
}

// CompleteSession transitions the session to completed, stamps the outcome
// fields, reveals the draw seed, and bumps profile counters, all in one
// transaction. A second invocation finds status already completed and
// returns false without error.
func (s *Store) CompleteSession(ctx context.Context, id, winnerParticipantID string, winnerChance float64, totalPotMilli int64, seedReveal string) (bool, error) {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE sessions SET status = 'completed',
			winner_participant_id = $2, winner_chance = $3, total_pot_milli = $4,
			seed_reveal = $5, completed_at = now()
		WHERE id = $1 AND status <> 'completed'`,
		id, winnerParticipantID, winnerChance, totalPotMilli, seedReveal)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE players SET games_played = games_played + 1
		WHERE id IN (SELECT player_id FROM participants WHERE session_id = $1)`, id); err != nil {
		return false, err
	}
	if _, err := tx.Exec(ctx, `UPDATE players SET games_won = games_won + 1,
			total_won_milli = total_won_milli + $2
		WHERE id = (SELECT player_id FROM participants WHERE id = $1)`,
		winnerParticipantID, totalPotMilli); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
