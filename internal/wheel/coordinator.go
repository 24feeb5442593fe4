package wheel

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"pvp-wheel/internal/config"
	"pvp-wheel/internal/game"
	"pvp-wheel/internal/store"

	"github.com/rs/zerolog/log"
)

// ErrStakeRequired rejects a join that puts nothing on the wheel.
var ErrStakeRequired = errors.New("stake_required")

const (
	retryAttempts     = 5
	retryInitialDelay = time.Second
	retryMaxDelay     = 10 * time.Second
	reconcileInterval = time.Minute
)

// Coordinator is the single authority over the wheel's session lifecycle.
// Every transition -- create, join, countdown start, draw, rollover -- runs
// through one mutex in one process, so the draw is computed exactly once and
// clients only ever observe store-confirmed state.
type Coordinator struct {
	store  *store.Store
	cfg    config.GameConfig
	buffer *EventBuffer

	mu        sync.Mutex
	session   *store.Session
	seed      []byte
	drawing   bool
	settledAt time.Time
}

func NewCoordinator(st *store.Store, cfg config.GameConfig) *Coordinator {
	if cfg.CountdownSeconds <= 0 {
		cfg.CountdownSeconds = 60
	}
	if cfg.MinParticipants < 2 {
		cfg.MinParticipants = 2
	}
	return &Coordinator{
		store:  st,
		cfg:    cfg,
		buffer: NewEventBuffer(500),
	}
}

func (c *Coordinator) Buffer() *EventBuffer {
	return c.buffer
}

// Start reconciles any stale rounds, adopts or creates the current one, and
// launches the sweep loop that drives timer-based transitions.
func (c *Coordinator) Start(ctx context.Context) error {
	if _, err := c.store.ReconcileDuplicateSessions(ctx); err != nil {
		return err
	}
	err := withRetry(ctx, retryAttempts, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.ensureSessionLocked(ctx)
	})
	if err != nil {
		return err
	}

	sweepEvery := time.Duration(c.cfg.SweepIntervalMS) * time.Millisecond
	if sweepEvery <= 0 {
		sweepEvery = 500 * time.Millisecond
	}
	sweepTicker := time.NewTicker(sweepEvery)
	reconcileTicker := time.NewTicker(reconcileInterval)
	go func() {
		defer sweepTicker.Stop()
		defer reconcileTicker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-sweepTicker.C:
				c.sweep(ctx, now)
			case <-reconcileTicker.C:
				if n, err := c.store.ReconcileDuplicateSessions(ctx); err != nil {
					log.Error().Err(err).Msg("reconcile sweep failed")
				} else if n > 0 {
					log.Warn().Int("cancelled", n).Msg("reconciled duplicate sessions")
				}
			}
		}
	}()
	return nil
}

// ensureSessionLocked adopts the open session from the store, or opens a new
// round when none exists. Callers hold c.mu.
func (c *Coordinator) ensureSessionLocked(ctx context.Context) error {
	if c.session != nil && c.session.Open() {
		return nil
	}
	if c.session != nil && c.session.Status == store.StatusCompleted {
		// Completed rounds stay current through the dwell window.
		return nil
	}
	sess, err := c.store.CurrentSession(ctx)
	if err == nil {
		// Adopted after a restart: the reveal secret is gone, the draw
		// falls back to a fresh random value.
		c.session = sess
		c.seed = nil
		c.drawing = false
		log.Info().Str("session_id", sess.ID).Int64("roll", sess.RollNumber).Msg("adopted open session")
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return c.openRoundLocked(ctx)
}

func (c *Coordinator) openRoundLocked(ctx context.Context) error {
	seed, commitment, err := newSeed()
	if err != nil {
		return err
	}
	roll, err := c.store.NextRollNumber(ctx)
	if err != nil {
		return err
	}
	id, err := c.store.CreateSession(ctx, roll, commitment)
	if err != nil {
		return err
	}
	sess, err := c.store.GetSession(ctx, id)
	if err != nil {
		return err
	}
	c.session = sess
	c.seed = seed
	c.drawing = false
	c.buffer.Append(EventSessionCreated, sess.ID, map[string]any{
		"roll_number":     sess.RollNumber,
		"seed_commitment": sess.SeedCommitment,
	})
	log.Info().Str("session_id", sess.ID).Int64("roll", roll).Msg("round opened")
	return nil
}

// Join enters a player into the current round. Stake validation, color and
// position assignment, the transactional store write, and the quorum-driven
// countdown start all happen under the coordinator lock.
func (c *Coordinator) Join(ctx context.Context, player *store.Player, req JoinRequest) (*JoinResponse, error) {
	if req.BalanceMilli < 0 {
		return nil, ErrStakeRequired
	}
	units := req.BalanceMilli
	for _, sel := range req.Gifts {
		if sel.Quantity < 0 {
			return nil, ErrStakeRequired
		}
		units += int64(sel.Quantity)
	}
	if units < 1 {
		return nil, ErrStakeRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureSessionLocked(ctx); err != nil {
		return nil, err
	}
	if !c.session.Open() || c.drawing {
		return nil, store.ErrSessionNotJoinable
	}
	sess := c.session

	position, err := c.store.CountParticipants(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	color := game.ColorFor(position)
	participant, err := c.store.AddParticipant(ctx, sess.ID, player.ID, req.BalanceMilli, req.Gifts, color, position)
	if err != nil {
		return nil, err
	}

	name := player.Username
	if name == "" {
		name = player.FirstName
	}
	msg := fmt.Sprintf("🎉 %s joined with %s TON!", name, formatMilli(participant.StakeMilli()))
	if err := c.store.AppendLog(ctx, sess.ID, player.ID, store.LogJoin, msg); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("append join log failed")
	}

	participants, err := c.store.ListParticipants(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	var pot int64
	for i := range participants {
		pot += participants[i].StakeMilli()
		if participants[i].ID == participant.ID {
			participant = &participants[i]
		}
	}
	c.buffer.Append(EventPlayerJoined, sess.ID, map[string]any{
		"participant":       participant,
		"participant_count": len(participants),
		"pot_milli":         pot,
	})

	if len(participants) >= c.cfg.MinParticipants {
		c.maybeStartCountdownLocked(ctx)
	}
	return &JoinResponse{
		Participant:      *participant,
		SessionID:        sess.ID,
		ParticipantCount: len(participants),
		PotMilli:         pot,
	}, nil
}

// maybeStartCountdownLocked starts the countdown once quorum is reached.
// Both the in-memory check and the store update are guarded against a
// deadline already in the future, so repeat calls never push it out.
func (c *Coordinator) maybeStartCountdownLocked(ctx context.Context) {
	sess := c.session
	now := time.Now()
	if remaining, active := sess.CountdownRemaining(now); active && remaining > 0 {
		return
	}
	duration := time.Duration(c.cfg.CountdownSeconds) * time.Second
	deadline := now.Add(duration)
	started, err := c.store.StartCountdown(ctx, sess.ID, deadline)
	if err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("start countdown failed")
		return
	}
	if !started {
		return
	}
	sess.Status = store.StatusCountdown
	sess.CountdownEndsAt = &deadline
	if err := c.store.AppendLog(ctx, sess.ID, "", store.LogInfo,
		fmt.Sprintf("⏱ Countdown started: %d seconds until the draw!", c.cfg.CountdownSeconds)); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("append countdown log failed")
	}
	c.buffer.Append(EventCountdownStarted, sess.ID, map[string]any{
		"ends_at":          deadline,
		"duration_seconds": c.cfg.CountdownSeconds,
	})
	log.Info().Str("session_id", sess.ID).Time("ends_at", deadline).Msg("countdown started")
}

// sweep drives every timer-based transition: countdown expiry triggers the
// draw, and a completed round rolls over to the next one after the dwell.
func (c *Coordinator) sweep(ctx context.Context, now time.Time) {
	c.mu.Lock()
	if err := c.ensureSessionLocked(ctx); err != nil {
		c.mu.Unlock()
		log.Error().Err(err).Msg("ensure session failed")
		return
	}
	sess := c.session
	switch {
	case sess.Status == store.StatusCountdown && !c.drawing:
		remaining, active := sess.CountdownRemaining(now)
		if !active || remaining > 0 {
			c.mu.Unlock()
			return
		}
		c.drawing = true
		seed := c.seed
		c.mu.Unlock()
		c.runDraw(ctx, sess.ID, seed)
	case sess.Status == store.StatusCompleted && now.Sub(c.settledAt) >= c.dwell():
		if err := c.openRoundLocked(ctx); err != nil {
			log.Error().Err(err).Msg("open next round failed")
		}
		c.mu.Unlock()
	default:
		c.mu.Unlock()
	}
}

func (c *Coordinator) dwell() time.Duration {
	if c.cfg.ResetDwellSecs <= 0 {
		return 8 * time.Second
	}
	return time.Duration(c.cfg.ResetDwellSecs) * time.Second
}

// runDraw computes the weighted draw once, from the latest participant
// snapshot, and persists the outcome with the revealed seed. Called with
// c.drawing already claimed, never concurrently.
func (c *Coordinator) runDraw(ctx context.Context, sessionID string, seed []byte) {
	if err := c.store.AppendLog(ctx, sessionID, "", store.LogDrawStart, "🎰 The wheel is spinning... good luck!"); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("append draw log failed")
	}
	c.buffer.Append(EventDrawStarted, sessionID, map[string]any{})

	var participants []store.Participant
	err := withRetry(ctx, retryAttempts, func() error {
		var err error
		participants, err = c.store.ListParticipants(ctx, sessionID)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("load participants for draw failed")
		c.clearDrawing()
		return
	}

	entries := make([]game.Entry, 0, len(participants))
	for i := range participants {
		entries = append(entries, game.Entry{ID: participants[i].ID, StakeMilli: participants[i].StakeMilli()})
	}
	r := cryptoRandUnit()
	reveal := ""
	if seed != nil {
		r = randUnitFromSeed(seed)
		reveal = hex.EncodeToString(seed)
	}
	result, err := game.Select(entries, func() float64 { return r })
	if err != nil {
		// Below quorum or nothing staked: cannot happen through Join, only
		// through operator edits. Cancel the round and move on.
		log.Error().Err(err).Str("session_id", sessionID).Msg("draw failed, cancelling round")
		if cancelErr := c.store.CancelSession(ctx, sessionID); cancelErr != nil {
			log.Error().Err(cancelErr).Str("session_id", sessionID).Msg("cancel round failed")
		}
		c.resetRound(time.Now())
		return
	}

	var completed bool
	err = withRetry(ctx, retryAttempts, func() error {
		var err error
		completed, err = c.store.CompleteSession(ctx, sessionID, result.WinnerID, result.Chance, result.TotalMilli, reveal)
		return err
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("complete session failed")
		c.clearDrawing()
		return
	}

	metricDrawsTotal.Add(1)
	winnerName := ""
	winnerPlayerID := ""
	for i := range participants {
		if participants[i].ID == result.WinnerID {
			winnerName = participants[i].PlayerName
			winnerPlayerID = participants[i].PlayerID
		}
	}
	if completed {
		msg := fmt.Sprintf("🎉 %s won %s TON with a %.1f%% chance!",
			winnerName, formatMilli(result.TotalMilli), result.Chance*100)
		if err := c.store.AppendLog(ctx, sessionID, winnerPlayerID, store.LogWinner, msg); err != nil {
			log.Error().Err(err).Str("session_id", sessionID).Msg("append winner log failed")
		}
	}
	c.buffer.Append(EventWinnerAnnounced, sessionID, map[string]any{
		"winner_participant_id": result.WinnerID,
		"winner_name":           winnerName,
		"winner_chance":         result.Chance,
		"total_pot_milli":       result.TotalMilli,
		"seed_reveal":           reveal,
	})
	log.Info().Str("session_id", sessionID).Str("winner", result.WinnerID).
		Float64("chance", result.Chance).Int64("pot_milli", result.TotalMilli).Msg("round completed")

	now := time.Now()
	c.mu.Lock()
	if c.session != nil && c.session.ID == sessionID {
		c.session.Status = store.StatusCompleted
		c.session.WinnerParticipantID = result.WinnerID
		c.session.WinnerChance = result.Chance
		c.session.TotalPotMilli = result.TotalMilli
		c.session.SeedReveal = reveal
		c.session.CompletedAt = &now
	}
	c.settledAt = now
	c.drawing = false
	c.mu.Unlock()
}

func (c *Coordinator) clearDrawing() {
	c.mu.Lock()
	c.drawing = false
	c.mu.Unlock()
}

func (c *Coordinator) resetRound(now time.Time) {
	c.mu.Lock()
	c.session = nil
	c.seed = nil
	c.drawing = false
	c.settledAt = now
	c.mu.Unlock()
}

// State assembles the full snapshot clients resync from: the session row,
// the complete participant list, the pot, and the countdown remaining
// derived from the absolute deadline.
func (c *Coordinator) State(ctx context.Context) (*StateSnapshot, error) {
	c.mu.Lock()
	if err := c.ensureSessionLocked(ctx); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	sess := *c.session
	c.mu.Unlock()

	participants, err := c.store.ListParticipants(ctx, sess.ID)
	if err != nil {
		return nil, err
	}
	var pot int64
	for i := range participants {
		pot += participants[i].StakeMilli()
	}
	snap := &StateSnapshot{
		Session:      sess,
		Participants: participants,
		PotMilli:     pot,
		ServerTS:     time.Now().UnixMilli(),
	}
	if remaining, active := sess.CountdownRemaining(time.Now()); active {
		secs := int64(remaining / time.Second)
		snap.CountdownRemaining = &secs
	}
	return snap, nil
}

// CurrentSessionID returns the id of the round clients should scope their
// reads to, or empty when none is loaded yet.
func (c *Coordinator) CurrentSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return ""
	}
	return c.session.ID
}

// Reconcile runs the duplicate-session sweep and re-adopts whichever open
// session survived it.
func (c *Coordinator) Reconcile(ctx context.Context) (int, error) {
	n, err := c.store.ReconcileDuplicateSessions(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		c.mu.Lock()
		if c.session != nil && c.session.Open() {
			if sess, err := c.store.GetSession(ctx, c.session.ID); err == nil {
				c.session = sess
			}
		}
		c.mu.Unlock()
	}
	return n, nil
}

func formatMilli(v int64) string {
	return fmt.Sprintf("%d.%03d", v/1000, v%1000)
}

func withRetry(ctx context.Context, attempts int, fn func() error) error {
	delay := retryInitialDelay
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}
	return err
}
