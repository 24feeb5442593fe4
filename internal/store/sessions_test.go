package store

import (
	"errors"
	"testing"
	"time"
)

func TestCurrentSessionPicksNewestOpen(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if _, err := st.CurrentSession(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty db: err = %v, want ErrNotFound", err)
	}

	first := mustCreateSession(t, st, ctx, 1)
	time.Sleep(10 * time.Millisecond)
	second := mustCreateSession(t, st, ctx, 2)

	got, err := st.CurrentSession(ctx)
	if err != nil {
		t.Fatalf("current session: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("current = %s, want newest %s", got.ID, second.ID)
	}
	_ = first
}

func TestReconcileDuplicateSessionsKeepsNewest(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	old1 := mustCreateSession(t, st, ctx, 1)
	time.Sleep(10 * time.Millisecond)
	old2 := mustCreateSession(t, st, ctx, 2)
	time.Sleep(10 * time.Millisecond)
	newest := mustCreateSession(t, st, ctx, 3)

	n, err := st.ReconcileDuplicateSessions(ctx)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if n != 2 {
		t.Fatalf("cancelled %d sessions, want 2", n)
	}
	for _, id := range []string{old1.ID, old2.ID} {
		sess, err := st.GetSession(ctx, id)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		if sess.Status != StatusCancelled {
			t.Fatalf("session %s status = %s, want cancelled", id, sess.Status)
		}
	}
	sess, err := st.GetSession(ctx, newest.ID)
	if err != nil {
		t.Fatalf("get newest: %v", err)
	}
	if sess.Status != StatusWaiting {
		t.Fatalf("newest status = %s, want waiting", sess.Status)
	}

	// A second pass finds nothing to fix.
	n, err = st.ReconcileDuplicateSessions(ctx)
	if err != nil {
		t.Fatalf("reconcile again: %v", err)
	}
	if n != 0 {
		t.Fatalf("second pass cancelled %d sessions, want 0", n)
	}
}

func TestStartCountdownDoesNotExtendDeadline(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	sess := mustCreateSession(t, st, ctx, 1)
	first := time.Now().Add(time.Minute)
	started, err := st.StartCountdown(ctx, sess.ID, first)
	if err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	if !started {
		t.Fatal("first start should win")
	}

	started, err = st.StartCountdown(ctx, sess.ID, time.Now().Add(2*time.Minute))
	if err != nil {
		t.Fatalf("restart countdown: %v", err)
	}
	if started {
		t.Fatal("pending deadline must not be replaced")
	}

	got, err := st.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Status != StatusCountdown || got.CountdownEndsAt == nil {
		t.Fatalf("status = %s, ends_at = %v", got.Status, got.CountdownEndsAt)
	}
	if got.CountdownEndsAt.Sub(first).Abs() > time.Second {
		t.Fatalf("deadline drifted: %v vs %v", got.CountdownEndsAt, first)
	}
}

func TestNextRollNumberIncrements(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	n, err := st.NextRollNumber(ctx)
	if err != nil {
		t.Fatalf("next roll: %v", err)
	}
	if n != 1 {
		t.Fatalf("first roll = %d, want 1", n)
	}
	mustCreateSession(t, st, ctx, 41)
	n, err = st.NextRollNumber(ctx)
	if err != nil {
		t.Fatalf("next roll: %v", err)
	}
	if n != 42 {
		t.Fatalf("roll after 41 = %d, want 42", n)
	}
}

func TestCompleteSessionOnceAndCounters(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	sess := mustCreateSession(t, st, ctx, 1)
	alice := mustCreatePlayer(t, st, ctx, 101, "alice")
	bob := mustCreatePlayer(t, st, ctx, 102, "bob")
	pa, err := st.AddParticipant(ctx, sess.ID, alice.ID, 1000, nil, "#FF6B6B", 0)
	if err != nil {
		t.Fatalf("add alice: %v", err)
	}
	if _, err := st.AddParticipant(ctx, sess.ID, bob.ID, 3000, nil, "#4ECDC4", 1); err != nil {
		t.Fatalf("add bob: %v", err)
	}

	done, err := st.CompleteSession(ctx, sess.ID, pa.ID, 0.25, 4000, "reveal-hex")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !done {
		t.Fatal("first completion should apply")
	}

	done, err = st.CompleteSession(ctx, sess.ID, pa.ID, 0.25, 4000, "reveal-hex")
	if err != nil {
		t.Fatalf("complete again: %v", err)
	}
	if done {
		t.Fatal("second completion must be a no-op")
	}

	got, err := st.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Status != StatusCompleted || got.WinnerParticipantID != pa.ID {
		t.Fatalf("unexpected session: %+v", got)
	}
	if got.TotalPotMilli != 4000 || got.WinnerChance != 0.25 || got.SeedReveal != "reveal-hex" {
		t.Fatalf("outcome fields: %+v", got)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not stamped")
	}

	aliceAfter, err := st.GetPlayer(ctx, alice.ID)
	if err != nil {
		t.Fatalf("get alice: %v", err)
	}
	if aliceAfter.GamesPlayed != 1 || aliceAfter.GamesWon != 1 || aliceAfter.TotalWonMilli != 4000 {
		t.Fatalf("alice counters: %+v", aliceAfter)
	}
	bobAfter, err := st.GetPlayer(ctx, bob.ID)
	if err != nil {
		t.Fatalf("get bob: %v", err)
	}
	if bobAfter.GamesPlayed != 1 || bobAfter.GamesWon != 0 || bobAfter.TotalWonMilli != 0 {
		t.Fatalf("bob counters: %+v", bobAfter)
	}

	// The settled session no longer accepts joins.
	carol := mustCreatePlayer(t, st, ctx, 103, "carol")
	if _, err := st.AddParticipant(ctx, sess.ID, carol.ID, 100, nil, "#45B7D1", 2); !errors.Is(err, ErrSessionNotJoinable) {
		t.Fatalf("join settled: err = %v, want ErrSessionNotJoinable", err)
	}
}

func TestCountdownRemainingDerivesFromDeadline(t *testing.T) {
	now := time.Now()
	deadline := now.Add(60 * time.Second)
	sess := &Session{Status: StatusCountdown, CountdownEndsAt: &deadline}

	if _, active := (&Session{Status: StatusWaiting}).CountdownRemaining(now); active {
		t.Fatal("no deadline should mean no countdown")
	}
	left, active := sess.CountdownRemaining(now)
	if !active || left != 60*time.Second {
		t.Fatalf("remaining = %v active = %v", left, active)
	}

	// A reader arriving 5 seconds late sees 55, not a fresh 60.
	left, _ = sess.CountdownRemaining(now.Add(5 * time.Second))
	if left != 55*time.Second {
		t.Fatalf("remaining after 5s = %v, want 55s", left)
	}
	left, _ = sess.CountdownRemaining(now.Add(2 * time.Minute))
	if left != 0 {
		t.Fatalf("remaining past deadline = %v, want 0", left)
	}
}
