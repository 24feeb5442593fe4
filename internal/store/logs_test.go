package store

import (
	"fmt"
	"testing"
)

func TestAppendAndListLogs(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	sess := mustCreateSession(t, st, ctx, 1)
	player := mustCreatePlayer(t, st, ctx, 800, "alice")

	if err := st.AppendLog(ctx, sess.ID, player.ID, LogJoin, "alice joined"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := st.AppendLog(ctx, sess.ID, "", LogInfo, "countdown started"); err != nil {
		t.Fatalf("append system log: %v", err)
	}

	logs, err := st.ListLogs(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	// Newest first.
	if logs[0].Category != LogInfo || logs[0].PlayerID != "" {
		t.Fatalf("unexpected head entry: %+v", logs[0])
	}
	if logs[1].Category != LogJoin || logs[1].PlayerID != player.ID {
		t.Fatalf("unexpected tail entry: %+v", logs[1])
	}
}

func TestListLogsAppliesLimit(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	sess := mustCreateSession(t, st, ctx, 1)
	for i := 0; i < 25; i++ {
		if err := st.AppendLog(ctx, sess.ID, "", LogInfo, fmt.Sprintf("entry %d", i)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	logs, err := st.ListLogs(ctx, sess.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 20 {
		t.Fatalf("default limit returned %d, want 20", len(logs))
	}
	logs, err = st.ListLogs(ctx, sess.ID, 5)
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(logs) != 5 {
		t.Fatalf("limit 5 returned %d", len(logs))
	}
	if logs[0].Message != "entry 24" {
		t.Fatalf("head = %q, want newest entry", logs[0].Message)
	}
}
