package store

import "testing"

func TestGetOrCreatePlayerUpsertsProfile(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	p1, err := st.GetOrCreatePlayer(ctx, TelegramProfile{TelegramID: 500, Username: "old_name", FirstName: "Old"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	p2, err := st.GetOrCreatePlayer(ctx, TelegramProfile{TelegramID: 500, Username: "new_name", FirstName: "New", IsPremium: true})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p2.ID != p1.ID {
		t.Fatalf("upsert created a second row: %s vs %s", p1.ID, p2.ID)
	}
	if p2.Username != "new_name" || !p2.IsPremium {
		t.Fatalf("profile not refreshed: %+v", p2)
	}
}

func TestGetOrCreatePlayerFallsBackToFirstName(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	p, err := st.GetOrCreatePlayer(ctx, TelegramProfile{TelegramID: 501, FirstName: "Anon"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Username != "Anon" {
		t.Fatalf("username = %q, want first name fallback", p.Username)
	}
}

func TestListPlayersPagination(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	for i := int64(0); i < 5; i++ {
		mustCreatePlayer(t, st, ctx, 600+i, "player")
	}
	page, err := st.ListPlayers(ctx, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("page size = %d, want 2", len(page))
	}
	rest, err := st.ListPlayers(ctx, 10, 2)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(rest) != 3 {
		t.Fatalf("remaining = %d, want 3", len(rest))
	}
}
