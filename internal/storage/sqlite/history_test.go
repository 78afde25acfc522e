package sqlite

import (
	"context"
	"testing"

	"github.com/swasthya/sahayak/pkg/logger"
)

func newTestHistoryStorage(t *testing.T) *HistoryStorage {
	t.Helper()
	storage, err := NewHistoryStorage(newTestDB(t), logger.Nop())
	if err != nil {
		t.Fatalf("failed to create history storage: %v", err)
	}
	return storage
}

func TestHistoryStorage_SaveAndGetLatest(t *testing.T) {
	storage := newTestHistoryStorage(t)
	ctx := context.Background()

	turns := []struct{ role, text string }{
		{"user", "I have a headache"},
		{"assistant", "Rest in a dark room and drink water."},
		{"user", "What foods help with anemia?"},
		{"assistant", "Iron-rich foods such as spinach and lentils."},
	}
	for _, turn := range turns {
		if _, err := storage.SaveMessage(ctx, "user-1", turn.role, turn.text); err != nil {
			t.Fatal(err)
		}
	}

	records, err := storage.GetLatestByUser(ctx, "user-1", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(records))
	}
	// Newest first; same-second inserts fall back to ID ordering
	if records[0].Text != "Iron-rich foods such as spinach and lentils." {
		t.Errorf("expected the newest turn first, got %q", records[0].Text)
	}
	if records[1].Role != "user" {
		t.Errorf("expected the preceding user turn, got %q", records[1].Role)
	}
}

func TestHistoryStorage_UsersAreIsolated(t *testing.T) {
	storage := newTestHistoryStorage(t)
	ctx := context.Background()

	if _, err := storage.SaveMessage(ctx, "user-a", "user", "hello from a"); err != nil {
		t.Fatal(err)
	}
	if _, err := storage.SaveMessage(ctx, "user-b", "user", "hello from b"); err != nil {
		t.Fatal(err)
	}

	records, err := storage.GetLatestByUser(ctx, "user-a", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].Text != "hello from a" {
		t.Errorf("history leaked across users: %+v", records)
	}
}

func TestHistoryStorage_EmptyHistory(t *testing.T) {
	storage := newTestHistoryStorage(t)

	records, err := storage.GetLatestByUser(context.Background(), "nobody", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}
