package hospitals

import (
	"context"
	"testing"

	"github.com/swasthya/sahayak/pkg/logger"
)

func TestStaticProvider_FindNearby(t *testing.T) {
	provider := NewStaticProvider(logger.Nop())

	facilities, err := provider.FindNearby(context.Background(), "Ruralville")
	if err != nil {
		t.Fatal(err)
	}
	if len(facilities) != 3 {
		t.Fatalf("expected three facilities, got %d", len(facilities))
	}
	if facilities[0].Name != "Community Health Center" || facilities[0].Phone != "555-0101" {
		t.Errorf("unexpected first facility: %+v", facilities[0])
	}

	// Location text does not change the static result
	other, err := provider.FindNearby(context.Background(), "12.9716,77.5946")
	if err != nil {
		t.Fatal(err)
	}
	if len(other) != len(facilities) {
		t.Errorf("result varies by location: %d vs %d", len(other), len(facilities))
	}
}

func TestStaticProvider_CallersCannotMutateFixture(t *testing.T) {
	provider := NewStaticProvider(logger.Nop())

	first, _ := provider.FindNearby(context.Background(), "")
	first[0].Name = "Mutated"

	second, _ := provider.FindNearby(context.Background(), "")
	if second[0].Name != "Community Health Center" {
		t.Errorf("fixture was mutated through a returned slice: %q", second[0].Name)
	}
}

func TestStaticProvider_HonorsContextCancellation(t *testing.T) {
	provider := NewStaticProvider(logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := provider.FindNearby(ctx, "anywhere"); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
