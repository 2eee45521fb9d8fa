package domain

import "testing"

func TestValidComposition_RequiresExactCoverage(t *testing.T) {
	aliveSeats := []Seat{0, 1, 2}
	if err := validComposition(aliveSeats, []CardType{CardSafe, CardDoom}); err != ErrMissingAssignments {
		t.Fatalf("want ErrMissingAssignments, got %v", err)
	}
}

func TestValidComposition_RequiresAtLeastOneOfEach(t *testing.T) {
	aliveSeats := []Seat{0, 1, 2}
	if err := validComposition(aliveSeats, []CardType{CardSafe, CardSafe, CardSafe}); err != ErrInvalidComposition {
		t.Fatalf("want ErrInvalidComposition for all-SAFE, got %v", err)
	}
	if err := validComposition(aliveSeats, []CardType{CardDoom, CardDoom, CardDoom}); err != ErrInvalidComposition {
		t.Fatalf("want ErrInvalidComposition for all-DOOM, got %v", err)
	}
}

func TestValidComposition_RejectsUnknownCardType(t *testing.T) {
	aliveSeats := []Seat{0, 1}
	if err := validComposition(aliveSeats, []CardType{CardSafe, CardType("WILD")}); err != ErrInvalidComposition {
		t.Fatalf("want ErrInvalidComposition, got %v", err)
	}
}

func TestValidComposition_AcceptsMinimalMix(t *testing.T) {
	aliveSeats := []Seat{0, 1}
	if err := validComposition(aliveSeats, []CardType{CardSafe, CardDoom}); err != nil {
		t.Fatalf("want valid, got %v", err)
	}
}

func TestSynthesizeComposition_AlwaysSatisfiesConstraint(t *testing.T) {
	aliveSeats := []Seat{0, 1, 2, 3, 4}
	for i := 0; i < 20; i++ {
		mapping := synthesizeComposition(aliveSeats)
		if len(mapping) != len(aliveSeats) {
			t.Fatalf("synthesized mapping must cover every alive seat, got %d of %d", len(mapping), len(aliveSeats))
		}
		var safe, doom int
		for _, s := range aliveSeats {
			switch mapping[s] {
			case CardSafe:
				safe++
			case CardDoom:
				doom++
			default:
				t.Fatalf("seat %d has no valid card in synthesized mapping", s)
			}
		}
		if safe < 1 || doom < 1 {
			t.Fatalf("synthesized mapping must contain both card types, got %d safe / %d doom", safe, doom)
		}
	}
}

func TestSynthesizeComposition_EmptyAliveSeats(t *testing.T) {
	mapping := synthesizeComposition(nil)
	if len(mapping) != 0 {
		t.Fatalf("want empty mapping for no alive seats, got %v", mapping)
	}
}
