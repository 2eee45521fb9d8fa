package domain

import (
	"crypto/rand"
	"math/big"
	"sort"
)

// Seat is a 0-based dense index identifying a player within a room. A
// member keeps its seat number for as long as it stays in the room; once
// the member leaves, smallestFreeSeat can hand that number to a later
// joiner.
type Seat = int

// smallestFreeSeat returns the smallest non-negative integer not present
// in taken.
func smallestFreeSeat(taken map[Seat]bool) Seat {
	for s := 0; ; s++ {
		if !taken[s] {
			return s
		}
	}
}

// sortedSeats returns a new, ascending-sorted copy of seats.
func sortedSeats(seats map[Seat]bool) []Seat {
	out := make([]Seat, 0, len(seats))
	for s, in := range seats {
		if in {
			out = append(out, s)
		}
	}
	sort.Ints(out)
	return out
}

// nextAliveSeatClockwise returns the smallest alive seat strictly greater
// than from, wrapping to the smallest alive seat overall. aliveSeats must
// be sorted ascending. ok is false iff aliveSeats is empty.
func nextAliveSeatClockwise(aliveSeats []Seat, from Seat) (seat Seat, ok bool) {
	if len(aliveSeats) == 0 {
		return 0, false
	}
	for _, s := range aliveSeats {
		if s > from {
			return s, true
		}
	}
	return aliveSeats[0], true
}

// randomSeat picks a uniformly random seat from candidates using a
// cryptographically reasonable source. Panics if candidates is empty.
func randomSeat(candidates []Seat) Seat {
	n := big.NewInt(int64(len(candidates)))
	idx, err := rand.Int(rand.Reader, n)
	if err != nil {
		// crypto/rand failure is effectively unrecoverable; fall back to
		// the first candidate rather than crash the room.
		return candidates[0]
	}
	return candidates[idx.Int64()]
}

// randomDistinctSeats picks k distinct seats uniformly at random from
// candidates without replacement. If k >= len(candidates), returns all of
// them.
func randomDistinctSeats(candidates []Seat, k int) []Seat {
	pool := make([]Seat, len(candidates))
	copy(pool, candidates)
	if k >= len(pool) {
		return pool
	}
	chosen := make([]Seat, 0, k)
	for i := 0; i < k; i++ {
		n := big.NewInt(int64(len(pool)))
		idx, err := rand.Int(rand.Reader, n)
		var j int64
		if err == nil {
			j = idx.Int64()
		}
		chosen = append(chosen, pool[j])
		pool = append(pool[:j], pool[j+1:]...)
	}
	return chosen
}

func containsSeat(seats []Seat, s Seat) bool {
	for _, x := range seats {
		if x == s {
			return true
		}
	}
	return false
}
