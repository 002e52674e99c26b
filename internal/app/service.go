package app

import (
	"math/rand"
	"time"

	"qwirkle/internal/domain"
)

// HandSize is how many tiles a player holds when fully topped up.
const HandSize = 6

// MinPlayersToStart is the fewest seated players a game can start with.
const MinPlayersToStart = 2

// EmptyHandBonus is added to the move that empties a hand and ends the game.
const EmptyHandBonus = 6

// Service contains the game-state reducer. Every transition takes the
// current aggregate and returns a new one; the input is never mutated, and
// an invalid command returns the input unchanged rather than an error.
type Service struct {
	rng   *rand.Rand
	clock func() int64

	// FirstUser picks who opens a freshly started game. NextUser advances
	// the turn. Both default to the ascending-userId policies below.
	FirstUser func(domain.Game) string
	NextUser  func(domain.Game) string
}

// NewService constructs a Service with the provided rng and clock, or
// time-seeded/wall-clock defaults when nil.
func NewService(rng *rand.Rand, clock func() int64) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if clock == nil {
		clock = func() int64 { return time.Now().UnixMilli() }
	}
	return &Service{
		rng:       rng,
		clock:     clock,
		FirstUser: FirstUserInControl,
		NextUser:  NextUserInControl,
	}
}

// FirstUserInControl is the opening-turn policy: the lexicographically
// smallest player id. Tests depend on this being reproduced exactly.
func FirstUserInControl(g domain.Game) string {
	ids := g.PlayerIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// NextUserInControl advances circularly through players in ascending id
// order. When the current holder is missing from the list, control wraps to
// the first player; this wrap-on-missing keeps turns flowing if a player
// record disappears mid-game.
func NextUserInControl(g domain.Game) string {
	ids := g.PlayerIDs()
	if len(ids) == 0 {
		return ""
	}
	for i, id := range ids {
		if id == g.UserInControl {
			return ids[(i+1)%len(ids)]
		}
	}
	return ids[0]
}

// OnUserJoin upserts the joining user. A user first seen before the game
// starts becomes a player; anyone arriving later spectates unless they
// already held a seat from an earlier session of this game.
func (s *Service) OnUserJoin(g domain.Game, user domain.User) domain.Game {
	out := g.Clone()

	existing, known := out.Users[user.ID]
	userType := domain.Spectator
	score := 0
	if known {
		userType = existing.Type
		score = existing.Score
	} else if !out.Started && !out.Over && len(out.PlayerIDs()) < domain.MaxPlayers {
		userType = domain.Player
	}

	name := user.Name
	if name == "" && known {
		name = existing.Name
	}

	out.Users[user.ID] = domain.UserWithStatus{
		ID:     user.ID,
		Name:   name,
		Status: domain.Online,
		Type:   userType,
		Score:  score,
	}
	return out
}

// OnDisconnect marks the user offline. Unknown users are a no-op.
func (s *Service) OnDisconnect(g domain.Game, userID string) domain.Game {
	u, ok := g.Users[userID]
	if !ok {
		return g
	}
	out := g.Clone()
	u.Status = domain.Offline
	out.Users[userID] = u
	return out
}

// OnUpdateUsername renames the user. Unknown users are a no-op.
func (s *Service) OnUpdateUsername(g domain.Game, userID, name string) domain.Game {
	u, ok := g.Users[userID]
	if !ok {
		return g
	}
	out := g.Clone()
	u.Name = name
	out.Users[userID] = u
	return out
}

// OnStart resets to a fresh game seeded with the current users, deals six
// tiles to each player in ascending id order and hands control to the
// opening player. turnTimer is in millis; zero disables the turn clock.
func (s *Service) OnStart(g domain.Game, turnTimer int64) domain.Game {
	out := domain.NewGame()
	for id, u := range g.Users {
		u.Score = 0
		out.Users[id] = u
	}
	out.LastWrite = g.LastWrite

	bag := domain.FullBag(s.rng)
	for _, id := range out.PlayerIDs() {
		var hand []domain.Tile
		hand, bag = bag.Take(HandSize)
		out.Hands[id] = hand
	}
	out.Bag = bag

	out.Started = true
	out.TurnTimer = turnTimer
	out.TurnStartTime = s.clock()
	out.UserInControl = s.FirstUser(out)
	return out
}

// OnSwap exchanges the matching tiles in the user's hand for fresh draws,
// returning the removed tiles to the bag, then passes the turn. A user with
// no hand is a no-op.
func (s *Service) OnSwap(g domain.Game, userID string, toSwap []domain.Tile) domain.Game {
	hand, ok := g.Hands[userID]
	if !ok {
		return g
	}

	out := g.Clone()
	kept := domain.RemoveTiles(hand, toSwap)
	removed := domain.RemoveTiles(hand, kept)

	drawn, bag := out.Bag.Take(len(removed))
	bag = bag.Add(removed, s.rng)
	out.Bag = bag
	out.Hands[userID] = append(kept, drawn...)

	out.UserInControl = s.NextUser(out)
	out.TurnStartTime = s.clock()
	return out
}

// OnApplyTiles revalidates the placements against the board and, on
// success, commits them: the placed tiles leave the hand, replacements are
// drawn, the score (plus the end-game bonus when the hand empties) is added
// and the turn advances. On rejection the game comes back unchanged along
// with the rejection so the caller can tell the client why.
func (s *Service) OnApplyTiles(g domain.Game, userID string, placements []domain.PositionedTile) (domain.Game, domain.PlacementResult) {
	hand, ok := g.Hands[userID]
	if !ok {
		return g, nil
	}

	placed := make([]domain.Tile, len(placements))
	for i, pt := range placements {
		placed[i] = pt.Tile
	}
	// Tiles must come out of the hand or the 108-tile conservation breaks.
	if !domain.HandContains(hand, placed) {
		return g, nil
	}

	grid := domain.GridFromTiles(g.Tiles)
	result := grid.Place(placements)
	success, ok := result.(domain.Placed)
	if !ok {
		return g, result
	}

	out := g.Clone()
	kept := domain.RemoveTiles(hand, placed)
	drawn, bag := out.Bag.Take(len(placed))
	out.Bag = bag
	newHand := append(kept, drawn...)
	out.Hands[userID] = newHand

	out.Tiles = append(out.Tiles, placements...)
	out.LastPlaced = append([]domain.PositionedTile(nil), placements...)

	score := success.Score
	if len(newHand) == 0 {
		score += EmptyHandBonus
		out.Over = true
	}
	u := out.Users[userID]
	u.Score += score
	out.Users[userID] = u

	out.UserInControl = s.NextUser(out)
	out.TurnStartTime = s.clock()
	return out, result
}

// OnTurnTimeout passes the turn when the configured turn clock has expired.
// Returns the game unchanged when no timer is set, the game is not running,
// or the clock has not expired yet.
func (s *Service) OnTurnTimeout(g domain.Game) domain.Game {
	if !g.Started || g.Over || g.TurnTimer <= 0 || g.UserInControl == "" {
		return g
	}
	if s.clock() < g.TurnStartTime+g.TurnTimer {
		return g
	}
	out := g.Clone()
	out.UserInControl = s.NextUser(out)
	out.TurnStartTime = s.clock()
	return out
}
