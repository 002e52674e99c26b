package app

import (
	"sort"

	"qwirkle/internal/domain"
)

// Notifications diffs two aggregates and returns the events the messaging
// layer owes connected clients for that transition.
func Notifications(before, after domain.Game) []Event {
	var events []Event

	if !usersEqual(before.Users, after.Users) {
		events = append(events, Event{
			Kind:    EventUserList,
			Payload: UserListPayload{Users: sortedUsers(after.Users)},
		})
	}

	for _, id := range sortedHandIDs(after.Hands) {
		if handChanged(before.Hands[id], after.Hands[id], before.Started != after.Started) {
			events = append(events, Event{
				Kind:       EventUserHand,
				Payload:    UserHandPayload{UserID: id, Hand: after.Hands[id]},
				Recipients: []string{id},
			})
		}
	}

	if !before.Started && after.Started {
		events = append(events, Event{Kind: EventGameStarted, Payload: GameStartedPayload{}})
	}

	if tilesChanged(before, after) {
		events = append(events, Event{
			Kind: EventGameTiles,
			Payload: GameTilesPayload{
				Tiles:      after.Tiles,
				LastPlaced: after.LastPlaced,
			},
		})
	}

	if after.UserInControl != "" &&
		(before.UserInControl != after.UserInControl || before.TurnStartTime != after.TurnStartTime) {
		events = append(events, Event{
			Kind: EventUserInControl,
			Payload: UserInControlPayload{
				UserID:        after.UserInControl,
				TurnStartTime: after.TurnStartTime,
			},
		})
	}

	if !before.Over && after.Over {
		events = append(events, Event{Kind: EventGameOver, Payload: GameOverPayload{}})
	}

	return events
}

func usersEqual(a, b map[string]domain.UserWithStatus) bool {
	if len(a) != len(b) {
		return false
	}
	for id, u := range a {
		if b[id] != u {
			return false
		}
	}
	return true
}

func sortedUsers(users map[string]domain.UserWithStatus) []domain.UserWithStatus {
	out := make([]domain.UserWithStatus, 0, len(users))
	for _, u := range users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedHandIDs(hands map[string][]domain.Tile) []string {
	ids := make([]string, 0, len(hands))
	for id := range hands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func handChanged(before, after []domain.Tile, restarted bool) bool {
	if restarted {
		return true
	}
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}

func tilesChanged(before, after domain.Game) bool {
	if len(before.Tiles) != len(after.Tiles) || len(before.LastPlaced) != len(after.LastPlaced) {
		return true
	}
	for i := range before.Tiles {
		if before.Tiles[i] != after.Tiles[i] {
			return true
		}
	}
	for i := range before.LastPlaced {
		if before.LastPlaced[i] != after.LastPlaced[i] {
			return true
		}
	}
	return false
}
