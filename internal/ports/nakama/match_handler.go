package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"qwirkle/internal/app"
	"qwirkle/internal/config"
	"qwirkle/internal/domain"
	"qwirkle/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// matchLabel is advertised for quick-game queries.
type matchLabel struct {
	Open    bool   `json:"open"`
	Game    string `json:"game"`
	Started bool   `json:"started"`
}

// MatchState holds the per-match runtime state. The authoritative aggregate
// lives in storage; Game is only the last snapshot this handler read or
// wrote, used to diff notifications and to drive the turn clock.
type MatchState struct {
	GameKey   string
	Presences map[string]runtime.Presence
	Game      domain.Game
	// TurnTimerMillis is the clock applied when a game is started without
	// an explicit override.
	TurnTimerMillis int64
}

type matchHandler struct {
	svc      *app.Service
	store    ports.GameStore
	retryCap int
}

// newMatchHandler wires a handler around the given store; tests inject the
// in-memory store here.
func newMatchHandler(store ports.GameStore, svc *app.Service, retryCap int) *matchHandler {
	if svc == nil {
		svc = app.NewService(nil, nil)
	}
	if retryCap <= 0 {
		retryCap = config.PersistRetryCap()
	}
	return &matchHandler{svc: svc, store: store, retryCap: retryCap}
}

// MatchInit sets up the per-match state. The match id doubles as the game
// key, so the persisted document and the real-time match share identity.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	gameKey, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	if err := config.LoadGameConfig("data/game_config.json"); err != nil {
		logger.Warn("MatchInit: could not load game config: %v", err)
	}

	turnTimerSec := config.TurnTimerSeconds()
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if val, ok := env["qwirkle_turn_timer_sec"]; ok {
			if i, err := strconv.Atoi(val); err == nil {
				turnTimerSec = i
			}
		}
	}

	state := &MatchState{
		GameKey:         gameKey,
		Presences:       make(map[string]runtime.Presence),
		Game:            domain.NewGame(),
		TurnTimerMillis: int64(turnTimerSec) * 1000,
	}

	labelBytes, err := json.Marshal(matchLabel{Open: true, Game: "qwirkle"})
	if err != nil {
		logger.Error("MatchInit: failed to marshal label: %v", err)
		return nil, 0, ""
	}

	tickRate := 1
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt admits everyone: users joining a running game become
// spectators rather than being turned away.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	if _, ok := state.(*MatchState); !ok {
		return state, false, "state not found"
	}
	return state, true, ""
}

// MatchJoin runs the join transition for each presence and broadcasts the
// resulting notifications.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	for _, p := range presences {
		matchState.Presences[p.GetUserId()] = p
		user := domain.User{ID: p.GetUserId(), Name: p.GetUsername()}
		err := mh.runCommand(ctx, matchState, dispatcher, logger, func(g domain.Game) domain.Game {
			return mh.svc.OnUserJoin(g, user)
		})
		if err != nil {
			logger.Error("MatchJoin: failed to apply join for %s: %v", p.GetUserId(), err)
		}
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLeave marks leavers offline. The match stays alive for rejoins while
// a started game is unfinished, even with nobody connected.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchLeave: state not found")
		return state
	}

	for _, p := range presences {
		delete(matchState.Presences, p.GetUserId())
		userID := p.GetUserId()
		err := mh.runCommand(ctx, matchState, dispatcher, logger, func(g domain.Game) domain.Game {
			return mh.svc.OnDisconnect(g, userID)
		})
		if err != nil {
			logger.Error("MatchLeave: failed to apply disconnect for %s: %v", userID, err)
		}
	}

	if len(matchState.Presences) == 0 && (!matchState.Game.Started || matchState.Game.Over) {
		logger.Info("MatchLeave: terminating empty match %s", matchState.GameKey)
		return nil
	}

	mh.updateLabel(matchState, dispatcher, logger)
	return matchState
}

// MatchLoop dispatches inbound commands and drives the turn clock.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	matchState, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, msg := range messages {
		switch msg.GetOpCode() {
		case OpStartGame:
			mh.handleStartGame(ctx, matchState, dispatcher, logger, msg)
		case OpSwapTiles:
			mh.handleSwapTiles(ctx, matchState, dispatcher, logger, msg)
		case OpApplyTiles:
			mh.handleApplyTiles(ctx, matchState, dispatcher, logger, msg)
		case OpSetUsername:
			mh.handleSetUsername(ctx, matchState, dispatcher, logger, msg)
		default:
			logger.Warn("MatchLoop: unknown opcode received: %d", msg.GetOpCode())
		}
	}

	mh.checkTurnTimeout(ctx, matchState, dispatcher, logger)

	return matchState
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, reason int) interface{} {
	logger.Debug("MatchTerminate: match terminated for reason %d", reason)
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

// runCommand executes one reducer transition against the authoritative
// stored aggregate with the read-recompute-retry loop: a losing persist is
// not an error, it just means re-reading and re-applying against the fresh
// snapshot. Transitions that leave the game unchanged skip the write.
func (mh *matchHandler) runCommand(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, transition func(domain.Game) domain.Game) error {
	before := state.Game
	for attempt := 0; attempt <= mh.retryCap; attempt++ {
		after := transition(before)
		if after.Equal(before) {
			state.Game = before
			return nil
		}

		result, err := mh.store.Persist(ctx, state.GameKey, after)
		if err != nil {
			return err
		}
		if result.Committed {
			after.LastWrite = result.NewVersion
			mh.broadcast(state, dispatcher, logger, app.Notifications(before, after))
			state.Game = after
			return nil
		}

		// A concurrent writer won this version; reload and recompute.
		fresh, err := mh.store.Get(ctx, state.GameKey)
		if errors.Is(err, ports.ErrNotFound) {
			fresh = domain.NewGame()
		} else if err != nil {
			return err
		}
		logger.Debug("runCommand: persist conflict on %s, retrying (attempt %d)", state.GameKey, attempt+1)
		before = fresh
		state.Game = fresh
	}
	return ports.ErrRetriesExhausted
}

func (mh *matchHandler) handleStartGame(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request startGameRequest
	if len(msg.GetData()) > 0 {
		if err := json.Unmarshal(msg.GetData(), &request); err != nil {
			logger.Warn("StartGame: invalid request from %s: %v", senderID, err)
			return
		}
	}

	user, known := state.Game.Users[senderID]
	if !known || user.Type != domain.Player {
		logger.Warn("StartGame: %s is not a seated player", senderID)
		return
	}
	if state.Game.Started && !state.Game.Over {
		logger.Warn("StartGame: %s tried to start a running game", senderID)
		return
	}
	if len(state.Game.PlayerIDs()) < app.MinPlayersToStart {
		logger.Warn("StartGame: need at least %d players", app.MinPlayersToStart)
		return
	}

	turnTimer := state.TurnTimerMillis
	if request.TurnTimerSeconds > 0 {
		turnTimer = int64(request.TurnTimerSeconds) * 1000
	}

	err := mh.runCommand(ctx, state, dispatcher, logger, func(g domain.Game) domain.Game {
		return mh.svc.OnStart(g, turnTimer)
	})
	if err != nil {
		logger.Error("StartGame: %v", err)
		return
	}
	mh.updateLabel(state, dispatcher, logger)
	logger.Info("StartGame: game %s started by %s with %d players",
		state.GameKey, senderID, len(state.Game.PlayerIDs()))
}

func (mh *matchHandler) handleSwapTiles(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request swapTilesRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("SwapTiles: invalid request from %s: %v", senderID, err)
		return
	}
	toSwap, err := toDomainTiles(request.Tiles)
	if err != nil {
		logger.Warn("SwapTiles: invalid tiles from %s: %v", senderID, err)
		return
	}

	if !mh.senderHoldsTurn(state, senderID, logger, "SwapTiles") {
		mh.sendRejection(state, dispatcher, logger, senderID, moveRejectedEvent{Reason: "not_in_control"})
		return
	}

	err = mh.runCommand(ctx, state, dispatcher, logger, func(g domain.Game) domain.Game {
		return mh.svc.OnSwap(g, senderID, toSwap)
	})
	if err != nil {
		logger.Error("SwapTiles: %v", err)
	}
}

func (mh *matchHandler) handleApplyTiles(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request applyTilesRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("ApplyTiles: invalid request from %s: %v", senderID, err)
		return
	}
	placements, err := toDomainPositionedTiles(request.Tiles)
	if err != nil {
		logger.Warn("ApplyTiles: invalid tiles from %s: %v", senderID, err)
		return
	}

	if !mh.senderHoldsTurn(state, senderID, logger, "ApplyTiles") {
		mh.sendRejection(state, dispatcher, logger, senderID, moveRejectedEvent{Reason: "not_in_control"})
		return
	}

	var rejection domain.PlacementResult
	err = mh.runCommand(ctx, state, dispatcher, logger, func(g domain.Game) domain.Game {
		next, result := mh.svc.OnApplyTiles(g, senderID, placements)
		rejection = result
		return next
	})
	if err != nil {
		logger.Error("ApplyTiles: %v", err)
		return
	}

	if payload, rejected := rejectionWire(rejection); rejected {
		logger.Warn("ApplyTiles: move by %s rejected: %s", senderID, payload.Reason)
		mh.sendRejection(state, dispatcher, logger, senderID, payload)
	}
}

func (mh *matchHandler) handleSetUsername(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, msg runtime.MatchData) {
	senderID := msg.GetUserId()

	var request setUsernameRequest
	if err := json.Unmarshal(msg.GetData(), &request); err != nil {
		logger.Warn("SetUsername: invalid request from %s: %v", senderID, err)
		return
	}
	if request.Username == "" {
		logger.Warn("SetUsername: empty username from %s", senderID)
		return
	}

	err := mh.runCommand(ctx, state, dispatcher, logger, func(g domain.Game) domain.Game {
		return mh.svc.OnUpdateUsername(g, senderID, request.Username)
	})
	if err != nil {
		logger.Error("SetUsername: %v", err)
	}
}

// checkTurnTimeout passes the turn once the configured clock expires. The
// reducer re-checks expiry against the fresh snapshot inside the retry loop,
// so a stale tick cannot skip a turn that was just played.
func (mh *matchHandler) checkTurnTimeout(ctx context.Context, state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	g := state.Game
	if !g.Started || g.Over || g.TurnTimer <= 0 {
		return
	}
	timedOut := g.UserInControl
	err := mh.runCommand(ctx, state, dispatcher, logger, func(g domain.Game) domain.Game {
		return mh.svc.OnTurnTimeout(g)
	})
	if err != nil {
		logger.Error("TurnTimeout: %v", err)
		return
	}
	if state.Game.UserInControl != timedOut {
		logger.Info("TurnTimeout: %s timed out, control passed to %s", timedOut, state.Game.UserInControl)
	}
}

// senderHoldsTurn enforces the caller-side rule that only the user in
// control may swap or apply tiles. Violations usually indicate a
// client/server desync, so they are logged.
func (mh *matchHandler) senderHoldsTurn(state *MatchState, senderID string, logger runtime.Logger, op string) bool {
	if !state.Game.Started || state.Game.Over {
		logger.Warn("%s: game %s is not running", op, state.GameKey)
		return false
	}
	if state.Game.UserInControl != senderID {
		logger.Warn("%s: %s acted out of turn (in control: %s)", op, senderID, state.Game.UserInControl)
		return false
	}
	return true
}

// broadcast converts notification events to opcodes and dispatches them,
// honouring targeted recipients.
func (mh *matchHandler) broadcast(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		opCode, payload, ok := eventWire(ev)
		if !ok {
			logger.Warn("broadcast: unknown event kind %q", ev.Kind)
			continue
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error("broadcast: failed to marshal %q: %v", ev.Kind, err)
			continue
		}

		var recipients []runtime.Presence
		if len(ev.Recipients) > 0 {
			for _, uid := range ev.Recipients {
				if p, ok := state.Presences[uid]; ok {
					recipients = append(recipients, p)
				}
			}
			// All intended recipients are offline; a targeted event must
			// not leak to everyone else.
			if len(recipients) == 0 {
				continue
			}
		}

		if err := dispatcher.BroadcastMessage(opCode, data, recipients, nil, true); err != nil {
			logger.Error("broadcast: failed to send %q: %v", ev.Kind, err)
		}
	}
}

// sendRejection delivers a move-rejected event to a single user.
func (mh *matchHandler) sendRejection(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID string, payload moveRejectedEvent) {
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Error("sendRejection: failed to marshal: %v", err)
		return
	}
	presence, ok := state.Presences[userID]
	if !ok {
		logger.Warn("sendRejection: presence for %s not found", userID)
		return
	}
	if err := dispatcher.BroadcastMessage(OpMoveRejected, data, []runtime.Presence{presence}, nil, true); err != nil {
		logger.Error("sendRejection: failed to send: %v", err)
	}
}

func (mh *matchHandler) updateLabel(state *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	label := matchLabel{
		Open:    !state.Game.Started && len(state.Game.PlayerIDs()) < domain.MaxPlayers,
		Game:    "qwirkle",
		Started: state.Game.Started,
	}
	labelBytes, err := json.Marshal(label)
	if err != nil {
		logger.Error("updateLabel: failed to marshal: %v", err)
		return
	}
	if err := dispatcher.MatchLabelUpdate(string(labelBytes)); err != nil {
		logger.Error("updateLabel: failed to update: %v", err)
	}
}
