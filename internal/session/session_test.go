package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Pamplemouss/eorguessr-backend/internal/engine"
	"github.com/Pamplemouss/eorguessr-backend/internal/geo"
	"github.com/Pamplemouss/eorguessr-backend/internal/scenes"
)

// stubSource returns a fixed pool so tests control the answers.
type stubSource struct {
	pool []scenes.Scene
	err  error
}

func (s stubSource) DrawScenes(filter scenes.Filter, count int) ([]scenes.Scene, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.pool[:count], nil
}

type recordingSink struct {
	mu     sync.Mutex
	rounds []engine.RoundResult
}

func (r *recordingSink) SaveRound(ctx context.Context, sessionID string, result engine.RoundResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, result)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rounds)
}

func testScenes(n int) []scenes.Scene {
	pool := make([]scenes.Scene, n)
	for i := range pool {
		pool[i] = scenes.Scene{
			ID:         string(rune('a' + i)),
			MapName:    "Somewhere",
			Coordinate: geo.Coordinate{X: int8(30 + i), Y: int8(30 + i)},
		}
	}
	return pool
}

func testSettings(rounds int) engine.Settings {
	return engine.Settings{MaxRounds: rounds, MinPlayers: 1, MaxPlayers: 8}
}

// helper: receive one outbound message with a timeout so tests never hang
func recvOut(t *testing.T, ch <-chan Out, within time.Duration) Out {
	t.Helper()
	select {
	case out, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return out
	case <-time.After(within):
		t.Fatalf("timed out waiting for outbound message")
		return nil // unreachable
	}
}

func recvSnapshot(t *testing.T, ch <-chan Out, within time.Duration) Snapshot {
	t.Helper()
	out := recvOut(t, ch, within)
	snap, ok := out.(Snapshot)
	if !ok {
		t.Fatalf("want Snapshot, got %T: %+v", out, out)
	}
	return snap
}

func recvNoOut(t *testing.T, ch <-chan Out, within time.Duration) {
	t.Helper()
	select {
	case out, ok := <-ch:
		if !ok {
			return // closed: no further messages possible
		}
		t.Fatalf("expected no message within %v, but got %T: %+v", within, out, out)
	case <-time.After(within):
	}
}

func recvView(t *testing.T, ch <-chan View, within time.Duration) View {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func join(t *testing.T, s *Session, key, name string, buf int) chan Out {
	t.Helper()
	out := make(chan Out, buf)
	reply := make(chan error, 1)
	s.Inbox() <- Join{PlayerKey: key, DisplayName: name, Outbox: out, Reply: reply}
	select {
	case err := <-reply:
		if err != nil {
			t.Fatalf("join %s: %v", key, err)
		}
	case <-time.After(time.Second):
		t.Fatalf("join %s: no reply", key)
	}
	return out
}

func newTestSession(t *testing.T, rounds int, cfg Config, deps Deps) *Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if deps.Source == nil {
		deps.Source = stubSource{pool: testScenes(rounds)}
	}
	return New(ctx, "TEST01", testSettings(rounds), cfg, deps)
}

func TestJoinPushesSnapshotToEveryone(t *testing.T) {
	s := newTestSession(t, 3, Config{}, Deps{})

	out1 := join(t, s, "k1", "Alphinaud", 4)
	snap := recvSnapshot(t, out1, time.Second)
	if snap.Version != 1 || snap.View.Phase != engine.PhaseLobby {
		t.Fatalf("first snapshot: %+v", snap)
	}

	out2 := join(t, s, "k2", "Alisaie", 4)
	_ = recvSnapshot(t, out2, time.Second)

	// Existing client sees the roster change.
	snap = recvSnapshot(t, out1, time.Second)
	if len(snap.View.Players) != 2 {
		t.Fatalf("roster not replicated: %+v", snap.View.Players)
	}
}

func TestGuessReplyGoesOnlyToSubmitter(t *testing.T) {
	s := newTestSession(t, 3, Config{}, Deps{})
	out1 := join(t, s, "k1", "A", 8)
	out2 := join(t, s, "k2", "B", 8)
	_ = recvSnapshot(t, out1, time.Second) // join #1
	_ = recvSnapshot(t, out1, time.Second) // join #2
	_ = recvSnapshot(t, out2, time.Second)

	s.Inbox() <- FromClient{PlayerKey: "k1", Cmd: engine.Command{Type: engine.CmdStartGame}}
	_ = recvSnapshot(t, out1, time.Second)
	_ = recvSnapshot(t, out2, time.Second)

	s.Inbox() <- FromClient{PlayerKey: "k2", Cmd: engine.Command{
		Type:       engine.CmdSubmitGuess,
		Coordinate: geo.Coordinate{X: 30, Y: 30}, // exact answer of scene "a"
	}}

	// Submitter gets the score first, then the broadcast snapshot.
	res, ok := recvOut(t, out2, time.Second).(GuessResult)
	if !ok || res.Score != geo.MaxScore || res.Duplicate {
		t.Fatalf("guess result: %+v", res)
	}
	snap := recvSnapshot(t, out2, time.Second)
	if snap.View.Scene.Coordinate != nil {
		t.Fatalf("coordinate leaked mid-round")
	}

	// The other player only sees the snapshot, never the score message.
	out := recvOut(t, out1, time.Second)
	if _, ok := out.(Snapshot); !ok {
		t.Fatalf("non-submitter got %T", out)
	}
}

func TestDuplicateGuessRepliesWithoutBroadcast(t *testing.T) {
	// Two players so the first guess leaves the round open.
	s := newTestSession(t, 3, Config{}, Deps{})
	o1 := join(t, s, "k1", "A", 8)
	_ = join(t, s, "k2", "B", 8)
	_ = recvSnapshot(t, o1, time.Second)
	_ = recvSnapshot(t, o1, time.Second)
	s.Inbox() <- FromClient{PlayerKey: "k1", Cmd: engine.Command{Type: engine.CmdStartGame}}
	_ = recvSnapshot(t, o1, time.Second)

	guess := engine.Command{Type: engine.CmdSubmitGuess, Coordinate: geo.Coordinate{X: 10, Y: 10}}
	s.Inbox() <- FromClient{PlayerKey: "k1", Cmd: guess}
	r1, ok := recvOut(t, o1, time.Second).(GuessResult)
	if !ok {
		t.Fatalf("want GuessResult")
	}
	_ = recvSnapshot(t, o1, time.Second)

	s.Inbox() <- FromClient{PlayerKey: "k1", Cmd: guess}
	r2, ok := recvOut(t, o1, time.Second).(GuessResult)
	if !ok || !r2.Duplicate {
		t.Fatalf("duplicate not flagged: %+v", r2)
	}
	if r1.Score != r2.Score {
		t.Fatalf("idempotence broken: %d vs %d", r1.Score, r2.Score)
	}
	recvNoOut(t, o1, 200*time.Millisecond) // no broadcast for the no-op
}

func TestRejectedCommandRepliesErrorOnly(t *testing.T) {
	s := newTestSession(t, 3, Config{}, Deps{})
	outMaster := join(t, s, "gm", "Master", 8)
	outOther := join(t, s, "p2", "Other", 8)
	_ = recvSnapshot(t, outMaster, time.Second)
	_ = recvSnapshot(t, outMaster, time.Second)
	_ = recvSnapshot(t, outOther, time.Second)

	s.Inbox() <- FromClient{PlayerKey: "p2", Cmd: engine.Command{Type: engine.CmdStartGame}}

	cmdErr, ok := recvOut(t, outOther, time.Second).(CmdError)
	if !ok || cmdErr.Code != "unauthorized" {
		t.Fatalf("want unauthorized error, got %+v", cmdErr)
	}
	recvNoOut(t, outMaster, 200*time.Millisecond)

	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, time.Second)
	if view.State.Phase != engine.PhaseLobby {
		t.Fatalf("rejected command mutated state: %s", view.State.Phase)
	}
}

func TestSceneSourceFailureStaysInLobby(t *testing.T) {
	boom := errors.New("catalog offline")
	s := newTestSession(t, 3, Config{}, Deps{Source: stubSource{err: boom}})
	out := join(t, s, "gm", "Master", 8)
	_ = recvSnapshot(t, out, time.Second)

	s.Inbox() <- FromClient{PlayerKey: "gm", Cmd: engine.Command{Type: engine.CmdStartGame}}
	cmdErr, ok := recvOut(t, out, time.Second).(CmdError)
	if !ok || cmdErr.Code != "scene_source" {
		t.Fatalf("want scene_source error, got %+v", cmdErr)
	}

	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	if v := recvView(t, reply, time.Second); v.State.Phase != engine.PhaseLobby {
		t.Fatalf("session left lobby on draw failure")
	}
}

func TestRoundTimerFiresAndEndsRound(t *testing.T) {
	sink := &recordingSink{}
	s := newTestSession(t, 3, Config{RoundDuration: 50 * time.Millisecond}, Deps{Sink: sink})
	out := join(t, s, "gm", "Master", 8)
	_ = recvSnapshot(t, out, time.Second)

	s.Inbox() <- FromClient{PlayerKey: "gm", Cmd: engine.Command{Type: engine.CmdStartGame}}
	_ = recvSnapshot(t, out, time.Second)

	// No guess: the timer must close the round on its own.
	snap := recvSnapshot(t, out, time.Second)
	if snap.View.Phase != engine.PhaseResult {
		t.Fatalf("want result after timeout, got %s", snap.View.Phase)
	}
	if snap.View.Scene.Coordinate == nil {
		t.Fatalf("answer not revealed after timeout")
	}

	deadline := time.After(time.Second)
	for sink.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("round never archived")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAllSubmittedCancelsTimer(t *testing.T) {
	s := newTestSession(t, 3, Config{RoundDuration: 150 * time.Millisecond}, Deps{})
	out := join(t, s, "gm", "Master", 8)
	_ = recvSnapshot(t, out, time.Second)

	s.Inbox() <- FromClient{PlayerKey: "gm", Cmd: engine.Command{Type: engine.CmdStartGame}}
	_ = recvSnapshot(t, out, time.Second)

	s.Inbox() <- FromClient{PlayerKey: "gm", Cmd: engine.Command{
		Type:       engine.CmdSubmitGuess,
		Coordinate: geo.Coordinate{X: 1, Y: 1},
	}}
	_ = recvOut(t, out, time.Second)      // guess result
	_ = recvSnapshot(t, out, time.Second) // round-end broadcast

	// The cancelled timer must not produce a second transition.
	recvNoOut(t, out, 300*time.Millisecond)
}

func TestLastLeaveNotifiesHub(t *testing.T) {
	emptied := make(chan string, 1)
	s := newTestSession(t, 3, Config{}, Deps{OnEmpty: func(id string) { emptied <- id }})
	out := join(t, s, "k1", "A", 4)
	_ = recvSnapshot(t, out, time.Second)

	s.Inbox() <- Leave{PlayerKey: "k1"}

	select {
	case id := <-emptied:
		if id != "TEST01" {
			t.Fatalf("wrong session id: %q", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("empty session never reported")
	}
}

func TestDroppedClientCannotHoldRoundOpen(t *testing.T) {
	s := newTestSession(t, 3, Config{}, Deps{})
	_ = join(t, s, "k1", "A", 1) // buffer of one: the join snapshot fills it
	out2 := join(t, s, "k2", "B", 8)
	_ = recvSnapshot(t, out2, time.Second)

	// The drop must also remove the player from the game, not just the
	// outbox map.
	deadline := time.After(time.Second)
	for {
		reply := make(chan View, 1)
		s.Inbox() <- GetState{Reply: reply}
		v := recvView(t, reply, time.Second)
		if _, ok := v.State.Players["k1"]; !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("dropped client still in game state")
		case <-time.After(10 * time.Millisecond):
		}
	}
	_ = recvSnapshot(t, out2, time.Second) // departure broadcast

	// Mastership passed to the survivor; its lone guess must close the
	// round instead of stalling on the zombie.
	s.Inbox() <- FromClient{PlayerKey: "k2", Cmd: engine.Command{Type: engine.CmdStartGame}}
	snap := recvSnapshot(t, out2, time.Second)
	if snap.View.Phase != engine.PhasePlaying {
		t.Fatalf("survivor could not start: %+v", snap.View)
	}

	s.Inbox() <- FromClient{PlayerKey: "k2", Cmd: engine.Command{
		Type:       engine.CmdSubmitGuess,
		Coordinate: geo.Coordinate{X: 1, Y: 1},
	}}
	_ = recvOut(t, out2, time.Second) // guess result
	snap = recvSnapshot(t, out2, time.Second)
	if snap.View.Phase != engine.PhaseResult {
		t.Fatalf("round did not end: %s", snap.View.Phase)
	}
}

func TestSlowClientIsDropped(t *testing.T) {
	s := newTestSession(t, 3, Config{}, Deps{})
	_ = join(t, s, "k1", "A", 1) // buffer of one: the join snapshot fills it

	// Next broadcast cannot be delivered; the client must be dropped.
	_ = join(t, s, "k2", "B", 4)

	reply := make(chan View, 1)
	s.Inbox() <- GetState{Reply: reply}
	view := recvView(t, reply, time.Second)
	if view.NumClients != 1 {
		t.Fatalf("expected slow client dropped; NumClients=%d", view.NumClients)
	}
}
