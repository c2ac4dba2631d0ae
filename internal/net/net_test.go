package net

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/psychodicenamic/dicesim/internal/game"
	"github.com/psychodicenamic/dicesim/internal/log"
)

func testOffers() []game.Insult {
	return []game.Insult{
		{Kind: game.KindSolid, Pattern: game.PatternPair, Faces: []int{4, 4}},
		{Kind: game.KindSurprising, Pattern: game.PatternTriplet, Faces: []int{2, 2, 2}, Echo: 1},
		{Kind: game.KindSolid, Pattern: game.PatternStraight, Faces: []int{1, 2, 3}},
	}
}

func TestNetworkStrategyRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	ns := NewNetworkStrategy(server, 0)

	got := make(chan ServerMessage, 3)
	go func() {
		dec := json.NewDecoder(client)
		enc := json.NewEncoder(client)
		for i := 0; i < 3; i++ {
			var msg ServerMessage
			if err := dec.Decode(&msg); err != nil {
				return
			}
			got <- msg
			switch msg.Type {
			case MsgChooseBank:
				_ = enc.Encode(ClientMessage{Type: MsgBank, Indices: []int{2, 0, 0, 9, -1}})
			case MsgChooseReroll:
				_ = enc.Encode(ClientMessage{Type: MsgReroll, Answer: true})
			}
		}
	}()

	ctx := context.Background()
	view := game.TurnView{Debate: 1, Roll: 2, LiveFaces: []int{5, 6}, Health: 12, OpponentHealth: 9}
	picks, err := ns.ChooseBank(ctx, view, testOffers())
	if err != nil {
		t.Fatalf("ChooseBank: %v", err)
	}
	if len(picks) != 2 || picks[0] != 2 || picks[1] != 0 {
		t.Errorf("Expected picks [2 0], got %v", picks)
	}
	again, err := ns.ChooseReroll(ctx, view)
	if err != nil || !again {
		t.Errorf("Expected reroll true, got %v (%v)", again, err)
	}
	if err := ns.Notify(ctx, log.NewRollEvent(1, 1, 0, []int{1, 2, 3})); err != nil {
		t.Fatalf("Notify: %v", err)
	}

	bank := <-got
	if len(bank.Offers) != 3 || bank.Offers[1].Pattern != "Triplet" || bank.Offers[1].Echo != 1 {
		t.Errorf("Unexpected offers %+v", bank.Offers)
	}
	if bank.State == nil || bank.State.OpponentHealth != 9 || bank.State.Roll != 2 {
		t.Errorf("Unexpected state %+v", bank.State)
	}
	<-got
	notify := <-got
	if notify.Type != MsgNotify || notify.Event == nil || notify.Event.Details != "P1 rolls [1 2 3]" {
		t.Errorf("Unexpected notify %+v", notify.Event)
	}
}

// scriptedJoiner plays the remote side at the protocol level: bank every
// offer, never re-roll.
func scriptedJoiner(t *testing.T, addr, archetype string) (ServerMessage, int, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return ServerMessage{}, 0, err
	}
	defer conn.Close()
	if err := writeJoin(conn, archetype); err != nil {
		return ServerMessage{}, 0, err
	}
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)
	events := 0
	for {
		var msg ServerMessage
		if err := dec.Decode(&msg); err != nil {
			return ServerMessage{}, events, err
		}
		switch msg.Type {
		case MsgNotify:
			events++
		case MsgChooseBank:
			all := make([]int, len(msg.Offers))
			for i := range all {
				all[i] = i
			}
			err = enc.Encode(ClientMessage{Type: MsgBank, Indices: all})
		case MsgChooseReroll:
			err = enc.Encode(ClientMessage{Type: MsgReroll, Answer: false})
		case MsgGameOver:
			return msg, events, nil
		}
		if err != nil {
			return ServerMessage{}, events, err
		}
	}
}

func TestServeMatch(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	var out bytes.Buffer
	srv := &Server{
		HostArchetype: "Dominant",
		HostStrategy:  game.Greedy(),
		Out:           &out,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, ln) }()

	over, events, err := scriptedJoiner(t, ln.Addr().String(), "tabula rasa")
	if err != nil {
		t.Fatalf("joiner: %v", err)
	}
	if err := <-serveErr; err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if over.Winner < -1 || over.Winner > 1 {
		t.Errorf("Unexpected winner %d", over.Winner)
	}
	if over.Result == "" {
		t.Error("Expected a result line")
	}
	if events == 0 {
		t.Error("Expected the joiner to receive debate events")
	}
	if !strings.Contains(out.String(), "Joiner: Tabula Rasa") {
		t.Errorf("Expected the joiner's archetype in the log, got:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "=== Debate 1: Dominant vs Tabula Rasa ===") {
		t.Error("Expected the debate log on the host output")
	}
}

func TestServeCancelledBeforeJoin(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- (&Server{HostStrategy: game.Greedy(), Out: &bytes.Buffer{}}).Serve(ctx, ln) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestClientREPL(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	var out bytes.Buffer
	c := &Client{conn: client, playerName: "P2", In: strings.NewReader("9\n1\nmaybe\nn\n"), Out: &out}
	replErr := make(chan error, 1)
	go func() { replErr <- c.RunREPL(context.Background()) }()

	enc := json.NewEncoder(server)
	dec := json.NewDecoder(server)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(enc.Encode(ServerMessage{Type: MsgNotify, Event: EventViewOf(log.NewRollEvent(1, 1, 1, []int{4, 4, 2}))}))
	must(enc.Encode(ServerMessage{Type: MsgChooseBank, Offers: OfferViews(testOffers()[:2]), State: &TurnState{Debate: 1, Roll: 1, Rolled: []int{4, 4, 2, 2, 2}}}))

	var bank ClientMessage
	must(dec.Decode(&bank))
	if bank.Type != MsgBank || len(bank.Indices) != 1 || bank.Indices[0] != 0 {
		t.Errorf("Expected bank [0], got %+v", bank)
	}

	must(enc.Encode(ServerMessage{Type: MsgChooseReroll, State: &TurnState{Debate: 1, Roll: 1}}))
	var reroll ClientMessage
	must(dec.Decode(&reroll))
	if reroll.Type != MsgReroll || reroll.Answer {
		t.Errorf("Expected reroll false, got %+v", reroll)
	}

	must(enc.Encode(ServerMessage{Type: MsgGameOver, Winner: 1, Result: "P2 (Dominant) wins"}))
	if err := <-replErr; err != nil {
		t.Fatalf("RunREPL: %v", err)
	}
	for _, want := range []string{"P2 rolls [4 4 2]", "Each number must be between 1 and 2", "Enter y or n", "Surprising Triplet [2 2 2] (+1 echo)", "DEBATE OVER", "P2 (Dominant) wins"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q", want)
		}
	}
}

func TestClientInputClosed(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := &Client{conn: client, In: strings.NewReader(""), Out: &bytes.Buffer{}}
	replErr := make(chan error, 1)
	go func() { replErr <- c.RunREPL(context.Background()) }()

	if err := json.NewEncoder(server).Encode(ServerMessage{Type: MsgChooseReroll}); err != nil {
		t.Fatal(err)
	}
	if err := <-replErr; !errors.Is(err, errInputClosed) {
		t.Errorf("Expected errInputClosed, got %v", err)
	}
}

func TestResolveArchetype(t *testing.T) {
	c := game.DefaultCatalog()
	a, err := ResolveArchetype(c, "euphoria", 0)
	if err != nil || a.Name != "Euphoria" {
		t.Errorf("Expected Euphoria, got %v (%v)", a, err)
	}
	a, err = ResolveArchetype(c, "", 0)
	if err != nil || a.Name != c.Names()[0] {
		t.Errorf("Expected the first archetype, got %v (%v)", a, err)
	}
	a, err = ResolveArchetype(c, "2", 0)
	if err != nil || a.Name != c.Names()[1] {
		t.Errorf("Expected the second archetype, got %v (%v)", a, err)
	}
	if _, err := ResolveArchetype(c, "", 99); !errors.Is(err, game.ErrUnknownArchetype) {
		t.Errorf("Expected ErrUnknownArchetype, got %v", err)
	}
	if _, err := ResolveArchetype(c, "Stoic", 0); !errors.Is(err, game.ErrUnknownArchetype) {
		t.Errorf("Expected ErrUnknownArchetype, got %v", err)
	}
}

func TestMatchResult(t *testing.T) {
	out := game.MatchOutcome{Winner: 1, Knockout: true, Health: [2]int{0, 5}, Debates: make([]game.DebateOutcome, 3)}
	want := "P2 (Anxiety) wins by knockout, health 0 to 5 after 3 debates"
	if got := MatchResult(out, "Euphoria", "Anxiety"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	tie := game.MatchOutcome{Winner: -1, Health: [2]int{4, 4}, Debates: make([]game.DebateOutcome, 5)}
	if got := MatchResult(tie, "A", "B"); !strings.HasPrefix(got, "Tie:") {
		t.Errorf("Expected a tie line, got %q", got)
	}
}

func TestBuildTurnStateCarriesPendingEcho(t *testing.T) {
	view := game.TurnView{Debate: 1, Roll: 2, LiveFaces: []int{1, 2, 6}, PendingEcho: 2}
	ts := BuildTurnState(view)
	if ts.PendingEcho != 2 {
		t.Errorf("Expected 2 pending echo dice, got %d", ts.PendingEcho)
	}
	if len(ts.Live) != 3 {
		t.Errorf("Expected 3 live faces, got %v", ts.Live)
	}

	var buf bytes.Buffer
	c := &Client{Out: &buf}
	c.renderState(ts)
	if !strings.Contains(buf.String(), "+2 echo") {
		t.Errorf("Expected pending echo in the board, got %q", buf.String())
	}
}
