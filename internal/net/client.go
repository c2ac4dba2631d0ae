package net

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
)

// Client connects to a match server and provides a terminal REPL.
type Client struct {
	conn       net.Conn
	playerName string // "P1" or "P2"
	In         io.Reader
	Out        io.Writer
}

// Connect dials a server, sends the archetype choice, and runs the REPL on
// stdin and stdout.
func Connect(ctx context.Context, addr string, archetype string) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	if err := writeJoin(conn, archetype); err != nil {
		return fmt.Errorf("send join: %w", err)
	}
	fmt.Println("Connected! Waiting for the debate to start...")

	client := &Client{conn: conn, playerName: "P2", In: os.Stdin, Out: os.Stdout}
	return client.RunREPL(ctx)
}

// RunREPL reads server messages and answers prompts from In until the
// match is over.
func (c *Client) RunREPL(ctx context.Context) error {
	if c.In == nil {
		c.In = os.Stdin
	}
	if c.Out == nil {
		c.Out = os.Stdout
	}
	dec := json.NewDecoder(c.conn)
	enc := json.NewEncoder(c.conn)
	reader := bufio.NewReader(c.In)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		var msg ServerMessage
		if err := dec.Decode(&msg); err != nil {
			return fmt.Errorf("read message: %w", err)
		}

		switch msg.Type {
		case MsgNotify:
			c.renderEvent(msg.Event)

		case MsgChooseBank:
			c.renderState(msg.State)
			c.renderOffers(msg.Offers)
			indices, err := c.readBank(reader, len(msg.Offers))
			if err != nil {
				return err
			}
			if err := enc.Encode(ClientMessage{Type: MsgBank, Indices: indices}); err != nil {
				return fmt.Errorf("send bank: %w", err)
			}

		case MsgChooseReroll:
			c.renderState(msg.State)
			fmt.Fprint(c.Out, "\nRoll again? (y/n): ")
			answer, err := c.readYesNo(reader)
			if err != nil {
				return err
			}
			if err := enc.Encode(ClientMessage{Type: MsgReroll, Answer: answer}); err != nil {
				return fmt.Errorf("send reroll: %w", err)
			}

		case MsgGameOver:
			fmt.Fprintln(c.Out)
			fmt.Fprintln(c.Out, "═══════════════════════════════════")
			fmt.Fprintln(c.Out, "          DEBATE OVER")
			fmt.Fprintln(c.Out, "═══════════════════════════════════")
			fmt.Fprintln(c.Out, msg.Result)
			fmt.Fprintln(c.Out, "═══════════════════════════════════")
			return nil
		}
	}
}

func (c *Client) renderEvent(ev *EventView) {
	if ev == nil {
		return
	}
	stage := ev.Stage
	for len(stage) < 12 {
		stage += " "
	}
	fmt.Fprintf(c.Out, "D%-2d R%-2d %s| %s\n", ev.Debate, ev.Roll, stage, ev.Details)
}

func (c *Client) renderState(ts *TurnState) {
	if ts == nil {
		return
	}
	fmt.Fprintln(c.Out)
	fmt.Fprintln(c.Out, "╔══════════════════════════════════════════════════════╗")
	fmt.Fprintf(c.Out, "║  %s  Debate %d  Roll %d\n", c.playerName, ts.Debate, ts.Roll)
	fmt.Fprintf(c.Out, "║  HP: %d   Opponent HP: %d\n", ts.Health, ts.OpponentHealth)
	fmt.Fprintf(c.Out, "║  Rolled: %s\n", formatFaces(ts.Rolled))
	if ts.PendingEcho > 0 {
		fmt.Fprintf(c.Out, "║  Live:   %s +%d echo\n", formatFaces(ts.Live), ts.PendingEcho)
	} else {
		fmt.Fprintf(c.Out, "║  Live:   %s\n", formatFaces(ts.Live))
	}
	if len(ts.Banked) > 0 {
		fmt.Fprintln(c.Out, "║──────────────────────────────────────────────────────")
		for _, b := range ts.Banked {
			fmt.Fprintf(c.Out, "║  banked %s\n", formatOffer(b))
		}
	}
	fmt.Fprintln(c.Out, "╚══════════════════════════════════════════════════════╝")
}

func formatFaces(faces []int) string {
	parts := make([]string, len(faces))
	for i, f := range faces {
		parts[i] = strconv.Itoa(f)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatOffer(o OfferView) string {
	s := fmt.Sprintf("%s %s %s", o.Kind, o.Pattern, formatFaces(o.Faces))
	if o.Echo > 0 {
		s += fmt.Sprintf(" (+%d echo)", o.Echo)
	}
	return s
}

func (c *Client) renderOffers(offers []OfferView) {
	fmt.Fprintln(c.Out, "\nInsults on the table:")
	for _, o := range offers {
		fmt.Fprintf(c.Out, "  %d) %s\n", o.Index+1, formatOffer(o))
	}
	fmt.Fprintln(c.Out, "Bank which? (numbers separated by spaces, Enter for all, - for none)")
}

var errInputClosed = errors.New("input closed")

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", errInputClosed
	}
	return strings.TrimSpace(line), nil
}

func (c *Client) readBank(reader *bufio.Reader, count int) ([]int, error) {
	for {
		fmt.Fprint(c.Out, "> ")
		line, err := readLine(reader)
		if err != nil {
			return nil, err
		}
		switch line {
		case "", "a", "all":
			all := make([]int, count)
			for i := range all {
				all[i] = i
			}
			return all, nil
		case "-", "none":
			return []int{}, nil
		}

		var indices []int
		valid := true
		for _, p := range strings.Fields(line) {
			n, err := strconv.Atoi(p)
			if err != nil || n < 1 || n > count {
				fmt.Fprintf(c.Out, "Each number must be between 1 and %d\n", count)
				valid = false
				break
			}
			indices = append(indices, n-1) // convert to 0-indexed
		}
		if valid {
			return indices, nil
		}
	}
}

func (c *Client) readYesNo(reader *bufio.Reader) (bool, error) {
	for {
		line, err := readLine(reader)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(line) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		default:
			fmt.Fprint(c.Out, "Enter y or n: ")
		}
	}
}
