// Package main provides a CI-friendly WebSocket smoke test for the relay
// chat engine.
//
// It validates:
//   - handshake with username in the query string
//   - join announcement fanout to an already-connected client
//   - ACTIVE_USERS snapshot shape
//   - public message fanout
//   - private message fanout
//   - leave announcement on disconnect
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const maxReadBytes = 1 << 20 // 1 MiB

type smokeClient struct {
	name string
	conn *websocket.Conn

	inbox chan string
	errCh chan error
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:3030/ws", "WebSocket URL")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	root := context.Background()

	suffix := fmt.Sprintf("%d", time.Now().UnixNano()%1_000_000)
	alice := "smoke-alice-" + suffix
	bob := "smoke-bob-" + suffix

	a := mustConnect(root, "A", *wsURL, alice, *timeout)
	defer closeWS(a.conn)

	// A sees its own snapshot first (sent directly on join).
	a.mustReadContaining(root, "ACTIVE_USERS:", *timeout)

	b := mustConnect(root, "B", *wsURL, bob, *timeout)
	defer closeWS(b.conn)

	// A observes B's join and the refreshed snapshot.
	a.mustReadContaining(root, bob+" joined the chat", *timeout)
	snap := a.mustReadContaining(root, "ACTIVE_USERS:", *timeout)
	if !strings.Contains(snap, bob) {
		fatalf("snapshot missing %q: %s", bob, snap)
	}

	b.mustReadContaining(root, "ACTIVE_USERS:", *timeout)

	if *verbose {
		fmt.Printf("connected: %s %s\n", alice, bob)
	}

	mustWrite(root, a.conn, "hello room", *timeout)
	got := b.mustReadContaining(root, "] ["+alice+"] hello room", *timeout)
	if *verbose {
		fmt.Printf("public fanout: %s\n", got)
	}

	mustWrite(root, a.conn, "@"+bob+" psst", *timeout)
	b.mustReadContaining(root, "[PM] From "+alice+" to "+bob+": psst", *timeout)

	closeWS(a.conn)
	b.mustReadContaining(root, alice+" left the chat", *timeout)

	fmt.Printf("OK: %s %s\n", alice, bob)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, wsURL, username string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	full := wsURL + "?username=" + url.QueryEscape(username)
	conn, resp, err := websocket.Dial(ctx, full, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:  name,
		conn:  conn,
		inbox: make(chan string, 512),
		errCh: make(chan error, 1),
	}
	c.startReadLoop()
	return c
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}
			if mt != websocket.MessageText {
				continue
			}

			select {
			case c.inbox <- string(data):
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

// mustReadContaining skips frames until one contains want. History replay and
// interleaved presence traffic make exact-sequence assertions too brittle for
// a smoke check against a shared server.
func (c *smokeClient) mustReadContaining(parent context.Context, want string, stepTimeout time.Duration) string {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", want, c.name, ctx.Err())
		case err := <-c.errCh:
			fatalf("connection error while waiting for %q (%s): %v", want, c.name, err)
		case frame, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", want, c.name)
			}
			if strings.Contains(frame, want) {
				return frame
			}
		}
	}
}

func mustWrite(parent context.Context, conn *websocket.Conn, text string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, []byte(text)); err != nil {
		fatalf("write failed: %v", err)
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
