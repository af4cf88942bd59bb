// Package client implements the terminal chat client: the control
// connection and its dispatch loop, the slash-command surface, and the
// auxiliary-port file send/receive with checksum verification.
package client

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"relaychat/internal/protocol"
)

// Client mirrors one server session from the user's side.
type Client struct {
	controlAddr string
	relayAddr   string
	downloadDir string
	out         io.Writer

	conn   net.Conn
	reader *bufio.Reader

	writeMu sync.Mutex

	mu        sync.Mutex
	username  string
	incoming  []protocol.FileTransferReq // file offers not yet answered
	filePaths map[string]string          // filename -> local path for offered files
	awaitRPS  bool                       // next input line names the RPS opponent

	done      chan struct{}
	closeOnce sync.Once
}

// New builds a client. out receives all user-facing text.
func New(controlAddr, relayAddr, downloadDir string, out io.Writer) *Client {
	return &Client{
		controlAddr: controlAddr,
		relayAddr:   relayAddr,
		downloadDir: downloadDir,
		out:         out,
		filePaths:   make(map[string]string),
		done:        make(chan struct{}),
	}
}

// Connect dials the control port and consumes the READY greeting.
func (c *Client) Connect() error {
	conn, err := net.Dial("tcp", c.controlAddr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.controlAddr, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)

	frame, err := c.readFrame()
	if err != nil {
		conn.Close()
		return fmt.Errorf("no greeting from server: %w", err)
	}
	if frame.Command != protocol.CmdReady {
		conn.Close()
		return fmt.Errorf("unexpected greeting %q", frame.Command)
	}
	var ready protocol.Ready
	if err := frame.Decode(&ready); err != nil {
		conn.Close()
		return fmt.Errorf("bad greeting payload: %w", err)
	}
	c.printf("Server connected successfully! Version: %s", ready.Version)
	return nil
}

// Login attempts one ENTER round-trip. It returns the server's error code on
// rejection, or 0 on success. Call before Run; the read here is synchronous.
func (c *Client) Login(username string) (int, error) {
	if err := c.send(protocol.CmdEnter, protocol.Enter{Username: username}); err != nil {
		return 0, err
	}
	frame, err := c.readFrame()
	if err != nil {
		return 0, fmt.Errorf("no response from server: %w", err)
	}
	if frame.Command != protocol.CmdEnterResp {
		return 0, fmt.Errorf("unexpected response %q", frame.Command)
	}
	var resp protocol.Status
	if err := frame.Decode(&resp); err != nil {
		return 0, err
	}
	if resp.Status != protocol.StatusOK {
		c.printLoginError(resp.Code)
		return resp.Code, nil
	}

	c.mu.Lock()
	c.username = username
	c.mu.Unlock()
	c.printf("Logged in as %s", username)
	return 0, nil
}

func (c *Client) printLoginError(code int) {
	switch code {
	case protocol.CodeNameTaken:
		c.printf("User with this name already exists.")
	case protocol.CodeNameInvalid:
		c.printf("A username may only consist of 3-14 characters, numbers, and underscores.")
	case protocol.CodeAlreadyLoggedIn:
		c.printf("User is already logged in.")
	default:
		c.printf("Unknown error occurred.")
	}
}

// Username returns the logged-in name.
func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Done closes when the connection is finished, either by /exit, server
// hangup, or transport failure.
func (c *Client) Done() <-chan struct{} { return c.done }

// Run reads server frames until the connection ends. It blocks; drive user
// input from another goroutine via HandleInput.
func (c *Client) Run() error {
	defer c.Close()
	for {
		frame, err := c.readFrame()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			select {
			case <-c.done:
				return nil
			default:
				return fmt.Errorf("connection to server lost: %w", err)
			}
		}
		c.handleFrame(frame)
	}
}

// Close tears the connection down and releases Done.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

func (c *Client) readFrame() (protocol.Frame, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return protocol.Frame{}, err
	}
	frame, err := protocol.Parse(line)
	if err != nil {
		return protocol.Frame{}, fmt.Errorf("bad frame %q: %w", line, err)
	}
	return frame, nil
}

func (c *Client) send(cmd string, payload any) error {
	line, err := protocol.Encode(cmd, payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(line); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}
	return nil
}

func (c *Client) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// handleFrame dispatches one server frame. Unknown payload shapes are
// logged, never fatal; the session keeps running.
func (c *Client) handleFrame(frame protocol.Frame) {
	switch frame.Command {
	case protocol.CmdPing:
		if err := c.send(protocol.CmdPong, nil); err != nil {
			slog.Debug("pong failed", "err", err)
		}
	case protocol.CmdHangup:
		c.printf("Received HANGUP due to missing PONG")
		c.Close()
	case protocol.CmdByeResp:
		c.Close()
	case protocol.CmdBroadcastResp:
		c.handleBroadcastResp(frame)
	case protocol.CmdBroadcast:
		var b protocol.Broadcast
		if frame.Decode(&b) == nil {
			c.printf("%s: %s", b.Username, b.Message)
		}
	case protocol.CmdJoined:
		var p protocol.Presence
		if frame.Decode(&p) == nil {
			c.printf("%s has joined the chat.", p.Username)
		}
	case protocol.CmdLeft:
		var p protocol.Presence
		if frame.Decode(&p) == nil {
			c.printf("%s has left the chat.", p.Username)
		}
	case protocol.CmdListResp:
		c.handleListResp(frame)
	case protocol.CmdPrivateMsg:
		var m protocol.PrivateMsg
		if frame.Decode(&m) == nil {
			c.printf("[PRIVATE] %s: %s", m.Sender, m.Message)
		}
	case protocol.CmdPrivateMsgResp:
		c.handlePrivateMsgResp(frame)
	case protocol.CmdPongError:
		slog.Debug("server reported an unexpected PONG")
	case protocol.CmdRPSStartResp:
		c.handleRPSStartResp(frame)
	case protocol.CmdRPSInvite:
		var inv protocol.RPSInvite
		if frame.Decode(&inv) == nil {
			c.printf("You have been invited to a game by %s", inv.Sender)
			c.printf("Would you like to accept?")
			c.printf("/y - yes")
			c.printf("/n - no")
		}
	case protocol.CmdRPSInviteDeclined:
		c.printf("Game invitation declined.")
	case protocol.CmdRPSReady:
		c.printf("Please select your move: /r, /p, /s")
	case protocol.CmdRPSMoveResp:
		c.handleRPSMoveResp(frame)
	case protocol.CmdRPSResult:
		c.handleRPSResult(frame)
	case protocol.CmdFileTransferReq:
		c.handleIncomingOffer(frame)
	case protocol.CmdFileTransferResp:
		c.handleTransferResp(frame)
	case protocol.CmdFileTransferReady:
		c.handleTransferReady(frame)
	case protocol.CmdUnknownCommand:
		c.printf("Server did not recognize the last command.")
	case protocol.CmdParseError:
		c.printf("Server could not parse the last command.")
	default:
		c.printf("Unknown server message: %s", frame.Command)
	}
}

func (c *Client) handleBroadcastResp(frame protocol.Frame) {
	var resp protocol.Status
	if frame.Decode(&resp) != nil {
		return
	}
	if resp.Status == protocol.StatusOK {
		c.printf("Sent.")
	} else if resp.Code == protocol.CodeBroadcastNoLogin {
		c.printf("Error: You must log in before sending a broadcast message.")
	} else {
		c.printf("Unknown broadcast error occurred. Code: %d", resp.Code)
	}
}

func (c *Client) handleListResp(frame protocol.Frame) {
	var resp protocol.ListResp
	if frame.Decode(&resp) != nil {
		return
	}
	if resp.Status == protocol.StatusError {
		if resp.Code == protocol.CodeListNoLogin {
			c.printf("Cannot retrieve list: You are not logged in.")
		} else {
			c.printf("Unknown error retrieving list: %d", resp.Code)
		}
		return
	}
	if len(resp.Clients) == 0 {
		c.printf("(no users connected?)")
		return
	}
	list := ""
	for i, name := range resp.Clients {
		if i > 0 {
			list += ", "
		}
		list += name
	}
	c.printf("Currently connected users: %s", list)
}

func (c *Client) handlePrivateMsgResp(frame protocol.Frame) {
	var resp protocol.Status
	if frame.Decode(&resp) != nil {
		return
	}
	if resp.Status == protocol.StatusOK {
		c.printf("Sent.")
		return
	}
	switch resp.Code {
	case protocol.CodePrivateNoLogin:
		c.printf("Please log in to send private message.")
	case protocol.CodePrivateNoReceiver:
		c.printf("No receiver found.")
	case protocol.CodePrivateSelf:
		c.printf("Can't send to self.")
	}
}

func (c *Client) handleRPSStartResp(frame protocol.Frame) {
	var resp protocol.RPSStartResp
	if frame.Decode(&resp) != nil {
		return
	}
	if resp.Status != protocol.StatusError {
		c.printf("Invitation sent.")
		return
	}
	switch resp.Code {
	case protocol.CodeRPSNoLogin:
		c.printf("You need to log in first. Please try again")
	case protocol.CodeRPSNoOpponent:
		c.printf("No opponent found")
	case protocol.CodeRPSSelf:
		c.printf("Can't send game request to self")
	case protocol.CodeRPSBusy:
		c.printf("A game is ongoing between %s and %s", resp.Player1, resp.Player2)
	}
}

func (c *Client) handleRPSMoveResp(frame protocol.Frame) {
	var resp protocol.Status
	if frame.Decode(&resp) != nil {
		return
	}
	switch {
	case resp.Status == protocol.StatusOK:
		c.printf("Move sent.")
	case resp.Code == protocol.CodeRPSNoGame:
		c.printf("No ongoing game.")
	default:
		c.printf("Unknown move response from server")
	}
}

func (c *Client) handleRPSResult(frame protocol.Frame) {
	var result protocol.RPSResult
	if frame.Decode(&result) != nil {
		return
	}
	if result.Winner == nil {
		c.printf("It's a tie!")
	} else {
		c.printf("The winner is: %s", *result.Winner)
	}
}
