package client

import (
	"strings"

	"relaychat/internal/protocol"
)

// HandleInput processes one line of user input: slash commands, @user
// private messages, or bare text broadcast to the room.
func (c *Client) HandleInput(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}

	c.mu.Lock()
	awaitRPS := c.awaitRPS
	c.awaitRPS = false
	c.mu.Unlock()
	if awaitRPS {
		c.sendOrReport(protocol.CmdRPSStartReq, protocol.RPSStartReq{Receiver: strings.TrimSpace(line)})
		return
	}

	switch {
	case strings.HasPrefix(line, "@"):
		c.inputPrivateMsg(line)
	case strings.HasPrefix(line, "/send"):
		c.inputSendFile(line)
	case strings.HasPrefix(line, "/a "):
		c.inputAnswerOffer(line, true)
	case strings.HasPrefix(line, "/d "):
		c.inputAnswerOffer(line, false)
	default:
		c.inputSimple(line)
	}
}

func (c *Client) inputSimple(line string) {
	switch line {
	case "/exit":
		c.sendOrReport(protocol.CmdBye, nil)
	case "/help":
		c.PrintHelp()
	case "/all":
		c.sendOrReport(protocol.CmdListReq, nil)
	case "/rps":
		c.sendOrReport(protocol.CmdListReq, nil)
		c.printf("Enter your opponent: ")
		c.mu.Lock()
		c.awaitRPS = true
		c.mu.Unlock()
	case "/y":
		c.sendOrReport(protocol.CmdRPSInviteResp, protocol.RPSInviteResp{Status: protocol.StatusAccept})
		c.printf("Invitation accepted")
	case "/n":
		c.sendOrReport(protocol.CmdRPSInviteResp, protocol.RPSInviteResp{Status: protocol.StatusDecline})
		c.printf("Invitation declined")
	case "/r", "/p", "/s":
		c.sendOrReport(protocol.CmdRPSMoveReq, protocol.RPSMoveReq{Choice: line})
	case "/files":
		c.showOffers()
	default:
		c.sendOrReport(protocol.CmdBroadcastReq, protocol.BroadcastReq{Message: line})
	}
}

func (c *Client) inputPrivateMsg(line string) {
	receiver, message, found := strings.Cut(line, " ")
	if !found || message == "" {
		c.printf("Invalid format. Use @username <message>")
		return
	}
	c.sendOrReport(protocol.CmdPrivateMsgReq, protocol.PrivateMsgReq{
		Receiver: strings.TrimPrefix(receiver, "@"),
		Message:  message,
	})
}

func (c *Client) showOffers() {
	c.mu.Lock()
	offers := make([]protocol.FileTransferReq, len(c.incoming))
	copy(offers, c.incoming)
	c.mu.Unlock()

	if len(offers) == 0 {
		c.printf("No request to show.")
		return
	}
	c.printf("--- File requests ---")
	for i, req := range offers {
		c.printf("%d. From: %s, filename: %s", i+1, req.Sender, req.Filename)
	}
}

func (c *Client) sendOrReport(cmd string, payload any) {
	if err := c.send(cmd, payload); err != nil {
		c.printf("Error: %v", err)
	}
}

// PrintHelp writes the command summary.
func (c *Client) PrintHelp() {
	c.printf("Available commands:")
	c.printf("----------------------------")
	c.printf("/help - Show this help menu")
	c.printf("/exit - Exit the chatroom")
	c.printf("/all - Show all connected clients")
	c.printf("@username <message> - Send a private message to a user")
	c.printf("/rps - Start a Rock, Paper, Scissors game")
	c.printf("/send <username> <file-path> - Request to send a file to another user")
	c.printf("/files - Show all incoming file requests")
	c.printf("/a <username> <filename> - Accept a file transfer request")
	c.printf("/d <username> <filename> - Decline a file transfer request")
	c.printf("Type a message to broadcast to the chatroom.")
}
