package protocol

import "regexp"

// usernamePattern is the login grammar: 3-14 word characters.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,14}$`)

// ValidUsername reports whether name satisfies the login grammar.
func ValidUsername(name string) bool { return usernamePattern.MatchString(name) }

// Ready is the server greeting, sent once immediately after accept.
type Ready struct {
	Version string `json:"version"`
}

// Enter is the login request.
type Enter struct {
	Username string `json:"username"`
}

// Status is the generic request acknowledgement: OK, or ERROR with a code.
// It serves ENTER_RESP, BROADCAST_RESP, BYE_RESP, PRIVATE_MSG_RESP and
// RPS_MOVE_RESP, which share the same shape.
type Status struct {
	Status string `json:"status"`
	Code   int    `json:"code,omitempty"`
}

// OK is the plain success acknowledgement.
func OK() Status { return Status{Status: StatusOK} }

// Errorf builds an ERROR acknowledgement carrying code.
func Errorf(code int) Status { return Status{Status: StatusError, Code: code} }

// BroadcastReq asks the server to fan a message out to every other user.
type BroadcastReq struct {
	Message string `json:"message"`
}

// Broadcast delivers another user's broadcast message.
type Broadcast struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

// Presence announces a user joining or leaving (JOINED / LEFT).
type Presence struct {
	Username string `json:"username"`
}

// ListResp carries the snapshot of currently named sessions.
type ListResp struct {
	Status  string   `json:"status"`
	Code    int      `json:"code,omitempty"`
	Clients []string `json:"clients,omitempty"`
}

// PrivateMsgReq asks the server to deliver a message to one user.
type PrivateMsgReq struct {
	Receiver string `json:"receiver"`
	Message  string `json:"message"`
}

// PrivateMsg delivers a private message to its receiver.
type PrivateMsg struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// PongError reports a PONG that arrived while no PING was outstanding.
type PongError struct {
	Code int `json:"code"`
}

// Hangup tells the peer the server is closing the connection.
type Hangup struct {
	Reason int `json:"reason"`
}

// RPSStartReq asks the server to invite receiver to a game.
type RPSStartReq struct {
	Receiver string `json:"receiver"`
}

// RPSStartResp acknowledges a game request. On a 11004 conflict it names the
// pair already playing.
type RPSStartResp struct {
	Status  string `json:"status"`
	Code    int    `json:"code,omitempty"`
	Player1 string `json:"player1,omitempty"`
	Player2 string `json:"player2,omitempty"`
}

// RPSInvite notifies the invitee who challenged them.
type RPSInvite struct {
	Sender string `json:"sender"`
}

// RPSInviteResp is the invitee's ACCEPT or DECLINE.
type RPSInviteResp struct {
	Status string `json:"status"`
}

// RPSMoveReq carries one player's move: "/r", "/p" or "/s".
type RPSMoveReq struct {
	Choice string `json:"choice"`
}

// RPSResult announces the outcome to both players. Winner is null on a tie.
type RPSResult struct {
	Winner  *string           `json:"winner"`
	Choices map[string]string `json:"choices"`
}

// FileTransferReq is both the sender's request and the copy forwarded to the
// receiver.
type FileTransferReq struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Filename string `json:"filename"`
	Checksum string `json:"checksum"`
}

// FileTransferResp acknowledges a transfer request; its status is also how
// the receiver communicates ACCEPT or DECLINE back to the broker.
type FileTransferResp struct {
	Status string `json:"status"`
	Code   int    `json:"code,omitempty"`
}

// FileTransferReady tells each peer to dial the auxiliary port. Type is "s"
// for the sending side and "r" for the receiving side.
type FileTransferReady struct {
	UUID     string `json:"uuid"`
	Type     string `json:"type"`
	Checksum string `json:"checksum"`
	Filename string `json:"filename"`
}
