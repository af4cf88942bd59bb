// Package protocol defines the wire vocabulary shared by the server and the
// client: the command verbs, the typed JSON payload for each verb, and the
// line framing codec that joins and splits them.
package protocol

// Command verbs. Every frame on the control connection starts with exactly
// one of these, followed by a space and a JSON object.
const (
	CmdReady          = "READY"
	CmdEnter          = "ENTER"
	CmdEnterResp      = "ENTER_RESP"
	CmdBroadcastReq   = "BROADCAST_REQ"
	CmdBroadcastResp  = "BROADCAST_RESP"
	CmdBroadcast      = "BROADCAST"
	CmdJoined         = "JOINED"
	CmdLeft           = "LEFT"
	CmdBye            = "BYE"
	CmdByeResp        = "BYE_RESP"
	CmdUnknownCommand = "UNKNOWN_COMMAND"
	CmdPing           = "PING"
	CmdPong           = "PONG"
	CmdPongError      = "PONG_ERROR"
	CmdParseError     = "PARSE_ERROR"
	CmdHangup         = "HANGUP"
	CmdListReq        = "LIST_REQ"
	CmdListResp       = "LIST_RESP"
	CmdPrivateMsgReq  = "PRIVATE_MSG_REQ"
	CmdPrivateMsgResp = "PRIVATE_MSG_RESP"
	CmdPrivateMsg     = "PRIVATE_MSG"

	CmdRPSStartReq       = "RPS_START_REQ"
	CmdRPSStartResp      = "RPS_START_RESP"
	CmdRPSInvite         = "RPS_INVITE"
	CmdRPSInviteResp     = "RPS_INVITE_RESP"
	CmdRPSInviteDeclined = "RPS_INVITE_DECLINED"
	CmdRPSReady          = "RPS_READY"
	CmdRPSMoveReq        = "RPS_MOVE_REQ"
	CmdRPSMoveResp       = "RPS_MOVE_RESP"
	CmdRPSResult         = "RPS_RESULT"

	CmdFileTransferReq   = "FILE_TRANSFER_REQ"
	CmdFileTransferResp  = "FILE_TRANSFER_RESP"
	CmdFileTransferReady = "FILE_TRANSFER_READY"
)

// Statuses carried in response payloads.
const (
	StatusOK      = "OK"
	StatusError   = "ERROR"
	StatusAccept  = "ACCEPT"
	StatusDecline = "DECLINE"
)

// Numeric error codes. The codes are part of the wire contract and are
// reused verbatim by the client for its user-facing messages.
const (
	CodeNameTaken        = 5000 // ENTER: username already registered
	CodeNameInvalid      = 5001 // ENTER: username fails the grammar
	CodeAlreadyLoggedIn  = 5002 // ENTER: session is already named
	CodeBroadcastNoLogin = 6000 // BROADCAST_REQ before login
	CodeHangup           = 7000 // HANGUP: missed PONG deadline
	CodePongUnexpected   = 8000 // PONG while no PING outstanding
	CodeListNoLogin      = 9000 // LIST_REQ before login

	CodePrivateNoLogin    = 10001 // PRIVATE_MSG_REQ before login
	CodePrivateNoReceiver = 10002 // receiver not registered
	CodePrivateSelf       = 10003 // receiver == sender

	CodeRPSNoLogin    = 11001 // RPS_START_REQ before login
	CodeRPSNoOpponent = 11002 // opponent not registered
	CodeRPSSelf       = 11003 // opponent == requester
	CodeRPSBusy       = 11004 // either player already paired
	CodeRPSNoGame     = 11005 // RPS_MOVE_REQ while unpaired

	CodeTransferNoLogin    = 13000 // FILE_TRANSFER_REQ before login
	CodeTransferNoReceiver = 13001 // receiver not registered
	CodeTransferSelf       = 13002 // receiver == sender
)

// RPS moves as they appear on the wire.
const (
	MoveRock     = "/r"
	MovePaper    = "/p"
	MoveScissors = "/s"
)

// Relay header constants for the auxiliary port: a canonical UUID followed by
// one role byte, then raw file bytes until the sender half-closes.
const (
	UUIDLength  = 36
	RoleSender  = byte('s')
	RoleReceive = byte('r')
)

// knownCommands is the closed set of verbs the server dispatches on.
var knownCommands = map[string]bool{
	CmdReady: true, CmdEnter: true, CmdEnterResp: true,
	CmdBroadcastReq: true, CmdBroadcastResp: true, CmdBroadcast: true,
	CmdJoined: true, CmdLeft: true, CmdBye: true, CmdByeResp: true,
	CmdUnknownCommand: true, CmdPing: true, CmdPong: true,
	CmdPongError: true, CmdParseError: true, CmdHangup: true,
	CmdListReq: true, CmdListResp: true,
	CmdPrivateMsgReq: true, CmdPrivateMsgResp: true, CmdPrivateMsg: true,
	CmdRPSStartReq: true, CmdRPSStartResp: true, CmdRPSInvite: true,
	CmdRPSInviteResp: true, CmdRPSInviteDeclined: true, CmdRPSReady: true,
	CmdRPSMoveReq: true, CmdRPSMoveResp: true, CmdRPSResult: true,
	CmdFileTransferReq: true, CmdFileTransferResp: true, CmdFileTransferReady: true,
}

// Known reports whether cmd is part of the protocol vocabulary.
func Known(cmd string) bool { return knownCommands[cmd] }
