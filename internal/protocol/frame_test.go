package protocol

import (
	"errors"
	"testing"
)

func TestParseSplitsOnFirstSpace(t *testing.T) {
	f, err := Parse(`PRIVATE_MSG_REQ {"receiver":"bob","message":"hi there"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Command != CmdPrivateMsgReq {
		t.Errorf("command = %q, want %q", f.Command, CmdPrivateMsgReq)
	}
	var req PrivateMsgReq
	if err := f.Decode(&req); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Receiver != "bob" || req.Message != "hi there" {
		t.Errorf("decoded %+v", req)
	}
}

func TestParseEmptyLine(t *testing.T) {
	for _, line := range []string{"", "   ", "\r"} {
		if _, err := Parse(line); !errors.Is(err, ErrEmptyFrame) {
			t.Errorf("Parse(%q) = %v, want ErrEmptyFrame", line, err)
		}
	}
}

func TestParseMissingPayload(t *testing.T) {
	if _, err := Parse("ENTER"); !errors.Is(err, ErrNoPayload) {
		t.Errorf("got %v, want ErrNoPayload", err)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	if _, err := Parse("MSG hello"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("got %v, want ErrUnknownCommand", err)
	}
}

func TestParseStripsTrailingNewline(t *testing.T) {
	f, err := Parse("PONG {}\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Command != CmdPong {
		t.Errorf("command = %q", f.Command)
	}
}

func TestDecodeBadJSON(t *testing.T) {
	f, err := Parse("ENTER {not json")
	if err != nil {
		t.Fatalf("parse should accept the shape: %v", err)
	}
	var e Enter
	if err := f.Decode(&e); err == nil {
		t.Error("expected a decode error for malformed JSON")
	}
}

func TestEncodeNilPayload(t *testing.T) {
	line, err := Encode(CmdRPSReady, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(line) != "RPS_READY {}\n" {
		t.Errorf("got %q", line)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	line, err := Encode(CmdBroadcast, Broadcast{Username: "alice", Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, err := Parse(string(line))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var b Broadcast
	if err := f.Decode(&b); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b.Username != "alice" || b.Message != "hi" {
		t.Errorf("round-tripped %+v", b)
	}
}

func TestStatusOmitsZeroCode(t *testing.T) {
	line, err := Encode(CmdEnterResp, OK())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(line) != `ENTER_RESP {"status":"OK"}`+"\n" {
		t.Errorf("got %q", line)
	}

	line, err = Encode(CmdEnterResp, Errorf(CodeNameTaken))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(line) != `ENTER_RESP {"status":"ERROR","code":5000}`+"\n" {
		t.Errorf("got %q", line)
	}
}

func TestRPSResultTieEncodesNullWinner(t *testing.T) {
	line, err := Encode(CmdRPSResult, RPSResult{
		Winner:  nil,
		Choices: map[string]string{"alice": MoveRock, "bob": MoveRock},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f, _ := Parse(string(line))
	var res struct {
		Winner *string `json:"winner"`
	}
	if err := f.Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Winner != nil {
		t.Errorf("winner = %v, want null", *res.Winner)
	}
}

func TestValidUsername(t *testing.T) {
	valid := []string{"abc", "alice", "A_b_3", "fourteen_chars"}
	for _, name := range valid {
		if !ValidUsername(name) {
			t.Errorf("ValidUsername(%q) = false, want true", name)
		}
	}
	invalid := []string{"", "ab", "fifteen_chars_x", "has space", "bad-dash", "émile"}
	for _, name := range invalid {
		if ValidUsername(name) {
			t.Errorf("ValidUsername(%q) = true, want false", name)
		}
	}
}
