package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Frame shape errors. Both map to UNKNOWN_COMMAND on the wire and leave the
// session open.
var (
	ErrEmptyFrame     = errors.New("protocol: empty frame")
	ErrNoPayload      = errors.New("protocol: frame has no payload")
	ErrUnknownCommand = errors.New("protocol: unknown command")
)

// Frame is one decoded control line: a verb and its raw JSON payload.
type Frame struct {
	Command string
	Payload []byte
}

// Parse splits one line (without the trailing newline) into command and
// payload. It validates the shape and the verb but not the JSON itself;
// payload decoding is the caller's dispatch step.
func Parse(line string) (Frame, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return Frame{}, ErrEmptyFrame
	}
	cmd, payload, found := strings.Cut(line, " ")
	if !found {
		return Frame{}, ErrNoPayload
	}
	if !Known(cmd) {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
	return Frame{Command: cmd, Payload: []byte(payload)}, nil
}

// Decode unmarshals the frame payload into v. A failure here maps to
// PARSE_ERROR on the wire.
func (f Frame) Decode(v any) error {
	return json.Unmarshal(f.Payload, v)
}

// Encode renders one wire line: "COMMAND {json}\n". A nil payload encodes as
// an empty object.
func Encode(cmd string, payload any) ([]byte, error) {
	if payload == nil {
		return []byte(cmd + " {}\n"), nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd, err)
	}
	buf := make([]byte, 0, len(cmd)+1+len(body)+1)
	buf = append(buf, cmd...)
	buf = append(buf, ' ')
	buf = append(buf, body...)
	buf = append(buf, '\n')
	return buf, nil
}
