// Package protocol implements the broker's management/control protocol:
// length-framed JSON messages exchanged over an SSH session, following
// aldrin-isaac-newtron's pattern of tunneling structured commands over
// golang.org/x/crypto/ssh rather than a bare socket, adapted here to the
// server side of that connection instead of the client side.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// Error tags returned in a reply's "error" field, one per failure kind
// this protocol distinguishes.
const (
	ErrNoNetwork      = "no-network"
	ErrNoService      = "no-service"
	ErrNoTerminal     = "no-terminal"
	ErrNoCircuit      = "no-circuit"
	ErrNoAggregator   = "no-aggregator"
	ErrNoControl      = "no-control"
	ErrInvalidSegment = "invalid-segment"
	ErrTerminalMgmt   = "terminal-mgmt"
	ErrTrunkMgmt      = "trunk-mgmt"
	ErrNetworkMgmt    = "network-mgmt"
	ErrBadArgument    = "bad-argument"
	ErrUnauthorized   = "unauthorized"
	ErrUnprivileged   = "unprivileged"
	ErrUnknownCommand = "unknown-command"
)

// Message is one length-framed JSON object exchanged in either
// direction: requests name a "type" and carry whatever fields that type
// needs; replies echo the request's "txn" token and carry either a
// "result" object or an "error" tag plus a human-readable "message".
type Message map[string]interface{}

// Type returns the message's "type" field.
func (m Message) Type() string { return m.str("type") }

// Txn returns the message's "txn" field, an opaque token the caller
// supplies on a request and expects back unchanged on the reply, so an
// async protocol can pipeline multiple outstanding requests.
func (m Message) Txn() string { return m.str("txn") }

func (m Message) str(key string) string {
	s, _ := m[key].(string)
	return s
}

// Num returns the message's numeric field, accepting both JSON numbers
// (float64, after unmarshal) and ints set programmatically.
func (m Message) Num(key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// reply builds a success reply to req carrying result (which may be
// nil for an ack with no payload).
func reply(req Message, result map[string]interface{}) Message {
	msg := Message{"txn": req.Txn()}
	if result != nil {
		msg["result"] = result
	}
	return msg
}

// errorReply builds a failure reply to req.
func errorReply(req Message, tag string, err error) Message {
	msg := Message{"txn": req.Txn(), "error": tag}
	if err != nil {
		msg["message"] = err.Error()
	}
	return msg
}

// event builds an unsolicited message pushed outside the request/reply
// cycle, used for "watch" status streams.
func event(kind string, fields map[string]interface{}) Message {
	msg := Message{"type": kind}
	for k, v := range fields {
		msg[k] = v
	}
	return msg
}

// readMessage reads one length-prefixed JSON message from r: a 4-byte
// big-endian length followed by that many bytes of JSON.
func readMessage(r io.Reader) (Message, error) {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return nil, err
	}
	if length > 16<<20 {
		return nil, fmt.Errorf("message length %d exceeds maximum", length)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	var msg Message
	if err := json.Unmarshal(buf, &msg); err != nil {
		return nil, fmt.Errorf("decoding message: %w", err)
	}
	return msg, nil
}

// writeMessage writes msg to w in the same length-prefixed framing
// readMessage expects.
func writeMessage(w io.Writer, msg Message) error {
	buf, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(buf))); err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}
