package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Engine.IO v4 packet types, sent as the first byte of a text frame.
const (
	PacketOpen    = '0'
	PacketClose   = '1'
	PacketPing    = '2'
	PacketPong    = '3'
	PacketMessage = '4'
	PacketUpgrade = '5'
	PacketNoop    = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	SocketConnect      = '0'
	SocketDisconnect   = '1'
	SocketEvent        = '2'
	SocketAck          = '3'
	SocketConnectError = '4'
)

// Handshake is the payload of the Engine.IO open packet.
type Handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"`
	PingTimeout  int      `json:"pingTimeout"`
	MaxPayload   int      `json:"maxPayload,omitempty"`
}

// HeartbeatTimeout is how long a client waits for any frame before assuming the
// connection is dead.
func (h Handshake) HeartbeatTimeout() time.Duration {
	if h.PingInterval <= 0 && h.PingTimeout <= 0 {
		return 0
	}
	return time.Duration(h.PingInterval+h.PingTimeout) * time.Millisecond
}

// EncodeOpen builds the open packet a server sends first.
func EncodeOpen(h Handshake) ([]byte, error) {
	payload, err := json.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("encode handshake: %w", err)
	}
	return append([]byte{PacketOpen}, payload...), nil
}

// DecodeOpen parses an open packet.
func DecodeOpen(frame []byte) (Handshake, error) {
	if len(frame) == 0 || frame[0] != PacketOpen {
		return Handshake{}, fmt.Errorf("expected open packet, got %q", truncate(frame))
	}
	var h Handshake
	if err := json.Unmarshal(frame[1:], &h); err != nil {
		return Handshake{}, fmt.Errorf("decode handshake: %w", err)
	}
	return h, nil
}

// EncodeEvent builds 42["name",payload] for the default namespace.
func EncodeEvent(name string, payload any) ([]byte, error) {
	if name == "" {
		return nil, errors.New("event name required")
	}
	args := []any{name}
	if payload != nil {
		args = append(args, payload)
	}
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", name, err)
	}
	return append([]byte{PacketMessage, SocketEvent}, body...), nil
}

// DecodeEvent parses a Socket.IO event frame. The namespace prefix and ack id are
// accepted and dropped. A missing payload is returned as nil.
func DecodeEvent(frame []byte) (string, json.RawMessage, error) {
	if len(frame) < 2 || frame[0] != PacketMessage || frame[1] != SocketEvent {
		return "", nil, fmt.Errorf("not an event packet: %q", truncate(frame))
	}
	rest := string(frame[2:])
	if strings.HasPrefix(rest, "/") {
		comma := strings.IndexByte(rest, ',')
		if comma < 0 {
			return "", nil, fmt.Errorf("malformed namespace in %q", truncate(frame))
		}
		rest = rest[comma+1:]
	}
	rest = strings.TrimLeft(rest, "0123456789")

	var args []json.RawMessage
	if err := json.Unmarshal([]byte(rest), &args); err != nil {
		return "", nil, fmt.Errorf("decode event: %w", err)
	}
	if len(args) == 0 {
		return "", nil, errors.New("decode event: empty argument list")
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, fmt.Errorf("decode event name: %w", err)
	}
	if len(args) == 1 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// connectError extracts the message from a 44{"message":...} frame.
func connectError(frame []byte) error {
	var body struct {
		Message string `json:"message"`
	}
	if len(frame) > 2 {
		_ = json.Unmarshal(frame[2:], &body)
	}
	if body.Message == "" {
		body.Message = "rejected"
	}
	return fmt.Errorf("namespace connect: %s", body.Message)
}

func truncate(frame []byte) string {
	const limit = 64
	if len(frame) > limit {
		return string(frame[:limit]) + "..."
	}
	return string(frame)
}
