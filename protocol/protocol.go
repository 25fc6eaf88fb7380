// Package protocol defines the commands exchanged between the daemon and its
// clients. Every message travels as {"action": <tag>, "payload": {...}};
// variants without fields omit the payload.
package protocol

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
)

// ServerCommand is a message sent by a client to the daemon.
type ServerCommand interface {
	Action() string
	serverCommand()
}

// ClientCommand is a message sent by the daemon to its clients.
type ClientCommand interface {
	Action() string
	clientCommand()
}

// ErrUnknownAction is returned when a message names no known variant.
var ErrUnknownAction = errors.New("unknown action")

type envelope struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type decoder[C any] func(json.RawMessage) (C, error)

var (
	serverDecoders = map[string]decoder[ServerCommand]{}
	clientDecoders = map[string]decoder[ClientCommand]{}
)

func registerServer[T ServerCommand]() {
	var zero T
	serverDecoders[zero.Action()] = func(raw json.RawMessage) (ServerCommand, error) {
		var v T
		return v, decodePayload(raw, &v)
	}
}

func registerClient[T ClientCommand]() {
	var zero T
	clientDecoders[zero.Action()] = func(raw json.RawMessage) (ClientCommand, error) {
		var v T
		return v, decodePayload(raw, &v)
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func encode(action string, cmd any) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s", action)
	}
	env := envelope{Action: action}
	if string(payload) != "{}" {
		env.Payload = payload
	}
	return json.Marshal(env)
}

// EncodeServer serialises a client to daemon command.
func EncodeServer(cmd ServerCommand) ([]byte, error) {
	return encode(cmd.Action(), cmd)
}

// EncodeClient serialises a daemon to client command.
func EncodeClient(cmd ClientCommand) ([]byte, error) {
	return encode(cmd.Action(), cmd)
}

func decode[C any](data []byte, table map[string]decoder[C]) (C, error) {
	var zero C
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, errors.Wrap(err, "decode envelope")
	}
	dec, ok := table[env.Action]
	if !ok {
		return zero, errors.Wrapf(ErrUnknownAction, "%q", env.Action)
	}
	cmd, err := dec(env.Payload)
	if err != nil {
		return zero, errors.Wrapf(err, "decode %s payload", env.Action)
	}
	return cmd, nil
}

// DecodeServer parses a message received from a client.
func DecodeServer(data []byte) (ServerCommand, error) {
	return decode(data, serverDecoders)
}

// DecodeClient parses a message received from the daemon.
func DecodeClient(data []byte) (ClientCommand, error) {
	return decode(data, clientDecoders)
}

// ServerActions lists every known client to daemon tag.
func ServerActions() []string {
	out := make([]string, 0, len(serverDecoders))
	for a := range serverDecoders {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
