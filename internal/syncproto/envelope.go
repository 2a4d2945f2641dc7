// Package syncproto relays resume and format state between the open views of a workspace: the
// popup CLI, the full editor and the live preview. It never owns state; each view decides what
// to apply using the sender id and content hash carried on every message.
package syncproto

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/forgecv/internal/schemas"
	"github.com/jonathan/forgecv/internal/types"
)

// MessageType is the kind of a sync message.
type MessageType string

// Message types.
const (
	TypeResumeUpdate       MessageType = "resume-update"
	TypeFormatUpdate       MessageType = "format-update"
	TypeEditorResumeUpdate MessageType = "editor-resume-update"
	TypePreviewReady       MessageType = "preview-ready"
	TypePing               MessageType = "ping"
	TypePong               MessageType = "pong"
	TypeHeartbeat          MessageType = "heartbeat"
)

// HasContent reports whether messages of this type carry resume or format state.
func (t MessageType) HasContent() bool {
	switch t {
	case TypeResumeUpdate, TypeFormatUpdate, TypeEditorResumeUpdate:
		return true
	}
	return false
}

// channel groups content types that replace the same piece of state. An editor echo of a
// resume-update is the same content and must dedupe against it.
func (t MessageType) channel() string {
	if t == TypeFormatUpdate {
		return "format"
	}
	return "resume"
}

// Payload is the state carried by content messages.
type Payload struct {
	Resume *types.Resume         `json:"resume,omitempty"`
	Format *types.FormatSettings `json:"format,omitempty"`
}

// Envelope is one message on the channel.
type Envelope struct {
	Type    MessageType `json:"type"`
	Sender  string      `json:"sender,omitempty"`
	Hash    string      `json:"hash,omitempty"`
	Payload *Payload    `json:"payload,omitempty"`
	SentAt  time.Time   `json:"sent_at,omitempty"`
}

// Hash returns the content hash of a payload: hex SHA-256 of its JSON encoding.
func Hash(p *Payload) (string, error) {
	if p == nil {
		return "", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewEnvelope builds a stamped message. Content messages get their hash filled in.
func NewEnvelope(t MessageType, sender string, p *Payload) (Envelope, error) {
	env := Envelope{Type: t, Sender: sender, Payload: p, SentAt: time.Now().UTC()}
	if t.HasContent() {
		if p == nil {
			return env, &EnvelopeError{Message: fmt.Sprintf("%s without payload", t)}
		}
		h, err := Hash(p)
		if err != nil {
			return env, &EnvelopeError{Message: "hashing payload", Cause: err}
		}
		env.Hash = h
	}
	return env, nil
}

// Decode parses and validates a wire message. A content message without a hash gets one.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := schemas.ValidateBytes(schemas.Envelope, data); err != nil {
		return env, &EnvelopeError{Message: "invalid envelope", Cause: err}
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, &EnvelopeError{Message: "decoding envelope", Cause: err}
	}
	if env.Type.HasContent() && env.Hash == "" {
		h, err := Hash(env.Payload)
		if err != nil {
			return env, &EnvelopeError{Message: "hashing payload", Cause: err}
		}
		env.Hash = h
	}
	return env, nil
}
