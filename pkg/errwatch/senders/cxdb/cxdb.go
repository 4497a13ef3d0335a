// Package cxdb provides a Sender that persists notices to cxdb as SystemMessage items.
package cxdb

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"
	"github.com/strongdm/errwatch/pkg/errwatch"
)

// ContextIDKey is the notice context key naming the cxdb context a notice
// belongs to. Notices without it go to a new orphan context.
const ContextIDKey = "cxdb_context_id"

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// Option configures the cxdb Sender.
type Option func(*Sender)

// WithOrphanLabels sets labels for orphan error contexts.
func WithOrphanLabels(labels []string) Option {
	return func(s *Sender) {
		s.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) Option {
	return func(s *Sender) {
		s.clientTag = tag
	}
}

// Sender writes notices to cxdb.
type Sender struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string
}

// New creates a Sender that writes to cxdb.
func New(client CXDBClient, opts ...Option) *Sender {
	s := &Sender{
		client:       client,
		orphanLabels: []string{"error", "unlinked"},
		clientTag:    "errwatch",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends the notice to its cxdb context, creating an orphan context
// when the notice names none. The notice ID is the idempotency key.
func (s *Sender) Send(ctx context.Context, payload []byte) (*errwatch.Result, error) {
	p, err := errwatch.DecodePayload(payload)
	if err != nil {
		return nil, err
	}

	contextID, ok := contextIDOf(p.Context)
	isOrphan := !ok
	if isOrphan {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("create orphan context: %w", err)
		}
		contextID = head.ContextID
	}

	item := s.buildConversationItem(p, payload, isOrphan)

	// Encode to msgpack using the official cxdb encoder.
	encoded, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        encoded,
		IdempotencyKey: p.ID,
	}

	if _, err := s.client.AppendTurn(ctx, req); err != nil {
		return nil, fmt.Errorf("append turn: %w", err)
	}
	return &errwatch.Result{ID: p.ID}, nil
}

// buildConversationItem wraps the notice JSON in a SystemMessage item.
func (s *Sender) buildConversationItem(p errwatch.Payload, raw []byte, isOrphan bool) *cxdtypes.ConversationItem {
	// Build title: "class: truncated_message"
	title := p.Error.Class
	if p.Error.Message != "" {
		const maxMsgLen = 80
		msg := []rune(p.Error.Message)
		if len(msg) > maxMsgLen {
			msg = append(msg[:maxMsgLen], []rune("...")...)
		}
		title = p.Error.Class + ": " + string(msg)
	}
	if r := []rune(title); len(r) > 100 {
		title = string(r[:97]) + "..."
	}

	timestamp := time.Now()
	if t, err := time.Parse(time.RFC3339, p.OccurredAt); err == nil {
		timestamp = t
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: timestamp.UnixMilli(),
		ID:        p.ID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title,
			Content: string(raw),
		},
	}

	// cxdb expects context metadata on the first turn of a context.
	if isOrphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.orphanLabels,
			ClientTag: s.clientTag,
		}
	}
	return item
}

// contextIDOf reads ContextIDKey from a decoded notice context. JSON numbers
// decode as float64; numeric strings are accepted too.
func contextIDOf(m map[string]any) (uint64, bool) {
	switch v := m[ContextIDKey].(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) {
			return 0, false
		}
		return uint64(v), true
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		return id, err == nil
	}
	return 0, false
}
