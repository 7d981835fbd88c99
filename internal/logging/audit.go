// Package logging writes the JSON audit trail: one line per cipher operation,
// key recovery, recipe change and RPC decision.
package logging

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/RowanDark/cipherkit/internal/redact"
)

type EventType string

const (
	EventCipherOperation EventType = "cipher_operation"
	EventKeyRecovered    EventType = "key_recovered"
	EventSearchAborted   EventType = "search_aborted"
	EventRecipeSaved     EventType = "recipe_saved"
	EventRecipeDeleted   EventType = "recipe_deleted"
	EventKeyGenerated    EventType = "key_generated"
	EventTokenIssued     EventType = "token_issued"
	EventRPCCall         EventType = "rpc_call"
	EventRPCDenied       EventType = "rpc_denied"
)

type Decision string

const (
	DecisionInfo  Decision = "info"
	DecisionAllow Decision = "allow"
	DecisionDeny  Decision = "deny"
)

type AuditEvent struct {
	Timestamp time.Time      `json:"timestamp"`
	Component string         `json:"component"`
	Subject   string         `json:"subject,omitempty"`
	EventType EventType      `json:"event_type"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Decision  Decision       `json:"decision,omitempty"`
	Reason    string         `json:"reason,omitempty"`
}

// Option configures where a logger writes.
type Option func(*sinks) error

// sinks collects the outputs of a logger. Stdout is on unless WithoutStdout
// is given.
type sinks struct {
	extra   []io.Writer
	files   []io.Closer
	noStdio bool
}

func (s *sinks) writer() (io.Writer, error) {
	out := s.extra
	if !s.noStdio {
		out = append([]io.Writer{os.Stdout}, out...)
	}
	if len(out) == 0 {
		return nil, errors.New("audit logger has no outputs")
	}
	return io.MultiWriter(out...), nil
}

func (s *sinks) closeFiles() {
	for _, f := range s.files {
		_ = f.Close()
	}
}

// WithWriter adds w as an output.
func WithWriter(w io.Writer) Option {
	return func(s *sinks) error {
		if w == nil {
			return errors.New("audit writer is nil")
		}
		s.extra = append(s.extra, w)
		return nil
	}
}

// WithFile appends events to path, creating it with owner-only permissions.
func WithFile(path string) Option {
	return func(s *sinks) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("audit file path is empty")
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit file: %w", err)
		}
		s.extra = append(s.extra, f)
		s.files = append(s.files, f)
		return nil
	}
}

// WithoutStdout stops the logger from echoing events to stdout.
func WithoutStdout() Option {
	return func(s *sinks) error {
		s.noStdio = true
		return nil
	}
}

type auditCore struct {
	mu    sync.Mutex
	enc   *json.Encoder
	files []io.Closer
}

// AuditLogger is safe for concurrent use. Loggers derived with WithComponent
// share the parent's output and leave closing it to the parent.
type AuditLogger struct {
	component string
	core      *auditCore
	root      bool
}

// NewAuditLogger builds a logger tagging events with component.
func NewAuditLogger(component string, opts ...Option) (*AuditLogger, error) {
	s := &sinks{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.closeFiles()
			return nil, err
		}
	}
	w, err := s.writer()
	if err != nil {
		return nil, err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &AuditLogger{
		component: component,
		core:      &auditCore{enc: enc, files: s.files},
		root:      true,
	}, nil
}

// MustNewAuditLogger panics when NewAuditLogger fails.
func MustNewAuditLogger(component string, opts ...Option) *AuditLogger {
	logger, err := NewAuditLogger(component, opts...)
	if err != nil {
		panic(err)
	}
	return logger
}

// Discard returns a logger that drops every event.
func Discard(component string) *AuditLogger {
	return MustNewAuditLogger(component, WithoutStdout(), WithWriter(io.Discard))
}

// Close closes any files opened by WithFile. It is a no-op on derived
// loggers.
func (l *AuditLogger) Close() error {
	if l == nil || !l.root || l.core == nil {
		return nil
	}
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	var errs []error
	for _, f := range l.core.files {
		errs = append(errs, f.Close())
	}
	l.core.files = nil
	return errors.Join(errs...)
}

// Emit writes one event. Reason and metadata are redacted first.
func (l *AuditLogger) Emit(event AuditEvent) error {
	if l == nil || l.core == nil {
		return errors.New("audit logger is not initialised")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Timestamp = event.Timestamp.UTC()
	if event.Component == "" {
		event.Component = l.component
	}
	event.Reason = redact.String(event.Reason)
	event.Metadata = redact.Map(event.Metadata)

	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.enc.Encode(event)
}

// Operation records a cipher operation or pipeline run.
func (l *AuditLogger) Operation(subject, operation string, inputLen, outputLen int, err error) error {
	event := AuditEvent{
		Subject:   subject,
		EventType: EventCipherOperation,
		Decision:  DecisionAllow,
		Metadata: map[string]any{
			"operation":    operation,
			"input_bytes":  inputLen,
			"output_bytes": outputLen,
		},
	}
	if err != nil {
		event.Decision = DecisionDeny
		event.Reason = err.Error()
	}
	return l.Emit(event)
}

// KeyRecovered records a successful search. The key itself is never logged,
// only its length.
func (l *AuditLogger) KeyRecovered(subject, cipher string, keyLength int, score float64, candidates int64) error {
	return l.Emit(AuditEvent{
		Subject:   subject,
		EventType: EventKeyRecovered,
		Decision:  DecisionInfo,
		Metadata: map[string]any{
			"cipher":     cipher,
			"key_length": keyLength,
			"score":      score,
			"candidates": candidates,
		},
	})
}

// SearchAborted records a search stopped by cancellation or an error.
func (l *AuditLogger) SearchAborted(subject, cipher string, err error) error {
	return l.Emit(AuditEvent{
		Subject:   subject,
		EventType: EventSearchAborted,
		Decision:  DecisionDeny,
		Metadata:  map[string]any{"cipher": cipher},
		Reason:    err.Error(),
	})
}

// WithComponent returns a logger sharing l's output under another component
// name.
func (l *AuditLogger) WithComponent(component string) *AuditLogger {
	if l == nil || l.core == nil {
		return nil
	}
	return &AuditLogger{component: component, core: l.core}
}
