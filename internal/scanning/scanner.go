package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zombor/travel-receipt/internal/extraction"
)

// ErrStaleResult is returned when a newer recognition request was issued for the
// same session before this one completed.
var ErrStaleResult = errors.New("stale recognition result")

// Recognizer turns a receipt image into recognized text lines with their
// vertical positions (origin at the bottom of the image).
type Recognizer interface {
	// Recognize reads every text line of the image
	Recognize(ctx context.Context, imageData []byte, contentType string) ([]extraction.Fragment, error)
	// Close releases resources held by the recognizer
	Close() error
}

// Scan is one completed recognition request.
type Scan struct {
	Seq    uint64            `json:"seq"`
	Result extraction.Result `json:"result"`
}

// Sequencer issues monotonically increasing request numbers per session and
// remembers the latest one issued.
type Sequencer struct {
	mu     sync.Mutex
	next   uint64
	latest map[string]uint64
}

// NewSequencer creates an empty Sequencer.
func NewSequencer() *Sequencer {
	return &Sequencer{latest: make(map[string]uint64)}
}

// Issue returns a new request number and marks it as the latest for session.
func (s *Sequencer) Issue(session string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.latest[session] = s.next
	return s.next
}

// Latest reports whether seq is still the newest request of session.
func (s *Sequencer) Latest(session string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[session] == seq
}

// Forget drops the session once its result has been consumed.
func (s *Sequencer) Forget(session string, seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest[session] == seq {
		delete(s.latest, session)
	}
}

// Scanner runs a recognizer and the extraction engine, discarding results that
// were superseded while recognition was in flight.
type Scanner struct {
	recognizer Recognizer
	seq        *Sequencer
	opts       []extraction.Option
}

// NewScanner creates a Scanner. The options are applied to every extraction.
func NewScanner(r Recognizer, opts ...extraction.Option) *Scanner {
	return &Scanner{
		recognizer: r,
		seq:        NewSequencer(),
		opts:       opts,
	}
}

// Scan recognizes the image and extracts the receipt fields. A failed recognition
// yields an empty result. ErrStaleResult is returned if another Scan for the same
// session started before this one finished.
func (s *Scanner) Scan(ctx context.Context, session string, imageData []byte, contentType string) (*Scan, error) {
	seq := s.seq.Issue(session)

	fragments, err := s.recognizer.Recognize(ctx, imageData, contentType)
	if err != nil {
		slog.Error("Failed to recognize receipt",
			"session", session,
			"seq", seq,
			"content_type", contentType,
			"file_size", len(imageData),
			"error", err,
		)
		fragments = nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("recognizing receipt: %w", ctxErr)
	}

	if !s.seq.Latest(session, seq) {
		slog.Info("Discarding stale recognition result", "session", session, "seq", seq)
		return nil, fmt.Errorf("request %d: %w", seq, ErrStaleResult)
	}
	s.seq.Forget(session, seq)

	return &Scan{Seq: seq, Result: extraction.Parse(fragments, s.opts...)}, nil
}

// Close closes the underlying recognizer.
func (s *Scanner) Close() error {
	return s.recognizer.Close()
}
