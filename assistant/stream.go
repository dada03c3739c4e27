package assistant

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"repochat"
	"repochat/ndjson"
)

// stream implements [repochat.Stream] over a chunked NDJSON response body.
// Body chunks are reassembled into records by an ndjson.Decoder, then each
// record is classified into a typed event.
type stream struct {
	body    io.ReadCloser
	dec     *ndjson.Decoder
	logger  *slog.Logger
	readBuf []byte
	pending []repochat.StreamEvent
	eof     bool
	closed  bool
}

// Interface compliance check.
var _ repochat.Stream = (*stream)(nil)

func newStream(body io.ReadCloser, logger *slog.Logger) *stream {
	return &stream{
		body:    body,
		dec:     ndjson.NewDecoder(),
		logger:  logger,
		readBuf: make([]byte, 4096),
	}
}

// Next returns the next classified event, reading more body chunks as
// needed. Returns io.EOF once the body is exhausted and every buffered
// record has been yielded.
func (s *stream) Next() (repochat.StreamEvent, error) {
	if s.closed {
		return nil, repochat.ErrStreamClosed
	}

	for {
		if len(s.pending) > 0 {
			evt := s.pending[0]
			s.pending = s.pending[1:]
			return evt, nil
		}
		if s.eof {
			return nil, io.EOF
		}

		n, err := s.body.Read(s.readBuf)
		if n > 0 {
			for _, record := range s.dec.Feed(s.readBuf[:n]) {
				s.classify(record)
			}
		}
		if err == io.EOF {
			// The final record may lack a trailing newline.
			if last, ok := s.dec.Flush(); ok {
				s.classify(last)
			}
			s.eof = true
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("assistant: read stream: %w", err)
		}
	}
}

// Close tears down the transport handle. Safe to call at any point; events
// already classified but not yet returned are discarded.
func (s *stream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.body.Close()
}

// wireRecord is the self-describing NDJSON record. The Type discriminant
// names the event; the remaining fields are populated per type.
type wireRecord struct {
	Type           string          `json:"type"`
	Content        string          `json:"content"`
	Name           string          `json:"name"`
	Arguments      json.RawMessage `json:"arguments"`
	Result         json.RawMessage `json:"result"`
	ChatID         string          `json:"chat_id"`
	ConversationID string          `json:"conversation_id"`
	DailyUsage     *wireUsage      `json:"daily_usage"`
	Error          string          `json:"error"`
	ErrorType      string          `json:"error_type"`
}

type wireUsage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// classify parses one record and queues the resulting event. A record that
// fails to parse becomes a non-fatal parse error event; a record with an
// unrecognized discriminant is logged and dropped so server-added event
// types stay forward compatible.
func (s *stream) classify(record string) {
	var rec wireRecord
	if err := json.Unmarshal([]byte(record), &rec); err != nil {
		s.logger.Warn("malformed stream record", "error", err)
		s.queue(repochat.EventError{
			Message: fmt.Sprintf("malformed stream record: %v", err),
			Type:    repochat.ErrorTypeParse,
		})
		return
	}

	switch rec.Type {
	case "metadata":
		s.queue(repochat.EventMetadata{ChatID: rec.ChatID, ConversationID: rec.ConversationID})
	case "token":
		// Empty content is still a delivery.
		s.queue(repochat.EventToken{Content: rec.Content})
	case "function_call":
		s.queue(repochat.EventFunctionCall{Name: rec.Name, Arguments: rec.Arguments})
	case "function_complete":
		s.queue(repochat.EventFunctionComplete{Name: rec.Name, Result: rec.Result})
	case "complete":
		var usage *repochat.DailyUsage
		if rec.DailyUsage != nil {
			usage = &repochat.DailyUsage{Used: rec.DailyUsage.Used, Limit: rec.DailyUsage.Limit}
		}
		s.queue(repochat.EventComplete{Usage: usage})
	case "error":
		s.queue(repochat.EventError{Message: rec.Error, Type: mapErrorType(rec.ErrorType)})
	case "done":
		s.queue(repochat.EventDone{})
	default:
		s.logger.Debug("skipping unknown stream record", "type", rec.Type)
	}
}

func (s *stream) queue(evt repochat.StreamEvent) {
	s.pending = append(s.pending, evt)
}
