// Package summary turns a site's recent events and an owner's question into a
// narrative answer from a language model. It does no aggregation of its own.
package summary

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"pulseboard/internal/events"
)

// Completer is the language model collaborator.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Request is one summary question.
type Request struct {
	Events   []events.TrackingEvent
	SiteName string
	Question string
}

type Service struct {
	completer Completer
	loc       *time.Location
	timeout   time.Duration
	logger    *slog.Logger
}

func NewService(completer Completer, loc *time.Location, timeout time.Duration, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{completer: completer, loc: loc, timeout: timeout, logger: logger}
}

// Summarize answers req.Question from the most recent events. The call is bounded
// by the service timeout; a deadline surfaces as ErrTimeout.
func (s *Service) Summarize(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", &events.ValidationError{Field: "userQuestion", Reason: "is required"}
	}

	simplified := Simplify(req.Events, s.loc)
	messages, err := BuildPrompt(req.SiteName, req.Question, simplified)
	if err != nil {
		return "", &UpstreamError{Err: err}
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := s.completer.Complete(ctx, messages)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
			err = ErrTimeout
		}
		s.logger.Warn("Summary request failed",
			slog.Int("events", len(simplified)),
			slog.Duration("elapsed", time.Since(started)),
			slog.Any("error", err))
		return "", err
	}

	s.logger.Debug("Summary generated",
		slog.Int("events", len(simplified)),
		slog.Duration("elapsed", time.Since(started)))
	return StripCodeFence(text), nil
}

// StripCodeFence removes a ``` fence wrapping the whole answer, keeping its body.
func StripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return trimmed
	}

	body := strings.TrimSuffix(trimmed, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "```")
	}
	return strings.TrimSpace(body)
}
