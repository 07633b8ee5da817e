// Package chat runs a user message through screening, retrieval and generation.
package chat

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kailas-cloud/solace/internal/domain"
	"github.com/kailas-cloud/solace/internal/domain/document"
	"github.com/kailas-cloud/solace/internal/metrics"
	"github.com/kailas-cloud/solace/internal/tracing"
	"github.com/kailas-cloud/solace/internal/usecase/safety"
)

// Safety statuses reported to clients.
const (
	StatusPass    = "pass"
	StatusWarning = "warning"
	StatusBlocked = "blocked"
)

// FallbackMessage is returned when no therapy excerpt passes the similarity threshold.
const FallbackMessage = "I understand you're going through a difficult time. While I don't have specific " +
	"resources for this right now, please consider speaking with a mental health professional " +
	"who can provide personalized support."

// Request is a single chat turn.
type Request struct {
	Message   string
	History   []domain.Turn
	RequestID string
}

// Response is the reply to a chat turn.
type Response struct {
	Response     string
	SafetyStatus string
	LatencyMS    float64
	SourcesUsed  int
	RequestID    string
}

// Service orchestrates a chat turn.
type Service struct {
	screen    Screener
	retriever Retriever
	generator Generator
	stats     *Stats
	tracer    trace.Tracer
	model     string
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithModel sets the model name attached to generation spans.
func WithModel(model string) Option {
	return func(s *Service) { s.model = model }
}

// New creates a chat service. stats may be shared with the /stats handler.
func New(
	screen Screener, retriever Retriever, generator Generator,
	stats *Stats, logger *zap.Logger, opts ...Option,
) *Service {
	if stats == nil {
		stats = NewStats()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		screen:    screen,
		retriever: retriever,
		generator: generator,
		stats:     stats,
		tracer:    tracing.Tracer(),
		logger:    logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Stats returns the shared stats collector.
func (s *Service) Stats() *Stats { return s.stats }

// Chat screens the message, retrieves context and generates a reply.
// High-risk messages are answered with crisis resources without retrieval.
func (s *Service) Chat(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "chat_request", trace.WithAttributes(
		attribute.String("request_id", req.RequestID),
	))
	defer span.End()

	message := s.screen.Sanitize(req.Message)
	verdict := s.check(ctx, message)
	flagged := verdict.RiskLevel != safety.RiskLow
	if flagged {
		metrics.ChatSafetyBlocksTotal.Inc()
	}

	if verdict.RiskLevel == safety.RiskHigh {
		s.logger.Warn("chat_blocked", zap.String("request_id", req.RequestID))
		reply := verdict.Message
		if reply == "" {
			reply = safety.CrisisMessage
		}
		return s.finish(span, req, start, reply, StatusBlocked, 0, true), nil
	}

	docs, err := s.retrieve(ctx, message)
	if err != nil {
		s.fail(span, req, err)
		return Response{}, err
	}

	status := StatusPass
	if verdict.RiskLevel == safety.RiskMedium {
		status = StatusWarning
	}

	if len(docs) == 0 {
		return s.finish(span, req, start, FallbackMessage, status, 0, flagged), nil
	}

	contexts := make([]string, len(docs))
	for i := range docs {
		contexts[i] = docs[i].Content()
	}

	reply, err := s.generate(ctx, message, contexts, req.History)
	if err != nil {
		s.fail(span, req, err)
		return Response{}, err
	}

	return s.finish(span, req, start, reply, status, len(docs), flagged), nil
}

func (s *Service) check(ctx context.Context, message string) safety.Result {
	_, span := s.tracer.Start(ctx, "safety_check")
	defer span.End()

	r := s.screen.Check(message)
	span.SetAttributes(
		attribute.String("risk_level", string(r.RiskLevel)),
		attribute.String("action", string(r.Action)),
	)
	return r
}

func (s *Service) retrieve(ctx context.Context, query string) ([]document.Document, error) {
	ctx, span := s.tracer.Start(ctx, "retrieval")
	defer span.End()

	docs, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "retrieval failed")
		return nil, err //nolint:wrapcheck // sentinel mapped at the HTTP edge
	}

	topics := make([]string, len(docs))
	scores := make([]float64, len(docs))
	for i := range docs {
		topics[i] = docs[i].Topic()
		scores[i] = math.Round(docs[i].Score()*1000) / 1000
	}
	span.SetAttributes(
		attribute.Int("documents_found", len(docs)),
		attribute.StringSlice("topics", topics),
		attribute.Float64Slice("scores", scores),
	)
	return docs, nil
}

func (s *Service) generate(ctx context.Context, query string, contexts []string, history []domain.Turn) (string, error) {
	ctx, span := s.tracer.Start(ctx, "llm_generate", trace.WithAttributes(
		attribute.String("model", s.model),
		attribute.Int("context_chunks", len(contexts)),
	))
	defer span.End()

	reply, err := s.generator.Generate(ctx, query, contexts, history)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		return "", err //nolint:wrapcheck // sentinel mapped at the HTTP edge
	}
	span.SetAttributes(attribute.Int("response_length", len(reply)))
	return reply, nil
}

func (s *Service) finish(
	span trace.Span, req Request, start time.Time,
	reply, status string, sources int, flagged bool,
) Response {
	elapsed := time.Since(start)
	s.stats.Record(elapsed, flagged)
	metrics.ChatRequestsTotal.WithLabelValues(status).Inc()

	latency := math.Round(float64(elapsed.Microseconds())/10) / 100
	span.SetAttributes(
		attribute.String("safety_status", status),
		attribute.Int("sources_used", sources),
		attribute.Float64("latency_ms", latency),
	)
	return Response{
		Response:     reply,
		SafetyStatus: status,
		LatencyMS:    latency,
		SourcesUsed:  sources,
		RequestID:    req.RequestID,
	}
}

func (s *Service) fail(span trace.Span, req Request, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.logger.Error("chat_error", zap.String("request_id", req.RequestID), zap.Error(err))
}
