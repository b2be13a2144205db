package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	boardTracerName  = "kanban-api/api"
	boardSpanName    = "kanban.board.request"
	boardEventName   = "kanban.board.request"
	boardEventDomain = "kanban.api"

	metricsContextKey = "kanban.metrics"
)

// boardRequestMetrics collects timings and board attributes of one request
// and reports them as a span plus an observability.event log entry.
type boardRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	route          string
	method         string
	command        string
	applyDuration  time.Duration
	storiesTotal   int
	storiesCounted bool
	errorStage     string
}

func newBoardRequestMetrics(ctx context.Context, logger *log.Logger) (*boardRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(boardTracerName).Start(ctx, boardSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &boardRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}, spanCtx
}

// observe wraps every API handler with request metrics.
func observe(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			metrics, spanCtx := newBoardRequestMetrics(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(spanCtx))
			metrics.route = c.Path()
			metrics.method = c.Request().Method
			c.Set(metricsContextKey, metrics)

			err := next(c)
			status := c.Response().Status
			if err != nil && !c.Response().Committed {
				status = http.StatusInternalServerError
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			metrics.Log(status, err)
			return err
		}
	}
}

func metricsFrom(c echo.Context) *boardRequestMetrics {
	m, _ := c.Get(metricsContextKey).(*boardRequestMetrics)
	return m
}

func (m *boardRequestMetrics) SetCommand(command string) {
	if m == nil {
		return
	}
	m.command = command
}

func (m *boardRequestMetrics) ObserveApply(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.applyDuration = duration
}

func (m *boardRequestMetrics) SetStoriesTotal(count int) {
	if m == nil {
		return
	}
	if count < 0 {
		count = 0
	}
	m.storiesTotal = count
	m.storiesCounted = true
}

func (m *boardRequestMetrics) SetErrorStage(stage string) {
	if m == nil || stage == "" {
		return
	}
	m.errorStage = stage
}

func (m *boardRequestMetrics) attributes(status int, err error) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64("kanban.total_ms", durationToMillis(time.Since(m.start))),
	}
	if m.method != "" {
		attrs = append(attrs, attribute.String("http.method", m.method))
	}
	if m.command != "" {
		attrs = append(attrs, attribute.String("kanban.command", m.command))
	}
	if m.applyDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.apply_ms", durationToMillis(m.applyDuration)))
	}
	if m.storiesCounted {
		attrs = append(attrs, attribute.Int("kanban.stories_total", m.storiesTotal))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("kanban.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}
	return attrs
}

// Log ends the span and emits the observability event.
func (m *boardRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	severityText, severityNumber := severityForStatus(status, err)
	attrs := m.attributes(status, err)

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", boardEventName),
			attribute.String("event.domain", boardEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		switch {
		case err != nil:
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		case status >= http.StatusInternalServerError:
			m.span.SetStatus(codes.Error, http.StatusText(status))
		default:
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	logged := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		logged[string(kv.Key)] = kv.Value.AsInterface()
	}
	fields := log.Fields{
		"event.name":      boardEventName,
		"event.domain":    boardEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      logged,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.IsValid() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	m.logger.WithFields(fields).Log(levelForSeverity(severityNumber), "observability.event")
}

// severityForStatus maps a response to OpenTelemetry severity text and number.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func levelForSeverity(number int) log.Level {
	switch {
	case number >= 17:
		return log.ErrorLevel
	case number >= 13:
		return log.WarnLevel
	default:
		return log.InfoLevel
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
