// Package resolve implements the endpoint that turns a video page URL into a
// direct media URL.
//
// Every invocation runs parse, extract and respond in order and ends in one
// Outcome, which maps to exactly one response shape:
//
//	200 {"success": true, "video_url": "...", "title": "..."}
//	400 {"error": "..."}
//	500 {"success": false, "error": "..."}
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/robertkozin/tiktok-direct-link/extract"
	"github.com/robertkozin/tiktok-direct-link/tr"
)

const (
	DefaultTimeout      = 12 * time.Second
	DefaultTitle        = "Video"
	DefaultMaxBodyBytes = 64 * 1024

	// DeadlineMargin is left free before a caller deadline to write the
	// timeout response. Short deadlines keep a tenth of what remains instead.
	DeadlineMargin = 500 * time.Millisecond

	invalidPrefix    = "Solicitud inválida: "
	extractionPrefix = "Error al procesar el video: "
	msgInternal      = "Error interno del servidor."
	msgNoMediaURL    = "No se pudo encontrar la URL del video."
	msgNotAllowed    = "Método no permitido."
)

var (
	tracer = otel.Tracer("resolve")

	errMissingURL     = errors.New("URL no proporcionada en la solicitud.")
	errInvalidURL     = errors.New("URL no válida.")
	errUnsupportedURL = errors.New("URL no soportada.")
	errBodyTooLarge   = errors.New("cuerpo de la solicitud demasiado grande.")

	errTimeout = errors.New("extraction timed out")
)

type Request struct {
	URL string `json:"url"`
}

// Handler is safe for concurrent use. Its fields must not change once it
// serves requests.
type Handler struct {
	Extractor extract.Extractor
	Logger    *slog.Logger

	Timeout        time.Duration
	Format         string
	DefaultTitle   string
	SourcePatterns []string // empty accepts any http(s) URL
	MaxBodyBytes   int64
}

// Handle runs one invocation. It never panics and always returns a JSON body.
func (h *Handler) Handle(ctx context.Context, rawBody []byte) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = respond(internalFailure(StageReceived, "", fmt.Errorf("panic: %v", r)))
		}
	}()

	requestID := uuid.NewString()
	log := h.logger().With("request_id", requestID)

	ctx, span := tracer.Start(ctx, "resolve")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", requestID))

	log.Info("request received", "bytes", len(rawBody))

	outcome := h.run(ctx, log, rawBody)

	switch o := outcome.(type) {
	case Success:
		span.SetAttributes(attribute.String("outcome", "success"))
		tr.Ok(span)
	case Failure:
		span.SetAttributes(attribute.String("outcome", o.Kind.String()), attribute.String("media_url", o.URL))
		tr.Fail(span, o.Err, o.Message)
		h.logFailure(log, o)
	}

	return respond(outcome)
}

// Reject answers without running the pipeline, for failures a transport
// adapter detects before it has a body.
func (h *Handler) Reject(ctx context.Context, f Failure) Response {
	_, span := tracer.Start(ctx, "resolve")
	defer span.End()
	span.SetAttributes(attribute.String("outcome", f.Kind.String()))
	tr.Fail(span, f.Err, f.Message)

	h.logFailure(h.logger().With("request_id", uuid.NewString()), f)
	return respond(f)
}

func (h *Handler) run(ctx context.Context, log *slog.Logger, rawBody []byte) (outcome Outcome) {
	stage := StageReceived
	var pageURL string
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic", "panic", r, "stack", string(debug.Stack()))
			outcome = internalFailure(stage, pageURL, fmt.Errorf("panic: %v", r))
		}
	}()

	req, err := h.parse(rawBody)
	if err != nil {
		return Failure{Kind: InvalidRequest, Stage: stage, Message: invalidPrefix + err.Error(), URL: req.URL, Err: err}
	}
	stage, pageURL = StageParsed, req.URL
	log.Info("url received", "url", pageURL)

	stage = StageExtracting
	limit := h.limit(ctx)
	log.Info("extracting", "url", pageURL, "extractor", h.Extractor.String(), "format", h.Format, "timeout", limit)

	start := time.Now()
	result, err := h.extract(ctx, pageURL, limit)
	elapsed := time.Since(start)

	var pe *panicError
	switch {
	case errors.As(err, &pe):
		log.Error("panic in extractor", "panic", pe.value, "stack", pe.stack)
		return internalFailure(stage, pageURL, err)
	case errors.Is(err, errTimeout):
		return Failure{
			Kind:    ExtractionTimeout,
			Stage:   stage,
			Message: fmt.Sprintf("%stiempo de espera agotado tras %s.", extractionPrefix, limit),
			URL:     pageURL,
			Err:     err,
		}
	case errors.Is(err, context.Canceled):
		return internalFailure(stage, pageURL, err)
	case err != nil:
		return Failure{Kind: ExtractionFailure, Stage: stage, Message: extractionPrefix + err.Error(), URL: pageURL, Err: err}
	case result.DirectURL == "":
		return Failure{Kind: ExtractionFailure, Stage: stage, Message: extractionPrefix + msgNoMediaURL, URL: pageURL, Err: errors.New("extractor returned no media url")}
	}

	log.Info("extraction succeeded", "url", pageURL, "elapsed", elapsed)
	return Success{VideoURL: result.DirectURL, Title: result.TitleOr(h.defaultTitle())}
}

// parse returns the caller facing reason on error. The returned Request may
// carry the raw url for logging even when it was rejected.
func (h *Handler) parse(rawBody []byte) (Request, error) {
	var req Request
	if len(strings.TrimSpace(string(rawBody))) == 0 {
		return req, errMissingURL
	}
	if err := json.Unmarshal(rawBody, &req); err != nil {
		return Request{}, err
	}

	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		return req, errMissingURL
	}

	u, err := url.Parse(req.URL)
	if err != nil || !u.IsAbs() || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return req, errInvalidURL
	}

	if len(h.SourcePatterns) > 0 && !extract.MatchesAny(req.URL, h.SourcePatterns) {
		return req, errUnsupportedURL
	}
	return req, nil
}

type extraction struct {
	result extract.Result
	err    error
}

type panicError struct {
	value any
	stack string
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

// extract makes the single extraction attempt. It stops waiting at the
// deadline even if the extractor ignores ctx. The late result is dropped.
func (h *Handler) extract(ctx context.Context, pageURL string, limit time.Duration) (extract.Result, error) {
	ctx, span := tracer.Start(ctx, "extract")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	done := make(chan extraction, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extraction{err: &panicError{value: r, stack: string(debug.Stack())}}
			}
		}()
		result, err := h.Extractor.Extract(ctx, pageURL, extract.Options{Format: h.Format})
		done <- extraction{result: result, err: err}
	}()

	var out extraction
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = ctx.Err()
	}

	if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.err = fmt.Errorf("%w: %w", errTimeout, out.err)
	}
	if out.err != nil {
		tr.Fail(span, out.err, out.err.Error())
	}
	return out.result, out.err
}

func (h *Handler) logFailure(log *slog.Logger, f Failure) {
	log.Error("request failed",
		"kind", f.Kind.String(),
		"stage", string(f.Stage),
		"url", f.URL,
		"status", f.Kind.Status(),
		"err", f.Err,
	)
}

func internalFailure(stage Stage, pageURL string, err error) Failure {
	return Failure{Kind: InternalError, Stage: stage, Message: msgInternal, URL: pageURL, Err: err}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(safeHandler{h.Logger.Handler()})
}

func (h *Handler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return DefaultTimeout
	}
	return h.Timeout
}

// limit is the extraction ceiling for ctx: Timeout, shortened to end before
// the caller's deadline with room left to answer.
func (h *Handler) limit(ctx context.Context) time.Duration {
	limit := h.timeout()
	deadline, ok := ctx.Deadline()
	if !ok {
		return limit
	}
	left := time.Until(deadline)
	left -= min(DeadlineMargin, left/10)
	if left < limit {
		limit = max(left, 0)
	}
	return limit.Round(time.Millisecond)
}

func (h *Handler) defaultTitle() string {
	if h.DefaultTitle == "" {
		return DefaultTitle
	}
	return h.DefaultTitle
}

func (h *Handler) maxBodyBytes() int64 {
	if h.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return h.MaxBodyBytes
}
