// Package extract resolves a video page URL into a direct media URL by
// delegating to an external extraction backend (yt-dlp or a cobalt instance).
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
)

const DefaultFormat = "mp4/best[ext=mp4]/best"

var (
	tracer = otel.Tracer("extract")

	ErrUnknownExtractor = errors.New("unknown extractor")
)

// Options tune a single extraction. Format is a best effort preference, the
// backend may negotiate something else when nothing matches.
type Options struct {
	Format string
}

func (o Options) format() string {
	if o.Format == "" {
		return DefaultFormat
	}
	return o.Format
}

// Result is the metadata an extractor returns. Empty fields are absent.
type Result struct {
	DirectURL string
	Title     string
}

func (r Result) TitleOr(fallback string) string {
	if r.Title == "" {
		return fallback
	}
	return r.Title
}

// Extractor must return metadata only and never write media to local storage.
// DirectURL is opaque and callers pass it through unmodified.
type Extractor interface {
	fmt.Stringer
	Extract(ctx context.Context, pageURL string, opts Options) (Result, error)
}

// New picks the backend from the scheme of config, e.g.
//
//	ytdlp:///opt/bin/yt-dlp?cookies=/var/task/cookies.txt
//	cobalt://cobalt.example.com/?key=secret
func New(config *url.URL, client *http.Client) (ex Extractor, err error) {
	switch config.Scheme {
	case "ytdlp":
		ex, err = NewYTDLP(config)
	case "cobalt":
		ex, err = NewCobalt(config, client)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownExtractor, config.Scheme)
	}
	return ex, err
}
