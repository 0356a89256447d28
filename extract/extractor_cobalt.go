package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/robertkozin/tiktok-direct-link/tr"
)

var _ Extractor = (*CobaltExtractor)(nil)

type CobaltExtractor struct {
	Endpoint string
	APIKey   string

	client *http.Client
}

func NewCobalt(config *url.URL, client *http.Client) (*CobaltExtractor, error) {
	if config.Host == "" {
		return nil, fmt.Errorf("cobalt extractor needs a host: %s", config.Redacted())
	}

	endpoint := *config
	query := config.Query()

	endpoint.RawQuery = ""
	endpoint.User = nil

	endpoint.Scheme = "https"
	if query.Has("insecure") {
		endpoint.Scheme = "http"
	}

	if client == nil {
		client = http.DefaultClient
	}

	return &CobaltExtractor{
		Endpoint: endpoint.String(),
		APIKey:   query.Get("key"),
		client:   client,
	}, nil
}

func (c *CobaltExtractor) String() string {
	return fmt.Sprintf("cobalt.tools at %s", c.Endpoint)
}

type CobaltRequest struct {
	Url               string `json:"url"`
	DownloadMode      string `json:"downloadMode,omitempty"`
	VideoQuality      string `json:"videoQuality,omitempty"`
	YoutubeVideoCodec string `json:"youtubeVideoCodec,omitempty"`
}

type CobaltError struct {
	Status string `json:"status"`
	Err    struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (ce CobaltError) Error() string {
	return "cobalt error: " + ce.Err.Code
}

type CobaltResponse struct {
	Status   string         `json:"status"` // tunnel / local-processing / redirect / picker / error
	Url      string         `json:"url"`
	Filename string         `json:"filename"`
	Picker   []CobaltPicker `json:"picker"`
	Error    struct {
		Code string `json:"code"`
	} `json:"error"`
}

type CobaltPicker struct {
	Type string `json:"type"` // photo / video / gif
	Url  string `json:"url"`
}

func (c *CobaltExtractor) Extract(ctx context.Context, pageURL string, opts Options) (result Result, err error) {
	ctx, span := tracer.Start(ctx, "cobalt_extract")
	defer tr.End(span, &err)

	span.SetAttributes(attribute.String("media_url", pageURL), attribute.String("endpoint", c.Endpoint))

	req := CobaltRequest{
		Url:          pageURL,
		DownloadMode: "auto",
		VideoQuality: "max",
	}
	// cobalt has no format selector, h264 is what lands in an mp4 container
	if strings.Contains(opts.format(), "mp4") {
		req.YoutubeVideoCodec = "h264"
	}

	var headers []string
	if c.APIKey != "" {
		headers = []string{"Authorization", "Api-Key " + c.APIKey}
	}

	_, value, err := JSONRequest[CobaltResponse, CobaltError](ctx, c.client, http.MethodPost, c.Endpoint, req, headers...)
	if err != nil {
		var ce CobaltError
		if errors.As(err, &ce) {
			return Result{}, ce
		}
		return Result{}, fmt.Errorf("making cobalt request: %w", err)
	}

	switch value.Status {
	case "redirect", "tunnel":
		return Result{DirectURL: value.Url, Title: titleFromFilename(value.Filename)}, nil
	case "picker":
		return Result{DirectURL: pickVideo(value.Picker)}, nil
	case "error":
		ce := CobaltError{Status: value.Status}
		ce.Err.Code = value.Error.Code
		return Result{}, ce
	default:
		return Result{}, fmt.Errorf("unexpected cobalt response type: %s", value.Status)
	}
}

func pickVideo(items []CobaltPicker) string {
	for _, p := range items {
		if p.Type == "video" && p.Url != "" {
			return p.Url
		}
	}
	if len(items) > 0 {
		return items[0].Url
	}
	return ""
}

func titleFromFilename(filename string) string {
	return strings.TrimSpace(strings.TrimSuffix(filename, path.Ext(filename)))
}
