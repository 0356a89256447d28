package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/robertkozin/tiktok-direct-link/tr"
)

var _ Extractor = (*YTDLPExtractor)(nil)

type runFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

type YTDLPExtractor struct {
	Binary  string
	Cookies string

	run runFunc
}

func NewYTDLP(config *url.URL) (*YTDLPExtractor, error) {
	binary := config.Host + config.Path
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPExtractor{
		Binary:  binary,
		Cookies: config.Query().Get("cookies"),
		run:     runCommand,
	}, nil
}

func (y *YTDLPExtractor) String() string {
	return fmt.Sprintf("yt-dlp at %s", y.Binary)
}

// YTDLPError carries the message yt-dlp printed on stderr.
type YTDLPError struct {
	Message string
	Err     error
}

func (e *YTDLPError) Error() string { return e.Message }
func (e *YTDLPError) Unwrap() error { return e.Err }

type ytdlpInfo struct {
	URL              string `json:"url"`
	Title            string `json:"title"`
	Ext              string `json:"ext"`
	RequestedFormats []struct {
		URL string `json:"url"`
		Ext string `json:"ext"`
	} `json:"requested_formats"`
}

func (y *YTDLPExtractor) args(pageURL string, opts Options) []string {
	args := []string{
		"--dump-single-json", // implies --simulate, nothing is downloaded
		"--no-playlist",
		"--no-warnings",
		"--no-progress",
		"--no-cache-dir", // function filesystems are read-only outside /tmp
		"-f", opts.format(),
	}
	if y.Cookies != "" {
		args = append(args, "--cookies", y.Cookies)
	}
	return append(args, "--", pageURL)
}

func (y *YTDLPExtractor) Extract(ctx context.Context, pageURL string, opts Options) (result Result, err error) {
	ctx, span := tracer.Start(ctx, "ytdlp_extract")
	defer tr.End(span, &err)

	args := y.args(pageURL, opts)
	span.SetAttributes(attribute.String("media_url", pageURL), attribute.String("format", opts.format()))

	stdout, stderr, err := y.run(ctx, y.Binary, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		msg := stderrMessage(stderr)
		if msg == "" {
			msg = fmt.Sprintf("yt-dlp failed: %v", err)
		}
		return Result{}, &YTDLPError{Message: msg, Err: err}
	}

	stdout = bytes.TrimSpace(stdout)
	if len(stdout) == 0 {
		return Result{}, fmt.Errorf("yt-dlp returned empty output")
	}

	var info ytdlpInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return Result{}, fmt.Errorf("decoding yt-dlp output: %w", err)
	}

	result = Result{DirectURL: info.URL, Title: strings.TrimSpace(info.Title)}
	if result.DirectURL == "" {
		// merged selections only list their parts
		for _, f := range info.RequestedFormats {
			if f.URL != "" {
				result.DirectURL = f.URL
				break
			}
		}
	}
	span.SetAttributes(attribute.String("ext", info.Ext))
	return result, nil
}

// stderrMessage returns the last "ERROR:" line without its prefix, or the
// last non-empty line if yt-dlp printed no error marker.
func stderrMessage(stderr []byte) string {
	var last, lastError string
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		last = line
		if rest, ok := strings.CutPrefix(line, "ERROR:"); ok {
			lastError = strings.TrimSpace(rest)
		}
	}
	if lastError != "" {
		return lastError
	}
	return last
}

// commandWaitDelay bounds how long Wait holds the output pipes after the
// process is killed. Children of yt-dlp may keep them open.
var commandWaitDelay = 2 * time.Second

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = commandWaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
