package resolve

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Kind classifies a failed invocation.
type Kind int

const (
	InvalidRequest Kind = iota + 1
	MethodNotAllowed
	ExtractionFailure
	ExtractionTimeout
	InternalError
)

func (k Kind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid_request"
	case MethodNotAllowed:
		return "method_not_allowed"
	case ExtractionFailure:
		return "extraction_failure"
	case ExtractionTimeout:
		return "extraction_timeout"
	case InternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

func (k Kind) Status() int {
	switch k {
	case InvalidRequest:
		return http.StatusBadRequest
	case MethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Stage is where an invocation was when it finished.
type Stage string

const (
	StageReceived   Stage = "received"
	StageParsed     Stage = "parsed"
	StageExtracting Stage = "extracting"
)

// Outcome is either a Success or a Failure.
type Outcome interface {
	outcome()
}

type Success struct {
	VideoURL string
	Title    string
}

type Failure struct {
	Kind    Kind
	Stage   Stage
	Message string // returned to the caller
	URL     string
	Err     error // logged only
}

func (Success) outcome() {}
func (Failure) outcome() {}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

type successBody struct {
	Success  bool   `json:"success"`
	VideoURL string `json:"video_url"`
	Title    string `json:"title"`
}

type errorBody struct {
	Error string `json:"error"`
}

type failureBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

var fallbackBody = []byte(`{"success":false,"error":"Error interno del servidor."}`)

func respond(o Outcome) Response {
	resp := Response{Headers: map[string]string{"Content-Type": "application/json"}}

	var body any
	switch o := o.(type) {
	case Success:
		resp.StatusCode = http.StatusOK
		body = successBody{Success: true, VideoURL: o.VideoURL, Title: o.Title}
	case Failure:
		resp.StatusCode = o.Kind.Status()
		switch o.Kind {
		case InvalidRequest:
			body = errorBody{Error: o.Message}
		case MethodNotAllowed:
			resp.Headers["Allow"] = http.MethodPost
			body = errorBody{Error: o.Message}
		default:
			body = failureBody{Success: false, Error: o.Message}
		}
	default:
		resp.StatusCode = http.StatusInternalServerError
		resp.Body = fallbackBody
		return resp
	}

	b, err := marshal(body)
	if err != nil {
		resp.StatusCode = http.StatusInternalServerError
		b = fallbackBody
	}
	resp.Body = b
	return resp
}

// marshal keeps '&' in signed media URLs literal instead of \u0026.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
