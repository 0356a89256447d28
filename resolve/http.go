package resolve

import (
	"errors"
	"io"
	"net/http"
	"strconv"
)

// ServeHTTP is the net/http adapter, used by the local server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var resp Response

	if r.Method != http.MethodPost {
		resp = h.Reject(r.Context(), Failure{Kind: MethodNotAllowed, Stage: StageReceived, Message: msgNotAllowed, Err: errors.New("method " + r.Method)})
		writeResponse(w, resp)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			resp = h.Reject(r.Context(), Failure{Kind: InvalidRequest, Stage: StageReceived, Message: invalidPrefix + errBodyTooLarge.Error(), Err: err})
		} else {
			resp = h.Reject(r.Context(), Failure{Kind: InvalidRequest, Stage: StageReceived, Message: invalidPrefix + "no se pudo leer el cuerpo.", Err: err})
		}
		writeResponse(w, resp)
		return
	}

	resp = h.Handle(r.Context(), body)
	writeResponse(w, resp)
}

func writeResponse(w http.ResponseWriter, resp Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.Body)))
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
