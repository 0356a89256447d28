package resolve

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// HandleAPIGateway is the AWS Lambda adapter. Netlify Go functions receive
// the same API Gateway proxy event. The returned error is always nil, every
// failure travels in the response body.
func (h *Handler) HandleAPIGateway(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if req.HTTPMethod != "" && !strings.EqualFold(req.HTTPMethod, http.MethodPost) {
		f := Failure{Kind: MethodNotAllowed, Stage: StageReceived, Message: msgNotAllowed, Err: errors.New("method " + req.HTTPMethod)}
		return toAPIGateway(h.Reject(ctx, f)), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			f := Failure{Kind: InvalidRequest, Stage: StageReceived, Message: invalidPrefix + "cuerpo base64 no válido.", Err: fmt.Errorf("decoding base64 body: %w", err)}
			return toAPIGateway(h.Reject(ctx, f)), nil
		}
		body = decoded
	}

	if int64(len(body)) > h.maxBodyBytes() {
		f := Failure{Kind: InvalidRequest, Stage: StageReceived, Message: invalidPrefix + errBodyTooLarge.Error(), Err: fmt.Errorf("body is %d bytes", len(body))}
		return toAPIGateway(h.Reject(ctx, f)), nil
	}

	return toAPIGateway(h.Handle(ctx, body)), nil
}

func toAPIGateway(resp Response) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Headers,
		Body:       string(resp.Body),
	}
}
