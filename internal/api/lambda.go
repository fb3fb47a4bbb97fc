package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// HandleAPIGateway serves API Gateway proxy events with the same contract as
// the HTTP routes.
func (h *Handlers) HandleAPIGateway(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if event.HTTPMethod == http.MethodOptions {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusOK,
			Headers:    corsResponseHeaders(http.StatusOK),
		}, nil
	}

	status, body := h.Search(ctx, ParseRequest(queryValues(event)))

	data, err := json.Marshal(body)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		data, _ = json.Marshal(newErrorResponse(err))
	}

	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    corsResponseHeaders(status),
		Body:       string(data),
	}, nil
}

// corsResponseHeaders mirrors the chi CORS setup. Failure responses only
// carry the origin header.
func corsResponseHeaders(status int) map[string]string {
	headers := map[string]string{
		"Content-Type":                "application/json",
		"Access-Control-Allow-Origin": "*",
	}
	if status < http.StatusInternalServerError {
		headers["Access-Control-Allow-Methods"] = strings.Join(corsMethods, ", ")
		headers["Access-Control-Allow-Headers"] = strings.Join(corsHeaders, ", ")
	}
	return headers
}

func queryValues(event events.APIGatewayProxyRequest) url.Values {
	values := url.Values{}
	for key, vs := range event.MultiValueQueryStringParameters {
		for _, v := range vs {
			values.Add(key, v)
		}
	}
	for key, v := range event.QueryStringParameters {
		if _, ok := values[key]; !ok {
			values.Set(key, v)
		}
	}
	return values
}
