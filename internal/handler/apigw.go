package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/tapanjo92/lambda-pulse/internal/models"
)

const LatestPath = "/metrics/latest"

var jsonHeaders = map[string]string{"Content-Type": "application/json"}

type LatestQuery interface {
	Points(ctx context.Context) ([]models.QueryRow, error)
}

type API struct {
	latest LatestQuery
	logger *zap.Logger
}

func NewAPI(latest LatestQuery, logger *zap.Logger) *API {
	return &API{latest: latest, logger: logger}
}

// Route dispatches on the request path: the latest-points query, the
// greeting at "/" and "/health", 404 otherwise.
func (a *API) Route(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := strings.TrimSuffix(req.Path, "/")
	switch {
	case path == "" || path == "/health":
		return Hello(ctx, req)
	case strings.HasSuffix(path, LatestPath):
		return a.Latest(ctx, req)
	default:
		return respond(http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

// Latest returns the most recent price points as a JSON array. A query
// failure becomes a 500 with an error body rather than a Lambda error.
func (a *API) Latest(ctx context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	rows, err := a.latest.Points(ctx)
	if err != nil {
		a.logger.Error("latest query failed", zap.Error(err))
		return respond(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return respond(http.StatusOK, rows)
}

func Hello(_ context.Context, _ events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return respond(http.StatusOK, map[string]string{"message": "Hello from LambdaPulse!"})
}

func respond(status int, v any) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    jsonHeaders,
		Body:       string(body),
	}, nil
}
