package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"mediagen/internal/domain"
)

// Service exposes task creation and status queries on top of the transport
// client. It owns endpoint selection and nothing else: transport errors pass
// through unchanged, and status payloads come back raw for the normalizers.
type Service struct {
	client *Client
}

func NewService(client *Client) *Service {
	return &Service{client: client}
}

type createResponse struct {
	TaskID string `json:"taskId"`
}

// CreateTask submits a generation request and returns the provider-assigned
// external task identifier. It does not touch the task store.
func (s *Service) CreateTask(ctx context.Context, req domain.GenerationRequest) (string, error) {
	path, body := toWireRequest(req)
	data, err := s.client.Send(ctx, http.MethodPost, path, nil, body, nil)
	if err != nil {
		return "", err
	}
	var out createResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("provider: decode create response: %w", err)
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return "", errors.New("provider: create response missing taskId")
	}
	return out.TaskID, nil
}

// QueryTask fetches the raw status payload for an external task id. The
// payload shape is provider-specific; interpretation belongs to the
// normalizers.
func (s *Service) QueryTask(ctx context.Context, ref domain.ModelRef, externalTaskID string) (json.RawMessage, error) {
	path, err := queryPath(ref)
	if err != nil {
		return nil, err
	}
	query := url.Values{"taskId": []string{externalTaskID}}
	return s.client.Send(ctx, http.MethodGet, path, query, nil, nil)
}
