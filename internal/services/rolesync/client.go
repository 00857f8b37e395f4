package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RoleRequest — тело запроса к сервису ролей.
type RoleRequest struct {
	UserID string `json:"user_id"`
	Tier   int    `json:"tier"`
}

// HTTPRoleClient выставляет роли через HTTP API бота.
type HTTPRoleClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPRoleClient создаёт клиент сервиса ролей.
func NewHTTPRoleClient(baseURL, token string, timeout time.Duration) *HTTPRoleClient {
	return &HTTPRoleClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPRoleClient) newRequest(ctx context.Context, method string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL, &buf)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// SetRole выставляет пользователю роль тарифа tier.
func (c *HTTPRoleClient) SetRole(ctx context.Context, userID string, tier int) error {
	const op = "rolesync.SetRole"
	return c.do(ctx, op, http.MethodPut, RoleRequest{UserID: userID, Tier: tier})
}

// ClearRoles снимает с пользователя все роли тарифов.
func (c *HTTPRoleClient) ClearRoles(ctx context.Context, userID string) error {
	const op = "rolesync.ClearRoles"
	return c.do(ctx, op, http.MethodDelete, RoleRequest{UserID: userID})
}

func (c *HTTPRoleClient) do(ctx context.Context, op, method string, body RoleRequest) error {
	req, err := c.newRequest(ctx, method, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%s: unexpected status: %s", op, resp.Status)
	}
	return nil
}
