package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/demomiru/minicrm/internal/client/models"
	"github.com/demomiru/minicrm/internal/common"
)

// HTTPStore implements Store over the MiniCRM document-store REST API.
type HTTPStore struct {
	baseURL string
	client  *http.Client
	tokenFn TokenFunc
}

// NewHTTPStore returns an HTTPStore for the given base URL. tokenFn supplies
// the bearer token for document operations; it may return common.ErrNotFound
// before the first login.
func NewHTTPStore(baseURL string, tokenFn TokenFunc) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		tokenFn: tokenFn,
	}
}

func (s *HTTPStore) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// Ping checks server liveness.
func (s *HTTPStore) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/healthz", nil, nil, false)
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Register creates an account.
func (s *HTTPStore) Register(ctx context.Context, login, password string) error {
	return s.do(ctx, http.MethodPost, "/auth/register",
		credentialsRequest{Login: login, Password: password}, nil, false)
}

// Login authenticates and returns the user id and bearer token.
func (s *HTTPStore) Login(ctx context.Context, login, password string) (string, string, error) {
	var resp loginResponse
	err := s.do(ctx, http.MethodPost, "/auth/login",
		credentialsRequest{Login: login, Password: password}, &resp, false)
	if err != nil {
		return "", "", err
	}
	return resp.UserID, resp.Token, nil
}

func customerPath(userID, customerID string) string {
	return fmt.Sprintf("/api/users/%s/customers/%s", url.PathEscape(userID), url.PathEscape(customerID))
}

func orderPath(userID, customerID, orderID string) string {
	return customerPath(userID, customerID) + "/orders/" + url.PathEscape(orderID)
}

// SetCustomer writes a full customer document.
func (s *HTTPStore) SetCustomer(ctx context.Context, userID string, c models.Customer) error {
	return s.do(ctx, http.MethodPut, customerPath(userID, c.Id), c, nil, true)
}

// UpdateCustomer merges fields into an existing customer document.
func (s *HTTPStore) UpdateCustomer(ctx context.Context, userID, customerID string, fields map[string]any) error {
	return s.do(ctx, http.MethodPatch, customerPath(userID, customerID), fields, nil, true)
}

// GetCustomer fetches one customer document.
func (s *HTTPStore) GetCustomer(ctx context.Context, userID, customerID string) (*models.Customer, error) {
	var c models.Customer
	if err := s.do(ctx, http.MethodGet, customerPath(userID, customerID), nil, &c, true); err != nil {
		return nil, err
	}
	return &c, nil
}

// QueryCustomers returns non-deleted customers, newest first.
func (s *HTTPStore) QueryCustomers(ctx context.Context, userID string) ([]models.Customer, error) {
	path := fmt.Sprintf("/api/users/%s/customers?orderBy=createdAt&desc=true", url.PathEscape(userID))
	var cs []models.Customer
	if err := s.do(ctx, http.MethodGet, path, nil, &cs, true); err != nil {
		return nil, err
	}
	return cs, nil
}

// SetOrder writes a full order document under its owning customer.
func (s *HTTPStore) SetOrder(ctx context.Context, userID string, o models.Order) error {
	return s.do(ctx, http.MethodPut, orderPath(userID, o.CustomerId, o.Id), o, nil, true)
}

// UpdateOrder merges fields into an existing order document.
func (s *HTTPStore) UpdateOrder(ctx context.Context, userID, customerID, orderID string, fields map[string]any) error {
	return s.do(ctx, http.MethodPatch, orderPath(userID, customerID, orderID), fields, nil, true)
}

// QueryOrders returns a customer's non-deleted orders, newest first.
func (s *HTTPStore) QueryOrders(ctx context.Context, userID, customerID string) ([]models.Order, error) {
	path := customerPath(userID, customerID) + "/orders?orderBy=orderDate&desc=true"
	var os []models.Order
	if err := s.do(ctx, http.MethodGet, path, nil, &os, true); err != nil {
		return nil, err
	}
	return os, nil
}

type batchWrite struct {
	Path string          `json:"path"`
	Doc  json.RawMessage `json:"doc"`
}

type batchRequest struct {
	Writes []batchWrite `json:"writes"`
}

// BatchSetCustomers commits customer documents in one atomic batch.
func (s *HTTPStore) BatchSetCustomers(ctx context.Context, userID string, cs []models.Customer) error {
	writes := make([]batchWrite, 0, len(cs))
	for _, c := range cs {
		doc, err := json.Marshal(c)
		if err != nil {
			return err
		}
		writes = append(writes, batchWrite{Path: customerPath(userID, c.Id), Doc: doc})
	}
	return s.batch(ctx, userID, writes)
}

// BatchSetOrders commits one customer's order documents in one atomic batch.
func (s *HTTPStore) BatchSetOrders(ctx context.Context, userID, customerID string, os []models.Order) error {
	writes := make([]batchWrite, 0, len(os))
	for _, o := range os {
		doc, err := json.Marshal(o)
		if err != nil {
			return err
		}
		writes = append(writes, batchWrite{Path: orderPath(userID, customerID, o.Id), Doc: doc})
	}
	return s.batch(ctx, userID, writes)
}

func (s *HTTPStore) batch(ctx context.Context, userID string, writes []batchWrite) error {
	path := fmt.Sprintf("/api/users/%s/batch", url.PathEscape(userID))
	return s.do(ctx, http.MethodPost, path, batchRequest{Writes: writes}, nil, true)
}

// do performs one request/response cycle. Connection-level failures map to
// common.ErrUnavailable, 401 to common.ErrUnauthorized, 404 to
// common.ErrNotFound.
func (s *HTTPStore) do(ctx context.Context, method, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token, err := s.tokenFn(ctx)
		if err != nil {
			return fmt.Errorf("%w: no token", common.ErrUnauthorized)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return common.ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return common.ErrNotFound
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("server error: %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
