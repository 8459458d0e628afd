package argocd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/types"

	"github.com/OldStager01/staging-autoscaler/internal/logger"
	"github.com/OldStager01/staging-autoscaler/internal/resilience"
	"github.com/OldStager01/staging-autoscaler/pkg/models"
)

var (
	ErrSessionFailed   = errors.New("failed to retrieve argocd session token")
	ErrNotLoggedIn     = errors.New("no argocd session")
	ErrRequestFailed   = errors.New("argocd request failed")
	ErrNotFound        = errors.New("argocd object not found")
	ErrTimeout         = errors.New("argocd request timeout")
	ErrInvalidResponse = errors.New("invalid response from argocd")
)

const tokenCookie = "argocd.token"

// APIError is a non-200 answer from the ArgoCD API. Body carries the
// response text, which is what operators see in notifications.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRequestFailed:
		return true
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

type Config struct {
	// URL is the API base, e.g. https://argocd.example.com/api/v1.
	URL           string
	Username      string
	Password      string
	Timeout       time.Duration
	MaxFailures   int
	OnStateChange func(name string, from, to resilience.State)
}

// Client talks to the ArgoCD REST API. Calls after the session is
// established go through a circuit breaker so a dead server fails fast for
// the rest of the run.
type Client struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	token    string
	breaker  *resilience.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		client:   &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:          "argocd",
			MaxFailures:   cfg.MaxFailures,
			Timeout:       timeout,
			IsFailure:     isServerFailure,
			OnStateChange: cfg.OnStateChange,
		}),
	}
}

// Client errors are answers, not outages.
func isServerFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled)
}

type sessionRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

// Login creates a session and keeps its token for later calls.
func (c *Client) Login(ctx context.Context) error {
	logger.Debug("Creating data for argocd session")

	body, err := json.Marshal(sessionRequest{Username: c.username, Password: c.password})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}

	logger.Debug("Getting session for argocd ....")
	data, err := c.do(ctx, http.MethodPost, "/session", nil, body)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSessionFailed, err)
	}

	var resp sessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionFailed, err)
	}
	if resp.Token == "" {
		return fmt.Errorf("%w: empty token", ErrSessionFailed)
	}

	c.token = resp.Token
	logger.Info("Successfully retrieve argocd token")
	return nil
}

func (c *Client) GetApplication(ctx context.Context, name string) (*Application, error) {
	data, err := c.call(ctx, http.MethodGet, "/applications/"+url.PathEscape(name), nil, nil)
	if err != nil {
		return nil, err
	}
	return ParseApplication(data)
}

// UpdateApplication writes the whole application object back.
func (c *Client) UpdateApplication(ctx context.Context, app *Application) error {
	body, err := json.Marshal(app.Object())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	_, err = c.call(ctx, http.MethodPut, "/applications/"+url.PathEscape(app.Name()), nil, body)
	return err
}

type resourceResponse struct {
	Manifest string `json:"manifest"`
}

// GetReplicas reads spec.replicas from the live manifest of a deployment.
func (c *Client) GetReplicas(ctx context.Context, app string, d models.Deployment) (int64, error) {
	data, err := c.call(ctx, http.MethodGet, resourcePath(app), resourceParams(d), nil)
	if err != nil {
		return 0, err
	}

	var resp resourceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return replicasFromManifest(resp.Manifest)
}

// PatchReplicas sets spec.replicas of a deployment with a JSON merge patch.
// The API expects the patch as a JSON encoded string.
func (c *Client) PatchReplicas(ctx context.Context, app string, d models.Deployment, replicas int64) error {
	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{"replicas": replicas},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	body, err := json.Marshal(string(patch))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}

	params := resourceParams(d)
	params.Set("patchType", string(types.MergePatchType))

	_, err = c.call(ctx, http.MethodPost, resourcePath(app), params, body)
	return err
}

func resourcePath(app string) string {
	return "/applications/" + url.PathEscape(app) + "/resource"
}

func resourceParams(d models.Deployment) url.Values {
	return url.Values{
		"name":         {d.Name},
		"namespace":    {d.Namespace},
		"resourceName": {d.Name},
		"kind":         {d.Kind},
		"group":        {d.Group},
		"version":      {d.Version},
	}
}

// call is an authenticated request guarded by the circuit breaker.
func (c *Client) call(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	if c.token == "" {
		return nil, ErrNotLoggedIn
	}

	var data []byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.do(ctx, method, path, query, body)
		return err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	return data, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: c.token})
	}

	logger.Debugf("%s %s", method, u)

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.Is(ctx.Err(), context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return nil, fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: string(data)}
	}

	return data, nil
}

func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
