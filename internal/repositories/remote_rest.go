package repositories

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RESTRemote talks to a tree served with the realtime-database REST
// convention: GET/PUT/PATCH/DELETE/POST on {base}/{path}.json.
type RESTRemote struct {
	baseURL string
	timeout time.Duration
	token   func() string
}

// NewRESTRemote creates a client for the tree served at baseURL.
// token, if non-nil, supplies the auth query parameter for each call.
func NewRESTRemote(baseURL string, timeout time.Duration, token func() string) *RESTRemote {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTRemote{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		token:   token,
	}
}

// Read fetches the node at path.
func (r *RESTRemote) Read(ctx context.Context, path string, dst interface{}) (bool, error) {
	body, err := r.do(ctx, fiber.MethodGet, path, nil)
	if err != nil {
		return false, remoteErr("read", path, err)
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return false, nil
	}
	if dst != nil {
		if err := json.Unmarshal(trimmed, dst); err != nil {
			return false, remoteErr("read", path, fmt.Errorf("decode response: %w", err))
		}
	}
	return true, nil
}

// Write replaces the node at path.
func (r *RESTRemote) Write(ctx context.Context, path string, value interface{}) error {
	if value == nil {
		return r.Delete(ctx, path)
	}
	if _, err := r.do(ctx, fiber.MethodPut, path, value); err != nil {
		return remoteErr("write", path, err)
	}
	return nil
}

// Merge patches the named children of path.
func (r *RESTRemote) Merge(ctx context.Context, path string, fields map[string]interface{}) error {
	if _, err := r.do(ctx, fiber.MethodPatch, path, fields); err != nil {
		return remoteErr("merge", path, err)
	}
	return nil
}

// Delete removes the node at path.
func (r *RESTRemote) Delete(ctx context.Context, path string) error {
	if _, err := r.do(ctx, fiber.MethodDelete, path, nil); err != nil {
		return remoteErr("delete", path, err)
	}
	return nil
}

// AppendGenerateID posts value under path; the server picks the key.
func (r *RESTRemote) AppendGenerateID(ctx context.Context, path string, value interface{}) (string, error) {
	body, err := r.do(ctx, fiber.MethodPost, path, value)
	if err != nil {
		return "", remoteErr("append", path, err)
	}
	var created struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &created); err != nil || created.Name == "" {
		return "", remoteErr("append", path, fmt.Errorf("malformed append response %q", body))
	}
	return created.Name, nil
}

func (r *RESTRemote) endpoint(path string) (string, error) {
	segments, err := splitPath(path)
	if err != nil {
		return "", err
	}
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := r.baseURL + "/" + strings.Join(escaped, "/") + ".json"
	if r.token != nil {
		if t := r.token(); t != "" {
			u += "?auth=" + url.QueryEscape(t)
		}
	}
	return u, nil
}

func (r *RESTRemote) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := r.endpoint(path)
	if err != nil {
		return nil, err
	}
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.AcquireAgent()
	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(u)
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			fiber.ReleaseAgent(agent)
			return nil, fmt.Errorf("encode request: %w", err)
		}
		req.Header.SetContentType(fiber.MIMEApplicationJSON)
		req.SetBody(raw)
	}
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return nil, fmt.Errorf("prepare request: %w", err)
	}

	code, body, errs := agent.Timeout(timeout).Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s %s: %v", method, u, errs[0])
	}
	if code < fiber.StatusOK || code >= fiber.StatusMultipleChoices {
		return nil, fmt.Errorf("%s %s: status %d: %s", method, u, code, bytes.TrimSpace(body))
	}
	return body, nil
}
