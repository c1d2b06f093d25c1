package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// RESTProvider authenticates against the mock server's /auth endpoints.
type RESTProvider struct {
	notifier
	baseURL string
	timeout time.Duration
	mu      sync.RWMutex
	current Session
}

// NewRESTProvider creates a provider for the server at baseURL.
func NewRESTProvider(baseURL string, timeout time.Duration) *RESTProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RESTProvider{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionBody struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Token string `json:"token"`
}

func (p *RESTProvider) CreateIdentity(ctx context.Context, email, password string) (Session, error) {
	code, body, err := p.call(ctx, "/auth/register", credentialsBody{Email: email, Password: password}, "")
	if err != nil {
		return Session{}, err
	}
	switch code {
	case fiber.StatusCreated, fiber.StatusOK:
	case fiber.StatusConflict:
		return Session{}, fmt.Errorf("%w: %s", ErrDuplicateIdentity, email)
	default:
		return Session{}, fmt.Errorf("register failed: status %d: %s", code, body)
	}
	return p.accept(body)
}

func (p *RESTProvider) Authenticate(ctx context.Context, email, password string) (Session, error) {
	code, body, err := p.call(ctx, "/auth/login", credentialsBody{Email: email, Password: password}, "")
	if err != nil {
		return Session{}, err
	}
	switch code {
	case fiber.StatusOK:
	case fiber.StatusUnauthorized:
		return Session{}, ErrInvalidCredentials
	default:
		return Session{}, fmt.Errorf("login failed: status %d: %s", code, body)
	}
	return p.accept(body)
}

// EndSession tells the server the token is done and forgets it locally
// whatever the server answers.
func (p *RESTProvider) EndSession(ctx context.Context) error {
	token := p.Current().Token
	p.set(Session{})
	if token == "" {
		return nil
	}
	code, body, err := p.call(ctx, "/auth/logout", struct{}{}, token)
	if err != nil {
		return err
	}
	if code != fiber.StatusOK {
		log.Warn().Int("status", code).Bytes("body", body).Msg("auth: logout rejected by server")
	}
	return nil
}

// Current returns the active session, if any.
func (p *RESTProvider) Current() Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *RESTProvider) call(ctx context.Context, route string, payload interface{}, bearer string) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	return postJSON(p.baseURL+route, payload, bearer, p.timeout)
}

func (p *RESTProvider) accept(body []byte) (Session, error) {
	var resp sessionBody
	if err := json.Unmarshal(body, &resp); err != nil || resp.UID == "" {
		return Session{}, fmt.Errorf("malformed session response %q", body)
	}
	sess := Session{UID: resp.UID, Email: resp.Email, Token: resp.Token}
	p.set(sess)
	return sess, nil
}

func (p *RESTProvider) set(sess Session) {
	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()
	p.notify(sess.UID)
}
