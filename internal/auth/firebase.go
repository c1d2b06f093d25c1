package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gofiber/fiber/v2"
)

// DefaultIdentityToolkitURL is the password sign-in endpoint of Firebase Auth.
const DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"

// FirebaseProvider creates users with the admin SDK and signs them in through
// the identity toolkit REST endpoint.
type FirebaseProvider struct {
	notifier
	client   *fbauth.Client
	apiKey   string
	endpoint string
	timeout  time.Duration
	mu       sync.RWMutex
	current  Session
}

// NewFirebaseProvider creates a provider. endpoint may be empty for the
// production sign-in URL, or point at the auth emulator.
func NewFirebaseProvider(client *fbauth.Client, apiKey, endpoint string) *FirebaseProvider {
	if endpoint == "" {
		endpoint = DefaultIdentityToolkitURL
	}
	return &FirebaseProvider{client: client, apiKey: apiKey, endpoint: endpoint, timeout: 10 * time.Second}
}

func (p *FirebaseProvider) CreateIdentity(ctx context.Context, email, password string) (Session, error) {
	params := (&fbauth.UserToCreate{}).Email(email).Password(password)
	rec, err := p.client.CreateUser(ctx, params)
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return Session{}, fmt.Errorf("%w: %s", ErrDuplicateIdentity, email)
		}
		return Session{}, fmt.Errorf("firebase create user: %w", err)
	}
	sess, err := p.signIn(ctx, email, password)
	if err != nil {
		sess = Session{UID: rec.UID, Email: rec.Email}
	}
	p.set(sess)
	return sess, nil
}

func (p *FirebaseProvider) Authenticate(ctx context.Context, email, password string) (Session, error) {
	sess, err := p.signIn(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	p.set(sess)
	return sess, nil
}

// EndSession revokes the user's refresh tokens and forgets the session.
func (p *FirebaseProvider) EndSession(ctx context.Context) error {
	uid := p.Current().UID
	p.set(Session{})
	if uid == "" {
		return nil
	}
	if err := p.client.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("firebase revoke tokens: %w", err)
	}
	return nil
}

// Current returns the active session, if any.
func (p *FirebaseProvider) Current() Session {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *FirebaseProvider) signIn(ctx context.Context, email, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}
	payload := map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	code, body, err := postJSON(p.endpoint+"?key="+url.QueryEscape(p.apiKey), payload, "", p.timeout)
	if err != nil {
		return Session{}, err
	}
	if code != fiber.StatusOK {
		var failure struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &failure)
		switch failure.Error.Message {
		case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("firebase sign-in failed: status %d: %s", code, failure.Error.Message)
	}
	var resp struct {
		LocalID string `json:"localId"`
		Email   string `json:"email"`
		IDToken string `json:"idToken"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.LocalID == "" {
		return Session{}, fmt.Errorf("malformed sign-in response")
	}
	return Session{UID: resp.LocalID, Email: resp.Email, Token: resp.IDToken}, nil
}

func (p *FirebaseProvider) set(sess Session) {
	p.mu.Lock()
	p.current = sess
	p.mu.Unlock()
	p.notify(sess.UID)
}
