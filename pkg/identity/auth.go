package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/naughtyden-us/naughty-den/pkg/metrics"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
	"github.com/naughtyden-us/naughty-den/pkg/validation"
)

const (
	accountPrefix   = "accounts/"
	federatedPrefix = "federated/"
	minPasswordLen  = 6
)

type account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"passwordHash,omitempty"`
	DisplayName  string    `json:"displayName,omitempty"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (a account) user() models.User {
	return models.User{UID: a.UID, Email: a.Email, DisplayName: a.DisplayName, PhotoURL: a.PhotoURL}
}

// AuthConfig configures an Authenticator.
type AuthConfig struct {
	TokenSecret string
	TokenIssuer string
	TokenTTL    time.Duration
	BcryptCost  int
}

// Authenticator owns the account store. Per-session sign-in state lives in a Client.
type Authenticator struct {
	db     *storedb.DB
	secret []byte
	issuer string
	ttl    time.Duration
	cost   int
}

func NewAuthenticator(db *storedb.DB, cfg AuthConfig) *Authenticator {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = time.Hour
	}
	return &Authenticator{
		db:     db,
		secret: []byte(cfg.TokenSecret),
		issuer: cfg.TokenIssuer,
		ttl:    cfg.TokenTTL,
		cost:   cfg.BcryptCost,
	}
}

func normEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

func accountKey(email string) string { return accountPrefix + normEmail(email) }

func federatedKey(provider, subject string) string {
	return federatedPrefix + provider + "/" + subject
}

// SignUp creates a password account.
func (a *Authenticator) SignUp(ctx context.Context, email, password, displayName string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	if !validation.ValidEmail(strings.TrimSpace(email)) {
		return models.User{}, errInvalidEmail
	}
	if len(password) < minPasswordLen {
		return models.User{}, errWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	acct := account{
		UID:          uuid.NewString(),
		Email:        normEmail(email),
		PasswordHash: hash,
		DisplayName:  strings.TrimSpace(displayName),
		Provider:     "password",
		CreatedAt:    timeutil.Now().UTC(),
	}
	err = a.db.Update(accountKey(email), func(_ []byte, exists bool) ([]byte, error) {
		if exists {
			return nil, errEmailInUse
		}
		return json.Marshal(acct)
	})
	if err != nil {
		return models.User{}, err
	}
	logger.Info("account_created", "uid", acct.UID, "provider", acct.Provider)
	return acct.user(), nil
}

// SignInWithPassword checks email and password.
func (a *Authenticator) SignInWithPassword(ctx context.Context, email, password string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	var acct account
	if err := a.db.GetJSON(accountKey(email), &acct); err != nil {
		if storedb.IsNotFound(err) {
			return models.User{}, errUserNotFound
		}
		return models.User{}, err
	}
	if len(acct.PasswordHash) == 0 {
		return models.User{}, errWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return models.User{}, errWrongPassword
		}
		return models.User{}, err
	}
	return acct.user(), nil
}

// SignInFederated finds or links the account for an external provider subject.
func (a *Authenticator) SignInFederated(ctx context.Context, provider, subject string, profile models.User) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	if provider == "" || subject == "" {
		return models.User{}, errInvalidCred
	}
	var out account
	err := a.db.Update(federatedKey(provider, subject), func(old []byte, exists bool) ([]byte, error) {
		if exists {
			if err := json.Unmarshal(old, &out); err != nil {
				return nil, err
			}
			return old, nil
		}
		out = account{
			UID:         uuid.NewString(),
			Email:       normEmail(profile.Email),
			DisplayName: profile.DisplayName,
			PhotoURL:    profile.PhotoURL,
			Provider:    provider,
			CreatedAt:   timeutil.Now().UTC(),
		}
		return json.Marshal(out)
	})
	if err != nil {
		return models.User{}, err
	}
	return out.user(), nil
}

// SignInAnonymously issues a fresh anonymous user. Nothing is stored.
func (a *Authenticator) SignInAnonymously(ctx context.Context) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	return models.User{UID: uuid.NewString(), Anonymous: true}, nil
}

type tokenClaims struct {
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"name,omitempty"`
	Anonymous   bool   `json:"anon,omitempty"`
	jwt.RegisteredClaims
}

// IssueCustomToken signs an HS256 token for u.
func (a *Authenticator) IssueCustomToken(u models.User) (string, error) {
	if len(a.secret) == 0 {
		return "", errTokenDisabled
	}
	now := timeutil.Now()
	claims := tokenClaims{
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Anonymous:   u.Anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.UID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// SignInWithCustomToken verifies a token minted by IssueCustomToken.
func (a *Authenticator) SignInWithCustomToken(ctx context.Context, token string) (models.User, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, err
	}
	if len(a.secret) == 0 {
		return models.User{}, errTokenDisabled
	}
	var claims tokenClaims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(timeutil.Now),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return a.secret, nil }, opts...)
	if err != nil || claims.Subject == "" {
		logger.Debug("custom_token_rejected", "error", err)
		return models.User{}, errBadToken
	}
	return models.User{
		UID:         claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Anonymous:   claims.Anonymous,
	}, nil
}

// Client is one session's view of the identity provider: the signed-in
// user plus auth-state listeners.
type Client struct {
	auth *Authenticator

	mu        sync.Mutex
	current   *models.User
	listeners map[int]func(*models.User)
	nextID    int
}

func (a *Authenticator) Client() *Client {
	return &Client{auth: a, listeners: make(map[int]func(*models.User))}
}

// CurrentUser returns the signed-in user or nil.
func (c *Client) CurrentUser() *models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	u := *c.current
	return &u
}

// OnAuthStateChanged registers fn and returns its unsubscribe func.
func (c *Client) OnAuthStateChanged(fn func(*models.User)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) set(u *models.User) {
	c.mu.Lock()
	c.current = u
	fns := make([]func(*models.User), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		var cp *models.User
		if u != nil {
			v := *u
			cp = &v
		}
		fn(cp)
	}
}

func (c *Client) finish(kind string, u models.User, err error) (models.User, error) {
	metrics.AuthEvents.WithLabelValues(kind, metrics.Result(err)).Inc()
	if err != nil {
		logger.Info("auth_failed", "kind", kind, "error", err)
		return models.User{}, err
	}
	logger.Info("auth_signed_in", "kind", kind, "uid", u.UID)
	c.set(&u)
	return u, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (models.User, error) {
	u, err := c.auth.SignUp(ctx, email, password, displayName)
	return c.finish("sign_up", u, err)
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (models.User, error) {
	u, err := c.auth.SignInWithPassword(ctx, email, password)
	return c.finish("password", u, err)
}

func (c *Client) SignInFederated(ctx context.Context, provider, subject string, profile models.User) (models.User, error) {
	u, err := c.auth.SignInFederated(ctx, provider, subject, profile)
	return c.finish("federated", u, err)
}

func (c *Client) SignInAnonymously(ctx context.Context) (models.User, error) {
	u, err := c.auth.SignInAnonymously(ctx)
	return c.finish("anonymous", u, err)
}

func (c *Client) SignInWithCustomToken(ctx context.Context, token string) (models.User, error) {
	u, err := c.auth.SignInWithCustomToken(ctx, token)
	return c.finish("custom_token", u, err)
}

func (c *Client) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	metrics.AuthEvents.WithLabelValues("sign_out", "ok").Inc()
	c.set(nil)
	return nil
}
