package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
)

const (
	MinPasswordLength = 6
	DefaultTokenTTL   = 24 * time.Hour
	accountsPath      = "accounts"
)

var (
	ErrInvalidCredentials = &notify.AuthError{Message: "Invalid email or password"}
	ErrAccountExists      = &notify.AuthError{Message: "An account with this email already exists"}
	ErrSessionExpired     = &notify.AuthError{Message: "Your session has expired, please sign in again"}
)

// Session is one signed in user. Client is scoped to the user and is revoked on sign out.
type Session struct {
	ID        string
	Email     string
	Token     string
	ExpiresAt time.Time
	Client    *db.Client
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type account struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

type Service struct {
	store    *db.Store
	admin    *db.Client
	secret   []byte
	ttl      time.Duration
	hashCost int
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	sessions  map[string]*Session
	current   *Session
	listeners map[int]func(*Session)
	nextWatch int
}

type Option func(*Service)

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHashCost overrides the bcrypt cost, mostly for tests.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store *db.Store, secret []byte, opts ...Option) *Service {
	s := &Service{
		store:     store,
		admin:     store.Admin(),
		secret:    secret,
		ttl:       DefaultTokenTTL,
		hashCost:  bcrypt.DefaultCost,
		logger:    slog.Default(),
		now:       time.Now,
		sessions:  make(map[string]*Session),
		listeners: make(map[int]func(*Session)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" {
		return notify.Invalid("email", "Email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, "/ \t") {
		return notify.Invalid("email", "Please enter a valid email address")
	}
	if len(password) < MinPasswordLength {
		return notify.Invalid("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	return nil
}

// Register creates the account, seeds the default priorities and signs the user in.
func (s *Service) Register(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := s.store.Client(email)
	batch := s.admin.Batch()
	batch.Create(db.Doc(accountsPath, email), db.Fields{
		"email":        email,
		"passwordHash": string(hash),
		"createdAt":    db.ServerTimestamp,
	})
	batch.Set(user.UserDoc(), db.Fields{"email": email, "createdAt": db.ServerTimestamp})
	for _, priority := range model.DefaultPriorities() {
		batch.Create(db.Doc(user.Collection("priorities"), uuid.New().String()), db.Fields{
			"name":  priority.Name,
			"color": priority.Color,
			"level": priority.Level,
		})
	}
	if err := batch.Commit(ctx); err != nil {
		if db.IsCode(err, db.CodeAlreadyExists) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("register account: %w", err)
	}
	s.logger.Info("account registered", "email", email)

	return s.SignIn(ctx, email, password)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	doc, err := s.admin.Get(ctx, db.Doc(accountsPath, email))
	if db.IsCode(err, db.CodeNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	var acct account
	if err := doc.Decode(&acct); err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("check password: %w", err)
	}

	client := s.store.Client(email)
	exists, err := client.Exists(ctx, client.UserDoc())
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if !exists {
		if err := client.Set(ctx, client.UserDoc(), db.Fields{"email": email, "createdAt": db.ServerTimestamp}); err != nil {
			return nil, fmt.Errorf("create profile: %w", err)
		}
	}

	session := &Session{
		ID:        uuid.New().String(),
		Email:     email,
		ExpiresAt: s.now().Add(s.ttl),
		Client:    client,
	}
	token, err := s.sign(session)
	if err != nil {
		return nil, err
	}
	session.Token = token

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.current = session
	s.mu.Unlock()
	s.logger.Info("signed in", "email", email, "session", session.ID)
	s.changed(session)
	return session, nil
}

func (s *Service) sign(session *Session) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: session.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   session.Email,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify returns the live session a token was issued for.
func (s *Service) Verify(token string) (*Session, error) {
	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrSessionExpired
	}

	s.mu.Lock()
	session, ok := s.sessions[parsed.ID]
	s.mu.Unlock()
	if !ok || session.Email != parsed.Email || session.Client.Revoked() {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// SignOut revokes the session's client so its live queries end with permission-denied.
func (s *Service) SignOut(session *Session) {
	if session == nil {
		return
	}
	s.mu.Lock()
	_, known := s.sessions[session.ID]
	delete(s.sessions, session.ID)
	wasCurrent := s.current == session
	if wasCurrent {
		s.current = nil
	}
	s.mu.Unlock()

	session.Client.Revoke()
	if known {
		s.logger.Info("signed out", "email", session.Email, "session", session.ID)
	}
	if wasCurrent {
		s.changed(nil)
	}
}

// Expire drops every session whose token has expired and revokes its client. It returns
// the dropped sessions so callers can release what they opened for them.
func (s *Service) Expire() []*Session {
	now := s.now()
	var expired []*Session
	s.mu.Lock()
	for id, session := range s.sessions {
		if now.Before(session.ExpiresAt) {
			continue
		}
		delete(s.sessions, id)
		expired = append(expired, session)
	}
	wasCurrent := s.current != nil && !now.Before(s.current.ExpiresAt)
	if wasCurrent {
		s.current = nil
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.Client.Revoke()
		s.logger.Info("session expired", "email", session.Email, "session", session.ID)
	}
	if wasCurrent {
		s.changed(nil)
	}
	return expired
}

// Current is the most recent session that has not signed out.
func (s *Service) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// OnChange calls fn with the new current session, nil after sign out.
func (s *Service) OnChange(fn func(*Session)) (cancel func()) {
	s.mu.Lock()
	s.nextWatch++
	id := s.nextWatch
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Service) changed(session *Session) {
	s.mu.Lock()
	listeners := make([]func(*Session), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
}
