package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/nawar-b-tek/booking-app/pkg/apperr"
	"github.com/nawar-b-tek/booking-app/pkg/auth"
	"github.com/nawar-b-tek/booking-app/pkg/feed"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
)

type IdentityConfig struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	ResetTTL     time.Duration
	RoleCacheTTL time.Duration
}

type IdentitySvc struct {
	accounts *repository.AccountRepo
	sessions *repository.SessionRepo
	tokens   *auth.Issuer
	pub      EventPublisher
	feed     feed.Feed
	cfg      IdentityConfig
}

func NewIdentitySvc(accounts *repository.AccountRepo, sessions *repository.SessionRepo, tokens *auth.Issuer, pub EventPublisher, f feed.Feed, cfg IdentityConfig) *IdentitySvc {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = 15 * time.Minute
	}
	if cfg.RoleCacheTTL <= 0 {
		cfg.RoleCacheTTL = 5 * time.Minute
	}
	return &IdentitySvc{accounts: accounts, sessions: sessions, tokens: tokens, pub: pub, feed: f, cfg: cfg}
}

// RegisterInput has no role: the public surface can only create plain users.
type RegisterInput struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=6,max=72"`
	DisplayName string `validate:"max=80"`
	Phone       string `validate:"max=32"`
}

type Tokens struct {
	AccessToken  string              `json:"access_token"`
	RefreshToken string              `json:"refresh_token"`
	ExpiresIn    int64               `json:"expires_in"`
	User         *domain.UserProfile `json:"user"`
}

func (s *IdentitySvc) Register(ctx context.Context, in RegisterInput) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "identity.Register")
	defer span.End()

	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err, "hash password")
	}
	cred := &domain.Credential{
		Email:        in.Email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		RoleClaim:    domain.RoleUser,
	}
	prof := &domain.UserProfile{
		Email:       in.Email,
		DisplayName: in.DisplayName,
		Phone:       in.Phone,
		Role:        domain.RoleUser,
	}
	if err := s.accounts.Create(ctx, cred, prof); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperr.AlreadyExists("an account with this email already exists")
		}
		return nil, apperr.Provider(err, "create account")
	}
	publish(ctx, s.pub, domain.RKUserCreated, domain.UserCreated{
		UserID:      cred.ID,
		Email:       cred.Email,
		DisplayName: cred.DisplayName,
	})
	signal(ctx, s.feed, TopicUsers)
	return prof, nil
}

func (s *IdentitySvc) Login(ctx context.Context, email, password string) (*Tokens, error) {
	ctx, span := tracer.Start(ctx, "identity.Login")
	defer span.End()

	cred, err := s.accounts.CredentialByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, apperr.Provider(err, "load credential")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Unauthenticated("invalid email or password")
	}
	sess := &domain.Session{
		ID:       uuid.NewString(),
		UserID:   cred.ID,
		Email:    cred.Email,
		IssuedAt: time.Now().UTC(),
	}
	if err := s.sessions.Save(ctx, sess, s.cfg.RefreshTTL); err != nil {
		return nil, apperr.Provider(err, "save session")
	}
	toks, err := s.issue(ctx, cred, sess)
	if err != nil {
		return nil, err
	}
	signal(ctx, s.feed, topicSession(cred.ID))
	return toks, nil
}

func (s *IdentitySvc) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	claims, err := s.tokens.ParseValidate(refreshToken, auth.TypeRefresh)
	if err != nil {
		return nil, apperr.Unauthenticated("invalid refresh token")
	}
	sess, err := s.sessions.Get(ctx, claims.Sid)
	if err != nil {
		return nil, apperr.Provider(err, "load session")
	}
	if sess == nil || sess.UserID != claims.Sub {
		return nil, apperr.Unauthenticated("session has ended")
	}
	cred, err := s.accounts.CredentialByID(ctx, claims.Sub)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthenticated("account no longer exists")
	}
	if err != nil {
		return nil, apperr.Provider(err, "load credential")
	}
	if err := s.sessions.Save(ctx, sess, s.cfg.RefreshTTL); err != nil {
		return nil, apperr.Provider(err, "extend session")
	}
	return s.issue(ctx, cred, sess)
}

func (s *IdentitySvc) issue(ctx context.Context, cred *domain.Credential, sess *domain.Session) (*Tokens, error) {
	base := auth.Claims{Sub: cred.ID, Role: string(cred.RoleClaim), Email: cred.Email, Sid: sess.ID}
	access := base
	access.Type = auth.TypeAccess
	at, err := s.tokens.Create(access, s.cfg.AccessTTL)
	if err != nil {
		return nil, apperr.Internal(err, "sign access token")
	}
	refresh := base
	refresh.Type = auth.TypeRefresh
	rt, err := s.tokens.Create(refresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, apperr.Internal(err, "sign refresh token")
	}
	prof, err := s.accounts.ProfileByID(ctx, cred.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Provider(err, "load profile")
	}
	return &Tokens{
		AccessToken:  at,
		RefreshToken: rt,
		ExpiresIn:    int64(s.cfg.AccessTTL / time.Second),
		User:         prof,
	}, nil
}

// Logout ends the caller's session and drops the cached role at once.
func (s *IdentitySvc) Logout(ctx context.Context, p *domain.Principal) error {
	if p == nil {
		return apperr.Unauthenticated("not signed in")
	}
	if err := s.sessions.Delete(ctx, &domain.Session{ID: p.SessionID, UserID: p.UserID}); err != nil {
		return apperr.Provider(err, "end session")
	}
	signal(ctx, s.feed, topicSession(p.UserID))
	return nil
}

// CurrentSession resolves an access token to a principal. A missing, invalid or
// revoked token yields nil without error; errors mean the answer is unknown.
func (s *IdentitySvc) CurrentSession(ctx context.Context, accessToken string) (*domain.Principal, error) {
	if accessToken == "" {
		return nil, nil
	}
	claims, err := s.tokens.ParseValidate(accessToken, auth.TypeAccess)
	if err != nil {
		return nil, nil
	}
	sess, err := s.sessions.Get(ctx, claims.Sid)
	if err != nil {
		return nil, apperr.Provider(err, "load session")
	}
	if sess == nil || sess.UserID != claims.Sub {
		return nil, nil
	}
	return &domain.Principal{UserID: sess.UserID, Email: sess.Email, SessionID: sess.ID}, nil
}

// WatchSession pushes the caller's session state now and after every change to it.
func (s *IdentitySvc) WatchSession(ctx context.Context, p *domain.Principal) (<-chan domain.SessionState, error) {
	if p == nil {
		return nil, apperr.Unauthenticated("not signed in")
	}
	load := func(ctx context.Context) (domain.SessionState, error) {
		sess, err := s.sessions.Get(ctx, p.SessionID)
		if err != nil || sess == nil {
			return domain.SessionState{}, err
		}
		role, _, err := s.Role(ctx, sess.UserID)
		if err != nil {
			return domain.SessionState{}, err
		}
		return domain.SessionState{Session: sess, Role: role}, nil
	}
	ch, err := feed.Watch(ctx, s.feed, load, topicSession(p.UserID))
	if err != nil {
		return nil, apperr.Provider(err, "watch session")
	}
	return ch, nil
}

// Role returns the persisted role. A missing profile is "no role", not an error.
func (s *IdentitySvc) Role(ctx context.Context, userID string) (domain.Role, bool, error) {
	if role, ok, err := s.sessions.CachedRole(ctx, userID); err == nil && ok {
		return role, true, nil
	} else if err != nil {
		log.Printf("[identity] role cache read %s: %v", userID, err)
	}
	prof, err := s.accounts.ProfileByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperr.Provider(err, "load role")
	}
	if !prof.Role.Valid() {
		return "", false, nil
	}
	if err := s.sessions.CacheRole(ctx, userID, prof.Role, s.cfg.RoleCacheTTL); err != nil {
		log.Printf("[identity] role cache write %s: %v", userID, err)
	}
	return prof.Role, true, nil
}

func (s *IdentitySvc) Profile(ctx context.Context, p *domain.Principal) (*domain.UserProfile, error) {
	if p == nil {
		return nil, apperr.Unauthenticated("not signed in")
	}
	prof, err := s.accounts.ProfileByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	if err != nil {
		return nil, apperr.Provider(err, "load profile")
	}
	return prof, nil
}

// UpdateAccountInput changes account fields after re-authenticating with CurrentPassword.
type UpdateAccountInput struct {
	CurrentPassword string `validate:"required"`
	DisplayName     string `validate:"max=80"`
	Email           string `validate:"omitempty,email"`
	Phone           string `validate:"max=32"`
	NewPassword     string `validate:"omitempty,min=6,max=72"`
}

// UpdateAccount never changes the role. Changing the email or the password ends every
// session of the account.
func (s *IdentitySvc) UpdateAccount(ctx context.Context, p *domain.Principal, in UpdateAccountInput) (*domain.UserProfile, error) {
	ctx, span := tracer.Start(ctx, "identity.UpdateAccount")
	defer span.End()

	if p == nil {
		return nil, apperr.Unauthenticated("not signed in")
	}
	in.Email = normalizeEmail(in.Email)
	if err := validate.Struct(in); err != nil {
		return nil, validationErr(err)
	}
	cred, err := s.accounts.CredentialByID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("account not found")
	}
	if err != nil {
		return nil, apperr.Provider(err, "load credential")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(in.CurrentPassword)) != nil {
		return nil, apperr.Unauthenticated("re-authentication failed")
	}

	ch := repository.AccountChanges{DisplayName: in.DisplayName, Phone: in.Phone}
	emailChanged := in.Email != "" && in.Email != cred.Email
	if emailChanged {
		ch.Email = in.Email
	}
	if in.NewPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Internal(err, "hash password")
		}
		ch.PasswordHash = string(hash)
	}
	prof, err := s.accounts.Update(ctx, p.UserID, ch)
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		return nil, apperr.AlreadyExists("an account with this email already exists")
	case errors.Is(err, repository.ErrNotFound):
		return nil, apperr.NotFound("account not found")
	case err != nil:
		return nil, apperr.Provider(err, "update account")
	}
	if emailChanged || ch.PasswordHash != "" {
		if err := s.sessions.DeleteAllForUser(ctx, p.UserID); err != nil {
			return nil, apperr.Provider(err, "end sessions")
		}
		signal(ctx, s.feed, topicSession(p.UserID))
	}
	signal(ctx, s.feed, TopicUsers)
	return prof, nil
}

// RequestPasswordReset emits a reset token for delivery. Unknown addresses succeed silently.
func (s *IdentitySvc) RequestPasswordReset(ctx context.Context, email string) error {
	cred, err := s.accounts.CredentialByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Provider(err, "load credential")
	}
	nonce := uuid.NewString()
	tok, err := s.tokens.Create(auth.Claims{Sub: cred.ID, Email: cred.Email, Nonce: nonce, Type: auth.TypeReset}, s.cfg.ResetTTL)
	if err != nil {
		return apperr.Internal(err, "sign reset token")
	}
	if err := s.sessions.SaveResetNonce(ctx, cred.ID, nonce, s.cfg.ResetTTL); err != nil {
		return apperr.Provider(err, "store reset token")
	}
	if s.pub == nil {
		return apperr.Provider(errors.New("no publisher"), "send reset email")
	}
	if err := s.pub.PublishJSON(ctx, domain.RKPasswordResetRequested, domain.PasswordResetRequested{
		UserID: cred.ID,
		Email:  cred.Email,
		Token:  tok,
	}); err != nil {
		return apperr.Provider(err, "send reset email")
	}
	return nil
}

// ResetPassword accepts a reset token once. Only the most recently requested token is valid.
func (s *IdentitySvc) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := validate.Var(newPassword, "required,min=6,max=72"); err != nil {
		return apperr.Validation("password must be between 6 and 72 characters")
	}
	claims, err := s.tokens.ParseValidate(token, auth.TypeReset)
	if err != nil || claims.Nonce == "" {
		return apperr.Unauthenticated("reset link is invalid or expired")
	}
	ok, err := s.sessions.ConsumeResetNonce(ctx, claims.Sub, claims.Nonce)
	if err != nil {
		return apperr.Provider(err, "check reset token")
	}
	if !ok {
		return apperr.Unauthenticated("reset link is invalid or expired")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Internal(err, "hash password")
	}
	if _, err := s.accounts.Update(ctx, claims.Sub, repository.AccountChanges{PasswordHash: string(hash)}); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("account not found")
		}
		return apperr.Provider(err, "update password")
	}
	if err := s.sessions.DeleteAllForUser(ctx, claims.Sub); err != nil {
		return apperr.Provider(err, "end sessions")
	}
	signal(ctx, s.feed, topicSession(claims.Sub))
	return nil
}
