package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"zeroforums/internal/cryptoutil"
	"zeroforums/internal/domain"
	"zeroforums/internal/dto"
	"zeroforums/internal/lockout"
	"zeroforums/internal/netutil"
	"zeroforums/internal/observability/metrics"
	obsmw "zeroforums/internal/observability/middleware"
	"zeroforums/internal/reqsig"
	"zeroforums/internal/store"
)

var usernameRE = regexp.MustCompile(`^[A-Za-z0-9_]{3,50}$`)

// WipeConfirmationPhrase must be submitted verbatim before any account data
// is destroyed.
const WipeConfirmationPhrase = "delete my account forever"

// captchaValidator is the slice of the captcha service the auth service needs.
type captchaValidator interface {
	Validate(ctx context.Context, token, answer string) error
}

// Service orchestrates registration, login, logout, session checks and
// account wipes on the server side.
type Service struct {
	store        *store.Store
	tokens       *TokenService
	captcha      captchaValidator
	lockout      lockout.Tracker
	serverSecret []byte
	now          func() time.Time
}

func New(st *store.Store, tokens *TokenService, cap captchaValidator, lock lockout.Tracker, serverSecret []byte) *Service {
	return &Service{
		store:        st,
		tokens:       tokens,
		captcha:      cap,
		lockout:      lock,
		serverSecret: serverSecret,
		now:          time.Now,
	}
}

func (s *Service) Register(ctx context.Context, r dto.RegisterRequest, ip, ua, fingerprint string) (*dto.SessionResponse, error) {
	result := "success"
	defer func() { metrics.AuthRegistrationsTotal.WithLabelValues(result).Inc() }()

	if !usernameRE.MatchString(r.Username) {
		result = "failure"
		return nil, domain.NewValidationError("username", "must be 3-50 characters of letters, digits or underscore")
	}
	if r.PublicKey == "" {
		result = "failure"
		return nil, domain.NewValidationError("publicKey", "required")
	}
	if err := s.captcha.Validate(ctx, r.CaptchaToken, r.CaptchaAnswer); err != nil {
		result = "failure"
		metrics.CaptchaValidationsTotal.WithLabelValues("failure").Inc()
		return nil, domain.NewValidationError("captcha", domain.ErrCaptchaFailed.Error())
	}
	metrics.CaptchaValidationsTotal.WithLabelValues("success").Inc()

	var out *dto.SessionResponse
	err := s.store.WithTx(ctx, func(tx *store.Store) error {
		taken, err := tx.Users().UsernameTaken(ctx, r.Username)
		if err != nil {
			return err
		}
		if taken {
			return &domain.ConflictError{Resource: "username"}
		}

		now := s.now().UTC()
		user := &domain.User{
			ID:           uuid.New(),
			Username:     r.Username,
			PublicKey:    r.PublicKey,
			ProfileImage: r.ProfileImage,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		resp, err := s.openSession(ctx, tx, user, ip, ua, fingerprint)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		result = "failure"
		return nil, err
	}

	slog.Info("user registered",
		"user_id", out.UserID,
		"request_id", obsmw.RequestIDFromContext(ctx),
		"trace_id", obsmw.TraceIDFromContext(ctx),
	)
	return out, nil
}

func (s *Service) Login(ctx context.Context, r dto.LoginRequest, ip, ua, fingerprint string) (*dto.SessionResponse, error) {
	result := "success"
	defer func() { metrics.AuthLoginsTotal.WithLabelValues(result).Inc() }()

	if err := s.captcha.Validate(ctx, r.CaptchaToken, r.CaptchaAnswer); err != nil {
		result = "failure"
		metrics.CaptchaValidationsTotal.WithLabelValues("failure").Inc()
		return nil, domain.NewValidationError("captcha", domain.ErrCaptchaFailed.Error())
	}
	metrics.CaptchaValidationsTotal.WithLabelValues("success").Inc()

	// Lockout is evaluated before any credential lookup so a locked client
	// learns nothing about account existence.
	clientKey := netutil.ClientKey(ip, ua, fingerprint)
	if err := s.lockout.Check(ctx, clientKey); err != nil {
		result = "failure"
		metrics.LockoutRejectionsTotal.WithLabelValues().Inc()
		return nil, err
	}

	user, err := s.store.Users().GetByUsername(ctx, r.Username)
	if err != nil || user.IsDisabled {
		result = "failure"
		s.recordAttempt(ctx, clientKey, false)
		// Generic failure; never reveal whether the username exists.
		return nil, &domain.AuthenticationError{Reason: "login failed"}
	}

	var out *dto.SessionResponse
	err = s.store.WithTx(ctx, func(tx *store.Store) error {
		resp, err := s.openSession(ctx, tx, user, ip, ua, fingerprint)
		if err != nil {
			return err
		}
		out = resp
		return nil
	})
	if err != nil {
		result = "failure"
		s.recordAttempt(ctx, clientKey, false)
		return nil, err
	}

	s.recordAttempt(ctx, clientKey, true)
	slog.Info("user logged in",
		"user_id", out.UserID,
		"request_id", obsmw.RequestIDFromContext(ctx),
		"trace_id", obsmw.TraceIDFromContext(ctx),
	)
	return out, nil
}

// Logout revokes the session behind the presented token. Unknown or already
// revoked sessions are treated as success: the client clears local state
// regardless.
func (s *Service) Logout(ctx context.Context, token string) error {
	sid, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return s.store.Sessions().Revoke(ctx, sid, s.now().UTC())
}

// Wipe destroys all server-side data for the session's user after the exact
// confirmation phrase is presented.
func (s *Service) Wipe(ctx context.Context, token, confirmation string) error {
	if confirmation != WipeConfirmationPhrase {
		return domain.NewValidationError("confirmation", "confirmation phrase mismatch")
	}
	sid, userID, err := s.tokens.Parse(token)
	if err != nil {
		return &domain.AuthenticationError{Reason: "no active session"}
	}
	sess, err := s.store.Sessions().GetByID(ctx, sid)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return &domain.AuthenticationError{Reason: "no active session"}
		}
		return err
	}
	if !sess.Active(s.now().UTC()) || sess.UserID != userID {
		return &domain.AuthenticationError{Reason: "no active session"}
	}
	if err := s.store.DeleteUserData(ctx, userID); err != nil {
		return err
	}
	metrics.AccountWipesTotal.WithLabelValues().Inc()
	slog.Info("account wiped",
		"user_id", userID,
		"request_id", obsmw.RequestIDFromContext(ctx),
	)
	return nil
}

// SessionSecret resolves a session token to the per-session request-signing
// secret. Used by the request validator middleware.
func (s *Service) SessionSecret(ctx context.Context, token string) ([]byte, error) {
	sid, _, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	sess, err := s.store.Sessions().GetByID(ctx, sid)
	if err != nil {
		return nil, domain.ErrSessionExpired
	}
	if !sess.Active(s.now().UTC()) {
		return nil, domain.ErrSessionExpired
	}
	// Disabling an account invalidates its open sessions immediately.
	user, err := s.store.Users().GetByID(ctx, sess.UserID)
	if err != nil || user.IsDisabled {
		return nil, domain.ErrSessionExpired
	}
	return reqsig.DeriveSessionSecret(s.serverSecret, sid.String())
}

func (s *Service) openSession(ctx context.Context, tx *store.Store, user *domain.User, ip, ua, fingerprint string) (*dto.SessionResponse, error) {
	now := s.now().UTC()
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		ip = normalized
	}
	sess := &domain.Session{
		ID:          uuid.New(),
		UserID:      user.ID,
		ExpiresAt:   now.Add(s.tokens.cfg.TTL),
		CreatedAt:   now,
		IP:          ip,
		UserAgent:   netutil.TruncateUserAgent(ua),
		Fingerprint: fingerprint,
	}
	if err := tx.Sessions().Create(ctx, sess); err != nil {
		return nil, err
	}
	token, err := s.tokens.Sign(sess, now)
	if err != nil {
		return nil, err
	}
	secret, err := reqsig.DeriveSessionSecret(s.serverSecret, sess.ID.String())
	if err != nil {
		return nil, err
	}
	return &dto.SessionResponse{
		SessionID: sess.ID.String(),
		UserID:    user.ID.String(),
		Username:  user.Username,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: sess.ExpiresAt,
		IP:        ip,
		User: &dto.UserSummary{
			ID:        user.ID.String(),
			Username:  user.Username,
			PublicKey: user.PublicKey,
			CreatedAt: user.CreatedAt,
		},
		RequestSecret: cryptoutil.B64(secret),
	}, nil
}

// recordAttempt feeds both the lockout tracker and the durable audit table.
// Audit write failures are logged, not surfaced; they must not block login.
func (s *Service) recordAttempt(ctx context.Context, clientKey string, success bool) {
	if err := s.lockout.Record(ctx, clientKey, success); err != nil {
		slog.Warn("lockout record failed", "error", err)
	}
	if err := s.store.LoginAttempts().Record(ctx, clientKey, success, s.now().UTC()); err != nil {
		slog.Warn("login attempt audit failed", "error", err)
	}
}
