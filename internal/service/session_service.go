package service

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/metrics"
	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/notify"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/pkg/jwt"
	"github.com/xxxsen/hemline/internal/repo"
)

// Notifier hands a notification to the delivery collaborator without waiting
// for the outcome.
type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification)
}

// LoginThrottle limits how often a login email can be requested per address.
type LoginThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Session is the outcome of verify, refresh and cancel-deletion. For an
// account awaiting deletion only AccessToken and the deletion fields are set.
type Session struct {
	User                *model.User
	AccessToken         string
	AccessExpiresAt     int64
	RefreshToken        string
	RefreshExpiresAt    int64
	ToBeDeleted         bool
	DeletionRequestedAt *int64
}

type SessionService struct {
	db            *sqlx.DB
	users         *repo.UserRepo
	creds         *CredentialService
	tokens        *TokenService
	notifier      Notifier
	throttle      LoginThrottle
	clientBaseURL string
	now           func() time.Time
}

func NewSessionService(db *sqlx.DB, users *repo.UserRepo, creds *CredentialService, tokens *TokenService,
	notifier Notifier, throttle LoginThrottle, clientBaseURL string, opts ...Option) *SessionService {
	o := applyOptions(opts)
	return &SessionService{
		db:            db,
		users:         users,
		creds:         creds,
		tokens:        tokens,
		notifier:      notifier,
		throttle:      throttle,
		clientBaseURL: strings.TrimSuffix(clientBaseURL, "/"),
		now:           o.now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", appErr.ErrInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", appErr.ErrInvalid
	}
	return email, nil
}

// RequestLogin finds or creates the user for email and issues a one-time
// credential. The login email is sent in the background; a delivery failure
// does not fail the request.
func (s *SessionService) RequestLogin(ctx context.Context, email string) (*model.OneTimeCredential, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, email)
		if err != nil {
			logutil.GetLogger(ctx).Warn("login throttle unavailable", zap.Error(err))
		} else if !allowed {
			metrics.AuthEvent("request_login", metrics.ResultThrottle)
			return nil, appErr.ErrTooMany
		}
	}
	now := s.now().Unix()
	user, err := s.users.FindOrCreate(ctx, &model.User{ID: newID(), Email: email, Ctime: now, Mtime: now})
	if err != nil {
		metrics.AuthEvent("request_login", metrics.ResultError)
		return nil, err
	}
	cred, err := s.creds.Issue(ctx, user.ID)
	if err != nil {
		metrics.AuthEvent("request_login", metrics.ResultError)
		return nil, err
	}
	s.notifier.Dispatch(ctx, notify.LoginCredential{
		Email:     user.Email,
		Name:      user.DisplayName(),
		Code:      cred.Code,
		MagicLink: s.MagicLink(cred.Token),
		ExpiresIn: s.creds.TTL(),
	})
	metrics.AuthEvent("request_login", metrics.ResultOK)
	logutil.GetLogger(ctx).Info("login credential issued", zap.String("user_id", user.ID))
	return cred, nil
}

func (s *SessionService) MagicLink(token string) string {
	return s.clientBaseURL + "/auth/verify?token=" + url.QueryEscape(token)
}

func (s *SessionService) VerifyCode(ctx context.Context, code string) (*Session, error) {
	return s.verify(ctx, func(creds *CredentialService) (*model.OneTimeCredential, error) {
		return creds.RedeemByCode(ctx, code)
	})
}

func (s *SessionService) VerifyToken(ctx context.Context, token string) (*Session, error) {
	return s.verify(ctx, func(creds *CredentialService) (*model.OneTimeCredential, error) {
		return creds.RedeemByToken(ctx, token)
	})
}

// verify redeems the credential and mints the session in one transaction, so
// a failed mint leaves the credential unused.
func (s *SessionService) verify(ctx context.Context, redeem func(*CredentialService) (*model.OneTimeCredential, error)) (*Session, error) {
	var session *Session
	err := dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		cred, err := redeem(s.creds.WithTx(tx))
		if err != nil {
			return err
		}
		user, err := s.users.WithTx(tx).GetByID(ctx, cred.UserID)
		if err != nil {
			if appErr.IsNotFound(err) {
				return appErr.ErrInvalidCredential
			}
			return err
		}
		session, err = s.startSession(ctx, s.tokens.WithTx(tx), user)
		return err
	})
	if err != nil {
		metrics.AuthEvent("verify", resultOf(err))
		return nil, err
	}
	if session.ToBeDeleted {
		metrics.AuthEvent("verify", metrics.ResultGated)
	} else {
		metrics.AuthEvent("verify", metrics.ResultOK)
	}
	return session, nil
}

// startSession mints a full pair, or only an access token for an account that
// is waiting to be deleted.
func (s *SessionService) startSession(ctx context.Context, tokens *TokenService, user *model.User) (*Session, error) {
	if user.ToBeDeleted {
		access, err := tokens.MintAccess(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return gatedSession(user, access), nil
	}
	pair, err := tokens.MintPair(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{
		User:             user,
		AccessToken:      pair.Access.Token,
		AccessExpiresAt:  pair.Access.ExpiresAt,
		RefreshToken:     pair.Refresh.Token,
		RefreshExpiresAt: pair.Refresh.ExpiresAt,
	}, nil
}

func gatedSession(user *model.User, access *IssuedToken) *Session {
	return &Session{
		AccessToken:         access.Token,
		AccessExpiresAt:     access.ExpiresAt,
		ToBeDeleted:         true,
		DeletionRequestedAt: user.DeletionRequestedAt,
	}
}

// Refresh mints a new access token from a valid refresh token. The refresh
// token itself is not rotated.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	session, err := s.refresh(ctx, refreshToken)
	if err != nil {
		metrics.AuthEvent("refresh", resultOf(err))
		return nil, err
	}
	metrics.AuthEvent("refresh", metrics.ResultOK)
	return session, nil
}

// refresh re-reads the refresh row and the user inside the mint transaction,
// and checks the row again after minting. A logout or deletion request that
// lands while the access token is minted rolls the mint back.
func (s *SessionService) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.Validate(ctx, refreshToken, jwt.TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	var session *Session
	err = dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		tokens := s.tokens.WithTx(tx)
		if err := tokens.Recheck(ctx, refreshToken, claims); err != nil {
			return err
		}
		user, err := s.users.WithTx(tx).GetByID(ctx, claims.UserID)
		if err != nil {
			if appErr.IsNotFound(err) {
				return appErr.ErrInvalidCredential
			}
			return err
		}
		access, err := tokens.MintAccess(ctx, user.ID)
		if err != nil {
			return err
		}
		if err := tokens.Recheck(ctx, refreshToken, claims); err != nil {
			return err
		}
		if user.ToBeDeleted {
			session = gatedSession(user, access)
			return nil
		}
		session = &Session{
			User:            user,
			AccessToken:     access.Token,
			AccessExpiresAt: access.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes every token the user holds.
func (s *SessionService) Logout(ctx context.Context, userID string) error {
	if err := s.tokens.RevokeAll(ctx, userID, ""); err != nil {
		return err
	}
	metrics.AuthEvent("logout", metrics.ResultOK)
	return nil
}

// Authenticate resolves a bearer access token to its user.
func (s *SessionService) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.tokens.Validate(ctx, accessToken, jwt.TokenTypeAccess)
	if err != nil {
		metrics.AuthEvent("authenticate", resultOf(err))
		return nil, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrInvalidCredential
		}
		return nil, err
	}
	return user, nil
}

func (s *SessionService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}

func resultOf(err error) string {
	switch {
	case errors.Is(err, appErr.ErrExpiredCredential):
		return metrics.ResultExpired
	case errors.Is(err, appErr.ErrRevokedToken):
		return metrics.ResultRevoked
	case errors.Is(err, appErr.ErrInvalidCredential), errors.Is(err, appErr.ErrInvalid):
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
