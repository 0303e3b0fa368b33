package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/filestore"
	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/notify"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrImageTooLarge    = errors.New("image too large")
	ErrUploadFailed     = errors.New("image upload failed")
)

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ProfileUpdate carries the editable profile fields. A nil field is left as is.
type ProfileUpdate struct {
	FirstName       *string   `json:"first_name"`
	LastName        *string   `json:"last_name"`
	PhoneNumber     *string   `json:"phone_number"`
	Profession      *string   `json:"profession"`
	BusinessName    *string   `json:"business_name"`
	BusinessAddress *string   `json:"business_address"`
	Skills          *[]string `json:"skills"`
	HasOnboarded    *bool     `json:"has_onboarded"`
}

type UserService struct {
	users    *repo.UserRepo
	store    filestore.Store
	notifier Notifier
	maxBytes int64
	now      func() time.Time
}

func NewUserService(users *repo.UserRepo, store filestore.Store, notifier Notifier, maxBytes int64, opts ...Option) *UserService {
	o := applyOptions(opts)
	return &UserService{users: users, store: store, notifier: notifier, maxBytes: maxBytes, now: o.now}
}

func (s *UserService) MaxUploadBytes() int64 {
	return s.maxBytes
}

func (s *UserService) activeUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ToBeDeleted {
		return nil, appErr.ErrForbidden
	}
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (*model.User, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	update := map[string]interface{}{}
	setString := func(col string, v *string) {
		if v != nil {
			update[col] = strings.TrimSpace(*v)
		}
	}
	setString("first_name", in.FirstName)
	setString("last_name", in.LastName)
	setString("phone_number", in.PhoneNumber)
	setString("profession", in.Profession)
	setString("business_name", in.BusinessName)
	setString("business_address", in.BusinessAddress)
	if in.Skills != nil {
		skills := make(model.StringList, 0, len(*in.Skills))
		for _, skill := range *in.Skills {
			if skill = strings.TrimSpace(skill); skill != "" {
				skills = append(skills, skill)
			}
		}
		update["skills"] = skills
	}
	onboarded := in.HasOnboarded != nil && *in.HasOnboarded && !user.HasOnboarded
	if in.HasOnboarded != nil {
		update["has_onboarded"] = *in.HasOnboarded
	}
	if len(update) == 0 {
		return user, nil
	}
	if err := s.users.Update(ctx, userID, update, s.now().Unix()); err != nil {
		return nil, err
	}
	updated, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if onboarded {
		s.notifier.Dispatch(ctx, notify.WelcomeMessage{Email: updated.Email, Name: updated.DisplayName()})
	}
	return updated, nil
}

// UpdateBusinessImage stores a new business image and replaces the previous
// one. Only png, jpeg, webp and gif content is accepted.
func (s *UserService) UpdateBusinessImage(ctx context.Context, userID string, r io.ReadSeeker, size int64) (*model.User, error) {
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		return nil, appErr.ErrInvalid
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrImageTooLarge
	}
	_, ext, err := sniffImage(r)
	if err != nil {
		return nil, err
	}
	key, err := imageKey(userID, ext)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, key, r, size); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	update := map[string]interface{}{
		"business_image":     s.store.URL(key),
		"business_image_key": key,
	}
	if err := s.users.Update(ctx, userID, update, s.now().Unix()); err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			logutil.GetLogger(ctx).Warn("remove orphan image failed", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}
	if user.BusinessImageKey != "" && user.BusinessImageKey != key {
		if err := s.store.Delete(ctx, user.BusinessImageKey); err != nil {
			logutil.GetLogger(ctx).Warn("remove previous image failed",
				zap.String("user_id", userID), zap.String("key", user.BusinessImageKey), zap.Error(err))
		}
	}
	return s.users.GetByID(ctx, userID)
}

// sniffImage returns the content type and file extension of r and rewinds it.
func sniffImage(r io.ReadSeeker) (string, string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(r, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", "", err
	}
	contentType := http.DetectContentType(buf[:n])
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", ErrUnsupportedImage
	}
	return contentType, ext, nil
}

func imageKey(userID, ext string) (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return userID + "_" + hex.EncodeToString(buf) + ext, nil
}
