package service

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/filestore"
	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
)

const (
	defaultImagesPerPage = 10
	maxImageFileName     = 255
	maxImageDescription  = 1000
)

// GalleryUpdate carries the editable image fields. A nil field is left as is.
type GalleryUpdate struct {
	FileName    *string `json:"file_name"`
	Description *string `json:"description"`
}

type GalleryPage struct {
	Images     []*model.GalleryImage `json:"images"`
	Pagination Pagination            `json:"pagination"`
}

type GalleryService struct {
	db       *sqlx.DB
	images   *repo.GalleryRepo
	folders  *repo.FolderRepo
	store    filestore.Store
	maxBytes int64
	now      func() time.Time
}

func NewGalleryService(db *sqlx.DB, images *repo.GalleryRepo, folders *repo.FolderRepo, store filestore.Store,
	maxBytes int64, opts ...Option) *GalleryService {
	o := applyOptions(opts)
	return &GalleryService{db: db, images: images, folders: folders, store: store, maxBytes: maxBytes, now: o.now}
}

func (s *GalleryService) MaxUploadBytes() int64 {
	return s.maxBytes
}

func galleryKey(userID, imageID, ext string) string {
	return "gallery_" + userID + "_" + imageID + ext
}

// imageSize reads the dimensions from the header and rewinds r. Formats
// without a registered decoder report zero.
func imageSize(r io.ReadSeeker) (int, int, error) {
	cfg, _, err := image.DecodeConfig(r)
	if _, serr := r.Seek(0, io.SeekStart); serr != nil {
		return 0, 0, serr
	}
	if err != nil {
		return 0, 0, nil
	}
	return cfg.Width, cfg.Height, nil
}

func cleanFileName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxImageFileName {
		return "", appErr.Invalid("file_name must be 1-%d characters", maxImageFileName)
	}
	return name, nil
}

func cleanDescription(desc string) (string, error) {
	desc = strings.TrimSpace(desc)
	if utf8.RuneCountInString(desc) > maxImageDescription {
		return "", appErr.Invalid("description must be at most %d characters", maxImageDescription)
	}
	return desc, nil
}

// Upload stores an image in the user's gallery. The object is removed again
// when the row cannot be written.
func (s *GalleryService) Upload(ctx context.Context, userID, fileName, description string, r io.ReadSeeker, size int64) (*model.GalleryImage, error) {
	if size <= 0 {
		return nil, appErr.Invalid("image is empty")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, ErrImageTooLarge
	}
	name, err := cleanFileName(fileName)
	if err != nil {
		return nil, err
	}
	desc, err := cleanDescription(description)
	if err != nil {
		return nil, err
	}
	contentType, ext, err := sniffImage(r)
	if err != nil {
		return nil, err
	}
	width, height, err := imageSize(r)
	if err != nil {
		return nil, err
	}
	id, err := newImageID()
	if err != nil {
		return nil, err
	}
	key := galleryKey(userID, id, ext)
	if err := s.store.Save(ctx, key, r, size); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	now := s.now().Unix()
	img := &model.GalleryImage{
		ID:          id,
		UserID:      userID,
		FileName:    name,
		Description: desc,
		StorageKey:  key,
		URL:         s.store.URL(key),
		ContentType: contentType,
		Size:        size,
		Width:       width,
		Height:      height,
		Ctime:       now,
		Mtime:       now,
		FolderIDs:   []string{},
	}
	if err := s.images.Create(ctx, img); err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			logutil.GetLogger(ctx).Warn("remove orphan image failed", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}
	logutil.GetLogger(ctx).Info("gallery image uploaded",
		zap.String("user_id", userID), zap.String("image_id", id), zap.Int64("size", size))
	return img, nil
}

func (s *GalleryService) withFolders(ctx context.Context, images ...*model.GalleryImage) error {
	ids := make([]string, 0, len(images))
	for _, img := range images {
		ids = append(ids, img.ID)
	}
	links, err := s.folders.FolderIDsByImages(ctx, ids)
	if err != nil {
		return err
	}
	for _, img := range images {
		img.FolderIDs = links[img.ID]
		if img.FolderIDs == nil {
			img.FolderIDs = []string{}
		}
	}
	return nil
}

func (s *GalleryService) List(ctx context.Context, userID string, p PageRequest) (*GalleryPage, error) {
	page := p.normalize(defaultImagesPerPage)
	total, err := s.images.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, offset := page.limitOffset()
	images, err := s.images.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.withFolders(ctx, images...); err != nil {
		return nil, err
	}
	return &GalleryPage{Images: images, Pagination: newPagination(page, total, len(images))}, nil
}

func (s *GalleryService) Get(ctx context.Context, userID, imageID string) (*model.GalleryImage, error) {
	img, err := s.images.GetByID(ctx, userID, imageID)
	if err != nil {
		return nil, err
	}
	if err := s.withFolders(ctx, img); err != nil {
		return nil, err
	}
	return img, nil
}

func (s *GalleryService) Update(ctx context.Context, userID, imageID string, in GalleryUpdate) (*model.GalleryImage, error) {
	update := map[string]interface{}{}
	if in.FileName != nil {
		name, err := cleanFileName(*in.FileName)
		if err != nil {
			return nil, err
		}
		update["file_name"] = name
	}
	if in.Description != nil {
		desc, err := cleanDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		update["description"] = desc
	}
	if len(update) > 0 {
		if err := s.images.Update(ctx, userID, imageID, update, s.now().Unix()); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, userID, imageID)
}

// Delete removes the given images. Every id must belong to the user or
// nothing is deleted. Folder links and covers go with the rows; stored
// objects are removed after the commit.
func (s *GalleryService) Delete(ctx context.Context, userID string, ids []string) (int, error) {
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return 0, appErr.Invalid("image ids must not be empty")
	}
	var doomed []*model.GalleryImage
	err := dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		images := s.images.WithTx(tx)
		var err error
		doomed, err = images.ListByIDs(ctx, userID, ids)
		if err != nil {
			return err
		}
		if len(doomed) != len(ids) {
			return appErr.ErrNotFound
		}
		_, err = images.DeleteByIDs(ctx, userID, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	logger := logutil.GetLogger(ctx)
	for _, img := range doomed {
		if err := s.store.Delete(ctx, img.StorageKey); err != nil {
			logger.Warn("delete stored image failed", zap.String("image_id", img.ID), zap.String("key", img.StorageKey), zap.Error(err))
		}
	}
	logger.Info("gallery images deleted", zap.String("user_id", userID), zap.Int("count", len(doomed)))
	return len(doomed), nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
