package repo

import (
	"context"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

var galleryColumns = []string{
	"id", "user_id", "file_name", "description", "storage_key", "url",
	"content_type", "size", "width", "height", "ctime", "mtime",
}

const galleryOrderBy = "ctime DESC, id ASC"

type GalleryRepo struct {
	db dbutil.DBTX
}

func NewGalleryRepo(db dbutil.DBTX) *GalleryRepo {
	return &GalleryRepo{db: db}
}

func (r *GalleryRepo) WithTx(tx dbutil.DBTX) *GalleryRepo {
	return &GalleryRepo{db: tx}
}

func (r *GalleryRepo) Create(ctx context.Context, image *model.GalleryImage) error {
	data := map[string]interface{}{
		"id":           image.ID,
		"user_id":      image.UserID,
		"file_name":    image.FileName,
		"description":  image.Description,
		"storage_key":  image.StorageKey,
		"url":          image.URL,
		"content_type": image.ContentType,
		"size":         image.Size,
		"width":        image.Width,
		"height":       image.Height,
		"ctime":        image.Ctime,
		"mtime":        image.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("gallery_images", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	_, err = execAffected(ctx, r.db, sqlStr, args)
	return err
}

func (r *GalleryRepo) GetByID(ctx context.Context, userID, imageID string) (*model.GalleryImage, error) {
	sqlStr, args, err := builder.BuildSelect("gallery_images", map[string]interface{}{"id": imageID, "user_id": userID}, galleryColumns)
	if err != nil {
		return nil, err
	}
	var image model.GalleryImage
	if err := getOne(ctx, r.db, &image, sqlStr, args); err != nil {
		return nil, err
	}
	return &image, nil
}

// ListByIDs returns the user's images among ids. Missing or foreign ids are
// silently absent, so callers compare lengths to detect them.
func (r *GalleryRepo) ListByIDs(ctx context.Context, userID string, ids []string) ([]*model.GalleryImage, error) {
	images := make([]*model.GalleryImage, 0)
	if len(ids) == 0 {
		return images, nil
	}
	where := map[string]interface{}{"user_id": userID, "id in": stringArgs(ids), "_orderby": galleryOrderBy}
	sqlStr, args, err := builder.BuildSelect("gallery_images", where, galleryColumns)
	if err != nil {
		return nil, err
	}
	if err := selectAll(ctx, r.db, &images, sqlStr, args); err != nil {
		return nil, err
	}
	return images, nil
}

func (r *GalleryRepo) List(ctx context.Context, userID string, limit, offset uint) ([]*model.GalleryImage, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": galleryOrderBy}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("gallery_images", where, galleryColumns)
	if err != nil {
		return nil, err
	}
	images := make([]*model.GalleryImage, 0)
	if err := selectAll(ctx, r.db, &images, sqlStr, args); err != nil {
		return nil, err
	}
	return images, nil
}

func (r *GalleryRepo) Count(ctx context.Context, userID string) (int, error) {
	sqlStr, args, err := builder.BuildSelect("gallery_images", map[string]interface{}{"user_id": userID}, []string{"COUNT(*)"})
	if err != nil {
		return 0, err
	}
	var count int
	if err := getOne(ctx, r.db, &count, sqlStr, args); err != nil {
		return 0, err
	}
	return count, nil
}

func inFolder(folderID string) builder.Comparable {
	return builder.Custom("id IN (SELECT image_id FROM folder_images WHERE folder_id = ?)", folderID)
}

// ListInFolder pages through the images of folderID owned by ownerID.
func (r *GalleryRepo) ListInFolder(ctx context.Context, ownerID, folderID string, limit, offset uint) ([]*model.GalleryImage, error) {
	where := map[string]interface{}{
		"user_id":        ownerID,
		"_custom_folder": inFolder(folderID),
		"_orderby":       galleryOrderBy,
	}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("gallery_images", where, galleryColumns)
	if err != nil {
		return nil, err
	}
	images := make([]*model.GalleryImage, 0)
	if err := selectAll(ctx, r.db, &images, sqlStr, args); err != nil {
		return nil, err
	}
	return images, nil
}

func (r *GalleryRepo) CountInFolder(ctx context.Context, ownerID, folderID string) (int, error) {
	where := map[string]interface{}{"user_id": ownerID, "_custom_folder": inFolder(folderID)}
	sqlStr, args, err := builder.BuildSelect("gallery_images", where, []string{"COUNT(*)"})
	if err != nil {
		return 0, err
	}
	var count int
	if err := getOne(ctx, r.db, &count, sqlStr, args); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GalleryRepo) Update(ctx context.Context, userID, imageID string, update map[string]interface{}, mtime int64) error {
	data := make(map[string]interface{}, len(update)+1)
	for k, v := range update {
		data[k] = v
	}
	data["mtime"] = mtime
	sqlStr, args, err := builder.BuildUpdate("gallery_images", map[string]interface{}{"id": imageID, "user_id": userID}, data)
	if err != nil {
		return err
	}
	affected, err := execAffected(ctx, r.db, sqlStr, args)
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

// DeleteByIDs removes the rows only. Folder links go with them through the
// foreign key; the stored objects are the caller's job.
func (r *GalleryRepo) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	sqlStr, args, err := builder.BuildDelete("gallery_images", map[string]interface{}{"user_id": userID, "id in": stringArgs(ids)})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, r.db, sqlStr, args)
}

// StorageKeysByUsers maps each user to the storage keys of their images.
func (r *GalleryRepo) StorageKeysByUsers(ctx context.Context, userIDs []string) (map[string][]string, error) {
	out := make(map[string][]string, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	where := map[string]interface{}{"user_id in": stringArgs(userIDs)}
	sqlStr, args, err := builder.BuildSelect("gallery_images", where, []string{"user_id", "storage_key"})
	if err != nil {
		return nil, err
	}
	var rows []struct {
		UserID     string `db:"user_id"`
		StorageKey string `db:"storage_key"`
	}
	if err := selectAll(ctx, r.db, &rows, sqlStr, args); err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], row.StorageKey)
	}
	return out, nil
}
