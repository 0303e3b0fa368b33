package repo

import (
	"context"
	"strings"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
)

var folderColumns = []string{
	"id", "user_id", "name", "description", "cover_image_id", "folder_color",
	"is_public", "public_id", "ctime", "mtime",
	"(SELECT COUNT(*) FROM folder_images fi WHERE fi.folder_id = folders.id) AS image_count",
}

type FolderRepo struct {
	db dbutil.DBTX
}

func NewFolderRepo(db dbutil.DBTX) *FolderRepo {
	return &FolderRepo{db: db}
}

func (r *FolderRepo) WithTx(tx dbutil.DBTX) *FolderRepo {
	return &FolderRepo{db: tx}
}

func (r *FolderRepo) Create(ctx context.Context, folder *model.Folder) error {
	data := map[string]interface{}{
		"id":             folder.ID,
		"user_id":        folder.UserID,
		"name":           folder.Name,
		"description":    folder.Description,
		"cover_image_id": folder.CoverImageID,
		"folder_color":   folder.Color,
		"is_public":      folder.IsPublic,
		"public_id":      folder.PublicID,
		"ctime":          folder.Ctime,
		"mtime":          folder.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("folders", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	if _, err := execAffected(ctx, r.db, sqlStr, args); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *FolderRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Folder, error) {
	sqlStr, args, err := builder.BuildSelect("folders", where, folderColumns)
	if err != nil {
		return nil, err
	}
	var folder model.Folder
	if err := getOne(ctx, r.db, &folder, sqlStr, args); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (r *FolderRepo) GetByID(ctx context.Context, userID, folderID string) (*model.Folder, error) {
	return r.getOne(ctx, map[string]interface{}{"id": folderID, "user_id": userID})
}

// GetPublic finds a shared folder by its public id. Private folders are
// reported as not found.
func (r *FolderRepo) GetPublic(ctx context.Context, publicID string) (*model.Folder, error) {
	return r.getOne(ctx, map[string]interface{}{"public_id": publicID, "is_public": true})
}

func (r *FolderRepo) List(ctx context.Context, userID string, limit, offset uint) ([]*model.Folder, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "ctime DESC, id ASC"}
	if limit > 0 {
		where["_limit"] = []uint{offset, limit}
	}
	sqlStr, args, err := builder.BuildSelect("folders", where, folderColumns)
	if err != nil {
		return nil, err
	}
	folders := make([]*model.Folder, 0)
	if err := selectAll(ctx, r.db, &folders, sqlStr, args); err != nil {
		return nil, err
	}
	return folders, nil
}

func (r *FolderRepo) Count(ctx context.Context, userID string) (int, error) {
	sqlStr, args, err := builder.BuildSelect("folders", map[string]interface{}{"user_id": userID}, []string{"COUNT(*)"})
	if err != nil {
		return 0, err
	}
	var count int
	if err := getOne(ctx, r.db, &count, sqlStr, args); err != nil {
		return 0, err
	}
	return count, nil
}

// Update writes the given columns. A clash on name or public id is reported
// as ErrConflict.
func (r *FolderRepo) Update(ctx context.Context, userID, folderID string, update map[string]interface{}, mtime int64) error {
	data := make(map[string]interface{}, len(update)+1)
	for k, v := range update {
		data[k] = v
	}
	data["mtime"] = mtime
	sqlStr, args, err := builder.BuildUpdate("folders", map[string]interface{}{"id": folderID, "user_id": userID}, data)
	if err != nil {
		return err
	}
	affected, err := execAffected(ctx, r.db, sqlStr, args)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *FolderRepo) Delete(ctx context.Context, userID, folderID string) error {
	sqlStr, args, err := builder.BuildDelete("folders", map[string]interface{}{"id": folderID, "user_id": userID})
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

// AddImages links every image to every folder. Existing links are kept.
func (r *FolderRepo) AddImages(ctx context.Context, folderIDs, imageIDs []string, ctime int64) error {
	if len(folderIDs) == 0 || len(imageIDs) == 0 {
		return nil
	}
	rows := make([]string, 0, len(folderIDs)*len(imageIDs))
	args := make([]interface{}, 0, len(folderIDs)*len(imageIDs)*3)
	for _, folderID := range folderIDs {
		for _, imageID := range imageIDs {
			rows = append(rows, "(?, ?, ?)")
			args = append(args, folderID, imageID, ctime)
		}
	}
	sqlStr := "INSERT INTO folder_images (folder_id, image_id, ctime) VALUES " + strings.Join(rows, ", ") +
		" ON CONFLICT (folder_id, image_id) DO NOTHING"
	_, err := execAffected(ctx, r.db, sqlStr, args)
	return err
}

func (r *FolderRepo) RemoveImages(ctx context.Context, folderID string, imageIDs []string) (int64, error) {
	if len(imageIDs) == 0 {
		return 0, nil
	}
	where := map[string]interface{}{"folder_id": folderID, "image_id in": stringArgs(imageIDs)}
	sqlStr, args, err := builder.BuildDelete("folder_images", where)
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, r.db, sqlStr, args)
}

func (r *FolderRepo) links(ctx context.Context, column string, ids []string) ([]folderLink, error) {
	var rows []folderLink
	if len(ids) == 0 {
		return rows, nil
	}
	where := map[string]interface{}{column + " in": stringArgs(ids), "_orderby": "ctime ASC, image_id ASC"}
	sqlStr, args, err := builder.BuildSelect("folder_images", where, []string{"folder_id", "image_id"})
	if err != nil {
		return nil, err
	}
	if err := selectAll(ctx, r.db, &rows, sqlStr, args); err != nil {
		return nil, err
	}
	return rows, nil
}

type folderLink struct {
	FolderID string `db:"folder_id"`
	ImageID  string `db:"image_id"`
}

// ImageIDsByFolders maps each folder to its image ids in insertion order.
func (r *FolderRepo) ImageIDsByFolders(ctx context.Context, folderIDs []string) (map[string][]string, error) {
	rows, err := r.links(ctx, "folder_id", folderIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(folderIDs))
	for _, row := range rows {
		out[row.FolderID] = append(out[row.FolderID], row.ImageID)
	}
	return out, nil
}

// FolderIDsByImages maps each image to the folders holding it.
func (r *FolderRepo) FolderIDsByImages(ctx context.Context, imageIDs []string) (map[string][]string, error) {
	rows, err := r.links(ctx, "image_id", imageIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(imageIDs))
	for _, row := range rows {
		out[row.ImageID] = append(out[row.ImageID], row.FolderID)
	}
	return out, nil
}

// ClearCover unsets the cover of folderID when it is one of imageIDs.
func (r *FolderRepo) ClearCover(ctx context.Context, folderID string, imageIDs []string, mtime int64) error {
	if len(imageIDs) == 0 {
		return nil
	}
	where := map[string]interface{}{"id": folderID, "cover_image_id in": stringArgs(imageIDs)}
	sqlStr, args, err := builder.BuildUpdate("folders", where, map[string]interface{}{"cover_image_id": nil, "mtime": mtime})
	if err != nil {
		return err
	}
	_, err = execAffected(ctx, r.db, sqlStr, args)
	return err
}
