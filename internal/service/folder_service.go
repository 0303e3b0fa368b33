package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/model"
	"github.com/xxxsen/hemline/internal/notify"
	"github.com/xxxsen/hemline/internal/pkg/dbutil"
	appErr "github.com/xxxsen/hemline/internal/pkg/errors"
	"github.com/xxxsen/hemline/internal/repo"
)

const (
	maxFolderColor             = 9
	maxFolderNameLength        = 100
	defaultFoldersPerPage      = 20
	defaultFolderImagesPerPage = 20
	publicIDAttempts           = 3
	maxShareRecipients         = 20
)

// FolderInput carries folder fields. A nil field is left as is on update; an
// empty CoverImageID clears the cover. ImageIDs are only read on create.
type FolderInput struct {
	Name         *string  `json:"name"`
	Description  *string  `json:"description"`
	Color        *int     `json:"folder_color"`
	CoverImageID *string  `json:"cover_image_id"`
	ImageIDs     []string `json:"image_ids"`
}

type FolderPage struct {
	Folders    []*model.Folder `json:"folders"`
	Pagination Pagination      `json:"pagination"`
}

// FolderDetail is a folder with one page of its images.
type FolderDetail struct {
	*model.Folder
	Images     []*model.GalleryImage `json:"images"`
	Pagination Pagination            `json:"pagination"`
}

// PublicOwner is the part of a profile shown next to a shared folder.
type PublicOwner struct {
	ID              string   `json:"id"`
	FirstName       string   `json:"first_name"`
	LastName        string   `json:"last_name"`
	FullName        string   `json:"full_name"`
	BusinessName    string   `json:"business_name"`
	BusinessAddress string   `json:"business_address"`
	BusinessImage   string   `json:"business_image"`
	Profession      string   `json:"profession"`
	PhoneNumber     string   `json:"phone_number"`
	Email           string   `json:"email"`
	Skills          []string `json:"skills"`
}

type PublicFolder struct {
	Folder     *model.Folder         `json:"folder"`
	Owner      PublicOwner           `json:"owner"`
	Images     []*model.GalleryImage `json:"images"`
	Pagination Pagination            `json:"pagination"`
}

type FolderService struct {
	db       *sqlx.DB
	folders  *repo.FolderRepo
	images   *repo.GalleryRepo
	users    *repo.UserRepo
	notifier Notifier
	baseURL  string
	now      func() time.Time
}

// NewFolderService builds share links as baseURL + "/folders/" + public id.
func NewFolderService(db *sqlx.DB, folders *repo.FolderRepo, images *repo.GalleryRepo, users *repo.UserRepo,
	notifier Notifier, baseURL string, opts ...Option) *FolderService {
	o := applyOptions(opts)
	return &FolderService{
		db:       db,
		folders:  folders,
		images:   images,
		users:    users,
		notifier: notifier,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		now:      o.now,
	}
}

func (s *FolderService) publicURL(publicID string) string {
	return s.baseURL + "/folders/" + publicID
}

// withImageIDs fills ImageIDs and PublicURL.
func (s *FolderService) withImageIDs(ctx context.Context, folders ...*model.Folder) error {
	ids := make([]string, 0, len(folders))
	for _, f := range folders {
		ids = append(ids, f.ID)
	}
	links, err := s.folders.ImageIDsByFolders(ctx, ids)
	if err != nil {
		return err
	}
	for _, f := range folders {
		f.ImageIDs = links[f.ID]
		if f.ImageIDs == nil {
			f.ImageIDs = []string{}
		}
		if f.IsPublic && f.PublicID != nil {
			f.PublicURL = s.publicURL(*f.PublicID)
		}
	}
	return nil
}

func cleanFolderName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxFolderNameLength {
		return "", appErr.Invalid("name must be 1-%d characters", maxFolderNameLength)
	}
	return name, nil
}

// ownedImages fails with ErrNotFound unless every id is an image of userID.
func ownedImages(ctx context.Context, images *repo.GalleryRepo, userID string, ids []string) error {
	found, err := images.ListByIDs(ctx, userID, ids)
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		return appErr.ErrNotFound
	}
	return nil
}

func (s *FolderService) Create(ctx context.Context, userID string, in FolderInput) (*model.Folder, error) {
	if in.Name == nil {
		return nil, appErr.Invalid("name is required")
	}
	now := s.now().Unix()
	folder := &model.Folder{ID: newID(), UserID: userID, Color: newFolderColor(), Ctime: now, Mtime: now}
	var err error
	if folder.Name, err = cleanFolderName(*in.Name); err != nil {
		return nil, err
	}
	if in.Description != nil {
		if folder.Description, err = cleanDescription(*in.Description); err != nil {
			return nil, err
		}
	}
	if in.Color != nil {
		if *in.Color < 1 || *in.Color > maxFolderColor {
			return nil, appErr.Invalid("folder_color must be 1-%d", maxFolderColor)
		}
		folder.Color = *in.Color
	}
	imageIDs := uniqueStrings(in.ImageIDs)
	err = dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		folders := s.folders.WithTx(tx)
		if err := ownedImages(ctx, s.images.WithTx(tx), userID, imageIDs); err != nil {
			return err
		}
		if err := folders.Create(ctx, folder); err != nil {
			return err
		}
		return folders.AddImages(ctx, []string{folder.ID}, imageIDs, now)
	})
	if err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("folder created", zap.String("user_id", userID), zap.String("folder_id", folder.ID))
	return s.load(ctx, userID, folder.ID)
}

func (s *FolderService) load(ctx context.Context, userID, folderID string) (*model.Folder, error) {
	folder, err := s.folders.GetByID(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.withImageIDs(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *FolderService) List(ctx context.Context, userID string, p PageRequest) (*FolderPage, error) {
	page := p.normalize(defaultFoldersPerPage)
	total, err := s.folders.Count(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, offset := page.limitOffset()
	folders, err := s.folders.List(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.withImageIDs(ctx, folders...); err != nil {
		return nil, err
	}
	return &FolderPage{Folders: folders, Pagination: newPagination(page, total, len(folders))}, nil
}

func (s *FolderService) Get(ctx context.Context, userID, folderID string, p PageRequest) (*FolderDetail, error) {
	folder, err := s.load(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	images, pagination, err := s.imagePage(ctx, folder, p)
	if err != nil {
		return nil, err
	}
	return &FolderDetail{Folder: folder, Images: images, Pagination: pagination}, nil
}

func (s *FolderService) imagePage(ctx context.Context, folder *model.Folder, p PageRequest) ([]*model.GalleryImage, Pagination, error) {
	page := p.normalize(defaultFolderImagesPerPage)
	total, err := s.images.CountInFolder(ctx, folder.UserID, folder.ID)
	if err != nil {
		return nil, Pagination{}, err
	}
	limit, offset := page.limitOffset()
	images, err := s.images.ListInFolder(ctx, folder.UserID, folder.ID, limit, offset)
	if err != nil {
		return nil, Pagination{}, err
	}
	return images, newPagination(page, total, len(images)), nil
}

func (s *FolderService) Update(ctx context.Context, userID, folderID string, in FolderInput) (*model.Folder, error) {
	folder, err := s.load(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	update := map[string]interface{}{}
	if in.Name != nil {
		name, err := cleanFolderName(*in.Name)
		if err != nil {
			return nil, err
		}
		update["name"] = name
	}
	if in.Description != nil {
		desc, err := cleanDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		update["description"] = desc
	}
	if in.Color != nil {
		if *in.Color < 1 || *in.Color > maxFolderColor {
			return nil, appErr.Invalid("folder_color must be 1-%d", maxFolderColor)
		}
		update["folder_color"] = *in.Color
	}
	if in.CoverImageID != nil {
		cover, err := s.checkCover(ctx, folder, *in.CoverImageID)
		if err != nil {
			return nil, err
		}
		update["cover_image_id"] = cover
	}
	if len(update) > 0 {
		if err := s.folders.Update(ctx, userID, folderID, update, s.now().Unix()); err != nil {
			return nil, err
		}
	}
	return s.load(ctx, userID, folderID)
}

// checkCover returns the column value for a cover. The image has to be the
// owner's and already in the folder.
func (s *FolderService) checkCover(ctx context.Context, folder *model.Folder, imageID string) (*string, error) {
	imageID = strings.TrimSpace(imageID)
	if imageID == "" {
		return nil, nil
	}
	if _, err := s.images.GetByID(ctx, folder.UserID, imageID); err != nil {
		return nil, err
	}
	if !folder.HasImage(imageID) {
		return nil, appErr.Invalid("cover image must be in the folder")
	}
	return &imageID, nil
}

func (s *FolderService) SetCover(ctx context.Context, userID, folderID, imageID string) (*model.Folder, error) {
	if strings.TrimSpace(imageID) == "" {
		return nil, appErr.Invalid("image_id is required")
	}
	return s.Update(ctx, userID, folderID, FolderInput{CoverImageID: &imageID})
}

// Delete removes the folder. Its images stay in the gallery.
func (s *FolderService) Delete(ctx context.Context, userID, folderID string) error {
	if err := s.folders.Delete(ctx, userID, folderID); err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("folder deleted", zap.String("user_id", userID), zap.String("folder_id", folderID))
	return nil
}

// AddImages puts every image into every folder. An empty folderIDs means
// just folderID. Every folder and image must belong to the user.
func (s *FolderService) AddImages(ctx context.Context, userID, folderID string, imageIDs, folderIDs []string) (*model.Folder, error) {
	imageIDs = uniqueStrings(imageIDs)
	if len(imageIDs) == 0 {
		return nil, appErr.Invalid("image_ids must not be empty")
	}
	folderIDs = uniqueStrings(folderIDs)
	if len(folderIDs) == 0 {
		folderIDs = []string{folderID}
	}
	now := s.now().Unix()
	err := dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		folders := s.folders.WithTx(tx)
		if _, err := folders.GetByID(ctx, userID, folderID); err != nil {
			return err
		}
		for _, id := range folderIDs {
			if _, err := folders.GetByID(ctx, userID, id); err != nil {
				return err
			}
		}
		if err := ownedImages(ctx, s.images.WithTx(tx), userID, imageIDs); err != nil {
			return err
		}
		return folders.AddImages(ctx, folderIDs, imageIDs, now)
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, userID, folderID)
}

// RemoveImages takes images out of the folder and drops the cover when it
// was one of them.
func (s *FolderService) RemoveImages(ctx context.Context, userID, folderID string, imageIDs []string) (*model.Folder, error) {
	imageIDs = uniqueStrings(imageIDs)
	if len(imageIDs) == 0 {
		return nil, appErr.Invalid("image_ids must not be empty")
	}
	now := s.now().Unix()
	err := dbutil.WithTx(ctx, s.db, func(ctx context.Context, tx dbutil.DBTX) error {
		folders := s.folders.WithTx(tx)
		if _, err := folders.GetByID(ctx, userID, folderID); err != nil {
			return err
		}
		if _, err := folders.RemoveImages(ctx, folderID, imageIDs); err != nil {
			return err
		}
		return folders.ClearCover(ctx, folderID, imageIDs, now)
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, userID, folderID)
}

// Share makes the folder public and mails the link to each recipient. The
// public id is kept across shares so links already sent stay valid.
func (s *FolderService) Share(ctx context.Context, userID, folderID string, recipients []string) (*model.Folder, error) {
	emails := make([]string, 0, len(recipients))
	for _, r := range uniqueStrings(recipients) {
		email, err := normalizeEmail(r)
		if err != nil {
			return nil, appErr.Invalid("%q is not a valid email", r)
		}
		emails = append(emails, email)
	}
	if len(emails) > maxShareRecipients {
		return nil, appErr.Invalid("at most %d recipients", maxShareRecipients)
	}
	sender, err := activeOwner(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	folder, err := s.load(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}
	if err := s.publish(ctx, folder); err != nil {
		return nil, err
	}
	if folder, err = s.load(ctx, userID, folderID); err != nil {
		return nil, err
	}
	for _, email := range emails {
		s.notifier.Dispatch(ctx, notify.FolderShareNotice{
			Email:             email,
			SenderName:        sender.DisplayName(),
			SenderBusiness:    sender.BusinessName,
			FolderName:        folder.Name,
			FolderDescription: folder.Description,
			FolderURL:         folder.PublicURL,
			ImageCount:        folder.ImageCount,
		})
	}
	logutil.GetLogger(ctx).Info("folder shared",
		zap.String("user_id", userID), zap.String("folder_id", folderID), zap.Int("recipients", len(emails)))
	return folder, nil
}

func (s *FolderService) publish(ctx context.Context, folder *model.Folder) error {
	mtime := s.now().Unix()
	if folder.PublicID != nil {
		return s.folders.Update(ctx, folder.UserID, folder.ID, map[string]interface{}{"is_public": true}, mtime)
	}
	for attempt := 0; attempt < publicIDAttempts; attempt++ {
		publicID, err := newPublicID()
		if err != nil {
			return err
		}
		update := map[string]interface{}{"is_public": true, "public_id": publicID}
		err = s.folders.Update(ctx, folder.UserID, folder.ID, update, mtime)
		if !errors.Is(err, appErr.ErrConflict) {
			return err
		}
	}
	return appErr.ErrConflict
}

// Unshare makes the folder private and retires its public id.
func (s *FolderService) Unshare(ctx context.Context, userID, folderID string) (*model.Folder, error) {
	update := map[string]interface{}{"is_public": false, "public_id": nil}
	if err := s.folders.Update(ctx, userID, folderID, update, s.now().Unix()); err != nil {
		return nil, err
	}
	return s.load(ctx, userID, folderID)
}

// activeOwner hides accounts waiting for deletion.
func activeOwner(ctx context.Context, users *repo.UserRepo, userID string) (*model.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.ToBeDeleted {
		return nil, appErr.ErrNotFound
	}
	return user, nil
}

func (s *FolderService) publicFolder(ctx context.Context, publicID string) (*model.Folder, *model.User, error) {
	folder, err := s.folders.GetPublic(ctx, publicID)
	if err != nil {
		return nil, nil, err
	}
	owner, err := activeOwner(ctx, s.users, folder.UserID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.withImageIDs(ctx, folder); err != nil {
		return nil, nil, err
	}
	return folder, owner, nil
}

// PublicFolder returns a shared folder with its owner and the first page of
// images. Folders of accounts pending deletion are not found.
func (s *FolderService) PublicFolder(ctx context.Context, publicID string, p PageRequest) (*PublicFolder, error) {
	folder, owner, err := s.publicFolder(ctx, publicID)
	if err != nil {
		return nil, err
	}
	images, pagination, err := s.imagePage(ctx, folder, p)
	if err != nil {
		return nil, err
	}
	return &PublicFolder{
		Folder: folder,
		Owner: PublicOwner{
			ID:              owner.ID,
			FirstName:       owner.FirstName,
			LastName:        owner.LastName,
			FullName:        strings.TrimSpace(owner.FirstName + " " + owner.LastName),
			BusinessName:    owner.BusinessName,
			BusinessAddress: owner.BusinessAddress,
			BusinessImage:   owner.BusinessImage,
			Profession:      owner.Profession,
			PhoneNumber:     owner.PhoneNumber,
			Email:           owner.Email,
			Skills:          owner.Skills,
		},
		Images:     images,
		Pagination: pagination,
	}, nil
}

func (s *FolderService) PublicImages(ctx context.Context, publicID string, p PageRequest) (*GalleryPage, error) {
	folder, _, err := s.publicFolder(ctx, publicID)
	if err != nil {
		return nil, err
	}
	images, pagination, err := s.imagePage(ctx, folder, p)
	if err != nil {
		return nil, err
	}
	return &GalleryPage{Images: images, Pagination: pagination}, nil
}
