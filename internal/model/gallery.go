package model

type GalleryImage struct {
	ID          string   `json:"id" db:"id"`
	UserID      string   `json:"-" db:"user_id"`
	FileName    string   `json:"file_name" db:"file_name"`
	Description string   `json:"description" db:"description"`
	StorageKey  string   `json:"-" db:"storage_key"`
	URL         string   `json:"url" db:"url"`
	ContentType string   `json:"content_type" db:"content_type"`
	Size        int64    `json:"size" db:"size"`
	Width       int      `json:"width" db:"width"`
	Height      int      `json:"height" db:"height"`
	Ctime       int64    `json:"ctime" db:"ctime"`
	Mtime       int64    `json:"mtime" db:"mtime"`
	FolderIDs   []string `json:"folder_ids" db:"-"`
}

type Folder struct {
	ID           string   `json:"id" db:"id"`
	UserID       string   `json:"-" db:"user_id"`
	Name         string   `json:"name" db:"name"`
	Description  string   `json:"description" db:"description"`
	CoverImageID *string  `json:"cover_image_id" db:"cover_image_id"`
	Color        int      `json:"folder_color" db:"folder_color"`
	IsPublic     bool     `json:"is_public" db:"is_public"`
	PublicID     *string  `json:"public_id,omitempty" db:"public_id"`
	ImageCount   int      `json:"image_count" db:"image_count"`
	Ctime        int64    `json:"ctime" db:"ctime"`
	Mtime        int64    `json:"mtime" db:"mtime"`
	ImageIDs     []string `json:"image_ids" db:"-"`
	PublicURL    string   `json:"public_url,omitempty" db:"-"`
}

// HasImage reports whether imageID is one of the loaded ImageIDs.
func (f *Folder) HasImage(imageID string) bool {
	for _, id := range f.ImageIDs {
		if id == imageID {
			return true
		}
	}
	return false
}
