package entities

import "time"

type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"uniqueIndex;size:80;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;size:120;not null" json:"email"`
	FullName     string     `gorm:"size:200;not null" json:"full_name"`
	PasswordHash string     `gorm:"size:256;not null" json:"-"`
	IsAdmin      bool       `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Book is an uploaded file plus its catalogue data. FilePath is the blob key
// in the configured blob store; Filename is the name served on download.
type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"index;size:200;not null" json:"title"`
	Author      string    `gorm:"index;size:200;not null" json:"author"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Filename    string    `gorm:"size:255;not null" json:"filename"`
	FilePath    string    `gorm:"size:500;not null" json:"-"`
	FileSize    int64     `json:"file_size"`
	UploadedAt  time.Time `gorm:"index" json:"uploaded_at"`
	CategoryID  uint      `gorm:"index;not null" json:"category_id"`
	UploadedBy  uint      `gorm:"index;not null" json:"uploaded_by"`
	Category    Category  `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category"`
	Uploader    User      `gorm:"foreignKey:UploadedBy;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`

	// DownloadCount is derived from the downloads table, never stored.
	DownloadCount int64 `gorm:"-" json:"download_count"`
}

// Download is an append-only record of a file retrieval attempt.
type Download struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DownloadedAt time.Time `gorm:"index" json:"downloaded_at"`
	IPAddress    string    `gorm:"size:45" json:"ip_address,omitempty"` // IPv6 compatible
	UserID       uint      `gorm:"index;not null" json:"user_id"`
	BookID       uint      `gorm:"index;not null" json:"book_id"`
	User         User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	Book         Book      `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book"`
}

func (User) TableName() string {
	return "users"
}

func (Category) TableName() string {
	return "categories"
}

func (Book) TableName() string {
	return "books"
}

func (Download) TableName() string {
	return "downloads"
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   uint
	Username string
	FullName string
	IsAdmin  bool
}

// PrincipalFromUser builds the request principal for a stored user.
func PrincipalFromUser(u *User) *Principal {
	return &Principal{
		UserID:   u.ID,
		Username: u.Username,
		FullName: u.FullName,
		IsAdmin:  u.IsAdmin,
	}
}
