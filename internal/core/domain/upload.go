package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Upload represents one submitted checkout spreadsheet
type Upload struct {
	ID          uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_uploads_user" json:"user_id"`
	Filename    string     `gorm:"type:varchar(128);not null" json:"filename"`
	StoredPath  string     `gorm:"type:text" json:"file_path"`
	FileHash    string     `gorm:"type:varchar(64);uniqueIndex;not null" json:"file_hash"` // For idempotency
	Status      string     `gorm:"type:varchar(50);not null;default:'uploaded'" json:"status"`
	TotalRows   int        `gorm:"default:0" json:"total_rows"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`

	// Relations
	User             *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CheckoutRequests []CheckoutRequest `gorm:"foreignKey:UploadID;constraint:OnDelete:CASCADE" json:"checkout_requests,omitempty"`
}

// TableName specifies the table name for GORM
func (Upload) TableName() string {
	return "uploads"
}

// BeforeCreate GORM hook
func (u *Upload) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// ValidUploadStatuses returns list of valid upload statuses
func ValidUploadStatuses() []string {
	return []string{
		"uploaded",
		"processing",
		"completed",
		"failed",
	}
}

// IsValidUploadStatus checks if a status is valid
func IsValidUploadStatus(status string) bool {
	for _, s := range ValidUploadStatuses() {
		if s == status {
			return true
		}
	}
	return false
}
