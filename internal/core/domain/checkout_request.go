package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sample status codes, persisted as small integers.
const (
	SampleStatusWaitingToLeave = 0
	SampleStatusWithRequester  = 1
	SampleStatusReturned       = 2
)

// CheckoutRequest represents a single requester's validated claim on one
// sample tube. The composite unique index on (village, month, year, tube)
// is what arbitrates concurrent claims for the same tube: a racing batch
// that passes the pre-commit availability check still fails at commit time
// with a duplicate-key conflict instead of double-allocating the tube.
type CheckoutRequest struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_checkout_requests_user" json:"user_id"`
	UploadID         *uuid.UUID `gorm:"type:uuid;index:idx_checkout_requests_upload" json:"upload_id,omitempty"`
	ToProduce        string     `gorm:"type:varchar(60);not null" json:"to_produce"`
	VillageSymbol    string     `gorm:"type:varchar(15);not null;uniqueIndex:idx_unique_tube_claim" json:"village_symbol"`
	CollectionMonth  int        `gorm:"not null;uniqueIndex:idx_unique_tube_claim" json:"collection_month"`
	CollectionYear   int        `gorm:"not null;uniqueIndex:idx_unique_tube_claim" json:"collection_year"`
	TissueType       string     `gorm:"type:varchar(30);not null" json:"tissue_type"`
	TubeNumber       int        `gorm:"not null;uniqueIndex:idx_unique_tube_claim" json:"tube_number"`
	NewBuilding      string     `gorm:"type:varchar(10);not null" json:"new_building"`
	NewRoom          string     `gorm:"type:varchar(30);not null" json:"new_room"`
	NewCryo          string     `gorm:"type:varchar(30);not null" json:"new_cryo"`
	SampleStatus     int        `gorm:"not null;default:0" json:"sample_status"`
	PassedValidation bool       `gorm:"not null;default:false" json:"passed_validation"`
	DateOfRequest    time.Time  `gorm:"not null" json:"date_of_request"`
	DateApproved     *time.Time `json:"date_approved,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	User   *User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Upload *Upload `gorm:"foreignKey:UploadID" json:"upload,omitempty"`
}

// TableName specifies the table name for GORM
func (CheckoutRequest) TableName() string {
	return "checkout_requests"
}

// BeforeCreate GORM hook
func (r *CheckoutRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Approve records admin approval of the request
func (r *CheckoutRequest) Approve(at time.Time) {
	r.DateApproved = &at
}

// IsApproved reports whether an admin has approved the request
func (r *CheckoutRequest) IsApproved() bool {
	return r.DateApproved != nil
}

// SampleStatusNames maps each status code to its human-readable name
func SampleStatusNames() map[int]string {
	return map[int]string{
		SampleStatusWaitingToLeave: "waiting to leave",
		SampleStatusWithRequester:  "with requester",
		SampleStatusReturned:       "returned",
	}
}

// IsValidSampleStatus checks if a status code is valid
func IsValidSampleStatus(code int) bool {
	_, ok := SampleStatusNames()[code]
	return ok
}
