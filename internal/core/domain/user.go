package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User represents a registered researcher allowed to request sample checkouts
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Username  string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"type:varchar(128)" json:"-"`
	APIToken  string    `gorm:"type:varchar(64);uniqueIndex" json:"-"`
	FirstName string    `gorm:"type:varchar(30)" json:"first_name,omitempty"`
	LastName  string    `gorm:"type:varchar(30)" json:"last_name,omitempty"`
	Active    bool      `gorm:"default:false" json:"active"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	PIName    string    `gorm:"type:varchar(80);not null" json:"pi_name"`
	PIEmail   string    `gorm:"type:varchar(80);not null" json:"pi_email"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Uploads          []Upload          `gorm:"foreignKey:UserID" json:"uploads,omitempty"`
	CheckoutRequests []CheckoutRequest `gorm:"foreignKey:UserID" json:"checkout_requests,omitempty"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// BeforeCreate GORM hook
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// SetPassword hashes and stores the password
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	u.Password = string(hash)
	return nil
}

// CheckPassword compares a candidate password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// FullName returns the user's display name
func (u *User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}
