package users

import "time"

const tableName = "users"

type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"not null;default:now()"`
}

func (User) TableName() string {
	return tableName
}

// Public is the client-safe view of a User.
type Public struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u *User) Public() Public {
	return Public{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}
