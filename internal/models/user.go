package models

import "time"

// User is a farmer account as stored in the users table.
type User struct {
	UserID    string    `json:"userId" gorm:"column:userid;primaryKey;type:uuid"`
	Email     string    `json:"email" gorm:"column:email;uniqueIndex;type:varchar(255);not null"`
	Password  string    `json:"-" gorm:"column:password;type:text;not null"` // bcrypt hash, never serialised
	FullName  string    `json:"full_name" gorm:"column:full_name;type:varchar(255)"`
	Country   string    `json:"country" gorm:"column:country;type:varchar(100)"`
	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
}

// TableName overrides the table name used by User to `users`.
func (User) TableName() string {
	return "users"
}

// UserProfile is the public view of a user.
type UserProfile struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Country  string `json:"country"`
}

// Profile strips the password hash.
func (u *User) Profile() UserProfile {
	return UserProfile{
		UserID:   u.UserID,
		Email:    u.Email,
		FullName: u.FullName,
		Country:  u.Country,
	}
}
