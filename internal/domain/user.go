package domain

// User Model. Accounts are provisioned by the identity service; only the role is read here.
type User struct {
	ID       uint   `gorm:"primaryKey"`      // Primary key
	Username string `gorm:"unique;not null"` // Unique username
	Role     string `gorm:"default:user"`    // Role: user or admin
}

// IsAdmin reports whether the user may use admin routes
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
