package domain

// User as carried in request context after JWT validation.
type User struct {
	Id    UserId `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Credentials is the stored user row, password is the bcrypt hash.
type Credentials struct {
	User
	Password string `json:"-"`
}
