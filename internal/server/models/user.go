package models

// User is an account row. PasswordHash is a bcrypt hash, never the password.
type User struct {
	ID           string
	Login        string
	PasswordHash string
}
