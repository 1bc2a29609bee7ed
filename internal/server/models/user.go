// Package models defines server-side data models persisted in the database.
package models

import "time"

// SignupMethod discriminates the four supported signup paths.
type SignupMethod string

const (
	SignupMethodSocial           SignupMethod = "social"
	SignupMethodWallet           SignupMethod = "wallet"
	SignupMethodSeedImport       SignupMethod = "seed_import"
	SignupMethodPrivateKeyImport SignupMethod = "private_key_import"
)

// UserType is carried into the user_type token claim.
type UserType string

const (
	UserTypeAdmin UserType = "admin"
	UserTypeUser  UserType = "user"
)

// User is created exactly once per identity-resolution key (social identity
// or first-seen wallet address); later signups resolving to the same key
// reuse the record. ID is assigned at creation and immutable.
type User struct {
	ID                string
	SignupMethod      SignupMethod
	UserType          UserType
	FirstName         string
	LastName          string
	Email             string
	SocialPlatform    string
	SocialID          string
	PhoneLoginEnabled bool
	PhoneUniqueID     string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
