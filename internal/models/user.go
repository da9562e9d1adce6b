package models

import "time"

// User represents a staff account of the internal tool.
type User struct {
	ID                     string     `bson:"_id" json:"id"`
	Email                  string     `bson:"email" json:"email"`
	PasswordHash           string     `bson:"password" json:"-"` // Never expose this to the client
	FirstName              string     `bson:"firstName" json:"firstName"`
	LastName               string     `bson:"lastName" json:"lastName"`
	PasswordResetToken     string     `bson:"passwordResetToken,omitempty" json:"-"`
	PasswordResetExpiresAt *time.Time `bson:"passwordResetExpiresAt,omitempty" json:"-"`
	CreatedAt              time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time  `bson:"updatedAt" json:"updatedAt"`
}
