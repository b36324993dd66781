package model

import "time"

// User is the public profile document kept in the users collection.
type User struct {
	ID           string     `json:"id" bson:"_id"`
	DisplayName  string     `json:"display_name" bson:"display_name"`
	Username     string     `json:"username" bson:"username"`
	Email        string     `json:"email,omitempty" bson:"email"`
	PhotoURL     string     `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	IsAdmin      bool       `json:"is_admin" bson:"is_admin"`
	IsTrusted    bool       `json:"is_trusted" bson:"is_trusted"`
	TrustedSince *time.Time `json:"trusted_since,omitempty" bson:"trusted_since,omitempty"`
	VerifiedBy   string     `json:"verified_by,omitempty" bson:"verified_by,omitempty"`
	VerifierName string     `json:"verifier_name,omitempty" bson:"verifier_name,omitempty"`
	CreatedAt    time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" bson:"updated_at"`
}

// PublicView strips the email before a profile is shown to other users.
func (u User) PublicView() User {
	u.Email = ""
	return u
}

// Snapshot returns the denormalized author fields copied onto content.
func (u *User) Snapshot() AuthorSnapshot {
	return AuthorSnapshot{ID: u.ID, Name: u.DisplayName, PhotoURL: u.PhotoURL}
}

// UsernameReservation claims a lowercase username. The document id is the username itself.
type UsernameReservation struct {
	Username  string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
}

// CurrentUser is the acting identity resolved from a verified access token.
type CurrentUser struct {
	ID       string
	Email    string
	Name     string
	PhotoURL string
	IsAdmin  bool
}
