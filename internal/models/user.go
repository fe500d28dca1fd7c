package models

import "time"

// User represents an application user (mapped from Google OIDC claims).
// The primary OAuth credential fields are optional: Google omits the refresh
// token on repeat consent, and an update must never drop a stored one.
type User struct {
	ID           string          `bson:"_id,omitempty" json:"id"`
	GoogleID     string          `bson:"googleId" json:"googleId"` // OIDC subject
	Email        string          `bson:"email" json:"email"`       // always lowercase
	Name         string          `bson:"name" json:"name"`
	Picture      string          `bson:"picture,omitempty" json:"picture,omitempty"`
	AccessToken  *string         `bson:"access_token,omitempty" json:"-"`
	RefreshToken *string         `bson:"refresh_token,omitempty" json:"-"`
	ExpiryDate   *int64          `bson:"expiry_date,omitempty" json:"-"` // epoch ms
	Gmail        GmailCredential `bson:"gmail" json:"gmail"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// GmailCredential is the secondary "linked mailbox" credential embedded in the
// user document. Field names are part of the wire contract with the frontend:
// access_token, refresh_token, expiry_date (epoch ms), connected, email.
// Invariant: Connected == true implies LinkedEmail was verified equal
// (case-insensitive) to the user's primary email when it was set.
type GmailCredential struct {
	AccessToken  *string `bson:"access_token,omitempty" json:"access_token,omitempty"`
	RefreshToken *string `bson:"refresh_token,omitempty" json:"refresh_token,omitempty"`
	ExpiryDate   *int64  `bson:"expiry_date,omitempty" json:"expiry_date,omitempty"`
	Connected    bool    `bson:"connected" json:"connected"`
	LinkedEmail  string  `bson:"email,omitempty" json:"email,omitempty"` // lowercase
}
