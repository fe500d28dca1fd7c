package sessions

import "time"

// Session represents a persistent refresh session. Sessions are keyed by the
// opaque refresh token and carry the user's Google id so a refreshed access
// token can be re-issued without re-running the OAuth flow.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken"`
	GoogleID     string    `bson:"googleId" json:"googleId"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}
