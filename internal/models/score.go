package models

import "time"

// Score is one finished training round. Scores join to users by lowercase
// email, not by foreign key; they are created and deleted, never updated.
type Score struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Email     string    `bson:"email" json:"email"` // always lowercase
	Value     int       `bson:"value" json:"value"` // 0..100
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
