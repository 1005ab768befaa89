package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is one account document in the "users" collection. Received messages
// are embedded so that delivery and deletion stay single-document updates.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Username string `bson:"username" json:"username"`
	Email    string `bson:"email" json:"email"`
	Password string `bson:"password" json:"-"` // argon2id hash, never returned

	// Email verification. The code is not cleared after a successful
	// verification; is_verified is the only gate that matters afterwards.
	VerifyCode           string    `bson:"verify_code" json:"-"`
	VerifyCodeExpiration time.Time `bson:"verify_code_expiration" json:"-"`
	IsVerified           bool      `bson:"is_verified" json:"is_verified"`

	IsAcceptingMessages bool `bson:"is_accepting_messages" json:"is_accepting_messages"`

	Messages []Message `bson:"messages" json:"messages,omitempty"`
}

// Message is a single anonymous message embedded in its recipient's document.
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Content   string             `bson:"content" json:"content"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
