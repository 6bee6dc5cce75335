// Package models defines the domain types shared by the store and HTTP layers.
package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a published blog entry. Posts are created once and never modified.
type Post struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Content     string             `bson:"content" json:"content"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// PostInput is the request body accepted by both the JSON API and the new-post form.
type PostInput struct {
	Title       string `json:"title" form:"title" yaml:"title" validate:"required"`
	Description string `json:"description" form:"description" yaml:"description"`
	Content     string `json:"content" form:"content" yaml:"content" validate:"required"`
	Image       string `json:"image" form:"image" yaml:"image"`
}

// Normalize returns a copy with surrounding whitespace removed from every field.
func (in PostInput) Normalize() PostInput {
	return PostInput{
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Content:     strings.TrimSpace(in.Content),
		Image:       strings.TrimSpace(in.Image),
	}
}

// NewPost builds a document from validated input, assigning its identity and timestamps.
func NewPost(in PostInput, now time.Time) *Post {
	now = now.UTC()
	return &Post{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Description: in.Description,
		Content:     in.Content,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
