package models

import "time"

// PendingSync marks an emergency post that has not reached the backend yet.
const PendingSync = "pending_sync"

// PostInput carries the user-supplied fields of a post.
type PostInput struct {
	Content   string   `json:"content"`
	Title     string   `json:"title,omitempty"`
	Author    string   `json:"author,omitempty"`
	Topic     string   `json:"topic,omitempty"`
	Feeling   string   `json:"feeling,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Anonymous bool     `json:"anonymous,omitempty"`
}

// Post is a post record as returned by the backend.
type Post struct {
	ID string `json:"id"`
	PostInput
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// EmergencyPost is a post created locally while the backend was unreachable.
type EmergencyPost struct {
	ID string `json:"id"`
	PostInput
	CreatedAt       time.Time `json:"createdAt"`
	IsEmergencyMode bool      `json:"isEmergencyMode"`
	Status          string    `json:"status"`
}
