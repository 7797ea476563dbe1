package models

import "time"

// Profile owns cards. Profiles created by the chat bot carry a chat id and a
// chat-derived username; DisplayName is whatever name the chat reported.
type Profile struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	ChatID      *int64    `json:"chat_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Name is how the profile is greeted.
func (p Profile) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}
