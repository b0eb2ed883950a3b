package types

import "time"

// Subscription is a directed follow edge: Subscriber follows Channel.
// Both ends reference user IDs.
type Subscription struct {
	ID           string    `json:"id" db:"id"`
	SubscriberID string    `json:"subscriber" db:"subscriber_id"`
	ChannelID    string    `json:"channel" db:"channel_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// ChannelProfile is the public, derived view of a user viewed as a channel.
// The field set is fixed; nothing else about the user is exposed here.
type ChannelProfile struct {
	Fullname          string `json:"fullname"`
	Username          string `json:"username"`
	SubscriberCount   int    `json:"subscriberCount"`
	SubscribedToCount int    `json:"subscribedToCount"`
	IsSubscribed      bool   `json:"isSubscribed"`
	Avatar            string `json:"avatar"`
	CoverImage        string `json:"coverImage"`
}
