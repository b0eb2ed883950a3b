package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/pranganb/vtube/types"
)

// ProfileRepository answers the read-only aggregate views over users,
// subscriptions and videos.
type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ChannelProfile matches the channel by lowercase username, counts the
// subscription edges on both sides and checks whether viewerID is among the
// channel's subscribers.
func (r *ProfileRepository) ChannelProfile(ctx context.Context, username, viewerID string) (types.ChannelProfile, error) {
	const query = `
		SELECT u.fullname,
			u.username,
			u.avatar,
			u.cover_image,
			(SELECT COUNT(1) FROM subscriptions s WHERE s.channel_id = u.id) AS subscriber_count,
			(SELECT COUNT(1) FROM subscriptions s WHERE s.subscriber_id = u.id) AS subscribed_to_count,
			EXISTS (
				SELECT 1 FROM subscriptions s
				WHERE s.channel_id = u.id AND s.subscriber_id::text = $2
			) AS is_subscribed
		FROM users u
		WHERE u.username = $1`

	var profile types.ChannelProfile
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(username)), viewerID).Scan(
		&profile.Fullname,
		&profile.Username,
		&profile.Avatar,
		&profile.CoverImage,
		&profile.SubscriberCount,
		&profile.SubscribedToCount,
		&profile.IsSubscribed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ChannelProfile{}, ErrNotFound
		}
		return types.ChannelProfile{}, err
	}
	return profile, nil
}

// WatchHistory resolves the user's watched videos in recorded order, each
// with its owner projected to fullname, username and avatar.
func (r *ProfileRepository) WatchHistory(ctx context.Context, userID string) ([]types.WatchHistoryEntry, error) {
	const query = `
		SELECT v.id,
			v.owner_id,
			v.title,
			v.description,
			v.video_file,
			v.thumbnail,
			v.duration,
			v.views,
			v.is_published,
			v.created_at,
			v.updated_at,
			o.fullname,
			o.username,
			o.avatar
		FROM user_watch_history h
		JOIN videos v ON v.id = h.video_id
		LEFT JOIN users o ON o.id = v.owner_id
		WHERE h.user_id = $1
		ORDER BY h.position`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		if isInvalidID(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer rows.Close()

	entries := make([]types.WatchHistoryEntry, 0)
	for rows.Next() {
		var entry types.WatchHistoryEntry
		var ownerID, ownerFullname, ownerUsername, ownerAvatar sql.NullString
		if err := rows.Scan(
			&entry.ID,
			&ownerID,
			&entry.Title,
			&entry.Description,
			&entry.VideoFile,
			&entry.Thumbnail,
			&entry.Duration,
			&entry.Views,
			&entry.IsPublished,
			&entry.CreatedAt,
			&entry.UpdatedAt,
			&ownerFullname,
			&ownerUsername,
			&ownerAvatar,
		); err != nil {
			return nil, err
		}

		entry.OwnerID = ownerID.String
		if ownerUsername.Valid {
			entry.Owner = &types.VideoOwner{
				Fullname: ownerFullname.String,
				Username: ownerUsername.String,
				Avatar:   ownerAvatar.String,
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
