package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranganb/vtube/types"
)

func TestChannelProfile(t *testing.T) {
	repo := &fakeProfiles{profiles: map[string]types.ChannelProfile{
		"chai": {Fullname: "Chai Code", Username: "chai", SubscriberCount: 3, SubscribedToCount: 1, IsSubscribed: true},
	}}
	svc := NewProfileService(repo)

	p, err := svc.ChannelProfile(context.Background(), " Chai ", "viewer")
	require.NoError(t, err)
	assert.Equal(t, 3, p.SubscriberCount)
	assert.Equal(t, 1, p.SubscribedToCount)
	assert.True(t, p.IsSubscribed)

	_, err = svc.ChannelProfile(context.Background(), "ghost", "viewer")
	appErr := assertStatus(t, err, http.StatusNotFound)
	assert.Equal(t, "channel does not exist", appErr.Message)

	_, err = svc.ChannelProfile(context.Background(), "   ", "viewer")
	assertStatus(t, err, http.StatusBadRequest)

	repo.err = errors.New("timeout")
	_, err = svc.ChannelProfile(context.Background(), "chai", "viewer")
	assertStatus(t, err, http.StatusInternalServerError)
}

func TestChannelProfile_Projection(t *testing.T) {
	data, err := json.Marshal(types.ChannelProfile{Username: "chai"})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	assert.ElementsMatch(t, []string{
		"fullname", "username", "subscriberCount", "subscribedToCount",
		"isSubscribed", "avatar", "coverImage",
	}, keys)
}

func TestWatchHistory_KeepsOrderAndOwnerShape(t *testing.T) {
	owner := &types.VideoOwner{Fullname: "Owner", Username: "owner", Avatar: "https://cdn/o.png"}
	repo := &fakeProfiles{history: []types.WatchHistoryEntry{
		{Video: types.Video{ID: "v1", Title: "first"}, Owner: owner},
		{Video: types.Video{ID: "v2", Title: "second"}, Owner: owner},
	}}
	svc := NewProfileService(repo)

	history, err := svc.WatchHistory(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "v1", history[0].ID)
	assert.Equal(t, "v2", history[1].ID)

	data, err := json.Marshal(history[0])
	require.NoError(t, err)
	var entry struct {
		Owner map[string]any `json:"owner"`
	}
	require.NoError(t, json.Unmarshal(data, &entry))
	assert.Len(t, entry.Owner, 3)
	assert.Equal(t, "owner", entry.Owner["username"])
	assert.Contains(t, entry.Owner, "fullname")
	assert.Contains(t, entry.Owner, "avatar")

	repo.err = errors.New("timeout")
	_, err = svc.WatchHistory(context.Background(), "u1")
	assertStatus(t, err, http.StatusInternalServerError)
}
