package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pranganb/vtube/internal/auth"
	"github.com/pranganb/vtube/internal/media"
	"github.com/pranganb/vtube/internal/store"
	"github.com/pranganb/vtube/types"
)

// memUsers mirrors the uniqueness and write-path rules of store.UserRepository.
type memUsers struct {
	mu        sync.Mutex
	users     map[string]types.User
	createErr error
	getErr    error

	// dropCreated simulates a record that vanishes before the re-fetch.
	dropCreated bool
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]types.User{}}
}

func (m *memUsers) GetByID(_ context.Context, id string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return types.User{}, m.getErr
	}
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByUsernameOrEmail(_ context.Context, username, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.TrimSpace(email)
	for _, u := range m.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) taken(id, username, email string) bool {
	for _, u := range m.users {
		if u.ID != id && (u.Username == username || u.Email == email) {
			return true
		}
	}
	return false
}

func (m *memUsers) Create(_ context.Context, nu types.NewUser) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return types.User{}, m.createErr
	}
	username := strings.ToLower(nu.Username)
	if m.taken("", username, nu.Email) {
		return types.User{}, store.ErrConflict
	}
	hash, err := auth.HashPassword(nu.Password)
	if err != nil {
		return types.User{}, err
	}
	now := time.Now()
	u := types.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        nu.Email,
		Fullname:     nu.Fullname,
		Avatar:       nu.Avatar,
		CoverImage:   nu.CoverImage,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if !m.dropCreated {
		m.users[u.ID] = u
	}
	return u, nil
}

func (m *memUsers) update(id string, fn func(*types.User)) (types.User, error) {
	u, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return u, nil
}

func (m *memUsers) UpdateAccount(_ context.Context, id string, in types.AccountUpdate) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	username := strings.ToLower(in.Username)
	if m.taken(id, username, in.Email) {
		return types.User{}, store.ErrConflict
	}
	return m.update(id, func(u *types.User) {
		u.Fullname = in.Fullname
		u.Username = username
		u.Email = in.Email
	})
}

func (m *memUsers) SetRefreshToken(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.update(id, func(u *types.User) { u.RefreshToken = token })
	return err
}

func (m *memUsers) RotateRefreshToken(_ context.Context, id, current, next string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || current == "" || u.RefreshToken != current {
		return store.ErrStaleToken
	}
	_, err := m.update(id, func(u *types.User) { u.RefreshToken = next })
	return err
}

// gatedUsers holds each GetByID until every expected caller has arrived, so
// concurrent requests all read the same stored state before any writes.
type gatedUsers struct {
	*memUsers
	arrived sync.WaitGroup
}

func (g *gatedUsers) GetByID(ctx context.Context, id string) (types.User, error) {
	g.arrived.Done()
	g.arrived.Wait()
	return g.memUsers.GetByID(ctx, id)
}

func (m *memUsers) ClearRefreshToken(ctx context.Context, id string) error {
	return m.SetRefreshToken(ctx, id, "")
}

func (m *memUsers) SetPassword(_ context.Context, id, plain string) error {
	hash, err := auth.HashPassword(plain)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err = m.update(id, func(u *types.User) { u.PasswordHash = hash })
	return err
}

func (m *memUsers) SetAvatar(_ context.Context, id, url string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(id, func(u *types.User) { u.Avatar = url })
}

func (m *memUsers) SetCoverImage(_ context.Context, id, url string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.update(id, func(u *types.User) { u.CoverImage = url })
}

// fakeUploader treats any path containing "bad" as a rejected upload.
type fakeUploader struct {
	uploaded []string
	deleted  []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (media.Upload, error) {
	if strings.TrimSpace(localPath) == "" {
		return media.Upload{}, media.ErrNoFile
	}
	if strings.Contains(localPath, "bad") {
		return media.Upload{}, &media.UploadError{Path: localPath, Err: errors.New("rejected by host")}
	}
	key := "uploads/" + uuid.NewString()
	f.uploaded = append(f.uploaded, key)
	return media.Upload{URL: "https://cdn.test/" + key, Key: key}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

type published struct {
	channel string
	data    []byte
	attrs   map[string]string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.msgs = append(f.msgs, published{channel: channel, data: data, attrs: attrs})
	return uuid.NewString(), nil
}

func (f *fakePublisher) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		out = append(out, m.attrs["event"])
	}
	return out
}

type fakeProfiles struct {
	profiles map[string]types.ChannelProfile
	history  []types.WatchHistoryEntry
	err      error
}

func (f *fakeProfiles) ChannelProfile(_ context.Context, username, _ string) (types.ChannelProfile, error) {
	if f.err != nil {
		return types.ChannelProfile{}, f.err
	}
	p, ok := f.profiles[strings.ToLower(username)]
	if !ok {
		return types.ChannelProfile{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeProfiles) WatchHistory(context.Context, string) ([]types.WatchHistoryEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.history, nil
}
