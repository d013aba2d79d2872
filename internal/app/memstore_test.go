package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"notespace/api/internal/store"
)

// memStore is an in-memory dataStore with the conditional-update semantics
// of the Postgres store.
type memStore struct {
	mu            sync.Mutex
	users         map[string]store.User
	profiles      map[string]store.Profile
	workspaces    map[string]store.Workspace
	members       map[string]map[string]store.WorkspaceMember
	pages         map[string]store.Page
	shares        map[string]store.PageShare
	tags          map[string]store.Tag
	pageTags      map[string]map[string]bool
	notifications map[string]store.Notification
	codes         []store.TwoFactorCode
	resets        map[string]store.PasswordResetToken
	attachments   map[string]store.Attachment
	refresh       map[string]string
	revoked       map[string]bool
	pingErr       error
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[string]store.User{},
		profiles:      map[string]store.Profile{},
		workspaces:    map[string]store.Workspace{},
		members:       map[string]map[string]store.WorkspaceMember{},
		pages:         map[string]store.Page{},
		shares:        map[string]store.PageShare{},
		tags:          map[string]store.Tag{},
		pageTags:      map[string]map[string]bool{},
		notifications: map[string]store.Notification{},
		resets:        map[string]store.PasswordResetToken{},
		attachments:   map[string]store.Attachment{},
		refresh:       map[string]string{},
		revoked:       map[string]bool{},
	}
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

// users

func (m *memStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return store.User{}, sql.ErrNoRows
}

func (m *memStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memStore) CreateUserWithInbox(_ context.Context, user store.User, profile store.Profile, inbox store.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return &store.DuplicateError{Constraint: "users_username_key"}
		}
		if u.Email == user.Email {
			return &store.DuplicateError{Constraint: "users_email_key"}
		}
	}
	m.insertUserLocked(user, profile, inbox)
	return nil
}

func (m *memStore) insertUserLocked(user store.User, profile store.Profile, inbox store.Workspace) {
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	m.users[user.ID] = user
	profile.UpdatedAt = now
	m.profiles[user.ID] = profile
	inbox.CreatedAt, inbox.UpdatedAt = now, now
	m.workspaces[inbox.ID] = inbox
	m.members[inbox.ID] = map[string]store.WorkspaceMember{
		user.ID: {WorkspaceID: inbox.ID, UserID: user.ID, Role: "OWNER", JoinedAt: now},
	}
}

func (m *memStore) UpsertOAuthUser(_ context.Context, user store.User, profile store.Profile, inbox store.Workspace) (store.User, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.GoogleSubject != nil && user.GoogleSubject != nil && *u.GoogleSubject == *user.GoogleSubject {
			return u, false, nil
		}
		if u.Email == user.Email {
			u.GoogleSubject = user.GoogleSubject
			m.users[id] = u
			return u, false, nil
		}
	}
	m.insertUserLocked(user, profile, inbox)
	return m.users[user.ID], true, nil
}

func (m *memStore) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	m.users[userID] = u
	return nil
}

func (m *memStore) UpdateUser(_ context.Context, user store.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if id != user.ID && u.Username == user.Username {
			return &store.DuplicateError{Constraint: "users_username_key"}
		}
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *memStore) SetTwoFactorEnabled(_ context.Context, userID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return sql.ErrNoRows
	}
	u.TwoFactorEnabled = enabled
	m.users[userID] = u
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
	delete(m.profiles, userID)
	for id, ws := range m.workspaces {
		if ws.OwnerID == userID {
			m.deleteWorkspaceLocked(id)
		}
	}
	for _, members := range m.members {
		delete(members, userID)
	}
	return nil
}

func (m *memStore) GetProfile(_ context.Context, userID string) (store.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return store.Profile{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memStore) UpdateProfile(_ context.Context, profile store.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	profile.UpdatedAt = time.Now()
	m.profiles[profile.UserID] = profile
	return nil
}

// credentials

func (m *memStore) CreateTwoFactorCode(_ context.Context, code store.TwoFactorCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.codes {
		if m.codes[i].UserID == code.UserID {
			m.codes[i].Used = true
		}
	}
	code.CreatedAt = time.Now()
	m.codes = append(m.codes, code)
	return nil
}

func (m *memStore) LatestTwoFactorCode(_ context.Context, userID string) (store.TwoFactorCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.codes) - 1; i >= 0; i-- {
		if m.codes[i].UserID == userID {
			return m.codes[i], nil
		}
	}
	return store.TwoFactorCode{}, sql.ErrNoRows
}

func (m *memStore) RecordTwoFactorFailure(_ context.Context, codeID string, maxAttempts int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.codes {
		if m.codes[i].ID == codeID {
			if m.codes[i].Used {
				return 0, store.ErrStateChanged
			}
			m.codes[i].Attempts++
			m.codes[i].Used = m.codes[i].Attempts >= maxAttempts
			return m.codes[i].Attempts, nil
		}
	}
	return 0, store.ErrStateChanged
}

func (m *memStore) MarkTwoFactorCodeUsed(_ context.Context, codeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.codes {
		if m.codes[i].ID == codeID {
			if m.codes[i].Used {
				return store.ErrStateChanged
			}
			m.codes[i].Used = true
			return nil
		}
	}
	return store.ErrStateChanged
}

func (m *memStore) CreatePasswordReset(_ context.Context, token store.PasswordResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, existing := range m.resets {
		if existing.UserID == token.UserID {
			delete(m.resets, hash)
		}
	}
	m.resets[token.TokenHash] = token
	return nil
}

func (m *memStore) GetPasswordReset(_ context.Context, tokenHash string) (store.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.resets[tokenHash]
	if !ok {
		return store.PasswordResetToken{}, sql.ErrNoRows
	}
	return t, nil
}

func (m *memStore) ConsumePasswordReset(_ context.Context, tokenID, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for hash, t := range m.resets {
		if t.ID != tokenID {
			continue
		}
		if t.Used {
			return store.ErrStateChanged
		}
		t.Used = true
		m.resets[hash] = t
		u := m.users[userID]
		u.PasswordHash = passwordHash
		m.users[userID] = u
		return nil
	}
	return store.ErrStateChanged
}

// sessions

func (m *memStore) SaveRefreshSession(_ context.Context, tokenHash, userID string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refresh[tokenHash] = userID
	return nil
}

func (m *memStore) LookupRefreshSession(_ context.Context, tokenHash string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	userID, ok := m.refresh[tokenHash]
	if !ok {
		return "", sql.ErrNoRows
	}
	return userID, nil
}

func (m *memStore) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.refresh, tokenHash)
	return nil
}

func (m *memStore) RevokeAccessToken(_ context.Context, jti string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = true
	return nil
}

func (m *memStore) IsAccessTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[jti], nil
}

// workspaces

func (m *memStore) CreateWorkspace(_ context.Context, ws store.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.workspaces {
		if existing.OwnerID == ws.OwnerID && existing.Name == ws.Name {
			return &store.DuplicateError{Constraint: "workspaces_owner_name_key"}
		}
	}
	now := time.Now()
	ws.CreatedAt, ws.UpdatedAt = now, now
	m.workspaces[ws.ID] = ws
	m.members[ws.ID] = map[string]store.WorkspaceMember{
		ws.OwnerID: {WorkspaceID: ws.ID, UserID: ws.OwnerID, Role: "OWNER", JoinedAt: now},
	}
	return nil
}

func (m *memStore) GetWorkspace(_ context.Context, workspaceID string) (store.Workspace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[workspaceID]
	if !ok {
		return store.Workspace{}, sql.ErrNoRows
	}
	return ws, nil
}

func (m *memStore) ListWorkspacesForUser(_ context.Context, userID string) ([]store.WorkspaceWithRole, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.WorkspaceWithRole
	for id, members := range m.members {
		member, ok := members[userID]
		if !ok {
			continue
		}
		pages := 0
		for _, p := range m.pages {
			if p.WorkspaceID == id {
				pages++
			}
		}
		out = append(out, store.WorkspaceWithRole{
			Workspace:   m.workspaces[id],
			Role:        member.Role,
			MemberCount: len(members),
			PageCount:   pages,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateWorkspace(_ context.Context, ws store.Workspace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.workspaces {
		if id != ws.ID && existing.OwnerID == ws.OwnerID && existing.Name == ws.Name {
			return &store.DuplicateError{Constraint: "workspaces_owner_name_key"}
		}
	}
	ws.UpdatedAt = time.Now()
	m.workspaces[ws.ID] = ws
	return nil
}

func (m *memStore) DeleteWorkspace(_ context.Context, workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteWorkspaceLocked(workspaceID)
	return nil
}

func (m *memStore) deleteWorkspaceLocked(workspaceID string) {
	delete(m.workspaces, workspaceID)
	delete(m.members, workspaceID)
	for id, n := range m.notifications {
		if n.Type != NotificationWorkspaceInvite || n.Status != InvitationPending {
			continue
		}
		var meta invitationMetadata
		if json.Unmarshal([]byte(n.Metadata), &meta) == nil && meta.WorkspaceID == workspaceID {
			n.Status = InvitationDeclined
			n.IsRead = true
			m.notifications[id] = n
		}
	}
	for id, p := range m.pages {
		if p.WorkspaceID == workspaceID {
			m.deletePageLocked(id)
		}
	}
}

func (m *memStore) GetWorkspaceMember(_ context.Context, workspaceID, userID string) (store.WorkspaceMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[workspaceID][userID]
	if !ok {
		return store.WorkspaceMember{}, sql.ErrNoRows
	}
	return member, nil
}

func (m *memStore) ListWorkspaceMembers(_ context.Context, workspaceID string) ([]store.MemberDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.MemberDetail
	for userID, member := range m.members[workspaceID] {
		u := m.users[userID]
		out = append(out, store.MemberDetail{WorkspaceMember: member, Username: u.Username, Email: u.Email, DisplayName: u.DisplayName})
	}
	return out, nil
}

func (m *memStore) UpdateMemberRole(_ context.Context, workspaceID, userID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[workspaceID][userID]
	if !ok || member.Role == "OWNER" {
		return store.ErrStateChanged
	}
	member.Role = role
	m.members[workspaceID][userID] = member
	return nil
}

func (m *memStore) RemoveWorkspaceMember(_ context.Context, workspaceID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, ok := m.members[workspaceID][userID]
	if !ok || member.Role == "OWNER" {
		return store.ErrStateChanged
	}
	delete(m.members[workspaceID], userID)
	return nil
}

// pages

func (m *memStore) CreatePage(_ context.Context, page store.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	page.CreatedAt, page.UpdatedAt = now, now
	m.pages[page.ID] = page
	return nil
}

func (m *memStore) GetPage(_ context.Context, pageID string) (store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pages[pageID]
	if !ok {
		return store.Page{}, sql.ErrNoRows
	}
	return p, nil
}

func (m *memStore) ListPagesByWorkspace(_ context.Context, workspaceID string, filter store.PageFilter) ([]store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Page
	for _, p := range m.pages {
		if p.WorkspaceID != workspaceID {
			continue
		}
		if filter.Favorite != nil && p.IsFavorite != *filter.Favorite {
			continue
		}
		if filter.Archived != nil && p.IsArchived != *filter.Archived {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memStore) ListSharedPages(_ context.Context, userID string) ([]store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Page
	for _, s := range m.shares {
		if s.SharedWith == userID {
			out = append(out, m.pages[s.PageID])
		}
	}
	return out, nil
}

func (m *memStore) ListFavoritePages(_ context.Context, userID string) ([]store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Page
	for _, p := range m.pages {
		if p.CreatedBy == userID && p.IsFavorite {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) UpdatePage(_ context.Context, page store.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pages[page.ID]; !ok {
		return sql.ErrNoRows
	}
	page.UpdatedAt = time.Now()
	m.pages[page.ID] = page
	return nil
}

func (m *memStore) MovePage(_ context.Context, pageID, workspaceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pages[pageID]
	p.WorkspaceID = workspaceID
	m.pages[pageID] = p
	return nil
}

func (m *memStore) SetPageFavorite(_ context.Context, pageID string, favorite bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pages[pageID]
	p.IsFavorite = favorite
	m.pages[pageID] = p
	return nil
}

func (m *memStore) SetPageArchived(_ context.Context, pageID string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.pages[pageID]
	p.IsArchived = archived
	m.pages[pageID] = p
	return nil
}

func (m *memStore) DeletePage(_ context.Context, pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletePageLocked(pageID)
	return nil
}

func (m *memStore) deletePageLocked(pageID string) {
	delete(m.pages, pageID)
	delete(m.pageTags, pageID)
	for id, s := range m.shares {
		if s.PageID == pageID {
			delete(m.shares, id)
		}
	}
	for id, a := range m.attachments {
		if a.PageID == pageID {
			delete(m.attachments, id)
		}
	}
}

// shares

func (m *memStore) GetPageShare(_ context.Context, pageID, userID string) (store.PageShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shares {
		if s.PageID == pageID && s.SharedWith == userID {
			return s, nil
		}
	}
	return store.PageShare{}, sql.ErrNoRows
}

func (m *memStore) CreateShareWithNotification(_ context.Context, share store.PageShare, n store.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.shares {
		if s.PageID == share.PageID && s.SharedWith == share.SharedWith {
			return &store.DuplicateError{Constraint: "page_shares_page_id_shared_with_key"}
		}
	}
	now := time.Now()
	share.CreatedAt = now
	m.shares[share.ID] = share
	n.CreatedAt = now
	m.notifications[n.ID] = n
	return nil
}

func (m *memStore) GetShare(_ context.Context, shareID string) (store.PageShare, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shares[shareID]
	if !ok {
		return store.PageShare{}, sql.ErrNoRows
	}
	return s, nil
}

func (m *memStore) UpdateSharePermission(_ context.Context, shareID, permission string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.shares[shareID]
	if !ok {
		return sql.ErrNoRows
	}
	s.Permission = permission
	m.shares[shareID] = s
	return nil
}

func (m *memStore) DeleteShare(_ context.Context, shareID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.shares, shareID)
	return nil
}

func (m *memStore) shareDetailLocked(s store.PageShare) store.ShareDetail {
	by, with := m.users[s.SharedBy], m.users[s.SharedWith]
	return store.ShareDetail{
		PageShare:       s,
		PageTitle:       m.pages[s.PageID].Title,
		SharedByName:    by.DisplayName,
		SharedByEmail:   by.Email,
		SharedWithName:  with.DisplayName,
		SharedWithEmail: with.Email,
	}
}

func (m *memStore) ListSharesForPage(_ context.Context, pageID string) ([]store.ShareDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ShareDetail
	for _, s := range m.shares {
		if s.PageID == pageID {
			out = append(out, m.shareDetailLocked(s))
		}
	}
	return out, nil
}

func (m *memStore) ListSharesReceived(_ context.Context, userID string) ([]store.ShareDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.ShareDetail
	for _, s := range m.shares {
		if s.SharedWith == userID {
			out = append(out, m.shareDetailLocked(s))
		}
	}
	return out, nil
}

// tags

func (m *memStore) CreateTag(_ context.Context, tag store.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.UserID == tag.UserID && strings.EqualFold(t.Name, tag.Name) {
			return &store.DuplicateError{Constraint: "tags_user_id_name_key"}
		}
	}
	tag.CreatedAt = time.Now()
	m.tags[tag.ID] = tag
	return nil
}

func (m *memStore) GetTag(_ context.Context, tagID string) (store.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[tagID]
	if !ok {
		return store.Tag{}, sql.ErrNoRows
	}
	return t, nil
}

func (m *memStore) ListTags(_ context.Context, userID string) ([]store.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Tag
	for _, t := range m.tags {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) UpdateTag(_ context.Context, tag store.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[tag.ID] = tag
	return nil
}

func (m *memStore) DeleteTag(_ context.Context, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tags, tagID)
	for _, tags := range m.pageTags {
		delete(tags, tagID)
	}
	return nil
}

func (m *memStore) AddPageTag(_ context.Context, pageID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pageTags[pageID] == nil {
		m.pageTags[pageID] = map[string]bool{}
	}
	m.pageTags[pageID][tagID] = true
	return nil
}

func (m *memStore) RemovePageTag(_ context.Context, pageID, tagID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pageTags[pageID], tagID)
	return nil
}

func (m *memStore) ListPageTags(_ context.Context, pageID string) ([]store.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Tag
	for tagID := range m.pageTags[pageID] {
		out = append(out, m.tags[tagID])
	}
	return out, nil
}

func (m *memStore) ListPagesForTag(_ context.Context, tagID, _ string) ([]store.Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Page
	for pageID, tags := range m.pageTags {
		if tags[tagID] {
			out = append(out, m.pages[pageID])
		}
	}
	return out, nil
}

// notifications

func (m *memStore) CreateNotification(_ context.Context, n store.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.CreatedAt = time.Now()
	m.notifications[n.ID] = n
	return nil
}

func (m *memStore) GetNotification(_ context.Context, notificationID string) (store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[notificationID]
	if !ok {
		return store.Notification{}, sql.ErrNoRows
	}
	return n, nil
}

func (m *memStore) ListNotifications(_ context.Context, userID string, unreadOnly bool) ([]store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memStore) ListInvitations(_ context.Context, userID string, pendingOnly bool) ([]store.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Notification
	for _, n := range m.notifications {
		if n.UserID != userID || n.Type != NotificationWorkspaceInvite {
			continue
		}
		if pendingOnly && n.Status != InvitationPending {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memStore) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *memStore) SetNotificationRead(_ context.Context, notificationID string, read bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.notifications[notificationID]
	n.IsRead = read
	m.notifications[notificationID] = n
	return nil
}

func (m *memStore) MarkAllNotificationsRead(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for id, n := range m.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			m.notifications[id] = n
			updated++
		}
	}
	return updated, nil
}

func (m *memStore) DeleteNotification(_ context.Context, notificationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.notifications, notificationID)
	return nil
}

func (m *memStore) HasPendingInvitation(_ context.Context, userID, workspaceID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID && n.Type == NotificationWorkspaceInvite && n.Status == InvitationPending &&
			strings.Contains(n.Metadata, `"workspaceId":"`+workspaceID+`"`) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ResolveInvitation(_ context.Context, notificationID, status string, member *store.WorkspaceMember, followUp *store.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[notificationID]
	if !ok || n.Status != InvitationPending {
		return store.ErrStateChanged
	}
	if member != nil {
		if _, ok := m.workspaces[member.WorkspaceID]; !ok {
			return store.ErrMissingReference
		}
		if _, ok := m.users[member.UserID]; !ok {
			return store.ErrMissingReference
		}
	}
	if followUp != nil {
		if _, ok := m.users[followUp.UserID]; !ok {
			return store.ErrMissingReference
		}
	}
	n.Status = status
	n.IsRead = true
	m.notifications[notificationID] = n
	if member != nil {
		if m.members[member.WorkspaceID] == nil {
			m.members[member.WorkspaceID] = map[string]store.WorkspaceMember{}
		}
		if _, exists := m.members[member.WorkspaceID][member.UserID]; !exists {
			member.JoinedAt = time.Now()
			m.members[member.WorkspaceID][member.UserID] = *member
		}
	}
	if followUp != nil {
		followUp.CreatedAt = time.Now()
		m.notifications[followUp.ID] = *followUp
	}
	return nil
}

// attachments

func (m *memStore) CreateAttachment(_ context.Context, a store.Attachment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.CreatedAt = time.Now()
	m.attachments[a.ID] = a
	return nil
}

func (m *memStore) GetAttachment(_ context.Context, attachmentID string) (store.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attachments[attachmentID]
	if !ok {
		return store.Attachment{}, sql.ErrNoRows
	}
	return a, nil
}

func (m *memStore) ListAttachments(_ context.Context, pageID string) ([]store.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Attachment
	for _, a := range m.attachments {
		if a.PageID == pageID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) DeleteAttachment(_ context.Context, attachmentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.attachments, attachmentID)
	return nil
}

// test helpers

func (m *memStore) notificationsFor(userID, kind string) []store.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.Notification
	for _, n := range m.notifications {
		if n.UserID == userID && n.Type == kind {
			out = append(out, n)
		}
	}
	return out
}

func (m *memStore) expireCodes(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.codes {
		if m.codes[i].UserID == userID {
			m.codes[i].ExpiresAt = time.Now().Add(-time.Minute)
		}
	}
}
