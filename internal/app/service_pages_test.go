package app

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notespace/api/internal/history"
	"notespace/api/internal/search"
	"notespace/api/internal/store"
)

type recordingSearch struct {
	mu      sync.Mutex
	indexed map[string]search.PageRecord
	deleted []string
	last    search.Query
}

func newRecordingSearch() *recordingSearch {
	return &recordingSearch{indexed: map[string]search.PageRecord{}}
}

func (r *recordingSearch) Search(q search.Query) search.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.last = q
	return search.Response{Results: []search.Result{}, Query: q.Text}
}

func (r *recordingSearch) IndexPage(page search.PageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.indexed[page.ID] = page
}

func (r *recordingSearch) DeletePage(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indexed, id)
	r.deleted = append(r.deleted, id)
}

func (r *recordingSearch) record(id string) (search.PageRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.indexed[id]
	return rec, ok
}

func newPagesEnv(t *testing.T) (*testEnv, *recordingSearch) {
	t.Helper()
	env := newTestEnv(t)
	index := newRecordingSearch()
	env.service = New(testConfig(), Deps{
		Store:   env.store,
		Mailer:  env.mailer,
		Objects: env.objects,
		Search:  index,
		History: history.New(t.TempDir()),
		Logger:  zerolog.Nop(),
	})
	return env, index
}

func TestCreatePageDefaultsToInbox(t *testing.T) {
	env, index := newPagesEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	page, err := env.service.CreatePage(ctx, alice, PageInput{Content: ptr("hello")})
	require.NoError(t, err)
	assert.Equal(t, "Untitled", page.Title)

	inbox, err := env.service.defaultWorkspace(ctx, alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, inbox, page.WorkspaceID)

	rec, ok := index.record(page.ID)
	require.True(t, ok)
	assert.Equal(t, alice.UserID, rec.CreatedBy)

	pages, err := env.service.ListPages(ctx, alice.UserID, "", store.PageFilter{})
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestPageHistoryTracksRevisions(t *testing.T) {
	env, _ := newPagesEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	page, err := env.service.CreatePage(ctx, alice, PageInput{Title: ptr("Plan"), Content: ptr("v1")})
	require.NoError(t, err)
	_, err = env.service.UpdatePage(ctx, alice, page.ID, PageInput{Content: ptr("v2")})
	require.NoError(t, err)

	revisions, err := env.service.PageHistory(ctx, alice.UserID, page.ID, 0)
	require.NoError(t, err)
	require.Len(t, revisions, 2)

	oldest := revisions[len(revisions)-1]
	view, err := env.service.PageRevision(ctx, alice.UserID, page.ID, oldest.Hash)
	require.NoError(t, err)
	assert.Equal(t, "v1", view.Content.Content)
	assert.Equal(t, "Plan", view.Content.Title)
}

func TestFavoriteAndArchiveToggle(t *testing.T) {
	env, index := newPagesEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	page, err := env.service.CreatePage(ctx, alice, PageInput{Title: ptr("Notes")})
	require.NoError(t, err)

	page, err = env.service.SetFavorite(ctx, alice.UserID, page.ID, nil)
	require.NoError(t, err)
	assert.True(t, page.IsFavorite)
	page, err = env.service.SetFavorite(ctx, alice.UserID, page.ID, nil)
	require.NoError(t, err)
	assert.False(t, page.IsFavorite)
	page, err = env.service.SetFavorite(ctx, alice.UserID, page.ID, ptr(true))
	require.NoError(t, err)
	assert.True(t, page.IsFavorite)

	page, err = env.service.SetArchived(ctx, alice.UserID, page.ID, nil)
	require.NoError(t, err)
	assert.True(t, page.IsArchived)
	rec, _ := index.record(page.ID)
	assert.True(t, rec.IsArchived)

	archived, err := env.service.ListPages(ctx, alice.UserID, page.WorkspaceID, store.PageFilter{Archived: ptr(true)})
	require.NoError(t, err)
	assert.Len(t, archived, 1)
	active, err := env.service.ListPages(ctx, alice.UserID, page.WorkspaceID, store.PageFilter{Archived: ptr(false)})
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestDeletePageIsCreatorOnly(t *testing.T) {
	env, index := newPagesEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	ctx := context.Background()

	page, err := env.service.CreatePage(ctx, alice, PageInput{Title: ptr("Mine")})
	require.NoError(t, err)
	_, err = env.service.SharePage(ctx, alice, ShareInput{PageID: page.ID, Email: "bob@example.com", Permission: "EDIT"})
	require.NoError(t, err)

	err = env.service.DeletePage(ctx, bob.UserID, page.ID)
	requireStatus(t, err, http.StatusUnauthorized, "INSUFFICIENT_PERMISSION")

	require.NoError(t, env.service.DeletePage(ctx, alice.UserID, page.ID))
	env.service.Wait()
	_, ok := index.record(page.ID)
	assert.False(t, ok)

	_, err = env.service.GetPage(ctx, alice.UserID, page.ID)
	requireStatus(t, err, http.StatusNotFound, "NOT_FOUND")
}

func TestMovePageRequiresEditorInTarget(t *testing.T) {
	env, _ := newPagesEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	ctx := context.Background()

	page, err := env.service.CreatePage(ctx, alice, PageInput{Title: ptr("Draft")})
	require.NoError(t, err)
	team, err := env.service.CreateWorkspace(ctx, alice.UserID, WorkspaceInput{Name: ptr("Team")})
	require.NoError(t, err)
	bobInbox, err := env.service.defaultWorkspace(ctx, bob.UserID)
	require.NoError(t, err)

	_, err = env.service.MovePage(ctx, alice.UserID, page.ID, bobInbox)
	requireStatus(t, err, http.StatusUnauthorized, "INSUFFICIENT_PERMISSION")

	moved, err := env.service.MovePage(ctx, alice.UserID, page.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, team.ID, moved.WorkspaceID)
}

func TestSearchScopesToReadableWorkspaces(t *testing.T) {
	env, index := newPagesEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	_, err := env.service.SearchPages(ctx, alice.UserID, SearchInput{Text: "  "})
	requireStatus(t, err, http.StatusBadRequest, "VALIDATION_ERROR")

	_, err = env.service.SearchPages(ctx, alice.UserID, SearchInput{Text: "plan", Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, alice.UserID, index.last.UserID)
	assert.Len(t, index.last.WorkspaceIDs, 1)
	assert.Equal(t, 5, index.last.Limit)
}

func TestExportHTMLIncludesTags(t *testing.T) {
	env, _ := newPagesEnv(t)
	alice := env.register(t, "alice")
	ctx := context.Background()

	page, err := env.service.CreatePage(ctx, alice, PageInput{Title: ptr("Roadmap"), Content: ptr("ship it")})
	require.NoError(t, err)
	tag, err := env.service.CreateTag(ctx, alice.UserID, TagInput{Name: ptr("planning")})
	require.NoError(t, err)
	require.NoError(t, env.service.TagPage(ctx, alice.UserID, page.ID, tag.ID))

	result, err := env.service.ExportPage(ctx, alice.UserID, page.ID, "html", "")
	require.NoError(t, err)
	body := string(result.Data)
	assert.Contains(t, body, "Roadmap")
	assert.Contains(t, body, "planning")
	assert.True(t, strings.HasSuffix(result.Filename, ".html"), result.Filename)

	_, err = env.service.ExportPage(ctx, alice.UserID, page.ID, "rtf", "")
	requireStatus(t, err, http.StatusBadRequest, "UNSUPPORTED_FORMAT")
}

func TestTagsAreOwnedByUser(t *testing.T) {
	env, _ := newPagesEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	ctx := context.Background()

	tag, err := env.service.CreateTag(ctx, alice.UserID, TagInput{Name: ptr("work")})
	require.NoError(t, err)
	assert.Equal(t, defaultTagColor, tag.Color)

	_, err = env.service.CreateTag(ctx, alice.UserID, TagInput{Name: ptr("Work")})
	requireStatus(t, err, http.StatusConflict, "TAG_EXISTS")

	_, err = env.service.UpdateTag(ctx, bob.UserID, tag.ID, TagInput{Name: ptr("mine")})
	requireStatus(t, err, http.StatusNotFound, "NOT_FOUND")

	page, err := env.service.CreatePage(ctx, bob, PageInput{Title: ptr("Bob's")})
	require.NoError(t, err)
	err = env.service.TagPage(ctx, bob.UserID, page.ID, tag.ID)
	requireStatus(t, err, http.StatusNotFound, "NOT_FOUND")
}
