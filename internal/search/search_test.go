package search

import (
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestReadableFilterCoversEveryAccessPath(t *testing.T) {
	filters := readableFilter(Query{UserID: "u1", WorkspaceIDs: []string{"w1", "w2"}})
	require.Len(t, filters, 1)
	require.Equal(t, `(createdBy = "u1" OR sharedWith = "u1" OR workspaceId IN ["w1", "w2"])`, filters[0])
}

func TestReadableFilterWithoutMemberships(t *testing.T) {
	filters := readableFilter(Query{UserID: "u1", FilterWorkspaceID: "w9"})
	require.Equal(t, []string{`(createdBy = "u1" OR sharedWith = "u1")`, `workspaceId = "w9"`}, filters)
}

func TestNormalizeLimits(t *testing.T) {
	limit, offset := normalizeLimits(Query{Limit: 0, Offset: -3})
	require.Equal(t, 20, limit)
	require.Equal(t, 0, offset)

	limit, offset = normalizeLimits(Query{Limit: 50, Offset: 10})
	require.Equal(t, 50, limit)
	require.Equal(t, 10, offset)
}

func TestPgFTSSearchRestrictsToReadablePages(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM pages p WHERE p.fts @@")).
		WithArgs("roadmap", "u1", "w1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`(?s)FROM pages p.*ps.shared_with = \$2.*p.workspace_id = \$3.*LIMIT 20 OFFSET 0`).
		WithArgs("roadmap", "u1", "w1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "snippet", "workspace_id"}).
			AddRow("p1", "Roadmap", "the <mark>roadmap</mark>", "w1"))

	results, total, err := NewPgFTS(db).Search(Query{Text: "roadmap", UserID: "u1", FilterWorkspaceID: "w1"})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, []Result{{PageID: "p1", Title: "Roadmap", Snippet: "the <mark>roadmap</mark>", WorkspaceID: "w1"}}, results)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPgFTSBlankQueryDoesNotHitDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	results, total, err := NewPgFTS(db).Search(Query{Text: "   ", UserID: "u1"})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, results)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceFallsBackToPgFTSWithoutMeili(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT p.id").WillReturnRows(sqlmock.NewRows([]string{"id", "title", "snippet", "workspace_id"}))

	svc := NewService(nil, NewPgFTS(db), zerolog.Nop())
	resp := svc.Search(Query{Text: "nothing", UserID: "u1"})
	require.NotNil(t, resp.Results)
	require.Empty(t, resp.Results)
	require.Equal(t, "nothing", resp.Query)
}

func TestLoadAllPagesSplitsShareRecipients(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("string_agg").WillReturnRows(sqlmock.NewRows(
		[]string{"id", "title", "content", "workspace_id", "created_by", "is_archived", "shared"}).
		AddRow("p1", "A", "body", "w1", "u1", false, "u2,u3").
		AddRow("p2", "B", "", "w1", "u1", true, ""))

	pages, err := NewPgFTS(db).LoadAllPages(t.Context())
	require.NoError(t, err)
	require.Len(t, pages, 2)
	require.Equal(t, []string{"u2", "u3"}, pages[0].SharedWith)
	require.Equal(t, []string{}, pages[1].SharedWith)
	require.True(t, strings.EqualFold(pages[1].Title, "b"))
}
