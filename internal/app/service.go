package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"notespace/api/internal/access"
	"notespace/api/internal/auth"
	"notespace/api/internal/authpw"
	"notespace/api/internal/config"
	"notespace/api/internal/export"
	"notespace/api/internal/history"
	"notespace/api/internal/locations"
	"notespace/api/internal/oauth"
	"notespace/api/internal/obs"
	"notespace/api/internal/search"
	"notespace/api/internal/session"
	"notespace/api/internal/storage"
	"notespace/api/internal/store"
	"notespace/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Email        string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	authpw.UserStore
	access.Store

	UpsertOAuthUser(ctx context.Context, user store.User, profile store.Profile, inbox store.Workspace) (store.User, bool, error)
	UpdateUser(ctx context.Context, user store.User) error
	SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error
	DeleteUser(ctx context.Context, userID string) error
	GetProfile(ctx context.Context, userID string) (store.Profile, error)
	UpdateProfile(ctx context.Context, profile store.Profile) error

	CreateWorkspace(ctx context.Context, ws store.Workspace) error
	GetWorkspace(ctx context.Context, workspaceID string) (store.Workspace, error)
	ListWorkspacesForUser(ctx context.Context, userID string) ([]store.WorkspaceWithRole, error)
	UpdateWorkspace(ctx context.Context, ws store.Workspace) error
	DeleteWorkspace(ctx context.Context, workspaceID string) error
	ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]store.MemberDetail, error)
	UpdateMemberRole(ctx context.Context, workspaceID, userID, role string) error
	RemoveWorkspaceMember(ctx context.Context, workspaceID, userID string) error

	CreatePage(ctx context.Context, page store.Page) error
	ListPagesByWorkspace(ctx context.Context, workspaceID string, filter store.PageFilter) ([]store.Page, error)
	ListSharedPages(ctx context.Context, userID string) ([]store.Page, error)
	ListFavoritePages(ctx context.Context, userID string) ([]store.Page, error)
	UpdatePage(ctx context.Context, page store.Page) error
	MovePage(ctx context.Context, pageID, workspaceID string) error
	SetPageFavorite(ctx context.Context, pageID string, favorite bool) error
	SetPageArchived(ctx context.Context, pageID string, archived bool) error
	DeletePage(ctx context.Context, pageID string) error

	CreateShareWithNotification(ctx context.Context, share store.PageShare, notification store.Notification) error
	GetShare(ctx context.Context, shareID string) (store.PageShare, error)
	UpdateSharePermission(ctx context.Context, shareID, permission string) error
	DeleteShare(ctx context.Context, shareID string) error
	ListSharesForPage(ctx context.Context, pageID string) ([]store.ShareDetail, error)
	ListSharesReceived(ctx context.Context, userID string) ([]store.ShareDetail, error)

	CreateTag(ctx context.Context, tag store.Tag) error
	GetTag(ctx context.Context, tagID string) (store.Tag, error)
	ListTags(ctx context.Context, userID string) ([]store.Tag, error)
	UpdateTag(ctx context.Context, tag store.Tag) error
	DeleteTag(ctx context.Context, tagID string) error
	AddPageTag(ctx context.Context, pageID, tagID string) error
	RemovePageTag(ctx context.Context, pageID, tagID string) error
	ListPageTags(ctx context.Context, pageID string) ([]store.Tag, error)
	ListPagesForTag(ctx context.Context, tagID, userID string) ([]store.Page, error)

	CreateNotification(ctx context.Context, n store.Notification) error
	GetNotification(ctx context.Context, notificationID string) (store.Notification, error)
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]store.Notification, error)
	ListInvitations(ctx context.Context, userID string, pendingOnly bool) ([]store.Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int, error)
	SetNotificationRead(ctx context.Context, notificationID string, read bool) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, notificationID string) error
	HasPendingInvitation(ctx context.Context, userID, workspaceID string) (bool, error)
	ResolveInvitation(ctx context.Context, notificationID, status string, member *store.WorkspaceMember, followUp *store.Notification) error

	CreateAttachment(ctx context.Context, a store.Attachment) error
	GetAttachment(ctx context.Context, attachmentID string) (store.Attachment, error)
	ListAttachments(ctx context.Context, pageID string) ([]store.Attachment, error)
	DeleteAttachment(ctx context.Context, attachmentID string) error

	Ping(ctx context.Context) error
}

// sessionStore keeps refresh tokens and revoked access token ids. Both the
// Redis store and the Postgres fallback satisfy it.
type sessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
	RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error
	IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error)
}

type mailer interface {
	IsConfigured() bool
	SendTwoFactorCode(to, userName, code string, minutes int) error
	SendPasswordResetEmail(to, userName, token string) error
	SendPageSharedEmail(to, sharerName, pageTitle, permission, pageID string) error
	SendInvitationEmail(to, inviterName, workspaceName, role string) error
}

type identityProvider interface {
	Enabled() bool
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (oauth.Identity, error)
}

type pageSearch interface {
	Search(q search.Query) search.Response
	IndexPage(page search.PageRecord)
	DeletePage(id string)
}

type pageHistory interface {
	Record(pageID string, content history.Content, author, message string) (history.Revision, error)
	History(pageID string, limit int) ([]history.Revision, error)
	ContentAt(pageID, hash string) (history.Content, history.Revision, error)
	Remove(pageID string) error
}

type pageExporter interface {
	Export(ctx context.Context, page export.Page, format export.Format) (*export.Result, error)
}

// Deps are the collaborators of a Service. Search and History may be nil,
// in which case indexing and revision tracking are skipped.
type Deps struct {
	Store     dataStore
	Sessions  sessionStore
	Mailer    mailer
	Google    identityProvider
	Search    pageSearch
	History   pageHistory
	Exporter  pageExporter
	Objects   storage.ObjectStore
	Locations *locations.Tree
	Logger    zerolog.Logger
}

type Service struct {
	cfg       config.Config
	store     dataStore
	sessions  sessionStore
	access    *access.Resolver
	passwords *authpw.Service
	mail      mailer
	google    identityProvider
	search    pageSearch
	history   pageHistory
	exporter  pageExporter
	objects   storage.ObjectStore
	locations *locations.Tree
	logger    zerolog.Logger
	now       func() time.Time
	tasks     sync.WaitGroup
}

func New(cfg config.Config, deps Deps) *Service {
	sessions := deps.Sessions
	if sessions == nil {
		if fallback, ok := deps.Store.(sessionStore); ok {
			sessions = fallback
		}
	}
	tree := deps.Locations
	if tree == nil {
		tree = locations.NewTree()
	}
	exporter := deps.Exporter
	if exporter == nil {
		exporter = export.NewService()
	}
	return &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  sessions,
		access:    access.NewResolver(deps.Store),
		passwords: authpw.NewService(deps.Store),
		mail:      deps.Mailer,
		google:    deps.Google,
		search:    deps.Search,
		history:   deps.History,
		exporter:  exporter,
		objects:   deps.Objects,
		locations: tree,
		logger:    deps.Logger,
		now:       time.Now,
	}
}

// Ping checks the health of service dependencies (database, etc.)
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Wait blocks until every background task started so far has finished.
func (s *Service) Wait() {
	s.tasks.Wait()
}

// background runs fn outside the request. Failures are logged and counted,
// never reported to the caller.
func (s *Service) background(task string, fn func() error) {
	s.tasks.Add(1)
	go func() {
		defer s.tasks.Done()
		if err := fn(); err != nil {
			obs.RecordBackgroundFailure(task)
			s.logger.Warn().Err(err).Str("task", task).Msg("background task failed")
		}
	}()
}

func (s *Service) emailEnabled() bool {
	return s.mail != nil && s.mail.IsConfigured()
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if refreshToken == "" {
		return Session{}, auth.ErrInvalidToken
	}
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, session.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	jti := util.NewID("jti")
	claims := auth.NewClaims(user.ID, jti, user.DisplayName, user.Email, user.Role, s.cfg.AccessTTL)
	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := s.now().Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Email:        user.Email,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    claims.Expiry(),
	}, nil
}

// SessionFromToken validates signature, expiry and revocation of an access
// token and loads its user.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if revoked {
		return Session{}, auth.ErrInvalidToken
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Email:     user.Email,
		Role:      user.Role,
		JTI:       claims.ID,
		ExpiresAt: claims.Expiry(),
	}, nil
}

func (s *Service) Logout(ctx context.Context, current Session, refreshToken string) error {
	if current.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, current.JTI, current.ExpiresAt); err != nil {
			return err
		}
	}
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func notFound(message string) *DomainError {
	return domainError(http.StatusNotFound, "NOT_FOUND", message, nil)
}

func badRequest(code, message string) *DomainError {
	return domainError(http.StatusBadRequest, code, message, nil)
}

func unauthorized(message string) *DomainError {
	return domainError(http.StatusUnauthorized, "UNAUTHORIZED", message, nil)
}

// missing turns sql.ErrNoRows from a store read into NotFound with message.
func missing(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(message)
	}
	return err
}
