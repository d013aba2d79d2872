package store

import "time"

type User struct {
	ID               string
	Username         string
	Email            string
	DisplayName      string
	PasswordHash     string
	Role             string
	LocationCode     *string
	TwoFactorEnabled bool
	GoogleSubject    *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Profile struct {
	UserID    string
	Bio       string
	AvatarURL string
	Phone     string
	UpdatedAt time.Time
}

type Workspace struct {
	ID          string
	OwnerID     string
	Name        string
	Description string
	Icon        string
	IsDefault   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WorkspaceWithRole is a workspace as seen by one of its members.
type WorkspaceWithRole struct {
	Workspace
	Role        string
	MemberCount int
	PageCount   int
}

type WorkspaceMember struct {
	WorkspaceID string
	UserID      string
	Role        string
	JoinedAt    time.Time
}

// MemberDetail joins a membership with the member's user record.
type MemberDetail struct {
	WorkspaceMember
	Username    string
	Email       string
	DisplayName string
}

type Page struct {
	ID          string
	WorkspaceID string
	CreatedBy   string
	Title       string
	Content     string
	Icon        string
	CoverImage  string
	IsFavorite  bool
	IsArchived  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// PageFilter narrows ListPagesByWorkspace. Nil fields do not filter.
type PageFilter struct {
	Favorite *bool
	Archived *bool
}

type PageShare struct {
	ID         string
	PageID     string
	SharedBy   string
	SharedWith string
	Permission string
	CreatedAt  time.Time
}

// ShareDetail joins a share with the page title and both parties.
type ShareDetail struct {
	PageShare
	PageTitle       string
	SharedByName    string
	SharedByEmail   string
	SharedWithName  string
	SharedWithEmail string
}

type Tag struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	CreatedAt time.Time
}

type PageTag struct {
	PageID   string
	TagID    string
	TaggedAt time.Time
}

type TwoFactorCode struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	Used      bool
	Attempts  int
	CreatedAt time.Time
}

type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      string
	IsRead    bool
	Metadata  string
	Status    string
	CreatedAt time.Time
}

type Location struct {
	Code       string
	Name       string
	Type       string
	ParentCode *string
}

type Attachment struct {
	ID           string
	PageID       string
	UploadedBy   string
	OriginalName string
	StoredName   string
	ContentType  string
	SizeBytes    int64
	CreatedAt    time.Time
}
