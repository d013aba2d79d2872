package app

import (
	"encoding/json"
	"time"

	"notespace/api/internal/history"
	"notespace/api/internal/locations"
	"notespace/api/internal/store"
)

func sessionPayload(current Session) map[string]any {
	return map[string]any{
		"accessToken":  current.Token,
		"refreshToken": current.RefreshToken,
		"userId":       current.UserID,
		"userName":     current.UserName,
		"email":        current.Email,
		"role":         current.Role,
		"expiresAt":    current.ExpiresAt.Unix(),
	}
}

func userPayload(view UserView) map[string]any {
	user := view.User
	payload := map[string]any{
		"id":          user.ID,
		"username":    user.Username,
		"displayName": user.DisplayName,
		"createdAt":   formatTime(user.CreatedAt),
	}
	if view.Profile == nil {
		return payload
	}
	payload["email"] = user.Email
	payload["role"] = user.Role
	payload["locationCode"] = user.LocationCode
	payload["twoFactorEnabled"] = user.TwoFactorEnabled
	payload["googleLinked"] = user.GoogleSubject != nil
	payload["updatedAt"] = formatTime(user.UpdatedAt)
	payload["profile"] = profilePayload(*view.Profile)
	return payload
}

func profilePayload(profile store.Profile) map[string]any {
	return map[string]any{
		"bio":       profile.Bio,
		"avatarUrl": profile.AvatarURL,
		"phone":     profile.Phone,
		"updatedAt": formatTime(profile.UpdatedAt),
	}
}

func workspacePayload(ws store.WorkspaceWithRole) map[string]any {
	return map[string]any{
		"id":          ws.ID,
		"ownerId":     ws.OwnerID,
		"name":        ws.Name,
		"description": ws.Description,
		"icon":        ws.Icon,
		"isDefault":   ws.IsDefault,
		"role":        ws.Role,
		"memberCount": ws.MemberCount,
		"pageCount":   ws.PageCount,
		"createdAt":   formatTime(ws.CreatedAt),
		"updatedAt":   formatTime(ws.UpdatedAt),
	}
}

func memberPayload(member store.MemberDetail) map[string]any {
	return map[string]any{
		"workspaceId": member.WorkspaceID,
		"userId":      member.UserID,
		"role":        member.Role,
		"username":    member.Username,
		"email":       member.Email,
		"displayName": member.DisplayName,
		"joinedAt":    formatTime(member.JoinedAt),
	}
}

func pagePayload(page store.Page) map[string]any {
	return map[string]any{
		"id":          page.ID,
		"workspaceId": page.WorkspaceID,
		"createdBy":   page.CreatedBy,
		"title":       page.Title,
		"content":     page.Content,
		"icon":        page.Icon,
		"coverImage":  page.CoverImage,
		"isFavorite":  page.IsFavorite,
		"isArchived":  page.IsArchived,
		"createdAt":   formatTime(page.CreatedAt),
		"updatedAt":   formatTime(page.UpdatedAt),
	}
}

func sharePayload(share store.PageShare) map[string]any {
	return map[string]any{
		"id":         share.ID,
		"pageId":     share.PageID,
		"sharedBy":   share.SharedBy,
		"sharedWith": share.SharedWith,
		"permission": share.Permission,
		"createdAt":  formatTime(share.CreatedAt),
	}
}

func shareDetailPayload(detail store.ShareDetail) map[string]any {
	payload := sharePayload(detail.PageShare)
	payload["pageTitle"] = detail.PageTitle
	payload["sharedByName"] = detail.SharedByName
	payload["sharedByEmail"] = detail.SharedByEmail
	payload["sharedWithName"] = detail.SharedWithName
	payload["sharedWithEmail"] = detail.SharedWithEmail
	return payload
}

func tagPayload(tag store.Tag) map[string]any {
	return map[string]any{
		"id":        tag.ID,
		"name":      tag.Name,
		"color":     tag.Color,
		"createdAt": formatTime(tag.CreatedAt),
	}
}

func notificationPayload(n store.Notification) map[string]any {
	payload := map[string]any{
		"id":        n.ID,
		"title":     n.Title,
		"message":   n.Message,
		"type":      n.Type,
		"isRead":    n.IsRead,
		"status":    nil,
		"metadata":  nil,
		"createdAt": formatTime(n.CreatedAt),
	}
	if n.Status != "" {
		payload["status"] = n.Status
	}
	if n.Metadata != "" && json.Valid([]byte(n.Metadata)) {
		payload["metadata"] = json.RawMessage(n.Metadata)
	}
	return payload
}

func locationPayload(node locations.Node) map[string]any {
	payload := map[string]any{
		"code":       node.Code,
		"name":       node.Name,
		"type":       node.Type,
		"parentCode": nil,
	}
	if node.Parent != "" {
		payload["parentCode"] = node.Parent
	}
	return payload
}

func attachmentPayload(a store.Attachment) map[string]any {
	return map[string]any{
		"id":           a.ID,
		"pageId":       a.PageID,
		"uploadedBy":   a.UploadedBy,
		"originalName": a.OriginalName,
		"storedName":   a.StoredName,
		"contentType":  a.ContentType,
		"sizeBytes":    a.SizeBytes,
		"createdAt":    formatTime(a.CreatedAt),
	}
}

func revisionPayload(rev history.Revision) map[string]any {
	return map[string]any{
		"hash":      rev.Hash,
		"message":   rev.Message,
		"author":    rev.Author,
		"createdAt": formatTime(rev.CreatedAt),
	}
}

// listPayload maps items through fn; the result is never nil so empty
// lists encode as [].
func listPayload[T any](items []T, fn func(T) map[string]any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
