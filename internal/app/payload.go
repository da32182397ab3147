package app

import "github.com/HariSeldon343/NexioSolution-sub003/internal/store"

func documentPayload(doc store.Document) map[string]any {
	return map[string]any{
		"id":                doc.ID,
		"rootId":            doc.RootID,
		"tenantId":          doc.TenantID,
		"moduleId":          doc.ModuleID,
		"classificationId":  doc.ClassificationID,
		"documentType":      doc.DocumentType,
		"code":              doc.Code,
		"title":             doc.Title,
		"body":              doc.Body,
		"content":           doc.Content,
		"status":            doc.Status,
		"versionNumber":     doc.VersionNumber,
		"isCurrent":         doc.IsCurrent,
		"changeDescription": doc.ChangeDescription,
		"authorId":          doc.AuthorID,
		"createdAt":         doc.CreatedAt,
		"updatedAt":         doc.UpdatedAt,
	}
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"expiresAt":    session.ExpiresAt,
		"userName":     session.UserName,
		"userId":       session.Identity.UserID,
		"tenantId":     session.Identity.TenantID,
		"role":         session.Identity.Role,
	}
}
