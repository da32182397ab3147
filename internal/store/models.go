package store

import "time"

type Tenant struct {
	ID        int64
	Name      string
	Address   string
	Phone     string
	Email     string
	TaxID     string
	LogoPath  string
	CreatedAt time.Time
}

type User struct {
	ID           int64
	TenantID     int64
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type Classification struct {
	ID          int64
	TenantID    int64
	Code        string
	Description string
}

type Module struct {
	ID       int64
	TenantID int64
	Name     string
}

// ModuleTemplate is the header/footer pair of a module. NULL columns are
// mapped to empty strings.
type ModuleTemplate struct {
	ID           int64
	ModuleID     int64
	DocumentType string
	Header       string
	Footer       string
	UpdatedAt    time.Time
}

// Document is one version row. The first version of a lineage has
// RootID == ID; every later version shares that RootID.
type Document struct {
	ID                int64
	TenantID          int64
	ModuleID          *int64
	ClassificationID  *int64
	DocumentType      string
	Code              string
	Title             string
	Body              string
	Content           string
	Status            string
	VersionNumber     int
	RootID            int64
	IsCurrent         bool
	ChangeDescription string
	AuthorID          *int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type VersionSummary struct {
	ID                int64
	RootID            int64
	VersionNumber     int
	IsCurrent         bool
	Title             string
	ChangeDescription string
	AuthorID          *int64
	AuthorName        string
	CreatedAt         time.Time
}

// NewDocument describes version 1 of a new lineage.
type NewDocument struct {
	TenantID         int64
	ModuleID         *int64
	ClassificationID *int64
	DocumentType     string
	Code             string
	Title            string
	Body             string
	Content          string
	Status           string
	AuthorID         int64
}

// VersionDraft is appended to an existing lineage. An empty Title keeps the
// current version's title; the remaining metadata is always inherited.
type VersionDraft struct {
	RootID            int64
	Title             string
	Body              string
	Content           string
	ChangeDescription string
	AuthorID          int64
}

// BootstrapAdmin is the first tenant and administrator of an empty install.
type BootstrapAdmin struct {
	TenantName   string
	Email        string
	DisplayName  string
	PasswordHash string
}
