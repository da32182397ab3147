package placeholder

import "time"

// Context is the data a header or footer template is resolved against. It is
// built per render from the document, tenant and classification rows.
type Context struct {
	Tenant         Tenant
	Document       Document
	Classification Classification
	Now            time.Time
}

type Tenant struct {
	Name    string
	Address string
	Phone   string
	Email   string
	TaxID   string
	LogoURL string
}

type Document struct {
	Title     string
	Code      string
	Version   int
	CreatedAt time.Time
}

type Classification struct {
	Code        string
	Description string
}
