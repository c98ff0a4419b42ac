package models

import "time"

type ContentType string

const (
	ContentPost    ContentType = "post"
	ContentComment ContentType = "comment"
	ContentProfile ContentType = "profile"
)

func (c ContentType) Valid() bool {
	switch c {
	case ContentPost, ContentComment, ContentProfile:
		return true
	}
	return false
}

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportReviewed ReportStatus = "reviewed"
	ReportResolved ReportStatus = "resolved"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportReviewed, ReportResolved:
		return true
	}
	return false
}

type ContentReport struct {
	ID          string       `json:"id"`
	ReporterID  string       `json:"reporterId"`
	ContentID   string       `json:"contentId"`
	ContentType ContentType  `json:"contentType"`
	Reason      string       `json:"reason"`
	Description string       `json:"description"`
	Status      ReportStatus `json:"status"`
	CreatedAt   time.Time    `json:"createdAt"`
	ResolvedAt  *time.Time   `json:"resolvedAt,omitempty"`
}
