package model

import (
	"time"

	"SMProject/tools/errs"
)

const (
	ProjectCollection     = "projects"
	ApplicationCollection = "applications"
)

const (
	StatusDraft      = "draft"
	StatusOpen       = "open"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	VisibilityPublic     = "public"
	VisibilityPrivate    = "private"
	VisibilityInviteOnly = "invite-only"
)

const (
	ApplicationPending  = "pending"
	ApplicationAccepted = "accepted"
	ApplicationRejected = "rejected"
	ApplicationInvited  = "invited"
)

type Requirement struct {
	Instrument string `bson:"instrument" json:"instrument"`
	Genre      string `bson:"genre" json:"genre"`
	Details    string `bson:"details" json:"details"`
}

type Budget struct {
	Min float64 `bson:"min" json:"min"`
	Max float64 `bson:"max" json:"max"`
	// hourly, fixed or negotiable
	Type string `bson:"type" json:"type"`
}

type Timeline struct {
	StartDate *time.Time `bson:"startDate" json:"startDate"`
	EndDate   *time.Time `bson:"endDate" json:"endDate"`
	// strict, flexible or negotiable
	Flexibility string `bson:"flexibility" json:"flexibility"`
}

type Attachment struct {
	Name       string    `bson:"name" json:"name"`
	FileURL    string    `bson:"fileUrl" json:"fileUrl"`
	FileType   string    `bson:"fileType" json:"fileType"`
	FileSize   int64     `bson:"fileSize" json:"fileSize"`
	UploadedAt time.Time `bson:"uploadedAt" json:"uploadedAt"`
}

type Project struct {
	ID           string        `bson:"_id" json:"id"`
	ClientID     string        `bson:"clientId" json:"clientId"`
	Title        string        `bson:"title" json:"title"`
	Description  string        `bson:"description" json:"description"`
	Requirements []Requirement `bson:"requirements" json:"requirements"`
	Budget       Budget        `bson:"budget" json:"budget"`
	Timeline     Timeline      `bson:"timeline" json:"timeline"`
	Status       string        `bson:"status" json:"status"`
	Visibility   string        `bson:"visibility" json:"visibility"`
	Attachments  []Attachment  `bson:"attachments" json:"attachments"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// ApplyDefaults fills the zero-valued enums and slices of a new project.
func (p *Project) ApplyDefaults() {
	if p.Budget.Type == "" {
		p.Budget.Type = "fixed"
	}
	if p.Timeline.Flexibility == "" {
		p.Timeline.Flexibility = "flexible"
	}
	if p.Visibility == "" {
		p.Visibility = VisibilityPublic
	}
	if p.Status == "" {
		p.Status = StatusDraft
	}
	if p.Requirements == nil {
		p.Requirements = []Requirement{}
	}
	if p.Attachments == nil {
		p.Attachments = []Attachment{}
	}
}

// Validate checks required fields and enum values.
func (p *Project) Validate() error {
	switch {
	case p.Title == "":
		return errs.ErrArgs.WrapMsg("please add a title")
	case p.Description == "":
		return errs.ErrArgs.WrapMsg("please add a description")
	case !oneOf(p.Status, StatusDraft, StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled):
		return errs.ErrArgs.WrapMsg("invalid project status", "status", p.Status)
	case !oneOf(p.Visibility, VisibilityPublic, VisibilityPrivate, VisibilityInviteOnly):
		return errs.ErrArgs.WrapMsg("invalid visibility", "visibility", p.Visibility)
	case !oneOf(p.Budget.Type, "hourly", "fixed", "negotiable"):
		return errs.ErrArgs.WrapMsg("invalid budget type", "type", p.Budget.Type)
	case !oneOf(p.Timeline.Flexibility, "strict", "flexible", "negotiable"):
		return errs.ErrArgs.WrapMsg("invalid timeline flexibility", "flexibility", p.Timeline.Flexibility)
	}
	for _, r := range p.Requirements {
		if r.Instrument == "" {
			return errs.ErrArgs.WrapMsg("requirement instrument is required")
		}
	}
	return nil
}

type Slot struct {
	Date      time.Time `bson:"date" json:"date"`
	StartTime string    `bson:"startTime" json:"startTime"`
	EndTime   string    `bson:"endTime" json:"endTime"`
}

type Application struct {
	ID           string    `bson:"_id" json:"id"`
	ProjectID    string    `bson:"projectId" json:"projectId"`
	MusicianID   string    `bson:"musicianId" json:"musicianId"`
	Proposal     string    `bson:"proposal" json:"proposal"`
	Rate         float64   `bson:"rate" json:"rate"`
	Availability []Slot    `bson:"availability" json:"availability"`
	Status       string    `bson:"status" json:"status"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

func ValidApplicationStatus(s string) bool {
	return oneOf(s, ApplicationPending, ApplicationAccepted, ApplicationRejected, ApplicationInvited)
}

// Filter narrows ListProjects; empty fields match everything.
type Filter struct {
	Status     string
	Visibility string
	ClientID   string
}

func (f Filter) Match(p *Project) bool {
	return (f.Status == "" || p.Status == f.Status) &&
		(f.Visibility == "" || p.Visibility == f.Visibility) &&
		(f.ClientID == "" || p.ClientID == f.ClientID)
}

func oneOf(v string, set ...string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}
