package announcement

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// Priorities
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Audiences
const (
	AudienceAll      = "all"
	AudienceStudents = "students"
	AudienceFaculty  = "faculty"
	AudienceBatch    = "batch"
)

// Groupings
const (
	GroupByWeek  = "week"
	GroupByMonth = "month"
)

var errBatchRequired = core.NewValidationError(nil, core.FieldError{Field: "batch", Error: "batch is required for a batch announcement"})

type Announcement struct {
	ID         string    `json:"id" bson:"id"`
	CenterID   string    `json:"center_id" bson:"center_id"`
	Title      string    `json:"title" bson:"title"`
	Body       string    `json:"body" bson:"body"`
	Priority   string    `json:"priority" bson:"priority"`
	Audience   string    `json:"audience" bson:"audience"`
	Batch      string    `json:"batch" bson:"batch"`
	Pinned     bool      `json:"pinned" bson:"pinned"`
	AuthorID   string    `json:"author_id" bson:"author_id"`
	AuthorName string    `json:"author_name" bson:"author_name"`
	ExpiresAt  time.Time `json:"expires_at" bson:"expires_at"` // UTC, zero: never
	CreatedAt  time.Time `json:"created_at" bson:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"` // UTC
}

func (a Announcement) IsExpired(now time.Time) bool {
	return !a.ExpiresAt.IsZero() && !a.ExpiresAt.After(now)
}

func (a Announcement) IsUrgent() bool { return a.Priority == PriorityUrgent }

// EditableBy reports whether usr may modify or delete the announcement: its author or an admin.
func (a Announcement) EditableBy(usr user.User) bool {
	return usr.IsAdmin() || (a.AuthorID != "" && a.AuthorID == usr.ID)
}

// Viewer is whoever reads announcements from a portal.
type Viewer struct {
	UserID    string
	IsAdmin   bool
	IsFaculty bool
	IsStudent bool
	Batch     string // students only
}

// Visible reports whether the announcement is addressed to the viewer.
// Admins see everything and authors their own posts. Otherwise faculty see all/faculty
// and students see all/students/their batch.
func (a Announcement) Visible(v Viewer) bool {
	if v.IsAdmin || (v.UserID != "" && a.AuthorID == v.UserID) {
		return true
	}
	switch a.Audience {
	case AudienceAll:
		return true
	case AudienceFaculty:
		return v.IsFaculty
	case AudienceStudents:
		return v.IsStudent
	case AudienceBatch:
		return v.IsStudent && v.Batch != "" && a.Batch == v.Batch
	}
	return false
}

type NewAnnouncement struct {
	Title     string     `json:"title" validate:"required"`
	Body      string     `json:"body" validate:"required"`
	Priority  string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Audience  string     `json:"audience" validate:"omitempty,oneof=all students faculty batch"`
	Batch     string     `json:"batch"`
	Pinned    bool       `json:"pinned"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	na.Priority = core.CleanString(na.Priority, true /* lower */)
	na.Audience = core.CleanString(na.Audience, true /* lower */)
	na.Batch = core.CleanString(na.Batch)
	if na.Priority == "" {
		na.Priority = PriorityNormal
	}
	if na.Audience == "" {
		na.Audience = AudienceAll
	}

	if err := validate.Struct(na); err != nil {
		return err
	}
	if na.Audience == AudienceBatch && na.Batch == "" {
		return errBatchRequired
	}
	return nil
}

type UpdateAnnouncement struct {
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Priority  string     `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Audience  string     `json:"audience" validate:"omitempty,oneof=all students faculty batch"`
	Batch     *string    `json:"batch"`
	Pinned    *bool      `json:"pinned"`
	ExpiresAt *time.Time `json:"expires_at"`
}

func (ua *UpdateAnnouncement) Validate(orig Announcement, validate *validator.Validate) error {
	if title := core.CleanString(ua.Title); title != "" {
		ua.Title = title
	} else {
		ua.Title = orig.Title
	}
	if body := core.CleanString(ua.Body); body != "" {
		ua.Body = body
	} else {
		ua.Body = orig.Body
	}
	if prio := core.CleanString(ua.Priority, true /* lower */); prio != "" {
		ua.Priority = prio
	} else {
		ua.Priority = orig.Priority
	}
	if aud := core.CleanString(ua.Audience, true /* lower */); aud != "" {
		ua.Audience = aud
	} else {
		ua.Audience = orig.Audience
	}
	batch := orig.Batch
	if ua.Batch != nil {
		batch = core.CleanString(*ua.Batch)
	}
	ua.Batch = &batch

	if err := validate.Struct(ua); err != nil {
		return err
	}
	if ua.Audience == AudienceBatch && batch == "" {
		return errBatchRequired
	}
	return nil
}

type QueryFilter struct {
	Search         string         `query:"search"`
	Priority       string         `query:"priority"`
	Audience       string         `query:"audience"`
	Batch          string         `query:"batch"`
	CreatedFrom    core.QueryTime `query:"created_from"`
	CreatedTo      core.QueryTime `query:"created_to"`
	IncludeExpired bool           `query:"include_expired"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Priority = core.CleanString(qf.Priority, true /* lower */)
	qf.Audience = core.CleanString(qf.Audience, true /* lower */)
	qf.Batch = core.CleanString(qf.Batch)
}

func (qf *QueryFilter) Where() core.Filter {
	where := core.Filter{}
	if qf == nil {
		return where
	}
	if qf.Priority != "" {
		where["priority"] = qf.Priority
	}
	if qf.Audience != "" {
		where["audience"] = qf.Audience
	}
	if qf.Batch != "" {
		where["batch"] = qf.Batch
	}
	return where
}

func (qf *QueryFilter) Match(a Announcement, now time.Time) bool {
	if !qf.IncludeExpired && a.IsExpired(now) {
		return false
	}
	if qf.Search != "" && !core.ContainsFold(qf.Search, a.Title, a.Body, a.AuthorName) {
		return false
	}
	if qf.Priority != "" && a.Priority != qf.Priority {
		return false
	}
	if qf.Audience != "" && a.Audience != qf.Audience {
		return false
	}
	if qf.Batch != "" && a.Batch != qf.Batch {
		return false
	}
	if !qf.CreatedFrom.IsZero() && a.CreatedAt.Before(qf.CreatedFrom.Time) {
		return false
	}
	if !qf.CreatedTo.IsZero() && a.CreatedAt.After(qf.CreatedTo.EndOfDay()) {
		return false
	}
	return true
}

// Group is a bucket of announcements created in the same week or month.
type Group struct {
	Key           string         `json:"key"` // YYYY-Www or YYYY-MM
	Announcements []Announcement `json:"announcements"`
}
