package announcement

import (
	"context"
	"errors"
	"net/mail"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("announcement")
	ErrInvalidGrouping = core.NewValidationError(errors.New("group_by must be one of week or month"))

	// pinned first, then newest
	defaultOrdering = []core.DBOrdering{{Field: "pinned", Ascending: false}, {Field: "created_at", Ascending: false}}
)

type (
	Repository interface {
		Create(ctx context.Context, a Announcement) (Announcement, error)
		Get(ctx context.Context, centerID, id string) (Announcement, error)
		Query(ctx context.Context, centerID string, where core.Filter) ([]Announcement, error)
		Update(ctx context.Context, a Announcement) (Announcement, error)
		Delete(ctx context.Context, centerID, id string) error
		// Recipients returns the email addresses of the announcement's audience.
		Recipients(ctx context.Context, a Announcement) ([]mail.Address, error)
	}

	// Publisher pushes new announcements to live subscribers.
	Publisher interface {
		Publish(centerID string, a Announcement)
	}
)

type Service struct {
	repo      Repository
	mailSvc   core.EmailService
	publisher Publisher
	logger    core.Logger
	now       func() time.Time // mockable
}

func NewService(repo Repository, mailSvc core.EmailService, publisher Publisher, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		mailSvc:   mailSvc,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Create posts an announcement. Urgent announcements are emailed to their audience.
func (svc *Service) Create(ctx context.Context, centerID string, na NewAnnouncement, author user.User) (Announcement, error) {
	now := time.Now().UTC()
	a := Announcement{
		ID:         uuid.NewString(),
		CenterID:   centerID,
		Title:      na.Title,
		Body:       na.Body,
		Priority:   na.Priority,
		Audience:   na.Audience,
		Batch:      na.Batch,
		Pinned:     na.Pinned,
		AuthorID:   author.ID,
		AuthorName: author.Name,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if a.Audience != AudienceBatch {
		a.Batch = ""
	}
	if na.ExpiresAt != nil {
		a.ExpiresAt = na.ExpiresAt.UTC()
	}

	a, err := svc.repo.Create(ctx, a)
	if err != nil {
		return Announcement{}, err
	}

	if a.IsUrgent() {
		if err := svc.notify(ctx, a); err != nil {
			svc.logger.Error("emailing urgent announcement: "+err.Error(), err)
		}
	}
	if svc.publisher != nil {
		svc.publisher.Publish(centerID, a)
	}
	return a, nil
}

func (svc *Service) notify(ctx context.Context, a Announcement) error {
	recipients, err := svc.repo.Recipients(ctx, a)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return nil
	}

	messages := make([]*core.EmailMessage, 0, len(recipients))
	for _, to := range recipients {
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{to},
			Subject:      "[Urgent] " + a.Title,
			TemplateName: "announcement",
			TemplateData: a,
		})
	}
	svc.mailSvc.SendMessages(messages...)
	return nil
}

func (svc *Service) Query(ctx context.Context, centerID string, filter *QueryFilter, orderings []core.DBOrdering) ([]Announcement, error) {
	all, err := svc.repo.Query(ctx, centerID, filter.Where())
	if err != nil {
		return nil, err
	}

	now := svc.now()
	anns := make([]Announcement, 0, len(all))
	for _, a := range all {
		if filter == nil {
			if a.IsExpired(now) {
				continue
			}
		} else if !filter.Match(a, now) {
			continue
		}
		anns = append(anns, a)
	}

	sortAnnouncements(anns, orderings)
	return anns, nil
}

func sortAnnouncements(anns []Announcement, orderings []core.DBOrdering) {
	if len(orderings) == 0 {
		orderings = defaultOrdering
	}
	core.SortByOrdering(anns, orderings, core.Comparators{
		"title":      func(i, j int) int { return core.CompareStrings(anns[i].Title, anns[j].Title) },
		"priority":   func(i, j int) int { return comparePriorities(anns[i].Priority, anns[j].Priority) },
		"pinned":     func(i, j int) int { return core.CompareBools(anns[i].Pinned, anns[j].Pinned) },
		"created_at": func(i, j int) int { return core.CompareTimes(anns[i].CreatedAt, anns[j].CreatedAt) },
		"expires_at": func(i, j int) int { return core.CompareTimes(anns[i].ExpiresAt, anns[j].ExpiresAt) },
	})
}

var priorityRanks = map[string]int{PriorityLow: 1, PriorityNormal: 2, PriorityHigh: 3, PriorityUrgent: 4}

func comparePriorities(a, b string) int {
	return priorityRanks[a] - priorityRanks[b]
}

// ForViewer returns the live announcements addressed to the viewer.
func (svc *Service) ForViewer(ctx context.Context, centerID string, viewer Viewer, filter *QueryFilter) ([]Announcement, error) {
	anns, err := svc.Query(ctx, centerID, filter, nil)
	if err != nil {
		return nil, err
	}
	visible := anns[:0]
	for _, a := range anns {
		if a.Visible(viewer) {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

// Latest returns the n newest announcements addressed to the viewer.
func (svc *Service) Latest(ctx context.Context, centerID string, viewer Viewer, n int) ([]Announcement, error) {
	anns, err := svc.ForViewer(ctx, centerID, viewer, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(anns, func(i, j int) bool { return anns[i].CreatedAt.After(anns[j].CreatedAt) })
	if len(anns) > n {
		anns = anns[:n]
	}
	return anns, nil
}

func (svc *Service) Get(ctx context.Context, centerID, id string) (Announcement, error) {
	return svc.repo.Get(ctx, centerID, id)
}

// Update applies ua to a. Fields left empty in ua keep a's values.
func (svc *Service) Update(ctx context.Context, a Announcement, ua UpdateAnnouncement) (Announcement, error) {
	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Body != "" {
		a.Body = ua.Body
	}
	if ua.Priority != "" {
		a.Priority = ua.Priority
	}
	if ua.Audience != "" {
		a.Audience = ua.Audience
	}
	if ua.Batch != nil {
		a.Batch = *ua.Batch
	}
	if a.Audience != AudienceBatch {
		a.Batch = ""
	}
	if ua.Pinned != nil {
		a.Pinned = *ua.Pinned
	}
	if ua.ExpiresAt != nil {
		a.ExpiresAt = ua.ExpiresAt.UTC()
	}
	a.UpdatedAt = time.Now().UTC()
	return svc.repo.Update(ctx, a)
}

func (svc *Service) Delete(ctx context.Context, centerID, id string) error {
	return svc.repo.Delete(ctx, centerID, id)
}

// GroupAnnouncements buckets announcements by the week or month they were created in.
// Buckets are ordered newest first; announcements keep their relative order.
func GroupAnnouncements(anns []Announcement, by string) ([]Group, error) {
	var keyOf func(time.Time) string
	switch by {
	case GroupByWeek:
		keyOf = core.WeekKey
	case GroupByMonth:
		keyOf = core.MonthKey
	default:
		return nil, ErrInvalidGrouping
	}

	index := make(map[string]int)
	groups := make([]Group, 0)
	for _, a := range anns {
		key := keyOf(a.CreatedAt)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Announcements = append(groups[i].Announcements, a)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Key > groups[j].Key })
	return groups, nil
}

func (svc *Service) Group(ctx context.Context, centerID string, viewer Viewer, filter *QueryFilter, by string) ([]Group, error) {
	anns, err := svc.ForViewer(ctx, centerID, viewer, filter)
	if err != nil {
		return nil, err
	}
	return GroupAnnouncements(anns, by)
}
