package announcement

import (
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator, _ := ut.New(en.New(), en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func TestAnnouncement_Visible(t *testing.T) {
	tests := []struct {
		name   string
		ann    Announcement
		viewer Viewer
		want   bool
	}{
		{name: "admin sees faculty only", ann: Announcement{Audience: AudienceFaculty}, viewer: Viewer{IsAdmin: true}, want: true},
		{name: "student sees all", ann: Announcement{Audience: AudienceAll}, viewer: Viewer{IsStudent: true}, want: true},
		{name: "student does not see faculty", ann: Announcement{Audience: AudienceFaculty}, viewer: Viewer{IsStudent: true}},
		{name: "faculty does not see students", ann: Announcement{Audience: AudienceStudents}, viewer: Viewer{IsFaculty: true}},
		{name: "student sees own batch", ann: Announcement{Audience: AudienceBatch, Batch: "A"}, viewer: Viewer{IsStudent: true, Batch: "A"}, want: true},
		{name: "student does not see other batch", ann: Announcement{Audience: AudienceBatch, Batch: "A"}, viewer: Viewer{IsStudent: true, Batch: "B"}},
		{name: "faculty does not see batch", ann: Announcement{Audience: AudienceBatch, Batch: "A"}, viewer: Viewer{IsFaculty: true}},
		{name: "author sees own batch post", ann: Announcement{Audience: AudienceBatch, Batch: "A", AuthorID: "f1"}, viewer: Viewer{UserID: "f1", IsFaculty: true}, want: true},
		{name: "other faculty does not see batch post", ann: Announcement{Audience: AudienceBatch, Batch: "A", AuthorID: "f1"}, viewer: Viewer{UserID: "f2", IsFaculty: true}},
		{name: "anonymous author matches nobody", ann: Announcement{Audience: AudienceStudents}, viewer: Viewer{IsFaculty: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ann.Visible(tt.viewer))
		})
	}
}

func TestAnnouncement_IsExpired(t *testing.T) {
	now := time.Now()
	assert.False(t, Announcement{}.IsExpired(now))
	assert.True(t, Announcement{ExpiresAt: now}.IsExpired(now))
	assert.False(t, Announcement{ExpiresAt: now.Add(time.Minute)}.IsExpired(now))
}

func TestAnnouncement_EditableBy(t *testing.T) {
	ann := Announcement{AuthorID: "u1"}
	assert.True(t, ann.EditableBy(user.User{ID: "u1", Roles: []string{user.RoleFaculty}}))
	assert.True(t, ann.EditableBy(user.User{ID: "u2", Roles: []string{user.RoleAdmin}}))
	assert.False(t, ann.EditableBy(user.User{ID: "u3", Roles: []string{user.RoleFaculty}}))
	assert.False(t, Announcement{}.EditableBy(user.User{Roles: []string{user.RoleFaculty}}))
}

func TestNewAnnouncement_Validate(t *testing.T) {
	validate := newValidator()

	na := NewAnnouncement{Title: " Holiday ", Body: "Closed on Monday"}
	if assert.NoError(t, na.Validate(validate)) {
		assert.Equal(t, "Holiday", na.Title)
		assert.Equal(t, PriorityNormal, na.Priority)
		assert.Equal(t, AudienceAll, na.Audience)
	}

	na = NewAnnouncement{Title: "Test", Body: "Batch test", Audience: "BATCH"}
	assert.Equal(t, errBatchRequired, na.Validate(validate))

	na = NewAnnouncement{Title: "Test", Body: "x", Priority: "critical"}
	assert.Error(t, na.Validate(validate))
}

func TestUpdateAnnouncement_Validate(t *testing.T) {
	validate := newValidator()
	orig := Announcement{Title: "T", Body: "B", Priority: PriorityHigh, Audience: AudienceBatch, Batch: "A"}

	ua := UpdateAnnouncement{Body: "New body"}
	if assert.NoError(t, ua.Validate(orig, validate)) {
		assert.Equal(t, "T", ua.Title)
		assert.Equal(t, "New body", ua.Body)
		assert.Equal(t, PriorityHigh, ua.Priority)
		assert.Equal(t, "A", *ua.Batch)
	}

	empty := ""
	ua = UpdateAnnouncement{Batch: &empty}
	assert.Equal(t, errBatchRequired, ua.Validate(orig, validate))
}

func TestQueryFilter_Match(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	ann := Announcement{
		Title:      "Exam schedule",
		Body:       "Physics on Friday",
		AuthorName: "Principal",
		Priority:   PriorityHigh,
		Audience:   AudienceBatch,
		Batch:      "2024-A",
		CreatedAt:  time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	expired := ann
	expired.ExpiresAt = now.Add(-time.Hour)
	day := func(d int) core.QueryTime { return core.QueryTime{Time: time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)} }

	tests := []struct {
		name   string
		ann    Announcement
		filter QueryFilter
		want   bool
	}{
		{name: "no filter", ann: ann, want: true},
		{name: "priority", ann: ann, filter: QueryFilter{Priority: PriorityHigh}, want: true},
		{name: "other priority", ann: ann, filter: QueryFilter{Priority: PriorityUrgent}},
		{name: "audience", ann: ann, filter: QueryFilter{Audience: AudienceBatch, Batch: "2024-A"}, want: true},
		{name: "other audience", ann: ann, filter: QueryFilter{Audience: AudienceAll}},
		{name: "other batch", ann: ann, filter: QueryFilter{Batch: "2024-B"}},
		{name: "search body", ann: ann, filter: QueryFilter{Search: "PHYSICS"}, want: true},
		{name: "search author", ann: ann, filter: QueryFilter{Search: "princ"}, want: true},
		{name: "search miss", ann: ann, filter: QueryFilter{Search: "chemistry"}},
		{name: "created from", ann: ann, filter: QueryFilter{CreatedFrom: day(10)}, want: true},
		{name: "created after from", ann: ann, filter: QueryFilter{CreatedFrom: day(11)}},
		{name: "created to covers the whole day", ann: ann, filter: QueryFilter{CreatedTo: day(10)}, want: true},
		{name: "created before to", ann: ann, filter: QueryFilter{CreatedTo: day(9)}},
		{name: "expired hidden", ann: expired},
		{name: "expired included", ann: expired, filter: QueryFilter{IncludeExpired: true}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.ann, now))
		})
	}
}

func TestGroupAnnouncements(t *testing.T) {
	at := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 9, 0, 0, 0, time.UTC) }
	anns := []Announcement{
		{ID: "1", CreatedAt: at(2024, 1, 2)},   // 2024-W01
		{ID: "2", CreatedAt: at(2024, 2, 14)},  // 2024-W07
		{ID: "3", CreatedAt: at(2024, 1, 4)},   // 2024-W01
		{ID: "4", CreatedAt: at(2023, 12, 31)}, // 2023-W52
	}

	ids := func(g Group) []string {
		var out []string
		for _, a := range g.Announcements {
			out = append(out, a.ID)
		}
		return out
	}

	t.Run("by week", func(t *testing.T) {
		groups, err := GroupAnnouncements(anns, GroupByWeek)
		if assert.NoError(t, err) && assert.Len(t, groups, 3) {
			assert.Equal(t, "2024-W07", groups[0].Key)
			assert.Equal(t, "2024-W01", groups[1].Key)
			assert.Equal(t, []string{"1", "3"}, ids(groups[1]))
			assert.Equal(t, "2023-W52", groups[2].Key)
		}
	})

	t.Run("by month", func(t *testing.T) {
		groups, err := GroupAnnouncements(anns, GroupByMonth)
		if assert.NoError(t, err) && assert.Len(t, groups, 3) {
			assert.Equal(t, []string{"2024-02", "2024-01", "2023-12"}, []string{groups[0].Key, groups[1].Key, groups[2].Key})
		}
	})

	t.Run("empty", func(t *testing.T) {
		groups, err := GroupAnnouncements(nil, GroupByMonth)
		assert.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("invalid grouping", func(t *testing.T) {
		_, err := GroupAnnouncements(anns, "year")
		assert.Equal(t, ErrInvalidGrouping, err)
	})
}
