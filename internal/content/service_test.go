// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package content

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/store"
	"github.com/olegiv/institute-cms/internal/testutil"
)

var testStart = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

type recorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recorder) Publish(_ context.Context, c Change) {
	r.mu.Lock()
	r.changes = append(r.changes, c)
	r.mu.Unlock()
}

func (r *recorder) all() []Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Change(nil), r.changes...)
}

func (r *recorder) last(t *testing.T) Change {
	t.Helper()
	all := r.all()
	require.NotEmpty(t, all, "no change published")
	return all[len(all)-1]
}

type fixture struct {
	svc    *Service
	db     *sql.DB
	rec    *recorder
	clock  *testutil.Clock
	super  *model.Principal
	admin  *model.Principal
	editor *model.Principal
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	f := &fixture{db: db, rec: &recorder{}, clock: testutil.NewClock(testStart)}
	f.svc = NewService(db, testutil.TestLoggerSilent(), WithPublisher(f.rec), WithClock(f.clock.Now))
	_, f.super = testutil.CreateUser(t, db, "Root", model.RoleSuperAdmin)
	_, f.admin = testutil.CreateUser(t, db, "Ada Admin", model.RoleAdmin)
	_, f.editor = testutil.CreateUser(t, db, "Eve Editor", model.RoleContentEditor)
	return f
}

func requireKind(t *testing.T, err error, kind Kind) {
	t.Helper()
	require.Error(t, err)
	var e *Error
	require.True(t, errors.As(err, &e), "error %v is not *content.Error", err)
	require.Equal(t, kind, e.Kind, "message: %s", e.Message)
}

func TestCreateBlogDerivesSlugAndAnnounces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blog, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: "  Hello, World! 2025 ", Content: "Body", IsPublished: true})
	require.NoError(t, err)

	assert.Equal(t, "hello-world-2025", blog.Slug)
	assert.Equal(t, "Hello, World! 2025", blog.Title)
	require.NotNil(t, blog.PublishedAt)
	assert.True(t, blog.PublishedAt.Equal(testStart))
	require.NotNil(t, blog.AuthorID)
	assert.Equal(t, f.admin.ID, *blog.AuthorID)
	assert.Equal(t, "Ada Admin", blog.AuthorName)

	c := f.rec.last(t)
	assert.Equal(t, "blog.created", c.EventName())
	assert.Equal(t, f.admin.ID, c.ActorID)
	assert.Equal(t, []string{"/blog", "/blog/hello-world-2025", "/admin/blogs"}, c.Paths)
	assert.True(t, c.Visible)
}

func TestCreateUnpublishedHasNoPublishedAt(t *testing.T) {
	f := newFixture(t)

	course, err := f.svc.CreateCourse(context.Background(), f.super, CourseInput{Title: "Draft Course"})
	require.NoError(t, err)
	assert.False(t, course.IsPublished)
	assert.Nil(t, course.PublishedAt)
	assert.Equal(t, []string{"/courses", "/courses/draft-course", "/admin/courses", "/"}, f.rec.last(t).Paths)
}

func TestDuplicateTitleConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start := testStart.Add(24 * time.Hour)

	tests := []struct {
		name   string
		create func(title string) error
		want   string
	}{
		{"blog", func(title string) error {
			_, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: title})
			return err
		}, "A blog with this title already exists"},
		{"course", func(title string) error {
			_, err := f.svc.CreateCourse(ctx, f.admin, CourseInput{Title: title})
			return err
		}, "A course with this title already exists"},
		{"notice", func(title string) error {
			_, err := f.svc.CreateNotice(ctx, f.editor, NoticeInput{Title: title})
			return err
		}, "A notice with this title already exists"},
		{"faculty", func(title string) error {
			_, err := f.svc.CreateFaculty(ctx, f.admin, FacultyInput{Name: title})
			return err
		}, "A faculty with this title already exists"},
		{"event", func(title string) error {
			_, err := f.svc.CreateEvent(ctx, f.admin, EventInput{Title: title, StartsAt: start})
			return err
		}, "An event with this title already exists"},
		{"startup", func(title string) error {
			_, err := f.svc.CreateStartup(ctx, f.admin, StartupInput{Name: title})
			return err
		}, "A startup with this title already exists"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.create("Open Day"))

			err := tt.create("open   DAY!")
			requireKind(t, err, KindConflict)
			assert.Equal(t, tt.want, err.Error())
			assert.ErrorIs(t, err, ErrConflict)
		})
	}
}

func TestUpdateKeepsOwnSlug(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blog, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: "Campus News"})
	require.NoError(t, err)

	updated, err := f.svc.UpdateBlog(ctx, f.admin, blog.ID, BlogInput{Title: "Campus News", Excerpt: "New excerpt"})
	require.NoError(t, err)
	assert.Equal(t, blog.Slug, updated.Slug)
	assert.Equal(t, "New excerpt", updated.Excerpt)

	c := f.rec.last(t)
	assert.Equal(t, ActionUpdated, c.Action)
	assert.Empty(t, c.PreviousSlug)
	assert.Equal(t, []string{"/blog", "/blog/campus-news", "/admin/blogs"}, c.Paths)
}

func TestUpdateRename(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.CreateCourse(ctx, f.admin, CourseInput{Title: "Physics"})
	require.NoError(t, err)
	_, err = f.svc.CreateCourse(ctx, f.admin, CourseInput{Title: "Chemistry"})
	require.NoError(t, err)

	_, err = f.svc.UpdateCourse(ctx, f.admin, first.ID, CourseInput{Title: "chemistry"})
	requireKind(t, err, KindConflict)

	renamed, err := f.svc.UpdateCourse(ctx, f.admin, first.ID, CourseInput{Title: "Applied Physics"})
	require.NoError(t, err)
	assert.Equal(t, "applied-physics", renamed.Slug)
	assert.Equal(t, first.ID, renamed.ID)

	c := f.rec.last(t)
	assert.Equal(t, "physics", c.PreviousSlug)
	assert.Equal(t, []string{"/courses", "/courses/physics", "/courses/applied-physics", "/admin/courses", "/"}, c.Paths)
}

func TestUpdateMissingRow(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.UpdateBlog(context.Background(), f.super, "does-not-exist", BlogInput{Title: "Anything"})
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Blog not found", err.Error())

	_, err = f.svc.ToggleFacultyActive(context.Background(), f.super, "does-not-exist")
	requireKind(t, err, KindNotFound)
	assert.Equal(t, "Faculty not found", err.Error())
}

func TestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"empty", "   ", "Title is required"},
		{"no letters", "!!! ???", "Title must contain letters or digits"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: tt.title})
			requireKind(t, err, KindValidation)
			assert.Equal(t, tt.want, err.Error())
		})
	}

	_, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: "Ok", CoverImageURL: "javascript:alert(1)"})
	requireKind(t, err, KindValidation)

	end := testStart.Add(-time.Hour)
	_, err = f.svc.CreateEvent(ctx, f.admin, EventInput{Title: "Backwards", StartsAt: testStart, EndsAt: &end})
	requireKind(t, err, KindValidation)
	assert.Equal(t, "Ends at must not be before starts at", err.Error())

	_, err = f.svc.CreateEvent(ctx, f.admin, EventInput{Title: "No start"})
	requireKind(t, err, KindValidation)

	_, err = f.svc.CreateFaculty(ctx, f.admin, FacultyInput{Name: "Dr. X", Email: "not-an-email"})
	requireKind(t, err, KindValidation)

	_, err = f.svc.CreateStartup(ctx, f.admin, StartupInput{Name: "Acme", FoundedYear: 1492})
	requireKind(t, err, KindValidation)

	assert.Empty(t, f.rec.all())
}

func TestToggleBlogPublishRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blog, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: "Toggle Me"})
	require.NoError(t, err)
	require.Nil(t, blog.PublishedAt)

	f.clock.Advance(time.Hour)
	on, err := f.svc.ToggleBlogPublish(ctx, f.admin, blog.ID)
	require.NoError(t, err)
	assert.True(t, on.IsPublished)
	require.NotNil(t, on.PublishedAt)
	assert.True(t, on.PublishedAt.Equal(testStart.Add(time.Hour)))
	assert.Equal(t, "published", f.rec.last(t).Field)

	off, err := f.svc.ToggleBlogPublish(ctx, f.admin, blog.ID)
	require.NoError(t, err)
	assert.False(t, off.IsPublished)
	assert.Nil(t, off.PublishedAt)

	assert.Equal(t, blog.Slug, off.Slug)
	assert.Equal(t, blog.Title, off.Title)
}

func TestUpdateKeepsPublishTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	course, err := f.svc.CreateCourse(ctx, f.admin, CourseInput{Title: "MBA", IsPublished: true})
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	updated, err := f.svc.UpdateCourse(ctx, f.admin, course.ID, CourseInput{Title: "MBA", Fee: "₹5,00,000", IsPublished: true})
	require.NoError(t, err)
	require.NotNil(t, updated.PublishedAt)
	assert.True(t, updated.PublishedAt.Equal(*course.PublishedAt))
	assert.Equal(t, "₹5,00,000", updated.Fee)
}

func TestToggleNoticePinAndFacultyActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	notice, err := f.svc.CreateNotice(ctx, f.editor, NoticeInput{Title: "Exam Schedule", IsPublished: true})
	require.NoError(t, err)

	pinned, err := f.svc.ToggleNoticePin(ctx, f.editor, notice.ID)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	assert.True(t, pinned.IsPublished)
	assert.Equal(t, "pinned", f.rec.last(t).Field)

	member, err := f.svc.CreateFaculty(ctx, f.admin, FacultyInput{Name: "Dr. Meera Rao", IsActive: true})
	require.NoError(t, err)
	inactive, err := f.svc.ToggleFacultyActive(ctx, f.admin, member.ID)
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)
	assert.False(t, f.rec.last(t).Visible)
}

func TestUnauthorizedIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBlog(ctx, nil, BlogInput{Title: "Sneaky"})
	requireKind(t, err, KindUnauthorized)
	assert.Equal(t, "Unauthorized", err.Error())

	_, err = f.svc.CreateNotice(ctx, &model.Principal{ID: "ghost", Role: "JANITOR"}, NoticeInput{Title: "Sneaky"})
	requireKind(t, err, KindUnauthorized)

	page, err := f.svc.ListBlogs(ctx, f.super, ListOptions{Scope: ScopeAdmin})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Empty(t, f.rec.all())
}

func TestContentEditorPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blog, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: "Admin Post"})
	require.NoError(t, err)
	before := len(f.rec.all())

	_, err = f.svc.CreateBlog(ctx, f.editor, BlogInput{Title: "Editor Post"})
	requireKind(t, err, KindUnauthorized)
	_, err = f.svc.UpdateBlog(ctx, f.editor, blog.ID, BlogInput{Title: "Hijacked"})
	requireKind(t, err, KindUnauthorized)
	_, err = f.svc.ToggleBlogPublish(ctx, f.editor, blog.ID)
	requireKind(t, err, KindUnauthorized)
	_, err = f.svc.CreateCourse(ctx, f.editor, CourseInput{Title: "Editor Course"})
	requireKind(t, err, KindUnauthorized)
	_, err = f.svc.CreateStartup(ctx, f.editor, StartupInput{Name: "Editor Startup"})
	requireKind(t, err, KindUnauthorized)
	assert.Len(t, f.rec.all(), before)

	got, err := f.svc.GetBlog(ctx, f.super, blog.ID)
	require.NoError(t, err)
	assert.Equal(t, "Admin Post", got.Title)

	notice, err := f.svc.CreateNotice(ctx, f.editor, NoticeInput{Title: "Editor Notice"})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteNotice(ctx, f.editor, notice.ID))
}

func TestDeleteRestrictions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	blog, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: "Keep Me"})
	require.NoError(t, err)
	course, err := f.svc.CreateCourse(ctx, f.admin, CourseInput{Title: "Drop Me"})
	require.NoError(t, err)
	event, err := f.svc.CreateEvent(ctx, f.admin, EventInput{Title: "Fest", StartsAt: testStart})
	require.NoError(t, err)

	err = f.svc.DeleteBlog(ctx, f.admin, blog.ID)
	requireKind(t, err, KindUnauthorized)
	assert.Equal(t, "Only Super Admin can delete blogs", err.Error())

	err = f.svc.DeleteEvent(ctx, f.admin, event.ID)
	assert.Equal(t, "Only Super Admin can delete events", MessageOf(err))

	err = f.svc.DeleteBlog(ctx, nil, blog.ID)
	assert.Equal(t, "Unauthorized", MessageOf(err))

	_, err = f.svc.GetBlog(ctx, f.super, blog.ID)
	require.NoError(t, err, "denied delete must not remove the row")

	require.NoError(t, f.svc.DeleteCourse(ctx, f.admin, course.ID))
	require.NoError(t, f.svc.DeleteBlog(ctx, f.super, blog.ID))

	c := f.rec.last(t)
	assert.Equal(t, "blog.deleted", c.EventName())
	assert.Nil(t, c.Record)

	_, err = f.svc.GetBlog(ctx, f.super, blog.ID)
	requireKind(t, err, KindNotFound)

	err = f.svc.DeleteBlog(ctx, f.super, blog.ID)
	requireKind(t, err, KindNotFound)
}

func TestPublicVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: "Live", IsPublished: true})
	require.NoError(t, err)
	draft, err := f.svc.CreateBlog(ctx, f.admin, BlogInput{Title: "Draft"})
	require.NoError(t, err)

	public, err := f.svc.ListBlogs(ctx, nil, ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, public.Total)

	_, err = f.svc.GetBlogBySlug(ctx, nil, draft.Slug, ScopePublic)
	requireKind(t, err, KindNotFound)

	_, err = f.svc.ListBlogs(ctx, nil, ListOptions{Scope: ScopeAdmin})
	requireKind(t, err, KindUnauthorized)

	all, err := f.svc.ListBlogs(ctx, f.editor, ListOptions{Scope: ScopeAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 2, all.Total)

	got, err := f.svc.GetBlogBySlug(ctx, f.editor, draft.Slug, ScopeAdmin)
	require.NoError(t, err)
	assert.Equal(t, draft.ID, got.ID)
}

func TestFutureNoticeVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	goLive := testStart.Add(2 * time.Hour)
	notice, err := f.svc.CreateNotice(ctx, f.editor, NoticeInput{Title: "Results Declared", IsPublished: true, PublishedAt: &goLive})
	require.NoError(t, err)
	require.NotNil(t, notice.PublishedAt)
	assert.True(t, notice.PublishedAt.Equal(goLive))
	assert.False(t, f.rec.last(t).Visible)

	public, err := f.svc.ListNotices(ctx, nil, ListOptions{})
	require.NoError(t, err)
	assert.Zero(t, public.Total)
	_, err = f.svc.GetNoticeBySlug(ctx, nil, notice.Slug, ScopePublic)
	requireKind(t, err, KindNotFound)

	admin, err := f.svc.ListNotices(ctx, f.editor, ListOptions{Scope: ScopeAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 1, admin.Total)

	before := testStart
	f.clock.Advance(3 * time.Hour)

	n, err := f.svc.PublishDueNotices(ctx, before, f.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	c := f.rec.last(t)
	assert.Equal(t, "notice.went_live", c.EventName())
	assert.Empty(t, c.ActorID)

	public, err = f.svc.ListNotices(ctx, nil, ListOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, public.Total)
	_, err = f.svc.GetNoticeBySlug(ctx, nil, notice.Slug, ScopePublic)
	require.NoError(t, err)
}

func TestConcurrentCourseCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateCourse(ctx, f.admin, CourseInput{Title: "Data Science"})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case KindOf(err) == KindConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)

	page, err := f.svc.ListCourses(ctx, f.admin, ListOptions{Scope: ScopeAdmin})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestHomeAndListUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateCourse(ctx, f.admin, CourseInput{Title: "B.Tech Computer Science", IsPublished: true})
	require.NoError(t, err)
	_, err = f.svc.CreateCourse(ctx, f.admin, CourseInput{Title: "Hidden"})
	require.NoError(t, err)

	home, err := f.svc.Home(ctx)
	require.NoError(t, err)
	require.Len(t, home, 1)
	assert.Equal(t, "b-tech-computer-science", home[0].Slug)

	users, err := f.svc.ListUsers(ctx, f.super)
	require.NoError(t, err)
	assert.Len(t, users, 3)

	_, err = f.svc.ListUsers(ctx, f.admin)
	requireKind(t, err, KindUnauthorized)
}

func TestDeletedAuthorReadsAnonymous(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, p := testutil.CreateUser(t, f.db, "Temp", model.RoleAdmin)
	blog, err := f.svc.CreateBlog(ctx, p, BlogInput{Title: "Orphan", IsPublished: true})
	require.NoError(t, err)
	require.NoError(t, store.New(f.db).DeleteUser(ctx, u.ID))

	got, err := f.svc.GetBlogBySlug(ctx, nil, blog.Slug, ScopePublic)
	require.NoError(t, err)
	assert.Equal(t, store.AnonymousAuthor, got.AuthorName)
}
