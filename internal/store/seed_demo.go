// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/institute-cms/internal/auth"
	"github.com/olegiv/institute-cms/internal/model"
	"github.com/olegiv/institute-cms/internal/util"
)

// Demo account credentials
const (
	DemoAdminEmail    = "demo@example.com"
	DemoAdminPassword = "demo1234demo"
	DemoAdminName     = "Demo Admin"

	DemoEditorEmail    = "editor@example.com"
	DemoEditorPassword = "demo1234demo"
	DemoEditorName     = "Demo Editor"
)

// SeedDemo creates demo accounts and sample content for every entity.
// It does nothing unless enabled and is safe to call repeatedly.
func SeedDemo(ctx context.Context, db *sql.DB, enabled bool) error {
	if !enabled {
		return nil
	}

	queries := New(db)

	if _, err := queries.GetUserByEmail(ctx, DemoAdminEmail); err == nil {
		slog.Info("demo content already exists, skipping")
		return nil
	} else if !IsNotFound(err) {
		return fmt.Errorf("checking demo admin: %w", err)
	}

	slog.Info("seeding demo content")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	qtx := queries.WithTx(tx)

	adminID, err := seedDemoUsers(ctx, qtx)
	if err != nil {
		return fmt.Errorf("seeding demo users: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	steps := []struct {
		name string
		fn   func(context.Context, *Queries, *string, time.Time) error
	}{
		{"courses", seedDemoCourses},
		{"blogs", seedDemoBlogs},
		{"notices", seedDemoNotices},
		{"faculty", seedDemoFaculty},
		{"events", seedDemoEvents},
		{"startups", seedDemoStartups},
	}
	for _, s := range steps {
		if err := s.fn(ctx, qtx, &adminID, now); err != nil {
			return fmt.Errorf("seeding demo %s: %w", s.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing demo content: %w", err)
	}

	slog.Info("demo content seeded",
		"admin_email", DemoAdminEmail,
		"editor_email", DemoEditorEmail,
		"password", DemoAdminPassword,
	)
	return nil
}

func seedDemoUsers(ctx context.Context, queries *Queries) (string, error) {
	accounts := []struct {
		email, password, name string
		role                  model.Role
	}{
		{DemoAdminEmail, DemoAdminPassword, DemoAdminName, model.RoleAdmin},
		{DemoEditorEmail, DemoEditorPassword, DemoEditorName, model.RoleContentEditor},
	}

	var adminID string
	for _, a := range accounts {
		hash, err := auth.HashPassword(a.password)
		if err != nil {
			return "", fmt.Errorf("hashing password for %s: %w", a.email, err)
		}
		u, err := queries.CreateUser(ctx, CreateUserParams{
			ID:           uuid.NewString(),
			Email:        a.email,
			Name:         a.name,
			Role:         string(a.role),
			PasswordHash: hash,
			CreatedAt:    time.Now(),
		})
		if err != nil {
			return "", fmt.Errorf("creating %s: %w", a.email, err)
		}
		if a.role == model.RoleAdmin {
			adminID = u.ID
		}
	}
	return adminID, nil
}

func seedDemoCourses(ctx context.Context, q *Queries, author *string, now time.Time) error {
	courses := []UpsertCourseParams{
		{
			Title:       "B.Tech Computer Science",
			Description: "Four-year undergraduate programme covering algorithms, systems and software engineering.",
			Category:    "Engineering",
			Duration:    "4 years",
			Level:       "Undergraduate",
			Fee:         "1,20,000 per year",
			Highlights:  StringList{"Industry internships", "Research labs", "Placement support"},
		},
		{
			Title:       "MBA in Innovation & Entrepreneurship",
			Description: "Two-year postgraduate programme run with the incubation centre.",
			Category:    "Management",
			Duration:    "2 years",
			Level:       "Postgraduate",
			Fee:         "2,50,000 per year",
			Highlights:  StringList{"Startup mentoring", "Live venture projects"},
		},
		{
			Title:       "Certificate in Data Analytics",
			Description: "Evening certificate course on statistics, SQL and visualisation.",
			Category:    "Professional",
			Duration:    "6 months",
			Level:       "Certificate",
			Fee:         "45,000",
			Highlights:  StringList{"Weekend labs", "Capstone project"},
		},
	}
	for i := range courses {
		c := &courses[i]
		c.ID, c.Slug, c.AuthorID, c.Now = uuid.NewString(), util.DeriveSlug(c.Title), author, now
		c.IsPublished, c.PublishedAt = true, &now
		if _, err := q.CreateCourse(ctx, *c); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoBlogs(ctx context.Context, q *Queries, author *string, now time.Time) error {
	blogs := []UpsertBlogParams{
		{
			Title:    "Welcome to the New Academic Year",
			Excerpt:  "What is new on campus this semester.",
			Content:  "## New labs\n\nThe **robotics lab** opens in August.\n\n- Extended library hours\n- New hostel block",
			Category: "Campus",
		},
		{
			Title:    "Alumni Spotlight: From Classroom to Founder",
			Excerpt:  "How one graduate turned a final-year project into a company.",
			Content:  "Our incubation centre helped *three* alumni teams raise seed funding this year.",
			Category: "Alumni",
		},
	}
	for i := range blogs {
		b := &blogs[i]
		b.ID, b.Slug, b.AuthorID, b.Now = uuid.NewString(), util.DeriveSlug(b.Title), author, now
		b.IsPublished, b.PublishedAt = true, &now
		if _, err := q.CreateBlog(ctx, *b); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoNotices(ctx context.Context, q *Queries, author *string, now time.Time) error {
	later := now.Add(72 * time.Hour)
	notices := []UpsertNoticeParams{
		{Title: "Mid-Semester Examination Schedule", Content: "The timetable is attached.", Category: "Examinations", IsPinned: true, PublishedAt: &now},
		{Title: "Library Closed on Friday", Content: "The central library will be closed for maintenance.", Category: "General", PublishedAt: &now},
		{Title: "Scholarship Applications Open", Content: "Applications open on the date shown.", Category: "Admissions", PublishedAt: &later},
	}
	for i := range notices {
		n := &notices[i]
		n.ID, n.Slug, n.AuthorID, n.Now = uuid.NewString(), util.DeriveSlug(n.Title), author, now
		n.IsPublished = true
		if _, err := q.CreateNotice(ctx, *n); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoFaculty(ctx context.Context, q *Queries, author *string, now time.Time) error {
	members := []UpsertFacultyParams{
		{Name: "Dr. Anita Rao", Designation: "Professor & Head", Department: "Computer Science", Email: "anita.rao@example.edu", Qualifications: StringList{"Ph.D. (IISc)", "M.Tech"}, DisplayOrder: 1},
		{Name: "Prof. Vikram Mehta", Designation: "Associate Professor", Department: "Management", Email: "vikram.mehta@example.edu", Qualifications: StringList{"MBA", "CFA"}, DisplayOrder: 2},
		{Name: "Dr. Sara Thomas", Designation: "Assistant Professor", Department: "Computer Science", Email: "sara.thomas@example.edu", Qualifications: StringList{"Ph.D."}, DisplayOrder: 3},
	}
	for i := range members {
		m := &members[i]
		m.ID, m.Slug, m.AuthorID, m.Now = uuid.NewString(), util.DeriveSlug(m.Name), author, now
		m.IsActive = true
		if _, err := q.CreateFaculty(ctx, *m); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoEvents(ctx context.Context, q *Queries, author *string, now time.Time) error {
	festEnd := now.Add(17 * 24 * time.Hour)
	events := []UpsertEventParams{
		{Title: "Annual Tech Fest", Description: "Three days of hackathons, talks and robotics.", Category: "Festival", Location: "Main Auditorium", StartsAt: now.Add(14 * 24 * time.Hour), EndsAt: &festEnd},
		{Title: "Startup Pitch Day", Description: "Incubated teams pitch to investors.", Category: "Incubation", Location: "Innovation Centre", StartsAt: now.Add(30 * 24 * time.Hour)},
	}
	for i := range events {
		e := &events[i]
		e.ID, e.Slug, e.AuthorID, e.Now = uuid.NewString(), util.DeriveSlug(e.Title), author, now
		e.IsPublished, e.PublishedAt = true, &now
		if _, err := q.CreateEvent(ctx, *e); err != nil {
			return err
		}
	}
	return nil
}

func seedDemoStartups(ctx context.Context, q *Queries, author *string, now time.Time) error {
	startups := []UpsertStartupParams{
		{Name: "AgroSense", Tagline: "Soil sensors for small farms", Industry: "AgriTech", Stage: "Seed", Founders: StringList{"Ravi Kumar", "Meera Iyer"}, FoundedYear: 2023},
		{Name: "LearnLoop", Tagline: "Peer tutoring marketplace", Industry: "EdTech", Stage: "Pre-seed", Founders: StringList{"Arjun Das"}, FoundedYear: 2024},
	}
	for i := range startups {
		s := &startups[i]
		s.ID, s.Slug, s.AuthorID, s.Now = uuid.NewString(), util.DeriveSlug(s.Name), author, now
		s.IsActive = true
		if _, err := q.CreateStartup(ctx, *s); err != nil {
			return err
		}
	}
	return nil
}
