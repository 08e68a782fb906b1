package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Course is a one-time purchasable product
type Course struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Price       float64   `json:"price"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CourseInput holds the editable course fields
type CourseInput struct {
	Title       string
	Description string
	ImageURL    *string
	Price       float64
	IsActive    bool
}

var courseColumns = []string{"id", "title", "description", "image_url", "price", "is_active", "created_at"}

func scanCourse(sc scanner) (*Course, error) {
	var (
		c        Course
		imageURL sql.NullString
	)
	if err := sc.Scan(&c.ID, &c.Title, &c.Description, &imageURL, &c.Price, &c.IsActive, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ImageURL = nullString(imageURL)
	return &c, nil
}

// ListCourses returns courses newest first, optionally only active ones
func (s *Store) ListCourses(ctx context.Context, activeOnly bool) ([]*Course, error) {
	q := s.builder().Select(courseColumns...).From(entsql.Table(tableCourses))
	if activeOnly {
		q.Where(entsql.EQ("is_active", true))
	}
	q.OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))

	list, err := queryAll(ctx, s, q, scanCourse)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	return list, nil
}

// GetCourse returns a course by id
func (s *Store) GetCourse(ctx context.Context, id int) (*Course, error) {
	q := s.builder().Select(courseColumns...).From(entsql.Table(tableCourses)).
		Where(entsql.EQ("id", id))
	return one(s.queryRow(ctx, q), scanCourse)
}

// CreateCourse inserts a course
func (s *Store) CreateCourse(ctx context.Context, in CourseInput) (*Course, error) {
	id, err := s.insert(ctx, s.builder().Insert(tableCourses).
		Columns("title", "description", "image_url", "price", "is_active", "created_at").
		Values(in.Title, in.Description, nullable(in.ImageURL), in.Price, in.IsActive, s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}
	return s.GetCourse(ctx, id)
}

// UpdateCourse replaces the editable fields of a course
func (s *Store) UpdateCourse(ctx context.Context, id int, in CourseInput) (*Course, error) {
	n, err := s.exec(ctx, s.builder().Update(tableCourses).
		Set("title", in.Title).
		Set("description", in.Description).
		Set("image_url", nullable(in.ImageURL)).
		Set("price", in.Price).
		Set("is_active", in.IsActive).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetCourse(ctx, id)
}

// DeleteCourse removes a course. Courses with orders are deactivated instead
// so purchase history stays intact.
func (s *Store) DeleteCourse(ctx context.Context, id int) error {
	n, err := s.exec(ctx, s.builder().Delete(tableCourses).Where(entsql.EQ("id", id)))
	if err != nil {
		if !isForeignKeyViolation(err) {
			return fmt.Errorf("failed to delete course: %w", err)
		}
		n, err = s.exec(ctx, s.builder().Update(tableCourses).
			Set("is_active", false).
			Where(entsql.EQ("id", id)))
		if err != nil {
			return fmt.Errorf("failed to deactivate course: %w", err)
		}
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
