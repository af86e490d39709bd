package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tutorlane/scheduling-api/internal/models"
)

// TutorRepository reads the tutor directory. The directory is written by a
// separate service; scheduling only lists and resolves tutors.
type TutorRepository struct {
	db *sqlx.DB
}

// NewTutorRepository constructs a TutorRepository.
func NewTutorRepository(db *sqlx.DB) *TutorRepository {
	return &TutorRepository{db: db}
}

// List returns tutors matching filters along with total count.
func (r *TutorRepository) List(ctx context.Context, filter models.TutorFilter) ([]models.Tutor, int, error) {
	base := "FROM tutors WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("id IN (SELECT tutor_id FROM tutor_subjects WHERE subject_id = $%d)", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Search != "" {
		search := "%" + strings.ToLower(filter.Search) + "%"
		conditions = append(conditions, fmt.Sprintf("(LOWER(full_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, search)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	allowedSorts := map[string]string{
		"full_name":  "full_name",
		"email":      "email",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "created_at"
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, email, full_name, headline, active, created_at, updated_at %s ORDER BY %s %s LIMIT %d OFFSET %d", base, column, order, size, offset)
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list tutors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count tutors: %w", err)
	}

	return tutors, total, nil
}

// FindByID fetches a tutor by ID.
func (r *TutorRepository) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	const query = `SELECT id, email, full_name, headline, active, created_at, updated_at FROM tutors WHERE id = $1`
	var tutor models.Tutor
	if err := r.db.GetContext(ctx, &tutor, query, id); err != nil {
		return nil, err
	}
	return &tutor, nil
}

// ListActiveBySubject resolves the active tutors qualified to teach a subject.
func (r *TutorRepository) ListActiveBySubject(ctx context.Context, subjectID string) ([]models.Tutor, error) {
	const query = `SELECT t.id, t.email, t.full_name, t.headline, t.active, t.created_at, t.updated_at
		FROM tutors t
		JOIN tutor_subjects ts ON ts.tutor_id = t.id
		WHERE ts.subject_id = $1 AND t.active = TRUE
		ORDER BY t.full_name ASC`
	var tutors []models.Tutor
	if err := r.db.SelectContext(ctx, &tutors, query, subjectID); err != nil {
		return nil, fmt.Errorf("list tutors for subject %s: %w", subjectID, err)
	}
	return tutors, nil
}
