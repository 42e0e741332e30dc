package repository

import (
	"context"

	"github.com/saeid-a/VolunteerHub/internal/models"
)

type CreateProjectInput struct {
	OwnerID int64
	Title   string
	Type    models.ProjectType
}

type ProjectRepository struct {
	db DBTX
}

func NewProjectRepository(db DBTX) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Create(ctx context.Context, input CreateProjectInput) (*models.ProjectRow, error) {
	query := `
		INSERT INTO projects (owner_id, title, project_type)
		VALUES ($1, $2, $3)
		RETURNING id, owner_id, title, project_type, created_at
	`

	var project models.ProjectRow
	err := r.db.QueryRow(ctx, query, input.OwnerID, input.Title, input.Type).Scan(
		&project.ID,
		&project.OwnerID,
		&project.Title,
		&project.Type,
		&project.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, projectID int64) (*models.ProjectRow, error) {
	query := `
		SELECT id, owner_id, title, project_type, created_at
		FROM projects
		WHERE id = $1
	`

	var project models.ProjectRow
	err := r.db.QueryRow(ctx, query, projectID).Scan(
		&project.ID,
		&project.OwnerID,
		&project.Title,
		&project.Type,
		&project.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) ListByIDs(ctx context.Context, projectIDs []int64) (map[int64]models.ProjectRow, error) {
	projects := make(map[int64]models.ProjectRow, len(projectIDs))
	if len(projectIDs) == 0 {
		return projects, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, owner_id, title, project_type, created_at
		FROM projects
		WHERE id = ANY($1)
	`, projectIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var project models.ProjectRow
		if err := rows.Scan(
			&project.ID,
			&project.OwnerID,
			&project.Title,
			&project.Type,
			&project.CreatedAt,
		); err != nil {
			return nil, err
		}
		projects[project.ID] = project
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return projects, nil
}
