package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/vibelist/internal/models"
	"github.com/desertthunder/vibelist/internal/shared"
)

// TemplateRepository stores [models.MoodTemplate] records.
type TemplateRepository struct {
	db *sql.DB
}

// NewTemplateRepository creates a new [TemplateRepository] with the given database connection
func NewTemplateRepository(db *sql.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

const templateColumns = `id, name, description, parameters, active, sort_order, created_at, updated_at`

// Create inserts a template with a generated ID.
func (r *TemplateRepository) Create(ctx context.Context, tmpl *models.MoodTemplate) error {
	if err := tmpl.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	params, err := json.Marshal(tmpl.Parameters())
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	id := shared.GenerateID()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO mood_templates (id, name, description, parameters, active, sort_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, tmpl.Name(), nullString(tmpl.Description()), string(params), tmpl.Active(), tmpl.SortOrder(),
		tmpl.CreatedAt().UTC(), tmpl.UpdatedAt().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}

	tmpl.SetID(id)
	return nil
}

// Get retrieves a template by ID.
func (r *TemplateRepository) Get(ctx context.Context, id string) (*models.MoodTemplate, error) {
	tmpl, err := scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM mood_templates WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("template", id, err)
	}
	return tmpl, nil
}

// GetByName retrieves an active template by name.
func (r *TemplateRepository) GetByName(ctx context.Context, name string) (*models.MoodTemplate, error) {
	tmpl, err := scanTemplate(r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM mood_templates WHERE name = ? AND active = 1`, name))
	if err != nil {
		return nil, notFound("template", name, err)
	}
	return tmpl, nil
}

// List returns templates ordered by sort order. Criteria: "all" (bool) includes inactive templates.
func (r *TemplateRepository) List(ctx context.Context, criteria map[string]any) ([]*models.MoodTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM mood_templates`
	if all, _ := criteria["all"].(bool); !all {
		query += " WHERE active = 1"
	}
	query += " ORDER BY sort_order ASC, name ASC"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []*models.MoodTemplate
	for rows.Next() {
		tmpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return templates, nil
}

// Delete deactivates a template. Inactive templates stay visible with "all".
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE mood_templates SET active = 0, updated_at = ? WHERE id = ? AND active = 1`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate template: %w", err)
	}
	return expectOne(result, "template", id)
}

func scanTemplate(s scanner) (*models.MoodTemplate, error) {
	var (
		id, name, params     string
		description          sql.NullString
		active               bool
		sortOrder            int
		createdAt, updatedAt time.Time
	)
	if err := s.Scan(&id, &name, &description, &params, &active, &sortOrder, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var p models.MusicParameters
	if err := json.Unmarshal([]byte(params), &p); err != nil {
		return nil, fmt.Errorf("failed to decode parameters: %w", err)
	}

	tmpl := models.NewMoodTemplate(name, description.String, p, sortOrder)
	tmpl.SetID(id)
	tmpl.SetActive(active)
	tmpl.SetCreatedAt(createdAt)
	tmpl.SetUpdatedAt(updatedAt)
	return tmpl, nil
}
