package postgres

import (
	"context"
	"errors"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/frontandrew/parking/internal/repository"
	"github.com/jackc/pgx/v5"
)

const sectionsNameKey = "sections_name_key"

type sectionRepository struct {
	db DBTX
}

func NewSectionRepository(db DBTX) repository.SectionRepository {
	return &sectionRepository{db: db}
}

func (r *sectionRepository) Create(ctx context.Context, section *domain.Section) error {
	query := `
		INSERT INTO sections (name, capacity)
		VALUES ($1, $2)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, section.Name, section.Capacity).Scan(&section.ID)
	if err != nil {
		if isUniqueViolation(err, sectionsNameKey) {
			return domain.ErrSectionAlreadyExists
		}
		return mapError(err)
	}

	return nil
}

func (r *sectionRepository) GetByID(ctx context.Context, id int64) (*domain.Section, error) {
	query := `
		SELECT id, name, capacity
		FROM sections
		WHERE id = $1
	`

	return r.getOne(ctx, query, id)
}

func (r *sectionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Section, error) {
	query := `
		SELECT id, name, capacity
		FROM sections
		WHERE id = $1
		FOR UPDATE
	`

	return r.getOne(ctx, query, id)
}

func (r *sectionRepository) getOne(ctx context.Context, query string, id int64) (*domain.Section, error) {
	section := &domain.Section{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&section.ID,
		&section.Name,
		&section.Capacity,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSectionNotFound
		}
		return nil, mapError(err)
	}

	return section, nil
}

func (r *sectionRepository) Update(ctx context.Context, section *domain.Section) error {
	query := `
		UPDATE sections
		SET name = $2, capacity = $3
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query, section.ID, section.Name, section.Capacity)
	if err != nil {
		if isUniqueViolation(err, sectionsNameKey) {
			return domain.ErrSectionAlreadyExists
		}
		return mapError(err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrSectionNotFound
	}

	return nil
}

func (r *sectionRepository) List(ctx context.Context) ([]*domain.Section, error) {
	query := `
		SELECT id, name, capacity
		FROM sections
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return scanSections(rows)
}

func (r *sectionRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Section, error) {
	query := `
		SELECT id, name, capacity
		FROM sections
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	return scanSections(rows)
}

func scanSections(rows pgx.Rows) ([]*domain.Section, error) {
	sections := []*domain.Section{}
	for rows.Next() {
		section := &domain.Section{}
		if err := rows.Scan(&section.ID, &section.Name, &section.Capacity); err != nil {
			return nil, err
		}
		sections = append(sections, section)
	}

	return sections, mapError(rows.Err())
}
