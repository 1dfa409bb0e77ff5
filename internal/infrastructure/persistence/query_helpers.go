package persistence

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likePattern builds a case-insensitive LIKE pattern, escaping wildcards in
// the keyword. Use with "LOWER(col) LIKE ? ESCAPE '\'".
func likePattern(keyword string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(strings.TrimSpace(keyword))) + "%"
}

// translateNotFound maps gorm.ErrRecordNotFound to shared.ErrNotFound
func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

// isDuplicateKey reports a unique constraint violation. The database is
// opened with TranslateError so both postgres and sqlite map to
// gorm.ErrDuplicatedKey.
func isDuplicateKey(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// saveVersioned writes every column of the aggregate's row, leaving
// associations alone, provided the row still carries the version the
// aggregate was loaded at. build is called after the version moves on so
// the model carries the new one. A row changed since it was read yields
// shared.ErrConcurrencyConflict; a missing row yields shared.ErrNotFound.
func saveVersioned(db *gorm.DB, root *shared.BaseAggregateRoot, build func() any) error {
	stored := root.StoredVersion()
	root.NextVersion()
	model := build()

	result := db.Model(model).
		Where("version = ?", stored).
		Select("*").
		Omit(clause.Associations).
		Updates(model)
	if result.Error != nil {
		if isDuplicateKey(result.Error) {
			return shared.ErrAlreadyExists
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		found, err := exists(db.Session(&gorm.Session{NewDB: true}).
			Model(model).
			Where("id = ?", root.ID))
		switch {
		case err != nil:
			return err
		case found:
			return shared.ErrConcurrencyConflict
		}
		return shared.ErrNotFound
	}
	root.MarkStored()
	return nil
}

// exists reports whether q matches any row
func exists(q *gorm.DB) (bool, error) {
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// insert creates model. A unique violation yields shared.ErrAlreadyExists.
func insert(db *gorm.DB, model any) error {
	err := db.Create(model).Error
	if isDuplicateKey(err) {
		return shared.ErrAlreadyExists
	}
	return err
}

// deleteByID removes one row of model's table. A missing row yields
// shared.ErrNotFound.
func deleteByID(db *gorm.DB, model any, id uuid.UUID) error {
	result := db.Delete(model, "id = ?", id)
	switch {
	case result.Error != nil:
		return result.Error
	case result.RowsAffected == 0:
		return shared.ErrNotFound
	}
	return nil
}

// first loads the first row matched by q and converts it
func first[M, D any](q *gorm.DB, toDomain func(*M) D) (D, error) {
	var row M
	if err := q.First(&row).Error; err != nil {
		var zero D
		return zero, translateNotFound(err)
	}
	return toDomain(&row), nil
}

func convertAll[M, D any](rows []M, toDomain func(*M) D) []D {
	out := make([]D, len(rows))
	for i := range rows {
		out[i] = toDomain(&rows[i])
	}
	return out
}
