package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Код ошибки PostgreSQL unique_violation.
const uniqueViolation = "23505"

// Psql возвращает построитель запросов с плейсхолдерами $N.
func Psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern строит шаблон LIKE/ILIKE для поиска подстроки.
// Символы % и _ из пользовательского ввода ищутся буквально.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// GetByID - универсальная функция для получения сущности по ID.
// Работает как с *sqlx.DB, так и с *sqlx.Tx.
func GetByID[T any](ctx context.Context, q sqlx.QueryerContext, table string, id any, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table)

	if err := sqlx.GetContext(ctx, q, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("get by id from %s: %w", table, err)
	}

	return &entity, nil
}

// GetGuarded выполняет UPDATE ... RETURNING с условием на текущее состояние.
// Если ни одна строка не подошла под условие, возвращается conflictErr.
func GetGuarded[T any](ctx context.Context, q sqlx.QueryerContext, conflictErr error, query string, args ...any) (*T, error) {
	var entity T
	if err := sqlx.GetContext(ctx, q, &entity, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, conflictErr
		}
		return nil, err
	}
	return &entity, nil
}

// SelectBuilder выполняет запрос squirrel и сканирует результат в dest.
func SelectBuilder(ctx context.Context, q sqlx.QueryerContext, dest any, b sq.SelectBuilder) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, q, dest, query, args...)
}

// CountBuilder выполняет COUNT(*) по запросу squirrel.
func CountBuilder(ctx context.Context, q sqlx.QueryerContext, b sq.SelectBuilder) (int, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := sqlx.GetContext(ctx, q, &total, query, args...); err != nil {
		return 0, err
	}
	return total, nil
}

// IsUniqueViolation сообщает, нарушено ли ограничение уникальности.
// Если constraint не пуст, сравнивается и имя ограничения или индекса.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Page нормализует limit/offset.
func Page(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
