package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/manupedia/manupedia-backend/internal/domain/model"
)

// manuscriptColumns — список столбцов для SELECT-запросов по манускриптам.
// JOIN с users даёт отображаемое имя владельца.
// DRY: одно место для всех SELECT'ов.
const manuscriptColumns = `m.id, m.title, m.author, m.date_created, m.origin_location,
	m.language, m.material, m.dimensions, m.condition, m.description, m.content,
	m.image_filename, m.uploaded_by, u.name, m.status, m.featured,
	m.upload_date, m.last_modified`

const manuscriptFrom = `FROM manuscripts m JOIN users u ON u.id = m.uploaded_by`

// SearchParams — параметры поиска манускриптов.
// Все фильтры — указатели, nil = фильтр не применяется.
// Фильтры объединяются логическим AND.
type SearchParams struct {
	// Title — подстрока названия (case-insensitive, ILIKE)
	Title *string
	// Author — подстрока автора (case-insensitive, ILIKE)
	Author *string
	// Language — подстрока языка (case-insensitive, ILIKE)
	Language *string
	// Condition — точное совпадение состояния (case-SENSITIVE, строже
	// текстовых фильтров — это намеренная асимметрия)
	Condition *string
	// Limit — количество результатов
	Limit int
	// Offset — смещение
	Offset int
}

// AdminListParams — параметры admin-списка манускриптов.
type AdminListParams struct {
	// Status — фильтр по статусу модерации (nil = все статусы)
	Status *string
	// Limit — количество результатов
	Limit int
	// Offset — смещение
	Offset int
}

// ManuscriptRepository — интерфейс доступа к таблице manuscripts.
type ManuscriptRepository interface {
	// Create вставляет новую запись. Заполняет ID, UploadDate, LastModified.
	Create(ctx context.Context, m *model.Manuscript) error
	// GetByID возвращает манускрипт по id или ErrNotFound.
	GetByID(ctx context.Context, id int64) (*model.Manuscript, error)
	// Update полностью перезаписывает изменяемые поля записи
	// и обновляет last_modified. Возвращает ErrNotFound, если записи нет.
	Update(ctx context.Context, m *model.Manuscript) error
	// UpdateStatus перезаписывает статус модерации и обновляет last_modified.
	UpdateStatus(ctx context.Context, id int64, status string) error
	// ToggleFeatured переключает флаг featured. Других побочных эффектов нет.
	// Возвращает новое значение флага.
	ToggleFeatured(ctx context.Context, id int64) (bool, error)
	// Delete удаляет запись. Возвращает ErrNotFound, если записи нет.
	Delete(ctx context.Context, id int64) error
	// ListByOwner возвращает все манускрипты владельца (без пагинации),
	// новые — первыми.
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Manuscript, error)
	// Search выполняет поиск с фильтрами и пагинацией.
	// Без фильтров возвращает все записи, новые (по upload_date) — первыми.
	// Возвращает: страница результатов, общее количество, ошибка.
	Search(ctx context.Context, params SearchParams) ([]*model.Manuscript, int, error)
	// ListAdmin возвращает все записи любых владельцев с опциональным
	// фильтром по статусу, сортировка по last_modified DESC.
	ListAdmin(ctx context.Context, params AdminListParams) ([]*model.Manuscript, int, error)
	// Recent возвращает последние загруженные манускрипты.
	Recent(ctx context.Context, limit int) ([]*model.Manuscript, error)
	// Featured возвращает последний манускрипт с флагом featured
	// или ErrNotFound, если таких нет.
	Featured(ctx context.Context) (*model.Manuscript, error)
	// CountAll возвращает общее количество манускриптов.
	CountAll(ctx context.Context) (int, error)
	// CountModifiedAfter возвращает количество записей, изменённых после t.
	CountModifiedAfter(ctx context.Context, t time.Time) (int, error)
	// CountContributors возвращает количество уникальных владельцев.
	CountContributors(ctx context.Context) (int, error)
}

// manuscriptRepo — реализация ManuscriptRepository через pgx.
type manuscriptRepo struct {
	db DBTX
}

// NewManuscriptRepository создаёт репозиторий манускриптов.
func NewManuscriptRepository(db DBTX) ManuscriptRepository {
	return &manuscriptRepo{db: db}
}

func (r *manuscriptRepo) Create(ctx context.Context, m *model.Manuscript) error {
	query := `
		INSERT INTO manuscripts (title, author, date_created, origin_location,
			language, material, dimensions, condition, description, content,
			image_filename, uploaded_by, status, featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, upload_date, last_modified`

	err := r.db.QueryRow(ctx, query,
		m.Title, m.Author, m.DateCreated, m.OriginLocation,
		m.Language, m.Material, m.Dimensions, m.Condition, m.Description, m.Content,
		m.ImageFilename, m.UploadedBy, m.Status, m.Featured,
	).Scan(&m.ID, &m.UploadDate, &m.LastModified)
	if err != nil {
		return fmt.Errorf("ошибка создания манускрипта: %w", err)
	}
	return nil
}

func (r *manuscriptRepo) GetByID(ctx context.Context, id int64) (*model.Manuscript, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE m.id = $1`, manuscriptColumns, manuscriptFrom)

	m := &model.Manuscript{}
	err := scanManuscript(r.db.QueryRow(ctx, query, id), m)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения манускрипта: %w", err)
	}
	return m, nil
}

// Update полностью перезаписывает изменяемые поля (без partial-merge):
// каждое обращение заменяет весь набор контентных полей и image_filename.
// uploaded_by, status, featured и upload_date не изменяются.
func (r *manuscriptRepo) Update(ctx context.Context, m *model.Manuscript) error {
	query := `
		UPDATE manuscripts
		SET title = $2, author = $3, date_created = $4, origin_location = $5,
			language = $6, material = $7, dimensions = $8, condition = $9,
			description = $10, content = $11, image_filename = $12,
			last_modified = now()
		WHERE id = $1
		RETURNING last_modified`

	err := r.db.QueryRow(ctx, query,
		m.ID, m.Title, m.Author, m.DateCreated, m.OriginLocation,
		m.Language, m.Material, m.Dimensions, m.Condition,
		m.Description, m.Content, m.ImageFilename,
	).Scan(&m.LastModified)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("ошибка обновления манускрипта: %w", err)
	}
	return nil
}

func (r *manuscriptRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	query := `
		UPDATE manuscripts
		SET status = $2, last_modified = now()
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("ошибка обновления статуса: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *manuscriptRepo) ToggleFeatured(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE manuscripts
		SET featured = NOT featured
		WHERE id = $1
		RETURNING featured`

	var featured bool
	err := r.db.QueryRow(ctx, query, id).Scan(&featured)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("ошибка переключения featured: %w", err)
	}
	return featured, nil
}

func (r *manuscriptRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM manuscripts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления манускрипта: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *manuscriptRepo) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Manuscript, error) {
	query := fmt.Sprintf(
		`SELECT %s %s WHERE m.uploaded_by = $1 ORDER BY m.upload_date DESC`,
		manuscriptColumns, manuscriptFrom,
	)

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки манускриптов владельца: %w", err)
	}
	defer rows.Close()

	return collectManuscripts(rows)
}

// Search выполняет поиск с динамическими фильтрами и пагинацией.
// Возвращает (результаты, общее количество, ошибка).
func (r *manuscriptRepo) Search(ctx context.Context, params SearchParams) ([]*model.Manuscript, int, error) {
	where, args := buildSearchWhere(params, 1)
	argNum := len(args) + 1

	// Запрос данных с пагинацией, новые — первыми
	dataQuery := fmt.Sprintf(
		`SELECT %s %s %s ORDER BY m.upload_date DESC LIMIT $%d OFFSET $%d`,
		manuscriptColumns, manuscriptFrom, where, argNum, argNum+1,
	)
	dataArgs := append(args, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка поиска манускриптов: %w", err)
	}
	defer rows.Close()

	result, err := collectManuscripts(rows)
	if err != nil {
		return nil, 0, err
	}

	// Запрос общего количества (с теми же фильтрами, без LIMIT/OFFSET)
	countWhere, countArgs := buildSearchWhere(params, 1)
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM manuscripts m %s`, countWhere)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта манускриптов: %w", err)
	}

	return result, total, nil
}

// ListAdmin возвращает записи всех владельцев, сортировка по last_modified DESC.
func (r *manuscriptRepo) ListAdmin(ctx context.Context, params AdminListParams) ([]*model.Manuscript, int, error) {
	where := ""
	args := []any{}
	if params.Status != nil && *params.Status != "" {
		where = "WHERE m.status = $1"
		args = append(args, *params.Status)
	}
	argNum := len(args) + 1

	dataQuery := fmt.Sprintf(
		`SELECT %s %s %s ORDER BY m.last_modified DESC LIMIT $%d OFFSET $%d`,
		manuscriptColumns, manuscriptFrom, where, argNum, argNum+1,
	)
	dataArgs := append(args, params.Limit, params.Offset)

	rows, err := r.db.Query(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка admin-выборки манускриптов: %w", err)
	}
	defer rows.Close()

	result, err := collectManuscripts(rows)
	if err != nil {
		return nil, 0, err
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM manuscripts m %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта манускриптов: %w", err)
	}

	return result, total, nil
}

func (r *manuscriptRepo) Recent(ctx context.Context, limit int) ([]*model.Manuscript, error) {
	query := fmt.Sprintf(
		`SELECT %s %s ORDER BY m.upload_date DESC LIMIT $1`,
		manuscriptColumns, manuscriptFrom,
	)

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки последних манускриптов: %w", err)
	}
	defer rows.Close()

	return collectManuscripts(rows)
}

func (r *manuscriptRepo) Featured(ctx context.Context) (*model.Manuscript, error) {
	query := fmt.Sprintf(
		`SELECT %s %s WHERE m.featured ORDER BY m.upload_date DESC LIMIT 1`,
		manuscriptColumns, manuscriptFrom,
	)

	m := &model.Manuscript{}
	err := scanManuscript(r.db.QueryRow(ctx, query), m)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения featured манускрипта: %w", err)
	}
	return m, nil
}

func (r *manuscriptRepo) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM manuscripts`).Scan(&total); err != nil {
		return 0, fmt.Errorf("ошибка подсчёта манускриптов: %w", err)
	}
	return total, nil
}

func (r *manuscriptRepo) CountModifiedAfter(ctx context.Context, t time.Time) (int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM manuscripts WHERE last_modified > $1`, t,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта изменённых манускриптов: %w", err)
	}
	return total, nil
}

func (r *manuscriptRepo) CountContributors(ctx context.Context) (int, error) {
	var total int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(DISTINCT uploaded_by) FROM manuscripts`,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта контрибьюторов: %w", err)
	}
	return total, nil
}

// buildSearchWhere строит WHERE-условие и аргументы для поиска манускриптов.
// startArg — номер первого $-параметра (для корректной нумерации).
func buildSearchWhere(params SearchParams, startArg int) (whereClause string, args []any) {
	var conditions []string
	argNum := startArg

	// Текстовые фильтры — ILIKE подстрока (case-insensitive)
	if params.Title != nil && *params.Title != "" {
		conditions = append(conditions, fmt.Sprintf("m.title ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(*params.Title)+"%")
		argNum++
	}
	if params.Author != nil && *params.Author != "" {
		conditions = append(conditions, fmt.Sprintf("m.author ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(*params.Author)+"%")
		argNum++
	}
	if params.Language != nil && *params.Language != "" {
		conditions = append(conditions, fmt.Sprintf("m.language ILIKE $%d", argNum))
		args = append(args, "%"+escapeLike(*params.Language)+"%")
		argNum++
	}

	// condition — точное совпадение с учётом регистра.
	// Намеренно строже текстовых фильтров, "Good" != "good".
	if params.Condition != nil && *params.Condition != "" {
		conditions = append(conditions, fmt.Sprintf("m.condition = $%d", argNum))
		args = append(args, *params.Condition)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args
}

// escapeLike экранирует спецсимволы LIKE-шаблона в пользовательском вводе.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// scanManuscript сканирует одну строку результата в модель.
func scanManuscript(row pgx.Row, m *model.Manuscript) error {
	return row.Scan(
		&m.ID, &m.Title, &m.Author, &m.DateCreated, &m.OriginLocation,
		&m.Language, &m.Material, &m.Dimensions, &m.Condition, &m.Description, &m.Content,
		&m.ImageFilename, &m.UploadedBy, &m.UploadedByName, &m.Status, &m.Featured,
		&m.UploadDate, &m.LastModified,
	)
}

// collectManuscripts сканирует все строки результата.
func collectManuscripts(rows pgx.Rows) ([]*model.Manuscript, error) {
	var result []*model.Manuscript
	for rows.Next() {
		m := &model.Manuscript{}
		if err := scanManuscript(rows, m); err != nil {
			return nil, fmt.Errorf("ошибка сканирования манускрипта: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}
