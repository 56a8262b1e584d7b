// manuscript.go — сервис работы с манускриптами.
// Координирует repository, image store, LRU cache и Prometheus-метрики.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/manupedia/manupedia-backend/internal/domain/model"
	"github.com/manupedia/manupedia-backend/internal/repository"
	"github.com/manupedia/manupedia-backend/internal/storage/imagestore"
)

// Prometheus-метрики манускриптов.
var (
	manuscriptsUploadedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_manuscripts_uploaded_total",
		Help: "Общее количество загруженных манускриптов.",
	})
	searchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_search_total",
		Help: "Общее количество поисковых запросов.",
	})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mp_search_duration_seconds",
		Help:    "Длительность поисковых запросов.",
		Buckets: prometheus.DefBuckets,
	})
	imageDeleteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mp_image_delete_failures_total",
		Help: "Количество неудачных удалений файлов изображений (best-effort).",
	})
)

// Максимальная длина описания манускрипта.
const maxDescriptionLen = 2000

// Окно для подсчёта недавних обновлений в статистике.
const recentUpdatesWindow = 30 * 24 * time.Hour

// ImageStore — хранилище файлов изображений.
// Реализуется пакетом imagestore, в тестах — mock.
type ImageStore interface {
	Save(reader io.Reader, originalFilename string) (*imagestore.SaveResult, error)
	Read(storageName string) ([]byte, error)
	Delete(storageName string) error
}

// ManuscriptInput — изменяемые поля манускрипта от пользователя.
// Используется и при создании, и при обновлении: обновление
// полностью перезаписывает все поля без частичного слияния.
type ManuscriptInput struct {
	Title          string
	Author         string
	DateCreated    string
	OriginLocation string
	Language       string
	Material       string
	Dimensions     string
	Condition      string
	Description    string
	Content        string
}

// ImageUpload — загружаемое изображение манускрипта.
type ImageUpload struct {
	// Reader — поток данных файла
	Reader io.Reader
	// Filename — оригинальное имя файла
	Filename string
	// ContentType — MIME-тип из multipart part
	ContentType string
}

// SearchResult — результат поиска с пагинацией.
type SearchResult struct {
	// Items — найденные манускрипты
	Items []*model.Manuscript
	// Total — общее количество совпадений
	Total int
	// Limit — запрошенный лимит
	Limit int
	// Offset — текущее смещение
	Offset int
	// HasMore — есть ли ещё результаты
	HasMore bool
}

// Statistics — сводная статистика коллекции.
type Statistics struct {
	// TotalManuscripts — общее количество манускриптов
	TotalManuscripts int
	// RecentUpdates — количество записей, изменённых за последние 30 дней
	RecentUpdates int
	// Contributors — количество уникальных пользователей с загрузками
	Contributors int
}

// ManuscriptService — сервис работы с манускриптами:
// создание, чтение, обновление, удаление, поиск, изображения.
type ManuscriptService struct {
	manuscripts repository.ManuscriptRepository
	images      ImageStore
	cache       *CacheService
	logger      *slog.Logger
}

// NewManuscriptService создаёт сервис манускриптов.
func NewManuscriptService(
	manuscripts repository.ManuscriptRepository,
	images ImageStore,
	cache *CacheService,
	logger *slog.Logger,
) *ManuscriptService {
	return &ManuscriptService{
		manuscripts: manuscripts,
		images:      images,
		cache:       cache,
		logger:      logger.With(slog.String("component", "manuscript_service")),
	}
}

// validateInput проверяет обязательные поля и ограничения.
func validateInput(input ManuscriptInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return fmt.Errorf("%w: название обязательно", ErrValidation)
	}
	if len([]rune(input.Description)) > maxDescriptionLen {
		return fmt.Errorf("%w: описание длиннее %d символов", ErrValidation, maxDescriptionLen)
	}
	return nil
}

// saveImage проверяет MIME-тип и содержимое, сохраняет изображение на диск.
// Возвращает имя файла в хранилище.
func (s *ManuscriptService) saveImage(image *ImageUpload) (string, error) {
	if !strings.HasPrefix(image.ContentType, "image/") {
		return "", fmt.Errorf("%w: файл %q не является изображением (%s)",
			ErrValidation, image.Filename, image.ContentType)
	}

	// Пустой файл отклоняется до записи: нулевой blob в хранилище
	// не нужен ни записи, ни выдаче изображений.
	head := make([]byte, 1)
	if _, err := io.ReadFull(image.Reader, head); err != nil {
		if errors.Is(err, io.EOF) {
			return "", fmt.Errorf("%w: файл %q пуст", ErrValidation, image.Filename)
		}
		return "", fmt.Errorf("чтение изображения %q: %w", image.Filename, err)
	}

	reader := io.MultiReader(bytes.NewReader(head), image.Reader)
	result, err := s.images.Save(reader, image.Filename)
	if err != nil {
		return "", fmt.Errorf("сохранение изображения: %w", err)
	}
	return result.StorageName, nil
}

// deleteImageBestEffort удаляет файл изображения.
// Ошибка логируется и не прерывает операцию: осиротевший файл
// на диске допустим, потерянная запись в БД — нет.
func (s *ManuscriptService) deleteImageBestEffort(storageName string) {
	if err := s.images.Delete(storageName); err != nil {
		imageDeleteFailuresTotal.Inc()
		s.logger.Warn("Не удалось удалить файл изображения",
			slog.String("image", storageName),
			slog.String("error", err.Error()),
		)
	}
}

// Create создаёт манускрипт от имени пользователя ownerID.
// Владелец фиксируется при создании и в дальнейшем не меняется.
// image может быть nil — манускрипт без изображения.
func (s *ManuscriptService) Create(ctx context.Context, ownerID int64, input ManuscriptInput, image *ImageUpload) (*model.Manuscript, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var imageFilename *string
	if image != nil {
		name, err := s.saveImage(image)
		if err != nil {
			return nil, err
		}
		imageFilename = &name
	}

	m := &model.Manuscript{
		Title:          input.Title,
		Author:         input.Author,
		DateCreated:    input.DateCreated,
		OriginLocation: input.OriginLocation,
		Language:       input.Language,
		Material:       input.Material,
		Dimensions:     input.Dimensions,
		Condition:      input.Condition,
		Description:    input.Description,
		Content:        input.Content,
		ImageFilename:  imageFilename,
		UploadedBy:     ownerID,
		Status:         model.StatusPending,
	}

	if err := s.manuscripts.Create(ctx, m); err != nil {
		// Запись не создана — сохранённое изображение осиротело
		if imageFilename != nil {
			s.deleteImageBestEffort(*imageFilename)
		}
		return nil, err
	}

	manuscriptsUploadedTotal.Inc()
	s.logger.Info("Манускрипт создан",
		slog.Int64("id", m.ID),
		slog.Int64("uploaded_by", ownerID),
		slog.String("title", m.Title),
	)

	return s.manuscripts.GetByID(ctx, m.ID)
}

// Update полностью перезаписывает поля манускрипта.
// Разрешено только владельцу. Переданное image заменяет старое
// изображение, nil — оставляет текущее без изменений.
func (s *ManuscriptService) Update(ctx context.Context, actorID int64, id int64, input ManuscriptInput, image *ImageUpload) (*model.Manuscript, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	current, err := s.manuscripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: манускрипт %d", ErrNotFound, id)
		}
		return nil, err
	}
	if current.UploadedBy != actorID {
		return nil, fmt.Errorf("%w: пользователь %d не владеет манускриптом %d",
			ErrForbidden, actorID, id)
	}

	imageFilename := current.ImageFilename
	var oldImage *string
	if image != nil {
		name, err := s.saveImage(image)
		if err != nil {
			return nil, err
		}
		imageFilename = &name
		oldImage = current.ImageFilename
	}

	m := &model.Manuscript{
		ID:             id,
		Title:          input.Title,
		Author:         input.Author,
		DateCreated:    input.DateCreated,
		OriginLocation: input.OriginLocation,
		Language:       input.Language,
		Material:       input.Material,
		Dimensions:     input.Dimensions,
		Condition:      input.Condition,
		Description:    input.Description,
		Content:        input.Content,
		ImageFilename:  imageFilename,
	}

	if err := s.manuscripts.Update(ctx, m); err != nil {
		// Запись не обновлена — новое изображение осиротело
		if image != nil {
			s.deleteImageBestEffort(*imageFilename)
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: манускрипт %d", ErrNotFound, id)
		}
		return nil, err
	}

	// Старое изображение больше не нужно
	if oldImage != nil {
		s.deleteImageBestEffort(*oldImage)
	}

	s.cache.Delete(id)
	s.logger.Info("Манускрипт обновлён",
		slog.Int64("id", id),
		slog.Int64("actor", actorID),
	)

	return s.manuscripts.GetByID(ctx, id)
}

// Delete удаляет манускрипт владельца вместе с изображением.
// Удаление изображения — best effort: его ошибка не прерывает операцию.
func (s *ManuscriptService) Delete(ctx context.Context, actorID int64, id int64) error {
	current, err := s.manuscripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: манускрипт %d", ErrNotFound, id)
		}
		return err
	}
	if current.UploadedBy != actorID {
		return fmt.Errorf("%w: пользователь %d не владеет манускриптом %d",
			ErrForbidden, actorID, id)
	}

	return s.deleteManuscript(ctx, current)
}

// deleteManuscript удаляет изображение (best effort) и запись.
// Общий путь для владельца и администратора.
func (s *ManuscriptService) deleteManuscript(ctx context.Context, m *model.Manuscript) error {
	if m.ImageFilename != nil {
		s.deleteImageBestEffort(*m.ImageFilename)
	}

	if err := s.manuscripts.Delete(ctx, m.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: манускрипт %d", ErrNotFound, m.ID)
		}
		return err
	}

	s.cache.Delete(m.ID)
	s.logger.Info("Манускрипт удалён", slog.Int64("id", m.ID))
	return nil
}

// GetByID возвращает манускрипт по id.
// Сначала проверяет LRU-кэш, при промахе — запрос к PostgreSQL.
func (s *ManuscriptService) GetByID(ctx context.Context, id int64) (*model.Manuscript, error) {
	if m, ok := s.cache.Get(id); ok {
		s.logger.Debug("Кэш hit для манускрипта", slog.Int64("id", id))
		return m, nil
	}

	m, err := s.manuscripts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: манускрипт %d", ErrNotFound, id)
		}
		return nil, err
	}

	s.cache.Set(id, m)
	return m, nil
}

// Search выполняет поиск манускриптов по параметрам.
// Пустые параметры возвращают всю коллекцию постранично.
func (s *ManuscriptService) Search(ctx context.Context, params repository.SearchParams) (*SearchResult, error) {
	start := time.Now()
	searchTotal.Inc()

	items, total, err := s.manuscripts.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("поиск манускриптов: %w", err)
	}

	duration := time.Since(start)
	searchDuration.Observe(duration.Seconds())

	s.logger.Debug("Поиск выполнен",
		slog.Int("total", total),
		slog.Int("returned", len(items)),
		slog.Duration("duration", duration),
	)

	return &SearchResult{
		Items:   items,
		Total:   total,
		Limit:   params.Limit,
		Offset:  params.Offset,
		HasMore: params.Offset+len(items) < total,
	}, nil
}

// ListByOwner возвращает все манускрипты пользователя, новые — первыми.
func (s *ManuscriptService) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Manuscript, error) {
	items, err := s.manuscripts.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("выборка манускриптов владельца: %w", err)
	}
	return items, nil
}

// Recent возвращает последние загруженные манускрипты.
func (s *ManuscriptService) Recent(ctx context.Context, limit int) ([]*model.Manuscript, error) {
	items, err := s.manuscripts.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("выборка последних манускриптов: %w", err)
	}
	return items, nil
}

// Featured возвращает текущий выделенный манускрипт.
func (s *ManuscriptService) Featured(ctx context.Context) (*model.Manuscript, error) {
	m, err := s.manuscripts.Featured(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: выделенный манускрипт", ErrNotFound)
		}
		return nil, err
	}
	return m, nil
}

// Statistics возвращает сводную статистику коллекции.
func (s *ManuscriptService) Statistics(ctx context.Context) (*Statistics, error) {
	total, err := s.manuscripts.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчёт манускриптов: %w", err)
	}
	recent, err := s.manuscripts.CountModifiedAfter(ctx, time.Now().Add(-recentUpdatesWindow))
	if err != nil {
		return nil, fmt.Errorf("подсчёт недавних обновлений: %w", err)
	}
	contributors, err := s.manuscripts.CountContributors(ctx)
	if err != nil {
		return nil, fmt.Errorf("подсчёт контрибьюторов: %w", err)
	}

	return &Statistics{
		TotalManuscripts: total,
		RecentUpdates:    recent,
		Contributors:     contributors,
	}, nil
}

// GetImage возвращает содержимое и MIME-тип файла изображения.
func (s *ManuscriptService) GetImage(_ context.Context, storageName string) ([]byte, string, error) {
	data, err := s.images.Read(storageName)
	if err != nil {
		if errors.Is(err, imagestore.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: изображение %s", ErrNotFound, storageName)
		}
		return nil, "", fmt.Errorf("чтение изображения: %w", err)
	}
	return data, imagestore.ContentTypeFor(storageName), nil
}
