// moderation.go — сервис модерации для администраторов.
// Просмотр всех записей, смена статуса, удаление, флаг featured.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/manupedia/manupedia-backend/internal/domain/model"
	"github.com/manupedia/manupedia-backend/internal/repository"
)

// Prometheus-метрики модерации.
var moderationActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "mp_moderation_actions_total",
	Help: "Общее количество действий модерации по типам.",
}, []string{"action"})

// AdminListResult — результат admin-списка с пагинацией.
type AdminListResult struct {
	// Items — манускрипты, недавно изменённые — первыми
	Items []*model.Manuscript
	// Total — общее количество записей с учётом фильтра
	Total int
	// Limit — запрошенный лимит
	Limit int
	// Offset — текущее смещение
	Offset int
}

// ModerationService — операции администратора над любыми манускриптами.
// Пользовательские ограничения владения здесь не действуют:
// авторизация роли admin выполняется на уровне HTTP middleware.
type ModerationService struct {
	manuscripts *ManuscriptService
	repo        repository.ManuscriptRepository
	cache       *CacheService
	logger      *slog.Logger
}

// NewModerationService создаёт сервис модерации.
func NewModerationService(
	manuscripts *ManuscriptService,
	repo repository.ManuscriptRepository,
	cache *CacheService,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		manuscripts: manuscripts,
		repo:        repo,
		cache:       cache,
		logger:      logger.With(slog.String("component", "moderation_service")),
	}
}

// List возвращает манускрипты всех пользователей с опциональным
// фильтром по статусу, недавно изменённые — первыми.
func (s *ModerationService) List(ctx context.Context, params repository.AdminListParams) (*AdminListResult, error) {
	if params.Status != nil && *params.Status != "" && !model.ValidStatus(*params.Status) {
		return nil, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, *params.Status)
	}

	items, total, err := s.repo.ListAdmin(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("admin-выборка манускриптов: %w", err)
	}

	return &AdminListResult{
		Items:  items,
		Total:  total,
		Limit:  params.Limit,
		Offset: params.Offset,
	}, nil
}

// SetStatus устанавливает статус модерации манускрипта.
// Статус проверяется строго с учётом регистра: допустимы только
// PENDING, APPROVED и REJECTED.
func (s *ModerationService) SetStatus(ctx context.Context, id int64, status string) (*model.Manuscript, error) {
	if !model.ValidStatus(status) {
		return nil, fmt.Errorf("%w: недопустимый статус %q", ErrValidation, status)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: манускрипт %d", ErrNotFound, id)
		}
		return nil, err
	}

	s.cache.Delete(id)
	moderationActionsTotal.WithLabelValues("set_status").Inc()
	s.logger.Info("Статус манускрипта изменён",
		slog.Int64("id", id),
		slog.String("status", status),
	)

	return s.repo.GetByID(ctx, id)
}

// ToggleFeatured переключает флаг featured манускрипта.
// Никаких других побочных эффектов: статус, владелец и last_modified
// не изменяются. Возвращает запись с новым значением флага.
func (s *ModerationService) ToggleFeatured(ctx context.Context, id int64) (*model.Manuscript, error) {
	if _, err := s.repo.ToggleFeatured(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: манускрипт %d", ErrNotFound, id)
		}
		return nil, err
	}

	s.cache.Delete(id)
	moderationActionsTotal.WithLabelValues("toggle_featured").Inc()
	s.logger.Info("Флаг featured переключён", slog.Int64("id", id))

	return s.repo.GetByID(ctx, id)
}

// Delete удаляет любой манускрипт без проверки владения.
// Изображение удаляется best effort, как и при удалении владельцем.
func (s *ModerationService) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: манускрипт %d", ErrNotFound, id)
		}
		return err
	}

	if err := s.manuscripts.deleteManuscript(ctx, current); err != nil {
		return err
	}

	moderationActionsTotal.WithLabelValues("delete").Inc()
	return nil
}
