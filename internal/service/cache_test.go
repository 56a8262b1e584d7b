package service

import (
	"testing"
	"time"

	"github.com/manupedia/manupedia-backend/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	m := &model.Manuscript{
		ID:     1,
		Title:  "Остромирово Евангелие",
		Status: model.StatusApproved,
	}

	// Cache miss
	_, ok := cache.Get(1)
	if ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	// Set + cache hit
	cache.Set(1, m)
	got, ok := cache.Get(1)
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.ID != 1 {
		t.Errorf("ID = %d, ожидался 1", got.ID)
	}
	if got.Title != "Остромирово Евангелие" {
		t.Errorf("Title = %q", got.Title)
	}
}

// TestCacheService_Delete проверяет удаление из кэша (инвалидация).
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	cache.Set(7, &model.Manuscript{ID: 7})

	// Проверяем что запись есть
	if _, ok := cache.Get(7); !ok {
		t.Fatal("ожидался cache hit перед удалением")
	}

	// Удаляем
	cache.Delete(7)

	// Проверяем что записи больше нет
	if _, ok := cache.Get(7); ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	// Короткий TTL = 50ms для теста
	cache := NewCacheService(100, 50*time.Millisecond)

	cache.Set(1, &model.Manuscript{ID: 1})

	// Сразу после Set — должен быть hit
	if _, ok := cache.Get(1); !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	// Ждём истечения TTL
	time.Sleep(100 * time.Millisecond)

	// После истечения TTL — должен быть miss
	if _, ok := cache.Get(1); ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Update проверяет обновление записи в кэше.
func TestCacheService_Update(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	cache.Set(1, &model.Manuscript{ID: 1, Title: "Старое название"})
	cache.Set(1, &model.Manuscript{ID: 1, Title: "Новое название"})

	got, ok := cache.Get(1)
	if !ok {
		t.Fatal("ожидался cache hit после обновления")
	}
	if got.Title != "Новое название" {
		t.Errorf("Title = %q, ожидался %q", got.Title, "Новое название")
	}
}
