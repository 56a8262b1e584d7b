// Пакет imagestore — операции с файлами изображений манускриптов на диске.
// Имена файлов генерируются на основе UUID — коллизии с пользовательскими
// именами исключены. Директория хранения внедряется при создании.
package imagestore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound — файл изображения не найден в хранилище.
var ErrNotFound = errors.New("изображение не найдено")

// Store — хранилище файлов изображений на диске.
type Store struct {
	// dataDir — корневая директория хранения (MP_UPLOAD_DIR)
	dataDir string
}

// SaveResult — результат сохранения изображения.
type SaveResult struct {
	// StorageName — сгенерированное имя файла в хранилище
	StorageName string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт новый Store. Проверяет и создаёт директорию,
// если она не существует.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию изображений %s: %w", dataDir, err)
	}

	return &Store{dataDir: dataDir}, nil
}

// Save записывает данные из reader на диск под сгенерированным именем.
// Формат имени: {uuid}{ext}, расширение берётся из оригинального имени файла.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (s *Store) Save(reader io.Reader, originalFilename string) (*SaveResult, error) {
	storageName := generateStorageName(originalFilename)
	fullPath := filepath.Join(s.dataDir, storageName)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	// fsync для гарантии записи на диск
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		StorageName: storageName,
		Size:        size,
	}, nil
}

// Read возвращает содержимое изображения по имени в хранилище.
// Возвращает ErrNotFound, если файл отсутствует.
func (s *Store) Read(storageName string) ([]byte, error) {
	fullPath := filepath.Join(s.dataDir, filepath.Base(storageName))

	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, storageName)
		}
		return nil, fmt.Errorf("ошибка чтения изображения %s: %w", storageName, err)
	}
	return data, nil
}

// Delete удаляет изображение с диска.
// Идемпотентна: возвращает nil, если файл уже не существует.
func (s *Store) Delete(storageName string) error {
	fullPath := filepath.Join(s.dataDir, filepath.Base(storageName))

	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления изображения %s: %w", storageName, err)
	}
	return nil
}

// Exists проверяет существование изображения в хранилище.
func (s *Store) Exists(storageName string) bool {
	fullPath := filepath.Join(s.dataDir, filepath.Base(storageName))
	_, err := os.Stat(fullPath)
	return err == nil
}

// DataDir возвращает путь к директории хранения.
func (s *Store) DataDir() string {
	return s.dataDir
}

// ContentTypeFor возвращает MIME-тип изображения по расширению имени файла.
// Фиксированная таблица: .png, .gif, .webp; для остальных — image/jpeg.
func ContentTypeFor(storageName string) string {
	switch strings.ToLower(filepath.Ext(storageName)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// generateStorageName генерирует имя файла для хранения.
// Формат: {uuid}{ext}. Расширение сохраняется для определения
// Content-Type при отдаче, небезопасные символы отбрасываются.
func generateStorageName(originalFilename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalFilename)))
	if !validExt(ext) {
		ext = ""
	}
	return uuid.New().String() + ext
}

// validExt проверяет, что расширение состоит только из точки,
// латинских букв и цифр (не длиннее 10 символов).
func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 10 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
