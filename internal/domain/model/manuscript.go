// Пакет model — доменные модели Manupedia Backend.
// Manuscript — маппинг таблицы manuscripts.
package model

import "time"

// Статусы модерации манускрипта.
// Токены сравниваются строго (case-sensitive), невалидные значения отклоняются.
const (
	// StatusPending — ожидает модерации (статус по умолчанию при загрузке).
	StatusPending = "PENDING"
	// StatusApproved — одобрен администратором.
	StatusApproved = "APPROVED"
	// StatusRejected — отклонён администратором.
	StatusRejected = "REJECTED"
)

// ValidStatus проверяет, является ли строка допустимым статусом модерации.
// Сравнение строгое — "pending" или "Approved" не принимаются.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Manuscript — запись манускрипта в таблице manuscripts.
type Manuscript struct {
	// ID — уникальный идентификатор, назначается при создании, неизменяем
	ID int64
	// Title — название (обязательное, непустое)
	Title string
	// Author — автор оригинального манускрипта (опционально)
	Author string
	// DateCreated — дата создания оригинала, свободный текст (опционально)
	DateCreated string
	// OriginLocation — место происхождения (опционально)
	OriginLocation string
	// Language — язык манускрипта (опционально)
	Language string
	// Material — материал (пергамент, бумага и т.д., опционально)
	Material string
	// Dimensions — размеры (опционально)
	Dimensions string
	// Condition — состояние (опционально, фильтруется по точному совпадению)
	Condition string
	// Description — описание, не более 2000 символов (опционально)
	Description string
	// Content — транскрипция содержимого (опционально)
	Content string
	// ImageFilename — сгенерированное имя файла изображения в хранилище.
	// nil — изображение не прикреплено.
	ImageFilename *string
	// UploadedBy — идентификатор пользователя-владельца, неизменяем после создания
	UploadedBy int64
	// UploadedByName — отображаемое имя владельца (JOIN users, не хранится в manuscripts)
	UploadedByName string
	// Status — статус модерации (PENDING, APPROVED, REJECTED)
	Status string
	// Featured — флаг «рекомендованный», переключается администратором
	Featured bool
	// UploadDate — время создания записи, устанавливается один раз
	UploadDate time.Time
	// LastModified — время последнего изменения, обновляется при каждой мутации
	LastModified time.Time
}
