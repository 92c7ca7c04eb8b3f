package model

import "time"

// DispatchRecord — запись журнала отправок.
// Ключ (DocumentID, Milestone) уникален: на одну контрольную точку документа
// приходится не более одной записи. После создания запись не изменяется.
type DispatchRecord struct {
	// ID — UUID записи
	ID string
	// DocumentID — документ, по которому была попытка отправки
	DocumentID string
	// Milestone — контрольная точка
	Milestone Milestone
	// DaysToExpiry — дней до истечения на момент попытки
	DaysToExpiry int
	// ExpiryDate — дата истечения документа на момент попытки
	ExpiryDate time.Time
	// AttemptedAt — время попытки
	AttemptedAt time.Time
	// Status — итог попытки
	Status DispatchStatus
	// MessageID — идентификатор сообщения транспорта (при успехе)
	MessageID string
	// Response — ответ транспорта (при успехе)
	Response string
	// SentAt — время отправки (при успехе)
	SentAt *time.Time
	// Error — текст ошибки (при неудаче)
	Error string
	// CreatedBy — инициатор (system или sub пользователя)
	CreatedBy string
}

// Trigger — источник запуска сканирования.
type Trigger string

const (
	// TriggerSchedule — ежедневный запуск по расписанию
	TriggerSchedule Trigger = "schedule"
	// TriggerManual — ручной запуск через API
	TriggerManual Trigger = "manual"
)

// SystemActor — инициатор записей журнала при автоматическом запуске.
const SystemActor = "system"

// RunSummary — итог одного прогона сканирования.
type RunSummary struct {
	// Trigger — источник запуска
	Trigger Trigger
	// StartedAt — время начала
	StartedAt time.Time
	// FinishedAt — время завершения
	FinishedAt time.Time
	// Documents — количество активных документов
	Documents int
	// Eligible — документов с контрольной точкой на сегодня
	Eligible int
	// Sent — успешных отправок
	Sent int
	// Failed — неудачных отправок (записаны как FAILED)
	Failed int
	// Skipped — пропущено, так как запись уже есть в журнале
	Skipped int
	// Errors — документов, обработка которых завершилась ошибкой
	Errors int
}
