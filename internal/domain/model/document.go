package model

import "time"

// Document — отслеживаемый документ (виза, разрешение).
// Хранится в таблице documents. Движок напоминаний только читает документы.
type Document struct {
	// ID — UUID документа
	ID string
	// HolderName — имя владельца
	HolderName string
	// Organization — компания/организация владельца
	Organization string
	// ContactEmail — адрес, на который уходят напоминания
	ContactEmail string
	// Kind — вид документа
	Kind DocumentKind
	// Number — номер документа
	Number string
	// IssueDate — дата выдачи (может отсутствовать)
	IssueDate *time.Time
	// ExpiryDate — дата окончания действия (календарная дата)
	ExpiryDate time.Time
	// Status — статус действительности
	Status DocumentStatus
	// Notes — произвольные заметки
	Notes string
	// OwnerID — пользователь-владелец записи (может быть пустым)
	OwnerID string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
