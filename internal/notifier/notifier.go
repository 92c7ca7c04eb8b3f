// Пакет notifier — доставка напоминаний получателю.
// Движок напоминаний зависит только от интерфейса Notifier;
// SMTPNotifier — основная реализация поверх go-mail.
package notifier

import (
	"context"
	"errors"
	"time"
)

// ErrTransport — ошибка доставки сообщения транспортом.
var ErrTransport = errors.New("ошибка транспорта доставки")

// MessageContext — данные документа, на основе которых построено сообщение.
type MessageContext struct {
	HolderName   string
	Organization string
	DocumentKind string
	ExpiryDate   time.Time
	ContactEmail string
}

// Message — готовое к отправке сообщение.
type Message struct {
	// To — адрес получателя
	To string
	// Subject — тема
	Subject string
	// Text — текстовое тело
	Text string
	// HTML — HTML-тело (пустое — отправляется только текст)
	HTML string
	// Context — данные документа
	Context MessageContext
}

// Receipt — подтверждение приёма сообщения транспортом.
type Receipt struct {
	// MessageID — Message-ID отправленного письма
	MessageID string
	// Response — ответ транспорта
	Response string
	// SentAt — время отправки
	SentAt time.Time
}

// Notifier — отправка сообщения. Ошибка возвращается синхронно.
type Notifier interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}
