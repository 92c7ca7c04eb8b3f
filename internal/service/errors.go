// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт состояния ресурса.
	ErrConflict = errors.New("конфликт состояния ресурса")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrRunInProgress — прогон сканирования уже выполняется.
	ErrRunInProgress = errors.New("прогон сканирования уже выполняется")
	// ErrNotifierUnavailable — транспорт доставки недоступен.
	ErrNotifierUnavailable = errors.New("транспорт доставки недоступен")
)
