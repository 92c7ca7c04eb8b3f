// Пакет openapi — OpenAPI-контракт HTTP API сервиса напоминаний.
// Контракт используется middleware валидации запросов.
package openapi

import _ "embed"

// Spec — OpenAPI 3.0 спецификация API в YAML.
//
//go:embed openapi.yaml
var Spec []byte
