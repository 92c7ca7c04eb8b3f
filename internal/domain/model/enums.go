// Пакет model — доменные модели сервиса напоминаний.
// Перечисления закрыты: неизвестное значение отклоняется на входе
// (Parse*), а в БД дублируется CHECK-ограничениями.
package model

import "fmt"

// DocumentKind — вид документа.
type DocumentKind string

const (
	KindKITAS    DocumentKind = "KITAS"
	KindKITAP    DocumentKind = "KITAP"
	KindIMTA     DocumentKind = "IMTA"
	KindVisa     DocumentKind = "VISA"
	KindPassport DocumentKind = "PASSPORT"
	// KindOther — прочие документы
	KindOther DocumentKind = "OTHER"
)

// DocumentKinds — все допустимые виды документов.
var DocumentKinds = []DocumentKind{KindKITAS, KindKITAP, KindIMTA, KindVisa, KindPassport, KindOther}

// Valid сообщает, входит ли значение в перечисление.
func (k DocumentKind) Valid() bool {
	for _, v := range DocumentKinds {
		if k == v {
			return true
		}
	}
	return false
}

// ParseDocumentKind преобразует строку в DocumentKind.
func ParseDocumentKind(s string) (DocumentKind, error) {
	k := DocumentKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("недопустимый вид документа %q", s)
	}
	return k, nil
}

// DocumentStatus — статус действительности документа.
type DocumentStatus string

const (
	// DocumentActive — документ действует, участвует в сканировании
	DocumentActive DocumentStatus = "ACTIVE"
	// DocumentExpired — срок истёк
	DocumentExpired DocumentStatus = "EXPIRED"
	// DocumentRenewal — идёт продление
	DocumentRenewal DocumentStatus = "RENEWAL_IN_PROGRESS"
	// DocumentProcessing — на оформлении
	DocumentProcessing DocumentStatus = "PROCESSING"
	// DocumentInactive — выведен из оборота
	DocumentInactive DocumentStatus = "INACTIVE"
)

// DocumentStatuses — все допустимые статусы документа.
var DocumentStatuses = []DocumentStatus{
	DocumentActive, DocumentExpired, DocumentRenewal, DocumentProcessing, DocumentInactive,
}

// Valid сообщает, входит ли значение в перечисление.
func (s DocumentStatus) Valid() bool {
	for _, v := range DocumentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseDocumentStatus преобразует строку в DocumentStatus.
func ParseDocumentStatus(s string) (DocumentStatus, error) {
	st := DocumentStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("недопустимый статус документа %q", s)
	}
	return st, nil
}

// Milestone — контрольная точка до истечения срока документа.
type Milestone string

const (
	MilestoneThreeMonths Milestone = "THREE_MONTHS_BEFORE"
	MilestoneOneMonth    Milestone = "ONE_MONTH_BEFORE"
	MilestoneTwoWeeks    Milestone = "TWO_WEEKS_BEFORE"
	MilestoneOneWeek     Milestone = "ONE_WEEK_BEFORE"
	MilestoneDueToday    Milestone = "DUE_TODAY"
	MilestoneOverdue     Milestone = "OVERDUE"
)

// Milestones — все контрольные точки в порядке приближения к сроку.
var Milestones = []Milestone{
	MilestoneThreeMonths, MilestoneOneMonth, MilestoneTwoWeeks,
	MilestoneOneWeek, MilestoneDueToday, MilestoneOverdue,
}

// Valid сообщает, входит ли значение в перечисление.
func (m Milestone) Valid() bool {
	for _, v := range Milestones {
		if m == v {
			return true
		}
	}
	return false
}

// ParseMilestone преобразует строку в Milestone.
func ParseMilestone(s string) (Milestone, error) {
	m := Milestone(s)
	if !m.Valid() {
		return "", fmt.Errorf("недопустимая контрольная точка %q", s)
	}
	return m, nil
}

// DispatchStatus — итог попытки отправки напоминания.
type DispatchStatus string

const (
	DispatchPending   DispatchStatus = "PENDING"
	DispatchSent      DispatchStatus = "SENT"
	DispatchFailed    DispatchStatus = "FAILED"
	DispatchCancelled DispatchStatus = "CANCELLED"
)

// DispatchStatuses — все допустимые статусы записи журнала.
var DispatchStatuses = []DispatchStatus{DispatchPending, DispatchSent, DispatchFailed, DispatchCancelled}

// Valid сообщает, входит ли значение в перечисление.
func (s DispatchStatus) Valid() bool {
	for _, v := range DispatchStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseDispatchStatus преобразует строку в DispatchStatus.
func ParseDispatchStatus(s string) (DispatchStatus, error) {
	st := DispatchStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("недопустимый статус отправки %q", s)
	}
	return st, nil
}
