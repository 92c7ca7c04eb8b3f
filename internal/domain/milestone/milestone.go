// Пакет milestone — классификация документа по контрольным точкам
// до истечения срока. Чистые функции без состояния.
//
// Совпадение точное: напоминание за 30 дней уходит только в день, когда
// до истечения ровно 30 дней. Пропущенный день сканирования не догоняется.
package milestone

import (
	"math"
	"time"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
)

// Classify возвращает контрольную точку для количества дней до истечения.
// Второе значение false, если на этот день напоминание не положено.
func Classify(daysToExpiry int) (model.Milestone, bool) {
	switch {
	case daysToExpiry < 0:
		return model.MilestoneOverdue, true
	case daysToExpiry == 0:
		return model.MilestoneDueToday, true
	case daysToExpiry == 7:
		return model.MilestoneOneWeek, true
	case daysToExpiry == 14:
		return model.MilestoneTwoWeeks, true
	case daysToExpiry == 30:
		return model.MilestoneOneMonth, true
	case daysToExpiry == 90:
		return model.MilestoneThreeMonths, true
	default:
		return "", false
	}
}

// DaysToExpiry вычисляет ceil((expiry − now) / сутки).
// Дата истечения трактуется как полночь этой календарной даты в loc,
// поэтому результат не зависит от часового пояса, в котором её сохранили.
func DaysToExpiry(expiry, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := expiry.Date()
	expiryMidnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	days := math.Ceil(expiryMidnight.Sub(now).Hours() / 24)
	return int(days)
}
