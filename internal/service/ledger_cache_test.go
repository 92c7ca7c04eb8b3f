package service

import (
	"testing"
	"time"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
)

func TestLedgerCache_MarkForget(t *testing.T) {
	c := NewLedgerCache(100, 5*time.Minute)

	if c.Contains("d1", model.MilestoneOneMonth) {
		t.Fatal("ожидался промах для нового ключа")
	}

	c.Mark("d1", model.MilestoneOneMonth)
	if !c.Contains("d1", model.MilestoneOneMonth) {
		t.Fatal("ожидалось попадание после Mark")
	}
	if c.Contains("d1", model.MilestoneOneWeek) {
		t.Error("другая контрольная точка того же документа найдена в кэше")
	}

	c.Forget("d1", model.MilestoneOneMonth)
	if c.Contains("d1", model.MilestoneOneMonth) {
		t.Error("ключ найден после Forget")
	}
}

// TestLedgerCache_TTL — ключ исчезает после истечения TTL.
func TestLedgerCache_TTL(t *testing.T) {
	c := NewLedgerCache(100, 50*time.Millisecond)
	c.Mark("d1", model.MilestoneDueToday)

	time.Sleep(150 * time.Millisecond)

	if c.Contains("d1", model.MilestoneDueToday) {
		t.Error("ключ найден после истечения TTL")
	}
}

func TestLedgerCache_Eviction(t *testing.T) {
	c := NewLedgerCache(2, time.Hour)
	c.Mark("d1", model.MilestoneOverdue)
	c.Mark("d2", model.MilestoneOverdue)
	c.Mark("d3", model.MilestoneOverdue)

	if c.Len() != 2 {
		t.Errorf("Len() = %d, ожидали 2", c.Len())
	}
	if c.Contains("d1", model.MilestoneOverdue) {
		t.Error("самый старый ключ не вытеснен")
	}
}

// TestLedgerCache_Nil — nil-кэш работает как пустой.
func TestLedgerCache_Nil(t *testing.T) {
	var c *LedgerCache
	c.Mark("d1", model.MilestoneOverdue)
	c.Forget("d1", model.MilestoneOverdue)
	if c.Contains("d1", model.MilestoneOverdue) || c.Len() != 0 {
		t.Error("nil-кэш вернул данные")
	}
}
