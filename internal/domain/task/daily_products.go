package task

import (
	"fmt"

	"catalog/crawler/internal/domain"
)

// DailyProductsTask carries one crawled day to stream consumers.
type DailyProductsTask struct {
	domain.DailyProducts
}

func (t *DailyProductsTask) TaskType() string {
	return "DailyProductsTask"
}

func (t *DailyProductsTask) TaskKey() string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year, t.Month, t.Day)
}

func (t *DailyProductsTask) TaskValue() ([]byte, error) {
	return encode(t)
}
