package task

import (
	"fmt"

	"catalog/crawler/internal/domain"
)

// MonthlyCatalogTask carries one month of the catalog tree.
type MonthlyCatalogTask struct {
	domain.Month
}

func (t *MonthlyCatalogTask) TaskType() string {
	return "MonthlyCatalogTask"
}

func (t *MonthlyCatalogTask) TaskKey() string {
	return fmt.Sprintf("%04d-%02d", t.Year, t.Month.Month)
}

func (t *MonthlyCatalogTask) TaskValue() ([]byte, error) {
	return encode(t)
}
