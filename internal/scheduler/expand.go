package scheduler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Kamar-Folarin/commit-painter/internal/errors"
	"github.com/Kamar-Folarin/commit-painter/internal/models"
	"github.com/Kamar-Folarin/commit-painter/pkg/utils"
)

// CountUnits returns the number of commit units cells expand to.
func CountUnits(cells []models.IntensityCell) int {
	total := 0
	for _, c := range cells {
		if c.Active() {
			total += c.Level
		}
	}
	return total
}

// Expand turns active cells into the ordered unit stream. Cells are ordered by
// date (stable for equal dates) and each yields Level units. pick chooses a
// message index in [0, n).
func Expand(cells []models.IntensityCell, messages []string, pick func(n int) int) []models.CommitUnit {
	active := make([]models.IntensityCell, 0, len(cells))
	for _, c := range cells {
		if c.Active() {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].Date.Before(active[j].Date)
	})

	pool := utils.MessagePool(messages)
	total := CountUnits(active)
	units := make([]models.CommitUnit, 0, total)
	for _, c := range active {
		for i := 0; i < c.Level; i++ {
			units = append(units, models.CommitUnit{
				TargetDate:             c.Date,
				SequenceIndexWithinDay: i,
				Message:                pool[pick(len(pool))],
				Position:               len(units) + 1,
				Total:                  total,
			})
		}
	}
	return units
}

// ValidateRequest rejects requests that cannot produce a run and returns the unit count.
func ValidateRequest(req *models.JobRequest) (int, error) {
	if req == nil {
		return 0, errors.NewValidationError("request cannot be nil", nil)
	}
	if strings.TrimSpace(req.Owner) == "" {
		return 0, errors.NewValidationError("owner is required", nil)
	}
	if strings.TrimSpace(req.Repository) == "" {
		return 0, errors.NewValidationError("repository is required", nil)
	}
	if _, err := utils.ParseYear(req.Year); err != nil {
		return 0, errors.NewValidationError("year must be a four-digit year", err)
	}
	for _, c := range req.Cells {
		if c.Level < 0 || c.Level > models.MaxLevel {
			return 0, errors.NewValidationError(
				fmt.Sprintf("level %d on %s is out of range 0..%d", c.Level, c.FormattedDate(), models.MaxLevel), nil)
		}
	}
	total := CountUnits(req.Cells)
	if total == 0 {
		return 0, errors.NewValidationError("intensity map has no commits to create", nil)
	}
	return total, nil
}
