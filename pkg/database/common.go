package database

import (
	"errors"
	"sort"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"artist-calendar-backend/pkg/models"
)

// sortAvailability orders days by date, then artist name ignoring case,
// then artist id so equal names stay stable.
func sortAvailability(days []models.AvailabilityDay) {
	sort.SliceStable(days, func(i, j int) bool {
		if c := days[i].Date.Compare(days[j].Date); c != 0 {
			return c < 0
		}
		ni, nj := strings.ToLower(days[i].ArtistName), strings.ToLower(days[j].ArtistName)
		if ni != nj {
			return ni < nj
		}
		return days[i].ArtistID < days[j].ArtistID
	})
}

// isUniqueViolation recognizes duplicate key errors from every backend.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "\"code\":\"23505\"")
}

// normalizeEmail 邮箱统一小写比较
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
