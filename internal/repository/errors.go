// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. Any other
// error coming out of a repository is a persistence failure and should be
// reported as a 5xx.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a wedding, guest or seating chart does not
// exist. Handlers translate it into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write violates a uniqueness rule, such as
// creating a second seating chart for a wedding. Handlers should
// translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

var (
	ErrGuestNotFound   = fmt.Errorf("guest %w", ErrNotFound)
	ErrChartNotFound   = fmt.Errorf("seating chart %w", ErrNotFound)
	ErrWeddingNotFound = fmt.Errorf("wedding %w", ErrNotFound)
	ErrUserNotFound    = fmt.Errorf("user %w", ErrNotFound)

	// ErrStaleChart means the caller wrote with a version that is no
	// longer current; somebody else saved the chart in between.
	ErrStaleChart = fmt.Errorf("%w: seating chart was modified by another request", ErrConflict)
	// ErrChartExists is returned by SeatingChartRepo.Create.
	ErrChartExists = fmt.Errorf("%w: wedding already has a seating chart", ErrConflict)
	// ErrEmailExists is returned when registering an email twice.
	ErrEmailExists = fmt.Errorf("%w: email already exists", ErrConflict)
	// ErrWeddingExists is returned when a user creates a second wedding.
	ErrWeddingExists = fmt.Errorf("%w: user already has a wedding", ErrConflict)
)

// isDuplicateKey reports whether err is a MySQL duplicate-key error (1062).
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return strings.Contains(strings.ToLower(err.Error()), "1062")
}
