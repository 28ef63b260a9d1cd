// Package sqlxrepos implements the core repositories on Postgres.
package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
)

// timeArray maps timestamptz[] columns onto []time.Time.
type timeArray []time.Time

func (a *timeArray) Scan(src interface{}) error {
	return pq.GenericArray{A: (*[]time.Time)(a)}.Scan(src)
}

func (a timeArray) Value() (driver.Value, error) {
	return pq.GenericArray{A: []time.Time(a)}.Value()
}

// affected converts an UPDATE result into the guarded-write convention:
// false means the WHERE guard did not match and nothing was written.
func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}
