// Package dummydb is an in-memory implementation of the repositories, used
// in tests and local development.
package dummydb

import (
	"sync"

	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
	"github.com/aktamov/davomat/core/member"
)

type (
	DB struct {
		course   *courseTable
		intake   *intakeTable
		member   *memberTable
		reviewer *reviewerTable
	}

	courseTable struct {
		sync.RWMutex
		pk    int
		table map[int]*course.Course
	}

	intakeTable struct {
		sync.RWMutex
		pk    int
		table map[int]*intake.Log
	}

	memberTable struct {
		sync.RWMutex
		pk    int
		table map[int]*member.Member
	}

	reviewerTable struct {
		sync.RWMutex
		pk    int
		table map[int]*member.Reviewer
	}
)

func Open() (*DB, error) {
	db := &DB{
		course:   &courseTable{table: make(map[int]*course.Course)},
		intake:   &intakeTable{table: make(map[int]*intake.Log)},
		member:   &memberTable{table: make(map[int]*member.Member)},
		reviewer: &reviewerTable{table: make(map[int]*member.Reviewer)},
	}
	return db, nil
}
