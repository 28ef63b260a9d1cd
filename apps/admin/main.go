package main

import (
	"log"
	"os"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/member"
	logsvc "github.com/aktamov/davomat/services/logger"
	"github.com/aktamov/davomat/storage/database"
	"github.com/aktamov/davomat/storage/database/sqlxrepos"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	svcLogger := logsvc.NewRollbarLogger(logger, conf)
	svcLogger.Enable(!conf.Debug)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(db.Ping())

	clock := core.NewZoneClock(conf.Location())

	// start CLI
	cli := commandLine{
		db:      db.DB,
		courses: course.NewService(sqlxrepos.NewCourseRepository(db), clock, conf.Program, svcLogger),
		members: member.NewService(sqlxrepos.NewMemberRepository(db), clock, svcLogger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
