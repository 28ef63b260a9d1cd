package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/aktamov/davomat/apps/api/echo"
	"github.com/aktamov/davomat/bot"
	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
	"github.com/aktamov/davomat/core/member"
	"github.com/aktamov/davomat/scheduler"
	chatsvc "github.com/aktamov/davomat/services/chat"
	classifiersvc "github.com/aktamov/davomat/services/classifier"
	emailsvc "github.com/aktamov/davomat/services/email"
	logsvc "github.com/aktamov/davomat/services/logger"
	"github.com/aktamov/davomat/storage/cache/rediscache"
	"github.com/aktamov/davomat/storage/database"
	"github.com/aktamov/davomat/storage/database/sqlxrepos"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up cache
	cache, err := rediscache.Open(conf.Redis)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up cache: %v", err), err)
	}
	defer func() { _ = cache.Close() }()

	// set up services
	clock := core.NewZoneClock(conf.Location())

	courses := course.NewService(sqlxrepos.NewCourseRepository(db), clock, conf.Program, logger)
	intakes := intake.NewService(sqlxrepos.NewIntakeRepository(db), clock, conf.Program, logger)
	members := member.NewService(sqlxrepos.NewMemberRepository(db), clock, logger)

	chatClient := chatsvc.NewClient(conf)
	pipeline := intake.NewPipeline(chatClient, classifiersvc.NewClient(conf), conf.Program.ConfidenceMin, logger)

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	b := bot.New(
		courses, intakes, members, pipeline,
		chatClient, cache, mailSvc, clock, conf.Program,
		bot.Config{
			GroupID:         conf.Chat.GroupID,
			GeneralThreadID: conf.Chat.GeneralThreadID,
			FromEmail:       conf.DefaultFromEmail,
			AlertEmail:      conf.ReviewerAlertEmail,
		},
		logger,
	)
	dispatcher := bot.NewDispatcher(logger)
	b.Register(dispatcher)

	// =========================================================================
	// Start Scheduler

	sched := scheduler.New(conf.Program.TickInterval, logger, scheduler.Tasks(&scheduler.Deps{
		Courses:  courses,
		Intakes:  intakes,
		Members:  members,
		Notifier: b,

		Chat:  chatClient,
		Cache: cache,
		Clock: clock,
		Prog:  conf.Program,

		GroupID:         conf.Chat.GroupID,
		GeneralThreadID: conf.Chat.GeneralThreadID,
		Logger:          logger,
	})...)
	sched.Start()
	defer sched.Stop()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Webhook Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Dispatcher: dispatcher,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
