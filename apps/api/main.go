package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/vplan-fr/vplan/apps/api/echo"
	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/revision"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
	logsvc "github.com/vplan-fr/vplan/services/logger"
	"github.com/vplan-fr/vplan/storage/database"
	sqlxrepos "github.com/vplan-fr/vplan/storage/database/sqlx"
)

func main() {
	if err := core.LoadConfig(); err != nil {
		log.Fatal(err)
	}
	core.InitValidators()

	// set up logger
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		core.Conf,
	)
	logger.Enable(!core.Conf.Debug)

	logger.Info(fmt.Sprintf("Application initializing : version %q", core.Conf.Build))
	defer logger.Info("Application stopped")

	// set up DB
	db, err := setUpDB()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer db.Close()

	sdb := sqlx.NewDb(db, "postgres")

	// set up services
	schoolSvc := school.NewService(sqlxrepos.NewSchoolRepository(sdb))
	teacherSvc := teacher.NewService(sqlxrepos.NewTeacherRepository(sdb), core.Conf.Plan.MaxTeacherDirectoryAge)
	revSvc := revision.NewService(sqlxrepos.NewRevisionRepository(sdb))

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:        core.Conf.Server.Addr,
			Logger:      logger,
			SchoolSvc:   schoolSvc,
			TeacherSvc:  teacherSvc,
			RevisionSvc: revSvc,
		},
	)
	app.Start()
}

func setUpDB() (*sql.DB, error) {
	if err := database.CreateIfNotExist(core.Conf); err != nil {
		return nil, err
	}

	db, err := database.Open(core.Conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
