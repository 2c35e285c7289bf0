package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/revision"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
	emailsvc "github.com/vplan-fr/vplan/services/email"
	logsvc "github.com/vplan-fr/vplan/services/logger"
	"github.com/vplan-fr/vplan/storage/database"
	sqlxrepos "github.com/vplan-fr/vplan/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	errAndDie(core.LoadConfig())
	core.InitValidators()

	// set up DB
	errAndDie(database.CreateIfNotExist(core.Conf))
	db, err := database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	sdb := sqlx.NewDb(db, "postgres")

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logsvc.NewStdLogger(logger))
	}

	// start CLI
	cli := commandLine{
		db:         db,
		schoolSvc:  school.NewService(sqlxrepos.NewSchoolRepository(sdb)),
		teacherSvc: teacher.NewService(sqlxrepos.NewTeacherRepository(sdb), core.Conf.Plan.MaxTeacherDirectoryAge),
		revSvc:     revision.NewService(sqlxrepos.NewRevisionRepository(sdb)),
		mailSvc:    mailSvc,
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
