package main

import (
	"bufio"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/plan"
	"github.com/vplan-fr/vplan/core/teacher"
	"github.com/vplan-fr/vplan/indiware"
	logsvc "github.com/vplan-fr/vplan/services/logger"
)

// reprocess parses the given plan documents, runs the processing pipeline and
// stores the result as a new revision for the school.
func (cli *commandLine) reprocess(schoolNumber, planPath, subsPath, roomsPath string) error {
	schoolNumber = core.CleanString(schoolNumber)
	if _, err := cli.schoolSvc.GetByNumber(schoolNumber); err != nil {
		return err
	}

	planFile, err := os.Open(planPath)
	if err != nil {
		return errors.Wrap(err, "opening form plan")
	}
	defer planFile.Close()
	formPlan, err := indiware.ParseFormPlan(planFile)
	if err != nil {
		return err
	}

	var subs *plan.Substitutions
	if subsPath != "" {
		subsFile, err := os.Open(subsPath)
		if err != nil {
			return errors.Wrap(err, "opening substitution plan")
		}
		defer subsFile.Close()
		if subs, err = indiware.ParseSubstitutionPlan(subsFile); err != nil {
			return err
		}
	}

	rooms, err := readRoomsFile(roomsPath)
	if err != nil {
		return err
	}
	if rooms == nil {
		rooms = plan.RoomUniverse(formPlan.Schedule.Records)
	}

	directory, err := cli.teacherSvc.Directory(schoolNumber)
	if err != nil && err != teacher.ErrNotFound {
		return err
	}

	proc := plan.NewProcessor(logsvc.NewStdLogger(logger), directory.AbbreviationBySurname(), rooms)
	result, err := proc.Process(formPlan.Schedule, subs)
	if err != nil {
		revErr := core.NewRevisionError(
			schoolNumber, formPlan.Schedule.Date.Time(), formPlan.Schedule.Timestamp, err,
		)
		cli.alertRevisionFailure(revErr)
		return revErr
	}

	rev, err := cli.revSvc.Store(schoolNumber, result)
	if err != nil {
		return err
	}

	// fold the sighted teachers into the school's directory
	now := time.Now().UTC()
	classes := formPlan.Classes()
	observed := teacher.FromClasses(classes, now)
	for _, tch := range teacher.ExtractFromRecords(formPlan.Schedule.Records, classes, now, logsvc.NewStdLogger(logger)) {
		observed = append(observed, tch)
	}
	if _, err = cli.teacherSvc.RecordObservations(schoolNumber, observed, now); err != nil {
		return err
	}

	fmt.Printf("stored revision %s of %s for school %s\n", rev.Revision.Format(time.RFC3339), rev.Date, schoolNumber)
	return nil
}

// alertRevisionFailure notifies the operators; a failed revision stays
// confined to its (school, date, revision) unit.
func (cli *commandLine) alertRevisionFailure(err error) {
	if cli.mailSvc == nil {
		return
	}
	cli.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{core.Conf.AdminEmail},
		Subject: "Plan revision failed",
		BodyStr: err.Error(),
	})
}

func readRoomsFile(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening rooms file")
	}
	defer f.Close()

	var rooms []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if room := strings.TrimSpace(scanner.Text()); room != "" {
			rooms = append(rooms, room)
		}
	}
	return rooms, errors.Wrap(scanner.Err(), "reading rooms file")
}
