package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/revision"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *sql.DB
	schoolSvc  *school.Service
	teacherSvc *teacher.Service
	revSvc     *revision.Service
	mailSvc    core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate - apply pending database migrations")
	fmt.Println("  addschool -number NUMBER -name NAME - register a school; the password will be prompted")
	fmt.Println("  schools - list registered schools")
	fmt.Println("  setactive -number NUMBER -active BOOL - activate or deactivate a school")
	fmt.Println("  rmschool -number NUMBER - remove a school and all its stored plans")
	fmt.Println("  reprocess -school NUMBER -plan FILE [-subs FILE] [-rooms FILE] - process a plan document and store the result")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addSchoolCmd := flag.NewFlagSet("addschool", flag.ExitOnError)
	addSchoolNumber := addSchoolCmd.String("number", "", "The school's upstream numeric identifier.")
	addSchoolName := addSchoolCmd.String("name", "", "The school's display name.")

	setActiveCmd := flag.NewFlagSet("setactive", flag.ExitOnError)
	setActiveNumber := setActiveCmd.String("number", "", "The school's upstream numeric identifier.")
	setActiveFlag := setActiveCmd.Bool("active", true, "Whether the school may authenticate.")

	rmSchoolCmd := flag.NewFlagSet("rmschool", flag.ExitOnError)
	rmSchoolNumber := rmSchoolCmd.String("number", "", "The school's upstream numeric identifier.")

	reprocessCmd := flag.NewFlagSet("reprocess", flag.ExitOnError)
	reprocessSchool := reprocessCmd.String("school", "", "The school's upstream numeric identifier.")
	reprocessPlan := reprocessCmd.String("plan", "", "Path to the form plan XML document.")
	reprocessSubs := reprocessCmd.String("subs", "", "Optional path to the substitution plan XML document.")
	reprocessRooms := reprocessCmd.String("rooms", "", "Optional path to a file listing all rooms, one per line.")

	switch args[1] {
	case "migrate":
		return cli.migrate()
	case "addschool":
		if err := addSchoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addSchoolNumber == "" || *addSchoolName == "" {
			addSchoolCmd.Usage()
			return errHelp
		}
		fmt.Print("Enter password:")
		pwd, err := readPasswordFunc(syscall.Stdin)
		fmt.Println()
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			addSchoolCmd.Usage()
			return errHelp
		}
		return cli.addSchool(*addSchoolNumber, *addSchoolName, string(pwd))
	case "schools":
		return cli.listSchools()
	case "setactive":
		if err := setActiveCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *setActiveNumber == "" {
			setActiveCmd.Usage()
			return errHelp
		}
		return cli.setSchoolActive(core.CleanString(*setActiveNumber), *setActiveFlag)
	case "rmschool":
		if err := rmSchoolCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *rmSchoolNumber == "" {
			rmSchoolCmd.Usage()
			return errHelp
		}
		return cli.removeSchool(core.CleanString(*rmSchoolNumber))
	case "reprocess":
		if err := reprocessCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *reprocessSchool == "" || *reprocessPlan == "" {
			reprocessCmd.Usage()
			return errHelp
		}
		return cli.reprocess(*reprocessSchool, *reprocessPlan, *reprocessSubs, *reprocessRooms)
	default:
		cli.printUsage()
		return errHelp
	}
}
