package main

import (
	"database/sql"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/plan"
	"github.com/vplan-fr/vplan/core/revision"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
	inmemdb "github.com/vplan-fr/vplan/storage/database/inmem"
	"github.com/vplan-fr/vplan/tests"
)

var schoolRepo school.Repository

func TestMain(m *testing.M) {
	_ = os.Setenv("ENV", "TEST")
	if err := core.LoadConfig(); err != nil {
		log.Fatal(err)
	}
	core.InitValidators()
	logger = log.New(ioutil.Discard, "", 0)

	os.Exit(m.Run())
}

func setup(t *testing.T) *commandLine {
	t.Helper()

	db := inmemdb.NewDB()
	schoolRepo = inmemdb.NewSchoolRepository(db)

	return &commandLine{
		schoolSvc:  school.NewService(schoolRepo),
		teacherSvc: teacher.NewService(inmemdb.NewTeacherRepository(db), core.Conf.Plan.MaxTeacherDirectoryAge),
		revSvc:     revision.NewService(inmemdb.NewRevisionRepository(db)),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var called bool
	migrateFunc = func(db *sql.DB) error {
		called = true
		return nil
	}

	if err := cli.run([]string{"admin", "migrate"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if !called {
		t.Error("migrate did not run")
	}
}

func Test_commandLine_addSchool(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addschool"}, wantErr: errHelp},
		{name: "number but no password", args: []string{"addschool", "-number", "10001329", "-name", "Ostwald"}, wantErr: errHelp},
		{
			name: "invalid number", args: []string{"addschool", "-number", "12", "-name", "Ostwald"},
			extra: extra{pwd: "s3cr3t"}, wantErrStr: "Key: 'NewSchool.number' Error:Field validation for 'number' failed on the 'schoolnumber' tag",
		},
		{
			name: "success", args: []string{"addschool", "-number", "10001329", "-name", "Ostwald"},
			extra: extra{pwd: "s3cr3t"},
		},
		{
			name: "duplicate number", args: []string{"addschool", "-number", "10001329", "-name", "Ostwald"},
			extra: extra{pwd: "s3cr3t"}, wantErrStr: "a school with this number already exists",
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				if tt.wantErr != nil || tt.wantErrStr != "" {
					t.Fatalf("cli.run() expected error, got nil")
				}
				sch, err := cli.schoolSvc.GetByNumber("10001329")
				if err != nil {
					t.Fatalf("GetByNumber() failed: %v", err)
				}
				if err = sch.CheckPassword("s3cr3t"); err != nil {
					t.Error("failed to set password")
				}
			} else if tt.wantErr != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
			} else if tt.wantErrStr != "" {
				if err.Error() != tt.wantErrStr {
					t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
				}
			} else {
				t.Errorf("cli.run() unexpected error = %v", err)
			}
		})
	}
}

func Test_commandLine_setActiveAndRemove(t *testing.T) {
	cli := setup(t)

	sch := testutil.CreateSchool(t, schoolRepo, "10001329", "Ostwald-Gymnasium", "s3cr3t", true)

	if err := cli.run([]string{"admin", "setactive"}); err != errHelp {
		t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
	}
	if err := cli.run([]string{"admin", "setactive", "-number", "99999999", "-active=false"}); err != school.ErrNotFound {
		t.Errorf("cli.run() error = %v, wantErr %v", err, school.ErrNotFound)
	}

	if err := cli.run([]string{"admin", "setactive", "-number", "10001329", "-active=false"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	got, err := cli.schoolSvc.GetByNumber("10001329")
	if err != nil {
		t.Fatalf("GetByNumber() failed: %v", err)
	}
	if got.IsActive {
		t.Error("school still active after setactive -active=false")
	}
	if !got.UpdatedAt.After(sch.UpdatedAt) {
		t.Error("UpdatedAt not advanced")
	}

	if err := cli.run([]string{"admin", "rmschool"}); err != errHelp {
		t.Errorf("cli.run() error = %v, wantErr %v", err, errHelp)
	}
	if err := cli.run([]string{"admin", "rmschool", "-number", "10001329"}); err != nil {
		t.Fatalf("cli.run() unexpected error = %v", err)
	}
	if _, err := cli.schoolSvc.GetByNumber("10001329"); err != school.ErrNotFound {
		t.Errorf("GetByNumber() error = %v, want %v", err, school.ErrNotFound)
	}
}

const reprocessPlanXML = `<?xml version="1.0" encoding="utf-8"?>
<VpMobil>
  <Kopf>
    <zeitstempel>07.06.2023, 08:00</zeitstempel>
    <DatumPlan>Mittwoch, 07. Juni 2023</DatumPlan>
    <woche>1</woche>
  </Kopf>
  <FreieTage/>
  <Klassen>
    <Kl>
      <Kurz>6/2</Kurz>
      <KlStunden>
        <KlSt ZeitVon="7:30" ZeitBis="8:15">1</KlSt>
      </KlStunden>
      <Unterricht>
        <Ue><UeNr UeLe="Mus" UeFa="MA">101</UeNr></Ue>
      </Unterricht>
      <Pl>
        <Std>
          <St>1</St>
          <Beginn>7:30</Beginn>
          <Ende>8:15</Ende>
          <Fa>MA</Fa>
          <Le LeAe="LeGeaendert">Sch</Le>
          <Ra>204</Ra>
          <Nr>101</Nr>
          <If>für MA Frau Musterfrau</If>
        </Std>
      </Pl>
    </Kl>
  </Klassen>
  <ZusatzInfo>
    <ZiZeile>Unterrichtsfrei ab 12:00</ZiZeile>
  </ZusatzInfo>
</VpMobil>`

func Test_commandLine_reprocess(t *testing.T) {
	cli := setup(t)

	testutil.CreateSchool(t, schoolRepo, "10001329", "Ostwald-Gymnasium", "s3cr3t", true)

	dir := t.TempDir()
	planPath := filepath.Join(dir, "PlanKl.xml")
	if err := ioutil.WriteFile(planPath, []byte(reprocessPlanXML), 0644); err != nil {
		t.Fatalf("writing fixture failed: %v", err)
	}
	roomsPath := filepath.Join(dir, "rooms.txt")
	if err := ioutil.WriteFile(roomsPath, []byte("101\n204\n"), 0644); err != nil {
		t.Fatalf("writing fixture failed: %v", err)
	}

	tests := []cliTest{
		{name: "no args", args: []string{"reprocess"}, wantErr: errHelp},
		{
			name:    "unknown school",
			args:    []string{"reprocess", "-school", "99999999", "-plan", planPath},
			wantErr: school.ErrNotFound,
		},
		{
			name: "success",
			args: []string{"reprocess", "-school", "10001329", "-plan", planPath, "-rooms", roomsPath},
		},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if tt.wantErr != nil {
				t.Fatalf("cli.run() expected error, got nil")
			}

			// the revision is stored under the plan's date and timestamp
			rev, err := cli.revSvc.Get(
				"10001329",
				plan.NewDate(2023, time.June, 7),
				time.Date(2023, time.June, 7, 8, 0, 0, 0, time.UTC),
			)
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			result, err := rev.Result()
			if err != nil {
				t.Fatalf("Result() failed: %v", err)
			}
			if result.WeekLetter != "A" {
				t.Errorf("WeekLetter = %s; want A", result.WeekLetter)
			}
			if got := result.FreeRoomsByPeriod[1]; len(got) != 1 || got[0] != "101" {
				t.Errorf("FreeRoomsByPeriod[1] = %v; want [101]", got)
			}

			// the annotated surname was folded into the directory
			directory, err := cli.teacherSvc.Directory("10001329")
			if err != nil {
				t.Fatalf("Directory() failed: %v", err)
			}
			mus, ok := directory.ByAbbreviation()["Mus"]
			if !ok {
				t.Fatal("teacher Mus not recorded")
			}
			if mus.Surname.String != "Frau Musterfrau" {
				t.Errorf("Surname = %q; want %q", mus.Surname.String, "Frau Musterfrau")
			}
		})
	}
}
