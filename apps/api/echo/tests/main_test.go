package tests

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	. "github.com/vplan-fr/vplan/apps/api/echo"
	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/revision"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
	logsvc "github.com/vplan-fr/vplan/services/logger"
	inmemdb "github.com/vplan-fr/vplan/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

func TestMain(m *testing.M) {
	_ = os.Setenv("ENV", "TEST")
	_ = os.Setenv("TEST_DEBUG", "false")
	if err := core.LoadConfig(); err != nil {
		fmt.Printf("core.LoadConfig(): %v", err)
		os.Exit(1)
	}
	core.InitValidators()

	os.Exit(m.Run())
}

type testEnv struct {
	app        Server
	schoolRepo school.Repository
	teacherSvc *teacher.Service
	revSvc     *revision.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	// set up repos
	db := inmemdb.NewDB()
	schoolRepo := inmemdb.NewSchoolRepository(db)
	teacherSvc := teacher.NewService(inmemdb.NewTeacherRepository(db), core.Conf.Plan.MaxTeacherDirectoryAge)
	revSvc := revision.NewService(inmemdb.NewRevisionRepository(db))

	logger := logsvc.NewStdLogger(log.New(ioutil.Discard, "", 0))

	// set up server
	app := NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			SchoolSvc:      school.NewService(schoolRepo),
			TeacherSvc:     teacherSvc,
			RevisionSvc:    revSvc,
		},
	)
	return &testEnv{
		app:        app,
		schoolRepo: schoolRepo,
		teacherSvc: teacherSvc,
		revSvc:     revSvc,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, sch school.School) string {
	claims := GetSchoolClaims(sch)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
