package tests

import (
	"net/http"
	"testing"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/vplan-fr/vplan/core/plan"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
	"github.com/vplan-fr/vplan/tests"
)

func storedResult() *plan.Result {
	return &plan.Result{
		Date:       plan.NewDate(2023, time.June, 7),
		Timestamp:  time.Date(2023, time.June, 7, 8, 0, 0, 0, time.UTC),
		WeekLetter: "A",
		Views: map[plan.PlanType]map[string][]plan.PlanLesson{
			plan.PlanTypeForms:    {"6/2": {}},
			plan.PlanTypeTeachers: {},
			plan.PlanTypeRooms:    {},
		},
		UsedRoomsByPeriod: map[int][]string{1: {"204"}},
		FreeRoomsByPeriod: map[int][]string{1: {"101"}},
		UsedRoomsByBlock:  map[int][]string{1: {"204"}},
		FreeRoomsByBlock:  map[int][]string{1: {"101"}},
		Statistics:        plan.LessonsStatistics{Count: 1, Changed: 1, JustChanged: 1, JustChangedChangedTeacher: 1},
		AdditionalInfo:    []string{"Unterrichtsfrei ab 12:00"},
	}
}

func TestPlanRetrieve(t *testing.T) {
	env := setup(t)

	sch := testutil.CreateSchool(t, env.schoolRepo, "10001329", "Ostwald-Gymnasium", "s3cr3t", true)
	token := getToken(t, sch)

	result := storedResult()
	if _, err := env.revSvc.Store(sch.Number, result); err != nil {
		t.Fatalf("storing revision failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "auth required", path: "/v1/plan/2023-06-07",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "invalid date", path: "/v1/plan/lol", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"date": "must be an ISO date (2006-01-02)"}),
		},
		{
			name: "invalid plan type", path: "/v1/plan/2023-06-07?type=lol", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"type": "must be one of: forms, teachers, rooms"}),
		},
		{
			name: "invalid revision", path: "/v1/plan/2023-06-07?revision=lol", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"revision": "must be an RFC 3339 timestamp"}),
		},
		{
			name: "no plan for date", path: "/v1/plan/2023-06-08", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "unknown revision", path: "/v1/plan/2023-06-07?revision=2023-06-07T09:00:00Z", token: token,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "latest", path: "/v1/plan/2023-06-07", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, result),
		},
		{
			name: "by revision", path: "/v1/plan/2023-06-07?revision=2023-06-07T08:00:00Z", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, result),
		},
		{
			name: "forms view", path: "/v1/plan/2023-06-07?type=forms", token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{
				"date":      "2023-06-07",
				"timestamp": result.Timestamp,
				"week":      "A",
				"type":      "forms",
				"plan":      map[string][]plan.PlanLesson{"6/2": {}},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestPlanDatesAndRevisions(t *testing.T) {
	env := setup(t)

	sch := testutil.CreateSchool(t, env.schoolRepo, "10001329", "Ostwald-Gymnasium", "s3cr3t", true)
	token := getToken(t, sch)

	if _, err := env.revSvc.Store(sch.Number, storedResult()); err != nil {
		t.Fatalf("storing revision failed: %v", err)
	}
	later := storedResult()
	later.Timestamp = later.Timestamp.Add(2 * time.Hour)
	if _, err := env.revSvc.Store(sch.Number, later); err != nil {
		t.Fatalf("storing revision failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "dates", path: "/v1/plan/dates", token: token,
			wantCode: http.StatusOK, wantData: []byte(`["2023-06-07"]`),
		},
		{
			name: "revisions", path: "/v1/plan/2023-06-07/revisions", token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []time.Time{storedResult().Timestamp, later.Timestamp}),
		},
		{
			name: "no revisions for date", path: "/v1/plan/2023-06-08/revisions", token: token,
			wantCode: http.StatusOK, wantData: []byte(`[]`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestPlanRoomsAndStats(t *testing.T) {
	env := setup(t)

	// "10001329" has a registered room-name parser; the other school exposes
	// raw identifiers only
	sch := testutil.CreateSchool(t, env.schoolRepo, "10001329", "Ostwald-Gymnasium", "s3cr3t", true)
	unparsed := testutil.CreateSchool(t, env.schoolRepo, "10094458", "Other School", "s3cr3t", true)
	token := getToken(t, sch)

	result := storedResult()
	for _, number := range []string{sch.Number, unparsed.Number} {
		if _, err := env.revSvc.Store(number, result); err != nil {
			t.Fatalf("storing revision failed: %v", err)
		}
	}

	tests := []httpTest{
		{
			name: "rooms", path: "/v1/plan/2023-06-07/rooms", token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{
				"date":      "2023-06-07",
				"timestamp": result.Timestamp,
				"rooms": map[string]*school.Room{
					"101": {House: "1", Floor: null.IntFrom(0), Number: null.IntFrom(1)},
					"204": {House: "2", Floor: null.IntFrom(0), Number: null.IntFrom(4)},
				},
				"used_rooms_by_period": result.UsedRoomsByPeriod,
				"free_rooms_by_period": result.FreeRoomsByPeriod,
				"used_rooms_by_block":  result.UsedRoomsByBlock,
				"free_rooms_by_block":  result.FreeRoomsByBlock,
			}),
		},
		{
			name: "rooms without parser", path: "/v1/plan/2023-06-07/rooms", token: getToken(t, unparsed),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{
				"date":                 "2023-06-07",
				"timestamp":            result.Timestamp,
				"rooms":                map[string]*school.Room{"101": nil, "204": nil},
				"used_rooms_by_period": result.UsedRoomsByPeriod,
				"free_rooms_by_period": result.FreeRoomsByPeriod,
				"used_rooms_by_block":  result.UsedRoomsByBlock,
				"free_rooms_by_block":  result.FreeRoomsByBlock,
			}),
		},
		{
			name: "stats", path: "/v1/plan/2023-06-07/stats", token: token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{
				"date":       "2023-06-07",
				"timestamp":  result.Timestamp,
				"statistics": result.Statistics,
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestTeacherDirectory(t *testing.T) {
	env := setup(t)

	sch := testutil.CreateSchool(t, env.schoolRepo, "10001329", "Ostwald-Gymnasium", "s3cr3t", true)
	token := getToken(t, sch)

	now := time.Date(2023, time.June, 7, 8, 0, 0, 0, time.UTC)
	directory, err := env.teacherSvc.RecordObservations(sch.Number, []teacher.Teacher{
		{Abbreviation: "Mus", Surname: null.StringFrom("Frau Musterfrau"), Subjects: []string{"MA"}, LastSeen: now},
	}, now)
	if err != nil {
		t.Fatalf("recording observations failed: %v", err)
	}

	tests := []httpTest{
		{
			name: "auth required", path: "/v1/teachers",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "success", path: "/v1/teachers", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, directory),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestTeacherDirectoryMissing(t *testing.T) {
	env := setup(t)

	sch := testutil.CreateSchool(t, env.schoolRepo, "10001329", "Ostwald-Gymnasium", "s3cr3t", true)

	tt := httpTest{
		token:    getToken(t, sch),
		wantCode: http.StatusNotFound,
		wantData: marchallObj(t, httpErr{Error: "not found"}),
	}
	req, rec := newAuthRequest(http.MethodGet, "/v1/teachers", tt.token)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}
