package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/plan"
	"github.com/vplan-fr/vplan/core/revision"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
)

type planApi struct {
	revSvc     *revision.Service
	teacherSvc *teacher.Service
}

func registerPlanAPI(g *echo.Group, jwt echo.MiddlewareFunc, revSvc *revision.Service, teacherSvc *teacher.Service) {
	api := planApi{revSvc: revSvc, teacherSvc: teacherSvc}

	pg := g.Group("/plan", jwt)
	pg.GET("/dates", api.queryDates)
	pg.GET("/:date", api.retrievePlan)
	pg.GET("/:date/revisions", api.queryRevisions)
	pg.GET("/:date/rooms", api.retrieveRooms)
	pg.GET("/:date/stats", api.retrieveStats)

	tg := g.Group("/teachers", jwt)
	tg.GET("", api.queryTeachers)
}

// Handlers

func (api *planApi) queryDates(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	dates, err := api.revSvc.Dates(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying plan dates")
	}
	if dates == nil {
		dates = []plan.Date{}
	}
	return ctx.JSON(http.StatusOK, dates)
}

func (api *planApi) queryRevisions(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	date, err := bindDateParam(ctx)
	if err != nil {
		return err
	}
	stamps, err := api.revSvc.Timestamps(claims.Subject, date)
	if err != nil {
		return errors.Wrap(err, "querying plan revisions")
	}
	if stamps == nil {
		stamps = []time.Time{}
	}
	return ctx.JSON(http.StatusOK, stamps)
}

func (api *planApi) retrievePlan(ctx echo.Context) error {
	var query PlanQuery
	result, err := api.loadResult(ctx, &query)
	if err != nil {
		return err
	}
	if query.Type != "" {
		view := result.Views[plan.PlanType(query.Type)]
		if view == nil {
			view = map[string][]plan.PlanLesson{}
		}
		return ctx.JSON(http.StatusOK, PlanViewResponse{
			Date:       result.Date,
			Timestamp:  result.Timestamp,
			WeekLetter: result.WeekLetter,
			Type:       query.Type,
			Plan:       view,
		})
	}
	return ctx.JSON(http.StatusOK, result)
}

func (api *planApi) retrieveRooms(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var query PlanQuery
	result, err := api.loadResult(ctx, &query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, RoomsResponse{
		Date:              result.Date,
		Timestamp:         result.Timestamp,
		Rooms:             roomMetadata(claims.Subject, result.UsedRoomsByPeriod, result.FreeRoomsByPeriod),
		UsedRoomsByPeriod: result.UsedRoomsByPeriod,
		FreeRoomsByPeriod: result.FreeRoomsByPeriod,
		UsedRoomsByBlock:  result.UsedRoomsByBlock,
		FreeRoomsByBlock:  result.FreeRoomsByBlock,
	})
}

// roomMetadata resolves each room name of the day to its structured form
// when the school's room notation is known. Schools without a registered
// parser (and names a parser rejects) expose the raw identifier only.
func roomMetadata(schoolNumber string, byPeriod ...map[int][]string) map[string]*school.Room {
	parser, known := school.RoomParserFor(schoolNumber)

	out := make(map[string]*school.Room)
	for _, rooms := range byPeriod {
		for _, names := range rooms {
			for _, name := range names {
				if _, seen := out[name]; seen {
					continue
				}
				out[name] = nil
				if known {
					if room, err := parser(name); err == nil {
						r := room
						out[name] = &r
					}
				}
			}
		}
	}
	return out
}

func (api *planApi) retrieveStats(ctx echo.Context) error {
	var query PlanQuery
	result, err := api.loadResult(ctx, &query)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, StatsResponse{
		Date:       result.Date,
		Timestamp:  result.Timestamp,
		Statistics: result.Statistics,
	})
}

func (api *planApi) queryTeachers(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	directory, err := api.teacherSvc.Directory(claims.Subject)
	if err != nil {
		if errors.Cause(err) == teacher.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting teacher directory")
	}
	return ctx.JSON(http.StatusOK, directory)
}

// loadResult resolves the requested (date, revision) unit to its stored
// processing result. A missing revision parameter selects the latest one.
func (api *planApi) loadResult(ctx echo.Context, query *PlanQuery) (*plan.Result, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "getting context claims")
	}
	date, err := bindDateParam(ctx)
	if err != nil {
		return nil, err
	}
	if err = ctx.Bind(query); err != nil {
		return nil, errors.Wrap(err, "binding to PlanQuery")
	}
	if err = query.Validate(); err != nil {
		return nil, err
	}

	var rev revision.Revision
	if query.Revision == "" {
		rev, err = api.revSvc.GetLatest(claims.Subject, date)
	} else {
		var stamp time.Time
		stamp, err = time.Parse(time.RFC3339, query.Revision)
		if err != nil {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "revision", Error: "must be an RFC 3339 timestamp"})
		}
		rev, err = api.revSvc.Get(claims.Subject, date, stamp)
	}
	if err != nil {
		if errors.Cause(err) == revision.ErrNotFound {
			return nil, errHttpNotFound
		}
		return nil, errors.Wrap(err, "getting plan revision")
	}

	result, err := rev.Result()
	return result, errors.Wrap(err, "decoding plan revision")
}

func bindDateParam(ctx echo.Context) (plan.Date, error) {
	date, err := plan.ParseDate(ctx.Param("date"))
	if err != nil {
		return plan.Date{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: "must be an ISO date (2006-01-02)"})
	}
	return date, nil
}

type (
	PlanQuery struct {
		Revision string `query:"revision" json:"revision"`
		Type     string `query:"type" json:"type" validate:"omitempty,plantype"`
	}

	PlanViewResponse struct {
		Date       plan.Date                    `json:"date"`
		Timestamp  time.Time                    `json:"timestamp"`
		WeekLetter string                       `json:"week"`
		Type       string                       `json:"type"`
		Plan       map[string][]plan.PlanLesson `json:"plan"`
	}

	RoomsResponse struct {
		Date              plan.Date               `json:"date"`
		Timestamp         time.Time               `json:"timestamp"`
		Rooms             map[string]*school.Room `json:"rooms"`
		UsedRoomsByPeriod map[int][]string        `json:"used_rooms_by_period"`
		FreeRoomsByPeriod map[int][]string        `json:"free_rooms_by_period"`
		UsedRoomsByBlock  map[int][]string        `json:"used_rooms_by_block"`
		FreeRoomsByBlock  map[int][]string        `json:"free_rooms_by_block"`
	}

	StatsResponse struct {
		Date       plan.Date              `json:"date"`
		Timestamp  time.Time              `json:"timestamp"`
		Statistics plan.LessonsStatistics `json:"statistics"`
	}
)

func (pq *PlanQuery) Validate() error {
	pq.Type = core.CleanString(pq.Type, true /* lower */)
	return core.Validate.Struct(pq)
}
