package echoapi

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/vplan-fr/vplan/core"
	"github.com/vplan-fr/vplan/core/revision"
	"github.com/vplan-fr/vplan/core/school"
	"github.com/vplan-fr/vplan/core/teacher"
)

type (
	Options struct {
		Addr            string
		DisableReqLogs  bool
		ShutdownTimeout time.Duration

		Logger      core.Logger
		SchoolSvc   *school.Service
		TeacherSvc  *teacher.Service
		RevisionSvc *revision.Service
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
	}

	server struct {
		opts     *Options
		app      *echo.Echo
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	s := &server{
		opts:     opts,
		app:      echo.New(),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	debug := core.Conf.Debug

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(debug || core.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.signalShutdown)
	s.app.Debug = debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(appJWTConfig())

	registerSchoolAPI(v1, jwt, s.opts.SchoolSvc)
	registerPlanAPI(v1, jwt, s.opts.RevisionSvc, s.opts.TeacherSvc)
}

// Start runs the server until an OS signal or a shutdown error arrives, then
// drains outstanding requests within the configured timeout.
func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.app.Start(s.opts.Addr); err != nil && err != http.ErrServerClosed {
			s.opts.Logger.Error(fmt.Sprintf("server error: %v", err), err)
			s.signalShutdown()
		}
	}()

	sig := <-s.shutdown
	s.opts.Logger.Info(fmt.Sprintf("%v: start shutdown...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		s.opts.Logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		if err = s.app.Close(); err != nil {
			s.opts.Logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to VPlan API!")
}
