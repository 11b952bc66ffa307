package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/dig"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/announcement"
	"github.com/trezcool/darasa/core/center"
	"github.com/trezcool/darasa/core/dashboard"
	"github.com/trezcool/darasa/core/enrollment"
	"github.com/trezcool/darasa/core/faculty"
	"github.com/trezcool/darasa/core/fee"
	"github.com/trezcool/darasa/core/result"
	"github.com/trezcool/darasa/core/student"
	"github.com/trezcool/darasa/core/subject"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/services/live"
	metricsvc "github.com/trezcool/darasa/services/metrics"
)

type (
	ServerDeps struct {
		dig.In

		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		Users         user.ServiceInterface
		Centers       center.ServiceInterface
		Students      *student.Service
		Faculty       *faculty.Service
		Subjects      *subject.Service
		Enrollments   *enrollment.Service
		Fees          *fee.Service
		Announcements *announcement.Service
		Results       *result.Service
		Dashboard     *dashboard.Service
		Hub           *live.Hub
		Metrics       *metricsvc.Metrics
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	if s.deps.Metrics != nil {
		s.app.Use(metricsMiddleware(s.deps.Metrics))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))
	limiter := newRateLimiter(conf.Server.RateLimit, conf.Server.RateBurst)
	active := centerActiveMiddleware(s.deps.Centers)
	auth := &authenticator{conf: conf, users: s.deps.Users, centers: s.deps.Centers}

	h := handler{
		conf:       conf,
		logger:     s.deps.Logger,
		validate:   s.deps.Validate,
		translator: s.deps.Translator,
		users:      s.deps.Users,
		students:   s.deps.Students,
		faculty:    s.deps.Faculty,
	}

	registerUserAPI(v1, jwt, active, limiter, auth, h)
	registerCenterAPI(v1, jwt, active, h, s.deps.Centers)
	registerStudentAPI(v1, jwt, active, h)
	registerFacultyAPI(v1, jwt, active, h)
	registerSubjectAPI(v1, jwt, active, h, s.deps.Subjects)
	registerEnrollmentAPI(v1, jwt, active, h, s.deps.Enrollments)
	registerFeeAPI(v1, jwt, active, h, s.deps.Fees)
	registerAnnouncementAPI(v1, jwt, active, h, s.deps.Announcements)
	registerResultAPI(v1, jwt, active, h, s.deps.Results)
	registerDashboardAPI(v1, jwt, active, h, s.deps.Dashboard)
	if s.deps.Hub != nil {
		registerLiveAPI(v1, middleware.JWTWithConfig(jwtConfig(conf, "query:token")), active, h, s.deps.Hub)
	}
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Darasa API!")
}
