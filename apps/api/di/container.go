// Package di wires the API dependencies into a dig container.
package di

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
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
	emailsvc "github.com/trezcool/darasa/services/email"
	"github.com/trezcool/darasa/services/live"
	logsvc "github.com/trezcool/darasa/services/logger"
	metricsvc "github.com/trezcool/darasa/services/metrics"
	"github.com/trezcool/darasa/services/scheduler"
	"github.com/trezcool/darasa/storage/cache"
	"github.com/trezcool/darasa/storage/docrepo"
	"github.com/trezcool/darasa/storage/docstore"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type CronLoggerParam struct {
	dig.In
	Logger core.Logger `name:"cronLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, logsvc.ComponentAPI, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, logsvc.ComponentDB, conf)
}

func newCronLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, logsvc.ComponentCron, conf)
}

// newStore opens the configured document store, behind redis when the cache is enabled.
func newStore(conf *core.Config, loggerParam DBLoggerParam) (core.DocStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Database.Timeout)
	defer cancel()

	var c core.Cache
	if conf.Cache.Enabled {
		rc, err := cache.NewRedis(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "connecting to cache")
		}
		c = rc
	}

	store, err := docstore.Open(ctx, conf, c, loggerParam.Logger)
	if err != nil {
		return nil, errors.Wrap(err, "setting up document store")
	}
	return store, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(os.Stdout, conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newHub(metrics *metricsvc.Metrics, logger core.Logger) (*live.Hub, announcement.Publisher) {
	hub := live.NewHub(metrics, logger)
	return hub, hub
}

func newEnrollmentService(repo enrollment.Repository, students *student.Service, subjects *subject.Service) *enrollment.Service {
	return enrollment.NewService(repo, students, subjects)
}

func newFeeService(
	repo fee.Repository,
	enrollments *enrollment.Service,
	students *student.Service,
	mailSvc core.EmailService,
	conf *core.Config,
) *fee.Service {
	return fee.NewService(repo, enrollments, students, mailSvc, conf)
}

func newResultService(repo result.Repository, students *student.Service, subjects *subject.Service, conf *core.Config) *result.Service {
	return result.NewService(repo, students, subjects, conf)
}

func newDashboardService(
	students *student.Service,
	members *faculty.Service,
	subjects *subject.Service,
	enrollments *enrollment.Service,
	fees *fee.Service,
	announcements *announcement.Service,
	results *result.Service,
) *dashboard.Service {
	return dashboard.NewService(students, members, subjects, enrollments, fees, announcements, results)
}

func newScheduler(
	conf *core.Config,
	centers *center.Service,
	fees *fee.Service,
	metrics *metricsvc.Metrics,
	loggerParam CronLoggerParam,
) (*scheduler.Scheduler, error) {
	return scheduler.New(conf, centers, fees, metrics, loggerParam.Logger)
}

func newCenterService(repo center.Repository) (*center.Service, center.ServiceInterface) {
	svc := center.NewService(repo)
	return svc, svc
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newCronLogger, dig.Name("cronLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(metricsvc.New))
	must(c.Provide(newHub))

	// repositories
	must(c.Provide(docrepo.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(docrepo.NewCenterRepository, dig.As(new(center.Repository))))
	must(c.Provide(docrepo.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(docrepo.NewFacultyRepository, dig.As(new(faculty.Repository))))
	must(c.Provide(docrepo.NewSubjectRepository, dig.As(new(subject.Repository))))
	must(c.Provide(docrepo.NewEnrollmentRepository, dig.As(new(enrollment.Repository))))
	must(c.Provide(docrepo.NewFeeRepository, dig.As(new(fee.Repository))))
	must(c.Provide(docrepo.NewAnnouncementRepository, dig.As(new(announcement.Repository))))
	must(c.Provide(docrepo.NewResultRepository, dig.As(new(result.Repository))))

	// services
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface))))
	must(c.Provide(newCenterService))
	must(c.Provide(student.NewService))
	must(c.Provide(faculty.NewService))
	must(c.Provide(subject.NewService))
	must(c.Provide(newEnrollmentService))
	must(c.Provide(newFeeService))
	must(c.Provide(announcement.NewService))
	must(c.Provide(newResultService))
	must(c.Provide(newDashboardService))
	must(c.Provide(newScheduler))

	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
