package dig_container

import (
	"context"
	"fmt"
	"log"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	metricsvc "github.com/trezcool/shule/services/metrics"
	"github.com/trezcool/shule/storage/cache"
	"github.com/trezcool/shule/storage/database"
	pgrepos "github.com/trezcool/shule/storage/database/postgres"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams gathers everything the API server is built upon.
type ServerParams struct {
	dig.In
	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	Blacklist     core.TokenBlacklist
	Metrics       *metricsvc.Metrics
	UserSvc       user.Service
	SchoolSvc     school.Service
	ExamSvc       exam.Service
	AttendanceSvc attendance.Service
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger("API", conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger("DB", conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

// newBlacklist keeps revoked tokens in Redis, or in memory when Redis cannot be reached.
func newBlacklist(conf *core.Config, logger core.Logger) core.TokenBlacklist {
	rdb, err := cache.NewRedisClient(context.Background(), conf)
	if err != nil {
		logger.Error(fmt.Sprintf("redis unavailable, revoked tokens are kept in memory: %v", err), err)
		return cache.NewMemoryBlacklist()
	}
	return cache.NewRedisBlacklist(rdb)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Deps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		Blacklist:     p.Blacklist,
		Metrics:       p.Metrics,
		UserSvc:       p.UserSvc,
		SchoolSvc:     p.SchoolSvc,
		ExamSvc:       p.ExamSvc,
		AttendanceSvc: p.AttendanceSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newBlacklist))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(metricsvc.New))

	must(c.Provide(pgrepos.NewUserRepository))
	must(c.Provide(pgrepos.NewSchoolRepository))
	must(c.Provide(pgrepos.NewExamRepository))
	must(c.Provide(pgrepos.NewAttendanceRepository))

	must(c.Provide(user.NewService))
	must(c.Provide(school.NewService))
	must(c.Provide(exam.NewService))
	must(c.Provide(attendance.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
