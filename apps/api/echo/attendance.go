package echoapi

import (
	"bytes"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	metricsvc "github.com/trezcool/shule/services/metrics"
	reportsvc "github.com/trezcool/shule/services/report"
)

type attendanceApi struct {
	svc       attendance.Service
	schoolSvc school.Service
	metrics   *metricsvc.Metrics
	validate  *validator.Validate
}

func registerAttendanceAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := attendanceApi{
		svc:       deps.AttendanceSvc,
		schoolSvc: deps.SchoolSvc,
		metrics:   deps.Metrics,
		validate:  deps.Validate,
	}

	ag := g.Group("/attendance", jwt)
	ag.POST("", api.mark, staffMiddleware())
	ag.GET("", api.query)
	ag.GET("/students/:id/summary", api.studentSummary, studentMiddleware(api.schoolSvc))

	gg := ag.Group("/groups/:id", staffMiddleware(), groupMiddleware(api.schoolSvc))
	gg.GET("/summary", api.groupSummary)
	gg.GET("/report", api.groupReport)
}

// groupMiddleware loads the Group of the `id` path param if it belongs to the context user's school.
func groupMiddleware(svc school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			group, err := svc.GetGroup(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding group by ID")
			}
			if !belongsToSchool(claims, group.SchoolID) {
				return errHttpNotFound
			}
			ctx.Set(contextObjectKey, group)
			return next(ctx)
		}
	}
}

// Handlers

func (api *attendanceApi) mark(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data attendance.MarkRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRequest")
	}
	data.SchoolID = scopedSchoolID(claims, data.SchoolID)

	records, err := api.svc.Mark(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "marking attendance")
	}
	if api.metrics != nil {
		for _, rec := range records {
			api.metrics.RecordAttendance(string(rec.Status))
		}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var filter attendance.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []attendance.Attendance{})
	}
	filter.SchoolID = scopedSchoolID(claims, ctx.QueryParam("school_id"))

	switch claims.Role {
	case user.RoleStudent:
		filter.StudentID = claims.StudentID
	case user.RoleParent:
		// a parent must pick one of their children
		st, err := api.schoolSvc.GetStudent(ctx.Request().Context(), core.CleanString(filter.StudentID))
		if err != nil && !core.IsNotFound(err) {
			return errors.Wrap(err, "getting student")
		}
		if err != nil || !canViewStudent(claims, st) {
			return errHttpForbidden
		}
	}

	records, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying attendances")
	}
	if records == nil {
		records = []attendance.Attendance{}
	}
	return ctx.JSON(http.StatusOK, records)
}

func (api *attendanceApi) bindPeriod(ctx echo.Context) (Period, error) {
	var period Period
	period.Bind(ctx)
	if err := api.validate.Struct(period); err != nil {
		return Period{}, err
	}
	return period, nil
}

func (api *attendanceApi) studentSummary(ctx echo.Context) error {
	st, ok := ctx.Get(contextObjectKey).(school.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}
	period, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}

	sum, err := api.svc.StudentSummary(ctx.Request().Context(), st.ID, period.From, period.To)
	if err != nil {
		return errors.Wrap(err, "summarizing student attendance")
	}
	return ctx.JSON(http.StatusOK, sum)
}

func (api *attendanceApi) groupSummary(ctx echo.Context) error {
	group, ok := ctx.Get(contextObjectKey).(school.Group)
	if !ok {
		return errors.New("group object not found in echo.Context")
	}
	period, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}

	sums, err := api.svc.GroupSummary(ctx.Request().Context(), group.ID, period.From, period.To)
	if err != nil {
		return errors.Wrap(err, "summarizing group attendance")
	}
	return ctx.JSON(http.StatusOK, sums)
}

// groupReport sends the group's attendance summary and records as an XLSX file.
func (api *attendanceApi) groupReport(ctx echo.Context) error {
	group, ok := ctx.Get(contextObjectKey).(school.Group)
	if !ok {
		return errors.New("group object not found in echo.Context")
	}
	period, err := api.bindPeriod(ctx)
	if err != nil {
		return err
	}

	sums, err := api.svc.GroupSummary(ctx.Request().Context(), group.ID, period.From, period.To)
	if err != nil {
		return errors.Wrap(err, "summarizing group attendance")
	}
	records, err := api.svc.Query(ctx.Request().Context(), attendance.Filter{GroupID: group.ID, From: period.From, To: period.To})
	if err != nil {
		return errors.Wrap(err, "querying attendances")
	}

	var buf bytes.Buffer
	if err = reportsvc.WriteAttendance(&buf, sums, records); err != nil {
		return errors.Wrap(err, "writing attendance report")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, attachment("attendance-"+group.Name+".xlsx"))
	return ctx.Blob(http.StatusOK, reportsvc.ContentType, buf.Bytes())
}
