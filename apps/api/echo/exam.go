package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/exam"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

var errExamNotFoundInCtx = errors.New("exam object not found in echo.Context")

type examApi struct {
	svc       exam.Service
	schoolSvc school.Service
}

func registerExamAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := examApi{
		svc:       deps.ExamSvc,
		schoolSvc: deps.SchoolSvc,
	}

	eg := g.Group("/exams", jwt)
	eg.POST("", api.create, staffMiddleware())
	eg.GET("", api.query)

	// detail endpoints
	dg := eg.Group("/:id", examMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.DELETE("", api.destroy, staffMiddleware())
	dg.POST("/scores", api.recordScore, staffMiddleware())
	dg.GET("/scores", api.queryScores, staffMiddleware())

	g.GET("/students/:id/scores", api.studentScores, jwt, studentMiddleware(api.schoolSvc))
}

// examMiddleware loads the Exam of the `id` path param if it belongs to the context user's school.
func examMiddleware(svc exam.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			ex, err := svc.Get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding exam by ID")
			}
			if !belongsToSchool(claims, ex.SchoolID) {
				return errHttpNotFound
			}
			ctx.Set(contextObjectKey, ex)
			return next(ctx)
		}
	}
}

// Handlers

func (api *examApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var data exam.NewExam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExam")
	}
	data.SchoolID = scopedSchoolID(claims, data.SchoolID)
	if claims.Role == user.RoleTeacher {
		data.TeacherID = claims.TeacherID
	}

	ex, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating exam")
	}
	return ctx.JSON(http.StatusCreated, ex)
}

func (api *examApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	var filter exam.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []exam.Exam{})
	}
	filter.SchoolID = scopedSchoolID(claims, ctx.QueryParam("school_id"))
	if claims.Role == user.RoleStudent {
		// their group's exams only
		st, err := api.schoolSvc.GetStudent(ctx.Request().Context(), claims.StudentID)
		if err != nil {
			return errors.Wrap(err, "getting context student")
		}
		if st.GroupID == "" {
			return ctx.JSON(http.StatusOK, []exam.Exam{})
		}
		filter.GroupID = st.GroupID
	}

	exams, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying exams")
	}
	if exams == nil {
		exams = []exam.Exam{}
	}
	return ctx.JSON(http.StatusOK, exams)
}

func (api *examApi) retrieve(ctx echo.Context) error {
	ex, ok := ctx.Get(contextObjectKey).(exam.Exam)
	if !ok {
		return errors.Wrap(errExamNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *examApi) destroy(ctx echo.Context) error {
	ex, ok := ctx.Get(contextObjectKey).(exam.Exam)
	if !ok {
		return errors.Wrap(errExamNotFoundInCtx, "retrieving object from context")
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	// teachers may only delete their own exams
	if claims.Role == user.RoleTeacher && ex.TeacherID != claims.TeacherID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), ex.ID); err != nil {
		return errors.Wrap(err, "deleting exam")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *examApi) recordScore(ctx echo.Context) error {
	ex, ok := ctx.Get(contextObjectKey).(exam.Exam)
	if !ok {
		return errors.Wrap(errExamNotFoundInCtx, "retrieving object from context")
	}
	var data exam.NewScore
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewScore")
	}

	score, err := api.svc.RecordScore(ctx.Request().Context(), ex.ID, data)
	if err != nil {
		return errors.Wrap(err, "recording score")
	}
	return ctx.JSON(http.StatusOK, score)
}

func (api *examApi) queryScores(ctx echo.Context) error {
	ex, ok := ctx.Get(contextObjectKey).(exam.Exam)
	if !ok {
		return errors.Wrap(errExamNotFoundInCtx, "retrieving object from context")
	}
	scores, err := api.svc.QueryScores(ctx.Request().Context(), ex.ID)
	if err != nil {
		return errors.Wrap(err, "querying scores")
	}
	if scores == nil {
		scores = []exam.Score{}
	}
	return ctx.JSON(http.StatusOK, scores)
}

func (api *examApi) studentScores(ctx echo.Context) error {
	st, ok := ctx.Get(contextObjectKey).(school.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}
	scores, err := api.svc.StudentScores(ctx.Request().Context(), st.ID)
	if err != nil {
		return errors.Wrap(err, "querying student scores")
	}
	if scores == nil {
		scores = []exam.Score{}
	}
	return ctx.JSON(http.StatusOK, scores)
}
