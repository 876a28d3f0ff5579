package echoapi

import (
	"bytes"
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	reportsvc "github.com/trezcool/shule/services/report"
)

// maxRosterSize caps the size of uploaded roster files.
const maxRosterSize = 5 << 20

type schoolApi struct {
	svc school.Service
}

func registerSchoolAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps Deps) {
	api := schoolApi{svc: deps.SchoolSvc}

	sg := g.Group("/schools", jwt)
	sg.POST("", api.create, adminMiddleware())
	sg.GET("", api.query, adminMiddleware())

	// school endpoints
	dg := sg.Group("/:schoolId", schoolMiddleware(api.svc))
	dg.GET("", api.retrieve)

	dg.POST("/admins", api.createSchoolAdmin, adminMiddleware())
	dg.GET("/teachers", api.queryTeachers, staffMiddleware())
	dg.POST("/teachers", api.createTeacher, managerMiddleware())
	dg.GET("/students", api.queryStudents, roleMiddleware(user.RoleAdmin, user.RoleSchool, user.RoleTeacher, user.RoleParent))
	dg.POST("/students", api.createStudent, managerMiddleware())
	dg.POST("/students/import", api.importStudents, managerMiddleware())
	dg.GET("/students/export", api.exportStudents, staffMiddleware())
	dg.GET("/parents", api.queryParents, staffMiddleware())
	dg.POST("/parents", api.createParent, managerMiddleware())

	dg.GET("/grades", api.queryGrades)
	dg.POST("/grades", api.createGrade, managerMiddleware())
	dg.GET("/groups", api.queryGroups)
	dg.POST("/groups", api.createGroup, managerMiddleware())
	dg.GET("/lessons", api.queryLessons)
	dg.POST("/lessons", api.createLesson, managerMiddleware())
	dg.GET("/schedules", api.querySchedules)
	dg.POST("/schedules", api.createSchedule, managerMiddleware())

	// the web client's teachers list
	g.GET("/teachers/:schoolId/teachersList", api.queryTeachers, jwt, schoolMiddleware(api.svc), staffMiddleware())
	g.POST("/teachers/:schoolId/teachersList", api.createTeacher, jwt, schoolMiddleware(api.svc), managerMiddleware())

	g.GET("/students/:id", api.retrieveStudent, jwt, studentMiddleware(api.svc))
}

// Handlers

func (api *schoolApi) create(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	sch, err := api.svc.CreateSchool(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

func (api *schoolApi) query(ctx echo.Context) error {
	schools, err := api.svc.QuerySchools(ctx.Request().Context(), ctx.QueryParam("search"))
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *schoolApi) retrieve(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, sch)
}

// bindMember binds the request to a NewMember of the context School.
func bindMember(ctx echo.Context) (string, school.NewMember, error) {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return "", school.NewMember{}, err
	}
	var data school.NewMember
	if err := ctx.Bind(&data); err != nil {
		return "", school.NewMember{}, errors.Wrap(err, "binding to NewMember")
	}
	return sch.ID, data, nil
}

func (api *schoolApi) createSchoolAdmin(ctx echo.Context) error {
	schoolID, data, err := bindMember(ctx)
	if err != nil {
		return err
	}
	admin, err := api.svc.CreateSchoolAdmin(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating school admin")
	}
	return ctx.JSON(http.StatusCreated, admin)
}

func (api *schoolApi) createTeacher(ctx echo.Context) error {
	schoolID, data, err := bindMember(ctx)
	if err != nil {
		return err
	}
	teacher, err := api.svc.CreateTeacher(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}
	return ctx.JSON(http.StatusCreated, teacher)
}

func (api *schoolApi) createStudent(ctx echo.Context) error {
	schoolID, data, err := bindMember(ctx)
	if err != nil {
		return err
	}
	student, err := api.svc.CreateStudent(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, student)
}

func (api *schoolApi) createParent(ctx echo.Context) error {
	schoolID, data, err := bindMember(ctx)
	if err != nil {
		return err
	}
	parent, err := api.svc.CreateParent(ctx.Request().Context(), schoolID, data)
	if err != nil {
		return errors.Wrap(err, "creating parent")
	}
	return ctx.JSON(http.StatusCreated, parent)
}

// bindPeopleFilter binds the query to a PeopleFilter of the context School.
func bindPeopleFilter(ctx echo.Context) (school.PeopleFilter, error) {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return school.PeopleFilter{}, err
	}
	var filter school.PeopleFilter
	if err := ctx.Bind(&filter); err != nil {
		return school.PeopleFilter{}, errors.Wrap(err, "binding to PeopleFilter")
	}
	filter.SchoolID = sch.ID
	return filter, nil
}

func (api *schoolApi) queryTeachers(ctx echo.Context) error {
	filter, err := bindPeopleFilter(ctx)
	if err != nil {
		return err
	}
	teachers, err := api.svc.QueryTeachers(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying teachers")
	}
	if teachers == nil {
		teachers = []school.Teacher{}
	}
	return ctx.JSON(http.StatusOK, teachers)
}

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	filter, err := bindPeopleFilter(ctx)
	if err != nil {
		return err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	if claims.Role == user.RoleParent {
		filter.ParentID = claims.ParentID // their children only
	}

	students, err := api.svc.QueryStudents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) queryParents(ctx echo.Context) error {
	filter, err := bindPeopleFilter(ctx)
	if err != nil {
		return err
	}
	parents, err := api.svc.QueryParents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying parents")
	}
	if parents == nil {
		parents = []school.Parent{}
	}
	return ctx.JSON(http.StatusOK, parents)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	st, ok := ctx.Get(contextObjectKey).(school.Student)
	if !ok {
		return errors.New("student object not found in echo.Context")
	}
	return ctx.JSON(http.StatusOK, st)
}

// importStudents creates the students listed in the uploaded XLSX roster (multipart field `file`)
// and places them in the `group_id` group.
func (api *schoolApi) importStudents(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	groupID := core.CleanString(ctx.FormValue("group_id"))
	if groupID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "group_id", Error: "this field is required"})
	}

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "an xlsx file is required"})
	}
	if fh.Size > maxRosterSize {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "file is too large"})
	}
	src, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded roster")
	}
	defer src.Close()

	rows, err := reportsvc.ReadRoster(src)
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "file", Error: "invalid xlsx roster"})
	}
	res, err := api.svc.ImportStudents(ctx.Request().Context(), sch.ID, groupID, rows)
	if err != nil {
		return errors.Wrap(err, "importing students")
	}
	return ctx.JSON(http.StatusCreated, res)
}

// attachment is the Content-Disposition of a download named filename.
func attachment(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

// exportStudents sends the roster of the school (or of its `group_id` group) as an XLSX file.
func (api *schoolApi) exportStudents(ctx echo.Context) error {
	filter, err := bindPeopleFilter(ctx)
	if err != nil {
		return err
	}
	students, err := api.svc.QueryStudents(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}

	var buf bytes.Buffer
	if err = reportsvc.WriteRoster(&buf, students); err != nil {
		return errors.Wrap(err, "writing roster")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, attachment("roster.xlsx"))
	return ctx.Blob(http.StatusOK, reportsvc.ContentType, buf.Bytes())
}

// Classes

func (api *schoolApi) createGrade(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	var data school.NewGrade
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGrade")
	}
	grade, err := api.svc.CreateGrade(ctx.Request().Context(), sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating grade")
	}
	return ctx.JSON(http.StatusCreated, grade)
}

func (api *schoolApi) queryGrades(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	grades, err := api.svc.QueryGrades(ctx.Request().Context(), sch.ID)
	if err != nil {
		return errors.Wrap(err, "querying grades")
	}
	if grades == nil {
		grades = []school.Grade{}
	}
	return ctx.JSON(http.StatusOK, grades)
}

func (api *schoolApi) createGroup(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	var data school.NewGroup
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewGroup")
	}
	group, err := api.svc.CreateGroup(ctx.Request().Context(), sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating group")
	}
	return ctx.JSON(http.StatusCreated, group)
}

func (api *schoolApi) queryGroups(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	groups, err := api.svc.QueryGroups(ctx.Request().Context(), sch.ID, ctx.QueryParam("grade_id"))
	if err != nil {
		return errors.Wrap(err, "querying groups")
	}
	if groups == nil {
		groups = []school.Group{}
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *schoolApi) createLesson(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	var data school.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	lesson, err := api.svc.CreateLesson(ctx.Request().Context(), sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating lesson")
	}
	return ctx.JSON(http.StatusCreated, lesson)
}

func (api *schoolApi) queryLessons(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	lessons, err := api.svc.QueryLessons(ctx.Request().Context(), sch.ID)
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	if lessons == nil {
		lessons = []school.Lesson{}
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *schoolApi) createSchedule(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	var data school.NewSchedule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchedule")
	}
	slot, err := api.svc.CreateSchedule(ctx.Request().Context(), sch.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating schedule")
	}
	return ctx.JSON(http.StatusCreated, slot)
}

func (api *schoolApi) querySchedules(ctx echo.Context) error {
	sch, err := getContextSchool(ctx)
	if err != nil {
		return err
	}
	filter := school.ScheduleFilter{
		SchoolID:  sch.ID,
		GroupID:   core.CleanString(ctx.QueryParam("group_id")),
		TeacherID: core.CleanString(ctx.QueryParam("teacher_id")),
	}
	if wd, err := strconv.Atoi(ctx.QueryParam("weekday")); err == nil {
		filter.Weekday = &wd
	}

	slots, err := api.svc.QuerySchedules(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying schedules")
	}
	if slots == nil {
		slots = []school.Schedule{}
	}
	return ctx.JSON(http.StatusOK, slots)
}
