package echoapi_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
	reportsvc "github.com/trezcool/shule/services/report"
	"github.com/trezcool/shule/tests"
)

func TestSchoolApi_create(t *testing.T) {
	a := setup(t)
	s := a.env.CreateSchool(t, "Lycée Wima", "wima-")
	admin := testutil.CreateUser(t, a.env.UserRepo, "Root", "root@test.cd", "", user.RoleAdmin, true)
	adminToken := a.token(t, admin)

	runHTTPTests(t, a, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/schools", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "Admin required", method: http.MethodPost, path: "/v1/schools", token: a.tokenOf(t, s.Admin.UserID),
			body: []byte(`{"name": "Institut Maria"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "name required", method: http.MethodPost, path: "/v1/schools", token: adminToken, body: []byte(`{"name": "  "}`),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"name": "this field is required"}),
		},
		{name: "list", path: "/v1/schools", token: adminToken, wantData: marshalList(t, s.School)},
	})

	rec := a.do(http.MethodPost, "/v1/schools", adminToken, []byte(`{"name": " Institut Maria ", "email": "INFO@maria.cd"}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sch school.School
	unmarshal(t, rec, &sch)
	assert.NotEmpty(t, sch.ID)
	assert.Equal(t, "Institut Maria", sch.Name)
	assert.Equal(t, "info@maria.cd", sch.Email)

	t.Run("school admin", func(t *testing.T) {
		body := marshalObj(t, school.NewMember{
			Name: "Mama Furaha", Email: "furaha@maria.cd", Password: testutil.Password, PasswordConfirm: testutil.Password,
		})
		rec := a.do(http.MethodPost, "/v1/schools/"+sch.ID+"/admins", adminToken, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		rec = a.do(http.MethodPost, "/v1/users/login", "", loginBody(t, "furaha@maria.cd", testutil.Password))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `"redirect":"/school"`)
	})
}

func TestSchoolApi_access(t *testing.T) {
	a := setup(t)
	s := a.env.CreateSchool(t, "Lycée Wima", "wima-")
	other := a.env.CreateSchool(t, "Institut Maria", "maria-")

	headToken := a.tokenOf(t, s.Admin.UserID)
	teacherToken := a.tokenOf(t, s.Teacher.UserID)
	studentToken := a.tokenOf(t, s.Students[0].UserID)
	parentToken := a.tokenOf(t, s.Parent.UserID)
	otherToken := a.tokenOf(t, other.Admin.UserID)
	schoolPath := "/v1/schools/" + s.School.ID

	runHTTPTests(t, a, []httpTest{
		{name: "own school", path: schoolPath, token: studentToken, wantData: marshalObj(t, s.School)},
		{name: "other school hidden", path: schoolPath, token: otherToken, wantCode: http.StatusNotFound},
		{name: "unknown school", path: "/v1/schools/" + testutil.NewID(), token: headToken, wantCode: http.StatusNotFound},
		{name: "teachers (teacher)", path: schoolPath + "/teachers", token: teacherToken, wantData: marshalList(t, s.Teacher)},
		{name: "teachers (student)", path: schoolPath + "/teachers", token: studentToken, wantCode: http.StatusForbidden},
		{name: "teachers (other school)", path: schoolPath + "/teachers", token: otherToken, wantCode: http.StatusNotFound},
		{name: "students (teacher)", path: schoolPath + "/students", token: teacherToken, wantData: marshalList(t, s.Students[0], s.Students[1])},
		{name: "students (parent)", path: schoolPath + "/students", token: parentToken, wantData: marshalList(t, s.Students[0])},
		{name: "students (student)", path: schoolPath + "/students", token: studentToken, wantCode: http.StatusForbidden},
		{name: "students search", path: schoolPath + "/students?search=tumaini", token: headToken, wantData: marshalList(t, s.Students[1])},
		{name: "parents", path: schoolPath + "/parents", token: headToken, wantData: marshalList(t, s.Parent)},
		{name: "parents (parent)", path: schoolPath + "/parents", token: parentToken, wantCode: http.StatusForbidden},
		{name: "grades", path: schoolPath + "/grades", token: studentToken, wantData: marshalList(t, s.Grade)},
		{name: "groups", path: schoolPath + "/groups", token: parentToken, wantData: marshalList(t, s.Group)},
		{name: "lessons", path: schoolPath + "/lessons", token: teacherToken, wantData: marshalList(t, s.Lesson)},
		{
			name: "create teacher (teacher)", method: http.MethodPost, path: schoolPath + "/teachers", token: teacherToken,
			body: []byte(`{}`), wantCode: http.StatusForbidden,
		},
		{
			name: "create grade (other school)", method: http.MethodPost, path: schoolPath + "/grades", token: otherToken,
			body: []byte(`{"level": 8, "name": "Grade 8"}`), wantCode: http.StatusNotFound,
		},
	})
}

func TestSchoolApi_teachersList(t *testing.T) {
	a := setup(t)
	s := a.env.CreateSchool(t, "Lycée Wima", "wima-")
	other := a.env.CreateSchool(t, "Institut Maria", "maria-")
	path := "/v1/teachers/" + s.School.ID + "/teachersList"

	runHTTPTests(t, a, []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "own school", path: path, token: a.tokenOf(t, s.Admin.UserID), wantData: marshalList(t, s.Teacher)},
		{name: "other school", path: path, token: a.tokenOf(t, other.Admin.UserID), wantCode: http.StatusNotFound},
	})

	body := marshalObj(t, school.NewMember{
		Name: "Furaha Mbuyi", Email: "furaha@wima.cd", Subject: "French",
		Password: testutil.Password, PasswordConfirm: testutil.Password,
	})
	rec := a.do(http.MethodPost, path, a.tokenOf(t, s.Admin.UserID), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var teacher school.Teacher
	unmarshal(t, rec, &teacher)
	assert.Equal(t, s.School.ID, teacher.SchoolID)
	assert.Equal(t, "French", teacher.Subject)

	rec = a.do(http.MethodGet, path, a.tokenOf(t, s.Teacher.UserID))
	require.Equal(t, http.StatusOK, rec.Code)
	var teachers []school.Teacher
	unmarshal(t, rec, &teachers)
	assert.Len(t, teachers, 2)
}

func TestSchoolApi_retrieveStudent(t *testing.T) {
	a := setup(t)
	s := a.env.CreateSchool(t, "Lycée Wima", "wima-")
	other := a.env.CreateSchool(t, "Institut Maria", "maria-")
	neema, tumaini := s.Students[0], s.Students[1]

	runHTTPTests(t, a, []httpTest{
		{name: "parent's child", path: "/v1/students/" + neema.ID, token: a.tokenOf(t, s.Parent.UserID), wantData: marshalObj(t, neema)},
		{name: "not parent's child", path: "/v1/students/" + tumaini.ID, token: a.tokenOf(t, s.Parent.UserID), wantCode: http.StatusNotFound},
		{name: "themself", path: "/v1/students/" + tumaini.ID, token: a.tokenOf(t, tumaini.UserID), wantData: marshalObj(t, tumaini)},
		{name: "classmate", path: "/v1/students/" + neema.ID, token: a.tokenOf(t, tumaini.UserID), wantCode: http.StatusNotFound},
		{name: "teacher", path: "/v1/students/" + tumaini.ID, token: a.tokenOf(t, s.Teacher.UserID), wantData: marshalObj(t, tumaini)},
		{name: "other school", path: "/v1/students/" + neema.ID, token: a.tokenOf(t, other.Teacher.UserID), wantCode: http.StatusNotFound},
	})
}

func TestSchoolApi_schedules(t *testing.T) {
	a := setup(t)
	s := a.env.CreateSchool(t, "Lycée Wima", "wima-")
	path := "/v1/schools/" + s.School.ID + "/schedules"
	headToken := a.tokenOf(t, s.Admin.UserID)

	post := func(weekday int, start, end string) *httptest.ResponseRecorder {
		return a.do(http.MethodPost, path, headToken, marshalObj(t, school.NewSchedule{
			GroupID: s.Group.ID, LessonID: s.Lesson.ID, Weekday: weekday, StartTime: start, EndTime: end,
		}))
	}
	rec := post(2, "10:00", "11:00")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = post(1, "08:00", "09:30")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = post(1, "11:00", "10:00")
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	rec = a.do(http.MethodGet, path+"?group_id="+s.Group.ID, a.tokenOf(t, s.Students[0].UserID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var slots []school.Schedule
	unmarshal(t, rec, &slots)
	require.Len(t, slots, 2)
	assert.Equal(t, "08:00", slots[0].StartTime)
	assert.Equal(t, "10:00", slots[1].StartTime)

	rec = a.do(http.MethodGet, path+"?weekday=2", headToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	unmarshal(t, rec, &slots)
	require.Len(t, slots, 1)
	assert.Equal(t, "10:00", slots[0].StartTime)
}

func newUploadRequest(t *testing.T, path, token, groupID string, file []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("group_id", groupID))
	fw, err := mw.CreateFormFile("file", "roster.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(file)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestSchoolApi_importExportStudents(t *testing.T) {
	a := setup(t)
	s := a.env.CreateSchool(t, "Lycée Wima", "wima-")
	headToken := a.tokenOf(t, s.Admin.UserID)
	basePath := "/v1/schools/" + s.School.ID + "/students"

	var roster bytes.Buffer
	require.NoError(t, reportsvc.WriteRoster(&roster, []school.Student{
		{Name: "Jabali Kasongo", Email: "jabali@wima.cd", BirthDate: "2012-01-09"},
		{Name: "Neema Ilunga", Email: "wima-neema@test.cd"}, // already enrolled
		{Name: "Imani Kabila", Email: "IMANI@wima.cd"},
	}))

	t.Run("managers only", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, newUploadRequest(t, basePath+"/import", a.tokenOf(t, s.Teacher.UserID), s.Group.ID, roster.Bytes()))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("invalid file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, newUploadRequest(t, basePath+"/import", headToken, s.Group.ID, []byte("name,email")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"file": "invalid xlsx roster"}`, rec.Body.String())
	})

	t.Run("unknown group", func(t *testing.T) {
		rec := httptest.NewRecorder()
		a.ServeHTTP(rec, newUploadRequest(t, basePath+"/import", headToken, testutil.NewID(), roster.Bytes()))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec := httptest.NewRecorder()
	a.ServeHTTP(rec, newUploadRequest(t, basePath+"/import", headToken, s.Group.ID, roster.Bytes()))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var res school.ImportResult
	unmarshal(t, rec, &res)
	require.Len(t, res.Created, 2)
	assert.Equal(t, "Jabali Kasongo", res.Created[0].Name)
	assert.Equal(t, "imani@wima.cd", res.Created[1].Email)
	for _, st := range res.Created {
		assert.Equal(t, s.Group.ID, st.GroupID)
	}
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 2, res.Skipped[0].Row)

	rec = a.do(http.MethodGet, basePath+"/export?group_id="+s.Group.ID, a.tokenOf(t, s.Teacher.UserID))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, reportsvc.ContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "roster.xlsx")

	rows, err := reportsvc.ReadRoster(rec.Body)
	require.NoError(t, err)
	emails := make([]string, 0, len(rows))
	for _, row := range rows {
		emails = append(emails, row.Email)
	}
	assert.ElementsMatch(t, []string{"wima-neema@test.cd", "wima-tumaini@test.cd", "jabali@wima.cd", "imani@wima.cd"}, emails)
}
