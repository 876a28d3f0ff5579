package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/auth"
	"github.com/trezcool/shule/core/school"
	"github.com/trezcool/shule/core/user"
)

var contextSchoolKey = "school"

// roleMiddleware only lets through the users having one of roles.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin)
}

// staffMiddleware lets through the users who run a school's classes.
func staffMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin, user.RoleSchool, user.RoleTeacher)
}

// managerMiddleware lets through the users who administer a school.
func managerMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(user.RoleAdmin, user.RoleSchool)
}

// schoolMiddleware loads the School of the `schoolId` path param.
// Users outside that school get a 404, as if it did not exist.
func schoolMiddleware(svc school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			id := ctx.Param("schoolId")
			if !belongsToSchool(claims, id) {
				return errHttpNotFound
			}
			sch, err := svc.GetSchool(ctx.Request().Context(), id)
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding school by ID")
			}
			ctx.Set(contextSchoolKey, sch)
			return next(ctx)
		}
	}
}

func getContextSchool(ctx echo.Context) (school.School, error) {
	if sch, ok := ctx.Get(contextSchoolKey).(school.School); ok {
		return sch, nil
	}
	return school.School{}, errors.New("school object not found in echo.Context")
}

// Access rules

func isAdmin(claims auth.Claims) bool {
	return claims.Role == user.RoleAdmin
}

func belongsToSchool(claims auth.Claims, schoolID string) bool {
	return isAdmin(claims) || (schoolID != "" && claims.SchoolID == schoolID)
}

// scopedSchoolID returns the school a request is about: admins may pick any, others are bound to theirs.
func scopedSchoolID(claims auth.Claims, requested string) string {
	if isAdmin(claims) {
		return core.CleanString(requested)
	}
	return claims.SchoolID
}

// canViewStudent reports whether the claims' owner may read st's records.
// Staff see their school's students, parents their children and students themselves.
func canViewStudent(claims auth.Claims, st school.Student) bool {
	switch claims.Role {
	case user.RoleAdmin:
		return true
	case user.RoleSchool, user.RoleTeacher:
		return claims.SchoolID == st.SchoolID
	case user.RoleParent:
		return st.ParentID != "" && claims.ParentID == st.ParentID
	case user.RoleStudent:
		return claims.StudentID == st.ID
	}
	return false
}

// studentMiddleware loads the Student of the `id` path param if the context user may view them.
func studentMiddleware(svc school.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			st, err := svc.GetStudent(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if core.IsNotFound(err) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding student by ID")
			}
			if !canViewStudent(claims, st) {
				return errHttpNotFound
			}
			ctx.Set(contextObjectKey, st)
			return next(ctx)
		}
	}
}
