/*
Package shule is a school management backend.

Accounts have one of five roles (admin, school, teacher, student, parent) and log in
with a JWT that sends each role to its own dashboard. Schools manage their teachers,
students, parents, classes and timetable; teachers record exams and roll calls, and
attendance is scored into a percentage and a letter grade.

Binaries:
	apps/api	the HTTP API
	apps/admin	account and migration management
	apps/cli	shulectl, a client keeping the session on disk
*/
package shule
