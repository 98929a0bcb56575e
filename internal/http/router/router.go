// Package router assembles the application's route table.
//
//	GET  /login        login form            (public)
//	POST /login        authenticate          (public)
//	GET  /register     registration form     (public)
//	POST /register     create user           (public)
//	POST /logout       end session           (public)
//	GET  /             list students
//	POST /add          create student
//	GET  /edit/{id}    edit form
//	POST /edit/{id}    update student
//	GET  /delete/{id}  delete student
//
// Routes not marked public require a session.
package router

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/student-records/internal/auth"
	"github.com/aanand-mishra/student-records/internal/http/handlers/account"
	"github.com/aanand-mishra/student-records/internal/http/handlers/student"
	"github.com/aanand-mishra/student-records/internal/http/middleware"
	"github.com/aanand-mishra/student-records/internal/http/views"
	"github.com/aanand-mishra/student-records/internal/session"
	"github.com/aanand-mishra/student-records/internal/storage"
)

// Deps are the collaborators the handlers need.
type Deps struct {
	Students storage.Students
	Auth     *auth.Service
	Sessions *session.Manager
	Views    *views.Views
	Logger   *slog.Logger
	// AccessLog receives one combined-format line per request. Nil disables
	// access logging.
	AccessLog io.Writer
}

// New returns the fully wrapped application handler.
func New(d Deps) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /login", account.LoginForm(d.Sessions, d.Views))
	router.HandleFunc("POST /login", account.Login(d.Auth, d.Sessions, d.Views))
	router.HandleFunc("GET /register", account.RegisterForm(d.Sessions, d.Views))
	router.HandleFunc("POST /register", account.Register(d.Auth, d.Sessions, d.Views))
	router.HandleFunc("POST /logout", account.Logout(d.Sessions))

	protected := middleware.RequireSession(d.Sessions, d.Logger)
	router.Handle("GET /{$}", protected(student.List(d.Students, d.Sessions, d.Views)))
	router.Handle("POST /add", protected(student.Add(d.Students)))
	router.Handle("GET /edit/{id}", protected(student.EditForm(d.Students, d.Views)))
	router.Handle("POST /edit/{id}", protected(student.Update(d.Students)))
	router.Handle("GET /delete/{id}", protected(student.Delete(d.Students)))

	mw := []func(http.Handler) http.Handler{}
	if d.AccessLog != nil {
		mw = append(mw, middleware.AccessLog(d.AccessLog))
	}
	mw = append(mw, middleware.Recover(d.Logger))
	return middleware.Chain(router, mw...)
}
