package http

import (
	"database/sql"

	"github.com/go-chi/chi/v5"

	authmw "github.com/hackmathlogic/hackmath/internal/auth/middleware"
	"github.com/hackmathlogic/hackmath/internal/content"
	"github.com/hackmathlogic/hackmath/internal/exam"
	"github.com/hackmathlogic/hackmath/internal/rbac"
	syncx "github.com/hackmathlogic/hackmath/internal/sync"
)

type Deps struct {
	DB       *sql.DB
	Content  content.Store
	Exams    *exam.Service
	Events   *syncx.EventRepo
	Sessions Sessions
}

// Mount registers the application routes on r. Every request is
// authenticated if it can be; the access gate on each route decides.
func Mount(r chi.Router, d Deps) {
	tests := d.Exams.Store()

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.Authenticate(d.Sessions.Auth, d.Sessions.Revoker))
		pr.Use(authmw.AttachProfile(d.DB))

		pr.Post("/auth/register", d.Sessions.RegisterHandler())
		pr.Post("/auth/login", d.Sessions.LoginHandler())
		pr.Post("/auth/logout", d.Sessions.LogoutHandler())

		view := pr.With(rbac.Require(rbac.ContentView))
		author := pr.With(rbac.Require(rbac.ContentAuthor))
		run := pr.With(rbac.Require(rbac.TestRun))
		admin := pr.With(rbac.Require(rbac.UsersManage))

		// themes
		view.Get("/themes", ListThemesHandler(d.Content))
		author.Post("/themes", CreateThemeHandler(d.Content))
		view.Get("/themes/{themeID}", GetThemeHandler(d.Content))
		author.Put("/themes/{themeID}", UpdateThemeHandler(d.Content))
		author.Delete("/themes/{themeID}", DeleteThemeHandler(d.Content))

		// subthemes (with their article)
		const st = "/themes/{themeID}/subthemes"
		author.Post(st, CreateSubThemeHandler(d.Content))
		view.Get(st+"/{subthemeID}", GetSubThemeHandler(d.Content, tests))
		author.Put(st+"/{subthemeID}", UpdateSubThemeHandler(d.Content))
		author.Delete(st+"/{subthemeID}", DeleteSubThemeHandler(d.Content))

		// tests
		const ts = st + "/{subthemeID}/tests"
		view.Get(ts, ListTestsHandler(tests))
		author.Post(ts, CreateTestHandler(tests))
		view.Get(ts+"/{testID}", GetTestHandler(tests))
		author.Put(ts+"/{testID}", UpdateTestHandler(tests))
		author.Delete(ts+"/{testID}", DeleteTestHandler(tests))
		run.Get(ts+"/{testID}/run", TestFormHandler(d.Exams))
		run.Post(ts+"/{testID}/run", SubmitTestHandler(d.Exams))

		// questions
		const qs = ts + "/{testID}/questions"
		author.Post(qs, CreateQuestionHandler(tests))
		author.Get(qs+"/{questionID}", GetQuestionHandler(tests))
		author.Put(qs+"/{questionID}", UpdateQuestionHandler(tests))
		author.Delete(qs+"/{questionID}", DeleteQuestionHandler(tests))

		// answer variants
		const as = qs + "/{questionID}/answers"
		author.Post(as, CreateAnswerHandler(tests))
		author.Get(as+"/{answerID}", GetAnswerHandler(tests))
		author.Put(as+"/{answerID}", UpdateAnswerHandler(tests))
		author.Delete(as+"/{answerID}", DeleteAnswerHandler(tests))

		// own account
		pr.With(rbac.Require(rbac.ResultsOwn)).Get("/me/results", MyResultsHandler(d.Exams))
		pr.With(rbac.Require(rbac.AccountSelf)).Post("/users/change-password", d.Sessions.ChangePasswordHandler())

		// administration
		admin.Get("/users", ListUsersHandler(d.Sessions.Accounts))
		admin.Patch("/users/{userID}", UpdateUserHandler(d.Sessions.Accounts))
		if d.Events != nil {
			admin.Get("/events", EventsFeedHandler(d.Events))
		}
	})
}
