// Package web is the server-rendered HTML surface: the todo list forms plus
// the account pages (login, registration, password change). It drives the
// item store exclusively through the ownership guard, exactly like the JSON
// API.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todoweb/domain"
	"todoweb/guard"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	sessionName   = "todoweb_session"
	sessionMaxAge = 14 * 24 * 60 * 60
)

// Guard is the owner-scoped item access the handlers run on.
type Guard interface {
	Create(ctx context.Context, requesterID string, sub guard.Submission) (domain.Item, error)
	Get(ctx context.Context, requesterID, id string) (domain.Item, error)
	Update(ctx context.Context, requesterID, id string, sub guard.Submission) (domain.Item, error)
	Delete(ctx context.Context, requesterID, id string) error
	List(ctx context.Context, requesterID string, order domain.Order) ([]domain.Item, error)
}

// Accounts is the slice of the auth service the HTML flow needs.
type Accounts interface {
	Authenticate(ctx context.Context, username, password string) (domain.User, error)
	Register(ctx context.Context, username, password string) (domain.User, error)
	ChangePassword(ctx context.Context, userID, current, replacement string) error
}

// Server holds the HTML flow's collaborators.
type Server struct {
	guard    Guard
	accounts Accounts
	logger   *log.Logger
}

// Register wires the HTML routes, the template renderer and the cookie
// session middleware on the provided Echo instance.
func Register(e *echo.Echo, g Guard, accounts Accounts, sessionSecret []byte, logger *log.Logger) {
	store := sessions.NewCookieStore(sessionSecret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))
	e.Renderer = newRenderer()

	s := &Server{guard: g, accounts: accounts, logger: logger}

	e.GET("/", s.home)
	e.GET("/login/", s.loginForm)
	e.POST("/login/", s.login)
	e.GET("/logout/", s.logout)
	e.GET("/register/", s.registerForm)
	e.POST("/register/", s.register)
	e.GET("/password/change/", s.passwordForm, s.requireLogin)
	e.POST("/password/change/", s.changePassword, s.requireLogin)
	e.GET("/password/change/done", s.passwordDone, s.requireLogin)

	todo := e.Group("/todo", s.requireLogin)
	todo.GET("/", s.index)
	todo.GET("/add/", s.addForm)
	todo.POST("/add/", s.add)
	todo.GET("/:id/edit/", s.editForm)
	todo.POST("/:id/edit/", s.edit)
	todo.POST("/:id/delete/", s.delete)
}

// requireLogin redirects anonymous requests to the login page and stashes
// the session identity on the context for handlers.
func (s *Server) requireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess, err := session.Get(sessionName, c)
		if err != nil {
			return c.Redirect(http.StatusFound, "/login/")
		}
		userID, _ := sess.Values["user_id"].(string)
		if userID == "" {
			return c.Redirect(http.StatusFound, "/login/")
		}
		username, _ := sess.Values["username"].(string)
		c.Set(ctxUserID, userID)
		c.Set(ctxUsername, username)
		return next(c)
	}
}

const (
	ctxUserID   = "web.user_id"
	ctxUsername = "web.username"
)

func requesterID(c echo.Context) string {
	id, _ := c.Get(ctxUserID).(string)
	return id
}

func requesterName(c echo.Context) string {
	name, _ := c.Get(ctxUsername).(string)
	return name
}

func (s *Server) signIn(c echo.Context, user domain.User) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["user_id"] = user.ID
	sess.Values["username"] = user.Username
	return sess.Save(c.Request(), c.Response())
}

func (s *Server) signOut(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, "user_id")
	delete(sess.Values, "username")
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

func sessionUserID(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	id, _ := sess.Values["user_id"].(string)
	return id
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() *renderer {
	names := []string{"home", "index", "item", "login", "register", "password", "password_done"}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		pages[name] = template.Must(template.ParseFS(templateFS,
			"templates/layout.tmpl", "templates/"+name+".tmpl"))
	}
	return &renderer{pages: pages}
}

func (r *renderer) Render(w io.Writer, name string, data any, c echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
