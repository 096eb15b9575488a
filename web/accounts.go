package web

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"todoweb/auth"
)

type loginPage struct {
	page
	FormUsername string
	Error        string
}

type registerPage struct {
	page
	Form   registerForm
	Errors map[string]string
}

type registerForm struct {
	Username string
}

type passwordPage struct {
	page
	Errors map[string]string
}

// home redirects signed-in users straight to their list.
func (s *Server) home(c echo.Context) error {
	if sessionUserID(c) != "" {
		return c.Redirect(http.StatusFound, "/todo/")
	}
	return c.Render(http.StatusOK, "home", page{})
}

func (s *Server) loginForm(c echo.Context) error {
	if sessionUserID(c) != "" {
		return c.Redirect(http.StatusFound, "/todo/")
	}
	return c.Render(http.StatusOK, "login", loginPage{})
}

func (s *Server) login(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	user, err := s.accounts.Authenticate(c.Request().Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.Render(http.StatusOK, "login", loginPage{
				FormUsername: username,
				Error:        "Your username and password didn't match. Please try again.",
			})
		}
		s.logger.WithError(err).Error("login")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	if err := s.signIn(c, user); err != nil {
		s.logger.WithError(err).Error("save session")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Redirect(http.StatusFound, "/todo/")
}

func (s *Server) logout(c echo.Context) error {
	if err := s.signOut(c); err != nil {
		s.logger.WithError(err).Error("clear session")
	}
	return c.Redirect(http.StatusFound, "/")
}

func (s *Server) registerForm(c echo.Context) error {
	return c.Render(http.StatusOK, "register", registerPage{})
}

func (s *Server) register(c echo.Context) error {
	username := c.FormValue("username")
	password1 := c.FormValue("password1")
	password2 := c.FormValue("password2")

	if password1 != password2 {
		return c.Render(http.StatusOK, "register", registerPage{
			Form:   registerForm{Username: username},
			Errors: map[string]string{"password": "the two password fields didn't match"},
		})
	}

	if _, err := s.accounts.Register(c.Request().Context(), username, password1); err != nil {
		if fields := fieldErrors(err); fields != nil {
			return c.Render(http.StatusOK, "register", registerPage{
				Form:   registerForm{Username: username},
				Errors: fields,
			})
		}
		s.logger.WithError(err).Error("register account")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Redirect(http.StatusFound, "/login/")
}

func (s *Server) passwordForm(c echo.Context) error {
	return c.Render(http.StatusOK, "password", passwordPage{page: page{Username: requesterName(c)}})
}

func (s *Server) changePassword(c echo.Context) error {
	current := c.FormValue("old_password")
	replacement := c.FormValue("new_password1")
	confirmation := c.FormValue("new_password2")

	if replacement != confirmation {
		return c.Render(http.StatusOK, "password", passwordPage{
			page:   page{Username: requesterName(c)},
			Errors: map[string]string{"new_password": "the two password fields didn't match"},
		})
	}

	if err := s.accounts.ChangePassword(c.Request().Context(), requesterID(c), current, replacement); err != nil {
		if fields := fieldErrors(err); fields != nil {
			return c.Render(http.StatusOK, "password", passwordPage{
				page:   page{Username: requesterName(c)},
				Errors: fields,
			})
		}
		s.logger.WithError(err).Error("change password")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Redirect(http.StatusFound, "/password/change/done")
}

func (s *Server) passwordDone(c echo.Context) error {
	return c.Render(http.StatusOK, "password_done", page{Username: requesterName(c)})
}
