package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"todoweb/domain"
	"todoweb/guard"
)

const dateFormat = "2006-01-02"

type page struct {
	Username string
}

type itemRow struct {
	ID       string
	Name     string
	Notes    string
	Priority string
	Created  string
	Due      string
	Done     bool
}

type indexPage struct {
	page
	Items []itemRow
	Order string
}

// itemForm keeps the raw submitted values so a rejected form redisplays
// exactly what the user typed.
type itemForm struct {
	Name     string
	Notes    string
	Priority string
	Due      string
	Done     bool
}

type priorityOption struct {
	Value    string
	Label    string
	Selected bool
}

type itemFormPage struct {
	page
	Title      string
	Action     string
	Form       itemForm
	Errors     map[string]string
	Priorities []priorityOption
}

func itemFormFromRequest(c echo.Context) itemForm {
	return itemForm{
		Name:     c.FormValue("name"),
		Notes:    c.FormValue("notes"),
		Priority: c.FormValue("priority"),
		Due:      c.FormValue("due"),
		Done:     c.FormValue("done") != "",
	}
}

func itemFormFromItem(item domain.Item) itemForm {
	f := itemForm{
		Name:     item.Name,
		Notes:    item.Notes,
		Priority: strconv.Itoa(int(item.Priority)),
		Done:     item.Done,
	}
	if item.Due != nil {
		f.Due = item.Due.Format(dateFormat)
	}
	return f
}

// submission parses the form values. Parse failures come back as field
// errors so they render next to the offending input, same as validation
// failures from the guard.
func (f itemForm) submission() (guard.Submission, *domain.ValidationError) {
	errs := &domain.ValidationError{}
	sub := guard.Submission{
		ItemFields: domain.ItemFields{
			Name:     f.Name,
			Notes:    f.Notes,
			Priority: domain.DefaultPriority,
			Done:     f.Done,
		},
	}
	if f.Priority != "" {
		n, err := strconv.Atoi(f.Priority)
		if err != nil {
			errs.Add("priority", "unknown priority")
		} else {
			sub.Priority = domain.Priority(n)
		}
	}
	if f.Due != "" {
		due, err := time.Parse(dateFormat, f.Due)
		if err != nil {
			errs.Add("due", "invalid date, expected YYYY-MM-DD")
		} else {
			sub.Due = &due
		}
	}
	if len(errs.Fields) > 0 {
		return guard.Submission{}, errs
	}
	return sub, nil
}

func (f itemForm) priorityOptions() []priorityOption {
	selected := f.Priority
	if selected == "" {
		selected = strconv.Itoa(int(domain.DefaultPriority))
	}
	opts := make([]priorityOption, 0, 4)
	for p := domain.PriorityUrgent; p <= domain.PriorityLow; p++ {
		value := strconv.Itoa(int(p))
		opts = append(opts, priorityOption{Value: value, Label: p.String(), Selected: value == selected})
	}
	return opts
}

func fieldErrors(err error) map[string]string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}

func (s *Server) index(c echo.Context) error {
	order := domain.ParseOrder(c.QueryParam("order"))
	items, err := s.guard.List(c.Request().Context(), requesterID(c), order)
	if err != nil {
		s.logger.WithError(err).Error("list items")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}

	rows := make([]itemRow, 0, len(items))
	for _, item := range items {
		row := itemRow{
			ID:       item.ID,
			Name:     item.Name,
			Notes:    item.Notes,
			Priority: item.Priority.String(),
			Created:  item.Created.Format(dateFormat),
			Done:     item.Done,
		}
		if item.Due != nil {
			row.Due = item.Due.Format(dateFormat)
		}
		rows = append(rows, row)
	}
	return c.Render(http.StatusOK, "index", indexPage{
		page:  page{Username: requesterName(c)},
		Items: rows,
		Order: string(order),
	})
}

func (s *Server) addForm(c echo.Context) error {
	return s.renderItemForm(c, http.StatusOK, "Add an item", "/todo/add/", itemForm{}, nil)
}

func (s *Server) add(c echo.Context) error {
	form := itemFormFromRequest(c)
	sub, perr := form.submission()
	if perr != nil {
		return s.renderItemForm(c, http.StatusOK, "Add an item", "/todo/add/", form, perr.Fields)
	}

	if _, err := s.guard.Create(c.Request().Context(), requesterID(c), sub); err != nil {
		if fields := fieldErrors(err); fields != nil {
			return s.renderItemForm(c, http.StatusOK, "Add an item", "/todo/add/", form, fields)
		}
		s.logger.WithError(err).Error("create item")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Redirect(http.StatusFound, "/todo/")
}

func (s *Server) editForm(c echo.Context) error {
	item, err := s.guard.Get(c.Request().Context(), requesterID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		s.logger.WithError(err).Error("load item")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	action := "/todo/" + item.ID + "/edit/"
	return s.renderItemForm(c, http.StatusOK, "Edit item", action, itemFormFromItem(item), nil)
}

func (s *Server) edit(c echo.Context) error {
	id := c.Param("id")
	action := "/todo/" + id + "/edit/"
	form := itemFormFromRequest(c)
	sub, perr := form.submission()
	if perr != nil {
		return s.renderItemForm(c, http.StatusOK, "Edit item", action, form, perr.Fields)
	}

	if _, err := s.guard.Update(c.Request().Context(), requesterID(c), id, sub); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}
		if fields := fieldErrors(err); fields != nil {
			return s.renderItemForm(c, http.StatusOK, "Edit item", action, form, fields)
		}
		s.logger.WithError(err).Error("update item")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Redirect(http.StatusFound, "/todo/")
}

// delete is idempotent: a missing or foreign id resolves as a no-op and the
// user lands back on the list either way.
func (s *Server) delete(c echo.Context) error {
	err := s.guard.Delete(c.Request().Context(), requesterID(c), c.Param("id"))
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.WithError(err).Error("delete item")
		return echo.NewHTTPError(http.StatusInternalServerError)
	}
	return c.Redirect(http.StatusFound, "/todo/")
}

func (s *Server) renderItemForm(c echo.Context, status int, title, action string, form itemForm, errs map[string]string) error {
	return c.Render(status, "item", itemFormPage{
		page:       page{Username: requesterName(c)},
		Title:      title,
		Action:     action,
		Form:       form,
		Errors:     errs,
		Priorities: form.priorityOptions(),
	})
}
