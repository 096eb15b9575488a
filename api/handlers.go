package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todoweb/domain"
)

const requestBodyMaxSize = 1 << 20

// Register wires the JSON API routes on the provided Echo instance. Echo
// answers unregistered methods on known paths with 405, which covers the
// collection-delete and detail-create prohibitions.
func Register(e *echo.Echo, g Guard, auth Authenticator, tokens TokenIssuer, logger *log.Logger) {
	v1 := e.Group("/api/v1", GzipRequestMiddleware())
	v1.GET("/todo/", listItems(g, auth, logger))
	v1.POST("/todo/", createItem(g, auth))
	v1.GET("/todo/:id/", getItem(g, auth))
	v1.PUT("/todo/:id/", updateItem(g, auth))
	v1.DELETE("/todo/:id/", deleteItem(g, auth))
	v1.GET("/user/", listUsers(auth))
	v1.GET("/user/:id/", getUser(auth))
	v1.POST("/token", issueToken(auth, tokens))
	e.GET("/healthz", healthz())
}

type itemsResponse struct {
	Items []itemResource `json:"items"`
}

type usersResponse struct {
	Users []userResource `json:"users"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

func unauthorized(c echo.Context, err error) error {
	c.Response().Header().Set("WWW-Authenticate", `Basic realm="todoweb"`)
	return c.String(http.StatusUnauthorized, err.Error())
}

// writeError maps the domain error taxonomy to API status codes. Ownership
// violations surface as 400 so a rejected reassignment is indistinguishable
// from any other bad payload, and foreign ids read as 404.
func writeError(c echo.Context, err error) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": verr.Fields,
		})
	}
	var autherr *domain.AuthorizationError
	if errors.As(err, &autherr) {
		return c.JSON(http.StatusBadRequest, map[string]any{"error": autherr.Error()})
	}
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]any{"error": "not found"})
	}
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal error"})
}

func decodeItemPayload(c echo.Context) (itemPayload, error) {
	var payload itemPayload
	lr := io.LimitReader(c.Request().Body, requestBodyMaxSize)
	if err := sonic.ConfigStd.NewDecoder(lr).Decode(&payload); err != nil {
		return itemPayload{}, err
	}
	return payload, nil
}

func listItems(g Guard, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		user, authErr := auth.UserFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = unauthorized(c, authErr)
			return err
		}

		order := domain.ParseOrder(c.QueryParam("order"))
		metrics.SetOrder(string(order))

		fetchStart := time.Now()
		items, fetchErr := g.List(ctx, user.ID, order)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = writeError(c, fetchErr)
			return err
		}
		metrics.SetItemsReturned(len(items))

		resources := make([]itemResource, 0, len(items))
		for _, item := range items {
			resources = append(resources, itemToResource(item))
		}
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, itemsResponse{Items: resources})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func createItem(g Guard, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := auth.UserFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}

		payload, err := decodeItemPayload(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid body"})
		}
		sub, err := payload.toSubmission()
		if err != nil {
			return writeError(c, err)
		}

		item, err := g.Create(ctx, user.ID, sub)
		if err != nil {
			return writeError(c, err)
		}
		res := itemToResource(item)
		c.Response().Header().Set(echo.HeaderLocation, res.ResourceURI)
		return c.JSON(http.StatusCreated, res)
	}
}

func getItem(g Guard, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := auth.UserFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}

		item, err := g.Get(ctx, user.ID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, itemToResource(item))
	}
}

func updateItem(g Guard, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := auth.UserFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}

		payload, err := decodeItemPayload(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{"error": "invalid body"})
		}
		sub, err := payload.toSubmission()
		if err != nil {
			return writeError(c, err)
		}

		item, err := g.Update(ctx, user.ID, c.Param("id"), sub)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusAccepted, itemToResource(item))
	}
}

func deleteItem(g Guard, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := auth.UserFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}

		if err := g.Delete(ctx, user.ID, c.Param("id")); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusAccepted)
	}
}

// listUsers mirrors the item scoping: the collection only ever contains the
// requester's own account.
func listUsers(auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := auth.UserFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		return c.JSON(http.StatusOK, usersResponse{Users: []userResource{userToResource(user)}})
	}
}

func getUser(auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := auth.UserFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		if c.Param("id") != user.ID {
			return c.JSON(http.StatusNotFound, map[string]any{"error": "not found"})
		}
		return c.JSON(http.StatusOK, userToResource(user))
	}
}

// issueToken exchanges Basic credentials for a short-lived bearer token.
func issueToken(auth Authenticator, tokens TokenIssuer) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		user, err := auth.UserFromAuthHeader(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return unauthorized(c, err)
		}
		token, err := tokens.IssueToken(user)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, map[string]any{"error": "internal error"})
		}
		return c.JSON(http.StatusOK, tokenResponse{
			Token:     token,
			ExpiresIn: int64(tokens.TokenTTL() / time.Second),
		})
	}
}
