package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"todoweb/auth"
	"todoweb/domain"
	"todoweb/guard"
)

type memStore struct {
	seq   int
	items map[string]domain.Item
}

func newMemStore() *memStore {
	return &memStore{items: make(map[string]domain.Item)}
}

func (m *memStore) CreateItem(ctx context.Context, ownerID string, fields domain.ItemFields) (domain.Item, error) {
	m.seq++
	item := domain.Item{
		ID:       "item-" + strconv.Itoa(m.seq),
		Name:     fields.Name,
		Notes:    fields.Notes,
		Created:  time.Now().UTC(),
		Priority: fields.Priority,
		Due:      fields.Due,
		Done:     fields.Done,
		OwnerID:  ownerID,
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *memStore) GetItem(ctx context.Context, ownerID, id string) (domain.Item, error) {
	item, ok := m.items[id]
	if !ok || item.OwnerID != ownerID {
		return domain.Item{}, domain.ErrNotFound
	}
	return item, nil
}

func (m *memStore) UpdateItem(ctx context.Context, ownerID, id string, fields domain.ItemFields) (domain.Item, error) {
	item, err := m.GetItem(ctx, ownerID, id)
	if err != nil {
		return domain.Item{}, err
	}
	item.Name = fields.Name
	item.Notes = fields.Notes
	item.Priority = fields.Priority
	item.Due = fields.Due
	item.Done = fields.Done
	m.items[id] = item
	return item, nil
}

func (m *memStore) DeleteItem(ctx context.Context, ownerID, id string) error {
	if _, err := m.GetItem(ctx, ownerID, id); err != nil {
		return err
	}
	delete(m.items, id)
	return nil
}

func (m *memStore) ListItems(ctx context.Context, ownerID string, order domain.Order) ([]domain.Item, error) {
	items := []domain.Item{}
	for _, item := range m.items {
		if item.OwnerID == ownerID {
			items = append(items, item)
		}
	}
	return items, nil
}

type fakeAccounts struct {
	users     map[string]domain.User
	passwords map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		users:     map[string]domain.User{"alice": {ID: "user-alice", Username: "alice"}},
		passwords: map[string]string{"alice": "wonderland1"},
	}
}

func (f *fakeAccounts) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	user, ok := f.users[username]
	if !ok || f.passwords[username] != password {
		return domain.User{}, auth.ErrInvalidCredentials
	}
	return user, nil
}

func (f *fakeAccounts) Register(ctx context.Context, username, password string) (domain.User, error) {
	if _, ok := f.users[username]; ok {
		return domain.User{}, domain.NewValidationError("username", "username already taken")
	}
	user := domain.User{ID: "user-" + username, Username: username}
	f.users[username] = user
	f.passwords[username] = password
	return user, nil
}

func (f *fakeAccounts) ChangePassword(ctx context.Context, userID, current, replacement string) error {
	for name, user := range f.users {
		if user.ID != userID {
			continue
		}
		if f.passwords[name] != current {
			return domain.NewValidationError("current_password", "current password is incorrect")
		}
		f.passwords[name] = replacement
		return nil
	}
	return domain.ErrNotFound
}

func newTestServer(t *testing.T) (*echo.Echo, *memStore, *fakeAccounts) {
	t.Helper()
	store := newMemStore()
	accounts := newFakeAccounts()
	e := echo.New()
	Register(e, guard.New(store), accounts, []byte("test-session-secret"), log.New())
	return e, store, accounts
}

func getPage(e *echo.Echo, target string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func postForm(e *echo.Echo, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func signInAs(t *testing.T, e *echo.Echo, username, password string) []*http.Cookie {
	t.Helper()
	rec := postForm(e, "/login/", url.Values{
		"username": {username},
		"password": {password},
	}, nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/todo/" {
		t.Fatalf("login redirect = %q, want /todo/", loc)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login set no session cookie")
	}
	return cookies
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusFound)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != location {
		t.Fatalf("redirect = %q, want %q", loc, location)
	}
}

func TestAnonymousRedirectedToLogin(t *testing.T) {
	e, _, _ := newTestServer(t)

	for _, target := range []string{"/todo/", "/todo/add/", "/password/change/"} {
		rec := getPage(e, target, nil)
		assertRedirect(t, rec, "/login/")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := postForm(e, "/login/", url.Values{
		"username": {"alice"},
		"password": {"not-the-password"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Please try again.") {
		t.Errorf("body missing failure message: %s", body)
	}
	if !strings.Contains(body, `value="alice"`) {
		t.Error("submitted username not redisplayed")
	}
}

func TestLoginSessionGrantsAccess(t *testing.T) {
	e, _, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	rec := getPage(e, "/todo/", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "alice") {
		t.Error("list page missing signed-in username")
	}
}

func TestHomeRedirectsSignedInUsers(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := getPage(e, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous home status = %d, want %d", rec.Code, http.StatusOK)
	}

	cookies := signInAs(t, e, "alice", "wonderland1")
	rec = getPage(e, "/", cookies)
	assertRedirect(t, rec, "/todo/")
}

func TestLogoutClearsSession(t *testing.T) {
	e, _, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	rec := getPage(e, "/logout/", cookies)
	assertRedirect(t, rec, "/")

	// The cleared cookie replaces the signed-in one.
	rec = getPage(e, "/todo/", rec.Result().Cookies())
	assertRedirect(t, rec, "/login/")
}

func TestAddItem(t *testing.T) {
	e, store, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	rec := postForm(e, "/todo/add/", url.Values{
		"name":  {"water the plants"},
		"notes": {"the ones on the balcony"},
	}, cookies)
	assertRedirect(t, rec, "/todo/")

	if len(store.items) != 1 {
		t.Fatalf("stored %d items, want 1", len(store.items))
	}
	for _, item := range store.items {
		if item.OwnerID != "user-alice" {
			t.Errorf("OwnerID = %q, want user-alice", item.OwnerID)
		}
		if item.Name != "water the plants" {
			t.Errorf("Name = %q", item.Name)
		}
		if item.Priority != domain.DefaultPriority {
			t.Errorf("Priority = %v, want default", item.Priority)
		}
	}
}

func TestAddItemRedisplaysOnValidationError(t *testing.T) {
	e, store, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	rec := postForm(e, "/todo/add/", url.Values{
		"name":  {""},
		"notes": {"typed but invalid"},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "typed but invalid") {
		t.Error("submitted notes not redisplayed")
	}
	if !strings.Contains(body, "this field is required") {
		t.Errorf("body missing field error: %s", body)
	}
	if len(store.items) != 0 {
		t.Errorf("invalid submission persisted %d items", len(store.items))
	}
}

func TestAddItemRejectsPastDue(t *testing.T) {
	e, store, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(dateFormat)
	rec := postForm(e, "/todo/add/", url.Values{
		"name": {"too late"},
		"due":  {yesterday},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "the date cannot be in the past") {
		t.Error("body missing due date error")
	}
	if len(store.items) != 0 {
		t.Error("item with past due date persisted")
	}
}

func TestEditItem(t *testing.T) {
	e, store, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	created, err := store.CreateItem(context.Background(), "user-alice", domain.ItemFields{
		Name: "draft", Priority: domain.PriorityLow,
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := getPage(e, "/todo/"+created.ID+"/edit/", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("edit form status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), `value="draft"`) {
		t.Error("edit form missing current name")
	}

	rec = postForm(e, "/todo/"+created.ID+"/edit/", url.Values{
		"name":     {"final"},
		"priority": {"0"},
		"done":     {"on"},
	}, cookies)
	assertRedirect(t, rec, "/todo/")

	updated := store.items[created.ID]
	if updated.Name != "final" {
		t.Errorf("Name = %q, want final", updated.Name)
	}
	if updated.Priority != domain.PriorityUrgent {
		t.Errorf("Priority = %v, want urgent", updated.Priority)
	}
	if !updated.Done {
		t.Error("Done not set")
	}
	if updated.OwnerID != "user-alice" {
		t.Errorf("OwnerID = %q after edit", updated.OwnerID)
	}
}

func TestEditForeignItemNotFound(t *testing.T) {
	e, store, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	foreign, err := store.CreateItem(context.Background(), "user-bob", domain.ItemFields{Name: "secret"})
	if err != nil {
		t.Fatal(err)
	}

	rec := getPage(e, "/todo/"+foreign.ID+"/edit/", cookies)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("edit form status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = postForm(e, "/todo/"+foreign.ID+"/edit/", url.Values{"name": {"hijacked"}}, cookies)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("edit status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	if store.items[foreign.ID].Name != "secret" {
		t.Error("foreign item was modified")
	}
}

func TestDeleteItemIsIdempotent(t *testing.T) {
	e, store, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	created, err := store.CreateItem(context.Background(), "user-alice", domain.ItemFields{Name: "gone soon"})
	if err != nil {
		t.Fatal(err)
	}

	rec := postForm(e, "/todo/"+created.ID+"/delete/", nil, cookies)
	assertRedirect(t, rec, "/todo/")
	if _, ok := store.items[created.ID]; ok {
		t.Fatal("item still present after delete")
	}

	// Second delete of the same id is a no-op, not an error page.
	rec = postForm(e, "/todo/"+created.ID+"/delete/", nil, cookies)
	assertRedirect(t, rec, "/todo/")
}

func TestDeleteForeignItemLeavesItAlone(t *testing.T) {
	e, store, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	foreign, err := store.CreateItem(context.Background(), "user-bob", domain.ItemFields{Name: "secret"})
	if err != nil {
		t.Fatal(err)
	}

	rec := postForm(e, "/todo/"+foreign.ID+"/delete/", nil, cookies)
	assertRedirect(t, rec, "/todo/")
	if _, ok := store.items[foreign.ID]; !ok {
		t.Error("foreign item was deleted")
	}
}

func TestIndexListsOnlyOwnItems(t *testing.T) {
	e, store, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	if _, err := store.CreateItem(context.Background(), "user-alice", domain.ItemFields{Name: "mine"}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.CreateItem(context.Background(), "user-bob", domain.ItemFields{Name: "not mine"}); err != nil {
		t.Fatal(err)
	}

	rec := getPage(e, "/todo/", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "mine") {
		t.Error("own item missing from list")
	}
	if strings.Contains(body, "not mine") {
		t.Error("foreign item leaked into list")
	}
}

func TestRegister(t *testing.T) {
	e, _, accounts := newTestServer(t)

	rec := postForm(e, "/register/", url.Values{
		"username":  {"bob"},
		"password1": {"builder123"},
		"password2": {"builder123"},
	}, nil)
	assertRedirect(t, rec, "/login/")

	if _, ok := accounts.users["bob"]; !ok {
		t.Fatal("account not created")
	}

	cookies := signInAs(t, e, "bob", "builder123")
	rec = getPage(e, "/todo/", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status after register+login = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRegisterPasswordMismatch(t *testing.T) {
	e, _, accounts := newTestServer(t)

	rec := postForm(e, "/register/", url.Values{
		"username":  {"bob"},
		"password1": {"builder123"},
		"password2": {"builder124"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "the two password fields") {
		t.Error("body missing mismatch error")
	}
	if _, ok := accounts.users["bob"]; ok {
		t.Error("account created despite mismatch")
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := postForm(e, "/register/", url.Values{
		"username":  {"alice"},
		"password1": {"builder123"},
		"password2": {"builder123"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "already taken") {
		t.Error("body missing duplicate username error")
	}
}

func TestChangePassword(t *testing.T) {
	e, _, accounts := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	rec := postForm(e, "/password/change/", url.Values{
		"old_password":  {"wonderland1"},
		"new_password1": {"rabbit-hole2"},
		"new_password2": {"rabbit-hole2"},
	}, cookies)
	assertRedirect(t, rec, "/password/change/done")

	if accounts.passwords["alice"] != "rabbit-hole2" {
		t.Error("password not updated")
	}

	rec = getPage(e, "/password/change/done", cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("done page status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	e, _, accounts := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	rec := postForm(e, "/password/change/", url.Values{
		"old_password":  {"not-it"},
		"new_password1": {"rabbit-hole2"},
		"new_password2": {"rabbit-hole2"},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "current password is incorrect") {
		t.Error("body missing current password error")
	}
	if accounts.passwords["alice"] != "wonderland1" {
		t.Error("password changed despite wrong current password")
	}
}

func TestChangePasswordMismatch(t *testing.T) {
	e, _, _ := newTestServer(t)
	cookies := signInAs(t, e, "alice", "wonderland1")

	rec := postForm(e, "/password/change/", url.Values{
		"old_password":  {"wonderland1"},
		"new_password1": {"rabbit-hole2"},
		"new_password2": {"rabbit-hole3"},
	}, cookies)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "the two password fields") {
		t.Error("body missing mismatch error")
	}
}
