package router

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-records/internal/auth"
	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/http/handlers/account"
	"github.com/aanand-mishra/student-records/internal/http/views"
	"github.com/aanand-mishra/student-records/internal/session"
	"github.com/aanand-mishra/student-records/internal/storage/sqlite"
	"github.com/aanand-mishra/student-records/internal/types"
	"github.com/aanand-mishra/student-records/internal/utils/response"
	"github.com/aanand-mishra/student-records/internal/validation"
)

type testApp struct {
	t      *testing.T
	store  *sqlite.SQLite
	server *httptest.Server
	client *http.Client
	access *syncBuffer
}

// syncBuffer guards the access log, which the server goroutine writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.New(t.Context(), filepath.Join(t.TempDir(), "students.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	sessions, err := session.New(config.Session{
		Secrets:    []string{strings.Repeat("x", 32)},
		CookieName: "session",
		MaxAge:     time.Hour,
	}, store, logger)
	require.NoError(t, err)

	pages, err := views.New()
	require.NoError(t, err)

	var access syncBuffer
	server := httptest.NewServer(New(Deps{
		Students:  store,
		Auth:      auth.New(store, logger),
		Sessions:  sessions,
		Views:     pages,
		Logger:    logger,
		AccessLog: &access,
	}))
	t.Cleanup(server.Close)

	return &testApp{t: t, store: store, server: server, client: newClient(t), access: &access}
}

// newClient returns a client with its own cookie jar that does not follow
// redirects, so tests can assert on them.
func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type result struct {
	status   int
	location string
	body     string
}

func (a *testApp) do(method, path string, form url.Values) result {
	a.t.Helper()

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(a.t.Context(), method, a.server.URL+path, body)
	require.NoError(a.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return result{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(data)}
}

func (a *testApp) get(path string) result { return a.do(http.MethodGet, path, nil) }

func (a *testApp) post(path string, form url.Values) result {
	return a.do(http.MethodPost, path, form)
}

func (a *testApp) login(username, password string) {
	a.t.Helper()
	a.post("/register", url.Values{"username": {username}, "password": {password}})
	res := a.post("/login", url.Values{"username": {username}, "password": {password}})
	require.Equal(a.t, http.StatusSeeOther, res.status, res.body)
	require.Equal(a.t, "/", res.location)
}

func (a *testApp) students() []types.Student {
	a.t.Helper()
	students, err := a.store.ListStudents(a.t.Context())
	require.NoError(a.t, err)
	return students
}

func studentForm(name string, age int, grade string) url.Values {
	return url.Values{"name": {name}, "age": {strconv.Itoa(age)}, "grade": {grade}}
}

func TestStudentRoutesRequireSession(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/"},
		{http.MethodPost, "/add"},
		{http.MethodGet, "/edit/1"},
		{http.MethodPost, "/edit/1"},
		{http.MethodGet, "/delete/1"},
		{http.MethodGet, "/edit/abc"},
	} {
		res := app.do(tc.method, tc.path, nil)
		assert.Equal(t, http.StatusSeeOther, res.status, "%s %s", tc.method, tc.path)
		assert.Equal(t, "/login", res.location, "%s %s", tc.method, tc.path)
	}

	res := app.post("/add", studentForm("Mallory", 30, "A"))
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Empty(t, app.students())
}

func TestEndToEnd(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.login("registrar", "correct horse")

	res := app.get("/")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, account.LoginSuccess)

	res = app.post("/add", studentForm("Alice", 20, "A"))
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	assert.Equal(t, "/", res.location)
	students := app.students()
	require.Len(t, students, 1)
	alice := students[0]
	assert.Equal(t, types.Student{ID: alice.ID, Name: "Alice", Age: 20, Grade: types.GradeA}, alice)

	res = app.post("/add", studentForm("Bob<script>alert(1)</script>", 20, "A"))
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	students = app.students()
	require.Len(t, students, 2)
	assert.NotContains(t, students[1].Name, "<script>")
	assert.Equal(t, "Bob", students[1].Name)

	res = app.post("/add", studentForm("Eve", 200, "A"))
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, validation.ErrInvalidAge.Error(), res.body)
	assert.Len(t, app.students(), 2)

	res = app.get("/edit/" + strconv.FormatInt(alice.ID, 10))
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `value="Alice"`)
	assert.Contains(t, res.body, `value="20"`)

	res = app.post("/edit/"+strconv.FormatInt(alice.ID, 10), studentForm("Alice", 21, "A"))
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	students = app.students()
	require.Len(t, students, 2)
	assert.Equal(t, types.Student{ID: alice.ID, Name: "Alice", Age: 21, Grade: types.GradeA}, students[0])

	res = app.get("/")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Alice")
	assert.NotContains(t, res.body, "<script>")
}

func TestAddRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.login("registrar", "pw")

	tests := []struct {
		name string
		form url.Values
		want error
	}{
		{"blank name", studentForm("   ", 20, "A"), validation.ErrEmptyName},
		{"quote", studentForm("O'Brien", 20, "A"), validation.ErrInvalidNameChars},
		{"injection", studentForm("x'; DROP TABLE student; --", 20, "A"), validation.ErrInvalidNameChars},
		{"percent", studentForm("100%", 20, "A"), validation.ErrInvalidNameChars},
		{"age zero", studentForm("Zed", 0, "A"), validation.ErrInvalidAge},
		{"age text", url.Values{"name": {"Zed"}, "age": {"twenty"}, "grade": {"A"}}, validation.ErrInvalidAge},
		{"grade lower", studentForm("Zed", 20, "a"), validation.ErrInvalidGrade},
		{"grade G", studentForm("Zed", 20, "G"), validation.ErrInvalidGrade},
		{"missing fields", url.Values{}, validation.ErrEmptyName},
	}

	for _, test := range tests {
		res := app.post("/add", test.form)
		assert.Equal(t, http.StatusBadRequest, res.status, test.name)
		assert.Equal(t, test.want.Error(), res.body, test.name)
	}
	assert.Empty(t, app.students())
}

func TestUpdateRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.login("registrar", "pw")

	res := app.post("/add", studentForm("Alice", 20, "A"))
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	students := app.students()
	require.Len(t, students, 1)
	alice := students[0]
	path := "/edit/" + strconv.FormatInt(alice.ID, 10)

	tests := []struct {
		name string
		form url.Values
		want error
	}{
		{"quote", studentForm("O'Brien", 20, "A"), validation.ErrInvalidNameChars},
		{"age 200", studentForm("Alice", 200, "A"), validation.ErrInvalidAge},
		{"grade Z", studentForm("Alice", 20, "Z"), validation.ErrInvalidGrade},
		{"blank name", studentForm(" ", 21, "B"), validation.ErrEmptyName},
	}

	for _, test := range tests {
		res := app.post(path, test.form)
		assert.Equal(t, http.StatusBadRequest, res.status, test.name)
		assert.Equal(t, test.want.Error(), res.body, test.name)
		assert.Equal(t, []types.Student{{ID: alice.ID, Name: "Alice", Age: 20, Grade: types.GradeA}}, app.students(), test.name)
	}
}

func TestEditAndDeleteNotFound(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.login("registrar", "pw")

	for _, path := range []string{"/edit/999", "/edit/abc", "/edit/0", "/edit/-1", "/delete/999", "/delete/abc"} {
		res := app.get(path)
		assert.Equal(t, http.StatusNotFound, res.status, path)
		assert.Equal(t, response.NotFoundMessage, res.body, path)
	}

	res := app.post("/edit/999", studentForm("Ghost", 20, "A"))
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Empty(t, app.students())

	res = app.post("/edit/999", studentForm("Ghost", 999, "A"))
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestDeleteTwice(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.login("registrar", "pw")

	app.post("/add", studentForm("Alice", 20, "A"))
	app.post("/add", studentForm("Carol", 22, "B"))
	students := app.students()
	require.Len(t, students, 2)
	path := "/delete/" + strconv.FormatInt(students[0].ID, 10)

	res := app.get(path)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)

	res = app.get(path)
	assert.Equal(t, http.StatusNotFound, res.status)

	remaining := app.students()
	require.Len(t, remaining, 1)
	assert.Equal(t, "Carol", remaining[0].Name)
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	res := app.get("/register")
	require.Equal(t, http.StatusOK, res.status)

	res = app.post("/register", url.Values{"username": {"alice"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	assert.Equal(t, "/login", res.location)

	res = app.get("/login")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, account.RegisterSuccess)

	res = app.get("/login")
	assert.NotContains(t, res.body, account.RegisterSuccess, "flash is shown once")

	res = app.post("/register", url.Values{"username": {"alice"}, "password": {"other"}})
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Contains(t, res.body, auth.ErrDuplicateUsername.Error())

	res = app.post("/register", url.Values{"username": {"  "}, "password": {"pw"}})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Contains(t, res.body, auth.ErrInvalidUsername.Error())

	user, err := app.store.GetUserByName(t.Context(), "alice")
	require.NoError(t, err)
	assert.NotEqual(t, []byte("s3cret"), user.PasswordHash)

	res = app.post("/login", url.Values{"username": {"alice"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, auth.ErrInvalidCredentials.Error())
	assert.Equal(t, "/login", app.get("/").location, "failed login must not start a session")

	res = app.post("/login", url.Values{"username": {"nobody"}, "password": {"s3cret"}})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, auth.ErrInvalidCredentials.Error())

	res = app.post("/login", url.Values{"username": {"alice"}, "password": {"s3cret"}})
	require.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, http.StatusOK, app.get("/").status)
}

func TestLogout(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.login("registrar", "pw")
	require.Equal(t, http.StatusOK, app.get("/").status)

	res := app.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)

	res = app.get("/")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.location)

	res = app.get("/login")
	assert.Contains(t, res.body, account.LogoutSuccess)

	res = app.post("/logout", nil)
	assert.Equal(t, http.StatusSeeOther, res.status, "logout twice")
}

func TestStoredMarkupIsEscaped(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)
	app.login("registrar", "pw")

	res := app.post("/add", studentForm("Tom & Jerry", 9, "C"))
	require.Equal(t, http.StatusSeeOther, res.status, res.body)

	res = app.get("/")
	assert.Contains(t, res.body, "Tom &amp; Jerry")
}

func TestAccessLogAndUnknownRoute(t *testing.T) {
	t.Parallel()
	app := newTestApp(t)

	res := app.get("/nope")
	assert.Equal(t, http.StatusNotFound, res.status)
	assert.Contains(t, app.access.String(), `"GET /nope HTTP/1.1" 404`)
}
