package testutil

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RefreshCookie is the name of the cookie FakeAPI issues for token refresh.
const RefreshCookie = "refreshToken"

// APITask is a task as FakeAPI stores and serves it. Ids are numeric, the
// way a SQL-backed server hands them out.
type APITask struct {
	ID        int     `json:"id"`
	UserEmail string  `json:"user_email"`
	Title     string  `json:"title"`
	Date      string  `json:"date"`
	Completed bool    `json:"completion_status"`
	Starred   bool    `json:"starred_status"`
	Archived  bool    `json:"archived_status"`
	DueDate   *string `json:"due_date"`
}

// FakeAPI is an in-process task server for exercising the REST gateway.
type FakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	tasks    []APITask
	nextID   int
	users    map[string]string // email -> password
	access   map[string]string // access token -> email
	refresh  map[string]string // refresh token -> email
	requests map[string]int
	bodies   map[string]map[string]any
	failWith map[string]int
	noBodies bool
}

// NewFakeAPI starts a FakeAPI. Close it when done.
func NewFakeAPI() *FakeAPI {
	gin.SetMode(gin.TestMode)

	f := &FakeAPI{
		nextID:   1,
		users:    make(map[string]string),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
		requests: make(map[string]int),
		bodies:   make(map[string]map[string]any),
		failWith: make(map[string]int),
	}

	r := gin.New()
	r.Use(f.record)

	r.POST("/auth/signup", f.signup)
	r.POST("/auth/login", f.login)
	r.POST("/auth/logout", f.logout)
	r.GET("/refresh", f.refreshToken)

	authed := r.Group("/", f.authenticate)
	authed.GET("/tasks/:email", f.listTasks)
	authed.POST("/tasks", f.createTask)
	authed.PUT("/tasks/:id", f.updateTask)
	authed.PUT("/tasks/:id/complete", f.setFlag("isCompleted", func(t *APITask, v bool) { t.Completed = v }))
	authed.PUT("/tasks/:id/star", f.setFlag("isStarred", func(t *APITask, v bool) { t.Starred = v }))
	authed.PUT("/tasks/:id/archive", f.setFlag("isArchived", func(t *APITask, v bool) { t.Archived = v }))
	authed.DELETE("/tasks/:id", f.deleteTask)
	authed.GET("/upload/:email", f.profile)

	f.Server = httptest.NewServer(r)
	return f
}

// AddUser registers a user and returns an access token valid for them,
// along with the refresh cookie value.
func (f *FakeAPI) AddUser(email, password string) (accessToken, refreshToken string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = password
	return f.issueLocked(email)
}

// AddTask seeds a task and returns its id.
func (f *FakeAPI) AddTask(t APITask) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID
	f.nextID++
	if t.UserEmail == "" {
		t.UserEmail = OwnerEmail
	}
	if t.Date == "" {
		t.Date = "2025-01-01T09:00:00.000Z"
	}
	f.tasks = append(f.tasks, t)
	return strconv.Itoa(t.ID)
}

// FailRoute makes route answer with status instead of handling requests.
// Routes are keyed "METHOD /pattern", e.g. "PUT /tasks/:id/star".
func (f *FakeAPI) FailRoute(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failWith[route] = status
}

// OmitMutationBodies makes mutation endpoints reply 204 with no body.
func (f *FakeAPI) OmitMutationBodies() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noBodies = true
}

// Tasks returns a copy of the stored tasks.
func (f *FakeAPI) Tasks() []APITask {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]APITask(nil), f.tasks...)
}

// RevokeAccessTokens invalidates every access token, forcing a refresh.
func (f *FakeAPI) RevokeAccessTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]string)
}

// RevokeAll invalidates access and refresh tokens.
func (f *FakeAPI) RevokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.access = make(map[string]string)
	f.refresh = make(map[string]string)
}

// Requests returns how many requests reached a route, keyed like FailRoute.
func (f *FakeAPI) Requests(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[route]
}

// LastBody returns the last JSON body sent to a route.
func (f *FakeAPI) LastBody(route string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[route]
}

func (f *FakeAPI) issueLocked(email string) (string, string) {
	accessToken := uuid.NewString()
	refreshToken := uuid.NewString()
	f.access[accessToken] = email
	f.refresh[refreshToken] = email
	return accessToken, refreshToken
}

func (f *FakeAPI) record(c *gin.Context) {
	route := c.Request.Method + " " + c.FullPath()

	var body map[string]any
	if c.Request.ContentLength != 0 && c.Request.Body != nil {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.Set("body", body)
	}

	f.mu.Lock()
	f.requests[route]++
	if body != nil {
		f.bodies[route] = body
	}
	status, fail := f.failWith[route]
	f.mu.Unlock()

	if fail {
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	c.Next()
}

func (f *FakeAPI) authenticate(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	f.mu.Lock()
	email, ok := f.access[token]
	f.mu.Unlock()

	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.Set("email", email)
	c.Next()
}

func bodyOf(c *gin.Context) map[string]any {
	if v, ok := c.Get("body"); ok {
		return v.(map[string]any)
	}
	return map[string]any{}
}

func (f *FakeAPI) credentials(c *gin.Context) (string, string, bool) {
	body := bodyOf(c)
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)
	if email == "" || password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return "", "", false
	}
	return email, password, true
}

func (f *FakeAPI) respondWithToken(c *gin.Context, email string) {
	accessToken, refreshToken := f.issueLocked(email)
	c.SetCookie(RefreshCookie, refreshToken, 3600, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken})
}

func (f *FakeAPI) signup(c *gin.Context) {
	email, password, ok := f.credentials(c)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[email]; exists {
		c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
		return
	}
	f.users[email] = password
	f.respondWithToken(c, email)
}

func (f *FakeAPI) login(c *gin.Context) {
	email, password, ok := f.credentials(c)
	if !ok {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if want, exists := f.users[email]; !exists || want != password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	f.respondWithToken(c, email)
}

func (f *FakeAPI) logout(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "); token != "" {
		delete(f.access, token)
	}
	if cookie, err := c.Cookie(RefreshCookie); err == nil {
		delete(f.refresh, cookie)
	}
	c.SetCookie(RefreshCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (f *FakeAPI) refreshToken(c *gin.Context) {
	cookie, err := c.Cookie(RefreshCookie)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no refresh token"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	email, ok := f.refresh[cookie]
	if !ok {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid refresh token"})
		return
	}
	delete(f.refresh, cookie)
	f.respondWithToken(c, email)
}

func (f *FakeAPI) listTasks(c *gin.Context) {
	email := c.Param("email")
	if email != c.GetString("email") {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []APITask{}
	for _, t := range f.tasks {
		if t.UserEmail == email {
			result = append(result, t)
		}
	}
	c.JSON(http.StatusOK, result)
}

func (f *FakeAPI) createTask(c *gin.Context) {
	body := bodyOf(c)
	title, _ := body["title"].(string)
	if strings.TrimSpace(title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	}
	t := APITask{Title: title, UserEmail: c.GetString("email")}
	t.Date, _ = body["date"].(string)
	t.Completed, _ = body["completionStatus"].(bool)
	t.Starred, _ = body["starredStatus"].(bool)
	if due, ok := body["due_date"].(string); ok {
		t.DueDate = &due
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID
	f.nextID++
	f.tasks = append(f.tasks, t)
	c.JSON(http.StatusCreated, t)
}

// findLocked returns the index of the caller's task named by the :id param.
func (f *FakeAPI) findLocked(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err == nil {
		for i, t := range f.tasks {
			if t.ID == id && t.UserEmail == c.GetString("email") {
				return i, true
			}
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	return 0, false
}

func (f *FakeAPI) respondTask(c *gin.Context, t APITask) {
	if f.noBodies {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (f *FakeAPI) updateTask(c *gin.Context) {
	body := bodyOf(c)

	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.findLocked(c)
	if !ok {
		return
	}
	if title, ok := body["title"].(string); ok {
		f.tasks[i].Title = title
	}
	if due, present := body["due_date"]; present {
		if s, ok := due.(string); ok {
			f.tasks[i].DueDate = &s
		} else {
			f.tasks[i].DueDate = nil
		}
	}
	f.respondTask(c, f.tasks[i])
}

func (f *FakeAPI) setFlag(field string, set func(*APITask, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := bodyOf(c)[field].(bool)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": field + " is required"})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		i, found := f.findLocked(c)
		if !found {
			return
		}
		set(&f.tasks[i], v)
		f.respondTask(c, f.tasks[i])
	}
}

func (f *FakeAPI) deleteTask(c *gin.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.findLocked(c)
	if !ok {
		return
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	c.JSON(http.StatusOK, gin.H{"message": "task deleted"})
}

func (f *FakeAPI) profile(c *gin.Context) {
	email := c.Param("email")
	c.JSON(http.StatusOK, gin.H{
		"email":           email,
		"profile_picture": "uploads/" + email + ".png",
	})
}
