package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"solis/internal/handler"
	"solis/internal/middleware"
	"solis/internal/model"
	"solis/internal/permission"
	"solis/internal/projection"
	"solis/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func init() {
	gin.SetMode(gin.TestMode)
	handler.RegisterValidators(binding.Validator.Engine().(*validator.Validate))
}

type MockAccounts struct {
	mock.Mock
}

func (m *MockAccounts) Register(ctx context.Context, in service.RegisterInput) (*model.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockAccounts) Login(ctx context.Context, email, password string) (*model.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockProfileStore) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDirectory) List(ctx context.Context, department string, activeOnly bool) ([]model.User, error) {
	args := m.Called(ctx, department, activeOnly)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockDirectory) OrgChart(ctx context.Context) ([]projection.Department, error) {
	args := m.Called(ctx)
	return args.Get(0).([]projection.Department), args.Error(1)
}

func (m *MockDirectory) UpdateProfile(ctx context.Context, actor *model.User, in service.ProfileInput) (*model.User, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDirectory) ChangeRole(ctx context.Context, actor *model.User, id uuid.UUID, role string) (*model.User, error) {
	args := m.Called(ctx, actor, id, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDirectory) SetPermissions(ctx context.Context, actor *model.User, id uuid.UUID, perms model.Permissions) (*model.User, error) {
	args := m.Called(ctx, actor, id, perms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDirectory) SetActive(ctx context.Context, actor *model.User, id uuid.UUID, active bool) (*model.User, error) {
	args := m.Called(ctx, actor, id, active)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockDirectory) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockTaskActions struct {
	mock.Mock
}

func (m *MockTaskActions) task(args mock.Arguments) (*model.Task, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskActions) Create(ctx context.Context, actor *model.User, in service.CreateTaskInput) (*model.Task, error) {
	return m.task(m.Called(ctx, actor, in))
}

func (m *MockTaskActions) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Task, error) {
	return m.task(m.Called(ctx, actor, id))
}

func (m *MockTaskActions) List(ctx context.Context, actor *model.User, f service.TaskFilter) ([]model.Task, error) {
	args := m.Called(ctx, actor, f)
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskActions) Update(ctx context.Context, actor *model.User, id uuid.UUID, in service.UpdateTaskInput) (*model.Task, error) {
	return m.task(m.Called(ctx, actor, id, in))
}

func (m *MockTaskActions) MoveStatus(ctx context.Context, actor *model.User, id uuid.UUID, status string, order int) (*model.Task, error) {
	return m.task(m.Called(ctx, actor, id, status, order))
}

func (m *MockTaskActions) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	return m.Called(ctx, actor, id).Error(0)
}

func (m *MockTaskActions) AddComment(ctx context.Context, actor *model.User, id uuid.UUID, text string) (*model.Task, error) {
	return m.task(m.Called(ctx, actor, id, text))
}

func (m *MockTaskActions) AddSubtask(ctx context.Context, actor *model.User, id uuid.UUID, title string) (*model.Task, error) {
	return m.task(m.Called(ctx, actor, id, title))
}

func (m *MockTaskActions) ToggleSubtask(ctx context.Context, actor *model.User, id uuid.UUID, subtaskID string) (*model.Task, error) {
	return m.task(m.Called(ctx, actor, id, subtaskID))
}

func (m *MockTaskActions) AddAttachment(ctx context.Context, actor *model.User, id uuid.UUID, in service.AttachmentInput) (*model.Task, error) {
	return m.task(m.Called(ctx, actor, id, in))
}

type MockForms struct {
	mock.Mock
}

func (m *MockForms) form(args mock.Arguments) (*model.FormTemplate, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FormTemplate), args.Error(1)
}

func (m *MockForms) CreateTemplate(ctx context.Context, actor *model.User, in service.TemplateInput) (*model.FormTemplate, error) {
	return m.form(m.Called(ctx, actor, in))
}

func (m *MockForms) UpdateTemplate(ctx context.Context, actor *model.User, id uuid.UUID, in service.TemplateInput) (*model.FormTemplate, error) {
	return m.form(m.Called(ctx, actor, id, in))
}

func (m *MockForms) ListTemplates(ctx context.Context, actor *model.User) ([]model.FormTemplate, error) {
	args := m.Called(ctx, actor)
	return args.Get(0).([]model.FormTemplate), args.Error(1)
}

func (m *MockForms) GetTemplate(ctx context.Context, actor *model.User, id uuid.UUID) (*model.FormTemplate, error) {
	return m.form(m.Called(ctx, actor, id))
}

func (m *MockForms) ListSubmissions(ctx context.Context, actor *model.User, formID uuid.UUID) ([]model.FormSubmission, error) {
	args := m.Called(ctx, actor, formID)
	return args.Get(0).([]model.FormSubmission), args.Error(1)
}

func (m *MockForms) Public(ctx context.Context, id uuid.UUID) (*model.FormTemplate, error) {
	return m.form(m.Called(ctx, id))
}

func (m *MockForms) Submit(ctx context.Context, id uuid.UUID, answers map[string]string, submittedBy string) (*model.FormSubmission, error) {
	args := m.Called(ctx, id, answers, submittedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FormSubmission), args.Error(1)
}

// signedIn stands in for the auth middleware.
func signedIn(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.UserIDKey, user.ID)
			c.Set(middleware.UserKey, user)
		}
		c.Next()
	}
}

func member(role, dept string) *model.User {
	return &model.User{
		ID:          uuid.New(),
		Email:       role + "@solis.mx",
		Name:        "Ana " + role,
		Avatar:      "AN",
		Department:  dept,
		Role:        role,
		IsActive:    true,
		Permissions: permission.Derive(role),
	}
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decode[T any](resp *httptest.ResponseRecorder) T {
	var v T
	_ = json.Unmarshal(resp.Body.Bytes(), &v)
	return v
}
