package service

import (
	"context"
	"io"
	"sync"

	"solis/internal/ai"
	"solis/internal/model"
	"solis/internal/notify"
	"solis/internal/permission"
	"solis/internal/repository"
	"solis/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockTaskStore struct {
	mock.Mock
}

func (m *MockTaskStore) Create(ctx context.Context, task *model.Task) error {
	return m.Called(ctx, task).Error(0)
}

func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskStore) List(ctx context.Context, q repository.TaskQuery) ([]model.Task, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Task), args.Error(1)
}

func (m *MockTaskStore) CountInPartition(ctx context.Context, listID *uuid.UUID, status string) (int64, error) {
	args := m.Called(ctx, listID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskStore) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}, entry model.Activity) error {
	return m.Called(ctx, id, fields, entry).Error(0)
}

func (m *MockTaskStore) Append(ctx context.Context, id uuid.UUID, column string, item interface{}, entry model.Activity) error {
	return m.Called(ctx, id, column, item, entry).Error(0)
}

func (m *MockTaskStore) MutateSubtasks(ctx context.Context, id uuid.UUID, fn func([]model.Subtask) ([]model.Subtask, error), entry model.Activity) (*model.Task, error) {
	args := m.Called(ctx, id, fn, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskStore) MoveTask(ctx context.Context, id uuid.UUID, status string, position int, entry model.Activity) (*model.Task, error) {
	args := m.Called(ctx, id, status, position, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskStore) Reposition(ctx context.Context, id uuid.UUID, place repository.Placement, fields map[string]interface{}, entry model.Activity) (*model.Task, error) {
	args := m.Called(ctx, id, place, fields, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockUserStore serves both UserLookup and UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserStore) List(ctx context.Context, department string, activeOnly bool) ([]model.User, error) {
	args := m.Called(ctx, department, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserStore) UpdateProfile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return m.Called(ctx, id, fields).Error(0)
}

func (m *MockUserStore) SetRole(ctx context.Context, id uuid.UUID, role string, perms model.Permissions) error {
	return m.Called(ctx, id, role, perms).Error(0)
}

func (m *MockUserStore) SetPermissions(ctx context.Context, id uuid.UUID, perms model.Permissions) error {
	return m.Called(ctx, id, perms).Error(0)
}

func (m *MockUserStore) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return m.Called(ctx, id, active).Error(0)
}

type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) Register(ctx context.Context, user *model.User, password string) error {
	return m.Called(ctx, user, password).Error(0)
}

func (m *MockIdentity) Authenticate(ctx context.Context, email, password string) (uuid.UUID, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockIdentity) Remove(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, msg notify.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, obj storage.Object) (string, error) {
	args := m.Called(ctx, obj)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) Create(ctx context.Context, doc *model.Document) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockDocumentStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentStore) List(ctx context.Context, department string) ([]model.Document, error) {
	args := m.Called(ctx, department)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Document), args.Error(1)
}

func (m *MockDocumentStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) Create(ctx context.Context, report *model.Report) error {
	return m.Called(ctx, report).Error(0)
}

func (m *MockReportStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Report), args.Error(1)
}

func (m *MockReportStore) List(ctx context.Context, department, reportType string) ([]model.Report, error) {
	args := m.Called(ctx, department, reportType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Report), args.Error(1)
}

func (m *MockReportStore) SetAnalysis(ctx context.Context, id uuid.UUID, analysis string) error {
	return m.Called(ctx, id, analysis).Error(0)
}

func (m *MockReportStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockAnalyst struct {
	mock.Mock
}

func (m *MockAnalyst) Summarize(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockAnalyst) Chat(ctx context.Context, history []ai.Turn, message string) (string, error) {
	args := m.Called(ctx, history, message)
	return args.String(0), args.Error(1)
}

type MockFormStore struct {
	mock.Mock
}

func (m *MockFormStore) Create(ctx context.Context, form *model.FormTemplate) error {
	return m.Called(ctx, form).Error(0)
}

func (m *MockFormStore) GetByID(ctx context.Context, id uuid.UUID) (*model.FormTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FormTemplate), args.Error(1)
}

func (m *MockFormStore) List(ctx context.Context) ([]model.FormTemplate, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FormTemplate), args.Error(1)
}

func (m *MockFormStore) Update(ctx context.Context, form *model.FormTemplate) error {
	return m.Called(ctx, form).Error(0)
}

func (m *MockFormStore) CreateSubmission(ctx context.Context, sub *model.FormSubmission) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockFormStore) ListSubmissions(ctx context.Context, formID uuid.UUID) ([]model.FormSubmission, error) {
	args := m.Called(ctx, formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FormSubmission), args.Error(1)
}

// recordingFeed captures optimistic pushes.
type recordingFeed struct {
	mu      sync.Mutex
	upserts []model.Task
	removed []string
	resyncs int
}

func (f *recordingFeed) Upsert(task model.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, task)
}

func (f *recordingFeed) Remove(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
}

func (f *recordingFeed) Resync(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resyncs++
}

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) Invalidate(subject string) {
	c.invalidated = append(c.invalidated, subject)
}

func userWithRole(role, department string) *model.User {
	name := "Usuario " + role
	return &model.User{
		ID:          uuid.New(),
		Email:       role + "@solis.mx",
		Name:        name,
		Avatar:      model.Initials(name),
		Department:  department,
		Role:        role,
		IsActive:    true,
		Permissions: permission.Derive(role),
	}
}

type nopReader struct{}

func (nopReader) Read([]byte) (int, error) { return 0, io.EOF }
