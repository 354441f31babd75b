package task

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/security"
)

type mockTaskRepo struct {
	findByIDFunc        func(ctx context.Context, id string) (*model.Task, error)
	listByProjectIDFunc func(ctx context.Context, projectID string) ([]*model.Task, error)
	createFunc          func(ctx context.Context, t *model.Task) error
	updateFunc          func(ctx context.Context, t *model.Task) error
	deleteFunc          func(ctx context.Context, id string) error
}

func (m *mockTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockTaskRepo) ListByProjectID(ctx context.Context, projectID string) ([]*model.Task, error) {
	if m.listByProjectIDFunc != nil {
		return m.listByProjectIDFunc(ctx, projectID)
	}
	return nil, nil
}

func (m *mockTaskRepo) Create(ctx context.Context, t *model.Task) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, t)
	}
	return nil
}

func (m *mockTaskRepo) Update(ctx context.Context, t *model.Task) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, t)
	}
	return nil
}

func (m *mockTaskRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

type mockProjectRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Project, error)
}

func (m *mockProjectRepo) FindByID(ctx context.Context, id string) (*model.Project, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockProjectRepo) ListByOwnerID(ctx context.Context, ownerID string) ([]*model.Project, error) {
	return nil, nil
}
func (m *mockProjectRepo) Create(ctx context.Context, p *model.Project) error { return nil }
func (m *mockProjectRepo) Update(ctx context.Context, p *model.Project) error { return nil }
func (m *mockProjectRepo) Delete(ctx context.Context, id string) error        { return nil }

type mockWorkerRepo struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Worker, error)
}

func (m *mockWorkerRepo) FindByID(ctx context.Context, id string) (*model.Worker, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockWorkerRepo) List(ctx context.Context) ([]*model.Worker, error) { return nil, nil }
func (m *mockWorkerRepo) Create(ctx context.Context, w *model.Worker) error { return nil }
func (m *mockWorkerRepo) Update(ctx context.Context, w *model.Worker) error { return nil }

type mockNotificationRepo struct {
	createFunc func(ctx context.Context, n *model.Notification) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, n)
	}
	return nil
}

func (m *mockNotificationRepo) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	return nil, nil
}
func (m *mockNotificationRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return nil
}
func (m *mockNotificationRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}
func (m *mockNotificationRepo) DeleteSentBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

// ownedProject は所有者u1のプロジェクトp1を返す検索関数。
func ownedProject(ctx context.Context, id string) (*model.Project, error) {
	return &model.Project{ID: id, OwnerID: "u1", Name: "Test"}, nil
}

func newTestService(taskRepo *mockTaskRepo, projRepo *mockProjectRepo, workerRepo *mockWorkerRepo, notifRepo *mockNotificationRepo) *Service {
	if taskRepo == nil {
		taskRepo = &mockTaskRepo{}
	}
	if projRepo == nil {
		projRepo = &mockProjectRepo{findByIDFunc: ownedProject}
	}
	if workerRepo == nil {
		workerRepo = &mockWorkerRepo{}
	}
	if notifRepo == nil {
		notifRepo = &mockNotificationRepo{}
	}
	return NewService(taskRepo, projRepo, workerRepo, notifRepo, security.NewContentSanitizer())
}

func TestCreate_DefaultsToTodoStatus(t *testing.T) {
	var saved *model.Task
	taskRepo := &mockTaskRepo{
		createFunc: func(ctx context.Context, task *model.Task) error {
			saved = task
			return nil
		},
	}
	s := newTestService(taskRepo, nil, nil, nil)

	task, err := s.Create(context.Background(), "u1", "p1", "Write docs", "", "", nil)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if task.Status != model.TaskStatusTodo {
		t.Errorf("Status = %v, want todo", task.Status)
	}
	if saved == nil {
		t.Fatal("Create was not called on repository")
	}
}

func TestCreate_RejectsInvalidStatus(t *testing.T) {
	s := newTestService(nil, nil, nil, nil)

	_, err := s.Create(context.Background(), "u1", "p1", "Write docs", "", "archived", nil)
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeInvalidTaskStatus {
		t.Errorf("Code = %v, want %v", apiErr.Code, model.ErrCodeInvalidTaskStatus)
	}
}

func TestCreate_OtherOwnersProject_ReturnsNotFound(t *testing.T) {
	projRepo := &mockProjectRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Project, error) {
			return &model.Project{ID: id, OwnerID: "someone-else"}, nil
		},
	}
	s := newTestService(nil, projRepo, nil, nil)

	_, err := s.Create(context.Background(), "u1", "p1", "Write docs", "", "", nil)
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeProjectNotFound {
		t.Errorf("Code = %v, want %v", apiErr.Code, model.ErrCodeProjectNotFound)
	}
}

func TestAssign_SetsAssigneeAndEnqueuesNotification(t *testing.T) {
	taskRepo := &mockTaskRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{ID: id, ProjectID: "p1", Title: "Write docs", Status: model.TaskStatusTodo}, nil
		},
	}
	workerRepo := &mockWorkerRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Worker, error) {
			return &model.Worker{
				ID: id, Name: "Bob", Email: "bob@example.com",
				WebhookURL: "https://hooks.example.com/bob", Active: true,
			}, nil
		},
	}
	var enqueued *model.Notification
	notifRepo := &mockNotificationRepo{
		createFunc: func(ctx context.Context, n *model.Notification) error {
			enqueued = n
			return nil
		},
	}
	s := newTestService(taskRepo, nil, workerRepo, notifRepo)

	task, err := s.Assign(context.Background(), "u1", "t1", "w1")
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	if task.AssigneeID != "w1" {
		t.Errorf("AssigneeID = %v, want w1", task.AssigneeID)
	}
	if enqueued == nil {
		t.Fatal("notification was not enqueued")
	}
	if enqueued.Status != model.NotificationStatusPending {
		t.Errorf("notification Status = %v, want pending", enqueued.Status)
	}
	if enqueued.Email != "bob@example.com" {
		t.Errorf("notification Email = %v, want bob@example.com", enqueued.Email)
	}
	if enqueued.WebhookURL != "https://hooks.example.com/bob" {
		t.Errorf("notification WebhookURL = %v, want webhook URL", enqueued.WebhookURL)
	}
}

func TestAssign_InactiveWorker_Rejected(t *testing.T) {
	taskRepo := &mockTaskRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{ID: id, ProjectID: "p1", Title: "Write docs"}, nil
		},
	}
	workerRepo := &mockWorkerRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Worker, error) {
			return &model.Worker{ID: id, Name: "Bob", Active: false}, nil
		},
	}
	s := newTestService(taskRepo, nil, workerRepo, nil)

	_, err := s.Assign(context.Background(), "u1", "t1", "w1")
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeWorkerInactive {
		t.Errorf("Code = %v, want %v", apiErr.Code, model.ErrCodeWorkerInactive)
	}
}

func TestAssign_UnknownWorker_ReturnsNotFound(t *testing.T) {
	taskRepo := &mockTaskRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{ID: id, ProjectID: "p1", Title: "Write docs"}, nil
		},
	}
	s := newTestService(taskRepo, nil, nil, nil)

	_, err := s.Assign(context.Background(), "u1", "t1", "missing")
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeWorkerNotFound {
		t.Errorf("Code = %v, want %v", apiErr.Code, model.ErrCodeWorkerNotFound)
	}
}

func TestAssign_NotificationFailure_DoesNotFailAssignment(t *testing.T) {
	taskRepo := &mockTaskRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{ID: id, ProjectID: "p1", Title: "Write docs"}, nil
		},
	}
	workerRepo := &mockWorkerRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Worker, error) {
			return &model.Worker{ID: id, Name: "Bob", Email: "bob@example.com", Active: true}, nil
		},
	}
	notifRepo := &mockNotificationRepo{
		createFunc: func(ctx context.Context, n *model.Notification) error {
			return context.DeadlineExceeded
		},
	}
	s := newTestService(taskRepo, nil, workerRepo, notifRepo)

	task, err := s.Assign(context.Background(), "u1", "t1", "w1")
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}
	if task.AssigneeID != "w1" {
		t.Errorf("AssigneeID = %v, want w1", task.AssigneeID)
	}
}

func TestUpdate_TaskInOtherOwnersProject_ReturnsTaskNotFound(t *testing.T) {
	taskRepo := &mockTaskRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Task, error) {
			return &model.Task{ID: id, ProjectID: "p1", Title: "Secret"}, nil
		},
	}
	projRepo := &mockProjectRepo{
		findByIDFunc: func(ctx context.Context, id string) (*model.Project, error) {
			return &model.Project{ID: id, OwnerID: "someone-else"}, nil
		},
	}
	s := newTestService(taskRepo, projRepo, nil, nil)

	_, err := s.Update(context.Background(), "u1", "t1", "New", "", "todo", nil)
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("error type = %T, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("Code = %v, want %v", apiErr.Code, model.ErrCodeTaskNotFound)
	}
}
