package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/birun/console/pkg/models"
	"github.com/birun/console/pkg/persistence"
)

// WorkflowRepository stores one JSON document per workflow under <root>/workflows/<id>.json.
type WorkflowRepository struct {
	root string
	mu   sync.Mutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string) *WorkflowRepository {
	return &WorkflowRepository{root: root}
}

func (wr *WorkflowRepository) dir() string {
	return path.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) file(id int64) string {
	return filepath.Clean(path.Join(wr.dir(), strconv.FormatInt(id, 10)+".json"))
}

func (wr *WorkflowRepository) ids() ([]int64, error) {
	jsonFiles, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	ids := make([]int64, 0, len(jsonFiles))
	for _, name := range jsonFiles {
		id, err := strconv.ParseInt(strings.TrimSuffix(name, ".json"), 10, 64)
		if err != nil {
			continue
		}

		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// GetAll loads every stored workflow ordered by id.
func (wr *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := wr.ids()
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))
	for _, id := range ids {
		workflow, err := wr.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workflow %d: %w", id, err)
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// GetByID retrieves a workflow by its ID from the file system.
func (wr *WorkflowRepository) GetByID(_ context.Context, id int64) (*models.Workflow, error) {
	body, err := os.ReadFile(wr.file(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to fetch workflow %d: %w", id, err)
	}

	var workflow models.Workflow

	err = json.Unmarshal(body, &workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %d: %w", id, err)
	}

	workflow.ID = id
	workflow.Normalize()

	return &workflow, nil
}

// Create assigns the next free id and stores the workflow.
func (wr *WorkflowRepository) Create(_ context.Context, workflow *models.Workflow) (int64, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if err := os.MkdirAll(wr.dir(), 0750); err != nil {
		return 0, fmt.Errorf("failed to create workflows directory: %w", err)
	}

	ids, err := wr.ids()
	if err != nil {
		return 0, err
	}

	next := int64(1)
	if len(ids) > 0 {
		next = ids[len(ids)-1] + 1
	}

	stored := workflow.Clone()
	stored.ID = next

	if err := wr.write(stored); err != nil {
		return 0, err
	}

	return next, nil
}

// Save replaces the stored document of an existing workflow.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if workflow.ID <= 0 {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, persistence.ErrInvalidWorkflowID)
	}

	if _, err := os.Stat(wr.file(workflow.ID)); os.IsNotExist(err) {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, persistence.ErrWorkflowNotFound)
	}

	return wr.write(workflow)
}

func (wr *WorkflowRepository) write(workflow *models.Workflow) error {
	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal workflow %d: %w", workflow.ID, err)
	}

	tmp := wr.file(workflow.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write workflow %d: %w", workflow.ID, err)
	}

	return os.Rename(tmp, wr.file(workflow.ID))
}

// Delete removes a workflow by its ID.
func (wr *WorkflowRepository) Delete(_ context.Context, id int64) error {
	err := os.Remove(wr.file(id))

	if err != nil && os.IsNotExist(err) {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return fmt.Errorf("failed to delete workflow %d: %w", id, err)
	}

	return nil
}

// Workflows lists stored workflows as summaries. Run statistics are only known to the backend.
func (fp *Persistence) Workflows(ctx context.Context) ([]models.WorkflowSummary, error) {
	workflows, err := fp.workflows.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.WorkflowSummary, 0, len(workflows))
	for _, w := range workflows {
		summaries = append(summaries, models.WorkflowSummary{
			ID:               w.ID,
			Name:             w.Name,
			Description:      w.Description,
			TriggerType:      w.TriggerType,
			ScheduleCron:     w.ScheduleCron,
			ScheduleTimezone: w.ScheduleTimezone,
		})
	}

	return summaries, nil
}

func (fp *Persistence) WorkflowByID(ctx context.Context, id int64) (*models.Workflow, error) {
	return fp.workflows.GetByID(ctx, id)
}

func (fp *Persistence) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (int64, error) {
	return fp.workflows.Create(ctx, workflow)
}

func (fp *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	return fp.workflows.Save(ctx, workflow)
}

func (fp *Persistence) DeleteWorkflow(ctx context.Context, id int64) error {
	return fp.workflows.Delete(ctx, id)
}
