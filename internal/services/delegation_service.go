package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/notify"
	"github.com/yukikurage/taskflow/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrDelegationNotFound     = errors.New("delegation not found")
	ErrNotDelegator           = errors.New("only the delegator can review this delegation")
	ErrInvalidDelegationState = errors.New("delegation is not awaiting verification")
	ErrSelfDelegation         = errors.New("a task cannot be delegated to the delegator")
	ErrDelegateeNotFound      = errors.New("delegatee not found")
	ErrReasonRequired         = errors.New("a rejection reason is required")
)

// DelegationService runs the delegation sub-lifecycle:
// active -> completed -> verified, or completed -> active on rejection.
type DelegationService struct {
	delegationRepo repository.DelegationRepository
	taskRepo       repository.TaskRepository
	staffRepo      repository.StaffRepository
	now            func() time.Time
}

// NewDelegationService creates a new DelegationService
func NewDelegationService(delegationRepo repository.DelegationRepository, taskRepo repository.TaskRepository, staffRepo repository.StaffRepository) *DelegationService {
	return &DelegationService{
		delegationRepo: delegationRepo,
		taskRepo:       taskRepo,
		staffRepo:      staffRepo,
		now:            time.Now,
	}
}

// DelegateInput represents a hand-off request
type DelegateInput struct {
	TaskID      uuid.UUID
	FromStaffID uuid.UUID
	ToStaffID   uuid.UUID
	Notes       string
}

// Delegate records an active hand-off of a task and notifies the delegatee
func (s *DelegationService) Delegate(ctx context.Context, input DelegateInput) (*models.TaskDelegation, []notify.Message, error) {
	if input.FromStaffID == input.ToStaffID {
		return nil, nil, ErrSelfDelegation
	}

	task, err := s.findTask(ctx, input.TaskID)
	if err != nil {
		return nil, nil, err
	}

	delegatee, err := s.staffRepo.FindByID(ctx, input.ToStaffID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrDelegateeNotFound
		}
		return nil, nil, fmt.Errorf("failed to find delegatee: %w", err)
	}

	delegation := &models.TaskDelegation{
		TaskID:      task.ID,
		FromStaffID: input.FromStaffID,
		ToStaffID:   delegatee.ID,
		Notes:       input.Notes,
		Status:      models.DelegationActive,
	}
	if err := s.delegationRepo.Create(ctx, delegation); err != nil {
		return nil, nil, fmt.Errorf("failed to create delegation: %w", err)
	}

	msg := delegationMessage(task, delegation, delegatee.ID, notify.TypeTaskDelegated,
		"Task delegated to you",
		fmt.Sprintf("%s: %s has been delegated to you", task.TaskNo, task.Title))
	msg.SendEmail = true
	if input.Notes != "" {
		msg.Metadata["notes"] = input.Notes
	}

	return delegation, []notify.Message{msg}, nil
}

// InterceptCompletion handles a status update to completed made by the
// delegatee of an active delegation. The delegation moves to completed and
// the task row is left untouched. handled is false when actorID holds no
// active delegation on the task, in which case nothing is written.
func (s *DelegationService) InterceptCompletion(ctx context.Context, task *models.Task, actorID uuid.UUID, notes *string) (bool, []notify.Message, error) {
	delegation, err := s.delegationRepo.FindActiveForDelegatee(ctx, task.ID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil, nil
		}
		return false, nil, fmt.Errorf("failed to look up active delegation: %w", err)
	}

	if err := s.delegationRepo.MarkCompleted(ctx, delegation.ID, notes, s.now()); err != nil {
		if errors.Is(err, repository.ErrDelegationStateChanged) {
			return false, nil, ErrInvalidDelegationState
		}
		return false, nil, fmt.Errorf("failed to complete delegation: %w", err)
	}

	msg := delegationMessage(task, delegation, delegation.FromStaffID, notify.TypeDelegationCompleted,
		"Delegated task completed",
		fmt.Sprintf("%s: %s is awaiting your verification", task.TaskNo, task.Title))
	msg.SendEmail = true
	if notes != nil {
		msg.Metadata["delegatee_notes"] = *notes
	}

	return true, []notify.Message{msg}, nil
}

// Verify approves completed delegated work: the delegation becomes verified
// and the task completed. The delegatee and every admin are notified.
func (s *DelegationService) Verify(ctx context.Context, delegationID, actorID uuid.UUID) (*models.TaskDelegation, []notify.Message, error) {
	delegation, task, err := s.loadForReview(ctx, delegationID, actorID)
	if err != nil {
		return nil, nil, err
	}

	at := s.now()
	if err := s.delegationRepo.MarkVerified(ctx, delegation, at); err != nil {
		if errors.Is(err, repository.ErrDelegationStateChanged) {
			return nil, nil, ErrInvalidDelegationState
		}
		return nil, nil, fmt.Errorf("failed to verify delegation: %w", err)
	}
	delegation.Status = models.DelegationVerified
	delegation.VerifiedByDelegatorAt = &at

	admins, err := s.staffRepo.ListByRole(ctx, models.RoleAdmin)
	if err != nil {
		// The transition is committed; admins simply miss this notification
		logSecondaryFailure(err, "failed to load admins for verification notice", task)
	}

	recipients := make([]uuid.UUID, 0, len(admins)+1)
	recipients = append(recipients, delegation.ToStaffID)
	for _, admin := range admins {
		recipients = append(recipients, admin.ID)
	}

	var msgs []notify.Message
	for _, recipient := range uniqueIDs(recipients) {
		if recipient == actorID {
			continue
		}
		msg := delegationMessage(task, delegation, recipient, notify.TypeDelegationVerified,
			"Delegated task verified",
			fmt.Sprintf("%s: %s has been verified as completed", task.TaskNo, task.Title))
		msgs = append(msgs, msg)
	}

	return delegation, msgs, nil
}

// Reject sends completed delegated work back: the delegation returns to
// active and the task to in_progress. The delegatee is told why.
func (s *DelegationService) Reject(ctx context.Context, delegationID, actorID uuid.UUID, reason string) (*models.TaskDelegation, []notify.Message, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, nil, ErrReasonRequired
	}

	delegation, task, err := s.loadForReview(ctx, delegationID, actorID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.delegationRepo.Reopen(ctx, delegation); err != nil {
		if errors.Is(err, repository.ErrDelegationStateChanged) {
			return nil, nil, ErrInvalidDelegationState
		}
		return nil, nil, fmt.Errorf("failed to reject delegation: %w", err)
	}
	delegation.Status = models.DelegationActive
	delegation.CompletedByDelegateeAt = nil
	delegation.DelegateeNotes = nil

	msg := delegationMessage(task, delegation, delegation.ToStaffID, notify.TypeDelegationRejected,
		"Delegated task rejected",
		fmt.Sprintf("%s: %s was sent back: %s", task.TaskNo, task.Title, reason))
	msg.SendEmail = true
	msg.Metadata["reason"] = reason

	return delegation, []notify.Message{msg}, nil
}

func (s *DelegationService) loadForReview(ctx context.Context, delegationID, actorID uuid.UUID) (*models.TaskDelegation, *models.Task, error) {
	delegation, err := s.delegationRepo.FindByID(ctx, delegationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrDelegationNotFound
		}
		return nil, nil, fmt.Errorf("failed to find delegation: %w", err)
	}

	if delegation.FromStaffID != actorID {
		return nil, nil, ErrNotDelegator
	}
	if delegation.Status != models.DelegationCompleted {
		return nil, nil, ErrInvalidDelegationState
	}

	task, err := s.findTask(ctx, delegation.TaskID)
	if err != nil {
		return nil, nil, err
	}
	return delegation, task, nil
}

func (s *DelegationService) findTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func delegationMessage(task *models.Task, delegation *models.TaskDelegation, recipient uuid.UUID, kind, title, body string) notify.Message {
	taskID := task.ID
	return notify.Message{
		RecipientID: recipient,
		Type:        kind,
		Title:       title,
		Body:        body,
		ReferenceID: &taskID,
		Metadata: map[string]any{
			"task_no":       task.TaskNo,
			"delegation_id": delegation.ID.String(),
		},
	}
}
