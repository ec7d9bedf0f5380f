// Package workflow holds the application state machine: the ordered statuses, the role and
// vote preconditions of each transition, and the pure functions computing the next record.
// Callers load the current record, run the guard, apply, and persist the result atomically.
package workflow

import (
	"fmt"
	"strings"

	"github.com/noah-isme/scholarship-api/internal/models"
	appErrors "github.com/noah-isme/scholarship-api/pkg/errors"
)

// Action enumerates the state-changing workflow actions.
type Action string

const (
	ActionSubmit   Action = "SUBMIT"
	ActionVerify   Action = "VERIFY"
	ActionApprove  Action = "APPROVE"
	ActionDisburse Action = "DISBURSE"
)

// Transition describes one edge of the state machine.
type Transition struct {
	Action    Action
	Role      models.Role
	From      models.ApplicationStatus
	To        models.ApplicationStatus
	Stage     models.VoteStage
	Threshold int
}

// Rules carries the configurable vote thresholds.
type Rules struct {
	SagThreshold   int
	AdminThreshold int
}

// DefaultRules returns one SAG vote and two Admin votes.
func DefaultRules() Rules {
	return Rules{SagThreshold: 1, AdminThreshold: 2}
}

// Normalize replaces non-positive thresholds with the defaults.
func (r Rules) Normalize() Rules {
	def := DefaultRules()
	if r.SagThreshold <= 0 {
		r.SagThreshold = def.SagThreshold
	}
	if r.AdminThreshold <= 0 {
		r.AdminThreshold = def.AdminThreshold
	}
	return r
}

// Transition returns the table entry for action.
func (r Rules) Transition(action Action) (Transition, error) {
	r = r.Normalize()
	switch action {
	case ActionSubmit:
		return Transition{Action: action, Role: models.RoleStudent, From: models.StatusApplied, To: models.StatusApplied}, nil
	case ActionVerify:
		return Transition{Action: action, Role: models.RoleSagBureau, From: models.StatusApplied, To: models.StatusSagVerified, Stage: models.VoteStageSag, Threshold: r.SagThreshold}, nil
	case ActionApprove:
		return Transition{Action: action, Role: models.RoleAdmin, From: models.StatusSagVerified, To: models.StatusAdminApproved, Stage: models.VoteStageAdmin, Threshold: r.AdminThreshold}, nil
	case ActionDisburse:
		return Transition{Action: action, Role: models.RoleFinanceBureau, From: models.StatusAdminApproved, To: models.StatusDisbursed}, nil
	default:
		return Transition{}, fmt.Errorf("unknown workflow action %q", action)
	}
}

// ActionForStage maps a vote stage to its voting action.
func ActionForStage(stage models.VoteStage) (Action, error) {
	switch stage {
	case models.VoteStageSag:
		return ActionVerify, nil
	case models.VoteStageAdmin:
		return ActionApprove, nil
	default:
		return "", fmt.Errorf("unknown vote stage %q", stage)
	}
}

// Authorize checks that the capability may act as role.
func Authorize(capability models.Capability, role models.Role) error {
	if capability.Allows(role) {
		return nil
	}
	if capability.Role == role && !capability.IsActive {
		return appErrors.Clone(appErrors.ErrInactiveAccount, fmt.Sprintf("%s role is inactive for %s", role, capability.Address))
	}
	return appErrors.Clone(appErrors.ErrRoleRequired, fmt.Sprintf("%s role required", role))
}

// AuthorizeAny checks that the capability may act as at least one of roles.
func AuthorizeAny(capability models.Capability, roles ...models.Role) error {
	if capability.AllowsAny(roles...) {
		return nil
	}
	for _, role := range roles {
		if capability.Role == role && !capability.IsActive {
			return appErrors.Clone(appErrors.ErrInactiveAccount, fmt.Sprintf("%s role is inactive for %s", role, capability.Address))
		}
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return appErrors.Clone(appErrors.ErrRoleRequired, fmt.Sprintf("one of %s roles required", strings.Join(names, ", ")))
}

// Submission holds the fields of a new application.
type Submission struct {
	Name         string
	Email        string
	Phone        string
	AadharNumber string
	Income       string
	Documents    []string
}

// JoinedDocuments returns the ordered comma-joined reference list.
func (s Submission) JoinedDocuments() string {
	refs := make([]string, 0, len(s.Documents))
	for _, doc := range s.Documents {
		refs = append(refs, strings.TrimSpace(doc))
	}
	return strings.Join(refs, ",")
}

// CheckSubmit guards the creation of an application.
func CheckSubmit(capability models.Capability, s Submission) error {
	if capability.IsOwner {
		return appErrors.Clone(appErrors.ErrForbidden, "the owner cannot submit an application")
	}
	if err := Authorize(capability, models.RoleStudent); err != nil {
		return err
	}
	required := []struct {
		field string
		value string
	}{
		{"name", s.Name},
		{"email", s.Email},
		{"phone", s.Phone},
		{"aadharNumber", s.AadharNumber},
		{"income", s.Income},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return appErrors.Clone(appErrors.ErrValidation, r.field+" is required")
		}
	}
	if len(s.Documents) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one document reference is required")
	}
	for i, doc := range s.Documents {
		doc = strings.TrimSpace(doc)
		if doc == "" || strings.Contains(doc, ",") {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("document reference %d is invalid", i+1))
		}
	}
	return nil
}

// CheckVote guards a SAG or Admin vote. alreadyVoted must reflect the caller's stored vote for the stage.
func (r Rules) CheckVote(capability models.Capability, action Action, app models.Application, alreadyVoted bool) error {
	t, err := r.Transition(action)
	if err != nil || t.Stage == "" {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a voting action", action))
	}
	if err := Authorize(capability, t.Role); err != nil {
		return err
	}
	if alreadyVoted {
		return appErrors.Clone(appErrors.ErrDuplicateVote, fmt.Sprintf("%s has already voted on application #%d", capability.Address, app.ID))
	}
	if app.Status != t.From {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("application #%d is %s, expected %s", app.ID, app.Status, t.From))
	}
	return nil
}

// ApplyVote returns the record after one counted vote. The status advances only when the count reaches the threshold.
func (r Rules) ApplyVote(app models.Application, action Action) (models.Application, error) {
	t, err := r.Transition(action)
	if err != nil || t.Stage == "" {
		return app, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is not a voting action", action))
	}
	if app.Status != t.From {
		return app, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("application #%d is %s, expected %s", app.ID, app.Status, t.From))
	}
	next := app
	var count int
	switch t.Stage {
	case models.VoteStageSag:
		next.SagVerifiedCount++
		count = next.SagVerifiedCount
	case models.VoteStageAdmin:
		next.AdminApprovedCount++
		count = next.AdminApprovedCount
	}
	if count >= t.Threshold {
		next.Status = t.To
	}
	return next, nil
}

// CheckDisburse guards the payout against the current pooled balance.
func CheckDisburse(capability models.Capability, app models.Application, poolBalance int64) error {
	if err := Authorize(capability, models.RoleFinanceBureau); err != nil {
		return err
	}
	if app.IsDisbursed || app.Status == models.StatusDisbursed {
		return appErrors.Clone(appErrors.ErrAlreadyDisbursed, fmt.Sprintf("application #%d has already been disbursed", app.ID))
	}
	if app.Status != models.StatusAdminApproved {
		return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("application #%d is %s, expected %s", app.ID, app.Status, models.StatusAdminApproved))
	}
	if poolBalance < app.DisbursementAmount {
		return appErrors.Clone(appErrors.ErrInsufficientFunds, fmt.Sprintf("pool balance %d is below disbursement amount %d", poolBalance, app.DisbursementAmount))
	}
	return nil
}

// ApplyDisburse returns the record after payout.
func ApplyDisburse(app models.Application) models.Application {
	next := app
	next.IsDisbursed = true
	next.Status = models.StatusDisbursed
	return next
}

// Validate checks the structural invariants of a stored record.
func (r Rules) Validate(app models.Application) error {
	r = r.Normalize()
	switch {
	case !app.Status.Valid():
		return fmt.Errorf("application #%d: invalid status %d", app.ID, int16(app.Status))
	case app.IsDisbursed != (app.Status == models.StatusDisbursed):
		return fmt.Errorf("application #%d: isDisbursed=%t with status %s", app.ID, app.IsDisbursed, app.Status)
	case app.SagVerifiedCount < 0 || app.SagVerifiedCount > r.SagThreshold:
		return fmt.Errorf("application #%d: sag count %d out of range", app.ID, app.SagVerifiedCount)
	case app.AdminApprovedCount < 0 || app.AdminApprovedCount > r.AdminThreshold:
		return fmt.Errorf("application #%d: admin count %d out of range", app.ID, app.AdminApprovedCount)
	case (app.SagVerifiedCount == r.SagThreshold) != (app.Status >= models.StatusSagVerified):
		return fmt.Errorf("application #%d: sag count %d inconsistent with status %s", app.ID, app.SagVerifiedCount, app.Status)
	case (app.AdminApprovedCount == r.AdminThreshold) != (app.Status >= models.StatusAdminApproved):
		return fmt.Errorf("application #%d: admin count %d inconsistent with status %s", app.ID, app.AdminApprovedCount, app.Status)
	case app.Status < models.StatusSagVerified && app.AdminApprovedCount > 0:
		return fmt.Errorf("application #%d: admin votes before SAG verification", app.ID)
	}
	return nil
}
