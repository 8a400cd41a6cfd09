package policy

import (
	"fmt"

	"agencydesk/internal/config"
	"agencydesk/internal/domain"
)

// ForbiddenError indicates the actor may not perform the action.
type ForbiddenError struct {
	Action string
	Reason string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("%s forbidden: %s", e.Action, e.Reason)
}

// Policy holds the authorization switches from agencydesk.yml.
type Policy struct {
	EnforceReviewerIdentity bool
}

func FromConfig(cfg *config.Config) Policy {
	if cfg == nil {
		return Policy{}
	}
	return Policy{EnforceReviewerIdentity: cfg.Policies.Approvals.EnforceReviewerIdentity}
}

// ResolvePeer checks that actor may record the peer decision on a.
func (p Policy) ResolvePeer(actor domain.Actor, a domain.Approval) error {
	return p.designated("approvals.peer", "peer reviewer", actor, a.PeerReviewerID)
}

// ResolveSenior checks that actor may record the senior decision on a.
func (p Policy) ResolveSenior(actor domain.Actor, a domain.Approval) error {
	return p.designated("approvals.senior", "senior approver", actor, a.SeniorApproverID)
}

func (p Policy) designated(action, side string, actor domain.Actor, assignee *int64) error {
	if !p.EnforceReviewerIdentity || actor.Role == domain.RoleAdmin {
		return nil
	}
	if assignee == nil {
		return ForbiddenError{Action: action, Reason: "no " + side + " assigned"}
	}
	if *assignee != actor.UserID {
		return ForbiddenError{Action: action, Reason: fmt.Sprintf("user %d is not the %s", actor.UserID, side)}
	}
	return nil
}
