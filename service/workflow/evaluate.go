package workflow

import (
	"github.com/viant/approval/model"
)

// Evaluate derives the aggregate request status from a recipient snapshot.
// It is a pure function: given an unchanged snapshot it always returns the
// same result, which is what makes re-running it from concurrent decision
// paths safe.
//
// ALL policy: any rejection rejects; all approved approves; no pending left
// with some expired (and none rejected) rejects. ANY policy: one approval
// approves; no pending left without any approval rejects. Otherwise the
// current status stands and the returned reason is empty.
func Evaluate(policy model.Policy, current model.RequestStatus, recipients []*model.Recipient) (model.RequestStatus, string) {
	tally := model.TallyOf(recipients)

	switch policy {
	case model.PolicyAll:
		switch {
		case tally.Rejected > 0:
			return model.RequestRejected, model.ReasonAtLeastOneRejection
		case tally.Approved == tally.Total && tally.Total > 0:
			return model.RequestApproved, model.ReasonAllApproved
		case tally.Pending == 0 && tally.Expired > 0:
			return model.RequestRejected, model.ReasonExpiredRecipients
		}
	case model.PolicyAny:
		switch {
		case tally.Approved > 0:
			return model.RequestApproved, model.ReasonAtLeastOneApproval
		case tally.Pending == 0 && tally.Total > 0:
			return model.RequestRejected, model.ReasonAllRejectedOrExpired
		}
	}
	return current, ""
}
