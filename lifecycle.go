package main

import (
	"errors"
	"net/http"
	"strings"
)

// ruleError is a business-rule violation carrying the status it maps to.
type ruleError struct {
	status  int
	message string
	data    any
}

func (e *ruleError) Error() string { return e.message }

func newRuleError(status int, message string) *ruleError {
	return &ruleError{status: status, message: message}
}

// writeRuleError answers with the rule's status, or 500 for anything else.
func writeRuleError(w http.ResponseWriter, r *http.Request, err error) {
	var re *ruleError
	if errors.As(err, &re) {
		writeResponse(w, re.status, apiResponse{Error: re.message, Data: re.data})
		return
	}
	internalError(w, r, "Internal server error", err)
}

// checkCanStartDate refuses a new working day while the latest one is still open.
func checkCanStartDate(latest *ActionDate) error {
	if latest == nil {
		return nil
	}
	if latest.EndTime == nil || strings.TrimSpace(*latest.EndTime) == "" {
		return &ruleError{
			status:  http.StatusBadRequest,
			message: "Cannot start again: previous action date is missing an end time",
			data:    map[string]any{"previous_action_date": latest},
		}
	}
	return nil
}

// checkCompletion allows marking a date completed only when it is the latest one.
func checkCompletion(targetID, latestID int) error {
	if latestID == 0 {
		return newRuleError(http.StatusBadRequest, "No action dates found")
	}
	if targetID != latestID {
		return newRuleError(http.StatusBadRequest, "Only the latest date may be marked completed")
	}
	return nil
}

// checkRevert lets only admins mark a date not completed.
func checkRevert(role string) error {
	if !roleAtLeast(role, roleAdmin) {
		return newRuleError(http.StatusForbidden, "Only admins can revert completion")
	}
	return nil
}

func checkResubmit(wo WorkOrder, userID int) error {
	if wo.Status != statusRejected {
		return newRuleError(http.StatusBadRequest, "Only rejected work orders can be resubmitted")
	}
	if wo.RequestedByID != userID {
		return newRuleError(http.StatusForbidden, "Only the work order creator can resubmit it")
	}
	return nil
}

// checkReview guards approve and reject: a decision is only taken on pending orders.
func checkReview(wo WorkOrder) error {
	if wo.Status != statusPending {
		return newRuleError(http.StatusBadRequest, "Only pending work orders can be reviewed")
	}
	return nil
}
