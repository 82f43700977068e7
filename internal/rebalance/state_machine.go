/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package rebalance

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/types"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
	"github.com/b1zzu/kafka-rebalance-operator/pkg/cruisecontrol"
)

// StatusWriterFunc durably persists an intermediate DesiredStatus before
// the state machine suspends on a poll loop, so a restart mid-poll can
// resume from the last checkpoint instead of losing the session id
// (spec.md §9 "status is the only source of truth").
type StatusWriterFunc func(ctx context.Context, key types.NamespacedName, desired DesiredStatus) error

// StateMachine implements the KafkaRebalance transition table (spec.md
// §4.1), translating annotations and Cruise Control responses into the
// next DesiredStatus. It is grounded on
// KafkaRebalanceAssemblyOperator.onNew/onPendingProposal/onProposalReady/
// onRebalancing/onStop/onNotReady, with the vertx periodic-timer futures
// replaced by PollController.Run.
type StateMachine struct {
	CruiseControl *cruisecontrol.Client
	Poll          *PollController
	Metrics       *Metrics
}

// Step computes the next DesiredStatus for kr, currently in state current
// with annotation decoded from its metadata. persist is used to durably
// checkpoint state before a blocking poll begins.
func (sm *StateMachine) Step(ctx context.Context, key types.NamespacedName, kr *kafkav1alpha1.KafkaRebalance, current kafkav1alpha1.RebalanceState, annotation kafkav1alpha1.RebalanceAnnotationValue, persist StatusWriterFunc) (DesiredStatus, error) {
	desired, err := sm.step(ctx, key, kr, current, annotation, persist)
	if err == nil && desired.State != "" {
		sm.Metrics.ObserveTransition(string(desired.State))
	}
	return desired, err
}

func (sm *StateMachine) step(ctx context.Context, key types.NamespacedName, kr *kafkav1alpha1.KafkaRebalance, current kafkav1alpha1.RebalanceState, annotation kafkav1alpha1.RebalanceAnnotationValue, persist StatusWriterFunc) (DesiredStatus, error) {
	switch current {
	case kafkav1alpha1.RebalanceStateNew:
		return sm.onNew(ctx, key, kr, annotation, persist)
	case kafkav1alpha1.RebalanceStatePendingProposal:
		return sm.onPendingProposal(ctx, key, kr, annotation, persist)
	case kafkav1alpha1.RebalanceStateProposalReady:
		return sm.onProposalReady(ctx, key, kr, annotation, persist)
	case kafkav1alpha1.RebalanceStateRebalancing:
		return sm.onRebalancing(ctx, key, kr, persist)
	case kafkav1alpha1.RebalanceStateReady:
		return sm.onTerminal(ctx, key, kr, annotation, persist)
	case kafkav1alpha1.RebalanceStateStopped:
		return sm.onTerminal(ctx, key, kr, annotation, persist)
	case kafkav1alpha1.RebalanceStateNotReady:
		return sm.onTerminal(ctx, key, kr, annotation, persist)
	default:
		return DesiredStatus{}, NewValidationError("UnknownState", fmt.Sprintf("unknown rebalance state %q", current))
	}
}

// onNew requests a dry-run proposal. A stop annotation short-circuits
// straight to Stopped since nothing is running yet.
func (sm *StateMachine) onNew(ctx context.Context, key types.NamespacedName, kr *kafkav1alpha1.KafkaRebalance, annotation kafkav1alpha1.RebalanceAnnotationValue, persist StatusWriterFunc) (DesiredStatus, error) {
	if annotation == kafkav1alpha1.RebalanceAnnotationStop {
		return DesiredStatus{State: kafkav1alpha1.RebalanceStateStopped, Reason: "Stopped", Message: "stopped before a proposal was requested"}, nil
	}

	resp, err := sm.proposal(ctx, optionsFromSpec(kr.Spec), true, "")
	if err != nil {
		return notReadyFromError(err), nil
	}

	switch {
	case resp.NotEnoughData:
		return DesiredStatus{State: kafkav1alpha1.RebalanceStatePendingProposal, Reason: "NotEnoughData", Message: "the cluster workload model does not have enough data yet"}, nil

	case resp.InProgress:
		pending := DesiredStatus{
			State:     kafkav1alpha1.RebalanceStatePendingProposal,
			Reason:    "ProposalRequested",
			Message:   "waiting for the optimization proposal to be computed",
			SessionID: ptrString(resp.UserTaskID),
		}
		if err := persist(ctx, key, pending); err != nil {
			return DesiredStatus{}, err
		}
		return sm.pollPendingProposal(ctx, key, resp.UserTaskID)

	default:
		return DesiredStatus{
			State:              kafkav1alpha1.RebalanceStateProposalReady,
			Reason:             "ProposalReady",
			Message:            "the optimization proposal is ready for approval",
			SessionID:          ptrString(resp.UserTaskID),
			OptimizationResult: resp.Summary,
		}, nil
	}
}

// onPendingProposal resumes polling an already-submitted dry-run task,
// used when the operator restarts (or a resync fires) while a resource is
// already in PendingProposal. A PendingProposal with no recorded session id
// means the cluster workload model did not have enough data the last time a
// proposal was requested; retry the dry-run from scratch rather than error.
func (sm *StateMachine) onPendingProposal(ctx context.Context, key types.NamespacedName, kr *kafkav1alpha1.KafkaRebalance, annotation kafkav1alpha1.RebalanceAnnotationValue, persist StatusWriterFunc) (DesiredStatus, error) {
	if kr.Status.SessionID == nil {
		return sm.onNew(ctx, key, kr, annotation, persist)
	}
	return sm.pollPendingProposal(ctx, key, *kr.Status.SessionID)
}

// pollPendingProposal polls a dry-run task until Cruise Control reports a
// terminal outcome, honoring a stop annotation applied mid-poll.
func (sm *StateMachine) pollPendingProposal(ctx context.Context, key types.NamespacedName, sessionID string) (DesiredStatus, error) {
	var result DesiredStatus
	var consecutiveErrors int

	err := sm.Poll.Run(ctx, key, kafkav1alpha1.RebalanceStatePendingProposal, func(ctx context.Context, kr *kafkav1alpha1.KafkaRebalance) (PollOutcome, error) {
		if DecodeAnnotation(kr) == kafkav1alpha1.RebalanceAnnotationStop {
			result = DesiredStatus{State: kafkav1alpha1.RebalanceStateStopped, Reason: "Stopped", Message: "stopped while the proposal was still being computed"}
			return PollDone, nil
		}

		status, err := sm.taskStatus(ctx, sessionID)
		if err != nil {
			var protocolErr *cruisecontrol.ProtocolError
			consecutiveErrors++
			if consecutiveErrors >= MaxAPIRetries || errors.As(err, &protocolErr) {
				return PollDone, err
			}
			return PollContinue, nil
		}
		consecutiveErrors = 0

		switch status.Status {
		case cruisecontrol.TaskStateCompleted:
			result = DesiredStatus{
				State:              kafkav1alpha1.RebalanceStateProposalReady,
				Reason:             "ProposalReady",
				Message:            "the optimization proposal is ready for approval",
				SessionID:          ptrString(sessionID),
				OptimizationResult: status.Summary,
			}
			return PollDone, nil
		case cruisecontrol.TaskStateCompletedWithError:
			result = notReadyWithSession("the proposal computation failed", sessionID)
			return PollDone, nil
		default:
			return PollContinue, nil
		}
	})
	if err != nil {
		return pollErrorToStatus(err, sessionID)
	}
	return result, nil
}

// onProposalReady waits for a user decision: approve starts execution,
// refresh discards the proposal and requests a fresh one, stop abandons
// it. No annotation leaves the resource unchanged.
func (sm *StateMachine) onProposalReady(ctx context.Context, key types.NamespacedName, kr *kafkav1alpha1.KafkaRebalance, annotation kafkav1alpha1.RebalanceAnnotationValue, persist StatusWriterFunc) (DesiredStatus, error) {
	switch annotation {
	case kafkav1alpha1.RebalanceAnnotationStop:
		return DesiredStatus{State: kafkav1alpha1.RebalanceStateStopped, Reason: "Stopped", Message: "stopped before the proposal was approved"}, nil

	case kafkav1alpha1.RebalanceAnnotationRefresh:
		return sm.onNew(ctx, key, kr, kafkav1alpha1.RebalanceAnnotationNone, persist)

	case kafkav1alpha1.RebalanceAnnotationApprove:
		resp, err := sm.proposal(ctx, optionsFromSpec(kr.Spec), false, "")
		if err != nil {
			return notReadyFromError(err), nil
		}
		if resp.NotEnoughData {
			return DesiredStatus{State: kafkav1alpha1.RebalanceStatePendingProposal, Reason: "NotEnoughData", Message: "the proposal could no longer be executed, not enough data"}, nil
		}

		rebalancing := DesiredStatus{
			State:     kafkav1alpha1.RebalanceStateRebalancing,
			Reason:    "Rebalancing",
			Message:   "the optimization proposal is being executed",
			SessionID: ptrString(resp.UserTaskID),
		}
		if err := persist(ctx, key, rebalancing); err != nil {
			return DesiredStatus{}, err
		}
		return sm.pollRebalancing(ctx, key, resp.UserTaskID)

	default:
		return DesiredStatus{
			State:                  kafkav1alpha1.RebalanceStateProposalReady,
			SessionID:              kr.Status.SessionID,
			KeepOptimizationResult: true,
		}, nil
	}
}

// onRebalancing resumes polling an already-approved execution task, used
// when the operator restarts while a resource is mid-rebalance.
func (sm *StateMachine) onRebalancing(ctx context.Context, key types.NamespacedName, kr *kafkav1alpha1.KafkaRebalance, persist StatusWriterFunc) (DesiredStatus, error) {
	if kr.Status.SessionID == nil {
		return DesiredStatus{}, NewValidationError("MissingSessionID", "Rebalancing resource has no recorded session id")
	}
	return sm.pollRebalancing(ctx, key, *kr.Status.SessionID)
}

// pollRebalancing polls an in-progress execution task until it reaches a
// terminal outcome, issuing StopExecution against Cruise Control if a stop
// annotation arrives mid-poll.
func (sm *StateMachine) pollRebalancing(ctx context.Context, key types.NamespacedName, sessionID string) (DesiredStatus, error) {
	var result DesiredStatus
	var consecutiveErrors int

	err := sm.Poll.Run(ctx, key, kafkav1alpha1.RebalanceStateRebalancing, func(ctx context.Context, kr *kafkav1alpha1.KafkaRebalance) (PollOutcome, error) {
		if DecodeAnnotation(kr) == kafkav1alpha1.RebalanceAnnotationStop {
			if err := sm.stopExecution(ctx); err != nil {
				return PollDone, err
			}
			result = DesiredStatus{State: kafkav1alpha1.RebalanceStateStopped, Reason: "Stopped", Message: "execution stopped on request"}
			return PollDone, nil
		}

		status, err := sm.taskStatus(ctx, sessionID)
		if err != nil {
			var protocolErr *cruisecontrol.ProtocolError
			consecutiveErrors++
			if consecutiveErrors >= MaxAPIRetries || errors.As(err, &protocolErr) {
				return PollDone, err
			}
			return PollContinue, nil
		}
		consecutiveErrors = 0

		switch status.Status {
		case cruisecontrol.TaskStateCompleted:
			result = DesiredStatus{State: kafkav1alpha1.RebalanceStateReady, Reason: "Ready", Message: "the cluster rebalance completed successfully", SessionID: ptrString(sessionID), KeepOptimizationResult: true}
			return PollDone, nil
		case cruisecontrol.TaskStateCompletedWithError:
			result = notReadyWithSession("the rebalance execution failed", sessionID)
			return PollDone, nil
		case cruisecontrol.TaskStateInExecution:
			if status.Summary == nil {
				return PollContinue, nil
			}
			// Merge the in-progress summary and stop this poll loop so the
			// reconciler writes it; the next reconciliation re-enters
			// onRebalancing and resumes polling toward a terminal outcome.
			result = DesiredStatus{
				State:              kafkav1alpha1.RebalanceStateRebalancing,
				Reason:             "Rebalancing",
				Message:            "the cluster rebalance is in progress",
				SessionID:          ptrString(sessionID),
				OptimizationResult: status.Summary,
			}
			return PollDone, nil
		default:
			return PollContinue, nil
		}
	})
	if err != nil {
		return pollErrorToStatus(err, sessionID)
	}
	return result, nil
}

// onTerminal handles Ready, Stopped and NotReady: only a refresh
// annotation does anything, restarting the whole cycle from New. With no
// annotation the resource is left exactly as it is: State is left empty so
// BuildStatus keeps the current state condition unchanged, and the session
// id is carried forward so an idle reconcile of a terminal resource never
// produces a status write (§4.1's ⊥ cells).
func (sm *StateMachine) onTerminal(ctx context.Context, key types.NamespacedName, kr *kafkav1alpha1.KafkaRebalance, annotation kafkav1alpha1.RebalanceAnnotationValue, persist StatusWriterFunc) (DesiredStatus, error) {
	if annotation == kafkav1alpha1.RebalanceAnnotationRefresh {
		return sm.onNew(ctx, key, kr, kafkav1alpha1.RebalanceAnnotationNone, persist)
	}
	return DesiredStatus{SessionID: kr.Status.SessionID, KeepOptimizationResult: true}, nil
}

func (sm *StateMachine) proposal(ctx context.Context, opts cruisecontrol.RebalanceOptions, dryrun bool, userTaskID string) (*cruisecontrol.ProposalResponse, error) {
	resp, err := sm.CruiseControl.Proposal(ctx, opts, dryrun, userTaskID)
	sm.Metrics.ObserveCruiseControlCall("proposal", outcomeOf(err))
	return resp, err
}

func (sm *StateMachine) taskStatus(ctx context.Context, userTaskID string) (*cruisecontrol.TaskStatusResponse, error) {
	resp, err := sm.CruiseControl.TaskStatus(ctx, userTaskID)
	sm.Metrics.ObserveCruiseControlCall("task-status", outcomeOf(err))
	return resp, err
}

func (sm *StateMachine) stopExecution(ctx context.Context) error {
	err := sm.CruiseControl.StopExecution(ctx)
	sm.Metrics.ObserveCruiseControlCall("stop-execution", outcomeOf(err))
	return err
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

func optionsFromSpec(spec kafkav1alpha1.KafkaRebalanceSpec) cruisecontrol.RebalanceOptions {
	return cruisecontrol.RebalanceOptions{
		Goals:                                   spec.Goals,
		SkipHardGoalCheck:                       spec.SkipHardGoalCheck,
		ExcludedTopics:                           spec.ExcludedTopics,
		ConcurrentPartitionMovementsPerBroker:    spec.ConcurrentPartitionMovementsPerBroker,
		ConcurrentIntraBrokerPartitionMovements:  spec.ConcurrentIntraBrokerPartitionMovements,
		ConcurrentLeaderMovements:                spec.ConcurrentLeaderMovements,
		ReplicationThrottle:                      spec.ReplicationThrottle,
		ReplicaMovementStrategies:                spec.ReplicaMovementStrategies,
	}
}

// notReadyWithSession surfaces the Cruise Control session id in the
// NotReady message on COMPLETED_WITH_ERROR, since the task id is the only
// handle an operator has to look up the failure server-side (open
// question from the original implementation, resolved in DESIGN.md).
func notReadyWithSession(reason, sessionID string) DesiredStatus {
	return DesiredStatus{
		State:     kafkav1alpha1.RebalanceStateNotReady,
		Reason:    "CruiseControlTaskFailed",
		Message:   fmt.Sprintf("%s (Cruise Control task id: %s)", reason, sessionID),
		SessionID: ptrString(sessionID),
	}
}

func notReadyFromError(err error) DesiredStatus {
	return DesiredStatus{
		State:   kafkav1alpha1.RebalanceStateNotReady,
		Reason:  "CruiseControlRequestFailed",
		Message: err.Error(),
	}
}

func pollErrorToStatus(err error, sessionID string) (DesiredStatus, error) {
	if errors.Is(err, ErrStaleResource) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return DesiredStatus{}, err
	}
	return notReadyWithSession(fmt.Sprintf("polling failed: %s", err), sessionID), nil
}

func ptrString(s string) *string { return &s }
