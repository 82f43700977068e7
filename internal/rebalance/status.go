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
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/google/go-cmp/cmp"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
)

// StateCondition returns the (at most one) condition in status whose type
// names a rebalance state. ErrMultipleStateConditions is returned if more
// than one is present.
func StateCondition(status kafkav1alpha1.KafkaRebalanceStatus) (*metav1.Condition, error) {
	var found *metav1.Condition
	for i := range status.Conditions {
		c := &status.Conditions[i]
		if !kafkav1alpha1.IsRebalanceState(c.Type) {
			continue
		}
		if found != nil {
			return nil, ErrMultipleStateConditions
		}
		found = c
	}
	return found, nil
}

// CurrentState derives the current state-machine state from status,
// reconstructing it entirely from the durable status document: the
// reconciler never trusts a cached value (spec.md §9).
func CurrentState(status kafkav1alpha1.KafkaRebalanceStatus) (kafkav1alpha1.RebalanceState, error) {
	cond, err := StateCondition(status)
	if err != nil {
		return "", err
	}
	if cond == nil {
		return kafkav1alpha1.RebalanceStateNew, nil
	}
	return kafkav1alpha1.RebalanceState(cond.Type), nil
}

// DesiredStatus is what a StateMachine step decides the next state
// condition and session bookkeeping should look like; StatusCodec folds it
// onto the current status.
type DesiredStatus struct {
	State   kafkav1alpha1.RebalanceState
	Reason  string
	Message string

	SessionID *string

	// OptimizationResult replaces the current summary. Nil means "clear
	// it", unless KeepOptimizationResult is set.
	OptimizationResult map[string]any

	// KeepOptimizationResult carries forward the current
	// OptimizationResult unchanged, used by steps that don't receive a
	// fresh summary (e.g. a COMPLETED execution, or a step that leaves the
	// resource where it is).
	KeepOptimizationResult bool
}

// BuildStatus folds a DesiredStatus onto the current status: it replaces
// the single state condition (preserving LastTransitionTime when the
// condition's status component is unchanged), appends validation warnings,
// and sets sessionId/optimizationResult/observedGeneration.
func BuildStatus(current kafkav1alpha1.KafkaRebalanceStatus, desired DesiredStatus, observedGeneration int64, validation []metav1.Condition) (kafkav1alpha1.KafkaRebalanceStatus, error) {
	// An empty State means "no transition": keep the existing state
	// condition exactly as it is instead of replacing it with a condition
	// of type "" (onTerminal's no-annotation no-op, for example).
	if desired.State == "" {
		existing, err := StateCondition(current)
		if err != nil {
			return kafkav1alpha1.KafkaRebalanceStatus{}, err
		}
		if existing != nil {
			desired.State = kafkav1alpha1.RebalanceState(existing.Type)
			if desired.Reason == "" {
				desired.Reason = existing.Reason
			}
			if desired.Message == "" {
				desired.Message = existing.Message
			}
		}
	}

	conditions := make([]metav1.Condition, 0, len(current.Conditions))
	for _, c := range current.Conditions {
		if kafkav1alpha1.IsRebalanceState(c.Type) && c.Type != string(desired.State) {
			continue
		}
		if c.Type == kafkav1alpha1.ConditionTypeWarning {
			continue
		}
		conditions = append(conditions, c)
	}

	reason := desired.Reason
	if reason == "" {
		reason = string(desired.State)
	}
	meta.SetStatusCondition(&conditions, metav1.Condition{
		Type:    string(desired.State),
		Status:  metav1.ConditionTrue,
		Reason:  reason,
		Message: desired.Message,
	})

	for _, w := range validation {
		meta.SetStatusCondition(&conditions, w)
	}

	result := kafkav1alpha1.KafkaRebalanceStatus{
		Conditions:         conditions,
		SessionID:          desired.SessionID,
		ObservedGeneration: observedGeneration,
	}

	switch {
	case desired.KeepOptimizationResult:
		result.OptimizationResult = current.OptimizationResult
	case desired.OptimizationResult != nil:
		raw, err := rawExtensionFromMap(desired.OptimizationResult)
		if err != nil {
			return kafkav1alpha1.KafkaRebalanceStatus{}, err
		}
		result.OptimizationResult = raw
	}

	return result, nil
}

// BuildPausedStatus builds the status written when the resource carries
// the pause annotation: its only condition is ReconciliationPaused, plus
// any validation warnings, per spec.md §4.1 "Pause semantics".
func BuildPausedStatus(validation []metav1.Condition) kafkav1alpha1.KafkaRebalanceStatus {
	conditions := []metav1.Condition{{
		Type:    kafkav1alpha1.ConditionTypeReconciliationPaused,
		Status:  metav1.ConditionTrue,
		Reason:  "ReconciliationPaused",
		Message: "Reconciliation is paused via the strimzi.io/pause-reconciliation annotation",
	}}
	conditions = append(conditions, validation...)
	return kafkav1alpha1.KafkaRebalanceStatus{Conditions: conditions}
}

// Equal reports whether two statuses are identical once LastTransitionTime
// is normalized away, so a reconciliation that produced no real change
// elides the status write.
func Equal(a, b kafkav1alpha1.KafkaRebalanceStatus) bool {
	return cmp.Equal(normalize(a), normalize(b))
}

func normalize(s kafkav1alpha1.KafkaRebalanceStatus) kafkav1alpha1.KafkaRebalanceStatus {
	out := s.DeepCopy()
	for i := range out.Conditions {
		out.Conditions[i].LastTransitionTime = metav1.Time{}
	}
	return *out
}

// Validate produces the validation-warning conditions appended to every
// written status regardless of the state transition taken.
func Validate(kr *kafkav1alpha1.KafkaRebalance) []metav1.Condition {
	var messages []string

	if kr.Spec.ExcludedTopics != "" {
		if _, err := regexp.Compile(kr.Spec.ExcludedTopics); err != nil {
			messages = append(messages, fmt.Sprintf("excludedTopics is not a valid regular expression: %s", err))
		}
	}
	for _, g := range kr.Spec.Goals {
		if g == "" {
			messages = append(messages, "goals contains an empty entry")
			break
		}
	}
	if DecodeAnnotation(kr) == kafkav1alpha1.RebalanceAnnotationUnknown {
		raw := kr.GetAnnotations()[kafkav1alpha1.RebalanceAnnotation]
		messages = append(messages, fmt.Sprintf("unrecognized value %q for annotation %s", raw, kafkav1alpha1.RebalanceAnnotation))
	}

	if len(messages) == 0 {
		return nil
	}

	message := messages[0]
	for _, m := range messages[1:] {
		message += "; " + m
	}

	return []metav1.Condition{{
		Type:    kafkav1alpha1.ConditionTypeWarning,
		Status:  metav1.ConditionTrue,
		Reason:  "ValidationWarning",
		Message: message,
	}}
}

func rawExtensionFromMap(m map[string]any) (*runtime.RawExtension, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return &runtime.RawExtension{Raw: b}, nil
}
