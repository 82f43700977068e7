/*
Copyright 2026.

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

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

const (
	// RebalanceClusterLabel binds a KafkaRebalance to the Cluster it targets.
	RebalanceClusterLabel = "strimzi.io/cluster"

	// RebalanceAnnotation is the control annotation a user sets to drive
	// the rebalance state machine.
	RebalanceAnnotation = "strimzi.io/rebalance"

	// PauseAnnotation, when set to "true", makes the reconciler short
	// circuit without touching the state machine.
	PauseAnnotation = "strimzi.io/pause-reconciliation"
)

// RebalanceState is the name of a state-machine state. Exactly one
// condition of this type may be present in Status.Conditions.
type RebalanceState string

const (
	RebalanceStateNew             RebalanceState = "New"
	RebalanceStatePendingProposal RebalanceState = "PendingProposal"
	RebalanceStateProposalReady   RebalanceState = "ProposalReady"
	RebalanceStateRebalancing     RebalanceState = "Rebalancing"
	RebalanceStateReady           RebalanceState = "Ready"
	RebalanceStateStopped         RebalanceState = "Stopped"
	RebalanceStateNotReady        RebalanceState = "NotReady"
)

// Auxiliary condition types that are not state-machine states.
const (
	ConditionTypeReconciliationPaused = "ReconciliationPaused"
	ConditionTypeWarning              = "Warning"
)

// RebalanceAnnotationValue is a value of the strimzi.io/rebalance annotation.
type RebalanceAnnotationValue string

const (
	RebalanceAnnotationNone    RebalanceAnnotationValue = "none"
	RebalanceAnnotationApprove RebalanceAnnotationValue = "approve"
	RebalanceAnnotationRefresh RebalanceAnnotationValue = "refresh"
	RebalanceAnnotationStop    RebalanceAnnotationValue = "stop"
	RebalanceAnnotationUnknown RebalanceAnnotationValue = "unknown"
)

// allRebalanceStates is used by the reconciler to find the (at most one)
// condition whose type names a state-machine state.
var allRebalanceStates = []RebalanceState{
	RebalanceStateNew,
	RebalanceStatePendingProposal,
	RebalanceStateProposalReady,
	RebalanceStateRebalancing,
	RebalanceStateReady,
	RebalanceStateStopped,
	RebalanceStateNotReady,
}

// IsRebalanceState reports whether conditionType names one of the
// state-machine states.
func IsRebalanceState(conditionType string) bool {
	for _, s := range allRebalanceStates {
		if string(s) == conditionType {
			return true
		}
	}
	return false
}

// KafkaRebalanceSpec defines the desired parameters of a rebalance run.
type KafkaRebalanceSpec struct {
	// Goals is the ordered list of optimization goals to honor. An empty
	// list means the optimization service's configured default goals.
	// +optional
	Goals []string `json:"goals,omitempty"`

	// SkipHardGoalCheck disables the hard-goal inclusion check on the
	// optimization service.
	// +optional
	SkipHardGoalCheck bool `json:"skipHardGoalCheck,omitempty"`

	// ExcludedTopics is a regular expression matching topics to exclude
	// from the rebalance.
	// +optional
	ExcludedTopics string `json:"excludedTopics,omitempty"`

	// +optional
	// +kubebuilder:validation:Minimum:=0
	ConcurrentPartitionMovementsPerBroker int `json:"concurrentPartitionMovementsPerBroker,omitempty"`

	// +optional
	// +kubebuilder:validation:Minimum:=0
	ConcurrentIntraBrokerPartitionMovements int `json:"concurrentIntraBrokerPartitionMovements,omitempty"`

	// +optional
	// +kubebuilder:validation:Minimum:=0
	ConcurrentLeaderMovements int `json:"concurrentLeaderMovements,omitempty"`

	// +optional
	// +kubebuilder:validation:Minimum:=0
	ReplicationThrottle int `json:"replicationThrottle,omitempty"`

	// +optional
	ReplicaMovementStrategies []string `json:"replicaMovementStrategies,omitempty"`
}

// KafkaRebalanceStatus is the sole durable state of the rebalance state
// machine; it must be reconstructable from this struct alone.
type KafkaRebalanceStatus struct {
	// +listType=map
	// +listMapKey=type
	// +optional
	Conditions []metav1.Condition `json:"conditions,omitempty"`

	// SessionID is the optimization service's opaque user task id, set
	// whenever a proposal or execution is pending or in progress.
	// +optional
	SessionID *string `json:"sessionId,omitempty"`

	// OptimizationResult is the last summary document returned by the
	// optimization service, if any.
	// +optional
	OptimizationResult *runtime.RawExtension `json:"optimizationResult,omitempty"`

	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Cluster",type="string",JSONPath=".metadata.labels.strimzi\\.io/cluster"
// +kubebuilder:printcolumn:name="Status",type="string",JSONPath=".status.conditions[?(@.status==\"True\")].type"

// KafkaRebalance is the Schema for the kafkarebalances API. It represents a
// user-declared intent to rebalance the Kafka cluster named by the
// strimzi.io/cluster label, reconciled against an external optimization
// service.
type KafkaRebalance struct {
	metav1.TypeMeta `json:",inline"`

	// +optional
	metav1.ObjectMeta `json:"metadata,omitzero"`

	// +required
	Spec KafkaRebalanceSpec `json:"spec"`

	// +optional
	Status KafkaRebalanceStatus `json:"status,omitzero"`
}

// +kubebuilder:object:root=true

// KafkaRebalanceList contains a list of KafkaRebalance.
type KafkaRebalanceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitzero"`
	Items           []KafkaRebalance `json:"items"`
}

func init() {
	SchemeBuilder.Register(&KafkaRebalance{}, &KafkaRebalanceList{})
}
