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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
)

func TestCurrentStateDefaultsToNew(t *testing.T) {
	state, err := CurrentState(kafkav1alpha1.KafkaRebalanceStatus{})
	require.NoError(t, err)
	assert.Equal(t, kafkav1alpha1.RebalanceStateNew, state)
}

func TestCurrentStateReadsStateCondition(t *testing.T) {
	status := kafkav1alpha1.KafkaRebalanceStatus{
		Conditions: []metav1.Condition{{
			Type:   string(kafkav1alpha1.RebalanceStateProposalReady),
			Status: metav1.ConditionTrue,
			Reason: "ProposalReady",
		}},
	}
	state, err := CurrentState(status)
	require.NoError(t, err)
	assert.Equal(t, kafkav1alpha1.RebalanceStateProposalReady, state)
}

func TestCurrentStateRejectsMultipleStateConditions(t *testing.T) {
	status := kafkav1alpha1.KafkaRebalanceStatus{
		Conditions: []metav1.Condition{
			{Type: string(kafkav1alpha1.RebalanceStateNew), Status: metav1.ConditionTrue},
			{Type: string(kafkav1alpha1.RebalanceStateReady), Status: metav1.ConditionTrue},
		},
	}
	_, err := CurrentState(status)
	assert.ErrorIs(t, err, ErrMultipleStateConditions)
}

func TestBuildStatusReplacesStateCondition(t *testing.T) {
	current := kafkav1alpha1.KafkaRebalanceStatus{
		Conditions: []metav1.Condition{{
			Type:   string(kafkav1alpha1.RebalanceStateNew),
			Status: metav1.ConditionTrue,
			Reason: "New",
		}},
	}

	desired := DesiredStatus{
		State:     kafkav1alpha1.RebalanceStatePendingProposal,
		Reason:    "ProposalRequested",
		SessionID: ptrString("task-1"),
	}

	status, err := BuildStatus(current, desired, 3, nil)
	require.NoError(t, err)
	require.Len(t, status.Conditions, 1)
	assert.Equal(t, string(kafkav1alpha1.RebalanceStatePendingProposal), status.Conditions[0].Type)
	assert.Equal(t, "task-1", *status.SessionID)
	assert.Equal(t, int64(3), status.ObservedGeneration)
}

func TestBuildStatusKeepsOptimizationResult(t *testing.T) {
	raw := map[string]any{"numReplicaMovements": 2.0}
	current, err := BuildStatus(kafkav1alpha1.KafkaRebalanceStatus{}, DesiredStatus{
		State:              kafkav1alpha1.RebalanceStateProposalReady,
		OptimizationResult: raw,
	}, 1, nil)
	require.NoError(t, err)
	require.NotNil(t, current.OptimizationResult)

	next, err := BuildStatus(current, DesiredStatus{
		State:                  kafkav1alpha1.RebalanceStateProposalReady,
		KeepOptimizationResult: true,
	}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, current.OptimizationResult, next.OptimizationResult)
}

func TestBuildStatusEmptyStateKeepsCurrentStateCondition(t *testing.T) {
	current := kafkav1alpha1.KafkaRebalanceStatus{
		Conditions: []metav1.Condition{{
			Type:    string(kafkav1alpha1.RebalanceStateReady),
			Status:  metav1.ConditionTrue,
			Reason:  "Ready",
			Message: "the cluster rebalance completed successfully",
		}},
		SessionID: ptrString("task-9"),
	}

	next, err := BuildStatus(current, DesiredStatus{SessionID: current.SessionID, KeepOptimizationResult: true}, 0, nil)
	require.NoError(t, err)
	require.True(t, Equal(current, next))
}

func TestEqualIgnoresLastTransitionTime(t *testing.T) {
	a := kafkav1alpha1.KafkaRebalanceStatus{
		Conditions: []metav1.Condition{{
			Type:               string(kafkav1alpha1.RebalanceStateReady),
			Status:             metav1.ConditionTrue,
			LastTransitionTime: metav1.Now(),
		}},
	}
	b := *a.DeepCopy()
	b.Conditions[0].LastTransitionTime = metav1.Time{}

	assert.True(t, Equal(a, b))
}

func TestValidateFlagsInvalidExcludedTopicsRegex(t *testing.T) {
	kr := &kafkav1alpha1.KafkaRebalance{
		Spec: kafkav1alpha1.KafkaRebalanceSpec{ExcludedTopics: "("},
	}
	warnings := Validate(kr)
	require.Len(t, warnings, 1)
	assert.Equal(t, kafkav1alpha1.ConditionTypeWarning, warnings[0].Type)
}

func TestValidateAcceptsCleanSpec(t *testing.T) {
	kr := &kafkav1alpha1.KafkaRebalance{
		Spec: kafkav1alpha1.KafkaRebalanceSpec{Goals: []string{"RackAwareGoal"}},
	}
	assert.Nil(t, Validate(kr))
}

func TestBuildPausedStatus(t *testing.T) {
	status := BuildPausedStatus(nil)
	require.Len(t, status.Conditions, 1)
	assert.Equal(t, kafkav1alpha1.ConditionTypeReconciliationPaused, status.Conditions[0].Type)
}
