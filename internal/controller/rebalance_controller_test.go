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

package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
	"github.com/b1zzu/kafka-rebalance-operator/internal/rebalance"
	"github.com/b1zzu/kafka-rebalance-operator/pkg/cruisecontrol"
)

func newScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, kafkav1alpha1.AddToScheme(scheme))
	return scheme
}

// testMetrics is shared by every reconciler under test: NewMetrics registers
// its collectors with the process-wide controller-runtime registry, which
// rejects a second registration of the same metric names.
var testMetrics = rebalance.NewMetrics()

func newReconciler(t *testing.T, handler http.HandlerFunc, objs ...runtime.Object) *RebalanceReconciler {
	c := fake.NewClientBuilder().
		WithScheme(newScheme(t)).
		WithRuntimeObjects(objs...).
		WithStatusSubresource(&kafkav1alpha1.KafkaRebalance{}).
		Build()

	metrics := testMetrics
	poll := rebalance.NewPollController(c, metrics)

	factory := CruiseControlClientFactory(func(cluster *kafkav1alpha1.Cluster) *cruisecontrol.Client {
		if handler == nil {
			return cruisecontrol.NewClient("http://unused.invalid")
		}
		srv := httptest.NewServer(handler)
		t.Cleanup(srv.Close)
		return cruisecontrol.NewClient(srv.URL)
	})

	return &RebalanceReconciler{
		Client:        c,
		Scheme:        newScheme(t),
		Locks:         rebalance.NewLockRegistry(),
		Poll:          poll,
		Metrics:       metrics,
		ClientFactory: factory,
	}
}

func newCruiseControlCluster(name, namespace string) *kafkav1alpha1.Cluster {
	return &kafkav1alpha1.Cluster{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: kafkav1alpha1.ClusterSpec{
			CruiseControl: &kafkav1alpha1.CruiseControlSpec{Image: "cruise-control:latest"},
		},
	}
}

func TestReconcilePauseShortCircuit(t *testing.T) {
	kr := &kafkav1alpha1.KafkaRebalance{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "my-rebalance",
			Namespace: "kafka",
			Annotations: map[string]string{
				kafkav1alpha1.PauseAnnotation: "true",
			},
		},
	}
	r := newReconciler(t, func(w http.ResponseWriter, req *http.Request) {
		t.Fatal("must not call cruise control while paused")
	}, kr)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}})
	require.NoError(t, err)

	got := &kafkav1alpha1.KafkaRebalance{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}, got))
	require.Len(t, got.Status.Conditions, 1)
	assert.Equal(t, kafkav1alpha1.ConditionTypeReconciliationPaused, got.Status.Conditions[0].Type)
}

func TestReconcileMissingClusterLabelIsNotReady(t *testing.T) {
	kr := &kafkav1alpha1.KafkaRebalance{
		ObjectMeta: metav1.ObjectMeta{Name: "my-rebalance", Namespace: "kafka"},
	}
	r := newReconciler(t, nil, kr)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}})
	require.NoError(t, err)

	got := &kafkav1alpha1.KafkaRebalance{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}, got))
	state, err := rebalance.CurrentState(got.Status)
	require.NoError(t, err)
	assert.Equal(t, kafkav1alpha1.RebalanceStateNotReady, state)
}

func TestReconcileClusterWithoutCruiseControlIsNotReady(t *testing.T) {
	kr := &kafkav1alpha1.KafkaRebalance{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "my-rebalance",
			Namespace: "kafka",
			Labels:    map[string]string{kafkav1alpha1.RebalanceClusterLabel: "my-cluster"},
		},
	}
	cluster := &kafkav1alpha1.Cluster{
		ObjectMeta: metav1.ObjectMeta{Name: "my-cluster", Namespace: "kafka"},
	}
	r := newReconciler(t, nil, kr, cluster)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}})
	require.NoError(t, err)

	got := &kafkav1alpha1.KafkaRebalance{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}, got))
	state, err := rebalance.CurrentState(got.Status)
	require.NoError(t, err)
	assert.Equal(t, kafkav1alpha1.RebalanceStateNotReady, state)
}

func TestReconcileNewToProposalReadyStripsAnnotation(t *testing.T) {
	kr := &kafkav1alpha1.KafkaRebalance{
		ObjectMeta: metav1.ObjectMeta{
			Name:        "my-rebalance",
			Namespace:   "kafka",
			Labels:      map[string]string{kafkav1alpha1.RebalanceClusterLabel: "my-cluster"},
			Annotations: map[string]string{kafkav1alpha1.RebalanceAnnotation: string(kafkav1alpha1.RebalanceAnnotationRefresh)},
		},
	}
	cluster := newCruiseControlCluster("my-cluster", "kafka")

	r := newReconciler(t, func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userTaskId":"task-1","summary":{"numReplicaMovements":2}}`))
	}, kr, cluster)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}})
	require.NoError(t, err)

	got := &kafkav1alpha1.KafkaRebalance{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}, got))
	state, err := rebalance.CurrentState(got.Status)
	require.NoError(t, err)
	assert.Equal(t, kafkav1alpha1.RebalanceStateProposalReady, state)
	require.NotNil(t, got.Status.SessionID)
	assert.Equal(t, "task-1", *got.Status.SessionID)
	_, hasAnnotation := got.Annotations[kafkav1alpha1.RebalanceAnnotation]
	assert.False(t, hasAnnotation)
}

func TestReconcileIdleTerminalResourceIsNoOp(t *testing.T) {
	sessionID := "task-done"
	kr := &kafkav1alpha1.KafkaRebalance{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "my-rebalance",
			Namespace: "kafka",
			Labels:    map[string]string{kafkav1alpha1.RebalanceClusterLabel: "my-cluster"},
		},
		Status: kafkav1alpha1.KafkaRebalanceStatus{
			Conditions: []metav1.Condition{{
				Type:    string(kafkav1alpha1.RebalanceStateReady),
				Status:  metav1.ConditionTrue,
				Reason:  "Ready",
				Message: "the cluster rebalance completed successfully",
			}},
			SessionID: &sessionID,
		},
	}
	cluster := newCruiseControlCluster("my-cluster", "kafka")

	r := newReconciler(t, func(w http.ResponseWriter, req *http.Request) {
		t.Fatal("must not call cruise control when reconciling an idle terminal resource")
	}, kr, cluster)

	key := types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: key})
	require.NoError(t, err)

	before := &kafkav1alpha1.KafkaRebalance{}
	require.NoError(t, r.Get(context.Background(), key, before))

	_, err = r.Reconcile(context.Background(), ctrl.Request{NamespacedName: key})
	require.NoError(t, err)

	after := &kafkav1alpha1.KafkaRebalance{}
	require.NoError(t, r.Get(context.Background(), key, after))

	assert.Equal(t, before.ResourceVersion, after.ResourceVersion)
	assert.True(t, rebalance.Equal(before.Status, after.Status))
	state, err := rebalance.CurrentState(after.Status)
	require.NoError(t, err)
	assert.Equal(t, kafkav1alpha1.RebalanceStateReady, state)
	require.NotNil(t, after.Status.SessionID)
	assert.Equal(t, sessionID, *after.Status.SessionID)
}

func TestReconcileLockTimeoutDropsEvent(t *testing.T) {
	kr := &kafkav1alpha1.KafkaRebalance{
		ObjectMeta: metav1.ObjectMeta{Name: "my-rebalance", Namespace: "kafka"},
	}
	r := newReconciler(t, nil, kr)

	key := types.NamespacedName{Namespace: "kafka", Name: "my-rebalance"}
	handle, err := r.Locks.Acquire(context.Background(), key, time.Second)
	require.NoError(t, err)
	defer r.Locks.Release(handle)

	// Reconcile's own Acquire uses the package-level LockTimeout (10s); a
	// context deadline shorter than that bounds this test without waiting
	// the full timeout, since Acquire derives its internal context from ctx.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := r.Reconcile(ctx, ctrl.Request{NamespacedName: key})
	require.NoError(t, err)
	assert.Equal(t, ctrl.Result{}, result)
}
