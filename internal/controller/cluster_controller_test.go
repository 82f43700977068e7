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
	"testing"

	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
)

func newClusterScheme(t *testing.T) *runtime.Scheme {
	scheme := runtime.NewScheme()
	require.NoError(t, kafkav1alpha1.AddToScheme(scheme))
	require.NoError(t, appsv1.AddToScheme(scheme))
	require.NoError(t, corev1.AddToScheme(scheme))
	return scheme
}

func newClusterReconciler(t *testing.T, objs ...runtime.Object) (*ClusterReconciler, *kafkav1alpha1.Cluster) {
	scheme := newClusterScheme(t)
	c := fake.NewClientBuilder().
		WithScheme(scheme).
		WithRuntimeObjects(objs...).
		WithStatusSubresource(&kafkav1alpha1.Cluster{}).
		Build()

	return &ClusterReconciler{Client: c, Scheme: scheme}, objs[0].(*kafkav1alpha1.Cluster)
}

func TestReconcileClusterWithNoCruiseControlSpecSetsUnavailable(t *testing.T) {
	cluster := &kafkav1alpha1.Cluster{
		ObjectMeta: metav1.ObjectMeta{Name: "c", Namespace: "kafka"},
		Status: kafkav1alpha1.ClusterStatus{
			Conditions: []metav1.Condition{{Type: typeAvailableCluster, Status: metav1.ConditionUnknown, Reason: "Reconciling"}},
		},
	}
	r, _ := newClusterReconciler(t, cluster)

	_, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Name: "c", Namespace: "kafka"}})
	require.NoError(t, err)

	got := &kafkav1alpha1.Cluster{}
	require.NoError(t, r.Get(context.Background(), types.NamespacedName{Name: "c", Namespace: "kafka"}, got))

	cond := meta.FindStatusCondition(got.Status.Conditions, typeAvailableCluster)
	require.NotNil(t, cond)
	require.Equal(t, metav1.ConditionFalse, cond.Status)
	require.Equal(t, reasonNoCruiseControl, cond.Reason)
}

func TestReconcileCruiseControlAbsenceDeletesLeftoverResources(t *testing.T) {
	cluster := &kafkav1alpha1.Cluster{
		ObjectMeta: metav1.ObjectMeta{Name: "c", Namespace: "kafka"},
		Status: kafkav1alpha1.ClusterStatus{
			Conditions: []metav1.Condition{{Type: typeAvailableCluster, Status: metav1.ConditionTrue, Reason: "DeploymentAvailable"}},
		},
	}
	deployment := &appsv1.Deployment{ObjectMeta: metav1.ObjectMeta{Name: "c-cruise-control", Namespace: "kafka"}}
	configMap := &corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: configMapNameForCluster(cluster), Namespace: "kafka"}}

	r, _ := newClusterReconciler(t, cluster, deployment, configMap)

	_, err := r.reconcileCruiseControlAbsence(context.Background(), cluster)
	require.NoError(t, err)

	err = r.Get(context.Background(), types.NamespacedName{Name: "c-cruise-control", Namespace: "kafka"}, &appsv1.Deployment{})
	require.True(t, apierrors.IsNotFound(err))

	err = r.Get(context.Background(), types.NamespacedName{Name: configMapNameForCluster(cluster), Namespace: "kafka"}, &corev1.ConfigMap{})
	require.True(t, apierrors.IsNotFound(err))
}
