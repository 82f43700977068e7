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
	"fmt"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/source"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
	"github.com/b1zzu/kafka-rebalance-operator/internal/rebalance"
	"github.com/b1zzu/kafka-rebalance-operator/pkg/cruisecontrol"
)

// LockTimeout bounds how long a reconciliation waits to acquire the
// per-resource lock before giving up (spec.md §4.4 LOCK_TIMEOUT_MS).
const LockTimeout = 10 * time.Second

// CruiseControlClientFactory builds the transport used to talk to the
// Cruise Control instance fronting a given Cluster. Exposed as a function
// field so tests can substitute a fake without a real HTTP endpoint.
type CruiseControlClientFactory func(cluster *kafkav1alpha1.Cluster) *cruisecontrol.Client

// RebalanceReconciler is the ReconcilerLoop of spec.md §4.3: it derives the
// current state solely from status, steps the StateMachine, and writes the
// result back, eliding no-op writes and stripping consumed annotations.
type RebalanceReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	Locks         *rebalance.LockRegistry
	Poll          *rebalance.PollController
	Metrics       *rebalance.Metrics
	ClientFactory CruiseControlClientFactory

	// Events receives one GenericEvent per resource on each periodic
	// sweep tick, registered with the manager via WatchesRawSource.
	Events chan event.GenericEvent
}

// +kubebuilder:rbac:groups=kafka-rebalance.b1zzu.net,resources=kafkarebalances,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=kafka-rebalance.b1zzu.net,resources=kafkarebalances/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=kafka-rebalance.b1zzu.net,resources=kafkarebalances/finalizers,verbs=update
// +kubebuilder:rbac:groups=kafka-rebalance.b1zzu.net,resources=clusters,verbs=get;list;watch

// Reconcile implements spec.md §4.3: pause short-circuit, cluster-binding
// validation, a StateMachine step, and a diff-then-write of status,
// serialized per resource by Locks for the whole duration including any
// polling the step performs.
func (r *RebalanceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	log := logf.FromContext(ctx)

	handle, err := r.Locks.Acquire(ctx, req.NamespacedName, LockTimeout)
	if err != nil {
		r.Metrics.ObserveLockTimeout()
		log.Info("Timed out acquiring lock, will retry on the next event", "name", req.NamespacedName)
		return ctrl.Result{}, nil
	}
	defer r.Locks.Release(handle)

	kr := &kafkav1alpha1.KafkaRebalance{}
	if err := r.Get(ctx, req.NamespacedName, kr); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, fmt.Errorf("failed to get KafkaRebalance: %w", err)
	}

	validation := rebalance.Validate(kr)

	if rebalance.IsPaused(kr) {
		return ctrl.Result{}, r.writeStatus(ctx, kr, rebalance.BuildPausedStatus(validation))
	}

	cluster, err := r.clusterForRebalance(ctx, kr)
	if err != nil {
		var verr *rebalance.ValidationError
		if asValidationError(err, &verr) {
			return ctrl.Result{}, r.writeStatus(ctx, kr, notReadyStatus(kr, verr, validation))
		}
		return ctrl.Result{}, err
	}

	current, err := rebalance.CurrentState(kr.Status)
	if err != nil {
		return ctrl.Result{}, r.writeStatus(ctx, kr, notReadyStatus(kr, err, validation))
	}

	annotation := rebalance.DecodeAnnotation(kr)

	sm := &rebalance.StateMachine{
		CruiseControl: r.ClientFactory(cluster),
		Poll:          r.Poll,
		Metrics:       r.Metrics,
	}

	persist := func(ctx context.Context, key types.NamespacedName, desired rebalance.DesiredStatus) error {
		fresh := &kafkav1alpha1.KafkaRebalance{}
		if err := r.Get(ctx, key, fresh); err != nil {
			return err
		}
		status, err := rebalance.BuildStatus(fresh.Status, desired, fresh.Generation, rebalance.Validate(fresh))
		if err != nil {
			return err
		}
		return r.writeStatus(ctx, fresh, status)
	}

	desired, err := sm.Step(ctx, req.NamespacedName, kr, current, annotation, persist)
	if err != nil {
		if err == rebalance.ErrStaleResource {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	// Re-read before the final write: the resource may have changed while
	// the step above was blocked polling (spec.md §9 race protection).
	fresh := &kafkav1alpha1.KafkaRebalance{}
	if err := r.Get(ctx, req.NamespacedName, fresh); err != nil {
		if apierrors.IsNotFound(err) {
			return ctrl.Result{}, nil
		}
		return ctrl.Result{}, err
	}

	status, err := rebalance.BuildStatus(fresh.Status, desired, fresh.Generation, rebalance.Validate(fresh))
	if err != nil {
		return ctrl.Result{}, err
	}
	if err := r.writeStatus(ctx, fresh, status); err != nil {
		return ctrl.Result{}, err
	}

	if rebalance.HasConsumableAnnotation(fresh) {
		if err := r.stripAnnotation(ctx, fresh); err != nil {
			return ctrl.Result{}, err
		}
	}

	return ctrl.Result{}, nil
}

func (r *RebalanceReconciler) writeStatus(ctx context.Context, kr *kafkav1alpha1.KafkaRebalance, status kafkav1alpha1.KafkaRebalanceStatus) error {
	if rebalance.Equal(kr.Status, status) {
		return nil
	}
	kr.Status = status
	if err := r.Status().Update(ctx, kr); err != nil {
		return fmt.Errorf("failed to update KafkaRebalance status: %w", err)
	}
	return nil
}

func (r *RebalanceReconciler) stripAnnotation(ctx context.Context, kr *kafkav1alpha1.KafkaRebalance) error {
	patch := client.MergeFrom(kr.DeepCopy())
	delete(kr.Annotations, kafkav1alpha1.RebalanceAnnotation)
	if err := r.Patch(ctx, kr, patch); err != nil {
		return fmt.Errorf("failed to strip consumed rebalance annotation: %w", err)
	}
	return nil
}

// clusterForRebalance resolves and validates the Cluster a KafkaRebalance
// is bound to via the strimzi.io/cluster label (spec.md §3).
func (r *RebalanceReconciler) clusterForRebalance(ctx context.Context, kr *kafkav1alpha1.KafkaRebalance) (*kafkav1alpha1.Cluster, error) {
	clusterName, ok := kr.GetLabels()[kafkav1alpha1.RebalanceClusterLabel]
	if !ok || clusterName == "" {
		return nil, rebalance.NewValidationError("MissingClusterLabel", fmt.Sprintf("resource is missing the %s label", kafkav1alpha1.RebalanceClusterLabel))
	}

	cluster := &kafkav1alpha1.Cluster{}
	err := r.Get(ctx, types.NamespacedName{Name: clusterName, Namespace: kr.Namespace}, cluster)
	if apierrors.IsNotFound(err) {
		return nil, rebalance.NewValidationError("ClusterNotFound", fmt.Sprintf("cluster %q not found", clusterName))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get Cluster %q: %w", clusterName, err)
	}

	if cluster.Spec.CruiseControl == nil {
		return nil, rebalance.NewValidationError("CruiseControlNotDeclared", fmt.Sprintf("cluster %q does not declare a Cruise Control service", clusterName))
	}

	return cluster, nil
}

func notReadyStatus(kr *kafkav1alpha1.KafkaRebalance, err error, validation []metav1.Condition) kafkav1alpha1.KafkaRebalanceStatus {
	status, buildErr := rebalance.BuildStatus(kr.Status, rebalance.DesiredStatus{
		State:   kafkav1alpha1.RebalanceStateNotReady,
		Reason:  "Error",
		Message: err.Error(),
	}, kr.Generation, validation)
	if buildErr != nil {
		return kr.Status
	}
	return status
}

// SetupWithManager sets up the controller with the Manager.
func (r *RebalanceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.Events == nil {
		r.Events = make(chan event.GenericEvent)
	}
	return ctrl.NewControllerManagedBy(mgr).
		For(&kafkav1alpha1.KafkaRebalance{}).
		WatchesRawSource(source.Channel(r.Events, &handler.EnqueueRequestForObject{})).
		Named("kafkarebalance").
		Complete(r)
}

func asValidationError(err error, target **rebalance.ValidationError) bool {
	v, ok := err.(*rebalance.ValidationError)
	if ok {
		*target = v
	}
	return ok
}
