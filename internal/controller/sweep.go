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
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/event"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
)

// SweepInterval is the period of the full resync sweep: every tick, every
// KafkaRebalance is re-enqueued independent of any watch event, so a
// resource stuck mid-poll after an operator restart (or a status write
// that raced with a delete) eventually gets another look (spec.md §2).
const SweepInterval = 5 * time.Minute

// Sweeper is a manager.Runnable that periodically lists every
// KafkaRebalance and emits one GenericEvent per resource onto Events.
type Sweeper struct {
	client.Client
	Events chan event.GenericEvent
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	log := logf.FromContext(ctx).WithName("sweeper")

	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.sweep(ctx); err != nil {
				log.Error(err, "periodic sweep failed")
			}
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) error {
	var list kafkav1alpha1.KafkaRebalanceList
	if err := s.List(ctx, &list); err != nil {
		return err
	}

	for i := range list.Items {
		obj := &list.Items[i]
		select {
		case s.Events <- event.GenericEvent{Object: obj}:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}
