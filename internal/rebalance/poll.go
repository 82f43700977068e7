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
	"sync"
	"time"

	"emperror.dev/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
)

// PollInterval is the fixed period between re-checks of an in-flight
// Cruise Control task (spec.md §4.2 REBALANCE_POLLING_TIMER_MS).
const PollInterval = 5000 * time.Millisecond

// MaxAPIRetries is the number of consecutive tick failures after which a
// poll loop gives up: the MaxAPIRetries-th failure in a row ends it
// (spec.md §4.2 MAX_API_RETRIES).
const MaxAPIRetries = 5

// ErrPollAlreadyActive is returned by Run when a poll loop for key is
// already running; starting a second one is a programming error since the
// per-resource lock is meant to make that impossible.
var ErrPollAlreadyActive = errors.New("poll loop already active for this resource")

// PollOutcome is what a PollFunc reports after a single tick.
type PollOutcome int

const (
	// PollContinue means the task is still running; wait another interval.
	PollContinue PollOutcome = iota
	// PollDone means the task reached a terminal outcome; stop polling.
	PollDone
)

// PollFunc performs one tick of polling against the freshly re-read
// resource and reports whether to keep waiting or stop.
type PollFunc func(ctx context.Context, kr *kafkav1alpha1.KafkaRebalance) (PollOutcome, error)

// PollController owns the table of in-flight per-resource poll loops. Run
// is invoked by the ReconcilerLoop while it holds key's lock, and blocks
// for as long as the Cruise Control task stays in flight: the Go
// translation of the original's lock held across a pending Future, using
// one goroutine per key with a time.Ticker rather than a recursive timer
// callback (spec.md §4.2, §9).
type PollController struct {
	client   client.Client
	metrics  *Metrics
	interval time.Duration

	mu     sync.Mutex
	active map[types.NamespacedName]struct{}
}

// NewPollController builds a PollController reading resources through c,
// ticking every PollInterval. m may be nil, in which case observations are
// silently dropped.
func NewPollController(c client.Client, m *Metrics) *PollController {
	return &PollController{client: c, metrics: m, interval: PollInterval, active: make(map[types.NamespacedName]struct{})}
}

// Run ticks every PollInterval until fn reports PollDone, the resource is
// deleted, its current state no longer matches installedState (meaning
// some other actor already moved it on), or ctx is cancelled. Starting a
// loop is idempotent in the sense that a second concurrent Run for the
// same key fails fast with ErrPollAlreadyActive instead of silently
// running two timers against the same resource.
func (p *PollController) Run(ctx context.Context, key types.NamespacedName, installedState kafkav1alpha1.RebalanceState, fn PollFunc) error {
	if !p.start(key) {
		return ErrPollAlreadyActive
	}
	defer p.stop(key)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.metrics.ObservePollIteration()
			kr := &kafkav1alpha1.KafkaRebalance{}
			if err := p.client.Get(ctx, key, kr); err != nil {
				if apierrors.IsNotFound(err) {
					return ErrStaleResource
				}
				return err
			}

			state, err := CurrentState(kr.Status)
			if err != nil {
				return err
			}
			if state != installedState {
				// Something else already moved this resource on (a
				// concurrent stop/refresh, or an operator restart that
				// replayed a stale write); hand control back to the
				// reconciler instead of fighting it.
				return nil
			}

			outcome, err := fn(ctx, kr)
			if err != nil {
				return err
			}
			if outcome == PollDone {
				return nil
			}
		}
	}
}

func (p *PollController) start(key types.NamespacedName) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[key]; ok {
		return false
	}
	p.active[key] = struct{}{}
	return true
}

func (p *PollController) stop(key types.NamespacedName) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, key)
}
