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

import "emperror.dev/errors"

// ErrMultipleStateConditions is returned when a status carries more than
// one condition whose type names a rebalance state, a data-model error
// that spec.md §3 requires to surface as NotReady.
var ErrMultipleStateConditions = errors.New("multiple rebalance state conditions present in status")

// ErrConcurrency is returned when the per-resource lock could not be
// acquired within LOCK_TIMEOUT_MS. The caller drops the event; a later
// resync retries.
var ErrConcurrency = errors.New("timed out acquiring per-resource lock")

// ErrStaleResource is returned by PollController.Run when the resource is
// deleted while a poll loop is waiting on it. The reconciler treats it as a
// silent no-op, never surfaced to the user.
var ErrStaleResource = errors.New("resource no longer exists")

// ValidationError reports that the resource's spec or cluster binding is
// invalid: a missing cluster label, a missing Cluster, or a Cluster that
// does not declare an optimization service. It surfaces as NotReady and is
// only retried when the user edits the spec/annotation (refresh).
type ValidationError struct {
	Reason  string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError builds a ValidationError carrying both a short,
// machine-usable reason and a human-readable message.
func NewValidationError(reason, message string) error {
	return &ValidationError{Reason: reason, Message: message}
}
