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

	"golang.org/x/sync/semaphore"
	"k8s.io/apimachinery/pkg/types"
)

// LockRegistry provides per-(namespace,name) mutual exclusion with a
// timeout, so concurrent watch callbacks and poll ticks for the same
// resource serialize (spec.md §4.4).
type LockRegistry struct {
	mu    sync.Mutex
	locks map[types.NamespacedName]*keyLock
}

type keyLock struct {
	sem      *semaphore.Weighted
	refCount int
}

// Handle is returned by Acquire and must be passed to Release exactly
// once.
type Handle struct {
	key types.NamespacedName
	sem *semaphore.Weighted
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[types.NamespacedName]*keyLock)}
}

// Acquire blocks until the lock for key is held or timeout elapses, in
// which case it returns ErrConcurrency. The caller must call Release on
// the returned handle exactly once, whether or not the critical section
// fails.
func (r *LockRegistry) Acquire(ctx context.Context, key types.NamespacedName, timeout time.Duration) (*Handle, error) {
	sem := r.retain(key)

	acquireCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := sem.Acquire(acquireCtx, 1); err != nil {
		r.release(key)
		return nil, ErrConcurrency
	}

	return &Handle{key: key, sem: sem}, nil
}

// Release releases the lock held by h. It is safe to call at most once
// per successful Acquire.
func (r *LockRegistry) Release(h *Handle) {
	if h == nil {
		return
	}
	h.sem.Release(1)
	r.release(h.key)
}

// retain returns the semaphore for key, creating it if necessary, and
// bumps its reference count.
func (r *LockRegistry) retain(key types.NamespacedName) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()

	kl, ok := r.locks[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		r.locks[key] = kl
	}
	kl.refCount++
	return kl.sem
}

// release drops a reference to key's semaphore, deleting the table entry
// once nobody still references it so the table does not grow unbounded
// across the operator's lifetime.
func (r *LockRegistry) release(key types.NamespacedName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kl, ok := r.locks[key]
	if !ok {
		return
	}
	kl.refCount--
	if kl.refCount <= 0 {
		delete(r.locks, key)
	}
}
