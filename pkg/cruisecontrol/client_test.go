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

package cruisecontrol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceEndpoint(t *testing.T) {
	assert.Equal(t, "https://my-cluster-cruise-control.kafka.svc:9090", ServiceEndpoint("my-cluster", "kafka"))
}

func TestProposalInProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("User-Task-Id", "task-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Proposal(context.Background(), RebalanceOptions{}, true, "")
	require.NoError(t, err)
	assert.True(t, resp.InProgress)
	assert.Equal(t, "task-1", resp.UserTaskID)
}

func TestProposalNotEnoughData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotAcceptable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Proposal(context.Background(), RebalanceOptions{}, true, "")
	require.NoError(t, err)
	assert.True(t, resp.NotEnoughData)
}

func TestProposalReady(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userTaskId":"task-2","summary":{"numReplicaMovements":5}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Proposal(context.Background(), RebalanceOptions{}, false, "")
	require.NoError(t, err)
	assert.Equal(t, "task-2", resp.UserTaskID)
	assert.Equal(t, float64(5), resp.Summary["numReplicaMovements"])
}

func TestProposalHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.Proposal(context.Background(), RebalanceOptions{}, true, "")
	require.Error(t, err)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusInternalServerError, httpErr.StatusCode)
}

func TestTaskStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.RawQuery, "user_task_ids=task-3")
		_, _ = w.Write([]byte(`{"Status":"COMPLETED","summary":{"ok":true}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.TaskStatus(context.Background(), "task-3")
	require.NoError(t, err)
	assert.Equal(t, TaskStateCompleted, resp.Status)
	assert.Equal(t, true, resp.Summary["ok"])
}

func TestStopExecution(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.NoError(t, c.StopExecution(context.Background()))
	assert.True(t, called)
}

func TestRebalanceOptionsQuery(t *testing.T) {
	q := rebalanceOptionsQuery(RebalanceOptions{
		Goals:                     []string{"RackAwareGoal", "ReplicaCapacityGoal"},
		SkipHardGoalCheck:         true,
		ConcurrentLeaderMovements: 3,
	})
	assert.Contains(t, q, "goals=RackAwareGoal,ReplicaCapacityGoal")
	assert.Contains(t, q, "skip_hard_goal_check=true")
	assert.Contains(t, q, "concurrent_leader_movements=3")
}
