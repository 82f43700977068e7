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

// Package cruisecontrol is a thin transport over the Cruise Control REST
// API used to compute and execute Kafka partition-reassignment proposals.
package cruisecontrol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"emperror.dev/errors"
)

// TaskState is the state of a Cruise Control user task, as reported by
// /user_tasks.
type TaskState string

const (
	TaskStateActive             TaskState = "ACTIVE"
	TaskStateInExecution        TaskState = "IN_EXECUTION"
	TaskStateCompleted          TaskState = "COMPLETED"
	TaskStateCompletedWithError TaskState = "COMPLETED_WITH_ERROR"
)

// ProposalResponse is the classified result of a call to /rebalance.
type ProposalResponse struct {
	// UserTaskID correlates subsequent polls and task-status lookups with
	// this proposal or execution.
	UserTaskID string

	// NotEnoughData is true when Cruise Control reports it does not have
	// enough monitored data yet to compute a proposal.
	NotEnoughData bool

	// InProgress is true when Cruise Control is still computing the
	// proposal; Summary will be nil.
	InProgress bool

	// Summary is the optimization summary document, present once the
	// proposal (or, for a full run, the execution) is ready.
	Summary map[string]any
}

// TaskStatusResponse is the classified result of a call to /user_tasks.
type TaskStatusResponse struct {
	Status  TaskState
	Summary map[string]any
}

// RebalanceOptions carries the KafkaRebalance spec fields translated into
// Cruise Control REST query parameters.
type RebalanceOptions struct {
	Goals                                   []string
	SkipHardGoalCheck                       bool
	ExcludedTopics                          string
	ConcurrentPartitionMovementsPerBroker   int
	ConcurrentIntraBrokerPartitionMovements int
	ConcurrentLeaderMovements               int
	ReplicationThrottle                     int
	ReplicaMovementStrategies               []string
}

// Client is a transport for the Cruise Control REST API deployed alongside
// a single Kafka cluster.
type Client struct {
	client   *http.Client
	endpoint string
}

// ServiceEndpoint returns the in-cluster DNS name of the Cruise Control
// service for the given Kafka cluster, the same naming convention the
// upstream Kafka operator uses for its Cruise Control Service.
func ServiceEndpoint(clusterName, namespace string) string {
	return fmt.Sprintf("https://%s-cruise-control.%s.svc:9090", clusterName, namespace)
}

// NewClient creates an HTTP client to interact with Cruise Control.
//
// endpoint is the Cruise Control URL prefix prepended to each request,
// e.g. "https://my-cluster-cruise-control.kafka.svc:9090".
func NewClient(endpoint string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: time.Second * 30,
		},
		endpoint: endpoint,
	}
}

// Proposal requests a rebalance proposal. When dryrun is false, Cruise
// Control both computes and immediately begins executing the proposal.
// userTaskID, if non-empty, asks Cruise Control for the status of an
// already-submitted computation instead of starting a new one.
func (c *Client) Proposal(ctx context.Context, opts RebalanceOptions, dryrun bool, userTaskID string) (*ProposalResponse, error) {
	url := fmt.Sprintf("%s/rebalance?dryrun=%t", c.endpoint, dryrun)
	url += rebalanceOptionsQuery(opts)
	if userTaskID != "" {
		url += fmt.Sprintf("&user_task_id=%s", userTaskID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, newProtocolError("proposal", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, newTransportError("proposal", err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, newTransportError("proposal", err)
	}

	if res.StatusCode == http.StatusAccepted {
		// Cruise Control is still preparing the proposal; the body
		// carries only the progress, no summary yet.
		taskID := res.Header.Get("User-Task-Id")
		return &ProposalResponse{UserTaskID: taskID, InProgress: true}, nil
	}

	if res.StatusCode != http.StatusOK {
		if res.StatusCode == http.StatusNotAcceptable {
			return &ProposalResponse{NotEnoughData: true}, nil
		}
		return nil, &HTTPError{Op: "proposal", StatusCode: res.StatusCode, Status: res.Status, Body: string(body)}
	}

	var payload struct {
		UserTaskID string         `json:"userTaskId"`
		Summary    map[string]any `json:"summary"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, newProtocolError("proposal", errors.WrapIf(err, "failed to decode proposal response"))
	}

	return &ProposalResponse{UserTaskID: payload.UserTaskID, Summary: payload.Summary}, nil
}

// TaskStatus fetches the current status of a previously started user task.
func (c *Client) TaskStatus(ctx context.Context, userTaskID string) (*TaskStatusResponse, error) {
	url := fmt.Sprintf("%s/user_tasks?user_task_ids=%s", c.endpoint, userTaskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, newProtocolError("task-status", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, newTransportError("task-status", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return nil, &HTTPError{Op: "task-status", StatusCode: res.StatusCode, Status: res.Status, Body: string(body)}
	}

	var payload struct {
		Status  string         `json:"Status"`
		Summary map[string]any `json:"summary"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, newProtocolError("task-status", errors.WrapIf(err, "failed to decode task status response"))
	}

	return &TaskStatusResponse{Status: TaskState(payload.Status), Summary: payload.Summary}, nil
}

// StopExecution cancels the currently running rebalance execution.
func (c *Client) StopExecution(ctx context.Context) error {
	url := fmt.Sprintf("%s/stop_proposal_execution", c.endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return newProtocolError("stop-execution", err)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return newTransportError("stop-execution", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return &HTTPError{Op: "stop-execution", StatusCode: res.StatusCode, Status: res.Status, Body: string(body)}
	}

	return nil
}

func rebalanceOptionsQuery(opts RebalanceOptions) string {
	buf := &bytes.Buffer{}
	if len(opts.Goals) > 0 {
		fmt.Fprintf(buf, "&goals=%s", joinComma(opts.Goals))
	}
	if opts.SkipHardGoalCheck {
		buf.WriteString("&skip_hard_goal_check=true")
	}
	if opts.ExcludedTopics != "" {
		fmt.Fprintf(buf, "&excluded_topics=%s", opts.ExcludedTopics)
	}
	if opts.ConcurrentPartitionMovementsPerBroker > 0 {
		fmt.Fprintf(buf, "&concurrent_partition_movements_per_broker=%d", opts.ConcurrentPartitionMovementsPerBroker)
	}
	if opts.ConcurrentIntraBrokerPartitionMovements > 0 {
		fmt.Fprintf(buf, "&concurrent_intra_broker_partition_movements=%d", opts.ConcurrentIntraBrokerPartitionMovements)
	}
	if opts.ConcurrentLeaderMovements > 0 {
		fmt.Fprintf(buf, "&concurrent_leader_movements=%d", opts.ConcurrentLeaderMovements)
	}
	if opts.ReplicationThrottle > 0 {
		fmt.Fprintf(buf, "&replication_throttle=%d", opts.ReplicationThrottle)
	}
	if len(opts.ReplicaMovementStrategies) > 0 {
		fmt.Fprintf(buf, "&replica_movement_strategies=%s", joinComma(opts.ReplicaMovementStrategies))
	}
	return buf.String()
}

func joinComma(items []string) string {
	buf := &bytes.Buffer{}
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(item)
	}
	return buf.String()
}
