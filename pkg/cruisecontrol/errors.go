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

import "fmt"

// TransportError wraps a network-level failure talking to the optimization
// service (connection refused, timeout, DNS). Callers count these towards
// MAX_API_RETRIES.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return "cruise control transport error during " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Unwrap() error { return e.Err }

func newTransportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// ProtocolError wraps a malformed or unexpected response body. It is never
// retried.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return "cruise control protocol error during " + e.Op + ": " + e.Err.Error()
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func newProtocolError(op string, err error) error {
	return &ProtocolError{Op: op, Err: err}
}

// HTTPError wraps a non-2xx response from the optimization service.
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("cruise control returned a non-OK status during %s: %s; body: %s", e.Op, e.Status, e.Body)
}
