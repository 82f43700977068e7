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
	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
)

// DecodeAnnotation maps the raw value of the strimzi.io/rebalance
// annotation to one of the recognized annotation alphabet values.
func DecodeAnnotation(kr *kafkav1alpha1.KafkaRebalance) kafkav1alpha1.RebalanceAnnotationValue {
	raw, ok := rawAnnotation(kr)
	if !ok {
		return kafkav1alpha1.RebalanceAnnotationNone
	}

	switch kafkav1alpha1.RebalanceAnnotationValue(raw) {
	case kafkav1alpha1.RebalanceAnnotationApprove:
		return kafkav1alpha1.RebalanceAnnotationApprove
	case kafkav1alpha1.RebalanceAnnotationRefresh:
		return kafkav1alpha1.RebalanceAnnotationRefresh
	case kafkav1alpha1.RebalanceAnnotationStop:
		return kafkav1alpha1.RebalanceAnnotationStop
	default:
		return kafkav1alpha1.RebalanceAnnotationUnknown
	}
}

// HasConsumableAnnotation reports whether the resource carries a
// strimzi.io/rebalance annotation that the state machine consumed
// (approve, refresh, stop) and that must therefore be stripped after a
// successful status write.
func HasConsumableAnnotation(kr *kafkav1alpha1.KafkaRebalance) bool {
	switch DecodeAnnotation(kr) {
	case kafkav1alpha1.RebalanceAnnotationApprove, kafkav1alpha1.RebalanceAnnotationRefresh, kafkav1alpha1.RebalanceAnnotationStop:
		return true
	default:
		return false
	}
}

// IsPaused reports whether the pause annotation is set to "true".
func IsPaused(kr *kafkav1alpha1.KafkaRebalance) bool {
	return kr.GetAnnotations()[kafkav1alpha1.PauseAnnotation] == "true"
}

func rawAnnotation(kr *kafkav1alpha1.KafkaRebalance) (string, bool) {
	v, ok := kr.GetAnnotations()[kafkav1alpha1.RebalanceAnnotation]
	return v, ok
}
