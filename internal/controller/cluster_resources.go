package controller

import (
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	appsv1ac "k8s.io/client-go/applyconfigurations/apps/v1"
	corev1ac "k8s.io/client-go/applyconfigurations/core/v1"
	metav1ac "k8s.io/client-go/applyconfigurations/meta/v1"

	kafkav1alpha1 "github.com/b1zzu/kafka-rebalance-operator/api/v1alpha1"
	"github.com/b1zzu/kafka-rebalance-operator/pkg/utils"
)

// TODO: Network policies

func deploymentForCluster(cluster *kafkav1alpha1.Cluster) *appsv1ac.DeploymentApplyConfiguration {
	image := "cruise-control:latest"
	if cluster.Spec.CruiseControl != nil && cluster.Spec.CruiseControl.Image != "" {
		image = cluster.Spec.CruiseControl.Image
	}

	labels := map[string]string{
		"app.kubernetes.io/name":     "cruise-control",
		"app.kubernetes.io/instance": cluster.Name,
	}

	configHash := ""
	if cluster.Status.ConfigHash != nil {
		configHash = *cluster.Status.ConfigHash
	}

	podAnnotations := map[string]string{
		"config/hash": configHash,
	}

	var replicas int32 = 1

	name := fmt.Sprintf("%s-cruise-control", cluster.Name)

	envs := utils.PropertiesToEnvs(cruiseControlConfigForCluster(cluster))
	containerEnvs := make([]*corev1ac.EnvVarApplyConfiguration, 0, len(envs))
	for _, e := range envs {
		containerEnvs = append(containerEnvs, corev1ac.EnvVar().WithName(e.Name).WithValue(e.Value))
	}

	return appsv1ac.Deployment(name, cluster.Namespace).
		WithOwnerReferences(ownerReferenceForCluster(cluster)).
		WithSpec(appsv1ac.DeploymentSpec().
			WithReplicas(replicas).
			WithSelector(metav1ac.LabelSelector().WithMatchLabels(labels)).
			WithTemplate(corev1ac.PodTemplateSpec().
				WithLabels(labels).
				WithAnnotations(podAnnotations).
				WithSpec(corev1ac.PodSpec().
					WithSecurityContext(corev1ac.PodSecurityContext().
						WithRunAsNonRoot(true)).
					WithContainers(corev1ac.Container().
						WithName("cruise-control").
						WithImage(image).
						WithImagePullPolicy(corev1.PullIfNotPresent).
						WithCommand("/opt/cruise-control/kafka-cruise-control-start.sh", "/config/cruisecontrol.properties").
						WithEnv(containerEnvs...).
						WithPorts(corev1ac.ContainerPort().
							WithContainerPort(9090).
							WithName("rest-api")).
						WithVolumeMounts(corev1ac.VolumeMount().
							WithName("config").
							WithMountPath("/config").
							WithReadOnly(true)).
						WithSecurityContext(corev1ac.SecurityContext().
							WithRunAsNonRoot(true).
							WithRunAsUser(65534).
							WithAllowPrivilegeEscalation(false).
							WithCapabilities(corev1ac.Capabilities().WithDrop("ALL"))),
					).
					WithVolumes(corev1ac.Volume().
						WithName("config").
						WithConfigMap(corev1ac.ConfigMapVolumeSource().
							WithName(configMapNameForCluster(cluster)))),
				),
			),
		)
}

// cruiseControlConfigForCluster starts from the user-supplied Cruise Control
// properties, defaults bootstrap.servers to the cluster's
// "<name>-kafka-bootstrap:9092" address when it is not set, and always sets
// webserver.http.port and webserver.api.urlprefix, overriding any user value
// (spec.md §3, KafkaRebalance resources can only bind to a Cluster that
// declares this service). The cluster's broker Config is not used.
func cruiseControlConfigForCluster(cluster *kafkav1alpha1.Cluster) map[string]string {
	config := map[string]string{}
	if cluster.Spec.CruiseControl != nil {
		for k, v := range cluster.Spec.CruiseControl.Config {
			config[k] = v
		}
	}

	if _, ok := config["bootstrap.servers"]; !ok {
		config["bootstrap.servers"] = fmt.Sprintf("%s-kafka-bootstrap:9092", cluster.Name)
	}
	config["webserver.http.port"] = "9090"
	config["webserver.api.urlprefix"] = "/kafkacruisecontrol/*"

	return config
}

func configMapNameForCluster(cluster *kafkav1alpha1.Cluster) string {
	return fmt.Sprintf("%s-cruise-control-config", cluster.Name)
}

func configMapForCluster(cluster *kafkav1alpha1.Cluster) *corev1ac.ConfigMapApplyConfiguration {
	propertiesBuilder := &strings.Builder{}

	config := cruiseControlConfigForCluster(cluster)
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(propertiesBuilder, "%s=%s\n", k, config[k])
	}

	name := configMapNameForCluster(cluster)
	return corev1ac.ConfigMap(name, cluster.Namespace).
		WithData(map[string]string{"cruisecontrol.properties": propertiesBuilder.String()}).
		WithOwnerReferences(ownerReferenceForCluster(cluster))
}

func ownerReferenceForCluster(cluster *kafkav1alpha1.Cluster) *metav1ac.OwnerReferenceApplyConfiguration {
	return metav1ac.OwnerReference().
		WithAPIVersion(cluster.GetObjectKind().GroupVersionKind().GroupVersion().String()).
		WithKind(cluster.GetObjectKind().GroupVersionKind().Kind).
		WithName(cluster.GetName()).
		WithUID(cluster.GetUID()).
		WithBlockOwnerDeletion(true).
		WithController(true)
}
