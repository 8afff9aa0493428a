package gateway

import (
	"k8s.io/client-go/kubernetes"

	"github.com/kshitizz36/Urumi-AI/pkg/utils/kubeutil"
)

// Connect autodetects the cluster connection per §6 and builds the
// K8sClient façade. The raw *rest.Config is resolved once and kept
// alongside the Clientset, since the pod-exec subresource (client.go)
// needs it directly.
func Connect(kubeconfigPath string) (K8sClient, error) {
	var config, err = kubeutil.ResolveConfig(nonEmpty(kubeconfigPath)...)
	if err != nil {
		return nil, err
	}
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}
	return WrapK8sClient(clientset, config), nil
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
