package kubeutil

import (
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"k8s.io/client-go/rest"
)

// ResolveConfig detects the cluster connection.
//
// # It searches kubeconfig from
//
// - `~/.kube/config`
//
// - environmental variable `KUBECONFIG`
//
// - the file found first from the kubeConfigSearchPath
//
// When no files are found from above, it tries to use in-cluster config.
func ResolveConfig(kubeconfigSearchPath ...string) (*rest.Config, error) {
	kubeconfig := ""

	// priority 1 (least): ~/.kube/config
	if home := homedir.HomeDir(); home != "" {
		_kubeconfig := filepath.Join(home, ".kube", "config")
		if s, err := os.Stat(_kubeconfig); err == nil && !s.IsDir() {
			kubeconfig = _kubeconfig
		}
	}

	// priority 2: envvar KUBECONFIG
	if k := os.Getenv("KUBECONFIG"); k != "" {
		if s, err := os.Stat(k); err == nil && !s.IsDir() {
			kubeconfig = k
		}
	}

	// priority 3 (most): search path
	for _, sp := range kubeconfigSearchPath {
		if s, err := os.Stat(sp); err == nil && !s.IsDir() {
			kubeconfig = sp
			break
		}
	}

	if kubeconfig == "" {
		// fallback: try in-cluster
		return rest.InClusterConfig()
	}
	return clientcmd.BuildConfigFromFlags("", kubeconfig)
}

// ConnectToK8s detects *kubernetes.Clientset using the same search order
// as ResolveConfig.
func ConnectToK8s(kubeconfigSearchPath ...string) (*kubernetes.Clientset, error) {
	config, err := ResolveConfig(kubeconfigSearchPath...)
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(config)
}
