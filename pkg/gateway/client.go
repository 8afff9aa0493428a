package gateway

import (
	"context"
	"io"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/remotecommand"
)

// K8sClient is a thin, per-verb subset of *kubernetes.Clientset: method
// chains through CoreV1()/AppsV1()/NetworkingV1() are not preferred
// here, each verb this package needs gets its own method.
type K8sClient interface {
	CreateNamespace(ctx context.Context, ns *kubecore.Namespace) (*kubecore.Namespace, error)
	GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error)
	DeleteNamespace(ctx context.Context, name string, propagation kubeapimeta.DeletionPropagation) error

	CreateResourceQuota(ctx context.Context, namespace string, rq *kubecore.ResourceQuota) (*kubecore.ResourceQuota, error)
	CreateLimitRange(ctx context.Context, namespace string, lr *kubecore.LimitRange) (*kubecore.LimitRange, error)
	CreateNetworkPolicy(ctx context.Context, namespace string, np *kubenet.NetworkPolicy) (*kubenet.NetworkPolicy, error)

	CreateSecret(ctx context.Context, namespace string, s *kubecore.Secret) (*kubecore.Secret, error)
	GetSecret(ctx context.Context, namespace, name string) (*kubecore.Secret, error)

	CreateStatefulSet(ctx context.Context, namespace string, ss *kubeapps.StatefulSet) (*kubeapps.StatefulSet, error)
	GetStatefulSet(ctx context.Context, namespace, name string) (*kubeapps.StatefulSet, error)

	CreateDeployment(ctx context.Context, namespace string, d *kubeapps.Deployment) (*kubeapps.Deployment, error)
	GetDeployment(ctx context.Context, namespace, name string) (*kubeapps.Deployment, error)

	CreateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error)
	CreatePVC(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error)
	CreateIngress(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error)

	ListPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error)
	ExecInPod(ctx context.Context, namespace, pod, container string, argv []string, stdout, stderr io.Writer) error

	ListNamespaces(ctx context.Context) error // used only by HealthPing
}

type k8sClient struct {
	clientset  kubernetes.Interface
	execConfig *rest.Config
}

// WrapK8sClient adapts a clientset (plus the rest.Config used to build
// it, needed for the exec subresource) into K8sClient. Accepting the
// kubernetes.Interface lets tests pass k8s.io/client-go/kubernetes/fake
// instead of a real *kubernetes.Clientset.
func WrapK8sClient(clientset kubernetes.Interface, config *rest.Config) K8sClient {
	return &k8sClient{clientset: clientset, execConfig: config}
}

func (k *k8sClient) CreateNamespace(ctx context.Context, ns *kubecore.Namespace) (*kubecore.Namespace, error) {
	return k.clientset.CoreV1().Namespaces().Create(ctx, ns, kubeapimeta.CreateOptions{})
}
func (k *k8sClient) GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error) {
	return k.clientset.CoreV1().Namespaces().Get(ctx, name, kubeapimeta.GetOptions{})
}
func (k *k8sClient) DeleteNamespace(ctx context.Context, name string, propagation kubeapimeta.DeletionPropagation) error {
	return k.clientset.CoreV1().Namespaces().Delete(ctx, name, kubeapimeta.DeleteOptions{PropagationPolicy: &propagation})
}

func (k *k8sClient) CreateResourceQuota(ctx context.Context, namespace string, rq *kubecore.ResourceQuota) (*kubecore.ResourceQuota, error) {
	return k.clientset.CoreV1().ResourceQuotas(namespace).Create(ctx, rq, kubeapimeta.CreateOptions{})
}
func (k *k8sClient) CreateLimitRange(ctx context.Context, namespace string, lr *kubecore.LimitRange) (*kubecore.LimitRange, error) {
	return k.clientset.CoreV1().LimitRanges(namespace).Create(ctx, lr, kubeapimeta.CreateOptions{})
}
func (k *k8sClient) CreateNetworkPolicy(ctx context.Context, namespace string, np *kubenet.NetworkPolicy) (*kubenet.NetworkPolicy, error) {
	return k.clientset.NetworkingV1().NetworkPolicies(namespace).Create(ctx, np, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) CreateSecret(ctx context.Context, namespace string, s *kubecore.Secret) (*kubecore.Secret, error) {
	return k.clientset.CoreV1().Secrets(namespace).Create(ctx, s, kubeapimeta.CreateOptions{})
}
func (k *k8sClient) GetSecret(ctx context.Context, namespace, name string) (*kubecore.Secret, error) {
	return k.clientset.CoreV1().Secrets(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateStatefulSet(ctx context.Context, namespace string, ss *kubeapps.StatefulSet) (*kubeapps.StatefulSet, error) {
	return k.clientset.AppsV1().StatefulSets(namespace).Create(ctx, ss, kubeapimeta.CreateOptions{})
}
func (k *k8sClient) GetStatefulSet(ctx context.Context, namespace, name string) (*kubeapps.StatefulSet, error) {
	return k.clientset.AppsV1().StatefulSets(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateDeployment(ctx context.Context, namespace string, d *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	return k.clientset.AppsV1().Deployments(namespace).Create(ctx, d, kubeapimeta.CreateOptions{})
}
func (k *k8sClient) GetDeployment(ctx context.Context, namespace, name string) (*kubeapps.Deployment, error) {
	return k.clientset.AppsV1().Deployments(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) CreateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
	return k.clientset.CoreV1().Services(namespace).Create(ctx, svc, kubeapimeta.CreateOptions{})
}
func (k *k8sClient) CreatePVC(ctx context.Context, namespace string, pvc *kubecore.PersistentVolumeClaim) (*kubecore.PersistentVolumeClaim, error) {
	return k.clientset.CoreV1().PersistentVolumeClaims(namespace).Create(ctx, pvc, kubeapimeta.CreateOptions{})
}
func (k *k8sClient) CreateIngress(ctx context.Context, namespace string, ing *kubenet.Ingress) (*kubenet.Ingress, error) {
	return k.clientset.NetworkingV1().Ingresses(namespace).Create(ctx, ing, kubeapimeta.CreateOptions{})
}

func (k *k8sClient) ListPods(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Pod, error) {
	list, err := k.clientset.CoreV1().Pods(namespace).List(ctx, kubeapimeta.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (k *k8sClient) ListNamespaces(ctx context.Context) error {
	_, err := k.clientset.CoreV1().Namespaces().List(ctx, kubeapimeta.ListOptions{Limit: 1})
	return err
}

// ExecInPod runs argv (no shell) in the named container's pod-exec
// subresource (§9: "never interpolate arguments through a shell").
func (k *k8sClient) ExecInPod(ctx context.Context, namespace, pod, container string, argv []string, stdout, stderr io.Writer) error {
	req := k.clientset.CoreV1().RESTClient().Post().
		Resource("pods").
		Namespace(namespace).
		Name(pod).
		SubResource("exec").
		VersionedParams(&kubecore.PodExecOptions{
			Container: container,
			Command:   argv,
			Stdout:    true,
			Stderr:    true,
		}, scheme.ParameterCodec)

	exec, err := remotecommand.NewSPDYExecutor(k.execConfig, "POST", req.URL())
	if err != nil {
		return err
	}
	return exec.StreamWithContext(ctx, remotecommand.StreamOptions{Stdout: stdout, Stderr: stderr})
}
