// Package gateway is the thin façade around the cluster API described in
// §4.2: it exposes only the operations the orchestrator needs, treats
// "already exists" as success for every ensureX call, and retry-wraps
// every call per §4.1.
//
// It generalizes the teacher's k8sCluster ensure/wait pattern
// (pkg/workloads/k8s.k8sCluster.NewService/NewDeployment/NewPVC, which
// create-then-poll a single workload type each) into one façade over
// the broader set of cluster objects a store's tenancy and workloads
// need (namespaces, quotas, limit ranges, network policies, secrets,
// stateful sets, deployments, services, PVCs, ingresses), collapsing
// the Promise/channel return into a direct retry-wrapped call, since the
// spec's ensureX contract (§4.2) is synchronous create-if-absent, not a
// background poll.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
	kubeerr "k8s.io/apimachinery/pkg/api/errors"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
	"github.com/kshitizz36/Urumi-AI/pkg/retry"
)

// ResourceQuotaSpec mirrors §4.5's hard-limit table.
type ResourceQuotaSpec struct {
	Hard kubecore.ResourceList
}

// LimitRangeSpec mirrors §4.5's container default/min/max table.
type LimitRangeSpec struct {
	Limits []kubecore.LimitRangeItem
}

// NetworkPolicySpec mirrors §4.5's ingress/egress rule set.
type NetworkPolicySpec struct {
	PolicyTypes []kubenet.PolicyType
	Ingress     []kubenet.NetworkPolicyIngressRule
	Egress      []kubenet.NetworkPolicyEgressRule
}

// Gateway is the cluster-facing interface the rest of the system
// depends on (§4.2).
type Gateway interface {
	EnsureNamespace(ctx context.Context, name string, labels, annotations map[string]string) error
	EnsureQuota(ctx context.Context, namespace, name string, spec ResourceQuotaSpec) error
	EnsureLimitRange(ctx context.Context, namespace, name string, spec LimitRangeSpec) error
	EnsureNetworkPolicy(ctx context.Context, namespace, name string, spec NetworkPolicySpec) error

	EnsureSecret(ctx context.Context, namespace, name string, data map[string]string, labels map[string]string) error
	EnsureStatefulSet(ctx context.Context, namespace string, spec *kubeapps.StatefulSet) error
	EnsureDeployment(ctx context.Context, namespace string, spec *kubeapps.Deployment) error
	EnsureService(ctx context.Context, namespace string, spec *kubecore.Service) error
	EnsurePVC(ctx context.Context, namespace string, spec *kubecore.PersistentVolumeClaim) error
	EnsureIngress(ctx context.Context, namespace string, spec *kubenet.Ingress) error

	ReadDeploymentReadyReplicas(ctx context.Context, namespace, name string) (int32, error)
	ReadStatefulSetReadyReplicas(ctx context.Context, namespace, name string) (int32, error)

	DeleteNamespace(ctx context.Context, name string) error
	GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error)

	ListPodsByLabel(ctx context.Context, namespace string, selector map[string]string) ([]string, error)
	ExecInPod(ctx context.Context, namespace, pod string, argv []string, timeout time.Duration) (string, error)

	HealthPing(ctx context.Context) bool
}

type gateway struct {
	client K8sClient
	policy retry.Policy
}

// New builds a Gateway over client, retry-wrapping every call per p.
func New(client K8sClient, p retry.Policy) Gateway {
	return &gateway{client: client, policy: p}
}

// classify implements the §4.1 retryability predicate for cluster
// errors: transport errors and status codes {429,500,502,503,504} are
// retryable; any other 4xx (including 409, which ensureX never even
// reaches as an error — see ensure below, which turns an "already
// exists" result into success) is not.
func classify(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "no such host") ||
		strings.Contains(err.Error(), "i/o timeout") {
		return true
	}

	status, ok := err.(kubeerr.APIStatus)
	if !ok {
		var se *kubeerr.StatusError
		if errors.As(err, &se) {
			status = se
			ok = true
		}
	}
	if !ok {
		return false
	}
	code := status.Status().Code
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

// ensure runs a create operation with retry, treating "already exists"
// as success without reading back or mutating the existing object
// (§4.2 idempotency rule).
func ensure(ctx context.Context, p retry.Policy, create func() error) error {
	_, err := retry.Do(ctx, p, classify, func() (struct{}, error) {
		err := create()
		if err != nil && kubeerr.IsAlreadyExists(err) {
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	if err != nil {
		if classify(err) {
			return domain.NewGatewayErrorCausedBy("cluster operation failed after retries", err)
		}
		return err
	}
	return nil
}

func (g *gateway) EnsureNamespace(ctx context.Context, name string, labels, annotations map[string]string) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreateNamespace(ctx, &kubecore.Namespace{
			ObjectMeta: kubeapimeta.ObjectMeta{Name: name, Labels: labels, Annotations: annotations},
		})
		return err
	})
}

func (g *gateway) EnsureQuota(ctx context.Context, namespace, name string, spec ResourceQuotaSpec) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreateResourceQuota(ctx, namespace, &kubecore.ResourceQuota{
			ObjectMeta: kubeapimeta.ObjectMeta{Name: name},
			Spec:       kubecore.ResourceQuotaSpec{Hard: spec.Hard},
		})
		return err
	})
}

func (g *gateway) EnsureLimitRange(ctx context.Context, namespace, name string, spec LimitRangeSpec) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreateLimitRange(ctx, namespace, &kubecore.LimitRange{
			ObjectMeta: kubeapimeta.ObjectMeta{Name: name},
			Spec:       kubecore.LimitRangeSpec{Limits: spec.Limits},
		})
		return err
	})
}

func (g *gateway) EnsureNetworkPolicy(ctx context.Context, namespace, name string, spec NetworkPolicySpec) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreateNetworkPolicy(ctx, namespace, &kubenet.NetworkPolicy{
			ObjectMeta: kubeapimeta.ObjectMeta{Name: name},
			Spec: kubenet.NetworkPolicySpec{
				PodSelector: kubeapimeta.LabelSelector{},
				PolicyTypes: spec.PolicyTypes,
				Ingress:     spec.Ingress,
				Egress:      spec.Egress,
			},
		})
		return err
	})
}

func (g *gateway) EnsureSecret(ctx context.Context, namespace, name string, data map[string]string, labels map[string]string) error {
	return ensure(ctx, g.policy, func() error {
		strData := map[string]string{}
		for k, v := range data {
			strData[k] = v
		}
		_, err := g.client.CreateSecret(ctx, namespace, &kubecore.Secret{
			ObjectMeta: kubeapimeta.ObjectMeta{Name: name, Labels: labels},
			StringData: strData,
			Type:       kubecore.SecretTypeOpaque,
		})
		return err
	})
}

func (g *gateway) EnsureStatefulSet(ctx context.Context, namespace string, spec *kubeapps.StatefulSet) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreateStatefulSet(ctx, namespace, spec)
		return err
	})
}

func (g *gateway) EnsureDeployment(ctx context.Context, namespace string, spec *kubeapps.Deployment) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreateDeployment(ctx, namespace, spec)
		return err
	})
}

func (g *gateway) EnsureService(ctx context.Context, namespace string, spec *kubecore.Service) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreateService(ctx, namespace, spec)
		return err
	})
}

func (g *gateway) EnsurePVC(ctx context.Context, namespace string, spec *kubecore.PersistentVolumeClaim) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreatePVC(ctx, namespace, spec)
		return err
	})
}

func (g *gateway) EnsureIngress(ctx context.Context, namespace string, spec *kubenet.Ingress) error {
	return ensure(ctx, g.policy, func() error {
		_, err := g.client.CreateIngress(ctx, namespace, spec)
		return err
	})
}

func (g *gateway) ReadDeploymentReadyReplicas(ctx context.Context, namespace, name string) (int32, error) {
	return retry.Do(ctx, g.policy, classify, func() (int32, error) {
		d, err := g.client.GetDeployment(ctx, namespace, name)
		if err != nil {
			return 0, err
		}
		return d.Status.ReadyReplicas, nil
	})
}

func (g *gateway) ReadStatefulSetReadyReplicas(ctx context.Context, namespace, name string) (int32, error) {
	return retry.Do(ctx, g.policy, classify, func() (int32, error) {
		s, err := g.client.GetStatefulSet(ctx, namespace, name)
		if err != nil {
			return 0, err
		}
		return s.Status.ReadyReplicas, nil
	})
}

func (g *gateway) DeleteNamespace(ctx context.Context, name string) error {
	_, err := retry.Do(ctx, g.policy, classify, func() (struct{}, error) {
		err := g.client.DeleteNamespace(ctx, name, kubeapimeta.DeletePropagationForeground)
		if err != nil && kubeerr.IsNotFound(err) {
			return struct{}{}, nil
		}
		return struct{}{}, err
	})
	return err
}

func (g *gateway) GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error) {
	return retry.Do(ctx, g.policy, classify, func() (*kubecore.Namespace, error) {
		ns, err := g.client.GetNamespace(ctx, name)
		if err != nil && kubeerr.IsNotFound(err) {
			return nil, nil
		}
		return ns, err
	})
}

func (g *gateway) ListPodsByLabel(ctx context.Context, namespace string, selector map[string]string) ([]string, error) {
	labelSelector := kubeapimeta.FormatLabelSelector(&kubeapimeta.LabelSelector{MatchLabels: selector})
	pods, err := retry.Do(ctx, g.policy, classify, func() ([]kubecore.Pod, error) {
		return g.client.ListPods(ctx, namespace, labelSelector)
	})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pods))
	for _, p := range pods {
		names = append(names, p.Name)
	}
	return names, nil
}

// ExecInPod runs argv in the named pod's first container, never invoking
// a shell (§9). The per-call timeout is a suspension point bounded
// independently of the retry policy: exec is not idempotent, so it is
// never retried automatically.
func (g *gateway) ExecInPod(ctx context.Context, namespace, pod string, argv []string, timeout time.Duration) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr strings.Builder
	err := g.client.ExecInPod(cctx, namespace, pod, "", argv, &stdout, &stderr)
	if err != nil {
		return stdout.String(), fmt.Errorf("exec %v: %w (stderr: %s)", argv, err, stderr.String())
	}
	return stdout.String(), nil
}

func (g *gateway) HealthPing(ctx context.Context) bool {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return g.client.ListNamespaces(cctx) == nil
}
