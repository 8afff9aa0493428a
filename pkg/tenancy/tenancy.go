// Package tenancy is the Tenancy Builder of §4.5: it brings a fresh
// namespace to a state safe for a tenant workload by applying, in
// order, the namespace itself, a resource quota, a container limit
// range, and a deny-by-default network policy.
//
// It generalizes the teacher's idempotent-create-and-wait object
// builder (pkg/workloads/k8s.k8sCluster.NewService/NewPVC, one object
// per call) to apply a fixed sequence of four isolation objects per
// namespace instead of one workload object per call.
package tenancy

import (
	"context"
	"time"

	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubeintstr "k8s.io/apimachinery/pkg/util/intstr"

	"github.com/kshitizz36/Urumi-AI/pkg/domain"
	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
)

const (
	quotaName       = "store-quota"
	limitRangeName  = "store-limits"
	networkPolicyName = "store-isolation"
	dnsPort         = 53
)

// Builder is the Tenancy Builder interface the orchestrator depends on.
type Builder interface {
	Build(ctx context.Context, namespace string, store *domain.Store) error
}

type builder struct {
	gw gateway.Gateway
}

// New wraps gw into a Builder.
func New(gw gateway.Gateway) Builder {
	return &builder{gw: gw}
}

// Build runs the four-step sequence of §4.5. Every step is individually
// idempotent; callers are expected to run this inside a deadline-bound
// retry context (the gateway itself already retries transient errors
// per §4.1).
func (b *builder) Build(ctx context.Context, namespace string, store *domain.Store) error {
	labels := map[string]string{
		"managed-by": "urumi-platform",
		"store-id":   store.ID,
		"store-name": store.Name,
		"engine":     string(store.Engine),
	}
	annotations := map[string]string{
		"urumi-platform/created-at": time.Now().UTC().Format(time.RFC3339),
	}

	if err := b.gw.EnsureNamespace(ctx, namespace, labels, annotations); err != nil {
		return err
	}
	if err := b.gw.EnsureQuota(ctx, namespace, quotaName, quotaSpec()); err != nil {
		return err
	}
	if err := b.gw.EnsureLimitRange(ctx, namespace, limitRangeName, limitRangeSpec()); err != nil {
		return err
	}
	if err := b.gw.EnsureNetworkPolicy(ctx, namespace, networkPolicyName, networkPolicySpec()); err != nil {
		return err
	}
	return nil
}

// quotaSpec implements §4.5 step 2's hard limits.
func quotaSpec() gateway.ResourceQuotaSpec {
	return gateway.ResourceQuotaSpec{
		Hard: kubecore.ResourceList{
			kubecore.ResourceRequestsCPU:    resource.MustParse("500m"),
			kubecore.ResourceLimitsCPU:      resource.MustParse("2"),
			kubecore.ResourceRequestsMemory: resource.MustParse("512Mi"),
			kubecore.ResourceLimitsMemory:   resource.MustParse("2Gi"),
			kubecore.ResourceRequestsStorage: resource.MustParse("5Gi"),
			kubecore.ResourcePods:            resource.MustParse("10"),
			kubecore.ResourceServices:        resource.MustParse("5"),
			kubecore.ResourceSecrets:         resource.MustParse("10"),
			kubecore.ResourceConfigMaps:      resource.MustParse("10"),
			kubecore.ResourcePersistentVolumeClaims: resource.MustParse("3"),
		},
	}
}

// limitRangeSpec implements §4.5 step 3's container default/min/max.
func limitRangeSpec() gateway.LimitRangeSpec {
	return gateway.LimitRangeSpec{
		Limits: []kubecore.LimitRangeItem{
			{
				Type: kubecore.LimitTypeContainer,
				Default: kubecore.ResourceList{
					kubecore.ResourceCPU:    resource.MustParse("500m"),
					kubecore.ResourceMemory: resource.MustParse("512Mi"),
				},
				DefaultRequest: kubecore.ResourceList{
					kubecore.ResourceCPU:    resource.MustParse("100m"),
					kubecore.ResourceMemory: resource.MustParse("128Mi"),
				},
				Min: kubecore.ResourceList{
					kubecore.ResourceCPU:    resource.MustParse("50m"),
					kubecore.ResourceMemory: resource.MustParse("64Mi"),
				},
				Max: kubecore.ResourceList{
					kubecore.ResourceCPU:    resource.MustParse("1"),
					kubecore.ResourceMemory: resource.MustParse("1Gi"),
				},
			},
		},
	}
}

// networkPolicySpec implements §4.5 step 4: deny-by-default with
// explicit allow-lists for ingress-nginx, intra-namespace traffic, DNS,
// and outbound HTTP(S).
func networkPolicySpec() gateway.NetworkPolicySpec {
	tcp := kubecore.ProtocolTCP
	udp := kubecore.ProtocolUDP
	dns := kubeintstr.FromInt(dnsPort)
	http := kubeintstr.FromInt(80)
	https := kubeintstr.FromInt(443)

	emptyPodSelector := kubeapimeta.LabelSelector{}
	ingressNSSelector := kubeapimeta.LabelSelector{
		MatchLabels: map[string]string{"kubernetes.io/metadata.name": "ingress-nginx"},
	}

	return gateway.NetworkPolicySpec{
		PolicyTypes: []kubenet.PolicyType{kubenet.PolicyTypeIngress, kubenet.PolicyTypeEgress},
		Ingress: []kubenet.NetworkPolicyIngressRule{
			{
				From: []kubenet.NetworkPolicyPeer{
					{NamespaceSelector: &ingressNSSelector},
				},
			},
			{
				From: []kubenet.NetworkPolicyPeer{
					{PodSelector: &emptyPodSelector},
				},
			},
		},
		Egress: []kubenet.NetworkPolicyEgressRule{
			{
				Ports: []kubenet.NetworkPolicyPort{
					{Protocol: &udp, Port: &dns},
					{Protocol: &tcp, Port: &dns},
				},
			},
			{
				To: []kubenet.NetworkPolicyPeer{
					{PodSelector: &emptyPodSelector},
				},
			},
			{
				Ports: []kubenet.NetworkPolicyPort{
					{Protocol: &tcp, Port: &http},
					{Protocol: &tcp, Port: &https},
				},
			},
		},
	}
}
