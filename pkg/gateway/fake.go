package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
)

// FakeGateway is an in-memory Gateway for tenancy/workload/orchestrator
// tests, grounded on the teacher's MockClient
// (pkg/workloads/k8s/mock.MockClient): each Ensure*, DeleteNamespace and
// ExecInPod call counts itself in Called (the read calls, GetNamespace,
// ListPodsByLabel and HealthPing are not counted), and a call whose
// matching Impl hook is set defers to it instead of touching the
// in-memory store. Unlike MockClient, a nil Impl hook
// here falls back to a working in-memory default rather than erroring,
// since most Gateway tests want real create/read semantics and only a
// few need to inject a failure.
type FakeGateway struct {
	mu sync.Mutex

	namespaces map[string]*kubecore.Namespace
	secrets    map[string]map[string]*kubecore.Secret
	statefulSets map[string]map[string]*kubeapps.StatefulSet
	deployments  map[string]map[string]*kubeapps.Deployment
	services     map[string]map[string]*kubecore.Service
	pvcs         map[string]map[string]*kubecore.PersistentVolumeClaim
	ingresses    map[string]map[string]*kubenet.Ingress
	podsByNS     map[string][]string
	execResults  map[string]string

	Impl struct {
		EnsureNamespace             func(ctx context.Context, name string) error
		EnsureStatefulSet           func(ctx context.Context, namespace string, spec *kubeapps.StatefulSet) error
		EnsureDeployment            func(ctx context.Context, namespace string, spec *kubeapps.Deployment) error
		ReadDeploymentReadyReplicas func(ctx context.Context, namespace, name string) (int32, error)
		ReadStatefulSetReadyReplicas func(ctx context.Context, namespace, name string) (int32, error)
		ExecInPod                   func(ctx context.Context, namespace, pod string, argv []string) (string, error)
		HealthPing                  func(ctx context.Context) bool
	}

	Called struct {
		EnsureNamespace    uint64
		EnsureQuota        uint64
		EnsureLimitRange   uint64
		EnsureNetworkPolicy uint64
		EnsureSecret       uint64
		EnsureStatefulSet  uint64
		EnsureDeployment   uint64
		EnsureService      uint64
		EnsurePVC          uint64
		EnsureIngress      uint64
		DeleteNamespace    uint64
		ExecInPod          uint64
	}

	// ReadyReplicas lets a test pre-seed the replica count ReadDeployment/
	// StatefulSetReadyReplicas report, keyed by "namespace/name".
	ReadyReplicas map[string]int32
}

// NewFake constructs an empty FakeGateway.
func NewFake() *FakeGateway {
	return &FakeGateway{
		namespaces:   map[string]*kubecore.Namespace{},
		secrets:      map[string]map[string]*kubecore.Secret{},
		statefulSets: map[string]map[string]*kubeapps.StatefulSet{},
		deployments:  map[string]map[string]*kubeapps.Deployment{},
		services:     map[string]map[string]*kubecore.Service{},
		pvcs:         map[string]map[string]*kubecore.PersistentVolumeClaim{},
		ingresses:    map[string]map[string]*kubenet.Ingress{},
		podsByNS:     map[string][]string{},
		execResults:  map[string]string{},
		ReadyReplicas: map[string]int32{},
	}
}

var _ Gateway = (*FakeGateway)(nil)

func (f *FakeGateway) EnsureNamespace(ctx context.Context, name string, labels, annotations map[string]string) error {
	f.Called.EnsureNamespace++
	if f.Impl.EnsureNamespace != nil {
		return f.Impl.EnsureNamespace(ctx, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.namespaces[name] = &kubecore.Namespace{}
	return nil
}

func (f *FakeGateway) EnsureQuota(ctx context.Context, namespace, name string, spec ResourceQuotaSpec) error {
	f.Called.EnsureQuota++
	return nil
}

func (f *FakeGateway) EnsureLimitRange(ctx context.Context, namespace, name string, spec LimitRangeSpec) error {
	f.Called.EnsureLimitRange++
	return nil
}

func (f *FakeGateway) EnsureNetworkPolicy(ctx context.Context, namespace, name string, spec NetworkPolicySpec) error {
	f.Called.EnsureNetworkPolicy++
	return nil
}

func (f *FakeGateway) EnsureSecret(ctx context.Context, namespace, name string, data map[string]string, labels map[string]string) error {
	f.Called.EnsureSecret++
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.secrets[namespace] == nil {
		f.secrets[namespace] = map[string]*kubecore.Secret{}
	}
	f.secrets[namespace][name] = &kubecore.Secret{StringData: data}
	return nil
}

func (f *FakeGateway) EnsureStatefulSet(ctx context.Context, namespace string, spec *kubeapps.StatefulSet) error {
	f.Called.EnsureStatefulSet++
	if f.Impl.EnsureStatefulSet != nil {
		return f.Impl.EnsureStatefulSet(ctx, namespace, spec)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statefulSets[namespace] == nil {
		f.statefulSets[namespace] = map[string]*kubeapps.StatefulSet{}
	}
	f.statefulSets[namespace][spec.Name] = spec
	return nil
}

func (f *FakeGateway) EnsureDeployment(ctx context.Context, namespace string, spec *kubeapps.Deployment) error {
	f.Called.EnsureDeployment++
	if f.Impl.EnsureDeployment != nil {
		return f.Impl.EnsureDeployment(ctx, namespace, spec)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deployments[namespace] == nil {
		f.deployments[namespace] = map[string]*kubeapps.Deployment{}
	}
	f.deployments[namespace][spec.Name] = spec
	return nil
}

func (f *FakeGateway) EnsureService(ctx context.Context, namespace string, spec *kubecore.Service) error {
	f.Called.EnsureService++
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.services[namespace] == nil {
		f.services[namespace] = map[string]*kubecore.Service{}
	}
	f.services[namespace][spec.Name] = spec
	return nil
}

func (f *FakeGateway) EnsurePVC(ctx context.Context, namespace string, spec *kubecore.PersistentVolumeClaim) error {
	f.Called.EnsurePVC++
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pvcs[namespace] == nil {
		f.pvcs[namespace] = map[string]*kubecore.PersistentVolumeClaim{}
	}
	f.pvcs[namespace][spec.Name] = spec
	return nil
}

func (f *FakeGateway) EnsureIngress(ctx context.Context, namespace string, spec *kubenet.Ingress) error {
	f.Called.EnsureIngress++
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ingresses[namespace] == nil {
		f.ingresses[namespace] = map[string]*kubenet.Ingress{}
	}
	f.ingresses[namespace][spec.Name] = spec
	return nil
}

func (f *FakeGateway) ReadDeploymentReadyReplicas(ctx context.Context, namespace, name string) (int32, error) {
	if f.Impl.ReadDeploymentReadyReplicas != nil {
		return f.Impl.ReadDeploymentReadyReplicas(ctx, namespace, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ReadyReplicas[namespace+"/"+name], nil
}

func (f *FakeGateway) ReadStatefulSetReadyReplicas(ctx context.Context, namespace, name string) (int32, error) {
	if f.Impl.ReadStatefulSetReadyReplicas != nil {
		return f.Impl.ReadStatefulSetReadyReplicas(ctx, namespace, name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ReadyReplicas[namespace+"/"+name], nil
}

func (f *FakeGateway) DeleteNamespace(ctx context.Context, name string) error {
	f.Called.DeleteNamespace++
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.namespaces, name)
	return nil
}

func (f *FakeGateway) GetNamespace(ctx context.Context, name string) (*kubecore.Namespace, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.namespaces[name], nil
}

func (f *FakeGateway) ListPodsByLabel(ctx context.Context, namespace string, selector map[string]string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.podsByNS[namespace], nil
}

// SeedPods lets a test populate the pods ListPodsByLabel/ExecInPod see
// for namespace.
func (f *FakeGateway) SeedPods(namespace string, pods ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.podsByNS[namespace] = pods
}

func (f *FakeGateway) ExecInPod(ctx context.Context, namespace, pod string, argv []string, timeout time.Duration) (string, error) {
	f.Called.ExecInPod++
	if f.Impl.ExecInPod != nil {
		return f.Impl.ExecInPod(ctx, namespace, pod, argv)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if out, ok := f.execResults[namespace+"/"+pod]; ok {
		return out, nil
	}
	return "", nil
}

// SetExecResult pre-seeds the stdout ExecInPod returns for a pod.
func (f *FakeGateway) SetExecResult(namespace, pod, stdout string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execResults[namespace+"/"+pod] = stdout
}

func (f *FakeGateway) HealthPing(ctx context.Context) bool {
	if f.Impl.HealthPing != nil {
		return f.Impl.HealthPing(ctx)
	}
	return true
}

// ErrFakeNotImplemented mirrors the teacher's "[MOCK] not implemented"
// sentinel for Impl hooks that tests wire in but intentionally leave
// partially stubbed.
var ErrFakeNotImplemented = errors.New("fake gateway: not implemented")
