// Package database is the Database Workload of §4.6: a single-replica
// stateful MySQL-compatible backing store for a tenant, fronted by a
// headless service, generated credentials, and a bounded readiness
// wait.
//
// It is grounded on the teacher's object-builder style in
// pkg/workloads/k8s (take a config struct, emit a fully-populated
// *appsv1.StatefulSet/*corev1.Service) generalized from knitfab's
// single-purpose dataagt StatefulSet into a parameterized one, and on
// pkg/utils/strings.RandomHex / the keychain's crypto/rand key issuance
// for the credential generation it now delegates to pkg/secretgen.
package database

import (
	"context"
	"fmt"
	"time"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubeintstr "k8s.io/apimachinery/pkg/util/intstr"

	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
	"github.com/kshitizz36/Urumi-AI/pkg/secretgen"
)

const (
	secretName    = "db-credentials"
	statefulSetName = "db"
	serviceName   = "db-service"
	dbName        = "store"
	dbUser        = "store_app"
	mysqlPort     = 3306
	pollInterval  = 2 * time.Second
)

// ConnectionDescriptor is the §4.6 output handed to the application
// workload phase.
type ConnectionDescriptor struct {
	Host       string
	Port       int32
	DBName     string
	User       string
	SecretName string
}

// Workload is the Database Workload interface the orchestrator depends
// on.
type Workload interface {
	Deploy(ctx context.Context, namespace string, storageSize string) (ConnectionDescriptor, error)
	WaitReady(ctx context.Context, namespace string, timeout time.Duration) error
}

type workload struct {
	gw gateway.Gateway
}

// New wraps gw into a Workload.
func New(gw gateway.Gateway) Workload {
	return &workload{gw: gw}
}

// Deploy generates credentials and ensures the secret, StatefulSet, and
// headless service described in §4.6.
func (w *workload) Deploy(ctx context.Context, namespace string, storageSize string) (ConnectionDescriptor, error) {
	rootPassword, err := secretgen.Generate(16)
	if err != nil {
		return ConnectionDescriptor{}, err
	}
	dbPassword, err := secretgen.Generate(16)
	if err != nil {
		return ConnectionDescriptor{}, err
	}

	if err := w.gw.EnsureSecret(ctx, namespace, secretName, map[string]string{
		"root-password": rootPassword,
		"db-user":       dbUser,
		"db-password":   dbPassword,
		"db-name":       dbName,
	}, map[string]string{"app.kubernetes.io/component": "database"}); err != nil {
		return ConnectionDescriptor{}, err
	}

	if err := w.gw.EnsureStatefulSet(ctx, namespace, statefulSetSpec(storageSize)); err != nil {
		return ConnectionDescriptor{}, err
	}
	if err := w.gw.EnsureService(ctx, namespace, headlessServiceSpec()); err != nil {
		return ConnectionDescriptor{}, err
	}

	return ConnectionDescriptor{
		Host:       fmt.Sprintf("%s.%s.svc.cluster.local", serviceName, namespace),
		Port:       mysqlPort,
		DBName:     dbName,
		User:       dbUser,
		SecretName: secretName,
	}, nil
}

// WaitReady polls readyReplicas every 2s (§4.6) until ready, timeout, or
// ctx cancellation — whichever comes first.
func (w *workload) WaitReady(ctx context.Context, namespace string, timeout time.Duration) error {
	return pollUntilReady(ctx, w.gw.ReadStatefulSetReadyReplicas, namespace, statefulSetName, 1, timeout)
}

// pollUntilReady polls every pollInterval until readyReplicas >= want,
// ctx is done, or timeout elapses. pkg/workload/application runs its own
// copy of this loop rather than calling this one.
func pollUntilReady(ctx context.Context, read func(context.Context, string, string) (int32, error), namespace, name string, want int32, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ready, err := read(cctx, namespace, name)
		if err != nil {
			return err
		}
		if ready >= want {
			return nil
		}
		select {
		case <-cctx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("workload %s/%s not ready after %s", namespace, name, timeout)
		case <-ticker.C:
		}
	}
}

func statefulSetSpec(storageSize string) *kubeapps.StatefulSet {
	replicas := int32(1)
	labels := map[string]string{"app.kubernetes.io/component": "database"}

	return &kubeapps.StatefulSet{
		ObjectMeta: kubeapimeta.ObjectMeta{Name: statefulSetName, Labels: labels},
		Spec: kubeapps.StatefulSetSpec{
			Replicas:    &replicas,
			ServiceName: serviceName,
			Selector:    &kubeapimeta.LabelSelector{MatchLabels: labels},
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: labels},
				Spec: kubecore.PodSpec{
					Containers: []kubecore.Container{
						{
							Name:  "mysql",
							Image: "mysql:8",
							Ports: []kubecore.ContainerPort{{ContainerPort: mysqlPort}},
							Env: []kubecore.EnvVar{
								{Name: "MYSQL_ROOT_PASSWORD", ValueFrom: secretRef("root-password")},
								{Name: "MYSQL_USER", ValueFrom: secretRef("db-user")},
								{Name: "MYSQL_PASSWORD", ValueFrom: secretRef("db-password")},
								{Name: "MYSQL_DATABASE", ValueFrom: secretRef("db-name")},
							},
							Resources: kubecore.ResourceRequirements{
								Requests: kubecore.ResourceList{
									kubecore.ResourceCPU:    resource.MustParse("100m"),
									kubecore.ResourceMemory: resource.MustParse("128Mi"),
								},
								Limits: kubecore.ResourceList{
									kubecore.ResourceCPU:    resource.MustParse("500m"),
									kubecore.ResourceMemory: resource.MustParse("512Mi"),
								},
							},
							VolumeMounts: []kubecore.VolumeMount{
								{Name: "data", MountPath: "/var/lib/mysql"},
							},
							LivenessProbe:  mysqlPingProbe(),
							ReadinessProbe: mysqlPingProbe(),
						},
					},
				},
			},
			VolumeClaimTemplates: []kubecore.PersistentVolumeClaim{
				{
					ObjectMeta: kubeapimeta.ObjectMeta{Name: "data"},
					Spec: kubecore.PersistentVolumeClaimSpec{
						AccessModes: []kubecore.PersistentVolumeAccessMode{kubecore.ReadWriteOnce},
						Resources: kubecore.VolumeResourceRequirements{
							Requests: kubecore.ResourceList{kubecore.ResourceStorage: resource.MustParse(storageSize)},
						},
					},
				},
			},
		},
	}
}

func headlessServiceSpec() *kubecore.Service {
	labels := map[string]string{"app.kubernetes.io/component": "database"}
	clusterIPNone := "None"
	return &kubecore.Service{
		ObjectMeta: kubeapimeta.ObjectMeta{Name: serviceName},
		Spec: kubecore.ServiceSpec{
			ClusterIP: clusterIPNone,
			Selector:  labels,
			Ports: []kubecore.ServicePort{
				{Name: "mysql", Port: mysqlPort, TargetPort: kubeintstr.FromInt(mysqlPort)},
			},
		},
	}
}

func secretRef(key string) *kubecore.EnvVarSource {
	return &kubecore.EnvVarSource{
		SecretKeyRef: &kubecore.SecretKeySelector{
			LocalObjectReference: kubecore.LocalObjectReference{Name: secretName},
			Key:                  key,
		},
	}
}

func mysqlPingProbe() *kubecore.Probe {
	return &kubecore.Probe{
		ProbeHandler: kubecore.ProbeHandler{
			Exec: &kubecore.ExecAction{Command: []string{"mysqladmin", "ping", "-h", "localhost"}},
		},
		InitialDelaySeconds: 5,
		PeriodSeconds:       10,
	}
}
