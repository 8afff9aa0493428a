// Package application is the Application Workload of §4.7: given a
// tenant's database connection descriptor, it deploys the storefront
// application itself — admin credentials, content storage, the
// Deployment, its ClusterIP service, and the public ingress rule — and
// waits for it to become ready.
//
// Grounded the same way as pkg/workload/database: the teacher's
// object-builder style in pkg/workloads/k8s, generalized from one
// workload type to this package's Deployment+Service+Ingress set.
package application

import (
	"context"
	"fmt"
	"time"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubenet "k8s.io/api/networking/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	kubeintstr "k8s.io/apimachinery/pkg/util/intstr"

	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
	"github.com/kshitizz36/Urumi-AI/pkg/secretgen"
)

const (
	adminSecretName  = "admin-credentials"
	contentVolume    = "content"
	deploymentName   = "app"
	serviceName      = "app-service"
	pollInterval     = 2 * time.Second
	containerPort    = 8080
	servicePort      = 80
)

// ConnectionDescriptor mirrors database.ConnectionDescriptor's shape to
// avoid this package importing pkg/workload/database just for a type.
type ConnectionDescriptor struct {
	Host       string
	Port       int32
	DBName     string
	User       string
	SecretName string
}

// DeployResult carries everything the orchestrator needs to publish the
// store's URLs once validation (§4.8 phase 4) completes.
type DeployResult struct {
	Hostname       string
	AdminSecretName string
}

// Workload is the Application Workload interface the orchestrator
// depends on.
type Workload interface {
	Deploy(ctx context.Context, namespace, storeID, storeName, storeDomain, ingressClass, storageSize string, db ConnectionDescriptor) (DeployResult, error)
	WaitReady(ctx context.Context, namespace string, timeout time.Duration) error
}

type workload struct {
	gw gateway.Gateway
}

// New wraps gw into a Workload.
func New(gw gateway.Gateway) Workload {
	return &workload{gw: gw}
}

func (w *workload) Deploy(ctx context.Context, namespace, storeID, storeName, storeDomain, ingressClass, storageSize string, db ConnectionDescriptor) (DeployResult, error) {
	hostname := fmt.Sprintf("store-%s.%s", storeID, storeDomain)

	adminPassword, err := secretgen.Generate(16)
	if err != nil {
		return DeployResult{}, err
	}
	if err := w.gw.EnsureSecret(ctx, namespace, adminSecretName, map[string]string{
		"admin-password": adminPassword,
	}, map[string]string{"app.kubernetes.io/component": "application"}); err != nil {
		return DeployResult{}, err
	}

	if err := w.gw.EnsurePVC(ctx, namespace, pvcSpec(storageSize)); err != nil {
		return DeployResult{}, err
	}
	if err := w.gw.EnsureDeployment(ctx, namespace, deploymentSpec(hostname, storeName, db)); err != nil {
		return DeployResult{}, err
	}
	if err := w.gw.EnsureService(ctx, namespace, serviceSpec()); err != nil {
		return DeployResult{}, err
	}
	if err := w.gw.EnsureIngress(ctx, namespace, ingressSpec(hostname, ingressClass)); err != nil {
		return DeployResult{}, err
	}

	return DeployResult{Hostname: hostname, AdminSecretName: adminSecretName}, nil
}

// WaitReady polls deployment readyReplicas every 2s (same cadence as
// §4.6) until ready, timeout, or ctx cancellation.
func (w *workload) WaitReady(ctx context.Context, namespace string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ready, err := w.gw.ReadDeploymentReadyReplicas(cctx, namespace, deploymentName)
		if err != nil {
			return err
		}
		if ready >= 1 {
			return nil
		}
		select {
		case <-cctx.Done():
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("application deployment %s not ready after %s", namespace, timeout)
		case <-ticker.C:
		}
	}
}

func pvcSpec(storageSize string) *kubecore.PersistentVolumeClaim {
	return &kubecore.PersistentVolumeClaim{
		ObjectMeta: kubeapimeta.ObjectMeta{Name: contentVolume},
		Spec: kubecore.PersistentVolumeClaimSpec{
			AccessModes: []kubecore.PersistentVolumeAccessMode{kubecore.ReadWriteOnce},
			Resources: kubecore.VolumeResourceRequirements{
				Requests: kubecore.ResourceList{kubecore.ResourceStorage: resource.MustParse(storageSize)},
			},
		},
	}
}

func deploymentSpec(hostname, storeName string, db ConnectionDescriptor) *kubeapps.Deployment {
	replicas := int32(1)
	labels := map[string]string{"app.kubernetes.io/component": "application"}

	return &kubeapps.Deployment{
		ObjectMeta: kubeapimeta.ObjectMeta{Name: deploymentName, Labels: labels},
		Spec: kubeapps.DeploymentSpec{
			Replicas: &replicas,
			Selector: &kubeapimeta.LabelSelector{MatchLabels: labels},
			Template: kubecore.PodTemplateSpec{
				ObjectMeta: kubeapimeta.ObjectMeta{Labels: labels},
				Spec: kubecore.PodSpec{
					Containers: []kubecore.Container{
						{
							Name:  "app",
							Image: "wordpress:woocommerce",
							Ports: []kubecore.ContainerPort{{ContainerPort: containerPort}},
							Env: []kubecore.EnvVar{
								{Name: "DB_HOST", Value: db.Host},
								{Name: "DB_PORT", Value: fmt.Sprintf("%d", db.Port)},
								{Name: "DB_NAME", Value: db.DBName},
								{Name: "DB_USER", ValueFrom: secretRef(db.SecretName, "db-user")},
								{Name: "DB_PASSWORD", ValueFrom: secretRef(db.SecretName, "db-password")},
								{Name: "WP_ADMIN_PASSWORD", ValueFrom: secretRef(adminSecretName, "admin-password")},
								{Name: "SITE_URL", Value: fmt.Sprintf("http://%s", hostname)},
								{Name: "STORE_NAME", Value: storeName},
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
								{Name: contentVolume, MountPath: "/var/www/html/wp-content"},
							},
							ReadinessProbe: httpProbe(),
							LivenessProbe:  httpProbe(),
						},
					},
					Volumes: []kubecore.Volume{
						{
							Name: contentVolume,
							VolumeSource: kubecore.VolumeSource{
								PersistentVolumeClaim: &kubecore.PersistentVolumeClaimVolumeSource{ClaimName: contentVolume},
							},
						},
					},
				},
			},
		},
	}
}

func serviceSpec() *kubecore.Service {
	labels := map[string]string{"app.kubernetes.io/component": "application"}
	return &kubecore.Service{
		ObjectMeta: kubeapimeta.ObjectMeta{Name: serviceName},
		Spec: kubecore.ServiceSpec{
			Type:     kubecore.ServiceTypeClusterIP,
			Selector: labels,
			Ports: []kubecore.ServicePort{
				{Name: "http", Port: servicePort, TargetPort: kubeintstr.FromInt(containerPort)},
			},
		},
	}
}

func ingressSpec(hostname, ingressClass string) *kubenet.Ingress {
	pathType := kubenet.PathTypePrefix
	return &kubenet.Ingress{
		ObjectMeta: kubeapimeta.ObjectMeta{
			Name: "app-ingress",
			Annotations: map[string]string{
				"nginx.ingress.kubernetes.io/proxy-body-size":   "64m",
				"nginx.ingress.kubernetes.io/proxy-read-timeout": "60",
			},
		},
		Spec: kubenet.IngressSpec{
			IngressClassName: &ingressClass,
			Rules: []kubenet.IngressRule{
				{
					Host: hostname,
					IngressRuleValue: kubenet.IngressRuleValue{
						HTTP: &kubenet.HTTPIngressRuleValue{
							Paths: []kubenet.HTTPIngressPath{
								{
									Path:     "/",
									PathType: &pathType,
									Backend: kubenet.IngressBackend{
										Service: &kubenet.IngressServiceBackend{
											Name: serviceName,
											Port: kubenet.ServiceBackendPort{Number: servicePort},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}

func secretRef(secret, key string) *kubecore.EnvVarSource {
	return &kubecore.EnvVarSource{
		SecretKeyRef: &kubecore.SecretKeySelector{
			LocalObjectReference: kubecore.LocalObjectReference{Name: secret},
			Key:                  key,
		},
	}
}

func httpProbe() *kubecore.Probe {
	return &kubecore.Probe{
		ProbeHandler: kubecore.ProbeHandler{
			HTTPGet: &kubecore.HTTPGetAction{Path: "/", Port: kubeintstr.FromInt(containerPort)},
		},
		InitialDelaySeconds: 10,
		PeriodSeconds:       10,
	}
}
