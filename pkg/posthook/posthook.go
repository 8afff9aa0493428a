// Package posthook is the Post-install Hook of §4.9: a best-effort
// sequence of WooCommerce bootstrap commands run inside the
// application pod through the shell-free exec channel.
//
// Grounded on pkg/gateway.ExecInPod for the exec call itself and on the
// teacher's per-call context derivation style (pkg/loop.WithTimeout) for
// the per-command timeout passed to New.
package posthook

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
)

// Hook is the Post-install Hook interface the orchestrator depends on.
type Hook interface {
	Run(ctx context.Context, namespace, storeID, hostname string)
}

type hook struct {
	gw              gateway.Gateway
	commandTimeout  time.Duration
	log             *log.Logger
}

// New wraps gw into a Hook. commandTimeout bounds each individual exec
// call (§4.9 default 30s).
func New(gw gateway.Gateway, commandTimeout time.Duration, logger *log.Logger) Hook {
	return &hook{gw: gw, commandTimeout: commandTimeout, log: logger}
}

// Run resolves the application pod and executes the fixed §4.9 command
// sequence. Every step is independently best-effort: a failing step is
// logged as a warning and does not abort the remaining steps or fail
// the caller.
func (h *hook) Run(ctx context.Context, namespace, storeID, hostname string) {
	pods, err := h.gw.ListPodsByLabel(ctx, namespace, map[string]string{"app.kubernetes.io/component": "application"})
	if err != nil || len(pods) == 0 {
		h.log.Warnf("posthook: no application pod found in %s: %v", namespace, err)
		return
	}
	pod := pods[0]

	for _, cmd := range commands(storeID, hostname) {
		if _, err := h.gw.ExecInPod(ctx, namespace, pod, cmd, h.commandTimeout); err != nil {
			h.log.Warnf("posthook: command %v failed in %s/%s: %v", cmd, namespace, pod, err)
		}
	}
}

// commands is the fixed, ordered §4.9 sequence: storefront pages,
// cash-on-delivery payment, sample products (idempotent by SKU), store
// settings, rewrite-rule flush. Arguments are a proper argv vector —
// never shell-interpolated.
func commands(storeID, hostname string) [][]string {
	siteURL := fmt.Sprintf("http://%s", hostname)
	return [][]string{
		{"wp", "wc", "--user=admin", "tool", "install-pages"},
		{"wp", "option", "patch", "update", "woocommerce_cod_settings", "enabled", "yes"},
		{"wp", "wc", "product", "create", "--user=admin", "--sku=STARTER-001", "--name=Starter Kit", "--regular_price=19.99"},
		{"wp", "wc", "product", "create", "--user=admin", "--sku=STARTER-002", "--name=Essentials Bundle", "--regular_price=29.99"},
		{"wp", "wc", "product", "create", "--user=admin", "--sku=STARTER-003", "--name=Deluxe Pack", "--regular_price=49.99"},
		{"wp", "option", "update", "siteurl", siteURL},
		{"wp", "option", "update", "blogname", storeID},
		{"wp", "rewrite", "flush", "--hard"},
	}
}
