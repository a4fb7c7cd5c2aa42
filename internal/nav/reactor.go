// internal/nav/reactor.go
package nav

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/scalpel-nav/internal/geometry"
)

// HandleMutation re-derives focus after the tree changed under the root.
//
// Before the first successful focus it retries Init. Afterwards it does
// nothing once the root has left the document, or while the focused element
// is still under the root; once the focused element is gone, a
// replacement is picked according to the policy of the current area and
// focused with force. When the current area itself was removed, the
// closest element in any area (or the default element) takes over.
func (n *Navigator[E]) HandleMutation() error {
	if n.cleared {
		return nil
	}
	if !n.initialized {
		return n.Init()
	}
	if n.root == n.zero || !n.attached(n.root) {
		n.logger.Debug("Root is gone, ignoring the change.")
		return nil
	}
	if n.focused != n.zero && n.tree.Contains(n.root, n.focused) {
		return nil
	}

	area := n.area
	if area == n.zero || !n.tree.Contains(n.root, area) {
		n.logger.Debug("Current area disappeared, falling back.")
		_, err := n.fallback(geometry.None)
		return err
	}

	policy := n.capsOf(area).policy
	var (
		el E
		ok bool
	)
	switch policy {
	case PolicyDefaults:
		el, ok = n.DefaultsIn(area)
	case PolicyHovered:
		el, ok = n.Hovered()
	case PolicyCircular:
		el, ok = n.circularIn(area, geometry.None)
	default:
		el, ok = n.ClosestIn(area)
	}
	n.logger.Debug("Focused element disappeared, refocusing.",
		zap.String("policy", string(policy)),
		zap.String("replacement", n.describe(el)))
	if !ok {
		return nil
	}
	_, err := n.Focus(el, geometry.None, true)
	return err
}
