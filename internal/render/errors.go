// SPDX-License-Identifier: MIT
package render

import "errors"

// ErrRenderFault marks a failed layer render. The layer is skipped for the
// frame and the composite is still presented; the loop never stops because
// one layer misbehaved.
var ErrRenderFault = errors.New("render: layer fault")
