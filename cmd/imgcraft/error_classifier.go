// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"io/fs"
	"os/exec"

	"imgcraft-cli/internal/artifactcache"
	"imgcraft-cli/internal/customize"
	"imgcraft-cli/internal/hostlock"
	"imgcraft-cli/internal/imageservice"
	"imgcraft-cli/internal/issue"
	"imgcraft-cli/internal/plan"
	"imgcraft-cli/internal/transport"
)

// classifyCustomizeError maps workflow failures to issue catalog IDs so
// the CLI can render remediation guidance next to the raw error. The
// order matters: specific domain sentinels before generic OS errors.
func classifyCustomizeError(err error) issue.Id {
	switch {
	case errors.Is(err, plan.ErrInvalidPlan):
		return issue.PlanParseErrorId
	case errors.Is(err, customize.ErrImageNotFound):
		return issue.ImageNotFoundId
	case errors.Is(err, hostlock.ErrTimeout):
		return issue.LockTimeoutId
	case errors.Is(err, artifactcache.ErrIntegrity):
		return issue.CacheIntegrityId
	case errors.Is(err, transport.ErrTransport):
		return issue.DownloadFailedId
	case errors.Is(err, exec.ErrNotFound):
		return issue.ServicingToolNotFoundId
	case errors.Is(err, imageservice.ErrMount):
		return issue.MountFailedId
	case errors.Is(err, imageservice.ErrDismount):
		return issue.DismountFailedId
	case errors.Is(err, fs.ErrPermission):
		return issue.PermissionDeniedId
	default:
		return 0
	}
}
