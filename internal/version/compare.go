package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// CheckCompatibility checks that a peer advertising remote can serve a client
// built against required.
//
// Rules:
//   - "main" on either side (development build) skips the check
//   - an empty remote is accepted, older peers do not advertise a version
//   - remote must satisfy ^required: same major and at least required
//
// Examples:
//   - required 1.2.0, remote 1.2.0 -> OK
//   - required 1.2.0, remote 1.4.1 -> OK (newer minor)
//   - required 1.2.0, remote 1.1.9 -> ERROR (too old)
//   - required 1.2.0, remote 2.0.0 -> ERROR (major differs)
func CheckCompatibility(required, remote string) error {
	required = strings.TrimPrefix(required, "v")
	remote = strings.TrimPrefix(remote, "v")

	if required == "main" || remote == "main" || remote == "" {
		return nil
	}

	remoteSemver, err := semver.NewVersion(remote)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeIncompatibleVersion, err, "invalid peer version '%s'", remote)
	}

	constraint, err := semver.NewConstraint("^" + required)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidArgument, err, "invalid required version '%s'", required)
	}

	if !constraint.Check(remoteSemver) {
		return errors.Newf(errors.ErrCodeIncompatibleVersion,
			"peer version %s does not satisfy ^%s", remoteSemver.String(), required)
	}

	return nil
}
