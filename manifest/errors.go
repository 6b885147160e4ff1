package manifest

import "github.com/pkg/errors"

// ErrDateUnparseable is returned when RunInfo.xml's Date element matches
// neither of the two accepted date formats.
var ErrDateUnparseable = errors.New("manifest: run date could not be parsed")

// ErrRTAVersionUnparseable is returned when the leading integer of the
// RTA version string cannot be parsed.
var ErrRTAVersionUnparseable = errors.New("manifest: RTA version could not be parsed")
