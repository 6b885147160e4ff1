package ingest

import (
	"context"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"

	"github.com/bihealth/digestiflow-cli/restapi"
	"github.com/bihealth/digestiflow-cli/settings"
)

// Run processes every path in turn, logging and continuing on
// per-directory failure, and returns a single aggregated error if any
// directory failed — mirroring original_source/src/ingest/mod.rs::run's
// "skip folders that errored, but only return Ok if all of them worked"
// contract.
func Run(ctx context.Context, s settings.Settings, paths []string) error {
	if err := s.Validate(); err != nil {
		return err
	}

	client := restapi.New(s.Web.URL, s.Web.Token, s.Ingest.ProjectUUID, s.LogToken)

	numFailed := 0
	for _, path := range paths {
		if err := ProcessDirectory(ctx, client, path, s); err != nil {
			vlog.Errorf("processing folder %s failed, continuing with other paths: %s", path, CauseChain(err))
			numFailed++
		}
	}

	if numFailed > 0 {
		return errors.Errorf("processing of %d folder(s) failed", numFailed)
	}
	return nil
}

// CauseChain renders err's pkg/errors cause chain as
// "err: caused by: cause1: caused by: cause2 ...", the same information
// main's "caused by" printer emits one line per level.
func CauseChain(err error) string {
	return causeChainFormat(err)
}
