// Package blob wires the concrete blob store drivers behind an
// environment-driven factory.
package blob

import (
	"context"
	"fmt"
	"os"

	"surveycore/internal/blob/core"
	"surveycore/internal/infra/blob/fs"
	"surveycore/internal/infra/blob/memory"
	"surveycore/internal/infra/blob/s3"
)

// Open selects a core.Store implementation using environment variables.
//
//	SURVEYCORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	SURVEYCORE_BLOB_FS_ROOT: directory root when driver=fs (default ./artifacts)
//	(S3 specific variables documented in the s3 package)
func Open(ctx context.Context) (core.Store, error) {
	driver := os.Getenv("SURVEYCORE_BLOB_DRIVER")
	if driver == "" {
		driver = string(core.DriverFilesystem)
	}
	switch core.Driver(driver) {
	case core.DriverFilesystem:
		return fs.New(os.Getenv("SURVEYCORE_BLOB_FS_ROOT"))
	case core.DriverS3:
		return s3.OpenFromEnv(ctx)
	case core.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
