// Package all imports all adapter implementations.
package all

import (
	_ "github.com/softwell/mountfs/backend/b64"  // register b64 backend
	_ "github.com/softwell/mountfs/backend/mem"  // register mem backend
	_ "github.com/softwell/mountfs/backend/os"   // register os backend
	_ "github.com/softwell/mountfs/backend/s3"   // register s3 backend
	_ "github.com/softwell/mountfs/backend/sftp" // register sftp backend
)
