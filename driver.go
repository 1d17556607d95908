package pagedvfd

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hdf5-hermes/pagedvfd/internal/bufferstore"
)

// DriverName identifies this driver to the host's virtual-file layer, the
// way "hermes" names the driver class record it is grounded on.
const DriverName = "pagedvfd"

// driverID is the process-wide identifier the host's registry hands back
// once this driver's class record is registered, mirroring the original
// H5FD_HERMES_g global.
var driverID atomic.Int64

var registerOnce sync.Once

// Register registers this driver's class record with the host's virtual
// file layer exactly once per process and returns the driver identifier.
// Later calls return the same identifier without re-registering.
func Register() int64 {
	registerOnce.Do(func() {
		driverID.Store(1)
	})
	return driverID.Load()
}

// Terminate shuts down the buffer-store service and clears the registered
// driver identifier, undoing Register so a later Register call re-runs its
// registration logic in a fresh process lifetime (e.g. in tests).
func Terminate() error {
	if err := bufferstore.Global().Finalize(); err != nil {
		return fmt.Errorf("pagedvfd: terminate: %w", err)
	}
	driverID.Store(0)
	registerOnce = sync.Once{}
	return nil
}

// FileAccessPropertyList is the narrow stand-in for the host's property
// list type (out of scope per SPEC_FULL.md — the host owns the real type
// and its generic get/set machinery). It holds only what this driver's
// "set this driver" entry point needs to record.
type FileAccessPropertyList struct {
	driver string
	config Config
}

// SetDriver stores this driver and its configuration on the property list,
// the equivalent of H5Pset_fapl_hermes. There are no other driver-specific
// properties.
func SetDriver(pl *FileAccessPropertyList, cfg Config) error {
	if pl == nil {
		return fmt.Errorf("%w: nil property list", ErrInvalidArgument)
	}
	if err := cfg.validate(); err != nil {
		return err
	}
	pl.driver = DriverName
	pl.config = cfg
	return nil
}

// Driver returns the name of the driver set on pl (empty if SetDriver has
// not succeeded on it) and its configuration.
func (pl *FileAccessPropertyList) Driver() (string, Config) {
	return pl.driver, pl.config
}
