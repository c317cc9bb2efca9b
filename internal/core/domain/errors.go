package domain

import "go.trai.ch/zerr"

var (
	// ErrConfigInvalid marks every configuration problem that must abort a run before any tier starts.
	ErrConfigInvalid = zerr.New("invalid configuration")

	// ErrConfigNotFound is returned when no sift.yaml is found walking up from the working directory.
	ErrConfigNotFound = zerr.New("could not find sift.yaml")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrToolAlreadyRegistered is returned when two tools share a name.
	ErrToolAlreadyRegistered = zerr.New("tool already registered")

	// ErrInvalidToolName is returned when a tool name is empty or contains invalid characters.
	ErrInvalidToolName = zerr.New("invalid tool name")

	// ErrInvalidTier is returned when a tool declares a tier outside 1..3.
	ErrInvalidTier = zerr.New("invalid tier, expected 1, 2 or 3")

	// ErrMissingDependency is returned when a tool depends on a tool that is not registered.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrDependencyTier is returned when a tool depends on a tool of a later tier.
	ErrDependencyTier = zerr.New("dependency belongs to a later tier")

	// ErrCycleDetected is returned when the tool dependency graph contains a cycle.
	ErrCycleDetected = zerr.New("cycle detected")

	// ErrToolNotFound is returned when a tool is requested by a name the registry does not know.
	ErrToolNotFound = zerr.New("tool not found")

	// ErrReservedDomain is returned when the config declares a reserved domain name.
	ErrReservedDomain = zerr.New("domain name is reserved")

	// ErrDomainOverlap is returned when one source directory belongs to two domains.
	ErrDomainOverlap = zerr.New("source path belongs to more than one domain")

	// ErrUnknownDomain is returned when a reference names a domain that is not declared.
	ErrUnknownDomain = zerr.New("unknown domain")

	// ErrToolFailure is returned when a tool ran but reported findings or errors.
	ErrToolFailure = zerr.New("tool reported failures")

	// ErrToolCrash is returned when a tool exited abnormally or timed out.
	ErrToolCrash = zerr.New("tool crashed")

	// ErrEmptyCommand is returned when a tool or test runner has no command configured.
	ErrEmptyCommand = zerr.New("empty command")

	// ErrLockBusy is returned when another live run holds the requested lock.
	ErrLockBusy = zerr.New("lock is held by another run")

	// ErrLockCreateFailed is returned when the lock file cannot be created.
	ErrLockCreateFailed = zerr.New("failed to create lock file")

	// ErrLockReadFailed is returned when an existing lock file cannot be read.
	ErrLockReadFailed = zerr.New("failed to read lock file")

	// ErrLockReleaseFailed is returned when the lock file cannot be removed.
	ErrLockReleaseFailed = zerr.New("failed to release lock")

	// ErrCacheCorrupt is returned when a cache document cannot be parsed.
	ErrCacheCorrupt = zerr.New("cache entry is corrupt")

	// ErrCacheReadFailed is returned when a cache document cannot be read.
	ErrCacheReadFailed = zerr.New("failed to read cache entry")

	// ErrCacheWriteFailed is returned when a cache document cannot be written.
	ErrCacheWriteFailed = zerr.New("failed to write cache entry")

	// ErrCacheClearFailed is returned when the cache directory cannot be removed.
	ErrCacheClearFailed = zerr.New("failed to clear cache")

	// ErrMissingToolVersion is returned when a cache entry is stored without a tool version hash.
	ErrMissingToolVersion = zerr.New("cache key requires a tool version hash")

	// ErrFingerprintFailed is returned when a file set cannot be fingerprinted.
	ErrFingerprintFailed = zerr.New("failed to fingerprint files")

	// ErrToolVersionFailed is returned when the tool implementation files cannot be hashed.
	ErrToolVersionFailed = zerr.New("failed to hash tool sources")

	// ErrInvalidTransition is returned when the orchestrator attempts an illegal state change.
	ErrInvalidTransition = zerr.New("invalid run state transition")

	// ErrFinalizeNotOwner is returned when finalization is attempted without owning the audit lock.
	ErrFinalizeNotOwner = zerr.New("audit lock is not held by this run")

	// ErrAlreadyFinalized is returned when finalization is attempted a second time in one run.
	ErrAlreadyFinalized = zerr.New("run already finalized")

	// ErrAuditAborted is returned when a run ends in the aborted state.
	ErrAuditAborted = zerr.New("audit aborted")

	// ErrStrictFailures is returned in strict mode when a tool crashed or a tier-3 tool failed.
	ErrStrictFailures = zerr.New("audit completed with failures")

	// ErrReportWriteFailed is returned when an aggregate document cannot be written.
	ErrReportWriteFailed = zerr.New("failed to write report")

	// ErrReportReadFailed is returned when an aggregate document cannot be read.
	ErrReportReadFailed = zerr.New("failed to read report")

	// ErrMetricsWriteFailed is returned when the metrics textfile cannot be written.
	ErrMetricsWriteFailed = zerr.New("failed to write metrics")

	// ErrProfileParseFailed is returned when a coverage profile cannot be parsed.
	ErrProfileParseFailed = zerr.New("failed to parse coverage profile")

	// ErrCoverageLockBusy is returned when the coverage lock could not be taken in time.
	ErrCoverageLockBusy = zerr.New("coverage run in progress elsewhere")

	// ErrCoverageDisabled is returned by the standalone coverage command when the project has no coverage section.
	ErrCoverageDisabled = zerr.New("coverage is not configured")
)
