package metadata

// --- Archive Keys ---
// These keys are used for the 'key' column in the 'metadata' table.
const (
	// LastSnapshotDigestKey stores the xxhash digest of the Store state captured by
	// the last successful snapshot. An unchanged digest means the snapshot is skipped.
	LastSnapshotDigestKey = "last_snapshot_digest"

	// LastSnapshotAtKey stores the RFC3339 time of the last successful snapshot.
	LastSnapshotAtKey = "last_snapshot_at"

	// LastRestoreAtKey stores the RFC3339 time of the last restore into the Store.
	LastRestoreAtKey = "last_restore_at"
)
