package live

import "errors"

// Refresh error taxonomy. Transient fetch failures are only surfaced when no
// cached data exists to fall back on; a missing stored playlist behind a
// durable-store pointer is always fatal for that refresh.
var (
	// ErrStoredPlaylistMissing means the source URL pointed at the durable
	// store but no playlist body is stored there. There is no fallback.
	ErrStoredPlaylistMissing = errors.New("stored playlist not found")

	// ErrFetchFailed means the playlist could not be fetched and no cached
	// entry exists for the source.
	ErrFetchFailed = errors.New("playlist fetch failed")
)
