package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/grove-app/grove/internal/migrate"
	"github.com/grove-app/grove/internal/syncstate"
)

// Handler formats sync events as dashboard messages. It bridges between
// the sync status store and the WebSocket server.
type Handler struct {
	server *Server
	logger *log.Logger

	stats *StatsData
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}

	return &Handler{
		server: server,
		logger: logger,
		stats: &StatsData{
			ByCollection: make(map[string]int),
		},
	}
}

// WatchSyncState subscribes to the status store and broadcasts every
// transition. Returns an unsubscribe function.
func (h *Handler) WatchSyncState(status *syncstate.Store) func() {
	return status.Subscribe(func(st syncstate.State) {
		h.OnSyncStateChange(st)
	})
}

// OnSyncStateChange broadcasts a sync status transition
func (h *Handler) OnSyncStateChange(st syncstate.State) {
	data := SyncStateData{
		Syncing:       st.Syncing,
		Authenticated: st.Authenticated,
		AutoSync:      st.AutoSync,
		SyncEnabled:   st.SyncEnabled,
		LastSyncAt:    st.LastSyncAt,
		Error:         st.Err,
	}
	if st.Identity != nil {
		data.UID = st.Identity.UID
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal sync state: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncState,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// OnRecordSynced handles a record push event
func (h *Handler) OnRecordSynced(collection, recordID string) {
	h.logger.Printf("Record synced: %s/%s", collection, recordID)

	h.stats.Total++
	h.stats.ByCollection[collection]++

	h.broadcastCollectionUpdate(collection, recordID, "synced")
	h.broadcastStats()
}

// OnRecordDeleted handles a remote delete event
func (h *Handler) OnRecordDeleted(collection, recordID string) {
	h.logger.Printf("Record deleted: %s/%s", collection, recordID)

	if h.stats.ByCollection[collection] > 0 {
		h.stats.Total--
		h.stats.ByCollection[collection]--
	}

	h.broadcastCollectionUpdate(collection, recordID, "deleted")
	h.broadcastStats()
}

func (h *Handler) broadcastCollectionUpdate(collection, recordID, action string) {
	data := CollectionUpdateData{
		Collection: collection,
		RecordID:   recordID,
		Action:     action,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal collection update: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeCollectionUpdate,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// OnMigrationComplete broadcasts a finished migration run
func (h *Handler) OnMigrationComplete(result *migrate.Result) {
	h.logger.Printf("Migration complete: %d items, success=%v", result.TotalItems, result.Success)

	data := MigrationCompleteData{
		Success:    result.Success,
		Counts:     result.Counts,
		TotalItems: result.TotalItems,
		Errors:     result.Errors,
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal migration result: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeMigrationComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// UpdateStats replaces the tracked statistics from a full local snapshot.
// Useful at startup or after a full sync.
func (h *Handler) UpdateStats(counts map[string]int) {
	h.stats.Total = 0
	h.stats.ByCollection = make(map[string]int)
	for collection, count := range counts {
		h.stats.ByCollection[collection] = count
		h.stats.Total += count
	}

	h.broadcastStats()
}

// broadcastStats sends current statistics to all clients
func (h *Handler) broadcastStats() {
	dataJSON, err := json.Marshal(h.stats)
	if err != nil {
		h.logger.Printf("Failed to marshal stats: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStats,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// GetStats returns the current statistics
func (h *Handler) GetStats() StatsData {
	return *h.stats
}
