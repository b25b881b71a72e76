package snapshot

import (
	"encoding/json"
	"time"
)

const (
	// MetadataCollection коллекция с метаданными синхронизации семейств
	MetadataCollection = "sync_metadata"

	collectionPrefix = "snapshot_"
)

// Record снимок серверной сущности, ключ стабильный идентификатор сущности
type Record struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Metadata сведения о последней успешной загрузке семейства
type Metadata struct {
	CollectionKey string    `json:"collection_key"`
	LastSyncAt    time.Time `json:"last_sync_at"`
	// VersionToken зарезервирован для инкрементальной загрузки, сейчас не используется
	VersionToken string `json:"version_token,omitempty"`
}

// CollectionName имя коллекции хранилища для семейства.
func CollectionName(family string) string {
	return collectionPrefix + family
}
