package sync

import "time"

// Status состояние синхронизации процесса. Не сохраняется между запусками.
type Status struct {
	IsOnline     bool      `json:"is_online"`
	IsSyncing    bool      `json:"is_syncing"`
	PendingCount int       `json:"pending_count"`
	LastSyncAt   time.Time `json:"last_sync_at"`
	Error        string    `json:"error,omitempty"`
}

// DrainResult итог одного прохода по очереди
type DrainResult struct {
	Succeeded int `json:"succeeded"`
	// Failed сумма временных и терминальных ошибок
	Failed    int  `json:"failed"`
	Transient int  `json:"transient"`
	Terminal  int  `json:"terminal"`
	Skipped   bool `json:"skipped,omitempty"`
}

// FamilyResult итог загрузки одного семейства
type FamilyResult struct {
	Family  string `json:"family"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

// RefreshResult итог обновления снимков
type RefreshResult struct {
	Refreshed int            `json:"refreshed"`
	Failed    int            `json:"failed"`
	Families  []FamilyResult `json:"families"`
	Skipped   bool           `json:"skipped,omitempty"`
}

// CycleResult итог совмещенного прогона (таймер, появление сети)
type CycleResult struct {
	Drain   DrainResult   `json:"drain"`
	Refresh RefreshResult `json:"refresh"`
	Skipped bool          `json:"skipped,omitempty"`
}
