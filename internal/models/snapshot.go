package models

// Snapshot is the full content of the document store as returned by one poll
type Snapshot struct {
	Users         []User         `json:"users"`
	Loans         []LoanRecord   `json:"loans"`
	Notifications []Notification `json:"notifications"`
	Budget        int64          `json:"budget"`
	RankProfit    int64          `json:"rankProfit"`
	StorageFull   bool           `json:"storageFull,omitempty"`
	StorageUsage  string         `json:"storageUsage,omitempty"` // MB, two decimals
}

// ConfigKey names a scalar kept in the store's config table
type ConfigKey string

const (
	ConfigBudget     ConfigKey = "budget"
	ConfigRankProfit ConfigKey = "rankProfit"
)
