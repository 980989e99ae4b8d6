package store

// NopStore is used when persistence is disabled. Loads are empty and writes
// are discarded; the facade's in-memory map is then the only cache.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (NopStore) Load() (map[string]string, error) { return map[string]string{}, nil }
func (NopStore) Put(key, value string) error      { return nil }
func (NopStore) Clear() error                     { return nil }
