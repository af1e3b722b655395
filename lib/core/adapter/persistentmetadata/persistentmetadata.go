package persistentmetadata

// PersistentMetadata stores values that outlive one run, such as the peers a
// tracker returned. Get decodes into value, which must be a pointer, and
// fails when key was never Put.
type PersistentMetadata interface {
	Put(key string, value interface{}) error
	Get(key string, value interface{}) error
}
