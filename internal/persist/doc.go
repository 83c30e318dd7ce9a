// Package persist maps queue and key-value state onto records in the durable
// store and rebuilds that state at startup.
//
// Queue records live under "queue_<topic>" and hold the topic's whole message
// sequence. Key-value records live under "kv_<key>" and hold the raw value.
// Every write replaces the full record, so a record always reflects the state
// of its topic or key at the moment of the last successful save.
package persist
