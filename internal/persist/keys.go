package persist

import "strings"

// Record key prefixes. A topic and a key with the same name never collide
// because their records live under different prefixes.
const (
	QueuePrefix = "queue_"
	KVPrefix    = "kv_"
)

// QueueKey returns the record key holding topic's messages.
func QueueKey(topic string) []byte { return []byte(QueuePrefix + topic) }

// KVKey returns the record key holding key's value.
func KVKey(key string) []byte { return []byte(KVPrefix + key) }

// splitKey classifies a raw record key. ok is false for keys outside both
// namespaces.
func splitKey(raw string) (prefix, name string, ok bool) {
	switch {
	case strings.HasPrefix(raw, QueuePrefix):
		return QueuePrefix, raw[len(QueuePrefix):], true
	case strings.HasPrefix(raw, KVPrefix):
		return KVPrefix, raw[len(KVPrefix):], true
	default:
		return "", "", false
	}
}
