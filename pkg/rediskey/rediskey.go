package rediskey

import "fmt"

// SettingPrefix namespaces cached settings shared across services.
const SettingPrefix = "setting"

// LinksKey caches the external link bundle.
var LinksKey = BuildSettingKey("links")

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildSettingKey returns "setting:{key}".
func BuildSettingKey(key string) string {
	return NamespaceKey(SettingPrefix, key)
}
