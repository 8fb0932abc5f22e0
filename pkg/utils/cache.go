package utils

import (
	"sync"
	"time"
)

// OAuth state 的有效窗口，足够完成一次授权跳转
const stateTTL = 10 * time.Minute

// StateCache OAuth state 的进程内 TTL 缓存
// 由 AuthService 持有，不做包级单例
type StateCache struct {
	entries sync.Map // state -> stateEntry
}

type stateEntry struct {
	value      string
	expiration int64
}

// NewStateCache 创建 state 缓存
func NewStateCache() *StateCache {
	return &StateCache{}
}

// Set 写入 state，TTL 到期后不可再用
func (c *StateCache) Set(key, value string) {
	c.entries.Store(key, stateEntry{
		value:      value,
		expiration: time.Now().Add(stateTTL).Unix(),
	})
}

// Get 读取并校验是否过期
func (c *StateCache) Get(key string) (string, bool) {
	val, ok := c.entries.Load(key)
	if !ok {
		return "", false
	}

	entry := val.(stateEntry)
	if time.Now().Unix() > entry.expiration {
		c.entries.Delete(key) // 懒删除
		return "", false
	}

	return entry.value, true
}

// Delete 删除 state (用完即焚)
func (c *StateCache) Delete(key string) {
	c.entries.Delete(key)
}
