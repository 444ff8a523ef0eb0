// internal/pkg/zookeeper/lock.go
package zookeeper

import (
	"fmt"
	"time"

	"github.com/go-zookeeper/zk"
)

const (
	lockRoot = "/distributed_locks" // 所有分布式锁的根节点
)

// Conn 封装一个 ZooKeeper 连接。
type Conn struct {
	*zk.Conn
}

// Connect 建立到 ZooKeeper 集群的连接。
func Connect(servers []string) (*Conn, error) {
	conn, _, err := zk.Connect(servers, 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	return &Conn{Conn: conn}, nil
}

// DistributedLock 是一个非阻塞的分布式互斥锁。
// 用临时节点占位：拿不到就立刻放弃，适合"本轮干不了就等下一轮"的后台任务。
type DistributedLock struct {
	conn     *Conn
	path     string // 锁节点路径，例如 /distributed_locks/order-reaper
	acquired bool
}

// NewDistributedLock 创建一个新的分布式锁实例
func NewDistributedLock(conn *Conn, resourceID string) *DistributedLock {
	// 确保根节点存在。生产环境中这个操作通常由初始化脚本完成。
	if exists, _, err := conn.Exists(lockRoot); err == nil && !exists {
		_, createErr := conn.Create(lockRoot, []byte(""), 0, zk.WorldACL(zk.PermAll))
		if createErr != nil && createErr != zk.ErrNodeExists {
			panic(fmt.Sprintf("Failed to create lock root node: %v", createErr))
		}
	}

	return &DistributedLock{
		conn: conn,
		path: lockRoot + "/" + resourceID,
	}
}

// TryLock 尝试获取锁。已被别的实例持有时返回 false，不等待。
// 临时节点随会话消失，持有者崩溃后锁自动释放。
func (l *DistributedLock) TryLock() (bool, error) {
	_, err := l.conn.Create(l.path, []byte(""), zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create lock node: %w", err)
	}
	l.acquired = true
	return true, nil
}

// Unlock 释放锁
func (l *DistributedLock) Unlock() error {
	if !l.acquired {
		return nil
	}
	err := l.conn.Delete(l.path, -1)
	if err != nil && err != zk.ErrNoNode {
		return fmt.Errorf("failed to delete lock node: %w", err)
	}
	l.acquired = false
	return nil
}
