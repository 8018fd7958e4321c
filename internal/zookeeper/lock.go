// internal/zookeeper/lock.go
package zookeeper

import (
	"time"

	"github.com/go-zookeeper/zk"
)

const lockRoot = "/dispatch/locks"

// Conn 封装一个 ZooKeeper 会话。
type Conn struct {
	conn *zk.Conn
}

// Connect 建立 ZooKeeper 会话并确保锁的根节点存在。
func Connect(servers []string) (*Conn, error) {
	conn, _, err := zk.Connect(servers, 10*time.Second)
	if err != nil {
		return nil, err
	}
	c := &Conn{conn: conn}
	if err := c.ensurePath(lockRoot); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// Close 关闭会话，所有临时节点随之消失。
func (c *Conn) Close() {
	c.conn.Close()
}

func (c *Conn) ensurePath(path string) error {
	// 逐级创建；/dispatch 和 /dispatch/locks 都可能不存在
	var cur string
	for _, seg := range splitPath(path) {
		cur += "/" + seg
		_, err := c.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && err != zk.ErrNodeExists {
			return err
		}
	}
	return nil
}

func splitPath(path string) []string {
	var segs []string
	var cur []byte
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			if len(cur) > 0 {
				segs = append(segs, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, path[i])
	}
	if len(cur) > 0 {
		segs = append(segs, string(cur))
	}
	return segs
}

// TryLock 是一个非阻塞的分布式锁，基于临时节点实现。
// 拿不到锁直接返回 false，适合“本轮让给别的副本”的调度场景。
type TryLock struct {
	conn *Conn
	path string
}

// NewTryLock 创建一把名为 name 的锁。
func NewTryLock(conn *Conn, name string) *TryLock {
	return &TryLock{conn: conn, path: lockRoot + "/" + name}
}

// TryAcquire 尝试抢占锁。已被其他会话持有时返回 false。
func (l *TryLock) TryAcquire() (bool, error) {
	_, err := l.conn.conn.Create(l.path, nil, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
	if err == zk.ErrNodeExists {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Release 释放锁。节点已经不在（例如会话曾断开）时视为成功。
func (l *TryLock) Release() error {
	err := l.conn.conn.Delete(l.path, -1)
	if err == zk.ErrNoNode {
		return nil
	}
	return err
}
