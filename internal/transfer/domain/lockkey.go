package domain

import "fmt"

// PairLockKey 计算账户对的规范锁键
// 按 (min, max) 固定排序，保证 A→B 与 B→A 竞争同一把锁，避免锁序死锁
func PairLockKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("transfer:lock:%d:%d", a, b)
}

// OrderedPair 返回按规范顺序排列的账户 ID 对
// 存储层按同一顺序加行锁，与分布式锁互为纵深防御
func OrderedPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}
