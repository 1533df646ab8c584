// Package idgen 生成会话等对象的唯一标识
package idgen

import (
	"github.com/google/uuid"
)

// PrefixSession 会话 ID 前缀
const PrefixSession = "sess_"

// UUIDGenerator 基于 UUID v7 的 ID 生成器
type UUIDGenerator struct {
	prefix string
}

// NewUUIDGenerator 创建 UUID 生成器
func NewUUIDGenerator(prefix string) *UUIDGenerator {
	return &UUIDGenerator{
		prefix: prefix,
	}
}

// Generate 生成唯一 ID，时间有序
func (g *UUIDGenerator) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return g.prefix + id.String()
}

var sessionGenerator = NewUUIDGenerator(PrefixSession)

// NewSessionID 生成会话 ID
func NewSessionID() string {
	return sessionGenerator.Generate()
}
