package model

import (
	"StaySafe/pkg/errors"
)

// Contact 紧急联系人。号码只做存储，校验公式与投递通道都在核心之外。
type Contact struct {
	ID           int64  `json:"id"`
	DisplayName  string `json:"display_name"`
	Relationship string `json:"relationship"`
	Phone        string `json:"phone"`
	Priority     int    `json:"priority"`
	CreatedAt    int64  `json:"created_at"`
}

// ValidateContact 创建前校验。
func ValidateContact(displayName string) error {
	if displayName == "" {
		return errors.ContactNameRequired
	}
	return nil
}

// Relationship guest 之间的信任关系（监护/被监护等）。
// 信任分的计算不在核心范围内，这里只存关系本身。
type Relationship struct {
	ID        int64  `json:"id"`
	PeerName  string `json:"peer_name"`
	Kind      string `json:"kind"`
	CreatedAt int64  `json:"created_at"`
}
