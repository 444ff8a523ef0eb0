// internal/service/order/port/address.go
package port

import (
	"context"

	"takeout/internal/service/order/domain"
)

// AddressResolver 在下单时解析地址簿引用并产出快照。
// 地址不存在或不属于该用户时返回 domain.ErrAddressInvalid。
type AddressResolver interface {
	Resolve(ctx context.Context, addressID, userID int64) (*domain.AddressSnapshot, error)
}
