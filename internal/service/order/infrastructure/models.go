// internal/service/order/infrastructure/models.go
package infrastructure

import "time"

// OrderModel 是 Order 领域对象在数据库中的表示。
type OrderModel struct {
	ID              int64  `gorm:"primaryKey;autoIncrement"`
	Number          string `gorm:"uniqueIndex;size:64"`
	UserID          int64  `gorm:"index"`
	Status          int    `gorm:"index"`
	PayStatus       int
	Amount          int64
	PayMethod       int
	Remark          string    `gorm:"size:255"`
	Consignee       string    `gorm:"size:64"`
	Phone           string    `gorm:"size:32"`
	Address         string    `gorm:"size:255"`
	OrderTime       time.Time `gorm:"index"`
	PayTime         *time.Time
	DeliveryTime    *time.Time
	CancelTime      *time.Time
	CancelReason    string `gorm:"size:255"`
	RejectionReason string `gorm:"size:255"`

	Lines []OrderLineModel `gorm:"foreignKey:OrderID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderLineModel 是订单明细快照的数据库表示。
type OrderLineModel struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	OrderID int64  `gorm:"index"`
	Name    string `gorm:"size:64"`
	DishID  int64
	Number  int
	Amount  int64
}

func (OrderLineModel) TableName() string {
	return "order_lines"
}

// AddressBookModel 是用户地址簿的数据库表示，下单时只读。
type AddressBookModel struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    int64  `gorm:"index"`
	Consignee string `gorm:"size:64"`
	Phone     string `gorm:"size:32"`
	Detail    string `gorm:"size:255"`
}

func (AddressBookModel) TableName() string {
	return "address_book"
}
