// internal/service/order/infrastructure/mapper.go
package infrastructure

import "takeout/internal/service/order/domain"

// ToDomainOrder 将数据库模型转换为领域模型
func ToDomainOrder(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}
	lines := make([]domain.OrderLine, 0, len(model.Lines))
	for _, l := range model.Lines {
		lines = append(lines, domain.OrderLine{
			Name:   l.Name,
			DishID: l.DishID,
			Number: l.Number,
			Amount: l.Amount,
		})
	}
	return &domain.Order{
		ID:        model.ID,
		Number:    model.Number,
		UserID:    model.UserID,
		Status:    domain.Status(model.Status),
		PayStatus: domain.PayStatus(model.PayStatus),
		Amount:    model.Amount,
		PayMethod: model.PayMethod,
		Remark:    model.Remark,
		Address: domain.AddressSnapshot{
			Consignee: model.Consignee,
			Phone:     model.Phone,
			Detail:    model.Address,
		},
		Lines:           lines,
		OrderTime:       model.OrderTime,
		PayTime:         model.PayTime,
		DeliveryTime:    model.DeliveryTime,
		CancelTime:      model.CancelTime,
		CancelReason:    model.CancelReason,
		RejectionReason: model.RejectionReason,
	}
}

// FromDomainOrder 将领域模型转换为数据库模型 (用于插入)
func FromDomainOrder(dmn *domain.Order) *OrderModel {
	if dmn == nil {
		return nil
	}
	lines := make([]OrderLineModel, 0, len(dmn.Lines))
	for _, l := range dmn.Lines {
		lines = append(lines, OrderLineModel{
			Name:   l.Name,
			DishID: l.DishID,
			Number: l.Number,
			Amount: l.Amount,
		})
	}
	return &OrderModel{
		ID:              dmn.ID,
		Number:          dmn.Number,
		UserID:          dmn.UserID,
		Status:          int(dmn.Status),
		PayStatus:       int(dmn.PayStatus),
		Amount:          dmn.Amount,
		PayMethod:       dmn.PayMethod,
		Remark:          dmn.Remark,
		Consignee:       dmn.Address.Consignee,
		Phone:           dmn.Address.Phone,
		Address:         dmn.Address.Detail,
		Lines:           lines,
		OrderTime:       dmn.OrderTime,
		PayTime:         dmn.PayTime,
		DeliveryTime:    dmn.DeliveryTime,
		CancelTime:      dmn.CancelTime,
		CancelReason:    dmn.CancelReason,
		RejectionReason: dmn.RejectionReason,
	}
}
