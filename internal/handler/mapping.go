package handler

import (
	"goldledger/internal/dto"
	"goldledger/internal/model"
	"goldledger/internal/service"

	"github.com/google/uuid"
)

// Money leaves the API at 2 places; weights and unit costs as stored.

func supplierRef(id uuid.UUID) *string {
	if id == model.MerchantSupplierID {
		return nil
	}
	s := id.String()
	return &s
}

func uuidPtrString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func lotToResponse(l *model.OwnershipLot) dto.LotResponse {
	return dto.LotResponse{
		ID:             l.ID.String(),
		ItemKind:       string(l.ItemKind),
		ItemKey:        l.ItemKey,
		ProductID:      uuidPtrString(l.ProductID),
		KaratTypeID:    l.KaratTypeID,
		BranchID:       l.BranchID.String(),
		SupplierID:     supplierRef(l.SupplierID),
		Status:         string(l.Status),
		Currency:       l.Currency,
		TotalWeight:    l.TotalWeight,
		TotalQuantity:  l.TotalQuantity,
		UnitCost:       l.UnitCost,
		TotalCost:      service.RoundMoney(l.TotalCost),
		AmountPaid:     service.RoundMoney(l.AmountPaid),
		AmountOwed:     service.RoundMoney(l.AmountOwed),
		CreatedAt:      l.CreatedAt,
		LastMovementAt: l.LastMovementAt,
	}
}

func lotsToResponse(lots []model.OwnershipLot) []dto.LotResponse {
	out := make([]dto.LotResponse, 0, len(lots))
	for i := range lots {
		out = append(out, lotToResponse(&lots[i]))
	}
	return out
}

func movementToResponse(m *model.OwnershipMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:                   m.ID.String(),
		LotID:                m.LotID.String(),
		Sequence:             m.Sequence,
		MovementType:         string(m.MovementType),
		WeightChange:         m.WeightChange,
		QuantityChange:       m.QuantityChange,
		AmountChange:         service.RoundMoney(m.AmountChange),
		PaidChange:           service.RoundMoney(m.PaidChange),
		WeightBalanceAfter:   m.WeightBalanceAfter,
		QuantityBalanceAfter: m.QuantityBalanceAfter,
		AmountOwedAfter:      service.RoundMoney(m.AmountOwedAfter),
		UnitCostAfter:        m.UnitCostAfter,
		ReferenceNumber:      m.ReferenceNumber,
		CorrelationID:        uuidPtrString(m.CorrelationID),
		CreatedBy:            m.CreatedBy,
		Timestamp:            m.Timestamp,
	}
}

func movementsToResponse(ms []model.OwnershipMovement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(ms))
	for i := range ms {
		out = append(out, movementToResponse(&ms[i]))
	}
	return out
}

func warningsToResponse(ws []service.LedgerWarning) []dto.WarningResponse {
	out := make([]dto.WarningResponse, 0, len(ws))
	for _, w := range ws {
		out = append(out, dto.WarningResponse{Code: w.Code, LotID: uuidPtrString(w.LotID), Message: w.Message})
	}
	return out
}

func creditToResponse(c *service.CreditCheck) *dto.CreditCheckResponse {
	if c == nil {
		return nil
	}
	return &dto.CreditCheckResponse{
		SupplierID:       c.SupplierID.String(),
		Allowed:          c.Allowed,
		WouldExceed:      c.WouldExceed,
		Enforced:         c.Enforced,
		CurrentBalance:   service.RoundMoney(c.CurrentBalance),
		Additional:       service.RoundMoney(c.Additional),
		ProjectedBalance: service.RoundMoney(c.ProjectedBalance),
		Limit:            service.RoundMoney(c.Limit),
	}
}

func saleToResponse(r *service.SaleResult) dto.SaleResponse {
	slices := make([]dto.SaleSliceResponse, 0, len(r.Slices))
	for _, s := range r.Slices {
		slices = append(slices, dto.SaleSliceResponse{
			LotID:      s.LotID.String(),
			SupplierID: supplierRef(s.SupplierID),
			Weight:     s.Weight,
			Quantity:   s.Quantity,
			UnitCost:   s.UnitCost,
			Cost:       service.RoundMoney(s.Cost),
		})
	}
	return dto.SaleResponse{
		Slices:    slices,
		Movements: movementsToResponse(r.Movements),
		TotalCost: service.RoundMoney(r.TotalCost),
		Warnings:  warningsToResponse(r.Warnings),
	}
}

func conversionToResponse(r *service.ConversionResult) dto.ConversionResponse {
	conv := r.Conversion
	return dto.ConversionResponse{
		ID:              conv.ID.String(),
		FromKaratTypeID: conv.FromKaratTypeID,
		ToKaratTypeID:   conv.ToKaratTypeID,
		Rate:            conv.Rate,
		FromWeight:      conv.FromWeight,
		ToWeight:        conv.ToWeight,
		CostValue:       service.RoundMoney(conv.CostValue),
		SourceLot:       lotToResponse(&r.SourceLot),
		DestinationLot:  lotToResponse(&r.DestinationLot),
		DebitMovement:   movementToResponse(&r.Debit),
		CreditMovement:  movementToResponse(&r.Credit),
	}
}

func consolidationToResponse(r *service.ConsolidationResult) dto.ConsolidationResponse {
	ids := make([]string, 0, len(r.SourceLots))
	for _, l := range r.SourceLots {
		ids = append(ids, l.ID.String())
	}
	return dto.ConsolidationResponse{
		BatchID:      r.Batch.ID.String(),
		UnitCost:     r.Batch.UnitCost,
		TargetLot:    lotToResponse(&r.TargetLot),
		SourceLotIDs: ids,
		Movements:    movementsToResponse(r.Movements),
	}
}

func quoteToResponse(q *service.CostQuote) dto.CostQuoteResponse {
	plan := make([]dto.CostLayerResponse, 0, len(q.Plan))
	for _, l := range q.Plan {
		plan = append(plan, dto.CostLayerResponse{
			LotID:      l.LotID.String(),
			SupplierID: supplierRef(l.SupplierID),
			AcquiredAt: l.AcquiredAt,
			Measure:    l.Measure,
			UnitCost:   l.UnitCost,
			Cost:       service.RoundMoney(l.Cost),
		})
	}
	return dto.CostQuoteResponse{
		Method:    string(q.Method),
		ItemKey:   q.Item.Key(),
		BranchID:  q.BranchID.String(),
		Requested: q.Requested,
		Available: q.Available,
		TotalCost: service.RoundMoney(q.TotalCost),
		UnitCost:  q.UnitCost,
		Plan:      plan,
	}
}

func totalsToResponse(t service.LotTotals) dto.LotTotalsResponse {
	return dto.LotTotalsResponse{
		Weight:     t.Weight,
		Quantity:   t.Quantity,
		TotalCost:  service.RoundMoney(t.TotalCost),
		AmountPaid: service.RoundMoney(t.AmountPaid),
		AmountOwed: service.RoundMoney(t.AmountOwed),
	}
}

func replayToResponse(r *service.ReplayReport) dto.ReplayResponse {
	return dto.ReplayResponse{
		LotID:      r.LotID.String(),
		Movements:  r.Movements,
		Expected:   totalsToResponse(r.Expected),
		Actual:     totalsToResponse(r.Actual),
		Consistent: r.Consistent,
		Drift:      r.Drift,
	}
}

func lowOwnershipToResponse(alerts []service.LowOwnershipAlert) []dto.LowOwnershipAlertResponse {
	out := make([]dto.LowOwnershipAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, dto.LowOwnershipAlertResponse{
			ItemKey:   a.Item.Key,
			ItemName:  a.Item.Name,
			BranchID:  a.BranchID.String(),
			Weight:    a.Weight,
			Quantity:  a.Quantity,
			Threshold: a.Threshold,
			Lots:      a.Lots,
		})
	}
	return out
}

func outstandingToResponse(alerts []service.OutstandingPaymentAlert) []dto.OutstandingPaymentAlertResponse {
	out := make([]dto.OutstandingPaymentAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		ids := make([]string, 0, len(a.LotIDs))
		for _, id := range a.LotIDs {
			ids = append(ids, id.String())
		}
		out = append(out, dto.OutstandingPaymentAlertResponse{
			SupplierID:  a.SupplierID.String(),
			AmountOwed:  service.RoundMoney(a.AmountOwed),
			Lots:        a.Lots,
			OldestLotAt: a.OldestLotAt,
			LotIDs:      ids,
		})
	}
	return out
}

func conversionRecordToResponse(k *model.KaratConversion) dto.ConversionRecordResponse {
	return dto.ConversionRecordResponse{
		ID:               k.ID.String(),
		BranchID:         k.BranchID.String(),
		SupplierID:       supplierRef(k.SupplierID),
		FromKaratTypeID:  k.FromKaratTypeID,
		ToKaratTypeID:    k.ToKaratTypeID,
		FromPurity:       k.FromPurity,
		ToPurity:         k.ToPurity,
		Rate:             k.Rate,
		FromWeight:       k.FromWeight,
		FineWeight:       k.FineWeight,
		ToWeight:         k.ToWeight,
		CostValue:        service.RoundMoney(k.CostValue),
		SourceLotID:      k.SourceLotID.String(),
		DestinationLotID: k.DestinationLotID.String(),
		DebitMovementID:  k.DebitMovementID.String(),
		CreditMovementID: k.CreditMovementID.String(),
		ReferenceNumber:  k.ReferenceNumber,
		CreatedBy:        k.CreatedBy,
		CreatedAt:        k.CreatedAt,
	}
}

func batchToResponse(b *model.ConsolidationBatch) dto.ConsolidationBatchResponse {
	ids := make([]string, 0, len(b.SourceLotIDs))
	for _, id := range b.SourceLotIDs {
		ids = append(ids, id.String())
	}
	return dto.ConsolidationBatchResponse{
		ID:              b.ID.String(),
		ItemKey:         b.ItemKey,
		BranchID:        b.BranchID.String(),
		SupplierID:      supplierRef(b.SupplierID),
		TargetLotID:     b.TargetLotID.String(),
		UnitCost:        b.UnitCost,
		TotalWeight:     b.TotalWeight,
		TotalQuantity:   b.TotalQuantity,
		SourceLotIDs:    ids,
		ReferenceNumber: b.ReferenceNumber,
		CreatedBy:       b.CreatedBy,
		CreatedAt:       b.CreatedAt,
	}
}
